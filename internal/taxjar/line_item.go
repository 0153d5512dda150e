package taxjar

import (
	"github.com/samber/lo"

	"github.com/odyssey-erp/taxjar/internal/prices"
)

// LineItem describes one order line submitted for tax calculation.
type LineItem struct {
	ID             string        `json:"id" validate:"required"`
	Quantity       int           `json:"quantity" validate:"gte=1"`
	UnitPrice      prices.Money  `json:"unit_price"`
	ProductTaxCode string        `json:"product_tax_code,omitempty"`
	Discount       *prices.Money `json:"discount,omitempty"`
}

// LineItemPayload is the wire form of a LineItem. Amounts keep the currency's
// minor digits; Discount is either such a string or the number 0.
type LineItemPayload struct {
	ID             string `json:"id"`
	Quantity       int    `json:"quantity"`
	UnitPrice      string `json:"unit_price"`
	ProductTaxCode string `json:"product_tax_code"`
	Discount       any    `json:"discount"`
}

// Dictionary serialises the line item, substituting defaultTaxCode when the
// item has no product tax code.
func (l LineItem) Dictionary(defaultTaxCode string) LineItemPayload {
	payload := LineItemPayload{
		ID:             l.ID,
		Quantity:       l.Quantity,
		UnitPrice:      l.UnitPrice.AmountString(),
		ProductTaxCode: lo.Ternary(l.ProductTaxCode != "", l.ProductTaxCode, defaultTaxCode),
		Discount:       0,
	}
	if l.Discount != nil && !l.Discount.IsZero() {
		payload.Discount = l.Discount.AmountString()
	}
	return payload
}

func lineItemPayloads(items []LineItem, defaultTaxCode string) []LineItemPayload {
	return lo.Map(items, func(item LineItem, _ int) LineItemPayload {
		return item.Dictionary(defaultTaxCode)
	})
}
