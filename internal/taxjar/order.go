package taxjar

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/odyssey-erp/taxjar/internal/prices"
)

// OrderParams describes an order submitted to POST taxes. Either Amount or
// LineItems must be set; line items win when both are.
type OrderParams struct {
	CountryCode string        `json:"country_code" validate:"required,len=2,alpha"`
	Shipping    prices.Money  `json:"shipping"`
	PostalCode  string        `json:"postal_code,omitempty"`
	RegionCode  string        `json:"region_code,omitempty"`
	City        string        `json:"city,omitempty"`
	Street      string        `json:"street,omitempty"`
	Amount      *prices.Money `json:"amount,omitempty"`
	LineItems   []LineItem    `json:"line_items,omitempty" validate:"omitempty,dive"`
}

// OrderTaxResult pairs the upstream tax object with an applier for the
// collected amount.
type OrderTaxResult struct {
	Applier prices.AmountApplier `json:"applier"`
	Tax     OrderTax             `json:"tax"`
}

// Apply implements prices.TaxApplier.
func (r OrderTaxResult) Apply(base prices.Base, keepGross bool) (prices.TaxedMoney, error) {
	return r.Applier.Apply(base, keepGross)
}

// GetTaxesForOrder computes the tax of an order and returns an applier for
// amount_to_collect in the shipping currency.
func (s *Service) GetTaxesForOrder(ctx context.Context, params OrderParams) (OrderTaxResult, error) {
	if params.Amount == nil && len(params.LineItems) == 0 {
		return OrderTaxResult{}, ErrAmountOrLineItemsRequired
	}
	if err := s.validateOrder(params); err != nil {
		return OrderTaxResult{}, err
	}

	req := s.orderRequest(params)
	resp, err := s.remote.FetchTaxForOrder(ctx, req)
	if err != nil {
		return OrderTaxResult{}, err
	}
	if err := ValidateData(resp.Envelope); err != nil {
		return OrderTaxResult{}, err
	}
	if resp.Tax == nil {
		return OrderTaxResult{}, errors.Newf("taxjar: %s response has no tax", orderTaxesPath)
	}
	return OrderTaxResult{
		Applier: prices.AmountApplier{
			Amount:   resp.Tax.AmountToCollect,
			Currency: params.Shipping.Currency,
		},
		Tax: *resp.Tax,
	}, nil
}

func (s *Service) orderRequest(params OrderParams) OrderRequest {
	req := OrderRequest{
		ToCountry: strings.ToUpper(params.CountryCode),
		Shipping:  json.Number(params.Shipping.AmountString()),
		ToZip:     params.PostalCode,
		ToState:   params.RegionCode,
		ToCity:    params.City,
		ToStreet:  params.Street,
	}
	if len(params.LineItems) > 0 {
		req.LineItems = lineItemPayloads(params.LineItems, s.cfg.DefaultProductTaxCode)
	} else if params.Amount != nil {
		req.Amount = json.Number(params.Amount.AmountString())
	}
	return req
}

// validateOrder runs struct validation and checks every amount shares the
// shipping currency.
func (s *Service) validateOrder(params OrderParams) error {
	if err := s.validate.Struct(params); err != nil {
		return errors.Wrapf(ErrInvalidOrder, "%s", describeValidation(err))
	}
	currency := params.Shipping.Currency
	check := func(m prices.Money, field string) error {
		if m.Currency != currency {
			return fmt.Errorf("%w: %s in %s, shipping in %s: %w", ErrInvalidOrder, field, m.Currency, currency, prices.ErrCurrencyMismatch)
		}
		return nil
	}
	if params.Amount != nil {
		if err := check(*params.Amount, "amount"); err != nil {
			return err
		}
	}
	for i, item := range params.LineItems {
		if err := check(item.UnitPrice, fmt.Sprintf("line_items[%d].unit_price", i)); err != nil {
			return err
		}
		if item.Discount != nil {
			if err := check(*item.Discount, fmt.Sprintf("line_items[%d].discount", i)); err != nil {
				return err
			}
		}
	}
	return nil
}
