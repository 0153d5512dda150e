package prices

import (
	"github.com/shopspring/decimal"
)

// TaxApplier applies a resolved tax to a Money or TaxedMoney base.
type TaxApplier interface {
	Apply(base Base, keepGross bool) (TaxedMoney, error)
}

// RateApplier applies a flat fractional rate.
type RateApplier struct {
	Rate decimal.Decimal `json:"rate"`
}

// Apply implements TaxApplier.
func (a RateApplier) Apply(base Base, keepGross bool) (TaxedMoney, error) {
	return FlatTax(base, a.Rate, keepGross)
}

// AmountApplier applies an absolute tax amount. When Currency is set the base
// must be in that currency.
type AmountApplier struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency,omitempty"`
}

// Apply implements TaxApplier.
func (a AmountApplier) Apply(base Base, keepGross bool) (TaxedMoney, error) {
	if base != nil && a.Currency != "" && base.baseCurrency() != a.Currency {
		return TaxedMoney{}, mismatch(base.baseCurrency(), a.Currency)
	}
	return TaxAmount(base, a.Amount, keepGross)
}
