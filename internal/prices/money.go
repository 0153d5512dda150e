// Package prices implements currency-tagged amounts and the net/gross tax
// adjustments applied to them.
package prices

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

var (
	// ErrCurrencyMismatch is returned when arithmetic mixes currencies.
	ErrCurrencyMismatch = errors.New("prices: currency mismatch")
	// ErrUnsupportedBase is returned when a tax is applied to something other than Money or TaxedMoney.
	ErrUnsupportedBase = errors.New("prices: unsupported base")
	// ErrInvalidRate is returned for rates at or below -100%.
	ErrInvalidRate = errors.New("prices: rate must be greater than -1")
)

const defaultScale = 2

// Money is a decimal amount tagged with an ISO 4217 currency code.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// NewMoney builds a Money value, normalising the currency code to upper case.
func NewMoney(amount decimal.Decimal, currencyCode string) Money {
	return Money{Amount: amount, Currency: strings.ToUpper(strings.TrimSpace(currencyCode))}
}

// ParseMoney parses a decimal string into Money.
func ParseMoney(amount, currencyCode string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return Money{}, fmt.Errorf("prices: parse amount %q: %w", amount, err)
	}
	return NewMoney(d, currencyCode), nil
}

// MustParseMoney is ParseMoney for literals; it panics on malformed input.
func MustParseMoney(amount, currencyCode string) Money {
	m, err := ParseMoney(amount, currencyCode)
	if err != nil {
		panic(err)
	}
	return m
}

// Scale reports the number of minor-unit digits for a currency. Unknown codes
// fall back to two places.
func Scale(currencyCode string) int32 {
	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		return defaultScale
	}
	scale, _ := currency.Standard.Rounding(unit)
	return int32(scale)
}

// Quantize rounds the amount half-up to the currency's standard scale.
func (m Money) Quantize() Money {
	return Money{Amount: m.Amount.Round(Scale(m.Currency)), Currency: m.Currency}
}

// Add returns m + other.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, mismatch(m.Currency, other.Currency)
	}
	return Money{Amount: m.Amount.Add(other.Amount), Currency: m.Currency}, nil
}

// Sub returns m - other.
func (m Money) Sub(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, mismatch(m.Currency, other.Currency)
	}
	return Money{Amount: m.Amount.Sub(other.Amount), Currency: m.Currency}, nil
}

// Mul scales the amount by factor without rounding.
func (m Money) Mul(factor decimal.Decimal) Money {
	return Money{Amount: m.Amount.Mul(factor), Currency: m.Currency}
}

// Equal compares currency and numeric value; 100 and 100.00 are equal.
func (m Money) Equal(other Money) bool {
	return m.Currency == other.Currency && m.Amount.Equal(other.Amount)
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

// AmountString formats the amount with at least the currency's minor digits,
// so 10 USD is "10.00" and 1.255 USD keeps all three places.
func (m Money) AmountString() string {
	places := Scale(m.Currency)
	if exp := -m.Amount.Exponent(); exp > places {
		places = exp
	}
	return m.Amount.StringFixed(places)
}

func (m Money) String() string {
	return m.Currency + " " + m.Amount.StringFixed(Scale(m.Currency))
}

func (m Money) baseCurrency() string { return m.Currency }

func mismatch(a, b string) error {
	return fmt.Errorf("%w: %s and %s", ErrCurrencyMismatch, a, b)
}
