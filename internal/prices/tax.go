package prices

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Base is a value a tax can be applied to: Money or TaxedMoney.
type Base interface {
	baseCurrency() string
}

// FlatTax applies a fractional rate (0.0827 for 8.27%).
//
// With keepGross unset the net side is kept and gross = net * (1 + rate).
// With keepGross set the gross side is kept and net = gross / (1 + rate).
// The computed side is quantized to the currency scale.
func FlatTax(base Base, rate decimal.Decimal, keepGross bool) (TaxedMoney, error) {
	if rate.LessThanOrEqual(decimal.NewFromInt(-1)) {
		return TaxedMoney{}, fmt.Errorf("%w: %s", ErrInvalidRate, rate)
	}
	fraction := decimal.NewFromInt(1).Add(rate)
	switch b := base.(type) {
	case Money:
		if keepGross {
			return TaxedMoney{Net: divide(b, fraction), Gross: b}, nil
		}
		return TaxedMoney{Net: b, Gross: b.Mul(fraction).Quantize()}, nil
	case TaxedMoney:
		if keepGross {
			return TaxedMoney{Net: divide(b.Gross, fraction), Gross: b.Gross}, nil
		}
		return TaxedMoney{Net: b.Net, Gross: b.Net.Mul(fraction).Quantize()}, nil
	default:
		return TaxedMoney{}, ErrUnsupportedBase
	}
}

// TaxAmount applies an absolute tax amount expressed in the base currency.
//
// For Money, keepGross unset yields net=base, gross=base+amount; set yields
// gross=base, net=base-amount. For TaxedMoney only the gross (keepGross unset)
// or only the net (keepGross set) moves; the other side is preserved.
func TaxAmount(base Base, amount decimal.Decimal, keepGross bool) (TaxedMoney, error) {
	switch b := base.(type) {
	case Money:
		tax := NewMoney(amount, b.Currency).Quantize()
		if keepGross {
			net, err := b.Sub(tax)
			if err != nil {
				return TaxedMoney{}, err
			}
			return TaxedMoney{Net: net, Gross: b}, nil
		}
		gross, err := b.Add(tax)
		if err != nil {
			return TaxedMoney{}, err
		}
		return TaxedMoney{Net: b, Gross: gross}, nil
	case TaxedMoney:
		if b.Net.Currency != b.Gross.Currency {
			return TaxedMoney{}, mismatch(b.Net.Currency, b.Gross.Currency)
		}
		tax := NewMoney(amount, b.Currency()).Quantize()
		if keepGross {
			net, err := b.Net.Sub(tax)
			if err != nil {
				return TaxedMoney{}, err
			}
			return TaxedMoney{Net: net, Gross: b.Gross}, nil
		}
		gross, err := b.Gross.Add(tax)
		if err != nil {
			return TaxedMoney{}, err
		}
		return TaxedMoney{Net: b.Net, Gross: gross}, nil
	default:
		return TaxedMoney{}, ErrUnsupportedBase
	}
}

func divide(m Money, fraction decimal.Decimal) Money {
	return Money{Amount: m.Amount.DivRound(fraction, Scale(m.Currency)), Currency: m.Currency}
}
