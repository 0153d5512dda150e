package prices

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func usd(amount string) Money {
	return MustParseMoney(amount, "USD")
}

func requireTaxed(t *testing.T, want, got TaxedMoney) {
	t.Helper()
	require.Truef(t, want.Equal(got), "want %s, got %s", want, got)
}

func TestFlatTaxMoney(t *testing.T) {
	rate := decimal.RequireFromString("0.0827")

	got, err := FlatTax(usd("100"), rate, false)
	require.NoError(t, err)
	requireTaxed(t, TaxedMoney{Net: usd("100"), Gross: usd("108.27")}, got)

	got, err = FlatTax(usd("100"), rate, true)
	require.NoError(t, err)
	requireTaxed(t, TaxedMoney{Net: usd("92.36"), Gross: usd("100")}, got)
}

func TestFlatTaxTaxedMoney(t *testing.T) {
	rate := decimal.RequireFromString("0.0827")
	base := Untaxed(usd("100"))

	got, err := FlatTax(base, rate, false)
	require.NoError(t, err)
	requireTaxed(t, TaxedMoney{Net: usd("100"), Gross: usd("108.27")}, got)

	got, err = FlatTax(base, rate, true)
	require.NoError(t, err)
	requireTaxed(t, TaxedMoney{Net: usd("92.36"), Gross: usd("100")}, got)
}

func TestFlatTaxKeepsCurrencyScale(t *testing.T) {
	got, err := FlatTax(MustParseMoney("1000", "JPY"), decimal.RequireFromString("0.08"), false)
	require.NoError(t, err)
	require.Equal(t, "JPY", got.Gross.Currency)
	require.Equal(t, "1080", got.Gross.Amount.String())

	got, err = FlatTax(MustParseMoney("100", "JPY"), decimal.RequireFromString("0.0827"), true)
	require.NoError(t, err)
	require.Equal(t, "92", got.Net.Amount.String())
}

func TestTaxAmountMoney(t *testing.T) {
	amount := decimal.RequireFromString("1.35")

	got, err := TaxAmount(usd("15"), amount, false)
	require.NoError(t, err)
	requireTaxed(t, TaxedMoney{Net: usd("15"), Gross: usd("16.35")}, got)

	got, err = TaxAmount(usd("15"), amount, true)
	require.NoError(t, err)
	requireTaxed(t, TaxedMoney{Net: usd("13.65"), Gross: usd("15")}, got)
}

func TestTaxAmountTaxedMoneyPreservesUntouchedSide(t *testing.T) {
	amount := decimal.RequireFromString("1.35")
	base := TaxedMoney{Net: usd("15"), Gross: usd("15")}

	got, err := TaxAmount(base, amount, false)
	require.NoError(t, err)
	requireTaxed(t, TaxedMoney{Net: usd("15"), Gross: usd("16.35")}, got)

	got, err = TaxAmount(base, amount, true)
	require.NoError(t, err)
	requireTaxed(t, TaxedMoney{Net: usd("13.65"), Gross: usd("15")}, got)

	split := TaxedMoney{Net: usd("10"), Gross: usd("12")}
	got, err = TaxAmount(split, amount, false)
	require.NoError(t, err)
	requireTaxed(t, TaxedMoney{Net: usd("10"), Gross: usd("13.35")}, got)
}

func TestTaxAmountQuantizesAmount(t *testing.T) {
	got, err := TaxAmount(usd("10"), decimal.RequireFromString("0.125"), false)
	require.NoError(t, err)
	require.Equal(t, "10.13", got.Gross.Amount.StringFixed(2))
}

func TestTaxAmountCurrencyMismatch(t *testing.T) {
	broken := TaxedMoney{Net: usd("10"), Gross: MustParseMoney("10", "EUR")}
	_, err := TaxAmount(broken, decimal.RequireFromString("1"), false)
	require.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestUnsupportedBase(t *testing.T) {
	_, err := FlatTax(nil, decimal.Zero, false)
	require.True(t, errors.Is(err, ErrUnsupportedBase))
	_, err = TaxAmount(nil, decimal.Zero, false)
	require.True(t, errors.Is(err, ErrUnsupportedBase))
}

func TestFlatTaxRejectsRateAtMinusOne(t *testing.T) {
	for _, rate := range []string{"-1", "-1.5"} {
		for _, keepGross := range []bool{false, true} {
			_, err := FlatTax(usd("10"), decimal.RequireFromString(rate), keepGross)
			require.ErrorIs(t, err, ErrInvalidRate)

			_, err = RateApplier{Rate: decimal.RequireFromString(rate)}.Apply(TaxedMoney{Net: usd("10"), Gross: usd("10")}, keepGross)
			require.ErrorIs(t, err, ErrInvalidRate)
		}
	}
}
