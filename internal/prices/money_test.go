package prices

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoneyArithmeticRequiresMatchingCurrency(t *testing.T) {
	_, err := usd("1").Add(MustParseMoney("1", "EUR"))
	require.ErrorIs(t, err, ErrCurrencyMismatch)

	_, err = usd("1").Sub(MustParseMoney("1", "EUR"))
	require.ErrorIs(t, err, ErrCurrencyMismatch)

	_, err = NewTaxedMoney(usd("1"), MustParseMoney("1", "GBP"))
	require.ErrorIs(t, err, ErrCurrencyMismatch)

	sum, err := usd("1.10").Add(usd("2.05"))
	require.NoError(t, err)
	assert.True(t, sum.Equal(usd("3.15")))
}

func TestScale(t *testing.T) {
	assert.Equal(t, int32(2), Scale("USD"))
	assert.Equal(t, int32(0), Scale("JPY"))
	assert.Equal(t, int32(3), Scale("BHD"))
	assert.Equal(t, int32(2), Scale("not-a-currency"))
}

func TestAmountStringKeepsMinorUnits(t *testing.T) {
	assert.Equal(t, "10.00", usd("10").AmountString())
	assert.Equal(t, "15.50", usd("15.5").AmountString())
	assert.Equal(t, "1.255", usd("1.255").AmountString())
	assert.Equal(t, "500", MustParseMoney("500", "JPY").AmountString())
	assert.Equal(t, "0.000", MustParseMoney("0", "BHD").AmountString())
}

func TestQuantizeRoundsHalfUp(t *testing.T) {
	assert.Equal(t, "2.35", usd("2.345").Quantize().Amount.String())
	assert.Equal(t, "-2.35", usd("-2.345").Quantize().Amount.String())
}

func TestTaxedMoneyTax(t *testing.T) {
	tax, err := TaxedMoney{Net: usd("15"), Gross: usd("16.35")}.Tax()
	require.NoError(t, err)
	assert.True(t, tax.Equal(usd("1.35")))
}

func TestMoneyJSON(t *testing.T) {
	raw, err := json.Marshal(NewMoney(decimal.RequireFromString("12.50"), "usd"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"12.5","currency":"USD"}`, string(raw))

	var m Money
	require.NoError(t, json.Unmarshal([]byte(`{"amount":3.1,"currency":"EUR"}`), &m))
	assert.True(t, m.Equal(MustParseMoney("3.10", "EUR")))
}

func TestAppliers(t *testing.T) {
	rate := RateApplier{Rate: decimal.RequireFromString("0.07")}
	got, err := rate.Apply(usd("100"), false)
	require.NoError(t, err)
	requireTaxed(t, TaxedMoney{Net: usd("100"), Gross: usd("107.00")}, got)

	got, err = rate.Apply(usd("100"), true)
	require.NoError(t, err)
	requireTaxed(t, TaxedMoney{Net: usd("93.46"), Gross: usd("100")}, got)

	amount := AmountApplier{Amount: decimal.RequireFromString("1.35"), Currency: "USD"}
	got, err = amount.Apply(Untaxed(usd("15")), true)
	require.NoError(t, err)
	requireTaxed(t, TaxedMoney{Net: usd("13.65"), Gross: usd("15")}, got)

	_, err = amount.Apply(MustParseMoney("15", "EUR"), false)
	require.ErrorIs(t, err, ErrCurrencyMismatch)
}
