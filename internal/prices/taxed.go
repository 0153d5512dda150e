package prices

// TaxedMoney is a net/gross pair in a single currency.
type TaxedMoney struct {
	Net   Money `json:"net"`
	Gross Money `json:"gross"`
}

// NewTaxedMoney pairs net and gross, rejecting mixed currencies.
func NewTaxedMoney(net, gross Money) (TaxedMoney, error) {
	if net.Currency != gross.Currency {
		return TaxedMoney{}, mismatch(net.Currency, gross.Currency)
	}
	return TaxedMoney{Net: net, Gross: gross}, nil
}

// Untaxed returns a TaxedMoney whose net and gross are both m.
func Untaxed(m Money) TaxedMoney {
	return TaxedMoney{Net: m, Gross: m}
}

// Currency returns the shared currency code.
func (t TaxedMoney) Currency() string {
	return t.Net.Currency
}

// Tax returns gross minus net.
func (t TaxedMoney) Tax() (Money, error) {
	return t.Gross.Sub(t.Net)
}

// Equal reports whether both sides are equal.
func (t TaxedMoney) Equal(other TaxedMoney) bool {
	return t.Net.Equal(other.Net) && t.Gross.Equal(other.Gross)
}

func (t TaxedMoney) String() string {
	return "net=" + t.Net.String() + " gross=" + t.Gross.String()
}

func (t TaxedMoney) baseCurrency() string { return t.Net.Currency }
