package taxjar

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// RateDetail is a labelled rate. Rate marshals as a decimal string so
// upstream floats such as 0.0827 are stored without drift.
type RateDetail struct {
	Label string          `json:"label"`
	Rate  decimal.Decimal `json:"rate"`
}

// RateSummary is one entry of the summary_rates endpoint.
type RateSummary struct {
	CountryCode string      `json:"country_code"`
	Country     string      `json:"country"`
	RegionCode  *string     `json:"region_code"`
	Region      *string     `json:"region"`
	MinimumRate *RateDetail `json:"minimum_rate,omitempty"`
	AverageRate *RateDetail `json:"average_rate,omitempty"`
}

// TaxRecord is the persisted row for one (country, region) pair.
type TaxRecord struct {
	ID          int64       `json:"id"`
	CountryCode string      `json:"country_code"`
	RegionCode  *string     `json:"region_code"`
	Data        RateSummary `json:"data"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Category is a product tax category offered by the API.
type Category struct {
	Name           string `json:"name"`
	ProductTaxCode string `json:"product_tax_code"`
	Description    string `json:"description"`
}

// TaxCategorySet is the singleton row holding the category list.
type TaxCategorySet struct {
	ID        int16      `json:"id"`
	Types     []Category `json:"types"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CategorySetID identifies the only category row.
const CategorySetID int16 = 1

// AddressRate is the nested rate object returned for a postal code.
type AddressRate struct {
	Zip                  string              `json:"zip"`
	Country              string              `json:"country"`
	CountryRate          decimal.Decimal     `json:"country_rate"`
	State                string              `json:"state"`
	StateRate            decimal.Decimal     `json:"state_rate"`
	County               string              `json:"county"`
	CountyRate           decimal.Decimal     `json:"county_rate"`
	City                 string              `json:"city"`
	CityRate             decimal.Decimal     `json:"city_rate"`
	CombinedDistrictRate decimal.Decimal     `json:"combined_district_rate"`
	CombinedRate         decimal.Decimal     `json:"combined_rate"`
	FreightTaxable       bool                `json:"freight_taxable"`
	Name                 string              `json:"name,omitempty"`
	StandardRate         decimal.NullDecimal `json:"standard_rate"`
	ReducedRate          decimal.NullDecimal `json:"reduced_rate"`
}

// OrderTax is the tax object returned for an order calculation.
type OrderTax struct {
	OrderTotalAmount decimal.Decimal `json:"order_total_amount"`
	Shipping         decimal.Decimal `json:"shipping"`
	TaxableAmount    decimal.Decimal `json:"taxable_amount"`
	AmountToCollect  decimal.Decimal `json:"amount_to_collect"`
	Rate             decimal.Decimal `json:"rate"`
	HasNexus         bool            `json:"has_nexus"`
	FreightTaxable   bool            `json:"freight_taxable"`
	TaxSource        string          `json:"tax_source,omitempty"`
	Breakdown        json.RawMessage `json:"breakdown,omitempty"`
}

// Envelope carries the top-level error fields every response may contain.
type Envelope struct {
	Error  json.RawMessage `json:"error,omitempty"`
	Detail string          `json:"detail,omitempty"`
}

// HasError reports whether the error field is present and non-empty.
// null, "", false, 0, {} and [] all count as empty.
func (e Envelope) HasError() bool {
	raw := bytes.TrimSpace(e.Error)
	if len(raw) == 0 {
		return false
	}
	switch string(raw) {
	case "null", `""`, "false", "0", "{}", "[]":
		return false
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err == nil {
		switch compact.String() {
		case "{}", "[]":
			return false
		}
	}
	return true
}

// SummaryRatesResponse is the body of GET summary_rates.
type SummaryRatesResponse struct {
	Envelope
	SummaryRates []RateSummary `json:"summary_rates"`
}

// CategoriesResponse is the body of GET categories.
type CategoriesResponse struct {
	Envelope
	Categories []Category `json:"categories"`
}

// AddressRateResponse is the body of GET rates/{postal_code}.
type AddressRateResponse struct {
	Envelope
	Rate *AddressRate `json:"rate"`
}

// OrderTaxResponse is the body of POST taxes.
type OrderTaxResponse struct {
	Envelope
	Tax *OrderTax `json:"tax"`
}
