package taxjarhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/taxjar/internal/prices"
	"github.com/odyssey-erp/taxjar/internal/taxjar"
)

type stubService struct {
	summary    *taxjar.RateSummary
	summaries  []taxjar.RateSummary
	categories []taxjar.Category
	address    taxjar.AddressRate
	order      taxjar.OrderTaxResult
	refresh    taxjar.RefreshResult
	err        error

	lastCountry string
	lastRegion  *string
	lastForce   bool
	lastAddress taxjar.AddressLookup
	lastOrder   taxjar.OrderParams
	refreshes   int
}

func (s *stubService) GetTaxRatesForRegion(ctx context.Context, countryCode string, regionCode *string, forceRefresh bool) (*taxjar.RateSummary, error) {
	s.lastCountry, s.lastRegion, s.lastForce = countryCode, regionCode, forceRefresh
	return s.summary, s.err
}

func (s *stubService) ListTaxRates(ctx context.Context, countryCode string) ([]taxjar.RateSummary, error) {
	s.lastCountry = countryCode
	return s.summaries, s.err
}

func (s *stubService) GetTaxCategories(ctx context.Context) ([]taxjar.Category, error) {
	return s.categories, s.err
}

func (s *stubService) AddressRate(ctx context.Context, address taxjar.AddressLookup, forceRefresh bool) (taxjar.AddressRate, error) {
	s.lastAddress, s.lastForce = address, forceRefresh
	return s.address, s.err
}

func (s *stubService) GetTaxesForOrder(ctx context.Context, params taxjar.OrderParams) (taxjar.OrderTaxResult, error) {
	s.lastOrder = params
	return s.order, s.err
}

func (s *stubService) Refresh(ctx context.Context) (taxjar.RefreshResult, error) {
	s.refreshes++
	return s.refresh, s.err
}

type stubEnqueuer struct {
	id  string
	err error
}

func (s stubEnqueuer) EnqueueTaxRefresh(ctx context.Context) (string, error) {
	return s.id, s.err
}

func newRouter(svc *stubService, enq Enqueuer) http.Handler {
	r := chi.NewRouter()
	NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc, enq).MountRoutes(r)
	return r
}

func serve(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestRegionRate(t *testing.T) {
	region := "CA"
	svc := &stubService{summary: &taxjar.RateSummary{
		CountryCode: "US",
		RegionCode:  &region,
		AverageRate: &taxjar.RateDetail{Label: "Tax", Rate: decimal.RequireFromString("0.0827")},
	}}
	rec := serve(t, newRouter(svc, nil), http.MethodGet, "/api/taxes/rates/us/ca?refresh=true", "")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "US", svc.lastCountry)
	require.Equal(t, "CA", *svc.lastRegion)
	require.True(t, svc.lastForce)
	body := decodeBody(t, rec)
	require.Equal(t, "0.0827", body["rate"])
}

func TestRegionRateCountryOnlyAndMissing(t *testing.T) {
	svc := &stubService{}
	rec := serve(t, newRouter(svc, nil), http.MethodGet, "/api/taxes/rates/UK", "")

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Nil(t, svc.lastRegion)
	require.Contains(t, rec.Body.String(), "no rates stored for UK")
}

func TestListRates(t *testing.T) {
	svc := &stubService{}
	rec := serve(t, newRouter(svc, nil), http.MethodGet, "/api/taxes/rates?country=us", "")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "US", svc.lastCountry)
	require.JSONEq(t, `{"summary_rates":[]}`, rec.Body.String())
}

func TestCategories(t *testing.T) {
	svc := &stubService{categories: []taxjar.Category{{Name: "Clothing", ProductTaxCode: "20010"}}}
	rec := serve(t, newRouter(svc, nil), http.MethodGet, "/api/taxes/categories", "")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"product_tax_code":"20010"`)
}

func TestAddress(t *testing.T) {
	svc := &stubService{address: taxjar.AddressRate{Zip: "05495-2086", CombinedRate: decimal.RequireFromString("0.07"), FreightTaxable: true}}
	rec := serve(t, newRouter(svc, nil), http.MethodGet, "/api/taxes/address/05495-2086?country=US&state=VT&city=Williston", "")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, taxjar.AddressLookup{PostalCode: "05495-2086", CountryCode: "US", RegionCode: "VT", City: "Williston"}, svc.lastAddress)
	body := decodeBody(t, rec)
	require.Equal(t, "0.07", body["combined_rate"])
	require.Equal(t, true, body["freight_taxable"])
}

func TestAddressAcceptsRegionAlias(t *testing.T) {
	svc := &stubService{}
	rec := serve(t, newRouter(svc, nil), http.MethodGet, "/api/taxes/address/05495-2086?country=US&region=VT", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "VT", svc.lastAddress.RegionCode)

	rec = serve(t, newRouter(svc, nil), http.MethodGet, "/api/taxes/address/05495-2086?country=US&state=NY&region=VT", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "NY", svc.lastAddress.RegionCode)
}

func TestOrderAppliesTax(t *testing.T) {
	svc := &stubService{order: taxjar.OrderTaxResult{
		Applier: prices.AmountApplier{Amount: decimal.RequireFromString("1.35"), Currency: "USD"},
		Tax:     taxjar.OrderTax{AmountToCollect: decimal.RequireFromString("1.35")},
	}}
	body := `{
		"country_code": "US",
		"postal_code": "07446",
		"region_code": "NJ",
		"shipping": {"amount": "1.5", "currency": "USD"},
		"amount": {"amount": "15", "currency": "USD"},
		"apply": {"base": {"amount": "15", "currency": "USD"}}
	}`
	rec := serve(t, newRouter(svc, nil), http.MethodPost, "/api/taxes/order", body)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "07446", svc.lastOrder.PostalCode)
	require.Equal(t, "15", svc.lastOrder.Amount.Amount.String())

	var resp struct {
		Taxed prices.TaxedMoney `json:"taxed"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Taxed.Gross.Equal(prices.MustParseMoney("16.35", "USD")))
}

func TestOrderRejectsUnknownFields(t *testing.T) {
	svc := &stubService{}
	rec := serve(t, newRouter(svc, nil), http.MethodPost, "/api/taxes/order", `{"country_code":"US","bogus":1}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{taxjar.ErrAmountOrLineItemsRequired, http.StatusBadRequest},
		{taxjar.ErrPostalCodeRequired, http.StatusBadRequest},
		{prices.ErrCurrencyMismatch, http.StatusBadRequest},
		{prices.ErrInvalidRate, http.StatusBadRequest},
		{taxjar.ErrNotFound, http.StatusNotFound},
		{&taxjar.TransportError{Method: "POST", Path: "taxes", StatusCode: 500}, http.StatusBadGateway},
		{taxjar.ValidateData(taxjar.Envelope{Error: json.RawMessage(`"Unauthorized"`)}), http.StatusBadGateway},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		svc := &stubService{err: tc.err}
		rec := serve(t, newRouter(svc, nil), http.MethodGet, "/api/taxes/address/10001", "")
		require.Equal(t, tc.status, rec.Code, tc.err.Error())
	}
}

func TestUpstreamFailureLogsErrorDetail(t *testing.T) {
	var logs bytes.Buffer
	svc := &stubService{err: taxjar.ValidateData(taxjar.Envelope{
		Error:  json.RawMessage(`"Unauthorized"`),
		Detail: "Not authorized for route 'GET /v2/rates'",
	})}
	r := chi.NewRouter()
	NewHandler(slog.New(slog.NewTextHandler(&logs, nil)), svc, nil).MountRoutes(r)

	rec := serve(t, r, http.MethodGet, "/api/taxes/categories", "")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Contains(t, logs.String(), "taxjar request failed")
	require.Contains(t, logs.String(), "Not authorized for route")
}

func TestRefreshInline(t *testing.T) {
	svc := &stubService{refresh: taxjar.RefreshResult{RunID: uuid.New(), Rates: 3, Categories: 17}}
	rec := serve(t, newRouter(svc, nil), http.MethodPost, "/api/taxes/refresh", "")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, svc.refreshes)
	body := decodeBody(t, rec)
	require.EqualValues(t, 17, body["categories"])
}

func TestRefreshEnqueued(t *testing.T) {
	svc := &stubService{}
	rec := serve(t, newRouter(svc, stubEnqueuer{id: "task-1"}), http.MethodPost, "/api/taxes/refresh", "")

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Zero(t, svc.refreshes)
	require.JSONEq(t, `{"task_id":"task-1"}`, rec.Body.String())
}
