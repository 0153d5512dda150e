package taxjar

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T, name string, dest any) {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, dest))
}

type memRepo struct {
	mu         sync.Mutex
	taxes      map[string]TaxRecord
	categories *TaxCategorySet
	nextID     int64
	getCalls   int
	upsertErr  error
}

func newMemRepo() *memRepo {
	return &memRepo{taxes: map[string]TaxRecord{}}
}

func memKey(country string, region *string) string {
	if region == nil {
		return country + "|"
	}
	return country + "|" + *region
}

func (r *memRepo) GetTax(ctx context.Context, countryCode string, regionCode *string) (TaxRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getCalls++
	rec, ok := r.taxes[memKey(countryCode, regionCode)]
	if !ok {
		return TaxRecord{}, ErrNotFound
	}
	return rec, nil
}

func (r *memRepo) ListTaxes(ctx context.Context, countryCode string) ([]TaxRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []TaxRecord
	for _, rec := range r.taxes {
		if countryCode == "" || rec.CountryCode == countryCode {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return memKey(out[i].CountryCode, out[i].RegionCode) < memKey(out[j].CountryCode, out[j].RegionCode)
	})
	return out, nil
}

func (r *memRepo) CountTaxes(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.taxes), nil
}

func (r *memRepo) UpsertTaxes(ctx context.Context, records []TaxRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upsertErr != nil {
		return r.upsertErr
	}
	for _, rec := range records {
		key := memKey(rec.CountryCode, rec.RegionCode)
		if existing, ok := r.taxes[key]; ok {
			rec.ID = existing.ID
		} else {
			r.nextID++
			rec.ID = r.nextID
		}
		rec.UpdatedAt = time.Now()
		r.taxes[key] = rec
	}
	return nil
}

func (r *memRepo) GetCategories(ctx context.Context) (TaxCategorySet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.categories == nil {
		return TaxCategorySet{}, ErrNotFound
	}
	return *r.categories, nil
}

func (r *memRepo) SaveCategories(ctx context.Context, categories []Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.categories = &TaxCategorySet{ID: CategorySetID, Types: categories, UpdatedAt: time.Now()}
	return nil
}

type stubRemote struct {
	mu sync.Mutex

	rates      SummaryRatesResponse
	categories CategoriesResponse
	address    AddressRateResponse
	order      OrderTaxResponse

	ratesErr      error
	categoriesErr error
	addressErr    error
	orderErr      error

	// addressGate, when set, holds address fetches until closed or until
	// the caller's context is done. addressStarted is signalled on entry.
	addressGate    chan struct{}
	addressStarted chan struct{}

	addressCalls int
	orderCalls   int
	lastPostal   string
	lastQuery    AddressQuery
	lastOrder    OrderRequest
}

func (s *stubRemote) FetchCategories(ctx context.Context) (CategoriesResponse, error) {
	return s.categories, s.categoriesErr
}

func (s *stubRemote) FetchTaxRates(ctx context.Context) (SummaryRatesResponse, error) {
	return s.rates, s.ratesErr
}

func (s *stubRemote) FetchTaxForAddress(ctx context.Context, postalCode string, query AddressQuery) (AddressRateResponse, error) {
	if s.addressGate != nil {
		if s.addressStarted != nil {
			s.addressStarted <- struct{}{}
		}
		select {
		case <-s.addressGate:
		case <-ctx.Done():
			return AddressRateResponse{}, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addressCalls++
	s.lastPostal = postalCode
	s.lastQuery = query
	return s.address, s.addressErr
}

func (s *stubRemote) FetchTaxForOrder(ctx context.Context, order OrderRequest) (OrderTaxResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orderCalls++
	s.lastOrder = order
	return s.order, s.orderErr
}

func newFixtureRemote(t *testing.T) *stubRemote {
	t.Helper()
	remote := &stubRemote{}
	loadFixture(t, "summary_rates.json", &remote.rates)
	loadFixture(t, "categories.json", &remote.categories)
	loadFixture(t, "address_rate.json", &remote.address)
	loadFixture(t, "order_tax.json", &remote.order)
	return remote
}

func strPtr(s string) *string {
	return &s
}
