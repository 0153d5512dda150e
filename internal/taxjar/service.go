// Package taxjar syncs TaxJar summary rates and product categories into
// Postgres, serves them through a read-through cache, and resolves
// address- and order-level taxes against the live API.
package taxjar

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/taxjar/internal/prices"
)

const (
	// DefaultRegionCachePrefix namespaces country/region summaries.
	DefaultRegionCachePrefix = "taxjar_summary_rates"
	// DefaultAddressCachePrefix namespaces postal-code lookups.
	DefaultAddressCachePrefix = "taxjar_rates"
)

// Remote is the subset of the API client used by the service.
type Remote interface {
	FetchCategories(ctx context.Context) (CategoriesResponse, error)
	FetchTaxRates(ctx context.Context) (SummaryRatesResponse, error)
	FetchTaxForAddress(ctx context.Context, postalCode string, query AddressQuery) (AddressRateResponse, error)
	FetchTaxForOrder(ctx context.Context, order OrderRequest) (OrderTaxResponse, error)
}

// ServiceConfig carries the overridable settings.
type ServiceConfig struct {
	RegionCachePrefix     string
	AddressCachePrefix    string
	DefaultProductTaxCode string
}

// Service implements rate lookups, category storage and tax application.
type Service struct {
	remote   Remote
	repo     Repository
	cache    *Cache
	cfg      ServiceConfig
	validate *validator.Validate
	lookups  singleflight.Group
	clock    func() time.Time
}

// NewService wires the service. A nil cache disables caching.
func NewService(remote Remote, repo Repository, cache *Cache, cfg ServiceConfig) *Service {
	if cfg.RegionCachePrefix == "" {
		cfg.RegionCachePrefix = DefaultRegionCachePrefix
	}
	if cfg.AddressCachePrefix == "" {
		cfg.AddressCachePrefix = DefaultAddressCachePrefix
	}
	return &Service{
		remote:   remote,
		repo:     repo,
		cache:    cache,
		cfg:      cfg,
		validate: newValidator(),
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// CreateObjectsFromJSON validates a summary_rates payload, upserts one record
// per (country, region) and refreshes the matching cache entries. Re-running
// with the same payload leaves the store unchanged.
func (s *Service) CreateObjectsFromJSON(ctx context.Context, payload SummaryRatesResponse) (int, error) {
	if err := ValidateData(payload.Envelope); err != nil {
		return 0, err
	}

	records := make([]TaxRecord, 0, len(payload.SummaryRates))
	for _, rate := range payload.SummaryRates {
		rate.RegionCode = normalizeRegion(rate.RegionCode)
		if strings.TrimSpace(rate.CountryCode) == "" {
			return 0, errors.New("taxjar: summary rate without country code")
		}
		records = append(records, TaxRecord{
			CountryCode: rate.CountryCode,
			RegionCode:  rate.RegionCode,
			Data:        rate,
		})
	}
	if err := s.repo.UpsertTaxes(ctx, records); err != nil {
		return 0, err
	}

	for _, rec := range records {
		key := RegionKey(s.cfg.RegionCachePrefix, rec.CountryCode, rec.RegionCode)
		if err := s.cache.Save(ctx, key, rec.Data); err != nil {
			return 0, errors.Wrapf(err, "taxjar: cache %s", key)
		}
	}
	return len(records), nil
}

// GetTaxRatesForRegion returns the summary for a country and optional region.
// A region without a stored record yields (nil, nil).
func (s *Service) GetTaxRatesForRegion(ctx context.Context, countryCode string, regionCode *string, forceRefresh bool) (*RateSummary, error) {
	regionCode = normalizeRegion(regionCode)
	key := RegionKey(s.cfg.RegionCachePrefix, countryCode, regionCode)

	var summary RateSummary
	err := s.cache.FetchJSON(ctx, key, forceRefresh, &summary, func(ctx context.Context) (any, error) {
		rec, err := s.repo.GetTax(ctx, countryCode, regionCode)
		if err != nil {
			return nil, err
		}
		return rec.Data, nil
	})
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// ListTaxRates returns stored summaries, optionally for one country.
func (s *Service) ListTaxRates(ctx context.Context, countryCode string) ([]RateSummary, error) {
	records, err := s.repo.ListTaxes(ctx, countryCode)
	if err != nil {
		return nil, err
	}
	return lo.Map(records, func(rec TaxRecord, _ int) RateSummary { return rec.Data }), nil
}

// TaxRate returns the average rate of a summary. Per-category rates are not
// offered by the summary endpoint, so the average applies to every category.
func TaxRate(summary *RateSummary) (decimal.Decimal, bool) {
	if summary == nil || summary.AverageRate == nil {
		return decimal.Zero, false
	}
	return summary.AverageRate.Rate, true
}

// TaxForRate builds a RateApplier from a summary's average rate.
func TaxForRate(summary *RateSummary) (prices.RateApplier, bool) {
	rate, ok := TaxRate(summary)
	if !ok {
		return prices.RateApplier{}, false
	}
	return prices.RateApplier{Rate: rate}, true
}

// SaveTaxCategories validates a categories payload and overwrites the singleton.
func (s *Service) SaveTaxCategories(ctx context.Context, payload CategoriesResponse) (int, error) {
	if err := ValidateData(payload.Envelope); err != nil {
		return 0, err
	}
	if err := s.repo.SaveCategories(ctx, payload.Categories); err != nil {
		return 0, err
	}
	return len(payload.Categories), nil
}

// GetTaxCategories returns the stored categories, or an empty list before the first refresh.
func (s *Service) GetTaxCategories(ctx context.Context) ([]Category, error) {
	set, err := s.repo.GetCategories(ctx)
	if errors.Is(err, ErrNotFound) {
		return []Category{}, nil
	}
	if err != nil {
		return nil, err
	}
	if set.Types == nil {
		return []Category{}, nil
	}
	return set.Types, nil
}

func normalizeRegion(region *string) *string {
	if region == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*region)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func (s *Service) now() time.Time {
	if s.clock != nil {
		return s.clock()
	}
	return time.Now().UTC()
}

// WithClock overrides the internal clock for deterministic tests.
func (s *Service) WithClock(clock func() time.Time) {
	if clock != nil {
		s.clock = clock
	}
}
