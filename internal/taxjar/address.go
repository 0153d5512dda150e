package taxjar

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/odyssey-erp/taxjar/internal/prices"
)

// ErrPostalCodeRequired is returned by address lookups without a postal code.
var ErrPostalCodeRequired = errors.Wrap(ErrInvalidOrder, "postal code is required")

// AddressLookup identifies a destination for rates/{postal_code}.
type AddressLookup struct {
	PostalCode  string `json:"postal_code"`
	CountryCode string `json:"country_code,omitempty"`
	RegionCode  string `json:"region_code,omitempty"`
	City        string `json:"city,omitempty"`
	Street      string `json:"street,omitempty"`
}

func (a AddressLookup) query() AddressQuery {
	return AddressQuery{
		Country: a.CountryCode,
		State:   a.RegionCode,
		City:    a.City,
		Street:  a.Street,
	}
}

// GetTaxForAddress resolves the combined rate for an address and returns it
// as a RateApplier.
func (s *Service) GetTaxForAddress(ctx context.Context, address AddressLookup, forceRefresh bool) (prices.RateApplier, error) {
	rate, err := s.AddressRate(ctx, address, forceRefresh)
	if err != nil {
		return prices.RateApplier{}, err
	}
	return prices.RateApplier{Rate: rate.CombinedRate}, nil
}

// IsShippingTaxableForAddress reports the freight_taxable flag for an address.
// It shares the cache entry with GetTaxForAddress.
func (s *Service) IsShippingTaxableForAddress(ctx context.Context, address AddressLookup, forceRefresh bool) (bool, error) {
	rate, err := s.AddressRate(ctx, address, forceRefresh)
	if err != nil {
		return false, err
	}
	return rate.FreightTaxable, nil
}

// AddressRate returns the cached rate object for an address, fetching it on a
// miss or when forceRefresh is set. Concurrent misses for one key share a
// single upstream call.
func (s *Service) AddressRate(ctx context.Context, address AddressLookup, forceRefresh bool) (AddressRate, error) {
	address.PostalCode = strings.TrimSpace(address.PostalCode)
	if address.PostalCode == "" {
		return AddressRate{}, ErrPostalCodeRequired
	}
	key := AddressKey(s.cfg.AddressCachePrefix, address)

	if !forceRefresh {
		var cached AddressRate
		ok, err := s.cache.Load(ctx, key, &cached)
		if err != nil {
			return AddressRate{}, errors.Wrapf(err, "taxjar: cache %s", key)
		}
		if ok {
			return cached, nil
		}
	}

	// The shared call outlives any single caller; the HTTP client timeout
	// still bounds it.
	fetchCtx := context.WithoutCancel(ctx)
	v, err, _ := s.lookups.Do(key, func() (any, error) {
		resp, err := s.remote.FetchTaxForAddress(fetchCtx, address.PostalCode, address.query())
		if err != nil {
			return nil, err
		}
		if err := ValidateData(resp.Envelope); err != nil {
			return nil, err
		}
		if resp.Rate == nil {
			return nil, errors.Newf("taxjar: rates/%s response has no rate", address.PostalCode)
		}
		if err := s.cache.Save(fetchCtx, key, resp.Rate); err != nil {
			return nil, errors.Wrapf(err, "taxjar: cache %s", key)
		}
		return *resp.Rate, nil
	})
	if err != nil {
		return AddressRate{}, err
	}
	return v.(AddressRate), nil
}
