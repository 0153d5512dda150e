package taxjar

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/odyssey-erp/taxjar/internal/platform/cache"
)

// DefaultCacheTTL matches the upstream default of one hour.
const DefaultCacheTTL = time.Hour

// Cache stores JSON projections of rates with a fixed TTL.
type Cache struct {
	store cache.Store
	ttl   time.Duration
}

// NewCache instantiates the cache helper. A nil store disables caching.
func NewCache(store cache.Store, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{store: store, ttl: ttl}
}

// TTL returns the expiry applied to every entry.
func (c *Cache) TTL() time.Duration {
	if c == nil {
		return 0
	}
	return c.ttl
}

// Load decodes the cached value into dest. ok is false on a miss.
func (c *Cache) Load(ctx context.Context, key string, dest any) (bool, error) {
	if c == nil || c.store == nil {
		return false, nil
	}
	payload, ok, err := c.store.Get(ctx, key)
	if err != nil {
		return false, errors.Wrapf(err, "taxjar: cache get %s", key)
	}
	if !ok {
		return false, nil
	}
	if string(payload) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return false, errors.Wrapf(err, "taxjar: decode cached %s", key)
	}
	return true, nil
}

// Save encodes value and stores it with the configured TTL.
func (c *Cache) Save(ctx context.Context, key string, value any) error {
	if c == nil || c.store == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "taxjar: encode cache %s", key)
	}
	return errors.Wrapf(c.store.Set(ctx, key, raw, c.ttl), "taxjar: cache set %s", key)
}

// Delete drops a key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if c == nil || c.store == nil {
		return nil
	}
	return errors.Wrapf(c.store.Delete(ctx, key), "taxjar: cache delete %s", key)
}

// FetchJSON loads a cached value or populates it using the loader. force skips the read.
func (c *Cache) FetchJSON(ctx context.Context, key string, force bool, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("taxjar: cache loader required")
	}
	if !force {
		ok, err := c.Load(ctx, key, dest)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "taxjar: encode cache %s", key)
	}
	if c != nil && c.store != nil {
		if err := c.store.Set(ctx, key, raw, c.ttl); err != nil {
			return errors.Wrapf(err, "taxjar: cache set %s", key)
		}
	}
	return json.Unmarshal(raw, dest)
}

// RegionKey builds the cache key for a country/region summary.
func RegionKey(prefix, countryCode string, regionCode *string) string {
	key := prefix + countryCode
	if regionCode != nil {
		key += *regionCode
	}
	return key
}

// AddressKey builds the cache key for an address lookup. Spaces become
// underscores and the result is lower-cased.
func AddressKey(prefix string, address AddressLookup) string {
	key := prefix + address.PostalCode + address.CountryCode + address.RegionCode + address.City + address.Street
	return strings.ToLower(strings.ReplaceAll(key, " ", "_"))
}
