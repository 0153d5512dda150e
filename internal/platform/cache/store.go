// Package cache provides the key/value backends used for rate caching.
package cache

import (
	"context"
	"time"
)

// Store is a byte-oriented key/value store with per-entry expiry.
// A missing key is reported as ok=false with a nil error.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	TTL(ctx context.Context, key string) (time.Duration, error)
}
