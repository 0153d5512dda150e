package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// DefaultCleanupInterval is how often expired items are purged from memory.
const DefaultCleanupInterval = 10 * time.Minute

// MemoryStore is an in-process Store used when no Redis address is configured.
type MemoryStore struct {
	cache *gocache.Cache
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cache: gocache.New(gocache.NoExpiration, DefaultCleanupInterval)}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, ok := s.cache.Get(key)
	if !ok {
		return nil, false, nil
	}
	payload, ok := value.([]byte)
	if !ok {
		return nil, false, nil
	}
	return payload, true, nil
}

// Set implements Store. A non-positive ttl keeps the entry until deleted.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	s.cache.Set(key, stored, ttl)
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}

// TTL implements Store.
func (s *MemoryStore) TTL(_ context.Context, key string) (time.Duration, error) {
	_, expiresAt, ok := s.cache.GetWithExpiration(key)
	if !ok || expiresAt.IsZero() {
		return 0, nil
	}
	return time.Until(expiresAt), nil
}

// Flush drops every entry.
func (s *MemoryStore) Flush() {
	s.cache.Flush()
}
