package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// MemoryCache is a bounded in-process cache backed by an expiring LRU.
// Payloads are stored as JSON so callers see the same copy semantics as with
// RedisCache. Entries never outlive the cache-wide ttl given at construction.
type MemoryCache struct {
	entries *expirable.LRU[string, memoryEntry]
	now     func() time.Time
}

// NewMemoryCache creates a cache holding at most capacity entries. A
// non-positive maxTTL leaves expiry to the per-entry ttl passed to Set.
func NewMemoryCache(capacity int, maxTTL time.Duration) *MemoryCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &MemoryCache{
		entries: expirable.NewLRU[string, memoryEntry](capacity, nil, maxTTL),
		now:     time.Now,
	}
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	entry, ok := c.entries.Get(key)
	if !ok {
		return false, nil
	}
	if !entry.expiresAt.IsZero() && !c.now().Before(entry.expiresAt) {
		c.entries.Remove(key)
		return false, nil
	}

	if err := json.Unmarshal(entry.payload, dest); err != nil {
		return false, err
	}
	return true, nil
}

// Set implements Cache. A non-positive ttl keeps the entry until it is evicted.
func (c *MemoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}

	entry := memoryEntry{payload: payload}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}
	c.entries.Add(key, entry)
	return nil
}

// Delete implements Cache.
func (c *MemoryCache) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		c.entries.Remove(key)
	}
	return nil
}

// Len returns the number of stored entries.
func (c *MemoryCache) Len() int {
	return c.entries.Len()
}
