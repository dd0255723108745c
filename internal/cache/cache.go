package cache

import (
	"context"
	"time"
)

// Cache stores JSON-encodable values under string keys with an expiry.
type Cache interface {
	// Get decodes the value stored under key into dest. It reports false on a miss.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
