// Package cache provides query result caching with a memory LRU and a
// Redis backend behind a common interface.
package cache

import (
	"context"
	"time"
)

// Metrics is the interface for recording cache metrics, decoupling the
// cache from the metrics package.
type Metrics interface {
	RecordCacheHit(cacheType string)
	RecordCacheMiss(cacheType string)
	UpdateCacheSize(cacheType string, size int)
}

// Cache stores serialized query results under string keys.
type Cache interface {
	// Get returns the cached value, or false when absent or expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. ttl 0 means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key.
	Delete(ctx context.Context, key string) error

	// Clear removes all entries.
	Clear(ctx context.Context) error
}
