package cache

import (
	"context"
	"sync"
	"time"

	"github.com/rankstack/rank-search/internal/pkg/hash"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache is an in-memory LRU cache. Keys are hashed before storage
// so arbitrarily long query strings stay bounded.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	order   []string
	maxSize int
	metrics Metrics
	now     func() time.Time
}

// NewMemoryCache creates a memory cache holding at most maxSize entries.
func NewMemoryCache(maxSize int) *MemoryCache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		maxSize: maxSize,
		now:     time.Now,
	}
}

// SetMetrics sets the metrics recorder.
func (c *MemoryCache) SetMetrics(m Metrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = m
}

// Get returns the cached value for key, or false when absent or expired.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	h := hash.SHA256String(key)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[h]
	if !ok {
		if c.metrics != nil {
			c.metrics.RecordCacheMiss("memory")
		}
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && c.now().After(entry.expiresAt) {
		delete(c.entries, h)
		c.removeFromOrder(h)
		if c.metrics != nil {
			c.metrics.RecordCacheMiss("memory")
			c.metrics.UpdateCacheSize("memory", len(c.entries))
		}
		return nil, false, nil
	}

	c.moveToEnd(h)
	if c.metrics != nil {
		c.metrics.RecordCacheHit("memory")
	}

	value := make([]byte, len(entry.value))
	copy(value, entry.value)
	return value, true, nil
}

// Set stores value under key, evicting the least recently used entries
// when the cache is full. ttl 0 means no expiry.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	h := hash.SHA256String(key)

	stored := make([]byte, len(value))
	copy(stored, value)

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[h]; exists {
		c.entries[h] = memoryEntry{value: stored, expiresAt: expiresAt}
		c.moveToEnd(h)
		return nil
	}

	for len(c.entries) >= c.maxSize && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[h] = memoryEntry{value: stored, expiresAt: expiresAt}
	c.order = append(c.order, h)

	if c.metrics != nil {
		c.metrics.UpdateCacheSize("memory", len(c.entries))
	}
	return nil
}

// Delete removes a key.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	h := hash.SHA256String(key)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[h]; !ok {
		return nil
	}
	delete(c.entries, h)
	c.removeFromOrder(h)
	if c.metrics != nil {
		c.metrics.UpdateCacheSize("memory", len(c.entries))
	}
	return nil
}

// Clear removes all entries.
func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]memoryEntry)
	c.order = c.order[:0]
	if c.metrics != nil {
		c.metrics.UpdateCacheSize("memory", 0)
	}
	return nil
}

// Size returns the number of cached entries.
func (c *MemoryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns cache statistics.
func (c *MemoryCache) Stats() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return map[string]any{
		"size":     len(c.entries),
		"max_size": c.maxSize,
	}
}

func (c *MemoryCache) moveToEnd(key string) {
	c.removeFromOrder(key)
	c.order = append(c.order, key)
}

func (c *MemoryCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
