package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/rankstack/rank-search/internal/pkg/errors"
	"github.com/rankstack/rank-search/internal/pkg/hash"
)

// RedisCache stores values in Redis so cached results survive restarts
// and are shared between instances.
type RedisCache struct {
	client  *redis.Client
	prefix  string
	ttl     time.Duration
	metrics Metrics
}

// NewRedisCache connects to Redis at url and verifies the connection.
// defaultTTL applies when Set is called with ttl 0.
func NewRedisCache(url, prefix string, defaultTTL time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageError, "invalid redis url", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUnavailable, "redis connection failed", err)
	}

	if prefix == "" {
		prefix = "rank:cache"
	}
	return &RedisCache{
		client: client,
		prefix: prefix,
		ttl:    defaultTTL,
	}, nil
}

// SetMetrics sets the metrics recorder.
func (c *RedisCache) SetMetrics(m Metrics) {
	c.metrics = m
}

func (c *RedisCache) key(key string) string {
	return fmt.Sprintf("%s:%s", c.prefix, hash.SHA256String(key))
}

// Get returns the cached value for key, or false when absent.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err == redis.Nil {
		if c.metrics != nil {
			c.metrics.RecordCacheMiss("redis")
		}
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperrors.Wrap(apperrors.CodeStorageError, "redis get failed", err)
	}
	if c.metrics != nil {
		c.metrics.RecordCacheHit("redis")
	}
	return value, true, nil
}

// Set stores value under key. ttl 0 uses the cache's default TTL.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}
	if err := c.client.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		return apperrors.Wrap(apperrors.CodeStorageError, "redis set failed", err)
	}
	return nil
}

// Delete removes a key.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return apperrors.Wrap(apperrors.CodeStorageError, "redis delete failed", err)
	}
	return nil
}

// Clear removes all entries under the cache prefix. It scans rather
// than flushing so other keys in the database are untouched.
func (c *RedisCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return apperrors.Wrap(apperrors.CodeStorageError, "redis delete failed", err)
		}
	}
	if err := iter.Err(); err != nil {
		return apperrors.Wrap(apperrors.CodeStorageError, "redis scan failed", err)
	}
	return nil
}

// Close closes the underlying Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
