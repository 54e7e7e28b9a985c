package metrics

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStorage provides Redis-backed persistence for metric history.
// Data points live in sorted sets keyed by metric name with the
// timestamp as score.
type RedisStorage struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStorage creates a Redis storage backend. Returns an error if
// the connection cannot be established.
func NewRedisStorage(url string) (*RedisStorage, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &RedisStorage{
		client: client,
		prefix: "rank:metrics:",
		ttl:    24 * time.Hour,
	}, nil
}

// SaveDataPoint saves a single data point and expires points older than
// the retention window.
func (rs *RedisStorage) SaveDataPoint(ctx context.Context, metric string, dp DataPoint) error {
	key := rs.prefix + metric

	pipe := rs.client.Pipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(dp.Timestamp.Unix()),
		Member: fmt.Sprintf("%d:%.4f", dp.Timestamp.Unix(), dp.Value),
	})
	minScore := time.Now().Add(-rs.ttl).Unix()
	pipe.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("%d", minScore))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("saving data point: %w", err)
	}
	return nil
}

// LoadHistory loads data points recorded at or after the given time.
func (rs *RedisStorage) LoadHistory(ctx context.Context, metric string, since time.Time) ([]DataPoint, error) {
	key := rs.prefix + metric

	results, err := rs.client.ZRangeByScoreWithScores(ctx, key, &redis.ZRangeBy{
		Min: fmt.Sprintf("%d", since.Unix()),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	points := make([]DataPoint, 0, len(results))
	for _, z := range results {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		// Member format is "<unix>:<value>"; the timestamp part keeps
		// identical values at different times distinct in the set.
		var unix int64
		var value float64
		if _, err := fmt.Sscanf(member, "%d:%f", &unix, &value); err != nil {
			// Legacy plain-value members.
			v, perr := strconv.ParseFloat(member, 64)
			if perr != nil {
				continue
			}
			unix, value = int64(z.Score), v
		}

		points = append(points, DataPoint{
			Timestamp: time.Unix(unix, 0),
			Value:     value,
		})
	}

	return points, nil
}

// MetricNames returns all metric names stored in Redis.
func (rs *RedisStorage) MetricNames(ctx context.Context) ([]string, error) {
	keys, err := rs.client.Keys(ctx, rs.prefix+"*").Result()
	if err != nil {
		return nil, fmt.Errorf("getting metric names: %w", err)
	}

	names := make([]string, len(keys))
	for i, key := range keys {
		names[i] = key[len(rs.prefix):]
	}
	return names, nil
}

// DeleteMetric deletes all data for a specific metric.
func (rs *RedisStorage) DeleteMetric(ctx context.Context, metric string) error {
	if err := rs.client.Del(ctx, rs.prefix+metric).Err(); err != nil {
		return fmt.Errorf("deleting metric: %w", err)
	}
	return nil
}

// SetTTL sets the retention window for data points.
func (rs *RedisStorage) SetTTL(ttl time.Duration) {
	rs.ttl = ttl
}

// Close closes the Redis connection.
func (rs *RedisStorage) Close() error {
	return rs.client.Close()
}
