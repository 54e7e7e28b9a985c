package metrics

import (
	"context"
	"sync"
	"time"
)

// DataPoint is a single time-series data point.
type DataPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// MetricHistory stores time-series data with bucketed averaging and
// bounded retention. With a Redis backend, finalized buckets are also
// persisted so history survives restarts.
type MetricHistory struct {
	mu          sync.Mutex
	name        string
	points      []DataPoint
	bucketSize  time.Duration
	maxPoints   int
	accumulator float64
	count       int64
	lastBucket  time.Time
	storage     *RedisStorage
}

// NewMetricHistory creates a metric history. bucketSize is the duration
// averaged into each data point; maxPoints bounds in-memory retention.
// storage may be nil for in-memory only.
func NewMetricHistory(name string, bucketSize time.Duration, maxPoints int, storage *RedisStorage) *MetricHistory {
	h := &MetricHistory{
		name:       name,
		points:     make([]DataPoint, 0, maxPoints),
		bucketSize: bucketSize,
		maxPoints:  maxPoints,
		lastBucket: time.Now().Truncate(bucketSize),
		storage:    storage,
	}

	if storage != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		since := time.Now().Add(-time.Duration(maxPoints) * bucketSize)
		if points, err := storage.LoadHistory(ctx, name, since); err == nil && len(points) > 0 {
			h.points = points
		}
	}

	return h
}

// Record adds a value to the current bucket.
func (h *MetricHistory) Record(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	current := time.Now().Truncate(h.bucketSize)
	if current.After(h.lastBucket) {
		h.finalizeBucket()
		h.lastBucket = current
	}

	h.accumulator += value
	h.count++
}

// finalizeBucket averages the current bucket into a data point.
// Caller holds h.mu.
func (h *MetricHistory) finalizeBucket() {
	if h.count == 0 {
		return
	}

	dp := DataPoint{
		Timestamp: h.lastBucket,
		Value:     h.accumulator / float64(h.count),
	}
	h.points = append(h.points, dp)
	if len(h.points) > h.maxPoints {
		h.points = h.points[len(h.points)-h.maxPoints:]
	}

	h.accumulator = 0
	h.count = 0

	if h.storage != nil {
		// Best effort, history persistence never blocks recording.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = h.storage.SaveDataPoint(ctx, h.name, dp)
		}()
	}
}

// Since returns data points recorded at or after the given time. With a
// Redis backend the persisted history is preferred.
func (h *MetricHistory) Since(ctx context.Context, since time.Time) ([]DataPoint, error) {
	if h.storage != nil {
		return h.storage.LoadHistory(ctx, h.name, since)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	result := make([]DataPoint, 0, len(h.points))
	for _, dp := range h.points {
		if !dp.Timestamp.Before(since) {
			result = append(result, dp)
		}
	}
	return result, nil
}
