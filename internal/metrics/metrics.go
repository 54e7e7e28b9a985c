package metrics

import (
	"context"
	"errors"
	"runtime"
	"time"

	apperrors "github.com/rankstack/rank-search/internal/pkg/errors"
	"github.com/rankstack/rank-search/internal/pkg/logger"
)

// Metrics holds all application metrics.
type Metrics struct {
	// Search metrics
	SearchRequests      *Counter
	SearchLatency       *Histogram
	SearchResults       *Histogram
	SearchErrors        *CounterVec   // labels: error_type
	SearchStageDuration *HistogramVec // labels: corpus, stage

	// Index metrics
	IndexedDocuments *Counter
	IndexLatency     *Histogram
	IndexErrors      *CounterVec // labels: error_type
	CorporaTotal     *Gauge
	DocumentsTotal   *GaugeVec // labels: corpus

	// Rerank metrics
	RerankRequests *Counter
	RerankLatency  *Histogram

	// Evaluation metrics
	EvalRuns    *Counter
	EvalLatency *Histogram

	// Cache metrics
	CacheHits   *CounterVec // labels: type
	CacheMisses *CounterVec // labels: type
	CacheSize   *GaugeVec   // labels: type

	// Bus metrics
	BusEventsPublished *CounterVec // labels: topic
	BusErrors          *CounterVec // labels: topic

	// HTTP metrics
	HTTPRequests         *CounterVec   // labels: method, path, status
	HTTPDuration         *HistogramVec // labels: method, path
	HTTPRequestsInFlight *Gauge

	// System metrics
	GoroutineCount *Gauge
	MemoryUsage    *Gauge
	Uptime         *Counter

	// Latency history for charts
	searchHistory *MetricHistory
	indexHistory  *MetricHistory

	redisStorage *RedisStorage
	startTime    time.Time
	stop         chan struct{}
}

// New creates a metrics instance with in-memory storage only.
func New() *Metrics {
	return NewWithConfig("memory", "")
}

// NewWithConfig creates a metrics instance. storage is "memory" or
// "redis"; Redis failures fall back to in-memory with a warning.
func NewWithConfig(storage, redisURL string) *Metrics {
	var redisStorage *RedisStorage
	if storage == "redis" && redisURL != "" {
		rs, err := NewRedisStorage(redisURL)
		if err != nil {
			logger.Default().Warn("metrics redis unavailable, falling back to memory",
				"error", err.Error(),
			)
		} else {
			redisStorage = rs
		}
	}

	m := &Metrics{
		SearchRequests: NewCounter(
			"rank_search_requests_total",
			"Total number of search requests",
			nil,
		),
		SearchLatency: NewHistogram(
			"rank_search_latency_ms",
			"Search request latency in milliseconds",
			[]float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		),
		SearchResults: NewHistogram(
			"rank_search_results",
			"Number of results per search",
			[]float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
		),
		SearchErrors: NewCounterVec(
			"rank_search_errors_total",
			"Total number of search errors",
			[]string{"error_type"},
		),
		SearchStageDuration: NewHistogramVec(
			"rank_search_stage_duration_ms",
			"Search stage duration in milliseconds",
			[]string{"corpus", "stage"},
			[]float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		),

		IndexedDocuments: NewCounter(
			"rank_indexed_documents_total",
			"Total number of documents indexed",
			nil,
		),
		IndexLatency: NewHistogram(
			"rank_index_latency_ms",
			"Indexing latency in milliseconds per batch",
			[]float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		),
		IndexErrors: NewCounterVec(
			"rank_index_errors_total",
			"Total number of indexing errors",
			[]string{"error_type"},
		),
		CorporaTotal: NewGauge(
			"rank_corpora_total",
			"Total number of corpora",
			nil,
		),
		DocumentsTotal: NewGaugeVec(
			"rank_documents_total",
			"Total number of documents per corpus",
			[]string{"corpus"},
		),

		RerankRequests: NewCounter(
			"rank_rerank_requests_total",
			"Total number of rerank requests",
			nil,
		),
		RerankLatency: NewHistogram(
			"rank_rerank_latency_ms",
			"Rerank latency in milliseconds",
			[]float64{1, 5, 10, 25, 50, 100, 250, 500},
		),

		EvalRuns: NewCounter(
			"rank_eval_runs_total",
			"Total number of evaluation runs",
			nil,
		),
		EvalLatency: NewHistogram(
			"rank_eval_latency_ms",
			"Evaluation run latency in milliseconds",
			[]float64{10, 50, 100, 500, 1000, 5000, 10000},
		),

		CacheHits: NewCounterVec(
			"rank_cache_hits_total",
			"Total number of cache hits",
			[]string{"type"},
		),
		CacheMisses: NewCounterVec(
			"rank_cache_misses_total",
			"Total number of cache misses",
			[]string{"type"},
		),
		CacheSize: NewGaugeVec(
			"rank_cache_size",
			"Current cache size",
			[]string{"type"},
		),

		BusEventsPublished: NewCounterVec(
			"rank_bus_events_published_total",
			"Total number of events published to the bus",
			[]string{"topic"},
		),
		BusErrors: NewCounterVec(
			"rank_bus_errors_total",
			"Total number of event bus errors",
			[]string{"topic"},
		),

		HTTPRequests: NewCounterVec(
			"rank_http_requests_total",
			"Total number of HTTP requests",
			[]string{"method", "path", "status"},
		),
		HTTPDuration: NewHistogramVec(
			"rank_http_request_duration_seconds",
			"HTTP request duration in seconds",
			[]string{"method", "path"},
			[]float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		),
		HTTPRequestsInFlight: NewGauge(
			"rank_http_requests_in_flight",
			"Number of HTTP requests currently being processed",
			nil,
		),

		GoroutineCount: NewGauge(
			"rank_goroutines",
			"Number of goroutines",
			nil,
		),
		MemoryUsage: NewGauge(
			"rank_memory_bytes",
			"Memory usage in bytes",
			nil,
		),
		Uptime: NewCounter(
			"rank_uptime_seconds",
			"Application uptime in seconds",
			nil,
		),

		searchHistory: NewMetricHistory("search_latency_ms", time.Minute, 60, redisStorage),
		indexHistory:  NewMetricHistory("indexed_documents", time.Minute, 60, redisStorage),

		redisStorage: redisStorage,
		startTime:    time.Now(),
		stop:         make(chan struct{}),
	}

	go m.collectSystemMetrics()

	return m
}

// collectSystemMetrics periodically collects system metrics.
func (m *Metrics) collectSystemMetrics() {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.GoroutineCount.Set(float64(runtime.NumGoroutine()))

			var memStats runtime.MemStats
			runtime.ReadMemStats(&memStats)
			m.MemoryUsage.Set(float64(memStats.Alloc))

			m.Uptime.Add(15)
		}
	}
}

// RecordSearch records search metrics.
func (m *Metrics) RecordSearch(latencyMs int64, resultCount int, err error) {
	m.SearchRequests.Inc()
	m.SearchLatency.Observe(float64(latencyMs))
	m.SearchResults.Observe(float64(resultCount))
	m.searchHistory.Record(float64(latencyMs))

	if err != nil {
		m.SearchErrors.WithLabels(errorType(err)).Inc()
	}
}

// RecordSearchStage records the duration of a single search stage.
// stage is one of "lexical", "dense", "sparse", "fusion", "rerank".
func (m *Metrics) RecordSearchStage(corpus, stage string, latencyMs int64) {
	m.SearchStageDuration.WithLabels(corpus, stage).Observe(float64(latencyMs))
}

// RecordIndex records indexing metrics for a batch.
func (m *Metrics) RecordIndex(docCount int, latencyMs int64, err error) {
	m.IndexedDocuments.Add(int64(docCount))
	m.IndexLatency.Observe(float64(latencyMs))
	m.indexHistory.Record(float64(docCount))

	if err != nil {
		m.IndexErrors.WithLabels(errorType(err)).Inc()
	}
}

// UpdateCorpusStats updates per-corpus metrics.
func (m *Metrics) UpdateCorpusStats(corpus string, docCount int64) {
	m.DocumentsTotal.WithLabels(corpus).Set(float64(docCount))
}

// UpdateCorpusCount updates the total number of corpora.
func (m *Metrics) UpdateCorpusCount(count int) {
	m.CorporaTotal.Set(float64(count))
}

// RecordRerank records reranking metrics.
func (m *Metrics) RecordRerank(candidateCount int, latencyMs int64) {
	m.RerankRequests.Inc()
	m.RerankLatency.Observe(float64(latencyMs))
}

// RecordEval records evaluation run metrics.
func (m *Metrics) RecordEval(latencyMs int64) {
	m.EvalRuns.Inc()
	m.EvalLatency.Observe(float64(latencyMs))
}

// RecordCacheHit records a cache hit.
func (m *Metrics) RecordCacheHit(cacheType string) {
	m.CacheHits.WithLabels(cacheType).Inc()
}

// RecordCacheMiss records a cache miss.
func (m *Metrics) RecordCacheMiss(cacheType string) {
	m.CacheMisses.WithLabels(cacheType).Inc()
}

// UpdateCacheSize updates the cache size.
func (m *Metrics) UpdateCacheSize(cacheType string, size int) {
	m.CacheSize.WithLabels(cacheType).Set(float64(size))
}

// RecordBusPublish records event bus publish metrics.
func (m *Metrics) RecordBusPublish(topic string, err error) {
	m.BusEventsPublished.WithLabels(topic).Inc()
	if err != nil {
		m.BusErrors.WithLabels(topic).Inc()
	}
}

// RecordHTTP records HTTP request metrics.
func (m *Metrics) RecordHTTP(method, path string, status int, durationSeconds float64) {
	m.HTTPRequests.WithLabels(method, path, statusCode(status)).Inc()
	m.HTTPDuration.WithLabels(method, path).Observe(durationSeconds)
}

// SearchHistory returns recorded search latency data points since t.
func (m *Metrics) SearchHistory(ctx context.Context, since time.Time) ([]DataPoint, error) {
	return m.searchHistory.Since(ctx, since)
}

// IndexHistory returns recorded indexing data points since t.
func (m *Metrics) IndexHistory(ctx context.Context, since time.Time) ([]DataPoint, error) {
	return m.indexHistory.Since(ctx, since)
}

// IsRedisPersisted returns true if history is persisted to Redis.
func (m *Metrics) IsRedisPersisted() bool {
	return m.redisStorage != nil
}

// Close stops background collection and releases resources.
func (m *Metrics) Close() error {
	close(m.stop)
	if m.redisStorage != nil {
		return m.redisStorage.Close()
	}
	return nil
}

func errorType(err error) string {
	if err == nil {
		return "unknown"
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "generic"
}

func statusCode(status int) string {
	switch {
	case status < 200:
		return "1xx"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
