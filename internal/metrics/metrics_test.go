package metrics

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apperrors "github.com/rankstack/rank-search/internal/pkg/errors"
)

func TestCounter(t *testing.T) {
	c := NewCounter("test_total", "test counter", nil)

	c.Inc()
	c.Add(5)
	if c.Value() != 6 {
		t.Errorf("Value() = %d, want 6", c.Value())
	}

	c.Add(-3)
	if c.Value() != 6 {
		t.Errorf("negative Add should be ignored, got %d", c.Value())
	}

	c.Reset()
	if c.Value() != 0 {
		t.Errorf("Value() after Reset = %d, want 0", c.Value())
	}
}

func TestGauge(t *testing.T) {
	g := NewGauge("test_gauge", "test gauge", nil)

	g.Set(10)
	g.Inc()
	g.Dec()
	g.Dec()
	if g.Value() != 9 {
		t.Errorf("Value() = %f, want 9", g.Value())
	}
}

func TestHistogram(t *testing.T) {
	h := NewHistogram("test_latency", "test histogram", []float64{10, 50, 100})

	h.Observe(5)
	h.Observe(30)
	h.Observe(75)
	h.Observe(500)

	if h.Count() != 4 {
		t.Errorf("Count() = %d, want 4", h.Count())
	}
	if h.Sum() != 610 {
		t.Errorf("Sum() = %f, want 610", h.Sum())
	}

	counts := h.BucketCounts()
	// Cumulative: le=10 -> 1, le=50 -> 2, le=100 -> 3, +Inf -> 4.
	want := []int64{1, 2, 3, 4}
	for i, w := range want {
		if counts[i] != w {
			t.Errorf("bucket[%d] = %d, want %d", i, counts[i], w)
		}
	}
}

func TestCounterVec(t *testing.T) {
	cv := NewCounterVec("test_errors_total", "test errors", []string{"error_type"})

	cv.WithLabels("timeout").Inc()
	cv.WithLabels("timeout").Inc()
	cv.WithLabels("validation").Inc()

	if got := cv.WithLabels("timeout").Value(); got != 2 {
		t.Errorf("timeout counter = %d, want 2", got)
	}
	if got := cv.WithLabels("validation").Value(); got != 1 {
		t.Errorf("validation counter = %d, want 1", got)
	}
	if len(cv.GetAll()) != 2 {
		t.Errorf("GetAll() returned %d counters, want 2", len(cv.GetAll()))
	}
}

func TestHistogramVec(t *testing.T) {
	hv := NewHistogramVec("test_stage_ms", "stage durations", []string{"stage"}, []float64{10, 100})

	hv.WithLabels("lexical").Observe(5)
	hv.WithLabels("dense").Observe(50)

	if hv.WithLabels("lexical").Count() != 1 {
		t.Error("expected one lexical observation")
	}
	if len(hv.GetAll()) != 2 {
		t.Errorf("GetAll() returned %d histograms, want 2", len(hv.GetAll()))
	}
}

func TestLabelsToKey(t *testing.T) {
	a := labelsToKey(map[string]string{"b": "2", "a": "1"})
	b := labelsToKey(map[string]string{"a": "1", "b": "2"})
	if a != b {
		t.Errorf("key not stable: %q vs %q", a, b)
	}
	if labelsToKey(nil) != "" {
		t.Error("empty labels should produce empty key")
	}
}

func TestRecordSearch(t *testing.T) {
	m := New()
	defer m.Close()

	m.RecordSearch(25, 10, nil)
	m.RecordSearch(100, 5, apperrors.New(apperrors.CodeTimeout, "slow"))

	if m.SearchRequests.Value() != 2 {
		t.Errorf("SearchRequests = %d, want 2", m.SearchRequests.Value())
	}
	if m.SearchLatency.Count() != 2 {
		t.Errorf("SearchLatency count = %d, want 2", m.SearchLatency.Count())
	}
	if got := m.SearchErrors.WithLabels(apperrors.CodeTimeout).Value(); got != 1 {
		t.Errorf("timeout errors = %d, want 1", got)
	}
}

func TestRecordIndex(t *testing.T) {
	m := New()
	defer m.Close()

	m.RecordIndex(32, 150, nil)
	m.RecordIndex(16, 80, nil)

	if m.IndexedDocuments.Value() != 48 {
		t.Errorf("IndexedDocuments = %d, want 48", m.IndexedDocuments.Value())
	}
}

func TestRecordCache(t *testing.T) {
	m := New()
	defer m.Close()

	m.RecordCacheHit("memory")
	m.RecordCacheHit("memory")
	m.RecordCacheMiss("memory")
	m.UpdateCacheSize("memory", 42)

	if got := m.CacheHits.WithLabels("memory").Value(); got != 2 {
		t.Errorf("cache hits = %d, want 2", got)
	}
	if got := m.CacheSize.WithLabels("memory").Value(); got != 42 {
		t.Errorf("cache size = %f, want 42", got)
	}
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{200, "2xx"},
		{301, "3xx"},
		{404, "4xx"},
		{500, "5xx"},
	}
	for _, tt := range tests {
		if got := statusCode(tt.status); got != tt.want {
			t.Errorf("statusCode(%d) = %s, want %s", tt.status, got, tt.want)
		}
	}
}

func TestErrorType(t *testing.T) {
	if got := errorType(apperrors.New(apperrors.CodeValidation, "bad")); got != apperrors.CodeValidation {
		t.Errorf("errorType = %s, want %s", got, apperrors.CodeValidation)
	}
	if got := errorType(context.Canceled); got != "generic" {
		t.Errorf("errorType = %s, want generic", got)
	}
}

func TestPrometheusFormat(t *testing.T) {
	m := New()
	defer m.Close()

	m.RecordSearch(25, 10, nil)
	m.RecordSearchStage("docs", "lexical", 5)

	out := m.PrometheusFormat()

	for _, want := range []string{
		"# TYPE rank_search_requests_total counter",
		"rank_search_requests_total 1",
		"# TYPE rank_search_latency_ms histogram",
		"rank_search_latency_ms_count 1",
		`rank_search_stage_duration_ms_bucket{corpus="docs",le="+Inf",stage="lexical"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestHandler(t *testing.T) {
	m := New()
	defer m.Close()

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %s, want text/plain", ct)
	}

	req = httptest.NewRequest("POST", "/metrics", nil)
	rec = httptest.NewRecorder()
	m.ServeHTTP(rec, req)
	if rec.Code != 405 {
		t.Errorf("POST status = %d, want 405", rec.Code)
	}
}

func TestMetricHistory(t *testing.T) {
	h := NewMetricHistory("test_metric", 50*time.Millisecond, 10, nil)

	h.Record(10)
	h.Record(20)

	// Force the bucket boundary to pass, then record again to
	// finalize the previous bucket.
	time.Sleep(60 * time.Millisecond)
	h.Record(30)

	points, err := h.Since(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("Since failed: %v", err)
	}
	if len(points) == 0 {
		t.Fatal("expected at least one finalized data point")
	}
	if points[0].Value < 10 || points[0].Value > 20 {
		t.Errorf("first point = %f, want average within [10, 20]", points[0].Value)
	}
}

func TestRedisStorage(t *testing.T) {
	rs, err := NewRedisStorage("redis://localhost:6379/0")
	if err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	defer rs.Close()

	ctx := context.Background()
	metric := "test_history_metric"
	defer rs.DeleteMetric(ctx, metric)

	now := time.Now().Truncate(time.Second)
	if err := rs.SaveDataPoint(ctx, metric, DataPoint{Timestamp: now, Value: 12.5}); err != nil {
		t.Fatalf("SaveDataPoint failed: %v", err)
	}

	points, err := rs.LoadHistory(ctx, metric, now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("LoadHistory failed: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(points))
	}
	if points[0].Value != 12.5 {
		t.Errorf("value = %f, want 12.5", points[0].Value)
	}
}
