package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/rankstack/rank-search/internal/metrics"
	"github.com/rankstack/rank-search/internal/pkg/logger"
)

// statusWriter captures the response status for logging and metrics.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// observeMiddleware logs every request and records HTTP metrics. The
// metrics path label is normalized to the route prefix to keep label
// cardinality bounded.
func observeMiddleware(next http.Handler, log *logger.Logger, m *metrics.Metrics) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		elapsed := time.Since(start)
		if m != nil {
			m.RecordHTTP(r.Method, routeLabel(r.URL.Path), sw.status, elapsed.Seconds())
		}
		log.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration_ms", elapsed.Milliseconds(),
		)
	})
}

// routeLabel collapses request paths to a small fixed label set.
func routeLabel(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/corpora"):
		if strings.HasSuffix(path, "/search") || strings.Contains(path, "/search/") {
			return "/v1/corpora/{corpus}/search"
		}
		if strings.Contains(path, "/documents") {
			return "/v1/corpora/{corpus}/documents"
		}
		return "/v1/corpora"
	case strings.HasPrefix(path, "/health"):
		return "/health"
	case path == "/metrics":
		return "/metrics"
	}
	return "other"
}

// corsMiddleware answers preflight requests and sets CORS headers.
func corsMiddleware(next http.Handler, origins string) http.Handler {
	if origins == "" {
		origins = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origins)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
