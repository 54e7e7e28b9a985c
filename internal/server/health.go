package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/rankstack/rank-search/internal/pipeline"
	"github.com/rankstack/rank-search/internal/qdrant"
)

// Component is one subsystem's health.
type Component struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency int64  `json:"latency_ms,omitempty"`
}

// HealthStatus is the aggregate health report.
type HealthStatus struct {
	Status     string               `json:"status"`
	Timestamp  time.Time            `json:"timestamp"`
	Version    string               `json:"version,omitempty"`
	Uptime     string               `json:"uptime,omitempty"`
	Components map[string]Component `json:"components"`
}

// HealthHandler serves liveness and readiness endpoints.
type HealthHandler struct {
	svc     *pipeline.Service
	qdrant  *qdrant.Client
	version string
	started time.Time
}

// NewHealthHandler creates a health handler. The Qdrant client is
// optional.
func NewHealthHandler(svc *pipeline.Service, qc *qdrant.Client, version string) *HealthHandler {
	return &HealthHandler{
		svc:     svc,
		qdrant:  qc,
		version: version,
		started: time.Now(),
	}
}

// RegisterRoutes registers the health routes.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /health/detailed", h.handleDetailed)
	mux.HandleFunc("GET /v1/version", h.handleVersion)
}

func (h *HealthHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HealthHandler) handleDetailed(w http.ResponseWriter, r *http.Request) {
	status := h.check(r.Context())
	code := http.StatusOK
	if status.Status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

func (h *HealthHandler) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": h.version})
}

func (h *HealthHandler) check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:     "healthy",
		Timestamp:  time.Now().UTC(),
		Version:    h.version,
		Uptime:     time.Since(h.started).Round(time.Second).String(),
		Components: make(map[string]Component),
	}

	status.Components["index"] = h.checkIndex()

	if h.qdrant != nil {
		comp := h.checkQdrant(ctx)
		status.Components["qdrant"] = comp
		// Qdrant is a mirror; the local index keeps serving without it.
		if comp.Status != "healthy" && status.Status == "healthy" {
			status.Status = "degraded"
		}
	}

	return status
}

func (h *HealthHandler) checkIndex() Component {
	names := h.svc.CorpusNames()
	total := 0
	for _, name := range names {
		if c, err := h.svc.Corpus(name); err == nil {
			total += c.Len()
		}
	}
	return Component{
		Status:  "healthy",
		Message: pluralize(len(names), "corpus", "corpora") + ", " + pluralize(total, "document", "documents"),
	}
}

func (h *HealthHandler) checkQdrant(ctx context.Context) Component {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	start := time.Now()
	err := h.qdrant.HealthCheck(checkCtx)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return Component{Status: "unhealthy", Message: err.Error(), Latency: latency}
	}
	return Component{Status: "healthy", Latency: latency}
}

func pluralize(n int, singular, plural string) string {
	word := plural
	if n == 1 {
		word = singular
	}
	return strconv.Itoa(n) + " " + word
}
