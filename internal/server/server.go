// Package server wires the search pipeline, corpus management, and
// supporting services behind one HTTP server.
package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/rankstack/rank-search/internal/bus"
	"github.com/rankstack/rank-search/internal/cache"
	"github.com/rankstack/rank-search/internal/config"
	"github.com/rankstack/rank-search/internal/index"
	"github.com/rankstack/rank-search/internal/metrics"
	"github.com/rankstack/rank-search/internal/pipeline"
	"github.com/rankstack/rank-search/internal/pkg/logger"
	"github.com/rankstack/rank-search/internal/pkg/middleware"
	"github.com/rankstack/rank-search/internal/qdrant"
)

// Config configures the HTTP server itself.
type Config struct {
	Host            string
	Port            int
	Version         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns the server defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		Version:         "dev",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    60 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Server owns the HTTP listener and every service behind it.
type Server struct {
	cfg    Config
	appCfg *config.Config
	log    *logger.Logger

	httpServer *http.Server

	bus      bus.Bus
	cache    cache.Cache
	metrics  *metrics.Metrics
	qdrant   *qdrant.Client
	pipeline *pipeline.Service

	searchHandler *SearchHandler
	corpusHandler *CorpusHandler
	healthHandler *HealthHandler
	rateLimiter   *middleware.RateLimiter

	mu      sync.RWMutex
	started bool
}

// New builds a fully wired server from the application configuration.
func New(cfg Config, appCfg *config.Config, log *logger.Logger) (*Server, error) {
	if cfg.Port == 0 {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = logger.Default()
	}

	s := &Server{cfg: cfg, appCfg: appCfg, log: log}

	if appCfg.Metrics.Enabled {
		s.metrics = metrics.NewWithConfig(appCfg.Metrics.Storage, appCfg.Metrics.RedisURL)
	}

	b, err := bus.NewBus(appCfg.Bus)
	if err != nil {
		return nil, fmt.Errorf("creating event bus: %w", err)
	}
	s.bus = b

	cc, err := s.buildCache(appCfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}
	s.cache = cc

	if appCfg.Qdrant.Enabled {
		client, err := s.buildQdrant(appCfg.Qdrant)
		if err != nil {
			return nil, fmt.Errorf("creating qdrant client: %w", err)
		}
		s.qdrant = client
	}

	s.pipeline = pipeline.NewService(pipeline.ConfigFrom(appCfg), log)
	s.pipeline.SetBus(s.bus)
	if s.cache != nil {
		s.pipeline.SetCache(s.cache)
	}
	if s.metrics != nil {
		s.pipeline.SetMetrics(s.metrics)
	}

	ingestCfg := index.DefaultIngestConfig()
	if appCfg.Index.Workers > 0 {
		ingestCfg.Workers = appCfg.Index.Workers
	}
	if appCfg.Index.BatchSize > 0 {
		ingestCfg.BatchSize = appCfg.Index.BatchSize
	}

	s.searchHandler = NewSearchHandler(s.pipeline)
	s.corpusHandler = NewCorpusHandler(s.pipeline, ingestCfg, appCfg.Index.DataDir, log)
	s.corpusHandler.SetBus(s.bus)
	if s.qdrant != nil {
		s.corpusHandler.SetQdrant(s.qdrant)
	}
	s.healthHandler = NewHealthHandler(s.pipeline, s.qdrant, cfg.Version)

	return s, nil
}

func (s *Server) buildCache(cfg config.CacheConfig) (cache.Cache, error) {
	switch cfg.Type {
	case "", "memory":
		c := cache.NewMemoryCache(cfg.Size)
		if s.metrics != nil {
			c.SetMetrics(s.metrics)
		}
		return c, nil
	case "redis":
		ttl := time.Duration(cfg.TTL) * time.Second
		c, err := cache.NewRedisCache(cfg.RedisURL, "", ttl)
		if err != nil {
			return nil, err
		}
		if s.metrics != nil {
			c.SetMetrics(s.metrics)
		}
		return c, nil
	case "none":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown cache type %q", cfg.Type)
}

func (s *Server) buildQdrant(cfg config.QdrantConfig) (*qdrant.Client, error) {
	clientCfg := qdrant.DefaultClientConfig()
	if cfg.URL != "" {
		host, port, err := parseQdrantURL(cfg.URL)
		if err != nil {
			return nil, err
		}
		clientCfg.Host = host
		clientCfg.Port = port
	}
	if cfg.APIKey != "" {
		clientCfg.APIKey = cfg.APIKey
	}
	if cfg.CollectionPrefix != "" {
		clientCfg.CollectionPrefix = cfg.CollectionPrefix
	}
	return qdrant.NewClient(clientCfg)
}

// parseQdrantURL extracts host and gRPC port from a Qdrant URL. The
// gRPC port is the HTTP port plus one.
func parseQdrantURL(rawURL string) (string, int, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", 0, err
	}
	host := u.Hostname()
	if host == "" {
		host = "localhost"
	}
	httpPort := 6333
	if portStr := u.Port(); portStr != "" {
		httpPort, err = strconv.Atoi(portStr)
		if err != nil {
			return "", 0, fmt.Errorf("invalid port %q", portStr)
		}
	}
	return host, httpPort + 1, nil
}

// Pipeline exposes the search service for out-of-band wiring, such as
// CLI indexing against an embedded server.
func (s *Server) Pipeline() *pipeline.Service { return s.pipeline }

// Start blocks serving HTTP until the listener fails or Stop is called.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("server already started")
	}
	s.started = true
	s.mu.Unlock()

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	s.log.Info("starting http server", "addr", addr, "version", s.cfg.Version)
	return s.httpServer.ListenAndServe()
}

// Stop shuts the server down gracefully and closes every service.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}

	s.log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.log.WithError(err).Error("http shutdown error")
		}
	}

	s.corpusHandler.Close()
	if s.rateLimiter != nil {
		s.rateLimiter.Close()
	}
	if s.qdrant != nil {
		s.qdrant.Close()
	}
	if closer, ok := s.cache.(interface{ Close() error }); ok && closer != nil {
		closer.Close()
	}
	if s.bus != nil {
		s.bus.Close()
	}
	if s.metrics != nil {
		s.metrics.Close()
	}

	s.started = false
	s.log.Info("server stopped")
	return nil
}

// Handler builds the full middleware and routing stack.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	s.healthHandler.RegisterRoutes(mux)
	s.searchHandler.RegisterRoutes(mux)
	s.corpusHandler.RegisterRoutes(mux)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = s.protectAPI(handler)
	handler = corsMiddleware(handler, s.appCfg.Security.CORSOrigins)
	handler = observeMiddleware(handler, s.log, s.metrics)
	return handler
}

// protectAPI applies API key auth and rate limiting to /v1 routes,
// leaving health and metrics open for probes and scrapers.
func (s *Server) protectAPI(next http.Handler) http.Handler {
	protected := next
	if s.appCfg.Security.RateLimit > 0 {
		rlCfg := middleware.DefaultRateLimiterConfig()
		rlCfg.RequestsPerSecond = float64(s.appCfg.Security.RateLimit)
		rlCfg.Burst = s.appCfg.Security.RateLimit * 2
		s.rateLimiter = middleware.NewRateLimiter(rlCfg)
		protected = s.rateLimiter.Middleware(protected)
	}
	protected = middleware.APIKeyAuth(s.appCfg.Security.APIKey)(protected)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(r.URL.Path) >= 3 && r.URL.Path[:3] == "/v1" {
			protected.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Health reports whether the server has been started.
func (s *Server) Health() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}
