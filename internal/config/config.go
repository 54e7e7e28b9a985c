// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	// Server configuration
	Host string `envconfig:"RANK_HOST" yaml:"host"`
	Port int    `envconfig:"RANK_PORT" yaml:"port"`

	// Index configuration
	Index IndexConfig `yaml:"index"`

	// Search configuration
	Search SearchConfig `yaml:"search"`

	// Qdrant configuration
	Qdrant QdrantConfig `yaml:"qdrant"`

	// Cache configuration
	Cache CacheConfig `yaml:"cache"`

	// Bus configuration
	Bus BusConfig `yaml:"bus"`

	// Logging configuration
	Log LogConfig `yaml:"log"`

	// Security configuration
	Security SecurityConfig `yaml:"security"`

	// Metrics configuration
	Metrics MetricsConfig `yaml:"metrics"`
}

// IndexConfig holds indexing settings.
type IndexConfig struct {
	DataDir   string  `envconfig:"RANK_DATA_DIR" yaml:"data_dir"`
	WALPath   string  `envconfig:"RANK_WAL_PATH" yaml:"wal_path"`
	Workers   int     `envconfig:"RANK_INDEX_WORKERS" yaml:"workers"`
	BatchSize int     `envconfig:"RANK_INDEX_BATCH_SIZE" yaml:"batch_size"`
	BM25K1    float64 `envconfig:"RANK_BM25_K1" yaml:"bm25_k1"`
	BM25B     float64 `envconfig:"RANK_BM25_B" yaml:"bm25_b"`

	// HNSW graph parameters for the dense backend.
	HNSWM              int `envconfig:"RANK_HNSW_M" yaml:"hnsw_m"`
	HNSWEfConstruction int `envconfig:"RANK_HNSW_EF_CONSTRUCTION" yaml:"hnsw_ef_construction"`
	HNSWEfSearch       int `envconfig:"RANK_HNSW_EF_SEARCH" yaml:"hnsw_ef_search"`
}

// SearchConfig holds search settings.
type SearchConfig struct {
	DefaultTopK      int     `envconfig:"RANK_DEFAULT_TOP_K" yaml:"default_top_k"`
	FusionMethod     string  `envconfig:"RANK_FUSION_METHOD" yaml:"fusion_method"`
	FusionK          int     `envconfig:"RANK_FUSION_K" yaml:"fusion_k"`
	LexicalWeight    float64 `envconfig:"RANK_LEXICAL_WEIGHT" yaml:"lexical_weight"`
	DenseWeight      float64 `envconfig:"RANK_DENSE_WEIGHT" yaml:"dense_weight"`
	SparseWeight     float64 `envconfig:"RANK_SPARSE_WEIGHT" yaml:"sparse_weight"`
	EnableReranking  bool    `envconfig:"RANK_ENABLE_RERANKING" yaml:"enable_reranking"`
	RerankCandidates int     `envconfig:"RANK_RERANK_CANDIDATES" yaml:"rerank_candidates"`
}

// QdrantConfig holds Qdrant connection settings.
type QdrantConfig struct {
	Enabled          bool   `envconfig:"RANK_QDRANT_ENABLED" yaml:"enabled"`
	URL              string `envconfig:"QDRANT_URL" yaml:"url"`
	APIKey           string `envconfig:"QDRANT_API_KEY" yaml:"api_key"`
	CollectionPrefix string `envconfig:"QDRANT_COLLECTION_PREFIX" yaml:"collection_prefix"`
}

// CacheConfig holds cache settings.
type CacheConfig struct {
	Type     string `envconfig:"RANK_CACHE_TYPE" yaml:"type"`
	Size     int    `envconfig:"RANK_CACHE_SIZE" yaml:"size"`
	TTL      int    `envconfig:"RANK_CACHE_TTL" yaml:"ttl"` // seconds, 0 = no expiry
	RedisURL string `envconfig:"RANK_REDIS_URL" yaml:"redis_url"`
}

// BusConfig holds event bus settings.
type BusConfig struct {
	Type         string `envconfig:"RANK_BUS_TYPE" yaml:"type"`
	KafkaBrokers string `envconfig:"RANK_KAFKA_BROKERS" yaml:"kafka_brokers"`
	KafkaGroup   string `envconfig:"RANK_KAFKA_GROUP" yaml:"kafka_group"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `envconfig:"RANK_LOG_LEVEL" yaml:"level"`
	Format string `envconfig:"RANK_LOG_FORMAT" yaml:"format"`
}

// SecurityConfig holds security settings.
type SecurityConfig struct {
	APIKey      string `envconfig:"RANK_API_KEY" yaml:"api_key"`
	RateLimit   int    `envconfig:"RANK_RATE_LIMIT" yaml:"rate_limit"` // requests/second, 0 = disabled
	CORSOrigins string `envconfig:"RANK_CORS_ORIGINS" yaml:"cors_origins"`
}

// MetricsConfig holds metrics storage settings.
type MetricsConfig struct {
	Enabled  bool   `envconfig:"RANK_METRICS_ENABLED" yaml:"enabled"`
	Storage  string `envconfig:"RANK_METRICS_STORAGE" yaml:"storage"`
	RedisURL string `envconfig:"RANK_METRICS_REDIS_URL" yaml:"redis_url"`
}

// Load loads configuration from environment variables and optional config file.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	setDefaults(cfg)

	// YAML file overrides defaults, environment overrides both.
	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("processing env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only.
func LoadFromEnv() (*Config, error) {
	return Load("")
}

// Default returns a configuration populated with defaults only.
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func setDefaults(cfg *Config) {
	cfg.Host = "0.0.0.0"
	cfg.Port = 8080

	cfg.Index = IndexConfig{
		DataDir:            "./data",
		WALPath:            "./data/index.wal",
		Workers:            4,
		BatchSize:          32,
		BM25K1:             1.2,
		BM25B:              0.75,
		HNSWM:              16,
		HNSWEfConstruction: 200,
		HNSWEfSearch:       100,
	}

	cfg.Search = SearchConfig{
		DefaultTopK:      20,
		FusionMethod:     "rrf",
		FusionK:          60,
		LexicalWeight:    1.0,
		DenseWeight:      1.0,
		SparseWeight:     1.0,
		EnableReranking:  false,
		RerankCandidates: 50,
	}

	cfg.Qdrant = QdrantConfig{
		URL:              "localhost:6334",
		CollectionPrefix: "rank_",
	}

	cfg.Cache = CacheConfig{
		Type:     "memory",
		Size:     10000,
		TTL:      0,
		RedisURL: "redis://localhost:6379",
	}

	cfg.Bus = BusConfig{
		Type:       "memory",
		KafkaGroup: "rank-search",
	}

	cfg.Log = LogConfig{
		Level:  "info",
		Format: "text",
	}

	cfg.Security = SecurityConfig{
		RateLimit:   0,
		CORSOrigins: "*",
	}

	cfg.Metrics = MetricsConfig{
		Enabled:  true,
		Storage:  "memory",
		RedisURL: "redis://localhost:6379",
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, "port must be between 1 and 65535")
	}

	if c.Index.Workers < 1 {
		errs = append(errs, "index workers must be positive")
	}
	if c.Index.BatchSize < 1 {
		errs = append(errs, "index batch_size must be positive")
	}
	if c.Index.BM25K1 < 0 {
		errs = append(errs, "bm25_k1 must be non-negative")
	}
	if c.Index.BM25B < 0 || c.Index.BM25B > 1 {
		errs = append(errs, "bm25_b must be between 0 and 1")
	}
	if c.Index.HNSWM < 2 {
		errs = append(errs, "hnsw_m must be at least 2")
	}
	if c.Index.HNSWEfConstruction < c.Index.HNSWM {
		errs = append(errs, "hnsw_ef_construction must be at least hnsw_m")
	}
	if c.Index.HNSWEfSearch < 1 {
		errs = append(errs, "hnsw_ef_search must be positive")
	}

	if c.Search.DefaultTopK < 1 {
		errs = append(errs, "default_top_k must be positive")
	}
	validFusion := map[string]bool{
		"rrf": true, "isr": true, "combsum": true,
		"combmnz": true, "borda": true, "dbsf": true, "weighted": true,
	}
	if !validFusion[c.Search.FusionMethod] {
		errs = append(errs, fmt.Sprintf("invalid fusion method: %s", c.Search.FusionMethod))
	}
	if c.Search.FusionK < 1 {
		errs = append(errs, "fusion_k must be positive")
	}
	for name, w := range map[string]float64{
		"lexical_weight": c.Search.LexicalWeight,
		"dense_weight":   c.Search.DenseWeight,
		"sparse_weight":  c.Search.SparseWeight,
	} {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("%s must be non-negative", name))
		}
	}
	if c.Search.RerankCandidates < 1 {
		errs = append(errs, "rerank_candidates must be positive")
	}

	validCacheTypes := map[string]bool{"memory": true, "redis": true}
	if !validCacheTypes[c.Cache.Type] {
		errs = append(errs, fmt.Sprintf("invalid cache type: %s (must be memory or redis)", c.Cache.Type))
	}

	validBusTypes := map[string]bool{"memory": true, "kafka": true}
	if !validBusTypes[c.Bus.Type] {
		errs = append(errs, fmt.Sprintf("invalid bus type: %s (must be memory or kafka)", c.Bus.Type))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be text or json)", c.Log.Format))
	}

	validMetricsStorage := map[string]bool{"memory": true, "redis": true}
	if !validMetricsStorage[c.Metrics.Storage] {
		errs = append(errs, fmt.Sprintf("invalid metrics storage: %s (must be memory or redis)", c.Metrics.Storage))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// Address returns the server address.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Log.Level == "debug"
}
