// Package client provides an HTTP client for the rank-search API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rankstack/rank-search/internal/index"
	"github.com/rankstack/rank-search/internal/pipeline"
)

// Config configures the client.
type Config struct {
	// BaseURL is the base URL of the API server.
	BaseURL string

	// APIKey is sent as X-API-Key when set.
	APIKey string

	// Timeout is the request timeout.
	Timeout time.Duration

	// MaxIdleConns caps idle keep-alive connections across all hosts.
	MaxIdleConns int

	// IdleConnTimeout is how long idle connections are kept.
	IdleConnTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:         "http://localhost:8080",
		Timeout:         30 * time.Second,
		MaxIdleConns:    100,
		IdleConnTimeout: 90 * time.Second,
	}
}

// Client is an HTTP client for the rank-search API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates an API client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 100
	}
	if cfg.IdleConnTimeout == 0 {
		cfg.IdleConnTimeout = 90 * time.Second
	}

	transport := &http.Transport{
		MaxIdleConns:      cfg.MaxIdleConns,
		IdleConnTimeout:   cfg.IdleConnTimeout,
		ForceAttemptHTTP2: true,
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
	}
}

// CorpusInfo describes one corpus.
type CorpusInfo struct {
	Name      string `json:"name"`
	Documents int    `json:"documents"`
	Recovered int    `json:"recovered,omitempty"`
}

// IngestResult summarizes one batch ingestion.
type IngestResult struct {
	Indexed int      `json:"indexed"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// HealthResponse is the liveness response.
type HealthResponse struct {
	Status string `json:"status"`
}

// APIError is the server's JSON error shape.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Health checks server liveness.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.get(ctx, "/health", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Version returns the server version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	var resp struct {
		Version string `json:"version"`
	}
	if err := c.get(ctx, "/v1/version", &resp); err != nil {
		return "", err
	}
	return resp.Version, nil
}

// ListCorpora returns all registered corpora.
func (c *Client) ListCorpora(ctx context.Context) ([]CorpusInfo, error) {
	var resp struct {
		Corpora []CorpusInfo `json:"corpora"`
	}
	if err := c.get(ctx, "/v1/corpora", &resp); err != nil {
		return nil, err
	}
	return resp.Corpora, nil
}

// CreateCorpus creates and registers a corpus.
func (c *Client) CreateCorpus(ctx context.Context, name string, vectorDim int) (*CorpusInfo, error) {
	body := map[string]any{}
	if vectorDim > 0 {
		body["vector_dim"] = vectorDim
	}
	var info CorpusInfo
	if err := c.put(ctx, "/v1/corpora/"+url.PathEscape(name), body, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// DeleteCorpus removes a corpus.
func (c *Client) DeleteCorpus(ctx context.Context, name string) error {
	return c.delete(ctx, "/v1/corpora/"+url.PathEscape(name))
}

// Ingest indexes a batch of documents into a corpus.
func (c *Client) Ingest(ctx context.Context, corpus string, docs []*index.Document) (*IngestResult, error) {
	var result IngestResult
	path := "/v1/corpora/" + url.PathEscape(corpus) + "/documents"
	if err := c.post(ctx, path, map[string]any{"documents": docs}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Search runs a hybrid search against a corpus.
func (c *Client) Search(ctx context.Context, corpus string, req pipeline.Request) (*pipeline.Response, error) {
	var resp pipeline.Response
	path := "/v1/corpora/" + url.PathEscape(corpus) + "/search"
	req.Corpus = ""
	if err := c.post(ctx, path, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, result)
}

func (c *Client) post(ctx context.Context, path string, body, result any) error {
	return c.send(ctx, http.MethodPost, path, body, result)
}

func (c *Client) put(ctx context.Context, path string, body, result any) error {
	return c.send(ctx, http.MethodPut, path, body, result)
}

func (c *Client) send(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.do(req, result)
}

func (c *Client) delete(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return c.do(req, nil)
}

func (c *Client) do(req *http.Request, result any) error {
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr APIError
		if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Code == "" {
			return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
		}
		return &apiErr
	}

	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("unmarshaling response: %w", err)
		}
	}
	return nil
}
