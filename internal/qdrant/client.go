package qdrant

import (
	"context"
	"sync"
	"time"

	"github.com/qdrant/go-client/qdrant"

	apperrors "github.com/rankstack/rank-search/internal/pkg/errors"
)

const (
	// DefaultCollectionPrefix namespaces rank-search collections on a
	// shared Qdrant instance.
	DefaultCollectionPrefix = "rank_"

	// DefaultHost is the default Qdrant host.
	DefaultHost = "localhost"

	// DefaultPort is the default Qdrant gRPC port.
	DefaultPort = 6334

	// DefaultTimeout bounds individual Qdrant operations.
	DefaultTimeout = 30 * time.Second
)

// ClientConfig holds connection settings for the Qdrant client.
type ClientConfig struct {
	Host             string
	Port             int
	APIKey           string
	UseTLS           bool
	Timeout          time.Duration
	CollectionPrefix string
}

// DefaultClientConfig returns defaults for local development.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Host:             DefaultHost,
		Port:             DefaultPort,
		Timeout:          DefaultTimeout,
		CollectionPrefix: DefaultCollectionPrefix,
	}
}

// Client wraps the Qdrant Go client with corpus mirroring operations.
type Client struct {
	client *qdrant.Client
	config ClientConfig
	mu     sync.RWMutex
	closed bool
}

// NewClient connects to Qdrant over gRPC.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.CollectionPrefix == "" {
		cfg.CollectionPrefix = DefaultCollectionPrefix
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeBackendError, "creating qdrant client", err)
	}

	return &Client{client: client, config: cfg}, nil
}

// Close closes the underlying gRPC connection. Safe to call twice.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.client.Close()
}

// opContext guards against use after Close and applies the operation
// timeout. The caller must invoke the returned cancel func.
func (c *Client) opContext(ctx context.Context) (context.Context, context.CancelFunc, error) {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()

	if closed {
		return nil, nil, apperrors.New(apperrors.CodeUnavailable, "qdrant client is closed")
	}
	opCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	return opCtx, cancel, nil
}

// HealthCheck verifies the Qdrant server is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel, err := c.opContext(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	reply, err := c.client.HealthCheck(ctx)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeBackendError, "qdrant health check", err)
	}
	if reply.GetTitle() == "" {
		return apperrors.New(apperrors.CodeBackendError, "empty qdrant health check response")
	}
	return nil
}

// Version returns the Qdrant server version.
func (c *Client) Version(ctx context.Context) (string, error) {
	ctx, cancel, err := c.opContext(ctx)
	if err != nil {
		return "", err
	}
	defer cancel()

	reply, err := c.client.HealthCheck(ctx)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeBackendError, "reading qdrant version", err)
	}
	return reply.GetVersion(), nil
}

// qualify maps a corpus name to its namespaced collection name.
func (c *Client) qualify(corpus string) string {
	return c.config.CollectionPrefix + corpus
}
