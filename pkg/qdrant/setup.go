package qdrant

import (
	"context"
	"fmt"
	"time"

	logx "github.com/docbook-core-poc-v1/server/pkg/logger"
	qdrant "github.com/qdrant/go-client/qdrant"
)

// Client wraps the official Qdrant gRPC client with the handful of
// collection and point operations the assistant needs.
type Client struct {
	api     *qdrant.Client
	timeout time.Duration
}

// New connects to Qdrant and fails fast when the health check does not pass.
func New(ctx context.Context, cfg Config) (*Client, error) {
	ep, err := cfg.endpoint()
	if err != nil {
		return nil, err
	}
	logx.Debug().Str("host", ep.Host).Int("port", ep.Port).Bool("tls", ep.UseTLS).Msg("connecting to qdrant")

	api, err := qdrant.NewClient(&qdrant.Config{
		Host:                   ep.Host,
		Port:                   ep.Port,
		APIKey:                 cfg.APIKey,
		UseTLS:                 ep.UseTLS,
		SkipCompatibilityCheck: cfg.SkipCompatibility,
	})
	if err != nil {
		return nil, fmt.Errorf("init qdrant client: %w", err)
	}

	c := &Client{api: api, timeout: cfg.Timeout}
	if err := c.healthCheck(ctx); err != nil {
		_ = api.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) healthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	resp, err := c.api.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("qdrant health check: %w", err)
	}
	logx.Info().Str("version", resp.GetVersion()).Msg("qdrant health check passed")
	return nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Client) Close() error {
	if c == nil || c.api == nil {
		return nil
	}
	return c.api.Close()
}
