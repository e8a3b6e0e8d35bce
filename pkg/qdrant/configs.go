package qdrant

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Config binds QDRANT_* variables.
//
// URL accepts either a bare host ("localhost") or a full URL as handed out by
// Qdrant Cloud ("https://xyz.cloud.qdrant.io:6333"). The REST port 6333 is
// mapped to the gRPC port because the Go client speaks gRPC only.
type Config struct {
	URL               string        `envconfig:"QDRANT_URL" default:"localhost"`
	Port              int           `envconfig:"QDRANT_PORT" default:"6334"`
	APIKey            string        `envconfig:"QDRANT_API_KEY"`
	Timeout           time.Duration `envconfig:"QDRANT_TIMEOUT" default:"10s"`
	SkipCompatibility bool          `envconfig:"QDRANT_SKIP_COMPATIBILITY_CHECK" default:"true"`
}

const (
	restPort = 6333
	grpcPort = 6334
)

type endpoint struct {
	Host   string
	Port   int
	UseTLS bool
}

func (c *Config) endpoint() (endpoint, error) {
	raw := strings.TrimSpace(c.URL)
	if raw == "" {
		return endpoint{}, fmt.Errorf("qdrant url is empty")
	}

	ep := endpoint{Host: raw, Port: c.Port}
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return endpoint{}, fmt.Errorf("parse qdrant url: %w", err)
		}
		if u.Hostname() == "" {
			return endpoint{}, fmt.Errorf("qdrant url %q has no host", raw)
		}
		ep.Host = u.Hostname()
		ep.UseTLS = u.Scheme == "https"
		if p := u.Port(); p != "" {
			n, err := strconv.Atoi(p)
			if err != nil {
				return endpoint{}, fmt.Errorf("parse qdrant port: %w", err)
			}
			ep.Port = n
		}
	}

	if ep.Port == 0 || ep.Port == restPort {
		ep.Port = grpcPort
	}
	return ep, nil
}
