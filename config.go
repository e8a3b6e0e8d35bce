package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/docbook-core-poc-v1/server/internal/agent/model"
	"github.com/docbook-core-poc-v1/server/internal/core"
	"github.com/docbook-core-poc-v1/server/internal/server"
	"github.com/docbook-core-poc-v1/server/pkg/metrics"
	"github.com/docbook-core-poc-v1/server/pkg/postgres"
	"github.com/docbook-core-poc-v1/server/pkg/qdrant"
	pkgredis "github.com/docbook-core-poc-v1/server/pkg/redis"
)

// AppConfig defines every configurable parameter of the assistant,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment core.Environment `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string           `envconfig:"LOG_LEVEL"`

	// Infrastructure
	Redis    pkgredis.Config
	Qdrant   qdrant.Config
	Postgres postgres.Config
	Metrics  metrics.Config
	HTTP     server.Config

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Data
	AppointmentsFile string `envconfig:"APPOINTMENTS_FILE" default:"data/appointments.json"`
	CatalogFile      string `envconfig:"CATALOG_FILE"`
	SeedOnStart      bool   `envconfig:"SEED_ON_START" default:"true"`

	// Agent configs
	Response     model.ResponseModelConfig
	Prompt       model.PromptConfig
	Conversation model.ConversationConfig
	Retrieval    model.RetrievalConfig
}

func loadConfig(envFile string) (AppConfig, error) {
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return AppConfig{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("process environment config: %w", err)
	}
	return cfg, nil
}
