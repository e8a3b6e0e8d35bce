package main

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"google.golang.org/genai"
	"gorm.io/gorm"

	"github.com/docbook-core-poc-v1/server/internal/agent/graph"
	"github.com/docbook-core-poc-v1/server/internal/agent/graph/nodes"
	"github.com/docbook-core-poc-v1/server/internal/agent/graph/tools"
	"github.com/docbook-core-poc-v1/server/internal/agent/model"
	"github.com/docbook-core-poc-v1/server/internal/agent/repo"
	"github.com/docbook-core-poc-v1/server/internal/appointments"
	"github.com/docbook-core-poc-v1/server/internal/knowledge"
	logx "github.com/docbook-core-poc-v1/server/pkg/logger"
	"github.com/docbook-core-poc-v1/server/pkg/metrics"
	"github.com/docbook-core-poc-v1/server/pkg/postgres"
	"github.com/docbook-core-poc-v1/server/pkg/qdrant"
)

// app owns the long-lived clients shared by every command.
type app struct {
	cfg     AppConfig
	catalog knowledge.Catalog
	metrics *metrics.Metrics

	gemini *genai.Client
	qdrant *qdrant.Client
	redis  *goredis.Client
	db     *gorm.DB
}

func newApp(ctx context.Context, cfg AppConfig) (*app, error) {
	logx.Init(logx.LoggerOpts{Environment: cfg.Environment, Level: cfg.LogLevel})

	catalog, err := knowledge.LoadCatalog(cfg.CatalogFile)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, catalog: catalog, metrics: metrics.NewMetrics(cfg.Metrics)}

	a.gemini, err = nodes.NewGeminiClient(ctx, cfg.APIKey, cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	a.qdrant, err = qdrant.New(ctx, cfg.Qdrant)
	if err != nil {
		return nil, err
	}

	if cfg.Redis.Enabled() {
		if a.redis, err = cfg.Redis.New(ctx); err != nil {
			a.Close()
			return nil, err
		}
		logx.Info().Msg("session history stored in redis")
	} else {
		logx.Info().Msg("REDIS_URL not set, keeping session history in memory")
	}

	if cfg.Postgres.Enabled() {
		if a.db, err = postgres.New(ctx, cfg.Postgres); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

func (a *app) Close() {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	errs = append(errs, a.qdrant.Close(), postgres.Close(a.db))
	if err := errors.Join(errs...); err != nil {
		logx.Warn().Err(err).Msg("error while closing clients")
	}
}

func (a *app) recordManager() (knowledge.RecordManager, error) {
	if a.db == nil {
		logx.Warn().Msg("PG_CONNECTION_STRING not set, index records are kept in memory")
		return knowledge.NewMemoryRecordManager(a.cfg.Retrieval.Namespace), nil
	}
	return knowledge.NewPostgresRecordManager(a.db, a.cfg.Retrieval.Namespace)
}

func (a *app) indexer() (*knowledge.Indexer, error) {
	embedder, err := knowledge.NewGeminiEmbedder(a.gemini, a.cfg.Retrieval.EmbeddingModel, knowledge.TaskRetrievalDocument)
	if err != nil {
		return nil, err
	}
	records, err := a.recordManager()
	if err != nil {
		return nil, err
	}
	return knowledge.NewIndexer(knowledge.IndexerConfig{
		Embedder:   embedder,
		Store:      a.qdrant,
		Records:    records,
		Collection: a.cfg.Retrieval.Collection,
		Metrics:    a.metrics,
	})
}

func (a *app) seed(ctx context.Context, recreate bool) (knowledge.IndexResult, error) {
	ix, err := a.indexer()
	if err != nil {
		return knowledge.IndexResult{}, err
	}
	res, err := ix.Seed(ctx, a.catalog, knowledge.SeedOptions{Recreate: recreate})
	if err != nil {
		return res, fmt.Errorf("seed doctors: %w", err)
	}
	logx.Info().
		Int("added", res.Added).
		Int("skipped", res.Skipped).
		Int("deleted", res.Deleted).
		Str("collection", a.cfg.Retrieval.Collection).
		Msg("doctor catalog indexed")
	return res, nil
}

func (a *app) conversationRepo() model.ConversationRepository {
	maxStored := a.cfg.Conversation.History.MaxStored
	if a.redis != nil {
		return repo.NewRedisConversationRepository(a.redis, a.cfg.Conversation.TTL, maxStored)
	}
	return repo.NewMemoryConversationRepository(maxStored)
}

// runner wires the retrieval, booking and memory collaborators into the graph.
func (a *app) runner(ctx context.Context) (graph.Runner, error) {
	embedder, err := knowledge.NewGeminiEmbedder(a.gemini, a.cfg.Retrieval.EmbeddingModel, knowledge.TaskRetrievalQuery)
	if err != nil {
		return nil, err
	}
	rtr, err := knowledge.NewRetriever(knowledge.RetrieverConfig{
		Embedder:   embedder,
		Store:      a.qdrant,
		Collection: a.cfg.Retrieval.Collection,
		TopK:       a.cfg.Retrieval.TopK,
		Metrics:    a.metrics,
	})
	if err != nil {
		return nil, err
	}

	store, err := appointments.NewFileStore(a.cfg.AppointmentsFile)
	if err != nil {
		return nil, err
	}
	if _, err := store.Seed(ctx, a.catalog.Appointments); err != nil {
		return nil, err
	}

	return graph.BuildResponseGraph(ctx, graph.Config{
		GeminiClient:     a.gemini,
		ResponseModel:    a.cfg.Response,
		Prompt:           a.cfg.Prompt,
		Conversation:     a.cfg.Conversation,
		ConversationRepo: a.conversationRepo(),
		Tools: tools.Deps{
			Retriever:    rtr,
			Appointments: store,
			Metrics:      a.metrics,
		},
		Metrics: a.metrics,
	})
}
