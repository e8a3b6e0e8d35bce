package knowledge

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"

	errx "github.com/docbook-core-poc-v1/server/internal/core/error"
	logx "github.com/docbook-core-poc-v1/server/pkg/logger"
	"github.com/docbook-core-poc-v1/server/pkg/metrics"
)

type RetrieverConfig struct {
	Embedder   embedding.Embedder
	Store      VectorStore
	Collection string
	TopK       int
	Metrics    *metrics.Metrics
}

// Retriever embeds a query and returns the closest doctor documents.
type Retriever struct {
	embedder   embedding.Embedder
	store      VectorStore
	collection string
	topK       int
	metrics    *metrics.Metrics
}

var _ retriever.Retriever = (*Retriever)(nil)

func NewRetriever(cfg RetrieverConfig) (*Retriever, error) {
	if cfg.Embedder == nil || cfg.Store == nil {
		return nil, fmt.Errorf("retriever needs an embedder and a vector store")
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("retriever collection cannot be empty")
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = 2
	}
	return &Retriever{
		embedder:   cfg.Embedder,
		store:      cfg.Store,
		collection: cfg.Collection,
		topK:       topK,
		metrics:    cfg.Metrics,
	}, nil
}

func (r *Retriever) Retrieve(ctx context.Context, query string, opts ...retriever.Option) (docs []*schema.Document, err error) {
	defer func() { r.metrics.ObserveRetrieval(err) }()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errx.Validation("search query cannot be empty")
	}

	topK := r.topK
	options := retriever.GetCommonOptions(&retriever.Options{TopK: &topK}, opts...)
	if options.TopK != nil && *options.TopK > 0 {
		topK = *options.TopK
	}

	vectors, err := r.embedder.EmbedStrings(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, errx.WrapLLM(fmt.Errorf("embedder returned %d vectors for one query", len(vectors)))
	}

	hits, err := r.store.Search(ctx, r.collection, toFloat32(vectors[0]), topK)
	if err != nil {
		return nil, errx.WrapQdrant(fmt.Errorf("search %q: %w", r.collection, err))
	}

	docs = make([]*schema.Document, 0, len(hits))
	for _, h := range hits {
		content, _ := h.Payload[PayloadContent].(string)
		meta, _ := h.Payload[PayloadMetadata].(map[string]any)
		doc := &schema.Document{ID: h.ID, Content: content, MetaData: meta}
		docs = append(docs, doc.WithScore(float64(h.Score)))
	}

	logx.Debug().Str("query", query).Int("top_k", topK).Int("hits", len(docs)).Msg("retrieved doctors")
	return docs, nil
}
