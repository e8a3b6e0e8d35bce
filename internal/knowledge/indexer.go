package knowledge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/indexer"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	errx "github.com/docbook-core-poc-v1/server/internal/core/error"
	logx "github.com/docbook-core-poc-v1/server/pkg/logger"
	"github.com/docbook-core-poc-v1/server/pkg/metrics"
	pkgqdrant "github.com/docbook-core-poc-v1/server/pkg/qdrant"
)

// VectorStore is the subset of the Qdrant client used by indexing and retrieval.
type VectorStore interface {
	EnsureCollection(ctx context.Context, name string, dim int) error
	RecreateCollection(ctx context.Context, name string, dim int) error
	Upsert(ctx context.Context, collection string, points []pkgqdrant.Point) error
	Search(ctx context.Context, collection string, vector []float32, topK int) ([]pkgqdrant.ScoredPoint, error)
	Delete(ctx context.Context, collection string, ids []string) error
}

// pointNamespace seeds the UUIDv5 ids derived from document hashes, so the
// same document always lands on the same point.
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("docbook/doctors"))

type IndexerConfig struct {
	Embedder   embedding.Embedder
	Store      VectorStore
	Records    RecordManager
	Collection string
	Metrics    *metrics.Metrics
	// Now defaults to time.Now.
	Now func() time.Time
}

// Indexer writes documents into the vector store incrementally. Unchanged
// documents are skipped, and documents that disappeared from a source group
// since the previous run are deleted.
type Indexer struct {
	embedder   embedding.Embedder
	store      VectorStore
	records    RecordManager
	collection string
	metrics    *metrics.Metrics
	now        func() time.Time
}

// IndexResult counts what a run did.
type IndexResult struct {
	Added   int `json:"num_added"`
	Skipped int `json:"num_skipped"`
	Deleted int `json:"num_deleted"`
}

var _ indexer.Indexer = (*Indexer)(nil)

func NewIndexer(cfg IndexerConfig) (*Indexer, error) {
	if cfg.Embedder == nil || cfg.Store == nil || cfg.Records == nil {
		return nil, fmt.Errorf("indexer needs an embedder, a vector store and a record manager")
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("indexer collection cannot be empty")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Indexer{
		embedder:   cfg.Embedder,
		store:      cfg.Store,
		records:    cfg.Records,
		collection: cfg.Collection,
		metrics:    cfg.Metrics,
		now:        now,
	}, nil
}

type hashedDoc struct {
	key   string
	group string
	doc   *schema.Document
}

// Index runs one incremental pass over docs. Every document must carry a
// "source" metadata value; it is the group stale records are cleaned within.
func (ix *Indexer) Index(ctx context.Context, docs []*schema.Document) (IndexResult, error) {
	var res IndexResult
	start := ix.now()

	hashed, err := hashDocuments(docs)
	if err != nil {
		return res, err
	}
	res.Skipped = len(docs) - len(hashed)

	keys := make([]string, len(hashed))
	groups := make([]string, len(hashed))
	for i, h := range hashed {
		keys[i] = h.key
		groups[i] = h.group
	}

	exists, err := ix.records.Exists(ctx, keys)
	if err != nil {
		return res, fmt.Errorf("check records: %w", err)
	}

	var fresh []hashedDoc
	for i, h := range hashed {
		if exists[i] {
			res.Skipped++
			continue
		}
		fresh = append(fresh, h)
	}

	if len(fresh) > 0 {
		if err := ix.write(ctx, fresh); err != nil {
			return res, err
		}
		res.Added = len(fresh)
	}

	if len(hashed) > 0 {
		if err := ix.records.Update(ctx, keys, groups, ix.now()); err != nil {
			return res, fmt.Errorf("update records: %w", err)
		}

		// ListKeys reads no groups as every group; only touched sources are cleaned.
		deleted, err := ix.cleanup(ctx, uniq(groups), start)
		if err != nil {
			return res, err
		}
		res.Deleted = deleted
	}

	ix.metrics.AddIndexed("added", res.Added)
	ix.metrics.AddIndexed("skipped", res.Skipped)
	ix.metrics.AddIndexed("deleted", res.Deleted)

	logx.Info().
		Str("collection", ix.collection).
		Int("added", res.Added).
		Int("skipped", res.Skipped).
		Int("deleted", res.Deleted).
		Msg("indexing finished")
	return res, nil
}

// cleanup deletes records of groups last written before start.
func (ix *Indexer) cleanup(ctx context.Context, groups []string, start time.Time) (int, error) {
	if len(groups) == 0 {
		return 0, nil
	}
	stale, err := ix.records.ListKeys(ctx, groups, start)
	if err != nil {
		return 0, fmt.Errorf("list stale records: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}
	if err := ix.store.Delete(ctx, ix.collection, stale); err != nil {
		return 0, errx.WrapQdrant(fmt.Errorf("delete stale points: %w", err))
	}
	if err := ix.records.DeleteKeys(ctx, stale); err != nil {
		return 0, fmt.Errorf("delete stale records: %w", err)
	}
	return len(stale), nil
}

// Store satisfies eino's indexer.Indexer. It returns the point ids of every
// document passed in, whether newly written or already present.
func (ix *Indexer) Store(ctx context.Context, docs []*schema.Document, _ ...indexer.Option) ([]string, error) {
	if _, err := ix.Index(ctx, docs); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		key, err := documentKey(d)
		if err != nil {
			return nil, err
		}
		ids = append(ids, key)
	}
	return ids, nil
}

func (ix *Indexer) write(ctx context.Context, docs []hashedDoc) error {
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.doc.Content
	}
	vectors, err := ix.embedder.EmbedStrings(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed documents: %w", err)
	}
	if len(vectors) != len(docs) {
		return errx.WrapLLM(fmt.Errorf("embedder returned %d vectors for %d documents", len(vectors), len(docs)))
	}

	points := make([]pkgqdrant.Point, len(docs))
	for i, d := range docs {
		points[i] = pkgqdrant.Point{
			ID:     d.key,
			Vector: toFloat32(vectors[i]),
			Payload: map[string]any{
				PayloadContent:  d.doc.Content,
				PayloadMetadata: d.doc.MetaData,
			},
		}
	}
	if err := ix.store.Upsert(ctx, ix.collection, points); err != nil {
		return errx.WrapQdrant(fmt.Errorf("upsert %d points: %w", len(points), err))
	}
	return nil
}

// hashDocuments keys each document and drops in-batch duplicates.
func hashDocuments(docs []*schema.Document) ([]hashedDoc, error) {
	seen := make(map[string]struct{}, len(docs))
	out := make([]hashedDoc, 0, len(docs))
	for i, d := range docs {
		if d == nil {
			return nil, fmt.Errorf("document #%d is nil", i)
		}
		group, ok := d.MetaData[SourceKey].(string)
		if !ok || group == "" {
			return nil, fmt.Errorf("document #%d has no %q metadata", i, SourceKey)
		}
		key, err := documentKey(d)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, hashedDoc{key: key, group: group, doc: d})
	}
	return out, nil
}

// documentKey hashes content and metadata into a deterministic point id.
func documentKey(d *schema.Document) (string, error) {
	meta, err := json.Marshal(d.MetaData)
	if err != nil {
		return "", fmt.Errorf("encode metadata of %q: %w", d.ID, err)
	}
	h := sha256.New()
	h.Write([]byte(d.Content))
	h.Write([]byte{0})
	h.Write(meta)
	sum := hex.EncodeToString(h.Sum(nil))
	return uuid.NewSHA1(pointNamespace, []byte(sum)).String(), nil
}

func uniq(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
