package knowledge

import (
	"context"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docbook-core-poc-v1/server/internal/agent/model"
	errx "github.com/docbook-core-poc-v1/server/internal/core/error"
	pkgqdrant "github.com/docbook-core-poc-v1/server/pkg/qdrant"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestIndexer(t *testing.T) (*Indexer, *fakeEmbedder, *fakeStore, *MemoryRecordManager, *clock) {
	t.Helper()
	emb := &fakeEmbedder{}
	store := newFakeStore()
	records := NewMemoryRecordManager("qdrant/doctors/")
	clk := &clock{t: time.Date(2025, 8, 28, 9, 0, 0, 0, time.UTC)}

	ix, err := NewIndexer(IndexerConfig{
		Embedder:   emb,
		Store:      store,
		Records:    records,
		Collection: "doctors-appointments",
		Now:        clk.now,
	})
	require.NoError(t, err)
	return ix, emb, store, records, clk
}

func TestIndexerIncremental(t *testing.T) {
	ctx := context.Background()
	ix, emb, store, _, clk := newTestIndexer(t)
	catalog := DefaultCatalog()

	res, err := ix.Index(ctx, DoctorDocuments(catalog.Doctors))
	require.NoError(t, err)
	assert.Equal(t, IndexResult{Added: 3}, res)
	assert.Equal(t, 3, emb.embedded())

	clk.t = clk.t.Add(time.Minute)
	res, err = ix.Index(ctx, DoctorDocuments(catalog.Doctors))
	require.NoError(t, err)
	assert.Equal(t, IndexResult{Skipped: 3}, res)
	assert.Equal(t, 3, emb.embedded(), "unchanged documents are not embedded again")

	clk.t = clk.t.Add(time.Minute)
	catalog.Doctors[0].Experience = "16 years"
	res, err = ix.Index(ctx, DoctorDocuments(catalog.Doctors))
	require.NoError(t, err)
	assert.Equal(t, IndexResult{Added: 1, Skipped: 2, Deleted: 1}, res)

	assert.Equal(t, []string{
		"Dr. Ahmed, Cardiology, MBBS, MD, 16 years",
		"Dr. Kamal, Neurology, MBBS, DM, 12 years",
		"Dr. Sara, Dermatology, MBBS, MD, 10 years",
	}, store.contents())
}

func TestIndexerLeavesOtherGroupsAlone(t *testing.T) {
	ctx := context.Background()
	ix, _, store, _, clk := newTestIndexer(t)
	catalog := DefaultCatalog()

	_, err := ix.Index(ctx, DoctorDocuments(catalog.Doctors))
	require.NoError(t, err)

	clk.t = clk.t.Add(time.Minute)
	res, err := ix.Index(ctx, DoctorDocuments(catalog.Doctors[:1]))
	require.NoError(t, err)
	assert.Equal(t, IndexResult{Skipped: 1}, res)
	assert.Len(t, store.contents(), 3)
}

func TestIndexerEmptyBatchKeepsEverything(t *testing.T) {
	ctx := context.Background()
	ix, _, store, records, clk := newTestIndexer(t)

	_, err := ix.Index(ctx, DoctorDocuments(DefaultCatalog().Doctors))
	require.NoError(t, err)

	clk.t = clk.t.Add(time.Minute)
	for _, docs := range [][]*schema.Document{nil, {}} {
		res, err := ix.Index(ctx, docs)
		require.NoError(t, err)
		assert.Equal(t, IndexResult{}, res)
	}

	assert.Len(t, store.contents(), 3)
	keys, err := records.ListKeys(ctx, nil, clk.t.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, keys, 3)
}

func TestSeedEmptyCatalogKeepsCollection(t *testing.T) {
	ctx := context.Background()
	ix, _, store, _, clk := newTestIndexer(t)

	_, err := ix.Seed(ctx, DefaultCatalog(), SeedOptions{})
	require.NoError(t, err)

	clk.t = clk.t.Add(time.Minute)
	res, err := ix.Seed(ctx, Catalog{}, SeedOptions{})
	require.NoError(t, err)
	assert.Zero(t, res.Deleted)
	assert.Len(t, store.contents(), 3)
}

func TestIndexerDeduplicatesBatch(t *testing.T) {
	ix, _, _, _, _ := newTestIndexer(t)
	d := DefaultCatalog().Doctors[0]

	res, err := ix.Index(context.Background(), DoctorDocuments([]model.Doctor{d, d}))
	require.NoError(t, err)
	assert.Equal(t, IndexResult{Added: 1, Skipped: 1}, res)
}

func TestIndexerRequiresSource(t *testing.T) {
	ix, _, _, _, _ := newTestIndexer(t)
	doc := DoctorDocument(DefaultCatalog().Doctors[0])
	delete(doc.MetaData, SourceKey)

	_, err := ix.Index(context.Background(), []*schema.Document{doc})
	assert.ErrorContains(t, err, "source")
}

func TestIndexerStoreReturnsPointIDs(t *testing.T) {
	ix, _, store, _, _ := newTestIndexer(t)
	docs := DoctorDocuments(DefaultCatalog().Doctors)

	ids, err := ix.Store(context.Background(), docs)
	require.NoError(t, err)
	require.Len(t, ids, 3)
	for _, id := range ids {
		_, ok := store.points[id]
		assert.True(t, ok, "point %s should exist", id)
	}

	again, err := ix.Store(context.Background(), docs)
	require.NoError(t, err)
	assert.Equal(t, ids, again)
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	ix, _, store, records, _ := newTestIndexer(t)

	res, err := ix.Seed(ctx, DefaultCatalog(), SeedOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Added)
	assert.Equal(t, 4, store.dim)

	res, err = ix.Seed(ctx, DefaultCatalog(), SeedOptions{Recreate: true})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Added, "recreating forgets old records so everything is written again")
	assert.Equal(t, 1, store.recreated)
	assert.Len(t, store.contents(), 3)

	keys, err := records.ListKeys(ctx, nil, time.Now().Add(24*365*time.Hour*10))
	require.NoError(t, err)
	assert.Len(t, keys, 3)
}

func TestRetriever(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.searchHits = []pkgqdrant.ScoredPoint{
		{ID: "a", Score: 0.91, Payload: map[string]any{
			PayloadContent:  "Dr. Ahmed, Cardiology, MBBS, MD, 15 years",
			PayloadMetadata: map[string]any{"name": "Dr. Ahmed"},
		}},
		{ID: "b", Score: 0.52, Payload: map[string]any{PayloadContent: "Dr. Kamal, Neurology, MBBS, DM, 12 years"}},
		{ID: "c", Score: 0.11, Payload: map[string]any{PayloadContent: "Dr. Sara, Dermatology, MBBS, MD, 10 years"}},
	}

	r, err := NewRetriever(RetrieverConfig{Embedder: &fakeEmbedder{}, Store: store, Collection: "doctors-appointments"})
	require.NoError(t, err)

	docs, err := r.Retrieve(ctx, "chest pain")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, 2, store.lastTopK)
	assert.Equal(t, "Dr. Ahmed, Cardiology, MBBS, MD, 15 years", docs[0].Content)
	assert.Equal(t, "Dr. Ahmed", docs[0].MetaData["name"])
	assert.InDelta(t, 0.91, docs[0].Score(), 1e-6)

	docs, err = r.Retrieve(ctx, "headache", retriever.WithTopK(1))
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.Equal(t, 1, store.lastTopK)

	_, err = r.Retrieve(ctx, "   ")
	assert.Equal(t, 400, errx.StatusOf(err))
}

func TestRetrieverWrapsStoreErrors(t *testing.T) {
	store := newFakeStore()
	store.searchErr = context.DeadlineExceeded

	r, err := NewRetriever(RetrieverConfig{Embedder: &fakeEmbedder{}, Store: store, Collection: "c"})
	require.NoError(t, err)

	_, err = r.Retrieve(context.Background(), "rash")
	require.Error(t, err)
	assert.Equal(t, 504, errx.StatusOf(err))
}
