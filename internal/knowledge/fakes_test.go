package knowledge

import (
	"context"
	"hash/fnv"
	"sort"
	"sync"

	"github.com/cloudwego/eino/components/embedding"

	pkgqdrant "github.com/docbook-core-poc-v1/server/pkg/qdrant"
)

// fakeEmbedder maps each text to a small deterministic vector.
type fakeEmbedder struct {
	mu    sync.Mutex
	calls [][]string
}

func (f *fakeEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string(nil), texts...))
	f.mu.Unlock()

	out := make([][]float64, len(texts))
	for i, t := range texts {
		h := fnv.New32a()
		h.Write([]byte(t))
		s := h.Sum32()
		out[i] = []float64{float64(s%97) + 1, float64(s%89) + 1, float64(s%83) + 1, 1}
	}
	return out, nil
}

func (f *fakeEmbedder) embedded() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += len(c)
	}
	return n
}

type fakeStore struct {
	mu         sync.Mutex
	dim        int
	recreated  int
	points     map[string]pkgqdrant.Point
	searchHits []pkgqdrant.ScoredPoint
	searchErr  error
	lastTopK   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{points: make(map[string]pkgqdrant.Point)}
}

func (f *fakeStore) EnsureCollection(_ context.Context, _ string, dim int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dim == 0 {
		f.dim = dim
	}
	return nil
}

func (f *fakeStore) RecreateCollection(_ context.Context, _ string, dim int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dim = dim
	f.recreated++
	f.points = make(map[string]pkgqdrant.Point)
	return nil
}

func (f *fakeStore) Upsert(_ context.Context, _ string, points []pkgqdrant.Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range points {
		f.points[p.ID] = p
	}
	return nil
}

func (f *fakeStore) Search(_ context.Context, _ string, _ []float32, topK int) ([]pkgqdrant.ScoredPoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastTopK = topK
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	hits := f.searchHits
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (f *fakeStore) Delete(_ context.Context, _ string, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		delete(f.points, id)
	}
	return nil
}

func (f *fakeStore) contents() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.points))
	for _, p := range f.points {
		out = append(out, p.Payload[PayloadContent].(string))
	}
	sort.Strings(out)
	return out
}
