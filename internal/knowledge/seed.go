package knowledge

import (
	"context"
	"fmt"
	"time"

	logx "github.com/docbook-core-poc-v1/server/pkg/logger"
)

type SeedOptions struct {
	// Recreate drops the collection and forgets every record in the namespace
	// before indexing.
	Recreate bool
}

// Seed sizes the collection from a sample embedding and indexes the catalog's
// doctors into it.
func (ix *Indexer) Seed(ctx context.Context, catalog Catalog, opts SeedOptions) (IndexResult, error) {
	dim, err := Dimension(ctx, ix.embedder)
	if err != nil {
		return IndexResult{}, fmt.Errorf("sample embedding dimension: %w", err)
	}

	if err := ix.records.CreateSchema(ctx); err != nil {
		return IndexResult{}, err
	}

	if opts.Recreate {
		if err := ix.store.RecreateCollection(ctx, ix.collection, dim); err != nil {
			return IndexResult{}, fmt.Errorf("recreate collection: %w", err)
		}
		// records point at vectors that no longer exist
		keys, err := ix.records.ListKeys(ctx, nil, ix.now().Add(time.Hour))
		if err != nil {
			return IndexResult{}, fmt.Errorf("list records: %w", err)
		}
		if err := ix.records.DeleteKeys(ctx, keys); err != nil {
			return IndexResult{}, fmt.Errorf("reset records: %w", err)
		}
	} else if err := ix.store.EnsureCollection(ctx, ix.collection, dim); err != nil {
		return IndexResult{}, fmt.Errorf("ensure collection: %w", err)
	}

	logx.Info().Str("collection", ix.collection).Int("dim", dim).Int("doctors", len(catalog.Doctors)).Msg("seeding doctors")
	return ix.Index(ctx, DoctorDocuments(catalog.Doctors))
}
