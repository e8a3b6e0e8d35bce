package qdrant

import (
	"context"
	"fmt"
	"slices"

	logx "github.com/docbook-core-poc-v1/server/pkg/logger"
	qdrant "github.com/qdrant/go-client/qdrant"
)

const defaultBatchSize = 200

// EnsureCollection creates a cosine collection of the given dimension when it
// does not exist yet. Calling it repeatedly is safe.
func (c *Client) EnsureCollection(ctx context.Context, name string, dim int) error {
	if err := validateCollection(name, dim); err != nil {
		return err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	names, err := c.api.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	if slices.Contains(names, name) {
		logx.Debug().Str("collection", name).Msg("qdrant collection already exists")
		return nil
	}
	return c.createCollection(ctx, name, dim)
}

// RecreateCollection drops the collection if present and creates it again empty.
func (c *Client) RecreateCollection(ctx context.Context, name string, dim int) error {
	if err := validateCollection(name, dim); err != nil {
		return err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	names, err := c.api.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	if slices.Contains(names, name) {
		if err := c.api.DeleteCollection(ctx, name); err != nil {
			return fmt.Errorf("delete collection %q: %w", name, err)
		}
		logx.Info().Str("collection", name).Msg("dropped qdrant collection")
	}
	return c.createCollection(ctx, name, dim)
}

func (c *Client) createCollection(ctx context.Context, name string, dim int) error {
	err := c.api.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection %q: %w", name, err)
	}
	logx.Info().Str("collection", name).Int("dim", dim).Msg("created qdrant collection")
	return nil
}

// GetCollection returns a decoupled summary of the collection.
func (c *Client) GetCollection(ctx context.Context, name string) (*Collection, error) {
	if name == "" {
		return nil, fmt.Errorf("collection name cannot be empty")
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	info, err := c.api.GetCollectionInfo(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("get collection %q: %w", name, err)
	}
	size, distance := extractVectorDetails(info)
	return &Collection{
		Name:       name,
		Status:     info.GetStatus().String(),
		Points:     info.GetPointsCount(),
		VectorSize: size,
		Distance:   distance,
	}, nil
}

// Upsert writes points in batches and waits for each batch to be persisted.
func (c *Client) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	for start := 0; start < len(points); start += defaultBatchSize {
		end := min(start+defaultBatchSize, len(points))
		structs, err := toPointStructs(points[start:end])
		if err != nil {
			return err
		}

		wait := true
		if _, err := c.api.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Points:         structs,
			Wait:           &wait,
		}); err != nil {
			return fmt.Errorf("upsert batch [%d:%d]: %w", start, end, err)
		}
		logx.Debug().Str("collection", collection).Int("from", start).Int("to", end).Msg("upserted points")
	}
	return nil
}

// Search returns the topK nearest points to vector, with payloads.
func (c *Client) Search(ctx context.Context, collection string, vector []float32, topK int) ([]ScoredPoint, error) {
	if err := validateSearchInput(collection, vector, topK); err != nil {
		return nil, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	limit := uint64(topK)
	resp, err := c.api.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("query points: %w", err)
	}
	return parseScoredPoints(resp)
}

// Delete removes points by id.
func (c *Client) Delete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	pointIDs := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		pointIDs = append(pointIDs, qdrant.NewID(id))
	}

	wait := true
	resp, err := c.api.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{Ids: pointIDs},
			},
		},
		Wait: &wait,
	})
	if err != nil {
		return fmt.Errorf("delete points: %w", err)
	}
	logx.Debug().Str("collection", collection).Int("count", len(ids)).Str("status", resp.GetStatus().String()).Msg("deleted points")
	return nil
}
