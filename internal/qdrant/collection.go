package qdrant

import (
	"context"
	"fmt"
	"strings"

	"github.com/qdrant/go-client/qdrant"
)

// CreateCollection creates a collection with named dense and sparse
// vectors. Creating an existing collection is a no-op.
func (c *Client) CreateCollection(ctx context.Context, cfg CollectionConfig) error {
	ctx, cancel, err := c.opContext(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	name := c.qualify(cfg.Name)

	exists, err := c.collectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", name, err)
	}
	if exists {
		return nil
	}

	err = c.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			"dense": {
				Size:     cfg.DenseVectorSize,
				Distance: qdrant.Distance_Cosine,
				OnDisk:   qdrant.PtrOf(false),
			},
		}),
		SparseVectorsConfig: &qdrant.SparseVectorConfig{
			Map: map[string]*qdrant.SparseVectorParams{
				"sparse": {
					Index: &qdrant.SparseIndexConfig{
						OnDisk:            qdrant.PtrOf(false),
						FullScanThreshold: qdrant.PtrOf(uint64(10000)),
					},
				},
			},
		},
		OnDiskPayload: qdrant.PtrOf(cfg.OnDiskPayload),
		OptimizersConfig: &qdrant.OptimizersConfigDiff{
			IndexingThreshold: qdrant.PtrOf(cfg.IndexingThreshold),
		},
	})
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", name, err)
	}

	return c.createPayloadIndexes(ctx, name)
}

// createPayloadIndexes indexes the payload fields used for filtering.
func (c *Client) createPayloadIndexes(ctx context.Context, collection string) error {
	fields := []string{"corpus", "external_id", "content_hash"}

	for _, field := range fields {
		_, err := c.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: collection,
			FieldName:      field,
			FieldType:      qdrant.PtrOf(qdrant.FieldType_FieldTypeKeyword),
		})
		if err != nil && !strings.Contains(err.Error(), "already exists") {
			return fmt.Errorf("indexing payload field %s: %w", field, err)
		}
	}
	return nil
}

// DeleteCollection deletes the collection mirroring a corpus.
func (c *Client) DeleteCollection(ctx context.Context, name string) error {
	ctx, cancel, err := c.opContext(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	if err := c.client.DeleteCollection(ctx, c.qualify(name)); err != nil {
		return fmt.Errorf("deleting collection %s: %w", name, err)
	}
	return nil
}

// ListCollections returns the corpora mirrored on this instance, with
// the collection prefix stripped.
func (c *Client) ListCollections(ctx context.Context) ([]string, error) {
	ctx, cancel, err := c.opContext(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	collections, err := c.client.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}

	prefix := c.config.CollectionPrefix
	var result []string
	for _, col := range collections {
		if strings.HasPrefix(col, prefix) {
			result = append(result, strings.TrimPrefix(col, prefix))
		}
	}
	return result, nil
}

// GetCollectionInfo returns point count and health for a corpus mirror.
func (c *Client) GetCollectionInfo(ctx context.Context, name string) (*CollectionInfo, error) {
	ctx, cancel, err := c.opContext(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	info, err := c.client.GetCollectionInfo(ctx, c.qualify(name))
	if err != nil {
		return nil, fmt.Errorf("reading collection info for %s: %w", name, err)
	}

	status := "unknown"
	switch info.Status {
	case qdrant.CollectionStatus_Green:
		status = "green"
	case qdrant.CollectionStatus_Yellow:
		status = "yellow"
	case qdrant.CollectionStatus_Red:
		status = "red"
	}

	var pointsCount uint64
	if info.PointsCount != nil {
		pointsCount = *info.PointsCount
	}

	return &CollectionInfo{
		Name:          name,
		PointsCount:   pointsCount,
		Status:        status,
		SegmentsCount: uint64(info.SegmentsCount),
	}, nil
}

// CollectionExists checks if a corpus has a mirror collection.
func (c *Client) CollectionExists(ctx context.Context, name string) (bool, error) {
	ctx, cancel, err := c.opContext(ctx)
	if err != nil {
		return false, err
	}
	defer cancel()

	return c.collectionExists(ctx, c.qualify(name))
}

// collectionExists expects the full, prefixed collection name.
func (c *Client) collectionExists(ctx context.Context, fullName string) (bool, error) {
	collections, err := c.client.ListCollections(ctx)
	if err != nil {
		return false, err
	}
	for _, col := range collections {
		if col == fullName {
			return true, nil
		}
	}
	return false, nil
}
