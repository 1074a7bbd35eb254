package milvus

import (
	"context"
	"fmt"

	"DocuMind/internal/config"
	"DocuMind/pkg/logger"
	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// Collection schema fields. The collection is shared by every tenant; tenant
// isolation happens at the partition level, never through these fields.
const (
	FieldID        = "id"
	FieldEmbedding = "embedding"
	FieldContent   = "content"
	FieldMetadata  = "metadata"
)

// Client wraps the Milvus SDK client together with the collection it manages.
type Client struct {
	Client     client.Client
	Config     *config.MilvusConfig
	Collection string
	log        *logger.Logger
}

// NewClient connects to Milvus. The returned client is owned by the caller
// and injected where needed.
func NewClient(ctx context.Context, cfg *config.MilvusConfig, log *logger.Logger) (*Client, error) {
	c, err := client.NewClient(ctx, client.Config{Address: cfg.Address})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Milvus: %w", err)
	}
	return &Client{
		Client:     c,
		Config:     cfg,
		Collection: cfg.CollectionName,
		log:        log,
	}, nil
}

// EnsureCollection creates the collection and its index if they do not exist,
// then loads the collection into memory. The embedding dimension is fixed
// here; vectors of any other dimension are rejected at insert time.
func (c *Client) EnsureCollection(ctx context.Context) error {
	exists, err := c.Client.HasCollection(ctx, c.Collection)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if !exists {
		schema := entity.NewSchema().
			WithName(c.Collection).
			WithDescription("tenant-partitioned document chunk embeddings").
			WithField(entity.NewField().
				WithName(FieldID).
				WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(255).
				WithIsPrimaryKey(true)).
			WithField(entity.NewField().
				WithName(FieldEmbedding).
				WithDataType(entity.FieldTypeFloatVector).
				WithDim(int64(c.Config.Dimension))).
			WithField(entity.NewField().
				WithName(FieldContent).
				WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(65535)).
			WithField(entity.NewField().
				WithName(FieldMetadata).
				WithDataType(entity.FieldTypeJSON))

		if err := c.Client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("failed to create collection '%s': %w", c.Collection, err)
		}

		idx, err := entity.NewIndexIvfFlat(entity.COSINE, 128)
		if err != nil {
			return fmt.Errorf("failed to build index definition: %w", err)
		}
		if err := c.Client.CreateIndex(ctx, c.Collection, FieldEmbedding, idx, false); err != nil {
			return fmt.Errorf("failed to create index on '%s': %w", FieldEmbedding, err)
		}
		c.log.Info(fmt.Sprintf("Created Milvus collection '%s' (dim=%d)", c.Collection, c.Config.Dimension))
	}

	if err := c.Client.LoadCollection(ctx, c.Collection, false); err != nil {
		return fmt.Errorf("failed to load collection '%s': %w", c.Collection, err)
	}
	return nil
}

// HealthCheck verifies the connection is usable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.Client == nil {
		return fmt.Errorf("milvus client is not initialized")
	}
	if _, err := c.Client.ListCollections(ctx); err != nil {
		return fmt.Errorf("milvus health check failed: %w", err)
	}
	return nil
}

// Close releases the connection.
func (c *Client) Close() {
	if c.Client != nil {
		c.Client.Close()
	}
}
