package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	milvusdb "DocuMind/internal/database/milvus"
	"DocuMind/internal/rag/schema"
	"DocuMind/pkg/logger"
	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// Batching limits. The provider caps request payloads, and a vector with its
// metadata snapshot weighs roughly 15KB, so large upserts are forced down to
// smaller batches.
const (
	maxBatchSize         = 200
	largeUpsertThreshold = 50
	largeUpsertBatch     = 50

	// listQueryLimit bounds ListIDs result pages.
	listQueryLimit = int64(16384)
)

// MilvusStore implements Store on a Milvus collection, mapping each tenant
// namespace to a Milvus partition.
type MilvusStore struct {
	log        *logger.Logger
	api        milvusAPI
	collection string
	dimension  int
	batchDelay time.Duration
}

// milvusAPI is the subset of the Milvus client the store uses. client.Client
// satisfies it; tests substitute a fake.
type milvusAPI interface {
	HasPartition(ctx context.Context, collName string, partitionName string) (bool, error)
	CreatePartition(ctx context.Context, collName string, partitionName string, opts ...client.CreatePartitionOption) error
	DropPartition(ctx context.Context, collName string, partitionName string, opts ...client.DropPartitionOption) error
	Upsert(ctx context.Context, collName string, partitionName string, columns ...entity.Column) (entity.Column, error)
	Delete(ctx context.Context, collName string, partitionName string, expr string) error
	Search(ctx context.Context, collName string, partitions []string, expr string, outputFields []string, vectors []entity.Vector, vectorField string, metricType entity.MetricType, topK int, sp entity.SearchParam, opts ...client.SearchQueryOptionFunc) ([]client.SearchResult, error)
	Query(ctx context.Context, collectionName string, partitionNames []string, expr string, outputFields []string, opts ...client.SearchQueryOptionFunc) (client.ResultSet, error)
	GetCollectionStatistics(ctx context.Context, collName string) (map[string]string, error)
}

// NewMilvusStore creates a MilvusStore over an initialized Milvus client.
func NewMilvusStore(mc *milvusdb.Client, batchDelay time.Duration, log *logger.Logger) (*MilvusStore, error) {
	if mc == nil || mc.Client == nil {
		return nil, fmt.Errorf("milvus client is not initialized")
	}
	return &MilvusStore{
		log:        log,
		api:        mc.Client,
		collection: mc.Collection,
		dimension:  mc.Config.Dimension,
		batchDelay: batchDelay,
	}, nil
}

// Upsert writes vectors under the tenant's partition. The effective batch
// size is min(requested, 200), further capped to 50 when more than 50
// vectors are written at once. Batches go out sequentially with a short
// inter-batch delay; a failing batch is logged and skipped.
func (s *MilvusStore) Upsert(ctx context.Context, vectors []schema.Vector, ns schema.Namespace, batchSize int) (*UpsertResult, error) {
	if err := ns.Validate(); err != nil {
		return nil, err
	}
	result := &UpsertResult{}
	if len(vectors) == 0 {
		return result, nil
	}

	if err := s.ensurePartition(ctx, ns); err != nil {
		return nil, err
	}

	effective := batchSize
	if effective <= 0 || effective > maxBatchSize {
		effective = maxBatchSize
	}
	if len(vectors) > largeUpsertThreshold && effective > largeUpsertBatch {
		effective = largeUpsertBatch
	}

	for start := 0; start < len(vectors); start += effective {
		end := start + effective
		if end > len(vectors) {
			end = len(vectors)
		}
		batch := vectors[start:end]

		if start > 0 && s.batchDelay > 0 {
			time.Sleep(s.batchDelay)
		}

		result.BatchesSent++
		if err := s.upsertBatch(ctx, batch, ns); err != nil {
			s.log.WithError(err).Warn(fmt.Sprintf("Upsert batch %d (%d vectors) failed in namespace %s, skipping", result.BatchesSent, len(batch), ns))
			result.FailedBatches++
			result.FailedVectors += len(batch)
			continue
		}
		result.Upserted += len(batch)
	}

	s.log.Info(fmt.Sprintf("Upserted %d/%d vectors into namespace %s in %d batch(es), %d failed",
		result.Upserted, len(vectors), ns, result.BatchesSent, result.FailedBatches))
	return result, nil
}

func (s *MilvusStore) upsertBatch(ctx context.Context, batch []schema.Vector, ns schema.Namespace) error {
	ids := make([]string, len(batch))
	embeddings := make([][]float32, len(batch))
	contents := make([]string, len(batch))
	metadatas := make([][]byte, len(batch))

	for i, v := range batch {
		if len(v.Embedding) != s.dimension {
			return fmt.Errorf("vector %s has dimension %d, index expects %d", v.ID, len(v.Embedding), s.dimension)
		}
		ids[i] = v.ID
		embeddings[i] = v.Embedding
		if content, ok := v.Metadata["content"].(string); ok {
			contents[i] = content
		}
		md, err := json.Marshal(v.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode metadata for vector %s: %w", v.ID, err)
		}
		metadatas[i] = md
	}

	_, err := s.api.Upsert(ctx, s.collection, ns.String(),
		entity.NewColumnVarChar(milvusdb.FieldID, ids),
		entity.NewColumnFloatVector(milvusdb.FieldEmbedding, s.dimension, embeddings),
		entity.NewColumnVarChar(milvusdb.FieldContent, contents),
		entity.NewColumnJSONBytes(milvusdb.FieldMetadata, metadatas),
	)
	return err
}

// Query searches the tenant's partition. A namespace with no data yet simply
// yields no matches.
func (s *MilvusStore) Query(ctx context.Context, embedding []float32, topK int, ns schema.Namespace, filter map[string]interface{}) ([]schema.Match, error) {
	if err := ns.Validate(); err != nil {
		return nil, err
	}
	exists, err := s.api.HasPartition(ctx, s.collection, ns.String())
	if err != nil {
		return nil, fmt.Errorf("failed to check partition %s: %w", ns, err)
	}
	if !exists {
		return nil, nil
	}

	sp, _ := entity.NewIndexIvfFlatSearchParam(10)
	outputFields := []string{milvusdb.FieldID, milvusdb.FieldContent, milvusdb.FieldMetadata}

	results, err := s.api.Search(
		ctx, s.collection, []string{ns.String()}, buildFilterExpression(filter), outputFields,
		[]entity.Vector{entity.FloatVector(embedding)},
		milvusdb.FieldEmbedding, entity.COSINE, topK, sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search namespace %s: %w", ns, err)
	}

	var matches []schema.Match
	for _, res := range results {
		idData, contentData, metadataData := resultColumns(res)
		if idData == nil {
			s.log.Warn("Search result is missing the id field, skipping")
			continue
		}
		for i := 0; i < res.ResultCount; i++ {
			m := schema.Match{ID: idData[i], Score: res.Scores[i]}
			if contentData != nil {
				m.Content = contentData[i]
			}
			if metadataData != nil {
				md := make(map[string]interface{})
				if err := json.Unmarshal(metadataData[i], &md); err == nil {
					m.Metadata = md
				}
			}
			matches = append(matches, m)
		}
	}
	return matches, nil
}

// DeleteByIDs removes the given vector ids from the tenant's partition.
func (s *MilvusStore) DeleteByIDs(ctx context.Context, ids []string, ns schema.Namespace) error {
	if err := ns.Validate(); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	expr := fmt.Sprintf("%s in [%s]", milvusdb.FieldID, quoteJoin(ids))
	if err := s.api.Delete(ctx, s.collection, ns.String(), expr); err != nil {
		return fmt.Errorf("failed to delete %d vectors from namespace %s: %w", len(ids), ns, err)
	}
	return nil
}

// ListIDs returns every vector id stored in the tenant's partition, paging
// through the index in listQueryLimit-sized chunks.
func (s *MilvusStore) ListIDs(ctx context.Context, ns schema.Namespace) ([]string, error) {
	if err := ns.Validate(); err != nil {
		return nil, err
	}
	exists, err := s.api.HasPartition(ctx, s.collection, ns.String())
	if err != nil {
		return nil, fmt.Errorf("failed to check partition %s: %w", ns, err)
	}
	if !exists {
		return nil, nil
	}

	expr := fmt.Sprintf(`%s != ""`, milvusdb.FieldID)
	var ids []string
	for offset := int64(0); ; offset += listQueryLimit {
		rs, err := s.api.Query(ctx, s.collection, []string{ns.String()}, expr,
			[]string{milvusdb.FieldID}, client.WithOffset(offset), client.WithLimit(listQueryLimit))
		if err != nil {
			return nil, fmt.Errorf("failed to list vector ids in namespace %s: %w", ns, err)
		}
		page := resultSetIDs(rs)
		ids = append(ids, page...)
		if int64(len(page)) < listQueryLimit {
			return ids, nil
		}
	}
}

func resultSetIDs(rs client.ResultSet) []string {
	for _, col := range rs {
		if idCol, ok := col.(*entity.ColumnVarChar); ok && idCol.Name() == milvusdb.FieldID {
			return idCol.Data()
		}
	}
	return nil
}

// DropNamespace removes a tenant's entire partition. Used by tenant teardown.
func (s *MilvusStore) DropNamespace(ctx context.Context, ns schema.Namespace) error {
	if err := ns.Validate(); err != nil {
		return err
	}
	exists, err := s.api.HasPartition(ctx, s.collection, ns.String())
	if err != nil {
		return fmt.Errorf("failed to check partition %s: %w", ns, err)
	}
	if !exists {
		return nil
	}
	if err := s.api.DropPartition(ctx, s.collection, ns.String()); err != nil {
		return fmt.Errorf("failed to drop namespace %s: %w", ns, err)
	}
	s.log.Info(fmt.Sprintf("Dropped namespace %s", ns))
	return nil
}

// Stats reports vector counts for health and diagnostics.
func (s *MilvusStore) Stats(ctx context.Context, ns schema.Namespace) (*Stats, error) {
	if ns != "" {
		ids, err := s.ListIDs(ctx, ns)
		if err != nil {
			return nil, err
		}
		return &Stats{VectorCount: int64(len(ids))}, nil
	}

	stats, err := s.api.GetCollectionStatistics(ctx, s.collection)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection statistics: %w", err)
	}
	count, _ := strconv.ParseInt(stats["row_count"], 10, 64)
	return &Stats{VectorCount: count}, nil
}

func (s *MilvusStore) ensurePartition(ctx context.Context, ns schema.Namespace) error {
	exists, err := s.api.HasPartition(ctx, s.collection, ns.String())
	if err != nil {
		return fmt.Errorf("failed to check partition %s: %w", ns, err)
	}
	if exists {
		return nil
	}
	if err := s.api.CreatePartition(ctx, s.collection, ns.String()); err != nil {
		return fmt.Errorf("failed to create partition %s: %w", ns, err)
	}
	s.log.Info(fmt.Sprintf("Created namespace %s", ns))
	return nil
}

// buildFilterExpression turns a flat metadata filter into a Milvus boolean
// expression over the metadata JSON field.
func buildFilterExpression(filters map[string]interface{}) string {
	if len(filters) == 0 {
		return ""
	}
	conditions := make([]string, 0, len(filters))
	for key, value := range filters {
		switch v := value.(type) {
		case string:
			conditions = append(conditions, fmt.Sprintf(`%s["%s"] == %s`, milvusdb.FieldMetadata, key, strconv.Quote(v)))
		case int:
			conditions = append(conditions, fmt.Sprintf(`%s["%s"] == %d`, milvusdb.FieldMetadata, key, v))
		}
	}
	return strings.Join(conditions, " and ")
}

func quoteJoin(ids []string) string {
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = strconv.Quote(id)
	}
	return strings.Join(quoted, ", ")
}

func resultColumns(res client.SearchResult) (ids, contents []string, metadatas [][]byte) {
	for _, field := range res.Fields {
		switch field.Name() {
		case milvusdb.FieldID:
			if col, ok := field.(*entity.ColumnVarChar); ok {
				ids = col.Data()
			}
		case milvusdb.FieldContent:
			if col, ok := field.(*entity.ColumnVarChar); ok {
				contents = col.Data()
			}
		case milvusdb.FieldMetadata:
			if col, ok := field.(*entity.ColumnJSONBytes); ok {
				metadatas = col.Data()
			}
		}
	}
	return ids, contents, metadatas
}

var _ Store = (*MilvusStore)(nil)

// The real SDK client must keep satisfying the narrowed interface.
var _ milvusAPI = (client.Client)(nil)
