package vectorstore

import (
	"context"
	"fmt"

	"DocuMind/internal/rag/schema"
)

// Store is the interface for the tenant-partitioned vector index. Tenant
// isolation is enforced purely by namespace scoping on every call; callers
// are responsible for supplying the namespace of the authenticated tenant.
type Store interface {
	// Upsert writes vectors under a namespace in adaptive sequential batches.
	// A failing batch is logged and skipped, not raised: callers must inspect
	// the returned result to detect incomplete writes.
	Upsert(ctx context.Context, vectors []schema.Vector, ns schema.Namespace, batchSize int) (*UpsertResult, error)

	// Query returns the topK most similar entries in the index's native
	// similarity order. No re-ranking or score normalization is applied.
	Query(ctx context.Context, embedding []float32, topK int, ns schema.Namespace, filter map[string]interface{}) ([]schema.Match, error)

	// DeleteByIDs removes the given vector ids from a namespace.
	DeleteByIDs(ctx context.Context, ids []string, ns schema.Namespace) error

	// ListIDs returns every vector id currently stored in a namespace.
	ListIDs(ctx context.Context, ns schema.Namespace) ([]string, error)

	// DropNamespace removes a tenant's entire partition.
	DropNamespace(ctx context.Context, ns schema.Namespace) error

	// Stats reports the vector count for one namespace, or for the whole
	// collection when ns is empty.
	Stats(ctx context.Context, ns schema.Namespace) (*Stats, error)
}

// Stats holds diagnostic counts for the index.
type Stats struct {
	VectorCount int64 `json:"vector_count"`
}

// UpsertResult reconciles an upsert call: Upserted+failed vectors always sum
// to the input size when no batch panics mid-flight.
type UpsertResult struct {
	Upserted      int `json:"upserted_count"`
	BatchesSent   int `json:"total_batches_sent"`
	FailedBatches int `json:"failed_batches"`
	FailedVectors int `json:"failed_vectors"`
}

// PartialFailure returns a typed error describing skipped batches, or nil
// when every batch landed. Callers must acknowledge it explicitly; the upsert
// itself never raises for a partial failure.
func (r *UpsertResult) PartialFailure() *PartialFailureError {
	if r.FailedBatches == 0 {
		return nil
	}
	return &PartialFailureError{
		FailedBatches: r.FailedBatches,
		FailedVectors: r.FailedVectors,
	}
}

// PartialFailureError reports that one or more upsert batches were skipped.
type PartialFailureError struct {
	FailedBatches int
	FailedVectors int
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%d upsert batch(es) failed, %d vectors missing from the index", e.FailedBatches, e.FailedVectors)
}
