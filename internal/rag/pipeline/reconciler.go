package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"DocuMind/internal/dal"
	"DocuMind/internal/embedding"
	"DocuMind/internal/rag/schema"
	"DocuMind/internal/rag/vectorstore"
	"DocuMind/pkg/logger"
)

// Reconciler periodically compares the vector ids the relational store
// expects against what the index actually holds, per tenant namespace.
// Relational writes and index writes are not transactional with each other,
// so the two stores can diverge after a partial upsert failure or a
// half-finished deletion; the reconciler detects and repairs both directions.
type Reconciler struct {
	docs      *dal.DocumentDAL
	vectors   vectorstore.Store
	embedder  embedding.Model
	batchSize int
	log       *logger.Logger
}

// NewReconciler creates a new Reconciler.
func NewReconciler(
	docs *dal.DocumentDAL,
	vectors vectorstore.Store,
	embedder embedding.Model,
	batchSize int,
	log *logger.Logger,
) *Reconciler {
	return &Reconciler{
		docs:      docs,
		vectors:   vectors,
		embedder:  embedder,
		batchSize: batchSize,
		log:       log,
	}
}

// Run executes a reconciliation pass every interval until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.log.Info(fmt.Sprintf("Reconciler running every %s", interval))
	for {
		select {
		case <-ctx.Done():
			r.log.Info("Reconciler stopped")
			return
		case <-ticker.C:
			if err := r.ReconcileAll(ctx); err != nil {
				r.log.WithError(err).Error("Reconciliation pass failed")
			}
		}
	}
}

// ReconcileAll reconciles every tenant namespace.
func (r *Reconciler) ReconcileAll(ctx context.Context) error {
	owners, err := r.docs.ListOwners(ctx)
	if err != nil {
		return err
	}
	for _, owner := range owners {
		if err := r.ReconcileOwner(ctx, owner); err != nil {
			r.log.WithOwner(owner).WithError(err).Error("Failed to reconcile namespace")
		}
	}
	return nil
}

// ReconcileOwner diffs one tenant's namespace: vectors missing from the index
// are re-embedded from their stored chunk content and upserted; vectors with
// no relational row are deleted from the index.
func (r *Reconciler) ReconcileOwner(ctx context.Context, ownerID string) error {
	ns, err := schema.NamespaceForOwner(ownerID)
	if err != nil {
		return err
	}

	expected, err := r.docs.VectorIDsByOwner(ctx, ownerID)
	if err != nil {
		return err
	}
	actual, err := r.vectors.ListIDs(ctx, ns)
	if err != nil {
		return err
	}

	missing, orphaned := diffIDs(expected, actual)
	if len(missing) == 0 && len(orphaned) == 0 {
		return nil
	}
	r.log.WithOwner(ownerID).Info(fmt.Sprintf("Namespace %s diverged: %d missing, %d orphaned", ns, len(missing), len(orphaned)))

	if len(missing) > 0 {
		if err := r.repairMissing(ctx, ns, missing); err != nil {
			return err
		}
	}
	if len(orphaned) > 0 {
		if err := r.vectors.DeleteByIDs(ctx, orphaned, ns); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reconciler) repairMissing(ctx context.Context, ns schema.Namespace, missing []string) error {
	chunks, err := r.docs.ChunksByVectorIDs(ctx, missing)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	embeddings, err := r.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}

	vectors := make([]schema.Vector, len(chunks))
	for i, c := range chunks {
		meta := make(map[string]interface{})
		if len(c.Metadata) > 0 {
			// Stored snapshot; ignore decode failures and fall back to the
			// minimal fields below.
			_ = json.Unmarshal(c.Metadata, &meta)
		}
		if _, ok := meta["content"]; !ok {
			meta["content"] = c.Content
		}
		vectors[i] = schema.Vector{ID: c.VectorID, Embedding: embeddings[i], Metadata: meta}
	}

	result, err := r.vectors.Upsert(ctx, vectors, ns, r.batchSize)
	if err != nil {
		return err
	}
	if pf := result.PartialFailure(); pf != nil {
		// Leave the gap for the next pass rather than retrying in-line.
		return pf
	}
	return nil
}

// diffIDs returns expected-but-absent and present-but-unexpected ids.
func diffIDs(expected, actual []string) (missing, orphaned []string) {
	actualSet := make(map[string]struct{}, len(actual))
	for _, id := range actual {
		actualSet[id] = struct{}{}
	}
	expectedSet := make(map[string]struct{}, len(expected))
	for _, id := range expected {
		expectedSet[id] = struct{}{}
		if _, ok := actualSet[id]; !ok {
			missing = append(missing, id)
		}
	}
	for _, id := range actual {
		if _, ok := expectedSet[id]; !ok {
			orphaned = append(orphaned, id)
		}
	}
	return missing, orphaned
}
