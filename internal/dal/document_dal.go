package dal

import (
	"context"
	"errors"
	"fmt"

	"DocuMind/internal/models"
	"gorm.io/gorm"
)

// DocumentDAL provides data access for documents and their chunks.
type DocumentDAL struct {
	db *gorm.DB
}

// NewDocumentDAL creates a new DocumentDAL.
func NewDocumentDAL(db *gorm.DB) *DocumentDAL {
	return &DocumentDAL{db: db}
}

// CreateDocument inserts a new document row, normally with status processing.
func (dal *DocumentDAL) CreateDocument(ctx context.Context, doc *models.Document) error {
	if err := dal.db.WithContext(ctx).Create(doc).Error; err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// GetDocument fetches a document scoped to its owner. A document owned by a
// different tenant is reported as not found, never as forbidden.
func (dal *DocumentDAL) GetDocument(ctx context.Context, id, ownerID string) (*models.Document, error) {
	var doc models.Document
	err := dal.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &models.NotFoundError{Resource: "document"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

// ListDocuments returns a tenant's documents, newest first.
func (dal *DocumentDAL) ListDocuments(ctx context.Context, ownerID string) ([]models.Document, error) {
	var docs []models.Document
	err := dal.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}

// MarkCompleted transitions a document from processing to completed and
// records its chunk count. The status guard keeps terminal states immutable.
func (dal *DocumentDAL) MarkCompleted(ctx context.Context, id string, chunkCount int) error {
	err := dal.db.WithContext(ctx).
		Model(&models.Document{}).
		Where("id = ? AND status = ?", id, models.DocumentStatusProcessing).
		Updates(map[string]interface{}{
			"status":      models.DocumentStatusCompleted,
			"chunk_count": chunkCount,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to mark document completed: %w", err)
	}
	return nil
}

// MarkFailed transitions a document from processing to failed. Callers invoke
// it best-effort; a store outage here is logged by the caller, not retried.
func (dal *DocumentDAL) MarkFailed(ctx context.Context, id string) error {
	err := dal.db.WithContext(ctx).
		Model(&models.Document{}).
		Where("id = ? AND status = ?", id, models.DocumentStatusProcessing).
		Update("status", models.DocumentStatusFailed).Error
	if err != nil {
		return fmt.Errorf("failed to mark document failed: %w", err)
	}
	return nil
}

// CreateChunks persists all chunk rows of one document in a single batch.
func (dal *DocumentDAL) CreateChunks(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := dal.db.WithContext(ctx).Create(&chunks).Error; err != nil {
		return fmt.Errorf("failed to create chunks: %w", err)
	}
	return nil
}

// ChunksByDocument returns a document's chunks in ordinal order.
func (dal *DocumentDAL) ChunksByDocument(ctx context.Context, documentID string) ([]models.Chunk, error) {
	var chunks []models.Chunk
	err := dal.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("chunk_index ASC").
		Find(&chunks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}
	return chunks, nil
}

// ChunksByVectorIDs loads chunk rows by their vector identifiers. Used by the
// reconciler to re-embed vectors missing from the index.
func (dal *DocumentDAL) ChunksByVectorIDs(ctx context.Context, vectorIDs []string) ([]models.Chunk, error) {
	if len(vectorIDs) == 0 {
		return nil, nil
	}
	var chunks []models.Chunk
	err := dal.db.WithContext(ctx).
		Where("vector_id IN ?", vectorIDs).
		Order("vector_id ASC").
		Find(&chunks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks by vector id: %w", err)
	}
	return chunks, nil
}

// VectorIDsByOwner returns every vector id the relational store expects to
// exist in the owner's namespace, across completed documents only.
func (dal *DocumentDAL) VectorIDsByOwner(ctx context.Context, ownerID string) ([]string, error) {
	var ids []string
	err := dal.db.WithContext(ctx).
		Model(&models.Chunk{}).
		Joins("JOIN documents ON documents.id = chunks.document_id").
		Where("documents.owner_id = ? AND documents.status = ?", ownerID, models.DocumentStatusCompleted).
		Pluck("chunks.vector_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list vector ids for owner: %w", err)
	}
	return ids, nil
}

// ListOwners returns the distinct owners that have at least one document.
func (dal *DocumentDAL) ListOwners(ctx context.Context) ([]string, error) {
	var owners []string
	err := dal.db.WithContext(ctx).
		Model(&models.Document{}).
		Distinct("owner_id").
		Pluck("owner_id", &owners).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list owners: %w", err)
	}
	return owners, nil
}

// DeleteDocument removes a document and its chunks. The chunk delete is
// explicit so the cascade does not depend on database-level FK settings.
func (dal *DocumentDAL) DeleteDocument(ctx context.Context, id string) error {
	return dal.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", id).Delete(&models.Chunk{}).Error; err != nil {
			return fmt.Errorf("failed to delete chunks: %w", err)
		}
		if err := tx.Where("id = ?", id).Delete(&models.Document{}).Error; err != nil {
			return fmt.Errorf("failed to delete document: %w", err)
		}
		return nil
	})
}
