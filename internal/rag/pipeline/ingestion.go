package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"DocuMind/internal/dal"
	"DocuMind/internal/embedding"
	"DocuMind/internal/models"
	"DocuMind/internal/rag/schema"
	"DocuMind/internal/rag/splitters"
	"DocuMind/internal/rag/vectorstore"
	"DocuMind/pkg/logger"
	"github.com/google/uuid"
)

// pageSeparator joins scraped pages into one logical website document.
const pageSeparator = "\n\n---\n\n"

// IngestionPipeline drives text through chunking, embedding, vector upsert
// and relational persistence. Each run is a single sequential unit of work:
// chunks are embedded and upserted strictly in order, with no internal
// fan-out.
type IngestionPipeline struct {
	splitter  *splitters.SentenceSplitter
	embedder  embedding.Model
	vectors   vectorstore.Store
	docs      *dal.DocumentDAL
	batchSize int
	log       *logger.Logger
}

// NewIngestionPipeline creates a new IngestionPipeline.
func NewIngestionPipeline(
	splitter *splitters.SentenceSplitter,
	embedder embedding.Model,
	vectors vectorstore.Store,
	docs *dal.DocumentDAL,
	batchSize int,
	log *logger.Logger,
) *IngestionPipeline {
	return &IngestionPipeline{
		splitter:  splitter,
		embedder:  embedder,
		vectors:   vectors,
		docs:      docs,
		batchSize: batchSize,
		log:       log,
	}
}

// IngestInput describes one document to ingest.
type IngestInput struct {
	OwnerID    string
	Text       string
	Title      string
	Filename   string
	Size       int64
	SourceType string // models.SourceTypeFile or models.SourceTypeWebsite
	Metadata   map[string]interface{}
}

// IngestResult reports a finished ingestion. Upsert carries the batch
// arithmetic; callers must acknowledge Upsert.PartialFailure() to detect
// vectors missing from the index.
type IngestResult struct {
	Document   *models.Document
	ChunkCount int
	Upsert     *vectorstore.UpsertResult
}

// Ingest runs the full pipeline. The document row is created first with
// status processing; any later error marks it failed (best effort) and is
// returned. Steps already completed are not rolled back. Chunk rows carrying
// the intended vector ids are persisted before the index upsert, so the
// relational store always records what the index is supposed to contain.
func (p *IngestionPipeline) Ingest(ctx context.Context, in IngestInput) (*IngestResult, error) {
	if strings.TrimSpace(in.Text) == "" {
		return nil, models.NewValidationError("document text is empty")
	}
	ns, err := schema.NamespaceForOwner(in.OwnerID)
	if err != nil {
		return nil, models.NewValidationError("invalid owner id: %v", err)
	}

	metadata, err := json.Marshal(in.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document metadata: %w", err)
	}

	doc := &models.Document{
		ID:              uuid.New().String(),
		OwnerID:         in.OwnerID,
		Title:           in.Title,
		Filename:        in.Filename,
		Size:            in.Size,
		SourceType:      in.SourceType,
		Status:          models.DocumentStatusProcessing,
		VectorNamespace: ns.String(),
		Metadata:        metadata,
	}
	if err := p.docs.CreateDocument(ctx, doc); err != nil {
		return nil, err
	}

	result, err := p.run(ctx, doc, in, ns)
	if err != nil {
		if markErr := p.docs.MarkFailed(ctx, doc.ID); markErr != nil {
			p.log.WithError(markErr).Error(fmt.Sprintf("Failed to mark document %s as failed", doc.ID))
		}
		return nil, err
	}
	return result, nil
}

func (p *IngestionPipeline) run(ctx context.Context, doc *models.Document, in IngestInput, ns schema.Namespace) (*IngestResult, error) {
	chunks := p.splitter.Split(in.Text)
	if len(chunks) == 0 {
		return nil, models.NewValidationError("document produced no chunks")
	}
	p.log.Info(fmt.Sprintf("Split document %s into %d chunks", doc.ID, len(chunks)))

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	embeddings, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}

	vectors := make([]schema.Vector, len(chunks))
	rows := make([]models.Chunk, len(chunks))
	for i, c := range chunks {
		vectorID := VectorID(doc.ID, c.Index)
		meta := chunkMetadata(doc, in, c)

		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return nil, fmt.Errorf("failed to encode chunk metadata: %w", err)
		}

		hash := sha256.Sum256([]byte(c.Text))
		rows[i] = models.Chunk{
			ID:          uuid.New().String(),
			DocumentID:  doc.ID,
			ChunkIndex:  c.Index,
			Content:     c.Text,
			ContentHash: hex.EncodeToString(hash[:]),
			VectorID:    vectorID,
			Metadata:    metaJSON,
		}
		vectors[i] = schema.Vector{
			ID:        vectorID,
			Embedding: embeddings[i],
			Metadata:  meta,
		}
	}

	// Relational rows first: the intended vector set is on record before the
	// index is touched, which is what the reconciler diffs against.
	if err := p.docs.CreateChunks(ctx, rows); err != nil {
		return nil, err
	}

	upsert, err := p.vectors.Upsert(ctx, vectors, ns, p.batchSize)
	if err != nil {
		return nil, err
	}
	if pf := upsert.PartialFailure(); pf != nil {
		p.log.WithOwner(in.OwnerID).Warn(fmt.Sprintf("Document %s ingested with partial index failure: %v", doc.ID, pf))
	}

	if err := p.docs.MarkCompleted(ctx, doc.ID, len(chunks)); err != nil {
		return nil, err
	}
	doc.Status = models.DocumentStatusCompleted
	doc.ChunkCount = len(chunks)

	p.log.Info(fmt.Sprintf("Finished ingesting document %s (%d chunks)", doc.ID, len(chunks)))
	return &IngestResult{Document: doc, ChunkCount: len(chunks), Upsert: upsert}, nil
}

// JoinPages concatenates scraped pages into one logical website document with
// page-boundary separators, rather than one document per page.
func JoinPages(pages []string) string {
	return strings.Join(pages, pageSeparator)
}

// VectorID derives the deterministic, globally unique vector identifier for
// one chunk of one document.
func VectorID(documentID string, chunkIndex int) string {
	return fmt.Sprintf("doc_%s_chunk_%d", documentID, chunkIndex)
}

// chunkMetadata builds the denormalized snapshot stored both on the chunk row
// and in the vector index, so retrieval needs no second fetch.
func chunkMetadata(doc *models.Document, in IngestInput, c schema.Chunk) map[string]interface{} {
	meta := map[string]interface{}{
		"document_id": doc.ID,
		"owner_id":    in.OwnerID,
		"title":       in.Title,
		"chunk_index": c.Index,
		"content":     c.Text,
		"char_count":  c.CharCount,
		"token_count": c.TokenCount,
		"source_type": in.SourceType,
	}
	for k, v := range in.Metadata {
		if _, taken := meta[k]; !taken {
			meta[k] = v
		}
	}
	return meta
}
