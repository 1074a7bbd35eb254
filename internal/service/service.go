package service

import (
	"context"
	"fmt"

	"DocuMind/internal/dal"
	"DocuMind/internal/database/minio"
	"DocuMind/internal/loaders"
	"DocuMind/internal/models"
	"DocuMind/internal/rag/pipeline"
	"DocuMind/internal/rag/schema"
	"DocuMind/internal/rag/vectorstore"
	"DocuMind/pkg/logger"
)

// Service is the RAG orchestrator facade the HTTP layer talks to. Every
// operation runs as one sequential unit of work; there is no internal
// fan-out and no retry.
type Service struct {
	log       *logger.Logger
	ingestion *pipeline.IngestionPipeline
	query     *pipeline.QueryPipeline
	docs      *dal.DocumentDAL
	chat      *dal.ChatDAL
	vectors   vectorstore.Store
	objects   *minio.Store // optional raw upload storage, may be nil
	extractor loaders.Extractor
	scraper   loaders.Scraper
	topK      int
}

// New creates the Service.
func New(
	log *logger.Logger,
	ingestion *pipeline.IngestionPipeline,
	query *pipeline.QueryPipeline,
	docs *dal.DocumentDAL,
	chat *dal.ChatDAL,
	vectors vectorstore.Store,
	objects *minio.Store,
	extractor loaders.Extractor,
	scraper loaders.Scraper,
	topK int,
) *Service {
	return &Service{
		log:       log,
		ingestion: ingestion,
		query:     query,
		docs:      docs,
		chat:      chat,
		vectors:   vectors,
		objects:   objects,
		extractor: extractor,
		scraper:   scraper,
		topK:      topK,
	}
}

// IngestFile extracts text from an uploaded file and runs the ingestion
// pipeline. The raw bytes are kept in object storage on a best-effort basis.
func (s *Service) IngestFile(ctx context.Context, ownerID, filename, title string, data []byte) (*pipeline.IngestResult, error) {
	extraction, err := s.extractor.Extract(data, filename)
	if err != nil {
		return nil, err
	}
	if title == "" {
		title = filename
	}

	result, err := s.ingestion.Ingest(ctx, pipeline.IngestInput{
		OwnerID:    ownerID,
		Text:       extraction.Text,
		Title:      title,
		Filename:   filename,
		Size:       int64(len(data)),
		SourceType: models.SourceTypeFile,
		Metadata:   extraction.Metadata,
	})
	if err != nil {
		return nil, err
	}

	if s.objects != nil {
		if _, err := s.objects.PutDocument(ctx, ownerID, result.Document.ID, filename, data); err != nil {
			s.log.WithOwner(ownerID).WithError(err).Warn("Failed to store raw upload, continuing")
		}
	}
	return result, nil
}

// IngestWebsite scrapes one or more pages and ingests them as a single
// logical document with page-boundary separators, not one document per page.
func (s *Service) IngestWebsite(ctx context.Context, ownerID string, urls []string, title string) (*pipeline.IngestResult, error) {
	if len(urls) == 0 {
		return nil, models.NewValidationError("no urls given")
	}

	pages, err := s.scraper.Scrape(ctx, urls)
	if err != nil {
		return nil, err
	}

	var contents []string
	var scrapedURLs []string
	firstTitle := ""
	for _, p := range pages {
		if !p.Success {
			s.log.WithOwner(ownerID).Warn(fmt.Sprintf("Failed to scrape %s: %s", p.Metadata.URL, p.Error))
			continue
		}
		contents = append(contents, p.Content)
		scrapedURLs = append(scrapedURLs, p.Metadata.URL)
		if firstTitle == "" {
			firstTitle = p.Metadata.Title
		}
	}
	if len(contents) == 0 {
		return nil, models.NewValidationError("no pages could be scraped")
	}

	if title == "" {
		title = firstTitle
	}
	if title == "" {
		title = urls[0]
	}

	return s.ingestion.Ingest(ctx, pipeline.IngestInput{
		OwnerID:    ownerID,
		Text:       pipeline.JoinPages(contents),
		Title:      title,
		SourceType: models.SourceTypeWebsite,
		Metadata: map[string]interface{}{
			"urls":   scrapedURLs,
			"domain": pages[0].Metadata.Domain,
		},
	})
}

// Query answers a question from the tenant's corpus.
func (s *Service) Query(ctx context.Context, ownerID, question string, maxResults int, sessionID string) (*pipeline.QueryResult, error) {
	if maxResults <= 0 {
		maxResults = s.topK
	}
	return s.query.Query(ctx, ownerID, question, maxResults, sessionID)
}

// ListDocuments returns the tenant's documents.
func (s *Service) ListDocuments(ctx context.Context, ownerID string) ([]models.Document, error) {
	return s.docs.ListDocuments(ctx, ownerID)
}

// GetDocument returns one of the tenant's documents.
func (s *Service) GetDocument(ctx context.Context, documentID, ownerID string) (*models.Document, error) {
	return s.docs.GetDocument(ctx, documentID, ownerID)
}

// DeleteDocument removes a document's vectors from the index and its rows
// from the relational store, returning the number of vectors deleted. A
// document owned by another tenant reads as not found; nothing is mutated.
// The two deletes are not transactional with each other; divergence is
// repaired by the reconciler.
func (s *Service) DeleteDocument(ctx context.Context, documentID, ownerID string) (int, error) {
	doc, err := s.docs.GetDocument(ctx, documentID, ownerID)
	if err != nil {
		return 0, err
	}
	ns, err := schema.NamespaceForOwner(ownerID)
	if err != nil {
		return 0, err
	}

	chunks, err := s.docs.ChunksByDocument(ctx, doc.ID)
	if err != nil {
		return 0, err
	}
	vectorIDs := make([]string, len(chunks))
	for i, c := range chunks {
		vectorIDs[i] = c.VectorID
	}

	if err := s.vectors.DeleteByIDs(ctx, vectorIDs, ns); err != nil {
		return 0, err
	}
	if err := s.docs.DeleteDocument(ctx, doc.ID); err != nil {
		return 0, err
	}

	if s.objects != nil {
		if err := s.objects.RemoveDocument(ctx, ownerID, doc.ID); err != nil {
			s.log.WithOwner(ownerID).WithError(err).Warn("Failed to remove raw upload, continuing")
		}
	}

	s.log.WithOwner(ownerID).Info(fmt.Sprintf("Deleted document %s (%d vectors)", doc.ID, len(vectorIDs)))
	return len(vectorIDs), nil
}

// ListSessions returns the tenant's chat sessions.
func (s *Service) ListSessions(ctx context.Context, ownerID string) ([]models.ChatSession, error) {
	return s.chat.ListSessions(ctx, ownerID)
}

// GetHistory returns a session's messages in creation order.
func (s *Service) GetHistory(ctx context.Context, sessionToken, ownerID string) ([]models.ChatMessage, error) {
	return s.chat.GetHistory(ctx, sessionToken, ownerID)
}

// TenantStats reports per-tenant corpus counts for diagnostics.
type TenantStats struct {
	Documents int   `json:"documents"`
	Vectors   int64 `json:"vectors"`
}

// Stats returns the tenant's document and vector counts.
func (s *Service) Stats(ctx context.Context, ownerID string) (*TenantStats, error) {
	docs, err := s.docs.ListDocuments(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	ns, err := schema.NamespaceForOwner(ownerID)
	if err != nil {
		return nil, err
	}
	vs, err := s.vectors.Stats(ctx, ns)
	if err != nil {
		return nil, err
	}
	return &TenantStats{Documents: len(docs), Vectors: vs.VectorCount}, nil
}
