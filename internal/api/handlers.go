package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"DocuMind/internal/models"
	"DocuMind/internal/service"
)

// maxUploadBytes bounds a single file upload.
const maxUploadBytes = 32 << 20

// HealthProbe checks one backing dependency.
type HealthProbe func(ctx context.Context) error

// Handler bundles the HTTP endpoint handlers.
type Handler struct {
	service *service.Service
	probes  map[string]HealthProbe
}

// NewHandler creates a new Handler instance. probes maps a dependency name
// (for example "mysql") to its health check; it may be nil.
func NewHandler(s *service.Service, probes map[string]HealthProbe) *Handler {
	return &Handler{service: s, probes: probes}
}

// writeError maps domain errors onto HTTP status codes.
func writeError(c *gin.Context, err error) {
	var validation *models.ValidationError
	var notFound *models.NotFoundError
	var external *models.ExternalServiceError
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &external):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// --- Ingestion Handlers ---

// UploadDocument ingests a multipart file upload. The optional "title" form
// field overrides the document title; it defaults to the filename.
func (h *Handler) UploadDocument(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return
	}
	if fileHeader.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.IngestFile(c.Request.Context(), ownerID(c), fileHeader.Filename, c.PostForm("title"), data)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"document_id": result.Document.ID,
		"status":      result.Document.Status,
		"chunk_count": result.ChunkCount,
	})
}

// IngestWebsiteRequest is the JSON body for website ingestion.
type IngestWebsiteRequest struct {
	URLs  []string `json:"urls" binding:"required,min=1"`
	Title string   `json:"title"`
}

// IngestWebsite scrapes the given pages and ingests them as one document.
func (h *Handler) IngestWebsite(c *gin.Context) {
	var req IngestWebsiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.IngestWebsite(c.Request.Context(), ownerID(c), req.URLs, req.Title)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"document_id": result.Document.ID,
		"status":      result.Document.Status,
		"chunk_count": result.ChunkCount,
	})
}

// --- Query Handlers ---

// QueryRequest is the JSON body for a RAG query.
type QueryRequest struct {
	Question   string `json:"question" binding:"required"`
	MaxResults int    `json:"max_results"`
	SessionID  string `json:"session_id"`
}

// Query answers a question grounded in the tenant's corpus.
func (h *Handler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Query(c.Request.Context(), ownerID(c), req.Question, req.MaxResults, req.SessionID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// --- Document Handlers ---

// ListDocuments returns the tenant's documents.
func (h *Handler) ListDocuments(c *gin.Context) {
	docs, err := h.service.ListDocuments(c.Request.Context(), ownerID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

// GetDocument returns one document by id.
func (h *Handler) GetDocument(c *gin.Context) {
	doc, err := h.service.GetDocument(c.Request.Context(), c.Param("id"), ownerID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// DeleteDocument removes a document and its vectors.
func (h *Handler) DeleteDocument(c *gin.Context) {
	deleted, err := h.service.DeleteDocument(c.Request.Context(), c.Param("id"), ownerID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted_vectors": deleted})
}

// --- Chat History Handlers ---

// ListSessions returns the tenant's chat sessions.
func (h *Handler) ListSessions(c *gin.Context) {
	sessions, err := h.service.ListSessions(c.Request.Context(), ownerID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// GetHistory returns a session's messages in chronological order.
func (h *Handler) GetHistory(c *gin.Context) {
	messages, err := h.service.GetHistory(c.Request.Context(), c.Param("token"), ownerID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// --- Diagnostics ---

// Stats returns the tenant's document and vector counts.
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context(), ownerID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Health reports the status of each backing dependency. Any failing probe
// makes the whole endpoint report unhealthy with a 503.
func (h *Handler) Health(c *gin.Context) {
	status := http.StatusOK
	checks := gin.H{}
	for name, probe := range h.probes {
		if err := probe(c.Request.Context()); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			checks[name] = "ok"
		}
	}
	c.JSON(status, gin.H{"healthy": status == http.StatusOK, "checks": checks})
}
