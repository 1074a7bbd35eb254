package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"DocuMind/internal/dal"
	"DocuMind/internal/embedding"
	"DocuMind/internal/llm"
	"DocuMind/internal/models"
	"DocuMind/internal/rag/schema"
	"DocuMind/internal/rag/tokenizer"
	"DocuMind/internal/rag/vectorstore"
	"DocuMind/pkg/logger"
	"github.com/google/uuid"
)

// NoRelevantInformation is the fixed answer returned when retrieval finds
// nothing; no completion call is made in that case.
const NoRelevantInformation = "I could not find any relevant information in your documents to answer this question."

// groundedSystemPrompt instructs the completion model to answer only from the
// supplied context.
const groundedSystemPrompt = "You are a helpful assistant that answers questions using only the provided context. " +
	"If the context does not contain the information needed to answer, say that the context is insufficient. " +
	"Do not use any outside knowledge."

// QueryPipeline answers a question from a tenant's private corpus: embed the
// question, retrieve the most similar chunks, and synthesize a grounded
// answer. Turns are persisted when the caller supplies a session id.
type QueryPipeline struct {
	embedder embedding.Model
	vectors  vectorstore.Store
	model    llm.Model
	codec    *tokenizer.Codec
	chat     *dal.ChatDAL
	log      *logger.Logger
}

// NewQueryPipeline creates a new QueryPipeline.
func NewQueryPipeline(
	embedder embedding.Model,
	vectors vectorstore.Store,
	model llm.Model,
	codec *tokenizer.Codec,
	chat *dal.ChatDAL,
	log *logger.Logger,
) *QueryPipeline {
	return &QueryPipeline{
		embedder: embedder,
		vectors:  vectors,
		model:    model,
		codec:    codec,
		chat:     chat,
		log:      log,
	}
}

// Source is the per-match summary returned to the caller and snapshotted on
// the assistant turn.
type Source struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	ChunkIndex int     `json:"chunk_index"`
	Content    string  `json:"content"`
	Score      float32 `json:"score"`
}

// QueryResult is the full answer envelope.
type QueryResult struct {
	Question         string        `json:"question"`
	Answer           string        `json:"answer"`
	Sources          []Source      `json:"sources"`
	SessionID        string        `json:"session_id"`
	ProcessingTime   time.Duration `json:"-"`
	ProcessingTimeMs int64         `json:"processing_time_ms"`
	// TokensUsed is a local tokenizer estimate over question, context and
	// answer. It is a relative cost signal, not the provider's billed count.
	TokensUsed int `json:"tokens_used"`
}

// Query runs the retrieval and answer pipeline for one question.
func (p *QueryPipeline) Query(ctx context.Context, ownerID, question string, maxResults int, sessionID string) (*QueryResult, error) {
	start := time.Now()

	if strings.TrimSpace(question) == "" {
		return nil, models.NewValidationError("question is empty")
	}
	ns, err := schema.NamespaceForOwner(ownerID)
	if err != nil {
		return nil, models.NewValidationError("invalid owner id: %v", err)
	}
	if maxResults <= 0 {
		maxResults = 5
	}

	queryEmbedding, err := p.embedder.Embed(ctx, question)
	if err != nil {
		return nil, err
	}

	matches, err := p.vectors.Query(ctx, queryEmbedding, maxResults, ns, nil)
	if err != nil {
		return nil, err
	}

	supplied := sessionID != ""
	if !supplied {
		sessionID = uuid.New().String()
	}

	if len(matches) == 0 {
		p.log.WithOwner(ownerID).Info("No matches for query, returning fixed answer without a completion call")
		elapsed := time.Since(start)
		return &QueryResult{
			Question:         question,
			Answer:           NoRelevantInformation,
			Sources:          []Source{},
			SessionID:        sessionID,
			ProcessingTime:   elapsed,
			ProcessingTimeMs: elapsed.Milliseconds(),
			TokensUsed:       0,
		}, nil
	}

	// Context assembly: retrieved contents concatenated in the index's
	// returned order. No deduplication, re-ranking or length capping.
	contextText := buildContext(matches)
	userPrompt := fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextText, question)

	answer, err := p.model.Generate(ctx, groundedSystemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	tokensUsed := p.codec.CountTokens(question + contextText + answer)
	sources := buildSources(matches)
	elapsed := time.Since(start)

	if supplied {
		if err := p.persistTurn(ctx, ownerID, sessionID, question, answer, sources, tokensUsed, elapsed); err != nil {
			return nil, err
		}
	}

	return &QueryResult{
		Question:         question,
		Answer:           answer,
		Sources:          sources,
		SessionID:        sessionID,
		ProcessingTime:   elapsed,
		ProcessingTimeMs: elapsed.Milliseconds(),
		TokensUsed:       tokensUsed,
	}, nil
}

func (p *QueryPipeline) persistTurn(ctx context.Context, ownerID, sessionID, question, answer string, sources []Source, tokensUsed int, elapsed time.Duration) error {
	title := question
	if runes := []rune(title); len(runes) > 80 {
		title = string(runes[:80])
	}
	session, err := p.chat.GetOrCreateSession(ctx, sessionID, ownerID, title)
	if err != nil {
		return err
	}
	sourcesJSON, err := json.Marshal(sources)
	if err != nil {
		return fmt.Errorf("failed to encode sources: %w", err)
	}
	return p.chat.AppendTurn(ctx, session.ID, question, answer, sourcesJSON, tokensUsed, elapsed)
}

func buildContext(matches []schema.Match) string {
	var sb strings.Builder
	for i, m := range matches {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(m.Content)
	}
	return sb.String()
}

func buildSources(matches []schema.Match) []Source {
	sources := make([]Source, 0, len(matches))
	for _, m := range matches {
		src := Source{Content: m.Content, Score: m.Score}
		if id, ok := m.Metadata["document_id"].(string); ok {
			src.DocumentID = id
		}
		if title, ok := m.Metadata["title"].(string); ok {
			src.Title = title
		}
		switch idx := m.Metadata["chunk_index"].(type) {
		case float64:
			src.ChunkIndex = int(idx)
		case int:
			src.ChunkIndex = idx
		}
		sources = append(sources, src)
	}
	return sources
}
