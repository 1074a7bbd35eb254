package embedding

import (
	"context"
	"fmt"

	"DocuMind/internal/config"
	"DocuMind/internal/models"
	"DocuMind/internal/rag/tokenizer"
	openai "github.com/meguminnnnnnnnn/go-openai"
)

// OpenAIModel is an embedding client for the OpenAI API. Every input is
// truncated to the model's maximum context before the call, and every output
// vector is checked against the configured dimension. Failures are not
// retried; they surface as ExternalServiceError.
type OpenAIModel struct {
	client         *openai.Client
	model          string
	dimension      int
	maxInputTokens int
	codec          *tokenizer.Codec
}

// NewOpenAIModel creates a new OpenAIModel client.
func NewOpenAIModel(cfg *config.OpenAIConfig, codec *tokenizer.Codec) *OpenAIModel {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIModel{
		client:         openai.NewClientWithConfig(clientCfg),
		model:          cfg.EmbeddingModel,
		dimension:      cfg.EmbeddingDimension,
		maxInputTokens: cfg.MaxInputTokens,
		codec:          codec,
	}
}

// Embed generates the embedding for a single text.
func (m *OpenAIModel) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for a batch of texts.
func (m *OpenAIModel) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	input := make([]string, len(texts))
	for i, t := range texts {
		input[i] = m.codec.Truncate(t, m.maxInputTokens)
	}

	req := openai.EmbeddingRequest{
		Input: input,
		Model: openai.EmbeddingModel(m.model),
	}

	resp, err := m.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, &models.ExternalServiceError{Service: "embedding", Err: err}
	}
	if len(resp.Data) != len(input) {
		return nil, &models.ExternalServiceError{
			Service: "embedding",
			Err:     fmt.Errorf("expected %d embeddings, got %d", len(input), len(resp.Data)),
		}
	}

	embeddings := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		if len(d.Embedding) != m.dimension {
			return nil, &models.ExternalServiceError{
				Service: "embedding",
				Err:     fmt.Errorf("embedding dimension mismatch: index expects %d, model returned %d", m.dimension, len(d.Embedding)),
			}
		}
		embeddings[i] = d.Embedding
	}
	return embeddings, nil
}

var _ Model = (*OpenAIModel)(nil)
