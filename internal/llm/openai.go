package llm

import (
	"context"
	"fmt"

	"DocuMind/internal/config"
	"DocuMind/internal/models"
	openai "github.com/meguminnnnnnnnn/go-openai"
)

// OpenAI is a completion client for the OpenAI chat API.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates a new OpenAI completion client.
func NewOpenAI(cfg *config.OpenAIConfig) *OpenAI {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.CompletionModel,
	}
}

// Generate produces an answer for userPrompt under systemPrompt. Failures are
// not retried; they surface as ExternalServiceError.
func (o *OpenAI) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", &models.ExternalServiceError{Service: "completion", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &models.ExternalServiceError{
			Service: "completion",
			Err:     fmt.Errorf("no choices returned"),
		}
	}
	return resp.Choices[0].Message.Content, nil
}

var _ Model = (*OpenAI)(nil)
