package llm

import "context"

// Model is the interface for a completion model that answers a user prompt
// under a system instruction.
type Model interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
