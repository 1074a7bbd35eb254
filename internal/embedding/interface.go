package embedding

import "context"

// Model is the interface for a text embedding model. Implementations must
// return vectors of the dimension the vector index was created with.
type Model interface {
	// Embed generates the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for a batch of texts, one vector per
	// input in the same order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
