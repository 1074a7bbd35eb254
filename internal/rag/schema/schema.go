package schema

// Chunk is a bounded, possibly overlapping segment of a source document's
// text. It is the primary data carrier through the ingestion pipeline.
type Chunk struct {
	// Index is the ordinal position of the chunk within its document,
	// contiguous from 0.
	Index int

	// Text is the chunk content.
	Text string

	// CharCount is the character (rune) count of Text, recorded at split time.
	CharCount int

	// TokenCount is the tokenizer-exact token count of Text.
	TokenCount int
}

// Vector is one entry destined for or retrieved from the vector index.
type Vector struct {
	// ID is the globally unique vector identifier, derived deterministically
	// from the document id and the chunk ordinal.
	ID string

	// Embedding is the fixed-dimension vector representation.
	Embedding []float32

	// Metadata is the denormalized snapshot stored alongside the vector so
	// retrieval does not need a second fetch.
	Metadata map[string]interface{}
}

// Match is one ranked result of a similarity query, in the index's native
// similarity order.
type Match struct {
	ID       string
	Score    float32
	Content  string
	Metadata map[string]interface{}
}
