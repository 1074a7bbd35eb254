package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Encoding maps text to and from a model's token space.
type Encoding interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

// Codec provides tokenizer-exact counting and truncation on top of an
// Encoding. Truncation operates on the token sequence, not on characters, so
// the result is always a valid prefix under the tokenizer's own round-trip.
type Codec struct {
	enc Encoding
}

// New creates a Codec backed by the cl100k_base encoding, the tokenizer of
// the OpenAI embedding and completion models this service talks to.
func New() (*Codec, error) {
	tke, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoding: %w", err)
	}
	return NewWithEncoding(&tiktokenEncoding{tke: tke}), nil
}

// NewWithEncoding creates a Codec over an arbitrary Encoding.
func NewWithEncoding(enc Encoding) *Codec {
	return &Codec{enc: enc}
}

// CountTokens returns the exact number of tokens in text.
func (c *Codec) CountTokens(text string) int {
	return len(c.enc.Encode(text))
}

// Truncate returns text cut down to at most maxTokens tokens. Text already
// within the limit is returned unchanged, which makes the operation
// idempotent.
func (c *Codec) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	tokens := c.enc.Encode(text)
	if len(tokens) <= maxTokens {
		return text
	}
	return c.enc.Decode(tokens[:maxTokens])
}

// tiktokenEncoding adapts the tiktoken API to the Encoding interface.
type tiktokenEncoding struct {
	tke *tiktoken.Tiktoken
}

func (e *tiktokenEncoding) Encode(text string) []int {
	return e.tke.Encode(text, nil, nil)
}

func (e *tiktokenEncoding) Decode(tokens []int) string {
	return e.tke.Decode(tokens)
}

var _ Encoding = (*tiktokenEncoding)(nil)
