package splitters

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"DocuMind/internal/rag/schema"
	"DocuMind/internal/rag/tokenizer"
)

// sentenceDelimiter is the literal boundary sentence-aware splitting cuts on.
const sentenceDelimiter = ". "

// SentenceSplitter splits raw text into bounded, overlapping chunks. In
// sentence-preserving mode it greedily accumulates sentence-like units and
// seeds each new chunk with the trailing overlap of the previous one; with
// PreserveSentences disabled it slides a fixed character window instead.
//
// No emitted chunk ever exceeds ChunkSize+Overlap characters, and splitting
// the same text twice yields identical chunks.
type SentenceSplitter struct {
	ChunkSize         int // characters per chunk
	Overlap           int // trailing characters carried into the next chunk
	PreserveSentences bool

	codec *tokenizer.Codec
}

// NewSentenceSplitter creates a SentenceSplitter. The codec is used to record
// a token count on every emitted chunk.
func NewSentenceSplitter(chunkSize, overlap int, codec *tokenizer.Codec) (*SentenceSplitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("overlap must be in [0, chunk size), got %d", overlap)
	}
	return &SentenceSplitter{
		ChunkSize:         chunkSize,
		Overlap:           overlap,
		PreserveSentences: true,
		codec:             codec,
	}, nil
}

// Split chunks text and returns the ordered sequence of chunks, each carrying
// its ordinal index, character count and token count. Empty or whitespace-only
// input yields no chunks.
func (s *SentenceSplitter) Split(text string) []schema.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var pieces []string
	if s.PreserveSentences {
		pieces = s.splitSentenceAware(text)
	} else {
		pieces = s.splitWindow(text)
	}

	chunks := make([]schema.Chunk, 0, len(pieces))
	for i, p := range pieces {
		chunks = append(chunks, schema.Chunk{
			Index:      i,
			Text:       p,
			CharCount:  utf8.RuneCountInString(p),
			TokenCount: s.codec.CountTokens(p),
		})
	}
	return chunks
}

// splitSentenceAware accumulates sentence units into a running buffer. When
// appending the next unit would exceed ChunkSize and the buffer is non-empty,
// the buffer is emitted and the next one is seeded with the trailing Overlap
// characters of the emitted chunk (a plain suffix copy, not unit-aware),
// followed by the pending unit. The final non-empty buffer is always emitted.
func (s *SentenceSplitter) splitSentenceAware(text string) []string {
	units := s.boundedUnits(text)

	var out []string
	var buf []rune
	for _, unit := range units {
		ru := []rune(unit)
		if len(buf) > 0 && len(buf)+len(ru) > s.ChunkSize {
			out = append(out, string(buf))
			start := len(buf) - s.Overlap
			if start < 0 {
				start = 0
			}
			buf = append([]rune(nil), buf[start:]...)
		}
		buf = append(buf, ru...)
	}
	if len(buf) > 0 {
		out = append(out, string(buf))
	}
	return out
}

// boundedUnits splits text on the sentence delimiter (keeping the delimiter
// attached to its sentence) and hard-splits any single unit longer than
// ChunkSize, so accumulation can never produce a chunk beyond
// ChunkSize+Overlap.
func (s *SentenceSplitter) boundedUnits(text string) []string {
	units := strings.SplitAfter(text, sentenceDelimiter)
	out := make([]string, 0, len(units))
	for _, u := range units {
		r := []rune(u)
		for len(r) > s.ChunkSize {
			out = append(out, string(r[:s.ChunkSize]))
			r = r[s.ChunkSize:]
		}
		if len(r) > 0 {
			out = append(out, string(r))
		}
	}
	return out
}

// splitWindow slides a fixed window of ChunkSize characters with stride
// ChunkSize-Overlap over the text.
func (s *SentenceSplitter) splitWindow(text string) []string {
	r := []rune(text)
	step := s.ChunkSize - s.Overlap

	var out []string
	for start := 0; start < len(r); start += step {
		end := start + s.ChunkSize
		if end > len(r) {
			end = len(r)
		}
		out = append(out, string(r[start:end]))
		if end == len(r) {
			break
		}
	}
	return out
}
