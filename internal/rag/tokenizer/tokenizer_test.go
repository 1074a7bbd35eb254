package tokenizer

import (
	"strings"
	"testing"
)

// runeEncoding is a deterministic Encoding for tests: one token per rune.
type runeEncoding struct{}

func (runeEncoding) Encode(text string) []int {
	runes := []rune(text)
	tokens := make([]int, len(runes))
	for i, r := range runes {
		tokens[i] = int(r)
	}
	return tokens
}

func (runeEncoding) Decode(tokens []int) string {
	var sb strings.Builder
	for _, tok := range tokens {
		sb.WriteRune(rune(tok))
	}
	return sb.String()
}

func TestCountTokens(t *testing.T) {
	c := NewWithEncoding(runeEncoding{})

	if got := c.CountTokens(""); got != 0 {
		t.Errorf("CountTokens(\"\") = %d, want 0", got)
	}
	if got := c.CountTokens("hello"); got != 5 {
		t.Errorf("CountTokens(\"hello\") = %d, want 5", got)
	}
}

func TestTruncate_WithinLimitUnchanged(t *testing.T) {
	c := NewWithEncoding(runeEncoding{})

	if got := c.Truncate("hello", 10); got != "hello" {
		t.Errorf("Truncate below limit altered text: %q", got)
	}
	if got := c.Truncate("hello", 5); got != "hello" {
		t.Errorf("Truncate at exact limit altered text: %q", got)
	}
}

func TestTruncate_CutsToLimit(t *testing.T) {
	c := NewWithEncoding(runeEncoding{})

	got := c.Truncate("hello world", 5)
	if got != "hello" {
		t.Errorf("Truncate(\"hello world\", 5) = %q, want %q", got, "hello")
	}
	if c.CountTokens(got) != 5 {
		t.Errorf("Truncated text has %d tokens, want 5", c.CountTokens(got))
	}
}

func TestTruncate_Idempotent(t *testing.T) {
	c := NewWithEncoding(runeEncoding{})

	once := c.Truncate("the same text every time", 7)
	twice := c.Truncate(once, 7)
	if once != twice {
		t.Errorf("Truncate is not idempotent: %q vs %q", once, twice)
	}
}

func TestTruncate_NonPositiveLimit(t *testing.T) {
	c := NewWithEncoding(runeEncoding{})

	if got := c.Truncate("hello", 0); got != "" {
		t.Errorf("Truncate with limit 0 = %q, want empty", got)
	}
	if got := c.Truncate("hello", -3); got != "" {
		t.Errorf("Truncate with negative limit = %q, want empty", got)
	}
}
