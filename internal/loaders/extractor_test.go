package loaders

import (
	"errors"
	"strings"
	"testing"

	"DocuMind/internal/models"
)

func TestSanitize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"strips null bytes", "before\x00after", "beforeafter"},
		{"strips control chars", "a\x01\x02b\x7fc", "abc"},
		{"collapses spaces and tabs", "too   many\t\tgaps", "too many gaps"},
		{"collapses blank line runs", "one\n\n\n\n\ntwo", "one\n\ntwo"},
		{"keeps single blank lines", "one\n\ntwo", "one\n\ntwo"},
		{"trims edges", "  padded  \n", "padded"},
		{"empty stays empty", "   \n\n  ", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Sanitize(tc.in); got != tc.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestExtract_PlainText(t *testing.T) {
	e := NewFileExtractor()

	extraction, err := e.Extract([]byte("Plain text survives   extraction.\n"), "notes.txt")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if extraction.Text != "Plain text survives extraction." {
		t.Errorf("Unexpected text: %q", extraction.Text)
	}
	if extraction.Metadata["filename"] != "notes.txt" {
		t.Errorf("Filename not recorded: %v", extraction.Metadata["filename"])
	}
	ct, _ := extraction.Metadata["content_type"].(string)
	if !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Unexpected content type: %s", ct)
	}
}

func TestExtract_HTML(t *testing.T) {
	e := NewFileExtractor()
	page := `<!DOCTYPE html><html><head><title>T</title></head><body><h1>Heading</h1><p>Body text here.</p></body></html>`

	extraction, err := e.Extract([]byte(page), "page.html")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !strings.Contains(extraction.Text, "Heading") || !strings.Contains(extraction.Text, "Body text here.") {
		t.Errorf("HTML content lost: %q", extraction.Text)
	}
	if strings.Contains(extraction.Text, "<p>") {
		t.Errorf("Markup leaked into text: %q", extraction.Text)
	}
}

func TestExtract_EmptyFile(t *testing.T) {
	e := NewFileExtractor()

	_, err := e.Extract(nil, "empty.txt")
	var validation *models.ValidationError
	if !errors.As(err, &validation) {
		t.Errorf("Expected a validation error, got %v", err)
	}
}

func TestExtract_UnsupportedType(t *testing.T) {
	e := NewFileExtractor()

	// PNG magic bytes.
	_, err := e.Extract([]byte("\x89PNG\r\n\x1a\n0000"), "image.png")
	var validation *models.ValidationError
	if !errors.As(err, &validation) {
		t.Errorf("Expected a validation error, got %v", err)
	}
}

func TestExtractHTMLTitle(t *testing.T) {
	title := extractHTMLTitle(`<html><head><title>  Docs Home </title></head><body></body></html>`)
	if title != "Docs Home" {
		t.Errorf("extractHTMLTitle() = %q, want %q", title, "Docs Home")
	}
	if got := extractHTMLTitle(`<html><body><p>no title</p></body></html>`); got != "" {
		t.Errorf("Expected empty title, got %q", got)
	}
}
