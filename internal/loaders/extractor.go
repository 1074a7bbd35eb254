package loaders

import (
	"strings"
	"unicode"

	"DocuMind/internal/models"
	"github.com/gabriel-vasile/mimetype"
)

// Extraction is the text and provenance a format-specific extractor hands to
// the ingestion pipeline. The text is already sanitized: null bytes and
// non-printable control characters stripped, whitespace normalized.
type Extraction struct {
	Text     string
	Metadata map[string]interface{}
}

// Extractor turns raw uploaded bytes into plain text.
type Extractor interface {
	Extract(data []byte, filename string) (*Extraction, error)
}

// FileExtractor dispatches on the sniffed content type of the upload. Plain
// text, markdown, HTML and PDF are supported; anything else is a validation
// error.
type FileExtractor struct{}

// NewFileExtractor creates a new FileExtractor.
func NewFileExtractor() *FileExtractor {
	return &FileExtractor{}
}

// Extract detects the upload's type and extracts its text.
func (e *FileExtractor) Extract(data []byte, filename string) (*Extraction, error) {
	if len(data) == 0 {
		return nil, models.NewValidationError("uploaded file is empty")
	}

	mtype := mimetype.Detect(data)
	var text string
	var err error
	switch {
	case mtype.Is("application/pdf"):
		text, err = extractPDFText(data)
	case mtype.Is("text/html"):
		text, err = extractHTMLText(string(data))
	case strings.HasPrefix(mtype.String(), "text/"):
		text = string(data)
	default:
		return nil, models.NewValidationError("unsupported file type %s", mtype.String())
	}
	if err != nil {
		return nil, err
	}

	text = Sanitize(text)
	if text == "" {
		return nil, models.NewValidationError("no text could be extracted from %s", filename)
	}

	return &Extraction{
		Text: text,
		Metadata: map[string]interface{}{
			"filename":     filename,
			"content_type": mtype.String(),
		},
	}, nil
}

// Sanitize strips null bytes and non-printable control characters and
// normalizes whitespace: runs of spaces and tabs collapse to one space,
// runs of three or more newlines collapse to two.
func Sanitize(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range text {
		if r == 0 || (unicode.IsControl(r) && r != '\n' && r != '\t') {
			continue
		}
		sb.WriteRune(r)
	}

	lines := strings.Split(sb.String(), "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	out := strings.Join(lines, "\n")

	for strings.Contains(out, "\n\n\n") {
		out = strings.ReplaceAll(out, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(out)
}

var _ Extractor = (*FileExtractor)(nil)
