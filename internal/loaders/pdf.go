package loaders

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDFText pulls the plain text out of a PDF byte stream.
func extractPDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	content, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to read PDF text: %w", err)
	}

	var sb strings.Builder
	if _, err := io.Copy(&sb, content); err != nil {
		return "", fmt.Errorf("failed to read PDF text: %w", err)
	}
	return sb.String(), nil
}
