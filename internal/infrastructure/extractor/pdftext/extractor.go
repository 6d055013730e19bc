package pdftext

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// Extractor pulls plain text out of PDF attachments for resolver and
// classifier enrichment. Other extensions fall through untouched: small
// text-like files come back as-is, binaries yield "".
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

const maxTextPassthrough = 1 << 20 // 1 MiB

func (e *Extractor) Extract(filename string, content []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return extractPDF(content)
	case ".txt", ".csv":
		if len(content) > maxTextPassthrough || !utf8.Valid(content) {
			return "", nil
		}
		return strings.TrimSpace(string(content)), nil
	default:
		return "", nil
	}
}

func extractPDF(content []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}
