package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fumiama/go-docx"
	"github.com/ledongthuc/pdf"

	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/domain"
)

type fileKind int

const (
	kindUnknown fileKind = iota
	kindPDF
	kindDocx
	kindText
)

// Extractor converts a stored document into a single raw text blob.
type Extractor struct{}

// NewExtractor creates a new Extractor instance
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Text reads the document at path and decodes it according to its declared
// MIME type, falling back to the file extension when the type is absent or
// generic. Unsupported types fail without touching the file.
func (e *Extractor) Text(ctx context.Context, path, declaredType string) (string, error) {
	kind := resolveKind(declaredType, path)
	if kind == kindUnknown {
		return "", domain.NewUnsupportedFileTypeError(declaredType)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	switch kind {
	case kindPDF:
		return extractPDF(path)
	case kindDocx:
		return extractDocx(path)
	default:
		return extractPlainText(path)
	}
}

// resolveKind matches the declared MIME type by substring, then the file
// extension.
func resolveKind(declaredType, path string) fileKind {
	t := strings.ToLower(declaredType)
	switch {
	case strings.Contains(t, "pdf"):
		return kindPDF
	case strings.Contains(t, "wordprocessingml"), strings.Contains(t, "msword"):
		return kindDocx
	case strings.Contains(t, "text/"):
		return kindText
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return kindPDF
	case ".docx":
		return kindDocx
	case ".txt", ".md", ".text":
		return kindText
	}

	return kindUnknown
}

func extractPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}
	return buf.String(), nil
}

func extractDocx(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open docx: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat docx: %w", err)
	}

	doc, err := docx.Parse(f, info.Size())
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %w", err)
	}

	var sb strings.Builder
	for _, item := range doc.Document.Body.Items {
		switch block := item.(type) {
		case *docx.Paragraph:
			sb.WriteString(block.String())
			sb.WriteString("\n")
		case *docx.Table:
			sb.WriteString(block.String())
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

func extractPlainText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read text file: %w", err)
	}
	return string(data), nil
}
