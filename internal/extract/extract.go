// Package extract turns uploaded documents into plain text.
package extract

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_extractor.go -package=mocks clarifyai/internal/extract Extractor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"clarifyai/internal/apperr"
)

// SupportedExtensions lists the file extensions Extract understands.
var SupportedExtensions = []string{".pdf", ".docx", ".md", ".txt"}

// Extractor reads the text content of a file.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// Supported reports whether the extension of name can be extracted.
func Supported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range SupportedExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// FileExtractor dispatches on the file extension.
type FileExtractor struct{}

// New returns the default extractor.
func New() *FileExtractor {
	return &FileExtractor{}
}

// Extract returns the text of path. An empty document yields an empty string
// and no error. Every failure wraps apperr.ErrExtraction.
func (e *FileExtractor) Extract(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !Supported(ext) {
		return "", apperr.Classify(apperr.ErrExtraction,
			fmt.Errorf("unsupported file type %q", ext), "extract "+filepath.Base(path))
	}

	var (
		text string
		err  error
	)
	switch ext {
	case ".pdf":
		text, err = extractPDF(path)
	case ".docx":
		text, err = extractDOCX(path)
	case ".md":
		var data []byte
		data, err = os.ReadFile(path)
		if err == nil {
			text = MarkdownText(data)
		}
	default:
		var data []byte
		data, err = os.ReadFile(path)
		text = string(data)
	}
	if err != nil {
		return "", apperr.Classify(apperr.ErrExtraction, err, "extract "+filepath.Base(path))
	}
	return text, nil
}
