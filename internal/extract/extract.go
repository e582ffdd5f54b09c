// Package extract converts documents on disk into plain text.
//
// Each supported format has its own Extractor. The registry maps file
// extensions to extractors; unsupported extensions are rejected before
// any file IO happens so the indexer can skip them cheaply.
package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/docdex/docdex/internal/errors"
)

// Document is the extracted plain-text form of a source file.
type Document struct {
	// SourcePath is the absolute path the document was read from.
	SourcePath string

	// Format is the short format name ("text", "markdown", "html", "docx", "pdf").
	Format string

	// Text is the full extracted text.
	Text string

	// PageTexts holds per-page text for paginated formats (PDF).
	// Nil for formats without page structure; the whole document is
	// then treated as page one.
	PageTexts []string

	// Headings lists section headings in document order, when the
	// format exposes them (markdown, html).
	Headings []string
}

// Extractor converts one file format into a Document.
type Extractor interface {
	// Extract reads and converts the file at path.
	Extract(ctx context.Context, path string) (*Document, error)

	// Extensions returns the lowercase file extensions (with dot)
	// this extractor handles.
	Extensions() []string
}

var registry = map[string]Extractor{}

func register(e Extractor) {
	for _, ext := range e.Extensions() {
		registry[ext] = e
	}
}

func init() {
	register(&TextExtractor{})
	register(&MarkdownExtractor{})
	register(&HTMLExtractor{})
	register(&DocxExtractor{})
	register(&PDFExtractor{})
}

// ForPath returns the extractor for the file's extension, or an
// unsupported-format error. Matching is case-insensitive.
func ForPath(path string) (Extractor, error) {
	ext := strings.ToLower(filepath.Ext(path))
	e, ok := registry[ext]
	if !ok {
		return nil, errors.New(errors.ErrCodeUnsupportedFormat,
			fmt.Sprintf("unsupported file format %q", ext), nil)
	}
	return e, nil
}

// Supported reports whether the file's extension has a registered extractor.
func Supported(path string) bool {
	_, ok := registry[strings.ToLower(filepath.Ext(path))]
	return ok
}

// File reads and extracts the document at path using the registered
// extractor for its extension.
func File(ctx context.Context, path string) (*Document, error) {
	e, err := ForPath(path)
	if err != nil {
		return nil, err
	}
	return e.Extract(ctx, path)
}

// readFile wraps os.ReadFile with coded errors shared by all extractors.
func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeFileNotFound,
				fmt.Sprintf("file not found: %s", path), err)
		}
		if os.IsPermission(err) {
			return nil, errors.New(errors.ErrCodeFilePermission,
				fmt.Sprintf("permission denied: %s", path), err)
		}
		return nil, errors.New(errors.ErrCodeFileNotFound,
			fmt.Sprintf("cannot read %s", path), err)
	}
	return data, nil
}
