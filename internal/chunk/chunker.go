// Package chunk splits extracted documents into overlapping token
// windows ready for embedding. Chunk IDs are deterministic, so
// reindexing a file overwrites its previous chunks instead of
// duplicating them.
package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/docdex/docdex/internal/errors"
	"github.com/docdex/docdex/internal/extract"
)

// Chunk is one embeddable slice of a document.
type Chunk struct {
	// ID is the deterministic chunk identifier.
	ID string `json:"id"`

	// Text is the chunk content, trimmed of surrounding whitespace.
	Text string `json:"text"`

	// SourceFile is the file name of the originating document, without
	// directories. Documents are addressed by name everywhere outside
	// the indexer.
	SourceFile string `json:"source_file"`

	// Index is the zero-based position of the chunk within its
	// document, sequential across pages.
	Index int `json:"chunk_index"`

	// Page is the 1-based page the chunk came from. Zero for formats
	// without pages.
	Page int `json:"page_number,omitempty"`

	// Section is the heading the chunk falls under, when known.
	Section string `json:"section,omitempty"`

	// TokenCount is the window size of this chunk in tokens.
	TokenCount int `json:"token_count"`
}

// ID returns the deterministic chunk identifier for a source file,
// chunk index, and category. The same triple always hashes to the same
// ID across runs and machines.
func ID(sourceFile string, index int, category string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%s", sourceFile, index, category)))
	return hex.EncodeToString(sum[:])[:16]
}

// Chunker splits documents into token windows of chunkSize tokens,
// each overlapping the previous window by overlap tokens.
type Chunker struct {
	chunkSize int
	overlap   int
}

// NewChunker creates a chunker. Overlap must be non-negative and
// strictly smaller than the chunk size or every window would repeat
// the previous one forever.
func NewChunker(chunkSize, overlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, errors.ValidationError(
			fmt.Sprintf("chunk size must be positive, got %d", chunkSize), nil)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, errors.ValidationError(
			fmt.Sprintf("overlap %d must be in [0, %d)", overlap, chunkSize), nil)
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}, nil
}

// Split chunks a document. Paginated documents are chunked page by page
// so no chunk spans a page boundary; chunk indexes stay sequential
// across the whole document. Empty documents yield no chunks.
func (c *Chunker) Split(doc *extract.Document) []Chunk {
	pages := doc.PageTexts
	paginated := len(pages) > 0
	if !paginated {
		pages = []string{doc.Text}
	}
	source := filepath.Base(doc.SourcePath)

	var chunks []Chunk
	index := 0
	for pageNum, pageText := range pages {
		page := 0
		if paginated {
			page = pageNum + 1
		}
		for _, window := range c.windows(pageText) {
			text := strings.TrimSpace(Detokenize(window))
			if text == "" {
				continue
			}
			chunks = append(chunks, Chunk{
				Text:       text,
				SourceFile: source,
				Index:      index,
				Page:       page,
				Section:    sectionFor(text, doc.Headings),
				TokenCount: len(window),
			})
			index++
		}
	}
	return chunks
}

// windows slides a window of chunkSize tokens over the text with a
// stride of chunkSize-overlap. The final window may be shorter; a
// window fully contained in the previous one is not emitted.
func (c *Chunker) windows(text string) [][]string {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}

	stride := c.chunkSize - c.overlap
	var out [][]string
	for start := 0; start < len(tokens); start += stride {
		end := start + c.chunkSize
		if end > len(tokens) {
			end = len(tokens)
		}
		out = append(out, tokens[start:end])
		if end == len(tokens) {
			break
		}
	}
	return out
}

// sectionFor returns the first heading whose text appears in the chunk.
func sectionFor(text string, headings []string) string {
	for _, h := range headings {
		if h != "" && strings.Contains(text, h) {
			return h
		}
	}
	return ""
}
