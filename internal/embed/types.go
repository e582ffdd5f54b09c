// Package embed turns text into vectors. The Ollama backend does real
// semantic embeddings over HTTP; the static backend is a deterministic
// hash-based fallback that works with no external services.
package embed

import (
	"context"
	"math"
	"time"

	"github.com/docdex/docdex/internal/errors"
)

// errClosed is returned by embedders after Close.
var errClosed = errors.InternalError("embedder is closed", nil)

const (
	// DefaultOllamaHost is the default Ollama API endpoint.
	DefaultOllamaHost = "http://localhost:11434"

	// DefaultOllamaModel is the preferred embedding model.
	DefaultOllamaModel = "nomic-embed-text"

	// DefaultBatchSize is the default texts-per-request batch size.
	DefaultBatchSize = 32

	// DefaultDimensions is used when dimension auto-detection is skipped.
	DefaultDimensions = 768

	// DefaultTimeout is the per-request timeout. Cold model loads can
	// take tens of seconds, so this stays generous.
	DefaultTimeout = 120 * time.Second

	// StaticDimensions is the vector width of the static embedder.
	StaticDimensions = 384
)

// FallbackOllamaModels are tried in order when the configured model is
// not installed.
var FallbackOllamaModels = []string{
	"nomic-embed-text",
	"mxbai-embed-large",
	"all-minilm",
}

// Embedder converts text into fixed-width vectors.
type Embedder interface {
	// Embed generates the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, preserving order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Available reports whether the embedder is ready to serve.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// normalizeVector scales a vector to unit length. Zero vectors are
// returned unchanged.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return v
	}
	norm := float32(math.Sqrt(sumSquares))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}
