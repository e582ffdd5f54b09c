package embed

import (
	"context"
	"log/slog"
	"time"

	"github.com/docdex/docdex/internal/config"
)

// New builds the configured embedder wrapped in an LRU cache. When the
// provider is "ollama" but Ollama is unreachable, it falls back to the
// static embedder so indexing and search stay usable offline.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Embedder, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var inner Embedder
	switch cfg.Embeddings.Provider {
	case "static":
		inner = NewStaticEmbedder()
	default:
		ollama, err := NewOllamaEmbedder(ctx, OllamaConfig{
			Host:       cfg.Embeddings.OllamaHost,
			Model:      cfg.Embeddings.Model,
			Dimensions: cfg.Embeddings.Dimensions,
			BatchSize:  cfg.Embeddings.BatchSize,
			Timeout:    DefaultTimeout,
		})
		if err != nil {
			logger.Warn("ollama unavailable, falling back to static embeddings",
				"host", cfg.Embeddings.OllamaHost, "error", err)
			inner = NewStaticEmbedder()
		} else {
			logger.Info("using ollama embeddings",
				"model", ollama.ModelName(), "dimensions", ollama.Dimensions())
			inner = ollama
		}
	}

	return NewCachedEmbedder(inner, cfg.Embeddings.CacheSize), nil
}

// WaitAvailable polls until the embedder reports ready or the context
// expires. Used at server startup when Ollama may still be loading.
func WaitAvailable(ctx context.Context, e Embedder, interval time.Duration) bool {
	if e.Available(ctx) {
		return true
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if e.Available(ctx) {
				return true
			}
		}
	}
}
