// Package index orchestrates the extract-chunk-embed-store pipeline
// and decides which files need work at all.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/docdex/docdex/internal/chunk"
	"github.com/docdex/docdex/internal/config"
	"github.com/docdex/docdex/internal/errors"
	"github.com/docdex/docdex/internal/extract"
	"github.com/docdex/docdex/internal/fingerprint"
	"github.com/docdex/docdex/internal/store"
)

// Summary reports the outcome of a directory indexing run.
type Summary struct {
	Total   int `json:"total"`
	Indexed int `json:"indexed"`
	Skipped int `json:"skipped"`
	Removed int `json:"removed"`
	Errors  int `json:"errors"`
}

// Indexer runs the per-file pipeline: extract, chunk, embed, store,
// fingerprint. It also serves queries. One Indexer instance owns the
// store for the lifetime of the process.
type Indexer struct {
	cfg          *config.Config
	store        *store.Store
	fingerprints *fingerprint.Index
	chunker      *chunk.Chunker
	logger       *slog.Logger
}

// New wires an indexer from its parts.
func New(cfg *config.Config, s *store.Store, fp *fingerprint.Index, logger *slog.Logger) (*Indexer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	chunker, err := chunk.NewChunker(cfg.Chunking.ChunkSize, cfg.Chunking.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	return &Indexer{
		cfg:          cfg,
		store:        s,
		fingerprints: fp,
		chunker:      chunker,
		logger:       logger,
	}, nil
}

// CategoryFor classifies a path into a collection. A path containing
// any configured primary keyword (case-insensitive) goes to the
// primary collection; everything else is general.
func (ix *Indexer) CategoryFor(path string) string {
	lower := strings.ToLower(path)
	for _, kw := range ix.cfg.PrimaryKeywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return store.CollectionPrimary
		}
	}
	return store.CollectionGeneral
}

// IndexPath indexes one file. Unchanged files (by content hash) are
// skipped. The store replaces the file's chunks atomically, embedding
// before anything is deleted: an embedder outage mid-reindex leaves
// the previously committed chunks searchable, and a file that moved
// between categories never leaves stale chunks behind. Returns the
// number of chunks written and whether the file was skipped as
// unchanged.
func (ix *Indexer) IndexPath(ctx context.Context, path string) (int, bool, error) {
	if !extract.Supported(path) {
		return 0, false, errors.New(errors.ErrCodeUnsupportedFormat,
			fmt.Sprintf("unsupported file format: %s", path), nil)
	}

	hash, err := fingerprint.HashFile(path)
	if err != nil {
		return 0, false, err
	}
	if !ix.fingerprints.NeedsReindex(path, hash) {
		ix.logger.Debug("file unchanged, skipping", "path", path)
		return 0, true, nil
	}

	doc, err := extract.File(ctx, path)
	if err != nil {
		return 0, false, err
	}

	chunks := ix.chunker.Split(doc)
	category := ix.CategoryFor(path)

	if err := ix.store.Replace(ctx, category, filepath.Base(path), chunks); err != nil {
		return 0, false, err
	}
	if err := ix.fingerprints.Record(path, hash); err != nil {
		return 0, false, err
	}

	ix.logger.Info("indexed file", "path", path,
		"chunks", len(chunks), "collection", category, "format", doc.Format)
	return len(chunks), false, nil
}

// RemovePath drops a file's chunks and fingerprint. Unknown paths are
// a no-op.
func (ix *Indexer) RemovePath(ctx context.Context, path string) error {
	if err := ix.store.DeleteSource(ctx, filepath.Base(path)); err != nil {
		return err
	}
	if err := ix.fingerprints.Remove(path); err != nil {
		return err
	}
	ix.logger.Info("removed file from index", "path", path)
	return nil
}

// IndexDirectory walks root and brings the index in sync with it:
// orphaned entries are purged first, then every supported file is
// indexed or skipped. Files are processed on a bounded worker pool;
// per-file failures are logged and counted, not fatal.
func (ix *Indexer) IndexDirectory(ctx context.Context, root string) (Summary, error) {
	var summary Summary

	paths, err := Scan(root, ix.cfg.AllowedExtensions())
	if err != nil {
		return summary, err
	}
	summary.Total = len(paths)

	removed, err := ix.purgeOrphans(ctx, paths)
	if err != nil {
		return summary, err
	}
	summary.Removed = removed

	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(ix.cfg.Indexing.Workers)

	for _, path := range paths {
		if err := groupCtx.Err(); err != nil {
			break
		}
		path := path
		group.Go(func() error {
			_, skipped, err := ix.IndexPath(groupCtx, path)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				ix.logger.Error("indexing failed", "path", path, "error", err)
				summary.Errors++
			case skipped:
				summary.Skipped++
			default:
				summary.Indexed++
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return summary, err
	}
	if err := ctx.Err(); err != nil {
		return summary, err
	}

	ix.logger.Info("directory indexing complete", "root", root,
		"total", summary.Total, "indexed", summary.Indexed,
		"skipped", summary.Skipped, "removed", summary.Removed,
		"errors", summary.Errors)
	return summary, nil
}

// purgeOrphans removes index entries whose files are gone from disk.
// Fingerprints are keyed by path, stored documents by file name; both
// are consulted since either can have entries the other lost.
func (ix *Indexer) purgeOrphans(ctx context.Context, present []string) (int, error) {
	onDisk := make(map[string]bool, len(present))
	namesOnDisk := make(map[string]bool, len(present))
	for _, p := range present {
		onDisk[p] = true
		namesOnDisk[filepath.Base(p)] = true
	}

	removed := 0
	for _, p := range ix.fingerprints.KnownPaths() {
		if onDisk[p] {
			continue
		}
		if namesOnDisk[filepath.Base(p)] {
			// A surviving file elsewhere shares this name and owns the
			// stored document; drop only the stale fingerprint.
			if err := ix.fingerprints.Remove(p); err != nil {
				return removed, err
			}
			continue
		}
		if err := ix.RemovePath(ctx, p); err != nil {
			return removed, err
		}
		removed++
	}

	// Stored documents the fingerprint index lost track of.
	stored, err := ix.store.SourceFiles(ctx)
	if err != nil {
		return removed, err
	}
	for _, name := range stored {
		if namesOnDisk[name] {
			continue
		}
		if err := ix.store.DeleteSource(ctx, name); err != nil {
			return removed, err
		}
		ix.logger.Info("removed file from index", "path", name)
		removed++
	}
	return removed, nil
}

// Query validates and serves a search. Scores are rounded to three
// decimals for stable presentation.
func (ix *Indexer) Query(ctx context.Context, query string, categories []string, limit int) ([]store.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New(errors.ErrCodeInvalidQuery, "query must not be empty", nil)
	}
	if limit <= 0 {
		limit = ix.cfg.Search.DefaultLimit
	}
	if limit > config.MaxSearchResults {
		limit = config.MaxSearchResults
	}

	results, err := ix.store.Search(ctx, query, categories, limit)
	if err != nil {
		return nil, err
	}
	for i := range results {
		results[i].Score = roundScore(results[i].Score)
	}
	return results, nil
}

// HandleChange implements watcher.Handler.
func (ix *Indexer) HandleChange(ctx context.Context, path string) error {
	_, _, err := ix.IndexPath(ctx, path)
	return err
}

// HandleDelete implements watcher.Handler.
func (ix *Indexer) HandleDelete(ctx context.Context, path string) error {
	return ix.RemovePath(ctx, path)
}

func roundScore(s float32) float32 {
	return float32(math.Round(float64(s)*1000) / 1000)
}
