package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/docdex/docdex/internal/chunk"
	"github.com/docdex/docdex/internal/embed"
	"github.com/docdex/docdex/internal/errors"
)

// Store is the dual-collection chunk store: one vector index per
// collection plus a shared metadata database. All writes for one
// source file go through Upsert or DeleteSource so the indexes and
// metadata never disagree about which chunks exist.
type Store struct {
	dataDir  string
	embedder embed.Embedder
	logger   *slog.Logger

	mu      sync.Mutex
	indexes map[string]*VectorIndex
	meta    *MetadataDB
}

// Open loads or creates the store under dataDir. Corrupt vector index
// files are discarded with a warning; the metadata rows survive and a
// reindex restores the vectors.
func Open(dataDir string, embedder embed.Embedder, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Join(dataDir, "vectors"), 0o755); err != nil {
		return nil, errors.StoreError("create data directory", err)
	}

	meta, err := OpenMetadataDB(filepath.Join(dataDir, "chunks.db"))
	if err != nil {
		return nil, err
	}

	s := &Store{
		dataDir:  dataDir,
		embedder: embedder,
		logger:   logger,
		indexes:  make(map[string]*VectorIndex),
		meta:     meta,
	}

	for _, name := range Collections {
		idx := NewVectorIndex(VectorStoreConfig{Dimensions: embedder.Dimensions()})
		path := s.indexPath(name)
		if _, statErr := os.Stat(path); statErr == nil {
			if loadErr := idx.Load(path); loadErr != nil {
				logger.Warn("vector index corrupt, starting empty",
					"collection", name, "path", path, "error", loadErr)
				idx = NewVectorIndex(VectorStoreConfig{Dimensions: embedder.Dimensions()})
			}
		}
		s.indexes[name] = idx
	}

	return s, nil
}

func (s *Store) indexPath(collection string) string {
	return filepath.Join(s.dataDir, "vectors", collection+".hnsw")
}

// embedChunks assigns IDs and embeds chunk texts, retrying transient
// embedder failures with backoff. Nothing is written: callers commit
// the vectors only after embedding succeeded.
func (s *Store) embedChunks(ctx context.Context, collection string, chunks []chunk.Chunk) ([]string, [][]float32, error) {
	texts := make([]string, len(chunks))
	ids := make([]string, len(chunks))
	for i := range chunks {
		chunks[i].ID = chunk.ID(chunks[i].SourceFile, chunks[i].Index, collection)
		ids[i] = chunks[i].ID
		texts[i] = chunks[i].Text
	}

	vectors, err := errors.RetryWithResult(ctx, errors.DefaultRetryConfig(),
		func() ([][]float32, error) {
			return s.embedder.EmbedBatch(ctx, texts)
		})
	if err != nil {
		return nil, nil, errors.New(errors.ErrCodeIndexFailed,
			fmt.Sprintf("embed %d chunks from %s", len(chunks), chunks[0].SourceFile), err)
	}
	return ids, vectors, nil
}

// Upsert embeds and stores chunks into one collection. Chunk IDs are
// assigned here from the source file, chunk index, and collection, so
// reindexing the same file overwrites in place. Embedding failures are
// retried with backoff before giving up.
func (s *Store) Upsert(ctx context.Context, collection string, chunks []chunk.Chunk) error {
	if !ValidCollection(collection) {
		return errors.New(errors.ErrCodeUnknownCategory,
			fmt.Sprintf("unknown collection %q", collection), nil)
	}
	if len(chunks) == 0 {
		return nil
	}

	ids, vectors, err := s.embedChunks(ctx, collection, chunks)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.indexes[collection].Add(ids, vectors); err != nil {
		return errors.StoreError(fmt.Sprintf("add vectors to %s", collection), err)
	}
	if err := s.meta.UpsertChunks(ctx, collection, chunks); err != nil {
		return err
	}
	return s.saveIndexLocked(collection)
}

// Replace swaps all chunks of a source file for new ones in one step:
// embed first, then delete the old entries (from every collection) and
// write the new ones. An embedder outage leaves the previously
// committed chunks untouched and searchable. With no chunks, Replace
// just deletes.
func (s *Store) Replace(ctx context.Context, collection, sourceFile string, chunks []chunk.Chunk) error {
	if !ValidCollection(collection) {
		return errors.New(errors.ErrCodeUnknownCategory,
			fmt.Sprintf("unknown collection %q", collection), nil)
	}

	var ids []string
	var vectors [][]float32
	if len(chunks) > 0 {
		var err error
		ids, vectors, err = s.embedChunks(ctx, collection, chunks)
		if err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	deleted, err := s.meta.DeleteBySource(ctx, sourceFile)
	if err != nil {
		return err
	}
	touched := make(map[string]bool, len(deleted)+1)
	for coll, oldIDs := range deleted {
		if idx, ok := s.indexes[coll]; ok {
			idx.Delete(oldIDs)
			touched[coll] = true
		}
	}

	if len(chunks) > 0 {
		if err := s.indexes[collection].Add(ids, vectors); err != nil {
			return errors.StoreError(fmt.Sprintf("add vectors to %s", collection), err)
		}
		if err := s.meta.UpsertChunks(ctx, collection, chunks); err != nil {
			return err
		}
		touched[collection] = true
	}

	for coll := range touched {
		if err := s.saveIndexLocked(coll); err != nil {
			return err
		}
	}
	return nil
}

// DeleteSource removes every chunk of a source file from both
// collections. Files that were never indexed are a no-op.
func (s *Store) DeleteSource(ctx context.Context, sourceFile string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted, err := s.meta.DeleteBySource(ctx, sourceFile)
	if err != nil {
		return err
	}

	for collection, ids := range deleted {
		if idx, ok := s.indexes[collection]; ok {
			idx.Delete(ids)
			if err := s.saveIndexLocked(collection); err != nil {
				return err
			}
		}
	}
	return nil
}

// Search embeds the query and returns the best-scoring chunks from the
// requested collections, merged and sorted by score descending. An
// empty collections slice searches everything.
func (s *Store) Search(ctx context.Context, query string, collections []string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidQuery, "limit must be positive", nil)
	}
	if len(collections) == 0 {
		collections = Collections
	}
	for _, c := range collections {
		if !ValidCollection(c) {
			return nil, errors.New(errors.ErrCodeUnknownCategory,
				fmt.Sprintf("unknown collection %q", c), nil)
		}
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, errors.New(errors.ErrCodeSearchFailed, "embed query", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var hits []*VectorResult
	hitCollection := make(map[string]string)
	for _, name := range collections {
		// Over-fetch to compensate for lazily deleted nodes.
		results, err := s.indexes[name].Search(queryVec, limit*2)
		if err != nil {
			return nil, errors.New(errors.ErrCodeSearchFailed,
				fmt.Sprintf("search collection %s", name), err)
		}
		for _, r := range results {
			hits = append(hits, r)
			hitCollection[r.ID] = name
		}
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	rows, err := s.meta.GetChunks(ctx, ids)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(hits))
	for _, h := range hits {
		row, ok := rows[h.ID]
		if !ok {
			s.logger.Warn("vector hit has no metadata row", "id", h.ID,
				"collection", hitCollection[h.ID])
			continue
		}
		row.Score = h.Score
		results = append(results, row)
	}
	return results, nil
}

// ListCollections returns each collection with its chunk count.
// Collections are always listed, even when empty.
func (s *Store) ListCollections(ctx context.Context) ([]CollectionInfo, error) {
	counts, err := s.meta.CountByCollection(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]CollectionInfo, 0, len(Collections))
	for _, name := range Collections {
		infos = append(infos, CollectionInfo{Name: name, Count: counts[name]})
	}
	return infos, nil
}

// GetDocument returns all chunks of a source file in document order.
func (s *Store) GetDocument(ctx context.Context, sourceFile string) ([]SearchResult, error) {
	chunks, err := s.meta.ChunksBySource(ctx, sourceFile)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, errors.NotFoundError(fmt.Sprintf("document not indexed: %s", sourceFile))
	}
	return chunks, nil
}

// SourceFiles returns every indexed source file name.
func (s *Store) SourceFiles(ctx context.Context) ([]string, error) {
	return s.meta.SourceFiles(ctx)
}

// saveIndexLocked persists one collection's graph. Callers hold s.mu.
func (s *Store) saveIndexLocked(collection string) error {
	if err := s.indexes[collection].Save(s.indexPath(collection)); err != nil {
		return errors.StoreError(fmt.Sprintf("save %s vector index", collection), err)
	}
	return nil
}

// Close persists and releases all resources.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for _, name := range Collections {
		if err := s.saveIndexLocked(name); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := s.indexes[name].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := s.meta.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
