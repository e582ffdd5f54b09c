// Package fingerprint tracks content hashes of indexed files so
// unchanged documents are skipped on reindex. The index is a flat
// path-keyed JSON map persisted next to the vector stores.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/docdex/docdex/internal/errors"
)

// Record is one file's fingerprint entry.
type Record struct {
	Hash          string    `json:"hash"`
	LastIndexedAt time.Time `json:"last_indexed_at"`
}

// Index maps absolute file paths to SHA-256 content fingerprints.
// All methods are safe for concurrent use. Every mutation is flushed
// to disk immediately with an atomic temp-and-rename write.
type Index struct {
	path string

	mu      sync.Mutex
	records map[string]Record
	logger  *slog.Logger
}

// Load reads the fingerprint index from path. A missing file yields an
// empty index. A corrupt file also yields an empty index: losing
// fingerprints only costs a full reindex, never correctness.
func Load(path string, logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = slog.Default()
	}
	idx := &Index{
		path:    path,
		records: make(map[string]Record),
		logger:  logger,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return idx, nil
		}
		return nil, errors.New(errors.ErrCodeCorruptIndex,
			fmt.Sprintf("cannot read fingerprint index %s", path), err)
	}

	if err := json.Unmarshal(data, &idx.records); err != nil {
		logger.Warn("fingerprint index corrupt, starting empty",
			"path", path, "error", err)
		idx.records = make(map[string]Record)
	}
	return idx, nil
}

// HashFile computes the SHA-256 hex digest of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.New(errors.ErrCodeFileNotFound,
			fmt.Sprintf("cannot open %s for hashing", path), err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.New(errors.ErrCodeFileNotFound,
			fmt.Sprintf("cannot hash %s", path), err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// NeedsReindex reports whether the file's current content differs from
// its recorded fingerprint. Unknown paths always need indexing.
func (idx *Index) NeedsReindex(path, hash string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.records[path].Hash != hash
}

// Record stores the fingerprint for path and flushes to disk.
func (idx *Index) Record(path, hash string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.records[path] = Record{Hash: hash, LastIndexedAt: time.Now().UTC()}
	return idx.flushLocked()
}

// Remove drops the fingerprint for path and flushes to disk.
// Removing an unknown path is a no-op.
func (idx *Index) Remove(path string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, ok := idx.records[path]; !ok {
		return nil
	}
	delete(idx.records, path)
	return idx.flushLocked()
}

// Hash returns the recorded fingerprint for path, if any.
func (idx *Index) Hash(path string) (string, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	r, ok := idx.records[path]
	return r.Hash, ok
}

// KnownPaths returns every path with a recorded fingerprint.
func (idx *Index) KnownPaths() []string {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	paths := make([]string, 0, len(idx.records))
	for p := range idx.records {
		paths = append(paths, p)
	}
	return paths
}

// Len returns the number of recorded fingerprints.
func (idx *Index) Len() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return len(idx.records)
}

// flushLocked writes the map atomically. Callers hold idx.mu.
func (idx *Index) flushLocked() error {
	data, err := json.MarshalIndent(idx.records, "", "  ")
	if err != nil {
		return errors.InternalError("marshal fingerprint index", err)
	}

	if err := os.MkdirAll(filepath.Dir(idx.path), 0o755); err != nil {
		return errors.StoreError("create fingerprint directory", err)
	}

	tmp := idx.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.StoreError("write fingerprint index", err)
	}
	if err := os.Rename(tmp, idx.path); err != nil {
		_ = os.Remove(tmp)
		return errors.StoreError("replace fingerprint index", err)
	}
	return nil
}
