package index

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/docdex/docdex/internal/errors"
)

// AcquireLock takes an exclusive advisory lock on the data directory.
// Only one indexing process may own the stores at a time; a second
// process fails fast instead of corrupting them. The returned unlock
// function releases the lock.
func AcquireLock(dataDir string) (func(), error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, errors.StoreError("create data directory", err)
	}

	lock := flock.New(filepath.Join(dataDir, "docdex.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, errors.StoreError("acquire data directory lock", err)
	}
	if !locked {
		return nil, errors.New(errors.ErrCodeStoreWrite,
			fmt.Sprintf("data directory %s is locked by another docdex process", dataDir), nil)
	}

	return func() { _ = lock.Unlock() }, nil
}
