package index

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/docdex/docdex/internal/errors"
)

// Scan walks root and returns the absolute paths of all files with an
// allowed extension, sorted for deterministic processing order. Hidden
// directories (dot-prefixed) are skipped entirely.
func Scan(root string, allowed map[string]bool) ([]string, error) {
	var paths []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		if allowed[strings.ToLower(filepath.Ext(name))] {
			abs, err := filepath.Abs(path)
			if err != nil {
				return err
			}
			paths = append(paths, abs)
		}
		return nil
	})
	if err != nil {
		return nil, errors.New(errors.ErrCodeFileNotFound,
			"cannot scan documents directory "+root, err)
	}

	sort.Strings(paths)
	return paths, nil
}
