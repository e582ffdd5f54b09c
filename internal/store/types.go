// Package store persists chunk vectors and metadata. Each collection
// has its own HNSW graph; chunk text and provenance live in a shared
// SQLite database keyed by chunk ID.
package store

import "fmt"

// Collection names. Every chunk lives in exactly one collection.
const (
	CollectionPrimary = "primary"
	CollectionGeneral = "general"
)

// Collections lists all collections in a stable order.
var Collections = []string{CollectionPrimary, CollectionGeneral}

// ValidCollection reports whether name is a known collection.
func ValidCollection(name string) bool {
	for _, c := range Collections {
		if c == name {
			return true
		}
	}
	return false
}

// VectorStoreConfig configures an HNSW graph.
type VectorStoreConfig struct {
	// Dimensions is the embedding width. All vectors must match.
	Dimensions int

	// M is the HNSW connectivity parameter.
	M int

	// EfSearch is the HNSW search expansion factor.
	EfSearch int
}

// VectorResult is one nearest-neighbor hit from a graph.
type VectorResult struct {
	ID       string
	Distance float32
	Score    float32
}

// SearchResult is one search hit with its metadata attached.
// SourceFile is the document's file name; Page is zero for sources
// without pages.
type SearchResult struct {
	ID         string  `json:"id"`
	Text       string  `json:"text"`
	SourceFile string  `json:"source_file"`
	ChunkIndex int     `json:"chunk_index"`
	Page       int     `json:"page_number,omitempty"`
	Section    string  `json:"section,omitempty"`
	Collection string  `json:"collection"`
	Score      float32 `json:"score"`
}

// CollectionInfo describes one collection for listing.
type CollectionInfo struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ErrDimensionMismatch reports a vector of the wrong width.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("vector dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}

// distanceToScore converts a distance to a similarity score in (0, 1].
// Identical vectors (distance 0) score exactly 1.0.
func distanceToScore(distance float32) float32 {
	return 1.0 / (1.0 + distance)
}
