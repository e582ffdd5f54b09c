package mcp

// SearchDocsInput is the input schema for the search_docs tool.
type SearchDocsInput struct {
	Query      string   `json:"query" jsonschema:"the natural language search query"`
	Categories []string `json:"categories,omitempty" jsonschema:"collections to search: primary, general; default all"`
	Limit      int      `json:"limit,omitempty" jsonschema:"maximum number of results, 1-20, default 5"`
}

// SearchDocsOutput is the output schema for the search_docs tool.
type SearchDocsOutput struct {
	Results []SearchResultOutput `json:"results" jsonschema:"search results sorted by relevance"`
}

// SearchResultOutput is one search hit.
type SearchResultOutput struct {
	Text       string  `json:"text" jsonschema:"matched chunk text"`
	SourceFile string  `json:"source_file" jsonschema:"file name of the source document"`
	Page       int     `json:"page_number,omitempty" jsonschema:"1-based page number; absent for sources without pages"`
	Section    string  `json:"section,omitempty" jsonschema:"document section heading, when known"`
	Collection string  `json:"collection" jsonschema:"collection the chunk belongs to"`
	Score      float32 `json:"score" jsonschema:"relevance score between 0 and 1"`
}

// ListCollectionsInput is the input schema for the list_collections tool.
type ListCollectionsInput struct{}

// ListCollectionsOutput is the output schema for the list_collections tool.
type ListCollectionsOutput struct {
	Collections []CollectionOutput `json:"collections" jsonschema:"all collections with their chunk counts"`
}

// CollectionOutput describes one collection.
type CollectionOutput struct {
	Name  string `json:"name" jsonschema:"collection name"`
	Count int    `json:"count" jsonschema:"number of indexed chunks"`
}

// GetDocumentInput is the input schema for the get_document tool.
type GetDocumentInput struct {
	SourceFile string `json:"source_file" jsonschema:"file name of the document to fetch"`
	Category   string `json:"category,omitempty" jsonschema:"restrict to one collection: primary or general; default all"`
}

// GetDocumentOutput is the output schema for the get_document tool.
type GetDocumentOutput struct {
	SourceFile string        `json:"source_file" jsonschema:"file name of the document"`
	Chunks     []ChunkOutput `json:"chunks" jsonschema:"all chunks of the document in order"`
}

// ChunkOutput is one stored chunk of a document.
type ChunkOutput struct {
	Index      int    `json:"chunk_index" jsonschema:"zero-based chunk position"`
	Page       int    `json:"page_number,omitempty" jsonschema:"1-based page number; absent for sources without pages"`
	Section    string `json:"section,omitempty" jsonschema:"section heading, when known"`
	Collection string `json:"collection" jsonschema:"collection the chunk belongs to"`
	Text       string `json:"text" jsonschema:"chunk text"`
}

// IndexStatusInput is the input schema for the index_status tool.
type IndexStatusInput struct{}

// IndexStatusOutput is the output schema for the index_status tool.
type IndexStatusOutput struct {
	EmbeddingModel string             `json:"embedding_model" jsonschema:"active embedding model"`
	Dimensions     int                `json:"dimensions" jsonschema:"embedding dimension"`
	Collections    []CollectionOutput `json:"collections" jsonschema:"chunk counts per collection"`
	Watching       bool               `json:"watching" jsonschema:"whether live file watching is active"`
}

// searchLimits clamp the search_docs limit parameter.
const (
	minSearchLimit     = 1
	maxSearchLimit     = 20
	defaultSearchLimit = 5
)

// clampLimit normalizes the requested result limit.
func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultSearchLimit
	case limit < minSearchLimit:
		return minSearchLimit
	case limit > maxSearchLimit:
		return maxSearchLimit
	default:
		return limit
	}
}
