package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/docdex/docdex/internal/embed"
	"github.com/docdex/docdex/internal/index"
	"github.com/docdex/docdex/internal/store"
	"github.com/docdex/docdex/pkg/version"
)

// Server bridges AI clients to the document index over MCP. Stdout
// carries the JSON-RPC stream, so nothing else may write to it.
type Server struct {
	mcp      *mcp.Server
	indexer  *index.Indexer
	store    *store.Store
	embedder embed.Embedder
	logger   *slog.Logger

	mu       sync.RWMutex
	watching bool
}

// NewServer creates the MCP server and registers its tools.
func NewServer(indexer *index.Indexer, s *store.Store, embedder embed.Embedder, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	srv := &Server{
		indexer:  indexer,
		store:    s,
		embedder: embedder,
		logger:   logger,
	}

	srv.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "docdex",
			Version: version.Version,
		},
		nil,
	)
	srv.registerTools()
	return srv
}

// SetWatching records whether live file watching is active, for
// index_status reporting.
func (s *Server) SetWatching(watching bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watching = watching
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_docs",
		Description: "Semantic search over the indexed document corpus. Finds passages by meaning, not keywords. Results carry source file, page, and section so you can cite them.",
	}, s.searchDocsHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_collections",
		Description: "List the document collections and how many chunks each holds.",
	}, s.listCollectionsHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_document",
		Description: "Fetch every indexed chunk of one document in order, reconstructing its full indexed text.",
	}, s.getDocumentHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_status",
		Description: "Report the active embedding model, collection sizes, and whether live watching is running.",
	}, s.indexStatusHandler)

	s.logger.Info("MCP tools registered", "count", 4)
}

func (s *Server) searchDocsHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchDocsInput) (
	*mcp.CallToolResult, SearchDocsOutput, error,
) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, SearchDocsOutput{}, NewInvalidParamsError("query parameter is required")
	}

	results, err := s.indexer.Query(ctx, input.Query, input.Categories, clampLimit(input.Limit))
	if err != nil {
		return nil, SearchDocsOutput{}, MapError(err)
	}

	output := SearchDocsOutput{Results: make([]SearchResultOutput, 0, len(results))}
	for _, r := range results {
		output.Results = append(output.Results, SearchResultOutput{
			Text:       r.Text,
			SourceFile: r.SourceFile,
			Page:       r.Page,
			Section:    r.Section,
			Collection: r.Collection,
			Score:      r.Score,
		})
	}
	return nil, output, nil
}

func (s *Server) listCollectionsHandler(ctx context.Context, _ *mcp.CallToolRequest, _ ListCollectionsInput) (
	*mcp.CallToolResult, ListCollectionsOutput, error,
) {
	infos, err := s.store.ListCollections(ctx)
	if err != nil {
		return nil, ListCollectionsOutput{}, MapError(err)
	}

	output := ListCollectionsOutput{Collections: make([]CollectionOutput, 0, len(infos))}
	for _, info := range infos {
		output.Collections = append(output.Collections, CollectionOutput{
			Name:  info.Name,
			Count: info.Count,
		})
	}
	return nil, output, nil
}

func (s *Server) getDocumentHandler(ctx context.Context, _ *mcp.CallToolRequest, input GetDocumentInput) (
	*mcp.CallToolResult, GetDocumentOutput, error,
) {
	if strings.TrimSpace(input.SourceFile) == "" {
		return nil, GetDocumentOutput{}, NewInvalidParamsError("source_file parameter is required")
	}
	if input.Category != "" && !store.ValidCollection(input.Category) {
		return nil, GetDocumentOutput{}, NewInvalidParamsError(
			fmt.Sprintf("unknown category %q", input.Category))
	}

	chunks, err := s.store.GetDocument(ctx, input.SourceFile)
	if err != nil {
		return nil, GetDocumentOutput{}, MapError(err)
	}

	output := GetDocumentOutput{
		SourceFile: input.SourceFile,
		Chunks:     make([]ChunkOutput, 0, len(chunks)),
	}
	for _, c := range chunks {
		if input.Category != "" && c.Collection != input.Category {
			continue
		}
		output.Chunks = append(output.Chunks, ChunkOutput{
			Index:      c.ChunkIndex,
			Page:       c.Page,
			Section:    c.Section,
			Collection: c.Collection,
			Text:       c.Text,
		})
	}
	if len(output.Chunks) == 0 {
		return nil, GetDocumentOutput{}, &Error{
			Code: ErrCodeDocumentNotFound,
			Message: fmt.Sprintf("document not indexed in category %s: %s",
				input.Category, input.SourceFile),
		}
	}
	return nil, output, nil
}

func (s *Server) indexStatusHandler(ctx context.Context, _ *mcp.CallToolRequest, _ IndexStatusInput) (
	*mcp.CallToolResult, IndexStatusOutput, error,
) {
	infos, err := s.store.ListCollections(ctx)
	if err != nil {
		return nil, IndexStatusOutput{}, MapError(err)
	}

	collections := make([]CollectionOutput, 0, len(infos))
	for _, info := range infos {
		collections = append(collections, CollectionOutput{Name: info.Name, Count: info.Count})
	}

	s.mu.RLock()
	watching := s.watching
	s.mu.RUnlock()

	return nil, IndexStatusOutput{
		EmbeddingModel: s.embedder.ModelName(),
		Dimensions:     s.embedder.Dimensions(),
		Collections:    collections,
		Watching:       watching,
	}, nil
}

// Run serves MCP over stdio until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server", "transport", "stdio")
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && err != context.Canceled {
		s.logger.Error("MCP server stopped with error", "error", err)
		return err
	}
	s.logger.Info("MCP server stopped")
	return nil
}
