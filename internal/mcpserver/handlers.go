// Package mcpserver adapts the seven public operations of
// pkg/docscore.Engine to MCP tool calls (spec §1's request surface is
// explicitly out of the retrieval core's scope; this package is the
// stdio adapter that sits in front of it).
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/buzzwomen-dev2/docs-mcp-server/internal/index"
	"github.com/buzzwomen-dev2/docs-mcp-server/internal/search"
	"github.com/buzzwomen-dev2/docs-mcp-server/internal/store"
	"github.com/buzzwomen-dev2/docs-mcp-server/pkg/docscore"
)

// Engine is the subset of pkg/docscore.Engine the handlers drive.
type Engine interface {
	IndexPaths(ctx context.Context, paths []string, force bool, progress index.ProgressFunc) (index.Stats, error)
	Search(ctx context.Context, query string, opts search.SearchOptions) ([]search.SearchResult, error)
	Retrieve(ctx context.Context, chunkID string) (store.DocumentChunk, error)
	GetStats(ctx context.Context) (docscore.Stats, error)
	ListSources(ctx context.Context) ([]store.SourceSummary, error)
	ClearTech(ctx context.Context, tech string) error
	ClearAll(ctx context.Context) error
}

// Handlers wraps an Engine and exposes MCP tool handler methods.
type Handlers struct {
	engine Engine
	logger *slog.Logger
}

// NewHandlers creates handlers over engine, logging through logger.
func NewHandlers(engine Engine, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{engine: engine, logger: logger}
}

// IndexArgs defines the arguments for the index tool.
type IndexArgs struct {
	Paths []string `json:"paths" jsonschema_description:"Directories or files to (re)index"`
	Force bool     `json:"force,omitempty" jsonschema_description:"Reindex every file even if its content hash is unchanged"`
}

// IndexResult is the structured output of the index tool.
type IndexResult struct {
	FilesProcessed int `json:"files_processed"`
	FilesUpdated   int `json:"files_updated"`
	ChunksAdded    int `json:"chunks_added"`
	ChunksRemoved  int `json:"chunks_removed"`
	Errors         int `json:"errors"`
}

// Index handles the index tool call (spec §4.4 index_paths).
func (h *Handlers) Index(ctx context.Context, req *mcp.CallToolRequest, args IndexArgs) (*mcp.CallToolResult, IndexResult, error) {
	if len(args.Paths) == 0 {
		return nil, IndexResult{}, fmt.Errorf("paths is required")
	}

	h.logger.Debug("index: starting", "paths", args.Paths, "force", args.Force)
	stats, err := h.engine.IndexPaths(ctx, args.Paths, args.Force, nil)
	if err != nil {
		h.logger.Error("index: failed", "error", err)
		return nil, IndexResult{}, err
	}

	out := IndexResult{
		FilesProcessed: stats.FilesProcessed,
		FilesUpdated:   stats.FilesUpdated,
		ChunksAdded:    stats.ChunksAdded,
		ChunksRemoved:  stats.ChunksRemoved,
		Errors:         stats.Errors,
	}
	msg := fmt.Sprintf("Indexed %d files (%d updated, %d new chunks, %d removed, %d errors)",
		out.FilesProcessed, out.FilesUpdated, out.ChunksAdded, out.ChunksRemoved, out.Errors)
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}, out, nil
}

// SearchArgs defines the arguments for the search tool.
type SearchArgs struct {
	Query     string `json:"query" jsonschema_description:"Natural-language or keyword query"`
	TopK      int    `json:"top_k,omitempty" jsonschema_description:"Maximum number of results (default 10)"`
	Tech      string `json:"tech,omitempty" jsonschema_description:"Restrict results to this technology"`
	Component string `json:"component,omitempty" jsonschema_description:"Restrict results to this component"`
	Version   string `json:"version,omitempty" jsonschema_description:"Restrict results to this version"`
	FileType  string `json:"file_type,omitempty" jsonschema_description:"Restrict results to this file type"`
}

// SearchHit is one ranked result returned by the search tool.
type SearchHit struct {
	ChunkID    string  `json:"chunk_id"`
	SourcePath string  `json:"source_path"`
	Tech       string  `json:"tech"`
	Version    string  `json:"version"`
	Score      float64 `json:"score"`
	Content    string  `json:"content"`
}

// SearchResult is the structured output of the search tool.
type SearchResult struct {
	Hits []SearchHit `json:"hits"`
}

// Search handles the search tool call (spec §4.5).
func (h *Handlers) Search(ctx context.Context, req *mcp.CallToolRequest, args SearchArgs) (*mcp.CallToolResult, SearchResult, error) {
	query := strings.TrimSpace(args.Query)
	if query == "" {
		return nil, SearchResult{}, fmt.Errorf("query is required")
	}

	results, err := h.engine.Search(ctx, query, search.SearchOptions{
		TopK: args.TopK,
		Filters: store.Filters{
			Tech:      args.Tech,
			Component: args.Component,
			Version:   args.Version,
			FileType:  args.FileType,
		},
	})
	if err != nil {
		h.logger.Error("search: failed", "query", query, "error", err)
		return nil, SearchResult{}, err
	}

	out := SearchResult{Hits: make([]SearchHit, 0, len(results))}
	var sb strings.Builder
	for _, r := range results {
		out.Hits = append(out.Hits, SearchHit{
			ChunkID:    r.Chunk.ChunkID,
			SourcePath: r.Chunk.SourcePath,
			Tech:       r.Chunk.Tech,
			Version:    r.Chunk.Version,
			Score:      r.FinalScore,
			Content:    r.Chunk.Content,
		})
		fmt.Fprintf(&sb, "[%.3f] %s (%s %s)\n%s\n\n", r.FinalScore, r.Chunk.SourcePath, r.Chunk.Tech, r.Chunk.Version, r.Chunk.Content)
	}
	if len(out.Hits) == 0 {
		sb.WriteString("No results.")
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: sb.String()}},
	}, out, nil
}

// RetrieveArgs defines the arguments for the retrieve tool.
type RetrieveArgs struct {
	ChunkID string `json:"chunk_id" jsonschema_description:"Chunk id returned by a prior search"`
}

// RetrieveResult is the structured output of the retrieve tool.
type RetrieveResult struct {
	ChunkID    string `json:"chunk_id"`
	SourcePath string `json:"source_path"`
	Content    string `json:"content"`
}

// Retrieve handles the retrieve tool call.
func (h *Handlers) Retrieve(ctx context.Context, req *mcp.CallToolRequest, args RetrieveArgs) (*mcp.CallToolResult, RetrieveResult, error) {
	chunkID := strings.TrimSpace(args.ChunkID)
	if chunkID == "" {
		return nil, RetrieveResult{}, fmt.Errorf("chunk_id is required")
	}

	chunk, err := h.engine.Retrieve(ctx, chunkID)
	if err != nil {
		h.logger.Error("retrieve: failed", "chunk_id", chunkID, "error", err)
		return nil, RetrieveResult{}, err
	}

	out := RetrieveResult{ChunkID: chunk.ChunkID, SourcePath: chunk.SourcePath, Content: chunk.Content}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: chunk.Content}},
	}, out, nil
}

// StatsResult is the structured output of the stats tool.
type StatsResult struct {
	KeywordCount  int `json:"keyword_count"`
	VectorCount   int `json:"vector_count"`
	MetadataCount int `json:"metadata_count"`
	SourceCount   int `json:"source_count"`
}

// Stats handles the stats tool call (spec §6 get_stats).
func (h *Handlers) Stats(ctx context.Context, req *mcp.CallToolRequest, args struct{}) (*mcp.CallToolResult, StatsResult, error) {
	stats, err := h.engine.GetStats(ctx)
	if err != nil {
		h.logger.Error("stats: failed", "error", err)
		return nil, StatsResult{}, err
	}

	out := StatsResult{
		KeywordCount:  stats.KeywordCount,
		VectorCount:   stats.VectorCount,
		MetadataCount: stats.MetadataCount,
		SourceCount:   len(stats.Sources),
	}
	msg := fmt.Sprintf("keyword=%d vector=%d metadata=%d sources=%d",
		out.KeywordCount, out.VectorCount, out.MetadataCount, out.SourceCount)
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}, out, nil
}

// SourceEntry is one indexed tech/version pair.
type SourceEntry struct {
	Tech       string `json:"tech"`
	Version    string `json:"version"`
	ChunkCount int    `json:"chunk_count"`
}

// ListSourcesResult is the structured output of the list_sources tool.
type ListSourcesResult struct {
	Sources []SourceEntry `json:"sources"`
}

// ListSources handles the list_sources tool call (spec §6).
func (h *Handlers) ListSources(ctx context.Context, req *mcp.CallToolRequest, args struct{}) (*mcp.CallToolResult, ListSourcesResult, error) {
	sources, err := h.engine.ListSources(ctx)
	if err != nil {
		h.logger.Error("list_sources: failed", "error", err)
		return nil, ListSourcesResult{}, err
	}

	out := ListSourcesResult{Sources: make([]SourceEntry, 0, len(sources))}
	var sb strings.Builder
	for _, s := range sources {
		out.Sources = append(out.Sources, SourceEntry{Tech: s.Tech, Version: s.Version, ChunkCount: s.ChunkCount})
		fmt.Fprintf(&sb, "%s %s (%d chunks)\n", s.Tech, s.Version, s.ChunkCount)
	}
	if len(out.Sources) == 0 {
		sb.WriteString("No sources indexed.")
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: sb.String()}},
	}, out, nil
}

// ClearArgs defines the arguments for the clear tool.
type ClearArgs struct {
	Confirm bool `json:"confirm" jsonschema_description:"Must be true; guards against accidental full wipes"`
}

// Clear handles the clear tool call (spec §4.4 clear_all).
func (h *Handlers) Clear(ctx context.Context, req *mcp.CallToolRequest, args ClearArgs) (*mcp.CallToolResult, any, error) {
	if !args.Confirm {
		return nil, nil, fmt.Errorf("confirm must be true to clear all indexed data")
	}
	if err := h.engine.ClearAll(ctx); err != nil {
		h.logger.Error("clear: failed", "error", err)
		return nil, nil, err
	}
	h.logger.Info("clear: all stores cleared")
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: "All indexed data cleared."}},
	}, nil, nil
}

// ClearByTechArgs defines the arguments for the clear_by_tech tool.
type ClearByTechArgs struct {
	Tech string `json:"tech" jsonschema_description:"Technology name to remove (e.g. 'django')"`
}

// ClearByTech handles the clear_by_tech tool call (spec §4.4 clear_tech).
func (h *Handlers) ClearByTech(ctx context.Context, req *mcp.CallToolRequest, args ClearByTechArgs) (*mcp.CallToolResult, any, error) {
	tech := strings.TrimSpace(args.Tech)
	if tech == "" {
		return nil, nil, fmt.Errorf("tech is required")
	}
	if err := h.engine.ClearTech(ctx, tech); err != nil {
		h.logger.Error("clear_by_tech: failed", "tech", tech, "error", err)
		return nil, nil, err
	}
	h.logger.Info("clear_by_tech: cleared", "tech", tech)
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Cleared all chunks for tech=%s.", tech)}},
	}, nil, nil
}
