package mcpserver

import (
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ServerName and ServerVersion identify this adapter to MCP clients.
const (
	ServerName    = "docs-mcp-server"
	ServerVersion = "v1.0.0"
)

// NewServer builds an MCP server with all seven retrieval operations
// registered as tools, ready to Run over a transport.
func NewServer(engine Engine, logger *slog.Logger) *mcp.Server {
	h := NewHandlers(engine, logger)

	s := mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: ServerVersion,
	}, &mcp.ServerOptions{
		Instructions: "Index technical documentation with `index`, then use `search` for hybrid keyword+semantic lookups, `retrieve` to fetch a chunk by id, `list_sources`/`stats` to inspect what's indexed, and `clear`/`clear_by_tech` to remove it.",
	})

	mcp.AddTool(s, &mcp.Tool{
		Name:        "index",
		Description: "Index or reindex one or more paths (files or directories) of documentation.",
	}, h.Index)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "search",
		Description: "Hybrid keyword+semantic search over indexed documentation, optionally filtered by tech/component/version/file_type.",
	}, h.Search)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "retrieve",
		Description: "Fetch a single chunk's full content by chunk_id.",
	}, h.Retrieve)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "stats",
		Description: "Report current store sizes (keyword, vector, metadata) and indexed source count.",
	}, h.Stats)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "list_sources",
		Description: "List every indexed tech/version pair with its chunk count.",
	}, h.ListSources)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "clear",
		Description: "Remove all indexed data from every store. Requires confirm=true.",
	}, h.Clear)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "clear_by_tech",
		Description: "Remove all indexed chunks for a single technology.",
	}, h.ClearByTech)

	return s
}
