// Command docsmcp-server runs the retrieval engine as an MCP server
// over stdio, exposing index, search, retrieve, stats, list_sources,
// clear, and clear_by_tech as tools. All business logic lives in
// pkg/docscore and internal/mcpserver; this file only wires flags to
// a running server.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/buzzwomen-dev2/docs-mcp-server/internal/config"
	"github.com/buzzwomen-dev2/docs-mcp-server/internal/logging"
	"github.com/buzzwomen-dev2/docs-mcp-server/internal/mcpserver"
	"github.com/buzzwomen-dev2/docs-mcp-server/pkg/docscore"
)

func main() {
	// MCP stdio servers must never write non-protocol bytes to stdout;
	// all logging goes to a file plus stderr.
	log.SetOutput(os.Stderr)

	indexDir := flag.String("index-dir", ".docsmcp", "Directory for persisted indices, caches, and logs")
	configPath := flag.String("config", "", "Path to a YAML config file (optional)")
	flag.Parse()

	cleanup, err := logging.SetupDefault(*indexDir)
	if err != nil {
		log.Fatalf("setup logging: %v", err)
	}
	defer cleanup()

	cfg, err := config.Load(*configPath, *indexDir)
	if err != nil {
		slog.Error("load config", "error", err)
		log.Fatal(err)
	}

	ctx := context.Background()
	engine, err := docscore.New(ctx, cfg)
	if err != nil {
		slog.Error("construct engine", "error", err)
		log.Fatal(err)
	}
	defer func() {
		if cerr := engine.Close(); cerr != nil {
			slog.Warn("engine_close_failed", "error", cerr)
		}
	}()

	server := mcpserver.NewServer(engine, slog.Default())

	slog.Info("server ready", "name", mcpserver.ServerName, "version", mcpserver.ServerVersion, "index_dir", *indexDir)

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		slog.Error("server error", "error", err)
		log.Fatal(err)
	}
}
