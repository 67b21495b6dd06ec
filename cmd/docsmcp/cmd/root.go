// Package cmd provides the docsmcp CLI commands: a cobra front end
// over pkg/docscore.Engine for indexing and searching documentation
// from a terminal, alongside the MCP stdio adapter in
// cmd/docsmcp-server.
package cmd

import (
	"github.com/spf13/cobra"
)

var (
	indexDir   string
	configPath string
)

// NewRootCmd creates the root docsmcp command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docsmcp",
		Short: "Hybrid keyword+semantic search over versioned technical documentation",
		Long: `docsmcp indexes technical documentation into chunks and searches
them with a fused BM25 keyword index and a cosine vector index.

Run 'docsmcp index <path>' to build an index, then 'docsmcp search
<query>' to query it.`,
	}

	cmd.PersistentFlags().StringVar(&indexDir, "index-dir", ".docsmcp", "Directory for persisted indices, caches, and logs")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file (optional)")

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newSourcesCmd())
	cmd.AddCommand(newClearCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
