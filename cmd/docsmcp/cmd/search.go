package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/buzzwomen-dev2/docs-mcp-server/internal/search"
	"github.com/buzzwomen-dev2/docs-mcp-server/internal/store"
)

func newSearchCmd() *cobra.Command {
	var topK int
	var tech, component, version, fileType string

	cmd := &cobra.Command{
		Use:   "search <query>...",
		Short: "Hybrid keyword+semantic search over the indexed documentation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			engine, err := openEngine(ctx)
			if err != nil {
				return err
			}
			defer engine.Close()

			query := strings.Join(args, " ")
			results, err := engine.Search(ctx, query, search.SearchOptions{
				TopK: topK,
				Filters: store.Filters{
					Tech:      tech,
					Component: component,
					Version:   version,
					FileType:  fileType,
				},
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(results) == 0 {
				fmt.Fprintln(out, "No results.")
				return nil
			}
			for i, r := range results {
				fmt.Fprintf(out, "%2d. [%.3f] %s  (%s %s)\n", i+1, r.FinalScore, r.Chunk.SourcePath, r.Chunk.Tech, r.Chunk.Version)
				fmt.Fprintf(out, "    chunk_id: %s\n", r.Chunk.ChunkID)
				fmt.Fprintf(out, "    %s\n\n", truncate(r.Chunk.Content, 200))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().StringVar(&tech, "tech", "", "Filter by technology")
	cmd.Flags().StringVar(&component, "component", "", "Filter by component")
	cmd.Flags().StringVar(&version, "version", "", "Filter by version")
	cmd.Flags().StringVar(&fileType, "file-type", "", "Filter by file type")
	return cmd
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
