package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show current store sizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			engine, err := openEngine(ctx)
			if err != nil {
				return err
			}
			defer engine.Close()

			stats, err := engine.GetStats(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "keyword:  %d\n", stats.KeywordCount)
			fmt.Fprintf(out, "vector:   %d\n", stats.VectorCount)
			fmt.Fprintf(out, "metadata: %d\n", stats.MetadataCount)
			fmt.Fprintf(out, "sources:  %d\n", len(stats.Sources))
			return nil
		},
	}
}

func newSourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List every indexed tech/version pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			engine, err := openEngine(ctx)
			if err != nil {
				return err
			}
			defer engine.Close()

			sources, err := engine.ListSources(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(sources) == 0 {
				fmt.Fprintln(out, "No sources indexed.")
				return nil
			}
			for _, s := range sources {
				fmt.Fprintf(out, "%-20s %-10s %d chunks\n", s.Tech, s.Version, s.ChunkCount)
			}
			return nil
		},
	}
}
