package cmd

import (
	"github.com/spf13/cobra"

	"github.com/buzzwomen-dev2/docs-mcp-server/internal/index"
	"github.com/buzzwomen-dev2/docs-mcp-server/internal/ui"
)

func newIndexCmd() *cobra.Command {
	var force bool
	var plain bool

	cmd := &cobra.Command{
		Use:   "index <path>...",
		Short: "Index or reindex one or more documentation paths",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			engine, err := openEngine(ctx)
			if err != nil {
				return err
			}
			defer engine.Close()

			renderer := ui.NewRenderer(ui.Config{Output: cmd.OutOrStdout(), ForcePlain: plain})
			if err := renderer.Start(ctx); err != nil {
				return err
			}
			defer renderer.Stop()

			stats, err := engine.IndexPaths(ctx, args, force, func(event index.ProgressEvent) {
				renderer.UpdateProgress(event)
			})
			if err != nil {
				return err
			}
			renderer.Complete(stats)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Reindex every file even if its content hash is unchanged")
	cmd.Flags().BoolVar(&plain, "no-tui", false, "Force plain text progress output")
	return cmd
}
