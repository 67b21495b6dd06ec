package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newClearCmd() *cobra.Command {
	var tech string
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove indexed data, optionally scoped to a single technology",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear without --yes")
			}

			ctx := cmd.Context()
			engine, err := openEngine(ctx)
			if err != nil {
				return err
			}
			defer engine.Close()

			if tech != "" {
				if err := engine.ClearTech(ctx, tech); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared all chunks for tech=%s.\n", tech)
				return nil
			}

			if err := engine.ClearAll(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All indexed data cleared.")
			return nil
		},
	}

	cmd.Flags().StringVar(&tech, "tech", "", "Clear only chunks for this technology")
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the clear operation")
	return cmd
}
