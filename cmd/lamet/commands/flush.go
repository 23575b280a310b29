package commands

import (
	"fmt"

	"github.com/ncobase/lamet/types"
	"github.com/spf13/cobra"
)

func newFlushCommand(g *globals) *cobra.Command {
	var (
		dryRun       bool
		printPending bool
	)

	cmd := &cobra.Command{
		Use:   "flush",
		Args:  cobra.NoArgs,
		Short: "Persist buffered metrics to storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, cleanup, err := g.open(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			out := cmd.OutOrStdout()
			if dryRun || printPending {
				pending, err := m.Peek(ctx)
				if err != nil {
					return fmt.Errorf("failed to read pending metrics: %w", err)
				}
				if printPending {
					if pending == nil {
						pending = []types.AggregatedMetric{}
					}
					if err := writeJSON(out, pending); err != nil {
						return err
					}
				}
				if dryRun {
					fmt.Fprintf(out, "%d metrics pending, nothing flushed (dry run)\n", len(pending))
					return nil
				}
			}

			n, err := m.Flush(ctx)
			if err != nil {
				return fmt.Errorf("failed to flush metrics after %d stored: %w", n, err)
			}
			fmt.Fprintf(out, "Flushed %d metrics\n", n)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report pending metrics without flushing")
	cmd.Flags().BoolVar(&printPending, "print", false, "print pending metrics as JSON")
	return cmd
}
