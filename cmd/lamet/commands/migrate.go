package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:     "migrate",
		Args:    cobra.NoArgs,
		Aliases: []string{"m"},
		Short:   "Create the metrics table and its indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, cleanup, err := g.open(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := m.Migrate(ctx); err != nil {
				return fmt.Errorf("failed to migrate: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Metrics table %q is ready\n", m.Config().Metrics.Table)
			return nil
		},
	}
}
