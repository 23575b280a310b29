package commands

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

const defaultCleanDays = 30

func newCleanCommand(g *globals) *cobra.Command {
	var (
		days   int
		dryRun bool
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "clean",
		Args:  cobra.NoArgs,
		Short: "Delete stored metrics older than a number of days",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, cleanup, err := g.open(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			out := cmd.OutOrStdout()
			if !dryRun && !force {
				fmt.Fprintf(out, "Delete metrics older than %d days? [y/N] ", days)
				answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
					fmt.Fprintln(out, "Aborted")
					return nil
				}
			}

			res, err := m.Clean(ctx, days, dryRun)
			if err != nil {
				return fmt.Errorf("failed to clean metrics: %w", err)
			}
			if res.DryRun {
				fmt.Fprintf(out, "Would run: %s\n", res.Statement)
				return nil
			}
			fmt.Fprintf(out, "Deleted %d metrics recorded before %s\n", res.Deleted, res.Cutoff.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", defaultCleanDays, "days of metrics to keep")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the delete statement without running it")
	cmd.Flags().BoolVar(&force, "force", false, "skip the confirmation prompt")
	return cmd
}
