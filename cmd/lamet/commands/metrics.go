package commands

import (
	"fmt"
	"time"

	"github.com/ncobase/lamet/storage"
	"github.com/ncobase/lamet/types"
	"github.com/spf13/cobra"
)

func newMetricsCommand(g *globals) *cobra.Command {
	var (
		filter   storage.Filter
		from, to string
	)

	cmd := &cobra.Command{
		Use:   "metrics",
		Args:  cobra.NoArgs,
		Short: "Query stored metrics as JSON, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if filter.Kind != "" {
				if _, err := types.ParseKind(filter.Kind); err != nil {
					return err
				}
			}
			var err error
			if filter.From, err = parseBound(from); err != nil {
				return err
			}
			if filter.To, err = parseBound(to); err != nil {
				return err
			}

			ctx := cmd.Context()
			m, cleanup, err := g.open(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			records, err := m.GetMetrics(ctx, filter)
			if err != nil {
				return fmt.Errorf("failed to query metrics: %w", err)
			}
			if records == nil {
				records = []types.Record{}
			}
			return writeJSON(cmd.OutOrStdout(), records)
		},
	}

	cmd.Flags().StringVar(&filter.Name, "name", "", "metric name")
	cmd.Flags().StringVar(&filter.Kind, "kind", "", "metric type: counter, gauge, timer or exception")
	cmd.Flags().StringVar(&from, "from", "", "earliest recorded_at, local time")
	cmd.Flags().StringVar(&to, "to", "", "latest recorded_at, local time")
	cmd.Flags().IntVar(&filter.Limit, "limit", 100, "maximum records, 0 for all")
	return cmd
}

func parseBound(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := types.ParseLocalTime(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
