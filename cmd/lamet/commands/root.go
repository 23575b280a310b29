// Package commands implements the lamet command line.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ncobase/lamet/config"
	"github.com/ncobase/lamet/data"
	"github.com/ncobase/lamet/logging/logger"
	"github.com/ncobase/lamet/manager"
	"github.com/ncobase/lamet/version"
	"github.com/spf13/cobra"
)

type globals struct {
	configFile string
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:           "lamet",
		Short:         "Aggregate application metrics and flush them to storage",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&g.configFile, "config", "c", "", "config file path")

	rootCmd.AddCommand(
		newFlushCommand(g),
		newCleanCommand(g),
		newMetricsCommand(g),
		newMigrateCommand(g),
		newServeCommand(g),
		newVersionCommand(),
	)

	return rootCmd
}

// open loads the configuration, sets up logging and builds a Manager. The
// returned cleanup closes both.
func (g *globals) open(ctx context.Context) (*manager.Manager, func(), error) {
	cfg, err := config.LoadConfig(g.configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	// command output owns stdout
	if cfg.Logger.Output == "" || cfg.Logger.Output == "stdout" {
		cfg.Logger.Output = "stderr"
	}
	logger.SetVersion(version.GetVersionInfo().Version)
	closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	m, err := manager.New(ctx, cfg)
	if err != nil {
		closeLog()
		return nil, nil, fmt.Errorf("failed to create manager: %w", err)
	}
	return m, func() {
		if err := m.Close(); err != nil {
			logger.Warnf(ctx, "failed to close manager: %v", err)
		}
		closeLog()
	}, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newVersionCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.GetVersionInfo()
			if !asJSON {
				fmt.Fprintln(cmd.OutOrStdout(), info.String())
				return nil
			}
			info.Drivers = data.ListRegisteredDrivers()
			out, err := info.JSON()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
