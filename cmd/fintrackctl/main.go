package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/log"

	"github.com/spf13/cobra"
)

var version = "dev"

// app carries what every subcommand needs once the root has run.
type app struct {
	cfg    *config.Config
	logger *log.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:           "fintrackctl",
		Short:         "Administer a fintrack deployment",
		Long:          `fintrackctl manages the document store schema, replays transaction points into the time-series store and prints summaries.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	cmd.PersistentFlags().String("db", "", "SQLite database path (default: SQLITE_DB_PATH)")
	cmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(migrateCmd(a))
	cmd.AddCommand(backfillCmd(a))
	cmd.AddCommand(reportCmd(a))
	cmd.AddCommand(versionCmd())
	return cmd
}

func (a *app) init(cmd *cobra.Command) error {
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		if err := os.Setenv("LOG_LEVEL", lvl); err != nil {
			return err
		}
	}
	a.logger = cli.SetupLogger(log.ComponentApp)

	a.cfg = config.Load()
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		a.cfg.SQLiteDBPath = db
		a.cfg.DataBackend = config.BackendSQLite
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the fintrackctl version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version)
			return err
		},
	}
}

func main() {
	cli.LoadEnvFile()
	ctx, cancel := cli.SignalContext(log.Discard())

	err := newRootCmd().ExecuteContext(ctx)
	cancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
