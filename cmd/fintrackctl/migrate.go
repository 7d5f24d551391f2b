package main

import (
	"errors"
	"fmt"

	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/storage"

	"github.com/spf13/cobra"
)

func migrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the SQLite document store schema",
	}
	cmd.AddCommand(migrateUpCmd(a))
	cmd.AddCommand(migrateDownCmd(a))
	cmd.AddCommand(migrateVersionCmd(a))
	return cmd
}

func (a *app) requireSQLite() error {
	if a.cfg.DataBackend != config.BackendSQLite {
		return errors.New("migrations need the sqlite data backend (set DATA_BACKEND=sqlite or pass --db)")
	}
	return nil
}

func migrateUpCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireSQLite(); err != nil {
				return err
			}
			if err := storage.RunMigrations(a.cfg.SQLiteDBPath); err != nil {
				return err
			}
			return a.printVersion(cmd)
		},
	}
}

func migrateDownCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Revert applied migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireSQLite(); err != nil {
				return err
			}
			steps, _ := cmd.Flags().GetInt("steps")
			a.logger.WarnContext(cmd.Context(), "Rolling back migrations",
				"database", a.cfg.SQLiteDBPath,
				"steps", steps,
				log.FieldOperation, "migrate_down")
			if err := storage.RollbackMigrations(a.cfg.SQLiteDBPath, steps); err != nil {
				return err
			}
			return a.printVersion(cmd)
		},
	}
	cmd.Flags().Int("steps", 1, "number of migrations to revert")
	return cmd
}

func migrateVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the applied schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireSQLite(); err != nil {
				return err
			}
			return a.printVersion(cmd)
		},
	}
}

func (a *app) printVersion(cmd *cobra.Command) error {
	v, dirty, err := storage.MigrationVersion(a.cfg.SQLiteDBPath)
	if err != nil {
		return err
	}
	state := "clean"
	if dirty {
		state = "dirty"
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (%s)\n", v, state)
	return err
}
