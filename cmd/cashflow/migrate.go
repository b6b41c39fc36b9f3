package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/cashflow/internal/config"
	"github.com/Veraticus/cashflow/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

This command ensures your local database has all the required
tables and indexes for the application to function properly.`,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "Show current migration status without applying changes")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	status, _ := cmd.Flags().GetBool("status")

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	slog.Info("Starting database migration",
		"database", cfg.DatabasePath,
		"status_only", status)

	store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	current, err := store.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	if status {
		printf(cmd, "Database:        %s\n", cfg.DatabasePath)
		printf(cmd, "Current version: %d\n", current)
		printf(cmd, "Latest version:  %d\n", storage.ExpectedSchemaVersion)
		if current < storage.ExpectedSchemaVersion {
			printf(cmd, "%d migration(s) pending\n", storage.ExpectedSchemaVersion-current)
		}
		return nil
	}

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("Database migrations completed",
		"from", current,
		"to", storage.ExpectedSchemaVersion)

	return nil
}
