package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

func execAll(tx *sql.Tx, queries []string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}
	return nil
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial ledger schema",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS accounts (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					bank_name TEXT NOT NULL,
					branch TEXT NOT NULL DEFAULT '',
					number TEXT NOT NULL,
					opening_balance TEXT NOT NULL DEFAULT '0',
					opening_date TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE (branch, number)
				)`,

				`CREATE TABLE IF NOT EXISTS cards (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL,
					credit_limit TEXT NOT NULL DEFAULT '0',
					closing_day INTEGER NOT NULL CHECK (closing_day BETWEEN 1 AND 31),
					due_day INTEGER NOT NULL CHECK (due_day BETWEEN 1 AND 31),
					payment_account_id INTEGER REFERENCES accounts(id) ON DELETE SET NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS categories (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT UNIQUE NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS recurrence_series (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					periodicity TEXT NOT NULL,
					total_occurrences INTEGER NOT NULL CHECK (total_occurrences >= 1),
					anchor_date TEXT NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS invoices (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					card_id INTEGER NOT NULL REFERENCES cards(id) ON DELETE CASCADE,
					reference_month TEXT NOT NULL,
					closing_date TEXT NOT NULL,
					due_date TEXT NOT NULL,
					status TEXT NOT NULL DEFAULT 'open',
					total TEXT NOT NULL DEFAULT '0',
					payment_entry_id INTEGER,
					UNIQUE (card_id, due_date)
				)`,

				`CREATE TABLE IF NOT EXISTS entries (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					description TEXT NOT NULL,
					amount TEXT NOT NULL,
					kind TEXT NOT NULL CHECK (kind IN ('D', 'C')),
					competence_date TEXT NOT NULL,
					cash_date TEXT NOT NULL,
					payment_method TEXT NOT NULL,
					account_id INTEGER REFERENCES accounts(id) ON DELETE CASCADE,
					card_id INTEGER REFERENCES cards(id) ON DELETE CASCADE,
					invoice_id INTEGER REFERENCES invoices(id),
					series_id INTEGER REFERENCES recurrence_series(id) ON DELETE SET NULL,
					category_id INTEGER REFERENCES categories(id) ON DELETE SET NULL,
					reconciled BOOLEAN NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					CHECK ((account_id IS NULL) <> (card_id IS NULL)),
					CHECK ((invoice_id IS NULL) = (card_id IS NULL))
				)`,
				`CREATE INDEX idx_entries_cash_date ON entries(cash_date)`,
				`CREATE INDEX idx_entries_series ON entries(series_id)`,
				`CREATE INDEX idx_entries_invoice ON entries(invoice_id)`,
				`CREATE INDEX idx_entries_account ON entries(account_id)`,
			})
		},
	},
	{
		Version:     2,
		Description: "Add import metadata to entries",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`ALTER TABLE entries ADD COLUMN import_hash TEXT`,
				`ALTER TABLE entries ADD COLUMN document_number TEXT`,
				// Partial index: manual entries have no hash.
				`CREATE INDEX idx_entries_import_hash ON entries(account_id, import_hash) WHERE import_hash IS NOT NULL`,
			})
		},
	},
	{
		Version:     3,
		Description: "Add snapshot metadata table",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS snapshot_metadata (
					id TEXT PRIMARY KEY,
					created_at DATETIME NOT NULL,
					description TEXT,
					file_size INTEGER,
					schema_version INTEGER
				)`,
				`CREATE INDEX idx_snapshot_metadata_created_at ON snapshot_metadata(created_at)`,
			})
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	// Get current version
	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	// Apply migrations
	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		// Update version
		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	// Verify we're at the expected schema version
	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

// SchemaVersion returns the schema version recorded in the database.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
