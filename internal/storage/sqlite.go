// Package storage provides the SQLite persistence layer for the ledger.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Veraticus/cashflow/internal/model"
	"github.com/Veraticus/cashflow/internal/service"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new database transaction.
func (s *SQLiteStorage) BeginTx(ctx context.Context) (service.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &sqliteTransaction{
		tx:      tx,
		storage: s,
	}, nil
}

// sqliteTransaction wraps sql.Tx to implement service.Transaction.
type sqliteTransaction struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTransaction) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTransaction) Rollback() error {
	return t.tx.Rollback()
}

// Transaction methods delegate to the main storage with the transaction.
func (t *sqliteTransaction) CreateAccount(ctx context.Context, account *model.Account) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAccount(account); err != nil {
		return err
	}
	return t.storage.createAccountTx(ctx, t.tx, account)
}

func (t *sqliteTransaction) GetAccount(ctx context.Context, id int64) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getAccountTx(ctx, t.tx, id)
}

func (t *sqliteTransaction) GetAccounts(ctx context.Context) ([]model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getAccountsTx(ctx, t.tx)
}

func (t *sqliteTransaction) CreateCard(ctx context.Context, card *model.Card) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCard(card); err != nil {
		return err
	}
	return t.storage.createCardTx(ctx, t.tx, card)
}

func (t *sqliteTransaction) GetCard(ctx context.Context, id int64) (*model.Card, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getCardTx(ctx, t.tx, id)
}

func (t *sqliteTransaction) GetCards(ctx context.Context) ([]model.Card, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getCardsTx(ctx, t.tx)
}

func (t *sqliteTransaction) CreateCategory(ctx context.Context, name string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	return t.storage.createCategoryTx(ctx, t.tx, name)
}

func (t *sqliteTransaction) GetCategoryByID(ctx context.Context, id int64) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getCategoryByIDTx(ctx, t.tx, id)
}

func (t *sqliteTransaction) GetCategories(ctx context.Context) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getCategoriesTx(ctx, t.tx)
}

func (t *sqliteTransaction) CreateEntry(ctx context.Context, entry *model.LedgerEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateEntry(entry); err != nil {
		return err
	}
	return t.storage.createEntryTx(ctx, t.tx, entry)
}

func (t *sqliteTransaction) UpdateEntry(ctx context.Context, entry *model.LedgerEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateEntry(entry); err != nil {
		return err
	}
	return t.storage.updateEntryTx(ctx, t.tx, entry)
}

func (t *sqliteTransaction) DeleteEntries(ctx context.Context, ids []int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return t.storage.deleteEntriesTx(ctx, t.tx, ids)
}

func (t *sqliteTransaction) GetEntry(ctx context.Context, id int64) (*model.LedgerEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getEntryTx(ctx, t.tx, id)
}

func (t *sqliteTransaction) GetEntriesByIDs(ctx context.Context, ids []int64) ([]model.LedgerEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getEntriesByIDsTx(ctx, t.tx, ids)
}

func (t *sqliteTransaction) GetEntries(ctx context.Context, filter service.EntryFilter) ([]model.LedgerEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getEntriesTx(ctx, t.tx, filter)
}

func (t *sqliteTransaction) GetImportHashes(ctx context.Context, accountID int64) (map[string]bool, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getImportHashesTx(ctx, t.tx, accountID)
}

func (t *sqliteTransaction) CreateSeries(ctx context.Context, series *model.RecurrenceSeries) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSeries(series); err != nil {
		return err
	}
	return t.storage.createSeriesTx(ctx, t.tx, series)
}

func (t *sqliteTransaction) GetSeries(ctx context.Context, id int64) (*model.RecurrenceSeries, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getSeriesTx(ctx, t.tx, id)
}

func (t *sqliteTransaction) DeleteSeries(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return t.storage.deleteSeriesTx(ctx, t.tx, id)
}

func (t *sqliteTransaction) GetOrCreateInvoice(ctx context.Context, cardID int64, dueDate, closingDate time.Time) (*model.Invoice, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getOrCreateInvoiceTx(ctx, t.tx, cardID, dueDate, closingDate)
}

func (t *sqliteTransaction) GetInvoice(ctx context.Context, id int64) (*model.Invoice, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getInvoiceTx(ctx, t.tx, id)
}

func (t *sqliteTransaction) GetInvoices(ctx context.Context, cardID int64) ([]model.Invoice, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getInvoicesTx(ctx, t.tx, cardID)
}

func (t *sqliteTransaction) UpdateInvoice(ctx context.Context, invoice *model.Invoice) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateInvoice(invoice); err != nil {
		return err
	}
	return t.storage.updateInvoiceTx(ctx, t.tx, invoice)
}

func (t *sqliteTransaction) Migrate(_ context.Context) error {
	// Migrations should not be run within a transaction
	return fmt.Errorf("migrations cannot be run within a transaction")
}

func (t *sqliteTransaction) BeginTx(_ context.Context) (service.Transaction, error) {
	// Nested transactions not supported
	return nil, fmt.Errorf("nested transactions not supported")
}

func (t *sqliteTransaction) Close() error {
	// Transactions should be committed or rolled back, not closed
	return fmt.Errorf("transactions must be committed or rolled back, not closed")
}

// queryable is an interface satisfied by both *sql.DB and *sql.Tx.
type queryable interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}
