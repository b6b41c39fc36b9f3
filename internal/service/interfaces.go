// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/cashflow/internal/model"
)

// EntryFilter defines filtering options for entry queries.
type EntryFilter struct {
	StartDate    *time.Time
	EndDate      *time.Time
	AccountID    *int64
	CardID       *int64
	InvoiceID    *int64
	SeriesID     *int64
	Reconciled   *bool
	Limit        int
	Offset       int
	ByCompetence bool
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Account operations
	CreateAccount(ctx context.Context, account *model.Account) error
	GetAccount(ctx context.Context, id int64) (*model.Account, error)
	GetAccounts(ctx context.Context) ([]model.Account, error)

	// Card operations
	CreateCard(ctx context.Context, card *model.Card) error
	GetCard(ctx context.Context, id int64) (*model.Card, error)
	GetCards(ctx context.Context) ([]model.Card, error)

	// Category operations
	CreateCategory(ctx context.Context, name string) (*model.Category, error)
	GetCategoryByID(ctx context.Context, id int64) (*model.Category, error)
	GetCategories(ctx context.Context) ([]model.Category, error)

	// Entry operations
	CreateEntry(ctx context.Context, entry *model.LedgerEntry) error
	UpdateEntry(ctx context.Context, entry *model.LedgerEntry) error
	DeleteEntries(ctx context.Context, ids []int64) error
	GetEntry(ctx context.Context, id int64) (*model.LedgerEntry, error)
	GetEntriesByIDs(ctx context.Context, ids []int64) ([]model.LedgerEntry, error)
	GetEntries(ctx context.Context, filter EntryFilter) ([]model.LedgerEntry, error)
	GetImportHashes(ctx context.Context, accountID int64) (map[string]bool, error)

	// Recurrence series operations
	CreateSeries(ctx context.Context, series *model.RecurrenceSeries) error
	GetSeries(ctx context.Context, id int64) (*model.RecurrenceSeries, error)
	DeleteSeries(ctx context.Context, id int64) error

	// Invoice operations
	GetOrCreateInvoice(ctx context.Context, cardID int64, dueDate, closingDate time.Time) (*model.Invoice, error)
	GetInvoice(ctx context.Context, id int64) (*model.Invoice, error)
	GetInvoices(ctx context.Context, cardID int64) ([]model.Invoice, error)
	UpdateInvoice(ctx context.Context, invoice *model.Invoice) error

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit() error
	Rollback() error
	// Include all Storage methods for use within transaction
	Storage
}
