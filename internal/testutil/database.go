// Package testutil provides test utilities for the cashflow project: an
// isolated, migrated database plus fixtures for the accounts, cards and
// categories most tests need.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/cashflow/internal/model"
	"github.com/Veraticus/cashflow/internal/service"
	"github.com/Veraticus/cashflow/internal/storage"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage    service.Storage
	t          *testing.T
	Categories map[string]int64
}

// TestDBOptions provides configuration options for test database setup.
type TestDBOptions struct {
	CustomSetup    func(context.Context, service.Storage) error
	Categories     []string
	SkipMigrations bool
}

// SetupTestDB creates a new in-memory test database seeded with the given
// categories. It automatically handles migrations and cleanup.
//
// Example:
//
//	db := testutil.SetupTestDB(t, "Groceries", "Rent")
//	account := db.Account(testutil.Date(2024, 1, 1))
func SetupTestDB(t *testing.T, categories ...string) *TestDB {
	t.Helper()
	return SetupTestDBWithOptions(t, TestDBOptions{Categories: categories})
}

// SetupTestDBWithOptions creates a test database with custom options.
func SetupTestDBWithOptions(t *testing.T, opts TestDBOptions) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	ctx := context.Background()

	if !opts.SkipMigrations {
		if err := store.Migrate(ctx); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
	}

	db := &TestDB{
		Storage:    store,
		Categories: make(map[string]int64),
		t:          t,
	}

	for _, name := range opts.Categories {
		cat, err := store.CreateCategory(ctx, name)
		if err != nil {
			t.Fatalf("failed to seed category %q: %v", name, err)
		}
		db.Categories[name] = cat.ID
	}

	if opts.CustomSetup != nil {
		if err := opts.CustomSetup(ctx, store); err != nil {
			t.Fatalf("custom setup failed: %v", err)
		}
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return db
}

// MustGetCategory returns the id of a seeded category or fails the test.
func (db *TestDB) MustGetCategory(name string) int64 {
	db.t.Helper()
	id, ok := db.Categories[name]
	if !ok {
		db.t.Fatalf("category %q was not seeded", name)
	}
	return id
}

// Account creates a bank account opened on openingDate with a zero balance.
func (db *TestDB) Account(openingDate time.Time) *model.Account {
	db.t.Helper()
	account := &model.Account{
		BankName:       "Test Bank",
		Branch:         "0001",
		Number:         fmt.Sprintf("%d", time.Now().UnixNano()),
		OpeningBalance: decimal.Zero,
		OpeningDate:    openingDate,
	}
	if err := db.Storage.CreateAccount(context.Background(), account); err != nil {
		db.t.Fatalf("failed to create account: %v", err)
	}
	return account
}

// Card creates a credit card with the given cycle, paid from paymentAccount
// when it is not nil.
func (db *TestDB) Card(closingDay, dueDay int, paymentAccount *int64) *model.Card {
	db.t.Helper()
	card := &model.Card{
		Name:             fmt.Sprintf("Card %d/%d", closingDay, dueDay),
		Limit:            decimal.NewFromInt(10000),
		ClosingDay:       closingDay,
		DueDay:           dueDay,
		PaymentAccountID: paymentAccount,
	}
	if err := db.Storage.CreateCard(context.Background(), card); err != nil {
		db.t.Fatalf("failed to create card: %v", err)
	}
	return card
}

// Date returns midnight UTC on the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Amount parses a decimal literal or fails.
func Amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
