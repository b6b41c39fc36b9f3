package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/cashflow/internal/common"
	"github.com/Veraticus/cashflow/internal/model"
	"github.com/Veraticus/cashflow/internal/service"
)

// Helper function to create test storage.
func createTestStorage(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		t.Fatalf("Failed to migrate: %v", err)
	}

	return store, func() { _ = store.Close() }
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func createTestAccount(t *testing.T, s *SQLiteStorage) *model.Account {
	t.Helper()
	account := &model.Account{
		BankName:       "Test Bank",
		Branch:         "0001",
		Number:         "12345-6",
		OpeningBalance: decimal.RequireFromString("1000.00"),
		OpeningDate:    day(2024, 1, 1),
	}
	if err := s.CreateAccount(context.Background(), account); err != nil {
		t.Fatalf("Failed to create account: %v", err)
	}
	return account
}

func createTestCard(t *testing.T, s *SQLiteStorage, paymentAccount *int64) *model.Card {
	t.Helper()
	card := &model.Card{
		Name:             "Test Card",
		Limit:            decimal.RequireFromString("5000"),
		ClosingDay:       25,
		DueDay:           10,
		PaymentAccountID: paymentAccount,
	}
	if err := s.CreateCard(context.Background(), card); err != nil {
		t.Fatalf("Failed to create card: %v", err)
	}
	return card
}

func bankEntry(accountID int64, description, amount string, date time.Time) *model.LedgerEntry {
	return &model.LedgerEntry{
		Description:    description,
		Amount:         decimal.RequireFromString(amount),
		Kind:           model.KindDebit,
		PaymentMethod:  model.PaymentBankAccount,
		AccountID:      &accountID,
		CompetenceDate: date,
		CashDate:       date,
	}
}

func TestSQLiteStorage_AccountsAndCards(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	account := createTestAccount(t, store)
	if account.ID == 0 {
		t.Fatal("Expected account ID to be set")
	}

	got, err := store.GetAccount(ctx, account.ID)
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if !got.OpeningBalance.Equal(account.OpeningBalance) {
		t.Errorf("Opening balance = %s, want %s", got.OpeningBalance, account.OpeningBalance)
	}
	if !got.OpeningDate.Equal(account.OpeningDate) {
		t.Errorf("Opening date = %v, want %v", got.OpeningDate, account.OpeningDate)
	}

	card := createTestCard(t, store, &account.ID)
	gotCard, err := store.GetCard(ctx, card.ID)
	if err != nil {
		t.Fatalf("GetCard failed: %v", err)
	}
	if gotCard.ClosingDay != 25 || gotCard.DueDay != 10 {
		t.Errorf("Card cycle = %d/%d, want 25/10", gotCard.ClosingDay, gotCard.DueDay)
	}
	if gotCard.PaymentAccountID == nil || *gotCard.PaymentAccountID != account.ID {
		t.Errorf("Payment account = %v, want %d", gotCard.PaymentAccountID, account.ID)
	}

	if _, err := store.GetCard(ctx, 999); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing card, got %v", err)
	}

	invalid := &model.Card{Name: "Broken", ClosingDay: 0, DueDay: 10}
	if err := store.CreateCard(ctx, invalid); !errors.Is(err, ErrInvalidCard) {
		t.Errorf("Expected ErrInvalidCard, got %v", err)
	}
}

func TestSQLiteStorage_Categories(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	first, err := store.CreateCategory(ctx, "Groceries")
	if err != nil {
		t.Fatalf("CreateCategory failed: %v", err)
	}

	again, err := store.CreateCategory(ctx, "Groceries")
	if err != nil {
		t.Fatalf("CreateCategory (existing) failed: %v", err)
	}
	if again.ID != first.ID {
		t.Errorf("Expected existing category %d, got %d", first.ID, again.ID)
	}

	if _, err := store.CreateCategory(ctx, "Rent"); err != nil {
		t.Fatalf("CreateCategory failed: %v", err)
	}

	categories, err := store.GetCategories(ctx)
	if err != nil {
		t.Fatalf("GetCategories failed: %v", err)
	}
	if len(categories) != 2 || categories[0].Name != "Groceries" {
		t.Errorf("Unexpected categories: %+v", categories)
	}

	if _, err := store.GetCategoryByID(ctx, 999); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStorage_EntryRoundTrip(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	account := createTestAccount(t, store)
	category, err := store.CreateCategory(ctx, "Utilities")
	if err != nil {
		t.Fatalf("CreateCategory failed: %v", err)
	}

	entry := bankEntry(account.ID, "Electricity", "123.45", day(2024, 3, 5))
	entry.CashDate = day(2024, 3, 7)
	entry.CategoryID = &category.ID
	entry.Reconciled = true
	entry.ImportHash = "abc123"
	entry.DocumentNumber = "998"

	if err := store.CreateEntry(ctx, entry); err != nil {
		t.Fatalf("CreateEntry failed: %v", err)
	}

	got, err := store.GetEntry(ctx, entry.ID)
	if err != nil {
		t.Fatalf("GetEntry failed: %v", err)
	}

	if got.Description != "Electricity" {
		t.Errorf("Description = %q", got.Description)
	}
	if !got.Amount.Equal(decimal.RequireFromString("123.45")) {
		t.Errorf("Amount = %s, want 123.45", got.Amount)
	}
	if !got.CompetenceDate.Equal(day(2024, 3, 5)) || !got.CashDate.Equal(day(2024, 3, 7)) {
		t.Errorf("Dates = %v / %v", got.CompetenceDate, got.CashDate)
	}
	if got.CategoryID == nil || *got.CategoryID != category.ID {
		t.Errorf("CategoryID = %v, want %d", got.CategoryID, category.ID)
	}
	if !got.Reconciled || got.ImportHash != "abc123" || got.DocumentNumber != "998" {
		t.Errorf("Import metadata not preserved: %+v", got)
	}
	if got.CardID != nil || got.InvoiceID != nil {
		t.Errorf("Bank entry should not carry card fields: %+v", got)
	}

	got.Description = "Electricity (March)"
	got.Reconciled = false
	if err := store.UpdateEntry(ctx, got); err != nil {
		t.Fatalf("UpdateEntry failed: %v", err)
	}

	updated, err := store.GetEntry(ctx, entry.ID)
	if err != nil {
		t.Fatalf("GetEntry failed: %v", err)
	}
	if updated.Description != "Electricity (March)" || updated.Reconciled {
		t.Errorf("Update not applied: %+v", updated)
	}

	if err := store.DeleteEntries(ctx, []int64{entry.ID}); err != nil {
		t.Fatalf("DeleteEntries failed: %v", err)
	}
	if _, err := store.GetEntry(ctx, entry.ID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestSQLiteStorage_EntryValidation(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	account := createTestAccount(t, store)
	card := createTestCard(t, store, nil)

	tests := []struct {
		entry func() *model.LedgerEntry
		name  string
	}{
		{
			name: "missing cash date",
			entry: func() *model.LedgerEntry {
				e := bankEntry(account.ID, "x", "1", day(2024, 1, 1))
				e.CashDate = time.Time{}
				return e
			},
		},
		{
			name: "zero amount",
			entry: func() *model.LedgerEntry {
				return bankEntry(account.ID, "x", "0", day(2024, 1, 1))
			},
		},
		{
			name: "card entry without invoice",
			entry: func() *model.LedgerEntry {
				e := bankEntry(account.ID, "x", "1", day(2024, 1, 1))
				e.UseCard(card.ID)
				return e
			},
		},
		{
			name: "both account and card",
			entry: func() *model.LedgerEntry {
				e := bankEntry(account.ID, "x", "1", day(2024, 1, 1))
				e.CardID = &card.ID
				return e
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.CreateEntry(ctx, tt.entry())
			if !errors.Is(err, model.ErrInvalidEntry) {
				t.Errorf("Expected ErrInvalidEntry, got %v", err)
			}
		})
	}
}

func TestSQLiteStorage_GetEntriesFilter(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	account := createTestAccount(t, store)
	dates := []time.Time{day(2024, 1, 10), day(2024, 2, 10), day(2024, 3, 10), day(2024, 4, 10)}
	for i, d := range dates {
		e := bankEntry(account.ID, "Rent", "900", d)
		e.Reconciled = i < 2
		if err := store.CreateEntry(ctx, e); err != nil {
			t.Fatalf("CreateEntry failed: %v", err)
		}
	}

	start, end := day(2024, 2, 1), day(2024, 3, 31)
	reconciled := false

	tests := []struct {
		name   string
		filter service.EntryFilter
		want   int
	}{
		{name: "no filter", filter: service.EntryFilter{}, want: 4},
		{name: "date range", filter: service.EntryFilter{StartDate: &start, EndDate: &end}, want: 2},
		{name: "unreconciled", filter: service.EntryFilter{Reconciled: &reconciled}, want: 2},
		{name: "account", filter: service.EntryFilter{AccountID: &account.ID}, want: 4},
		{name: "limit", filter: service.EntryFilter{Limit: 3}, want: 3},
		{name: "limit and offset", filter: service.EntryFilter{Limit: 3, Offset: 2}, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := store.GetEntries(ctx, tt.filter)
			if err != nil {
				t.Fatalf("GetEntries failed: %v", err)
			}
			if len(entries) != tt.want {
				t.Errorf("Got %d entries, want %d", len(entries), tt.want)
			}
			for i := 1; i < len(entries); i++ {
				if entries[i].CashDate.Before(entries[i-1].CashDate) {
					t.Errorf("Entries not ordered by cash date")
				}
			}
		})
	}

	if _, err := store.GetEntries(ctx, service.EntryFilter{StartDate: &end, EndDate: &start}); !errors.Is(err, ErrInvalidDateSpan) {
		t.Errorf("Expected ErrInvalidDateSpan, got %v", err)
	}
}

func TestSQLiteStorage_ImportHashes(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	account := createTestAccount(t, store)
	imported := bankEntry(account.ID, "Imported", "10", day(2024, 1, 5))
	imported.ImportHash = "hash-1"
	manual := bankEntry(account.ID, "Manual", "20", day(2024, 1, 6))

	for _, e := range []*model.LedgerEntry{imported, manual} {
		if err := store.CreateEntry(ctx, e); err != nil {
			t.Fatalf("CreateEntry failed: %v", err)
		}
	}

	hashes, err := store.GetImportHashes(ctx, account.ID)
	if err != nil {
		t.Fatalf("GetImportHashes failed: %v", err)
	}
	if len(hashes) != 1 || !hashes["hash-1"] {
		t.Errorf("Unexpected hashes: %v", hashes)
	}
}

func TestSQLiteStorage_SeriesAndInvoices(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	account := createTestAccount(t, store)
	card := createTestCard(t, store, &account.ID)

	series := &model.RecurrenceSeries{
		Periodicity:      model.PeriodMonthly,
		TotalOccurrences: 3,
		AnchorDate:       day(2024, 1, 31),
		Description:      "Gym",
	}
	if err := store.CreateSeries(ctx, series); err != nil {
		t.Fatalf("CreateSeries failed: %v", err)
	}

	due, closing := day(2024, 4, 10), day(2024, 3, 25)
	inv, err := store.GetOrCreateInvoice(ctx, card.ID, due, closing)
	if err != nil {
		t.Fatalf("GetOrCreateInvoice failed: %v", err)
	}
	if inv.Status != model.InvoiceOpen {
		t.Errorf("New invoice status = %s, want open", inv.Status)
	}
	if !inv.ReferenceMonth.Equal(day(2024, 4, 1)) {
		t.Errorf("Reference month = %v", inv.ReferenceMonth)
	}

	same, err := store.GetOrCreateInvoice(ctx, card.ID, due, closing)
	if err != nil {
		t.Fatalf("GetOrCreateInvoice (existing) failed: %v", err)
	}
	if same.ID != inv.ID {
		t.Errorf("Expected same invoice %d, got %d", inv.ID, same.ID)
	}

	entry := &model.LedgerEntry{
		Description:    "Gym",
		Amount:         decimal.RequireFromString("99.90"),
		Kind:           model.KindDebit,
		CompetenceDate: day(2024, 3, 28),
		CashDate:       due,
		SeriesID:       &series.ID,
		InvoiceID:      &inv.ID,
	}
	entry.UseCard(card.ID)
	entry.InvoiceID = &inv.ID
	if err := store.CreateEntry(ctx, entry); err != nil {
		t.Fatalf("CreateEntry failed: %v", err)
	}

	inv.Status = model.InvoiceClosed
	inv.Total = decimal.RequireFromString("99.90")
	if err := store.UpdateInvoice(ctx, inv); err != nil {
		t.Fatalf("UpdateInvoice failed: %v", err)
	}
	invoices, err := store.GetInvoices(ctx, card.ID)
	if err != nil {
		t.Fatalf("GetInvoices failed: %v", err)
	}
	if len(invoices) != 1 || invoices[0].Status != model.InvoiceClosed || !invoices[0].Total.Equal(inv.Total) {
		t.Errorf("Unexpected invoices: %+v", invoices)
	}

	if err := store.DeleteSeries(ctx, series.ID); err != nil {
		t.Fatalf("DeleteSeries failed: %v", err)
	}
	got, err := store.GetEntry(ctx, entry.ID)
	if err != nil {
		t.Fatalf("GetEntry failed: %v", err)
	}
	if got.SeriesID != nil {
		t.Errorf("Expected entry to be detached from deleted series, got %v", *got.SeriesID)
	}
}

func TestSQLiteStorage_Transaction(t *testing.T) {
	tests := []struct {
		txFunc    func(context.Context, *SQLiteStorage, int64) error
		name      string
		wantErr   bool
		wantCount int
	}{
		{
			name: "successful transaction",
			txFunc: func(ctx context.Context, s *SQLiteStorage, accountID int64) error {
				tx, err := s.BeginTx(ctx)
				if err != nil {
					return err
				}

				if err := tx.CreateEntry(ctx, bankEntry(accountID, "One", "1", day(2024, 1, 1))); err != nil {
					_ = tx.Rollback()
					return err
				}

				return tx.Commit()
			},
			wantCount: 1,
		},
		{
			name: "rollback on error",
			txFunc: func(ctx context.Context, s *SQLiteStorage, accountID int64) error {
				tx, err := s.BeginTx(ctx)
				if err != nil {
					return err
				}
				defer func() { _ = tx.Rollback() }()

				if err := tx.CreateEntry(ctx, bankEntry(accountID, "One", "1", day(2024, 1, 1))); err != nil {
					return err
				}
				// Invalid amount aborts the whole unit of work.
				return tx.CreateEntry(ctx, bankEntry(accountID, "Two", "-5", day(2024, 1, 2)))
			},
			wantErr:   true,
			wantCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, cleanup := createTestStorage(t)
			defer cleanup()
			ctx := context.Background()
			account := createTestAccount(t, store)

			err := tt.txFunc(ctx, store, account.ID)
			if (err != nil) != tt.wantErr {
				t.Errorf("Transaction test error = %v, wantErr %v", err, tt.wantErr)
			}

			entries, err := store.GetEntries(ctx, service.EntryFilter{})
			if err != nil {
				t.Fatalf("GetEntries failed: %v", err)
			}
			if len(entries) != tt.wantCount {
				t.Errorf("Got %d entries after transaction, want %d", len(entries), tt.wantCount)
			}
		})
	}
}

func TestSQLiteStorage_Migrations(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store1, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	ctx := context.Background()
	if err2 := store1.Migrate(ctx); err2 != nil {
		t.Fatalf("Initial migration failed: %v", err2)
	}
	_ = store1.Close()

	// Running migrations again should not error
	store2, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer func() { _ = store2.Close() }()

	if err := store2.Migrate(ctx); err != nil {
		t.Fatalf("Repeated migration failed: %v", err)
	}

	version, err := store2.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("Failed to read schema version: %v", err)
	}
	if version != ExpectedSchemaVersion {
		t.Errorf("Schema version = %d, want %d", version, ExpectedSchemaVersion)
	}

	var indexCount int
	err = store2.db.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='index' AND name='idx_entries_import_hash'
	`).Scan(&indexCount)
	if err != nil {
		t.Fatalf("Failed to check index: %v", err)
	}
	if indexCount != 1 {
		t.Error("Import hash index was not created")
	}
}

func TestSQLiteStorage_Snapshot(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	createTestAccount(t, store)

	info, err := store.Snapshot(ctx, "before import")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if info.FileSize == 0 {
		t.Error("Snapshot file is empty")
	}

	restored, err := NewSQLiteStorage(info.Path)
	if err != nil {
		t.Fatalf("Failed to open snapshot: %v", err)
	}
	defer func() { _ = restored.Close() }()

	accounts, err := restored.GetAccounts(ctx)
	if err != nil {
		t.Fatalf("GetAccounts on snapshot failed: %v", err)
	}
	if len(accounts) != 1 {
		t.Errorf("Snapshot has %d accounts, want 1", len(accounts))
	}

	snapshots, err := store.ListSnapshots(ctx)
	if err != nil {
		t.Fatalf("ListSnapshots failed: %v", err)
	}
	if len(snapshots) != 1 || snapshots[0].ID != info.ID {
		t.Errorf("Unexpected snapshots: %+v", snapshots)
	}
}

func TestSQLiteStorage_SnapshotInMemory(t *testing.T) {
	store, err := NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer func() { _ = store.Close() }()

	if _, err := store.Snapshot(context.Background(), ""); !errors.Is(err, ErrSnapshotUnsupported) {
		t.Errorf("Expected ErrSnapshotUnsupported, got %v", err)
	}
}

func TestSQLiteStorage_ConcurrentAccess(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	account := createTestAccount(t, store)

	var wg sync.WaitGroup
	errs := make(chan error, 10)

	for i := 0; i < 5; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			e := bankEntry(account.ID, "Concurrent", "10", day(2024, 1, n+1))
			if err := store.CreateEntry(ctx, e); err != nil {
				errs <- err
			}
		}(i)
		go func() {
			defer wg.Done()
			if _, err := store.GetEntries(ctx, service.EntryFilter{}); err != nil {
				errs <- err
			}
		}()
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Concurrent access error: %v", err)
	}
}
