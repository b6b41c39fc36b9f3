package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/cashflow/internal/common"
	"github.com/Veraticus/cashflow/internal/model"
	"github.com/Veraticus/cashflow/internal/service"
)

const entryColumns = `id, description, amount, kind, competence_date, cash_date, payment_method,
	account_id, card_id, invoice_id, series_id, category_id, reconciled,
	import_hash, document_number, created_at`

func scanEntry(row rowScanner) (*model.LedgerEntry, error) {
	var (
		e              model.LedgerEntry
		amount         string
		kind           string
		competence     string
		cash           string
		method         string
		accountID      sql.NullInt64
		cardID         sql.NullInt64
		invoiceID      sql.NullInt64
		seriesID       sql.NullInt64
		categoryID     sql.NullInt64
		importHash     sql.NullString
		documentNumber sql.NullString
	)

	if err := row.Scan(
		&e.ID,
		&e.Description,
		&amount,
		&kind,
		&competence,
		&cash,
		&method,
		&accountID,
		&cardID,
		&invoiceID,
		&seriesID,
		&categoryID,
		&e.Reconciled,
		&importHash,
		&documentNumber,
		&e.CreatedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if e.Amount, err = parseDecimal(amount); err != nil {
		return nil, err
	}
	if e.CompetenceDate, err = parseDate(competence); err != nil {
		return nil, err
	}
	if e.CashDate, err = parseDate(cash); err != nil {
		return nil, err
	}

	e.Kind = model.Kind(kind)
	e.PaymentMethod = model.PaymentMethod(method)
	e.AccountID = fromNullInt(accountID)
	e.CardID = fromNullInt(cardID)
	e.InvoiceID = fromNullInt(invoiceID)
	e.SeriesID = fromNullInt(seriesID)
	e.CategoryID = fromNullInt(categoryID)
	e.ImportHash = importHash.String
	e.DocumentNumber = documentNumber.String

	return &e, nil
}

func scanEntries(rows *sql.Rows) ([]model.LedgerEntry, error) {
	var entries []model.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}
	return entries, nil
}

// CreateEntry inserts a ledger entry and sets its ID.
func (s *SQLiteStorage) CreateEntry(ctx context.Context, entry *model.LedgerEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateEntry(entry); err != nil {
		return err
	}
	return s.createEntryTx(ctx, s.db, entry)
}

func (s *SQLiteStorage) createEntryTx(ctx context.Context, q queryable, entry *model.LedgerEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	result, err := q.ExecContext(ctx, `
		INSERT INTO entries (
			description, amount, kind, competence_date, cash_date, payment_method,
			account_id, card_id, invoice_id, series_id, category_id, reconciled,
			import_hash, document_number, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Description,
		entry.Amount.String(),
		string(entry.Kind),
		formatDate(entry.CompetenceDate),
		formatDate(entry.CashDate),
		string(entry.PaymentMethod),
		nullInt(entry.AccountID),
		nullInt(entry.CardID),
		nullInt(entry.InvoiceID),
		nullInt(entry.SeriesID),
		nullInt(entry.CategoryID),
		entry.Reconciled,
		nullString(entry.ImportHash),
		nullString(entry.DocumentNumber),
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get entry ID: %w", err)
	}
	entry.ID = id
	return nil
}

// UpdateEntry overwrites every mutable column of an existing entry.
func (s *SQLiteStorage) UpdateEntry(ctx context.Context, entry *model.LedgerEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateEntry(entry); err != nil {
		return err
	}
	return s.updateEntryTx(ctx, s.db, entry)
}

func (s *SQLiteStorage) updateEntryTx(ctx context.Context, q queryable, entry *model.LedgerEntry) error {
	if entry.ID == 0 {
		return ErrMissingEntryID
	}

	result, err := q.ExecContext(ctx, `
		UPDATE entries SET
			description = ?, amount = ?, kind = ?, competence_date = ?, cash_date = ?,
			payment_method = ?, account_id = ?, card_id = ?, invoice_id = ?,
			series_id = ?, category_id = ?, reconciled = ?,
			import_hash = ?, document_number = ?
		WHERE id = ?`,
		entry.Description,
		entry.Amount.String(),
		string(entry.Kind),
		formatDate(entry.CompetenceDate),
		formatDate(entry.CashDate),
		string(entry.PaymentMethod),
		nullInt(entry.AccountID),
		nullInt(entry.CardID),
		nullInt(entry.InvoiceID),
		nullInt(entry.SeriesID),
		nullInt(entry.CategoryID),
		entry.Reconciled,
		nullString(entry.ImportHash),
		nullString(entry.DocumentNumber),
		entry.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update entry %d: %w", entry.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("entry %d: %w", entry.ID, common.ErrNotFound)
	}
	return nil
}

// DeleteEntries removes the given entries. Missing ids are ignored.
func (s *SQLiteStorage) DeleteEntries(ctx context.Context, ids []int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.deleteEntriesTx(ctx, s.db, ids)
}

func (s *SQLiteStorage) deleteEntriesTx(ctx context.Context, q queryable, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	result, err := q.ExecContext(ctx,
		`DELETE FROM entries WHERE id IN (`+placeholders(len(ids))+`)`,
		int64Args(ids)...)
	if err != nil {
		return fmt.Errorf("failed to delete entries: %w", err)
	}

	if affected, err := result.RowsAffected(); err == nil {
		slog.Debug("deleted entries", "requested", len(ids), "deleted", affected)
	}
	return nil
}

// GetEntry returns a single entry, or common.ErrNotFound.
func (s *SQLiteStorage) GetEntry(ctx context.Context, id int64) (*model.LedgerEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getEntryTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getEntryTx(ctx context.Context, q queryable, id int64) (*model.LedgerEntry, error) {
	row := q.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entry %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	return entry, nil
}

// GetEntriesByIDs returns the entries with the given ids ordered by cash date.
// Ids that do not exist are silently skipped.
func (s *SQLiteStorage) GetEntriesByIDs(ctx context.Context, ids []int64) ([]model.LedgerEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getEntriesByIDsTx(ctx, s.db, ids)
}

func (s *SQLiteStorage) getEntriesByIDsTx(ctx context.Context, q queryable, ids []int64) ([]model.LedgerEntry, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := q.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE id IN (`+placeholders(len(ids))+`)
		ORDER BY cash_date, id`,
		int64Args(ids)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanEntries(rows)
}

// GetEntries returns the entries matching filter, ordered by date then id.
func (s *SQLiteStorage) GetEntries(ctx context.Context, filter service.EntryFilter) ([]model.LedgerEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return nil, ErrInvalidDateSpan
	}
	return s.getEntriesTx(ctx, s.db, filter)
}

func (s *SQLiteStorage) getEntriesTx(ctx context.Context, q queryable, filter service.EntryFilter) ([]model.LedgerEntry, error) {
	dateColumn := "cash_date"
	if filter.ByCompetence {
		dateColumn = "competence_date"
	}

	var (
		conditions []string
		args       []any
	)
	if filter.StartDate != nil {
		conditions = append(conditions, dateColumn+" >= ?")
		args = append(args, formatDate(*filter.StartDate))
	}
	if filter.EndDate != nil {
		conditions = append(conditions, dateColumn+" <= ?")
		args = append(args, formatDate(*filter.EndDate))
	}
	if filter.AccountID != nil {
		conditions = append(conditions, "account_id = ?")
		args = append(args, *filter.AccountID)
	}
	if filter.CardID != nil {
		conditions = append(conditions, "card_id = ?")
		args = append(args, *filter.CardID)
	}
	if filter.InvoiceID != nil {
		conditions = append(conditions, "invoice_id = ?")
		args = append(args, *filter.InvoiceID)
	}
	if filter.SeriesID != nil {
		conditions = append(conditions, "series_id = ?")
		args = append(args, *filter.SeriesID)
	}
	if filter.Reconciled != nil {
		conditions = append(conditions, "reconciled = ?")
		args = append(args, *filter.Reconciled)
	}

	query := `SELECT ` + entryColumns + ` FROM entries`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY " + dateColumn + ", id"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanEntries(rows)
}

// GetImportHashes returns the set of import hashes already stored for an account.
func (s *SQLiteStorage) GetImportHashes(ctx context.Context, accountID int64) (map[string]bool, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getImportHashesTx(ctx, s.db, accountID)
}

func (s *SQLiteStorage) getImportHashesTx(ctx context.Context, q queryable, accountID int64) (map[string]bool, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT import_hash FROM entries
		WHERE account_id = ? AND import_hash IS NOT NULL`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query import hashes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	hashes := make(map[string]bool)
	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, fmt.Errorf("failed to scan import hash: %w", err)
		}
		hashes[hash] = true
	}
	return hashes, rows.Err()
}
