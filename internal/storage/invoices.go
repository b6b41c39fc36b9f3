package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/cashflow/internal/billing"
	"github.com/Veraticus/cashflow/internal/common"
	"github.com/Veraticus/cashflow/internal/model"
)

const invoiceColumns = `id, card_id, reference_month, closing_date, due_date, status, total, payment_entry_id`

func scanInvoice(row rowScanner) (*model.Invoice, error) {
	var (
		inv       model.Invoice
		reference string
		closing   string
		due       string
		status    string
		total     string
		payment   sql.NullInt64
	)
	if err := row.Scan(&inv.ID, &inv.CardID, &reference, &closing, &due, &status, &total, &payment); err != nil {
		return nil, err
	}

	var err error
	if inv.ReferenceMonth, err = parseDate(reference); err != nil {
		return nil, err
	}
	if inv.ClosingDate, err = parseDate(closing); err != nil {
		return nil, err
	}
	if inv.DueDate, err = parseDate(due); err != nil {
		return nil, err
	}
	if inv.Total, err = parseDecimal(total); err != nil {
		return nil, err
	}
	inv.Status = model.InvoiceStatus(status)
	inv.PaymentEntryID = fromNullInt(payment)
	return &inv, nil
}

// GetOrCreateInvoice returns the card's invoice for dueDate, creating an open
// one when none exists yet.
func (s *SQLiteStorage) GetOrCreateInvoice(ctx context.Context, cardID int64, dueDate, closingDate time.Time) (*model.Invoice, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getOrCreateInvoiceTx(ctx, s.db, cardID, dueDate, closingDate)
}

func (s *SQLiteStorage) getOrCreateInvoiceTx(ctx context.Context, q queryable, cardID int64, dueDate, closingDate time.Time) (*model.Invoice, error) {
	if dueDate.IsZero() {
		return nil, fmt.Errorf("%w: missing due date", ErrInvalidInvoice)
	}

	row := q.QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE card_id = ? AND due_date = ?`,
		cardID, formatDate(dueDate))
	inv, err := scanInvoice(row)
	if err == nil {
		return inv, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to query invoice: %w", err)
	}

	inv = &model.Invoice{
		CardID:         cardID,
		ReferenceMonth: billing.ReferenceMonth(dueDate),
		ClosingDate:    closingDate,
		DueDate:        dueDate,
		Status:         model.InvoiceOpen,
	}
	result, err := q.ExecContext(ctx, `
		INSERT INTO invoices (card_id, reference_month, closing_date, due_date, status, total)
		VALUES (?, ?, ?, ?, ?, ?)`,
		cardID,
		formatDate(inv.ReferenceMonth),
		formatDate(closingDate),
		formatDate(dueDate),
		string(inv.Status),
		inv.Total.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}

	if inv.ID, err = result.LastInsertId(); err != nil {
		return nil, fmt.Errorf("failed to get invoice ID: %w", err)
	}

	slog.Debug("created invoice", "card_id", cardID, "due_date", formatDate(dueDate), "id", inv.ID)
	return inv, nil
}

// GetInvoice returns an invoice by id, or common.ErrNotFound.
func (s *SQLiteStorage) GetInvoice(ctx context.Context, id int64) (*model.Invoice, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getInvoiceTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getInvoiceTx(ctx context.Context, q queryable, id int64) (*model.Invoice, error) {
	row := q.QueryRowContext(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = ?`, id)
	inv, err := scanInvoice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("invoice %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query invoice: %w", err)
	}
	return inv, nil
}

// GetInvoices lists a card's invoices by due date.
func (s *SQLiteStorage) GetInvoices(ctx context.Context, cardID int64) ([]model.Invoice, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getInvoicesTx(ctx, s.db, cardID)
}

func (s *SQLiteStorage) getInvoicesTx(ctx context.Context, q queryable, cardID int64) ([]model.Invoice, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE card_id = ? ORDER BY due_date`, cardID)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var invoices []model.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, *inv)
	}
	return invoices, rows.Err()
}

// UpdateInvoice persists an invoice's status, total and payment entry.
func (s *SQLiteStorage) UpdateInvoice(ctx context.Context, invoice *model.Invoice) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateInvoice(invoice); err != nil {
		return err
	}
	return s.updateInvoiceTx(ctx, s.db, invoice)
}

func (s *SQLiteStorage) updateInvoiceTx(ctx context.Context, q queryable, invoice *model.Invoice) error {
	result, err := q.ExecContext(ctx, `
		UPDATE invoices SET status = ?, total = ?, payment_entry_id = ?
		WHERE id = ?`,
		string(invoice.Status),
		invoice.Total.String(),
		nullInt(invoice.PaymentEntryID),
		invoice.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update invoice %d: %w", invoice.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("invoice %d: %w", invoice.ID, common.ErrNotFound)
	}
	return nil
}
