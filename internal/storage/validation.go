package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/cashflow/internal/model"
)

// Validation errors.
var (
	ErrNilContext      = errors.New("context cannot be nil")
	ErrEmptyString     = errors.New("string parameter cannot be empty")
	ErrNilParameter    = errors.New("parameter cannot be nil")
	ErrInvalidAccount  = errors.New("invalid account")
	ErrInvalidCard     = errors.New("invalid card")
	ErrInvalidSeries   = errors.New("invalid recurrence series")
	ErrInvalidInvoice  = errors.New("invalid invoice")
	ErrMissingEntryID  = errors.New("entry has no id")
	ErrInvalidDateSpan = errors.New("start date must be before end date")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateEntry checks the persisted invariants of a ledger entry.
func validateEntry(entry *model.LedgerEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry", ErrNilParameter)
	}
	return entry.ValidatePersisted()
}

// validateAccount validates a bank account.
func validateAccount(account *model.Account) error {
	if account == nil {
		return fmt.Errorf("%w: account", ErrNilParameter)
	}
	if strings.TrimSpace(account.BankName) == "" {
		return fmt.Errorf("%w: missing bank name", ErrInvalidAccount)
	}
	if strings.TrimSpace(account.Number) == "" {
		return fmt.Errorf("%w: missing account number", ErrInvalidAccount)
	}
	return nil
}

// validateCard validates a credit card and its invoice cycle.
func validateCard(card *model.Card) error {
	if card == nil {
		return fmt.Errorf("%w: card", ErrNilParameter)
	}
	if strings.TrimSpace(card.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidCard)
	}
	if card.ClosingDay < 1 || card.ClosingDay > 31 {
		return fmt.Errorf("%w: closing day %d outside 1..31", ErrInvalidCard, card.ClosingDay)
	}
	if card.DueDay < 1 || card.DueDay > 31 {
		return fmt.Errorf("%w: due day %d outside 1..31", ErrInvalidCard, card.DueDay)
	}
	if card.Limit.IsNegative() {
		return fmt.Errorf("%w: negative limit", ErrInvalidCard)
	}
	return nil
}

// validateSeries validates a recurrence series definition.
func validateSeries(series *model.RecurrenceSeries) error {
	if series == nil {
		return fmt.Errorf("%w: series", ErrNilParameter)
	}
	if series.TotalOccurrences < 1 {
		return fmt.Errorf("%w: total occurrences must be at least 1", ErrInvalidSeries)
	}
	if !series.Periodicity.Repeats() {
		return fmt.Errorf("%w: periodicity %q does not repeat", ErrInvalidSeries, series.Periodicity)
	}
	if series.AnchorDate.IsZero() {
		return fmt.Errorf("%w: missing anchor date", ErrInvalidSeries)
	}
	return nil
}

// validateInvoice validates an invoice before update.
func validateInvoice(invoice *model.Invoice) error {
	if invoice == nil {
		return fmt.Errorf("%w: invoice", ErrNilParameter)
	}
	if invoice.ID == 0 {
		return fmt.Errorf("%w: missing id", ErrInvalidInvoice)
	}
	switch invoice.Status {
	case model.InvoiceOpen, model.InvoiceClosed, model.InvoiceReopened:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInvoice, invoice.Status)
	}
	return nil
}
