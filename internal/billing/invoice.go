package billing

import (
	"fmt"

	"github.com/Veraticus/cashflow/internal/common"
	"github.com/Veraticus/cashflow/internal/model"
	"github.com/shopspring/decimal"
)

// AuthorizeWrite checks whether an entry may be written into inv. A closed
// invoice only accepts the write when the caller confirmed the reopen, in
// which case inv moves to Reopened and reopened is true.
func AuthorizeWrite(inv *model.Invoice, confirmedReopen bool) (reopened bool, err error) {
	switch inv.Status {
	case model.InvoiceOpen, model.InvoiceReopened:
		return false, nil
	case model.InvoiceClosed:
		if !confirmedReopen {
			return false, &common.InvoiceClosedError{InvoiceID: inv.ID, DueDate: inv.DueDate}
		}
		inv.Status = model.InvoiceReopened
		return true, nil
	default:
		return false, fmt.Errorf("%w: unknown status %q", common.ErrInvalidTransition, inv.Status)
	}
}

// Close moves an open or reopened invoice to Closed.
func Close(inv *model.Invoice) error {
	if !inv.Status.AcceptsWrites() {
		return fmt.Errorf("%w: cannot close invoice in status %s", common.ErrInvalidTransition, inv.Status)
	}
	inv.Status = model.InvoiceClosed
	return nil
}

// Reopen moves a closed invoice to Reopened.
func Reopen(inv *model.Invoice) error {
	if inv.Status != model.InvoiceClosed {
		return fmt.Errorf("%w: cannot reopen invoice in status %s", common.ErrInvalidTransition, inv.Status)
	}
	inv.Status = model.InvoiceReopened
	return nil
}

// Acknowledge clears the reopened flag, returning the invoice to Open.
func Acknowledge(inv *model.Invoice) error {
	if inv.Status != model.InvoiceReopened {
		return fmt.Errorf("%w: only reopened invoices can be acknowledged, got %s", common.ErrInvalidTransition, inv.Status)
	}
	inv.Status = model.InvoiceOpen
	return nil
}

// Total sums the invoice entries, debits adding to what is owed and credits
// (refunds) reducing it.
func Total(entries []model.LedgerEntry) decimal.Decimal {
	total := decimal.Zero
	for i := range entries {
		total = total.Sub(entries[i].SignedAmount())
	}
	return total
}
