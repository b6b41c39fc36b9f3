package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/cashflow/internal/billing"
	"github.com/Veraticus/cashflow/internal/common"
	"github.com/Veraticus/cashflow/internal/model"
	"github.com/Veraticus/cashflow/internal/service"
)

// PaymentCategory is the category given to scheduled invoice payments.
const PaymentCategory = "Invoice Payment"

// Invoices lists a card's invoices.
func (s *Service) Invoices(ctx context.Context, cardID int64) ([]model.Invoice, error) {
	return s.store.GetInvoices(ctx, cardID)
}

// InvoiceEntries lists the entries billed on an invoice.
func (s *Service) InvoiceEntries(ctx context.Context, invoiceID int64) ([]model.LedgerEntry, error) {
	return s.store.GetEntries(ctx, service.EntryFilter{InvoiceID: &invoiceID})
}

// CloseInvoice closes an invoice and, when the card has a payment account and
// something is owed, schedules the payment on that account. The payment is
// dated paymentDate, or the due date when paymentDate is zero.
func (s *Service) CloseInvoice(ctx context.Context, invoiceID int64, paymentDate time.Time) (*model.Invoice, error) {
	var closed *model.Invoice
	err := s.withTx(ctx, func(tx service.Transaction) error {
		inv, err := tx.GetInvoice(ctx, invoiceID)
		if err != nil {
			return err
		}
		if err := billing.Close(inv); err != nil {
			return err
		}

		entries, err := tx.GetEntries(ctx, service.EntryFilter{InvoiceID: &inv.ID})
		if err != nil {
			return err
		}
		inv.Total = billing.Total(entries)

		card, err := tx.GetCard(ctx, inv.CardID)
		if err != nil {
			return err
		}
		if card.PaymentAccountID != nil && inv.Total.IsPositive() && inv.PaymentEntryID == nil {
			payment, err := s.schedulePayment(ctx, tx, card, inv, paymentDate)
			if err != nil {
				return err
			}
			inv.PaymentEntryID = &payment.ID
		}

		if err := tx.UpdateInvoice(ctx, inv); err != nil {
			return err
		}
		closed = inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("closed invoice",
		"invoice_id", closed.ID,
		"total", closed.Total.StringFixed(2),
		"payment_entry_id", closed.PaymentEntryID)
	return closed, nil
}

func (s *Service) schedulePayment(ctx context.Context, tx service.Transaction, card *model.Card, inv *model.Invoice, paymentDate time.Time) (*model.LedgerEntry, error) {
	category, err := tx.CreateCategory(ctx, PaymentCategory)
	if err != nil {
		return nil, err
	}

	date := inv.DueDate
	if !paymentDate.IsZero() {
		date = billing.Day(paymentDate)
	}

	payment := model.LedgerEntry{
		Description:    fmt.Sprintf("Invoice payment %s - due %s", card.Name, inv.DueDate.Format("02/01")),
		Amount:         inv.Total,
		Kind:           model.KindDebit,
		CategoryID:     &category.ID,
		CompetenceDate: date,
		CashDate:       date,
	}
	payment.UseAccount(*card.PaymentAccountID)

	if err := tx.CreateEntry(ctx, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// ReopenInvoice moves a closed invoice to Reopened and removes its scheduled
// payment. A payment that was already reconciled blocks the reopen.
func (s *Service) ReopenInvoice(ctx context.Context, invoiceID int64) (*model.Invoice, error) {
	var reopened *model.Invoice
	err := s.withTx(ctx, func(tx service.Transaction) error {
		inv, err := tx.GetInvoice(ctx, invoiceID)
		if err != nil {
			return err
		}
		if err := billing.Reopen(inv); err != nil {
			return err
		}

		if err := releasePayment(ctx, tx, inv); err != nil {
			return err
		}

		if err := tx.UpdateInvoice(ctx, inv); err != nil {
			return err
		}
		reopened = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reopened, nil
}

// releasePayment deletes the scheduled payment of an invoice being reopened.
// A reconciled payment cannot be taken back.
func releasePayment(ctx context.Context, tx service.Transaction, inv *model.Invoice) error {
	if inv.PaymentEntryID == nil {
		return nil
	}
	payment, err := tx.GetEntry(ctx, *inv.PaymentEntryID)
	switch {
	case errors.Is(err, common.ErrNotFound):
		slog.Debug("scheduled payment already removed", "invoice_id", inv.ID)
	case err != nil:
		return err
	case payment.Reconciled:
		return fmt.Errorf("invoice %d: %w", inv.ID, common.ErrPaymentReconciled)
	default:
		if err := tx.DeleteEntries(ctx, []int64{payment.ID}); err != nil {
			return err
		}
	}
	inv.PaymentEntryID = nil
	return nil
}

// AcknowledgeInvoice returns a reopened invoice to Open.
func (s *Service) AcknowledgeInvoice(ctx context.Context, invoiceID int64) (*model.Invoice, error) {
	var inv *model.Invoice
	err := s.withTx(ctx, func(tx service.Transaction) error {
		var err error
		if inv, err = tx.GetInvoice(ctx, invoiceID); err != nil {
			return err
		}
		if err := billing.Acknowledge(inv); err != nil {
			return err
		}
		return tx.UpdateInvoice(ctx, inv)
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}
