package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidEntry is wrapped by every entry invariant violation.
var ErrInvalidEntry = errors.New("invalid ledger entry")

// Kind tells whether an entry takes money out (debit) or brings it in (credit).
type Kind string

const (
	// KindDebit is an outflow.
	KindDebit Kind = "D"
	// KindCredit is an inflow.
	KindCredit Kind = "C"
)

// ParseKind accepts the short codes as well as the spelled-out names.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "d", "debit", "débito", "debito":
		return KindDebit, nil
	case "c", "credit", "crédito", "credito":
		return KindCredit, nil
	default:
		return "", fmt.Errorf("unknown entry kind %q", s)
	}
}

// IsValid reports whether k is one of the known kinds.
func (k Kind) IsValid() bool {
	return k == KindDebit || k == KindCredit
}

func (k Kind) String() string {
	switch k {
	case KindDebit:
		return "debit"
	case KindCredit:
		return "credit"
	default:
		return string(k)
	}
}

// PaymentMethod identifies where the money for an entry moves.
type PaymentMethod string

const (
	// PaymentBankAccount entries hit the account on their competence date.
	PaymentBankAccount PaymentMethod = "bank_account"
	// PaymentCreditCard entries are paid when the card invoice falls due.
	PaymentCreditCard PaymentMethod = "credit_card"
)

// LedgerEntry is the atomic ledger record.
//
// Exactly one of AccountID and CardID is set. InvoiceID is set iff CardID is
// set, and for card entries CashDate always comes from the invoice cycle.
type LedgerEntry struct {
	CompetenceDate time.Time
	CashDate       time.Time
	CreatedAt      time.Time
	Amount         decimal.Decimal
	CategoryID     *int64
	AccountID      *int64
	CardID         *int64
	InvoiceID      *int64
	SeriesID       *int64
	Description    string
	Kind           Kind
	PaymentMethod  PaymentMethod
	ImportHash     string
	DocumentNumber string
	ID             int64
	Reconciled     bool
}

// SignedAmount returns the amount with debits negative.
func (e *LedgerEntry) SignedAmount() decimal.Decimal {
	if e.Kind == KindDebit {
		return e.Amount.Neg()
	}
	return e.Amount
}

// IsRecurring reports whether the entry is still linked to a series.
func (e *LedgerEntry) IsRecurring() bool {
	return e.SeriesID != nil
}

// UseAccount points the entry at a bank account and drops any card linkage.
func (e *LedgerEntry) UseAccount(accountID int64) {
	e.PaymentMethod = PaymentBankAccount
	e.AccountID = &accountID
	e.CardID = nil
	e.InvoiceID = nil
}

// UseCard points the entry at a credit card. The invoice is assigned on save.
func (e *LedgerEntry) UseCard(cardID int64) {
	if e.CardID == nil || *e.CardID != cardID {
		e.InvoiceID = nil
	}
	e.PaymentMethod = PaymentCreditCard
	e.CardID = &cardID
	e.AccountID = nil
}

// Validate checks the structural invariants that hold before persistence.
// The invoice linkage is checked separately by ValidatePersisted because it
// is assigned while saving.
func (e *LedgerEntry) Validate() error {
	if strings.TrimSpace(e.Description) == "" {
		return fmt.Errorf("%w: missing description", ErrInvalidEntry)
	}
	if !e.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidEntry, e.Amount)
	}
	if !e.Kind.IsValid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEntry, e.Kind)
	}
	if e.CompetenceDate.IsZero() {
		return fmt.Errorf("%w: missing competence date", ErrInvalidEntry)
	}
	if (e.AccountID == nil) == (e.CardID == nil) {
		return fmt.Errorf("%w: exactly one of account or card must be set", ErrInvalidEntry)
	}

	switch e.PaymentMethod {
	case PaymentBankAccount:
		if e.AccountID == nil {
			return fmt.Errorf("%w: bank account payment without account", ErrInvalidEntry)
		}
		if e.InvoiceID != nil {
			return fmt.Errorf("%w: bank account entry cannot reference an invoice", ErrInvalidEntry)
		}
	case PaymentCreditCard:
		if e.CardID == nil {
			return fmt.Errorf("%w: credit card payment without card", ErrInvalidEntry)
		}
	default:
		return fmt.Errorf("%w: unknown payment method %q", ErrInvalidEntry, e.PaymentMethod)
	}

	return nil
}

// ValidatePersisted adds the checks that only hold once the entry has been
// assigned its cash date and invoice.
func (e *LedgerEntry) ValidatePersisted() error {
	if err := e.Validate(); err != nil {
		return err
	}
	if e.CashDate.IsZero() {
		return fmt.Errorf("%w: missing cash date", ErrInvalidEntry)
	}
	if (e.InvoiceID != nil) != (e.CardID != nil) {
		return fmt.Errorf("%w: invoice must be set iff the entry is on a card", ErrInvalidEntry)
	}
	return nil
}
