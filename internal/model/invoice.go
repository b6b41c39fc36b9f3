package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus is the lifecycle state of a card invoice.
type InvoiceStatus string

const (
	// InvoiceOpen accepts new entries.
	InvoiceOpen InvoiceStatus = "open"
	// InvoiceClosed rejects writes unless the caller confirms a reopen.
	InvoiceClosed InvoiceStatus = "closed"
	// InvoiceReopened behaves like open but records that a closed invoice was changed.
	InvoiceReopened InvoiceStatus = "reopened"
)

// AcceptsWrites reports whether entries can be written without confirmation.
func (s InvoiceStatus) AcceptsWrites() bool {
	return s == InvoiceOpen || s == InvoiceReopened
}

// Invoice collects the card entries that fall due on the same date.
type Invoice struct {
	ReferenceMonth time.Time
	ClosingDate    time.Time
	DueDate        time.Time
	Total          decimal.Decimal
	PaymentEntryID *int64
	Status         InvoiceStatus
	ID             int64
	CardID         int64
}
