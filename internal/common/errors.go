// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
	"time"
)

// Common application errors.
var (
	// Database errors.
	ErrNotFound = errors.New("not found")

	// Ledger errors.
	ErrDerivedCashDate   = errors.New("cash date is derived from the card invoice cycle")
	ErrInvalidTransition = errors.New("invalid invoice status transition")
	ErrPaymentReconciled = errors.New("invoice payment already reconciled")
	ErrInvalidScope      = errors.New("invalid scope")

	// Selection errors.
	ErrEmptySelection       = errors.New("selection is empty")
	ErrEditRequiresSingle   = errors.New("edit requires exactly one selected entry")
	ErrDeleteOptionRequired = errors.New("selection contains recurring entries; a delete option is required")

	// Staging errors.
	ErrBatchCommitted  = errors.New("batch already committed")
	ErrNoRowsToCommit  = errors.New("no rows to commit")
	ErrAlreadyImported = errors.New("statement line already imported")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// InvalidDateError reports calendar inputs that cannot produce a valid date.
type InvalidDateError struct {
	Date   time.Time
	Reason string
}

func (e *InvalidDateError) Error() string {
	if e.Date.IsZero() {
		return "invalid date: " + e.Reason
	}
	return fmt.Sprintf("invalid date %s: %s", e.Date.Format(time.DateOnly), e.Reason)
}

// InvalidCountError reports a recurrence count below one.
type InvalidCountError struct {
	Count int
}

func (e *InvalidCountError) Error() string {
	return fmt.Sprintf("invalid occurrence count %d: must be at least 1", e.Count)
}

// InvoiceClosedError is returned when a write targets a closed invoice without
// an explicit reopen confirmation.
type InvoiceClosedError struct {
	DueDate   time.Time
	InvoiceID int64
}

func (e *InvoiceClosedError) Error() string {
	return fmt.Sprintf("invoice %d (due %s) is closed; confirm reopen to write to it",
		e.InvoiceID, e.DueDate.Format(time.DateOnly))
}

// UnknownFieldError is returned for staged-row field names outside the editable set.
type UnknownFieldError struct {
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field %q", e.Field)
}

// ImmutableRowError is returned when an already imported row is edited or toggled.
type ImmutableRowError struct {
	RowID int
}

func (e *ImmutableRowError) Error() string {
	return fmt.Sprintf("row %d was already imported and cannot be changed", e.RowID)
}

// RowNotFoundError is returned when a staged row id does not exist in the batch.
type RowNotFoundError struct {
	RowID int
}

func (e *RowNotFoundError) Error() string {
	return fmt.Sprintf("row %d not found in batch", e.RowID)
}

// InvalidValueError reports a value that could not be parsed for a staged-row field.
type InvalidValueError struct {
	Err   error
	Field string
	Value string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value %q for field %s: %v", e.Value, e.Field, e.Err)
}

func (e *InvalidValueError) Unwrap() error {
	return e.Err
}

// CommitValidationError rejects a whole batch commit because of one staged row.
type CommitValidationError struct {
	Err   error
	Field string
	RowID int
}

func (e *CommitValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("commit rejected: row %d, field %s: %v", e.RowID, e.Field, e.Err)
	}
	return fmt.Sprintf("commit rejected: row %d: %v", e.RowID, e.Err)
}

func (e *CommitValidationError) Unwrap() error {
	return e.Err
}
