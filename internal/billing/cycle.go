// Package billing resolves credit card invoice cycles and guards invoice status
// transitions.
package billing

import (
	"fmt"
	"time"

	"github.com/Veraticus/cashflow/internal/common"
	"github.com/Veraticus/cashflow/internal/model"
)

// Cycle is a card's closing-day/due-day pair.
type Cycle struct {
	ClosingDay int
	DueDay     int
}

// CycleOf returns the invoice cycle configured on a card.
func CycleOf(card *model.Card) Cycle {
	return Cycle{ClosingDay: card.ClosingDay, DueDay: card.DueDay}
}

// Validate checks that both days are valid days of a month.
func (c Cycle) Validate() error {
	if c.ClosingDay < 1 || c.ClosingDay > 31 {
		return &common.InvalidDateError{Reason: fmt.Sprintf("closing day %d outside 1..31", c.ClosingDay)}
	}
	if c.DueDay < 1 || c.DueDay > 31 {
		return &common.InvalidDateError{Reason: fmt.Sprintf("due day %d outside 1..31", c.DueDay)}
	}
	return nil
}

// Date returns midnight UTC for the given calendar day. Out-of-range days are
// clamped to the last day of the month.
func Date(year int, month time.Month, day int) time.Time {
	if last := DaysIn(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Day truncates t to its calendar day in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysIn returns the number of days in the month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddMonths moves t by n calendar months, keeping the day-of-month when it
// exists and clamping to the month's last day otherwise.
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	total := int(m) - 1 + n
	y += total / 12
	total %= 12
	if total < 0 {
		total += 12
		y--
	}
	return Date(y, time.Month(total+1), d)
}

// ResolveCashDate maps a card purchase to the due date of the invoice it
// belongs to. Purchases after the closing day land on next month's invoice.
func ResolveCashDate(competence time.Time, closingDay, dueDay int) (time.Time, error) {
	if competence.IsZero() {
		return time.Time{}, &common.InvalidDateError{Reason: "missing competence date"}
	}
	if err := (Cycle{ClosingDay: closingDay, DueDay: dueDay}).Validate(); err != nil {
		return time.Time{}, err
	}

	y, m, d := competence.Date()
	if d > closingDay {
		next := AddMonths(Date(y, m, 1), 1)
		y, m = next.Year(), next.Month()
	}

	return Date(y, m, dueDay), nil
}

// Resolve is ResolveCashDate for this cycle.
func (c Cycle) Resolve(competence time.Time) (time.Time, error) {
	return ResolveCashDate(competence, c.ClosingDay, c.DueDay)
}

// CashDate derives the cash date for an entry. Bank account entries move money
// on their competence date; card entries follow the invoice cycle.
func CashDate(method model.PaymentMethod, competence time.Time, cycle *Cycle) (time.Time, error) {
	switch method {
	case model.PaymentBankAccount:
		if competence.IsZero() {
			return time.Time{}, &common.InvalidDateError{Reason: "missing competence date"}
		}
		return Day(competence), nil
	case model.PaymentCreditCard:
		if cycle == nil {
			return time.Time{}, fmt.Errorf("%w: card entry without invoice cycle", model.ErrInvalidEntry)
		}
		return cycle.Resolve(competence)
	default:
		return time.Time{}, fmt.Errorf("%w: unknown payment method %q", model.ErrInvalidEntry, method)
	}
}

// ClosingDate returns the closing date of the invoice that falls due on due.
// When the closing day comes after the due day the invoice closed in the
// previous month.
func ClosingDate(due time.Time, closingDay int) time.Time {
	if closingDay < due.Day() {
		return Date(due.Year(), due.Month(), closingDay)
	}
	prev := AddMonths(Date(due.Year(), due.Month(), 1), -1)
	return Date(prev.Year(), prev.Month(), closingDay)
}

// ReferenceMonth is the first day of the invoice's due month.
func ReferenceMonth(due time.Time) time.Time {
	return Date(due.Year(), due.Month(), 1)
}
