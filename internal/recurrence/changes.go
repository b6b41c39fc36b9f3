package recurrence

import (
	"time"

	"github.com/Veraticus/cashflow/internal/model"
	"github.com/shopspring/decimal"
)

// Changes is a partial update of an entry. Nil fields are left alone.
type Changes struct {
	Description    *string
	Amount         *decimal.Decimal
	Kind           *model.Kind
	CategoryID     *int64
	AccountID      *int64
	CardID         *int64
	CompetenceDate *time.Time
	ClearCategory  bool
}

// IsEmpty reports whether the changes would modify nothing.
func (c Changes) IsEmpty() bool {
	return c.Description == nil && c.Amount == nil && c.Kind == nil &&
		c.CategoryID == nil && c.AccountID == nil && c.CardID == nil &&
		c.CompetenceDate == nil && !c.ClearCategory
}

// Apply writes the changes into e. The competence date is only applied when
// withDate is set. Cash date and invoice are re-derived by the caller.
func (c Changes) Apply(e *model.LedgerEntry, withDate bool) {
	if c.Description != nil {
		e.Description = *c.Description
	}
	if c.Amount != nil {
		e.Amount = *c.Amount
	}
	if c.Kind != nil {
		e.Kind = *c.Kind
	}
	if c.ClearCategory {
		e.CategoryID = nil
	}
	if c.CategoryID != nil {
		id := *c.CategoryID
		e.CategoryID = &id
	}
	if c.AccountID != nil {
		e.UseAccount(*c.AccountID)
	}
	if c.CardID != nil {
		e.UseCard(*c.CardID)
	}
	if withDate && c.CompetenceDate != nil {
		e.CompetenceDate = *c.CompetenceDate
	}
}
