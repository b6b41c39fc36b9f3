// Package recurrence expands recurring entries into series instances and
// applies edits and deletes across them without touching reconciled history.
package recurrence

import (
	"fmt"
	"sort"
	"time"

	"github.com/Veraticus/cashflow/internal/billing"
	"github.com/Veraticus/cashflow/internal/common"
	"github.com/Veraticus/cashflow/internal/model"
)

// Offset returns the competence date of instance i of a series anchored at
// anchor. Every instance is computed from the anchor so month-end anchors
// survive short months.
func Offset(anchor time.Time, p model.Periodicity, i int) (time.Time, error) {
	switch p {
	case model.PeriodDaily:
		return anchor.AddDate(0, 0, i), nil
	case model.PeriodWeekly:
		return anchor.AddDate(0, 0, 7*i), nil
	case model.PeriodMonthly:
		return billing.AddMonths(anchor, i), nil
	case model.PeriodSemiannual:
		return billing.AddMonths(anchor, 6*i), nil
	case model.PeriodAnnual:
		return billing.AddMonths(anchor, 12*i), nil
	case model.PeriodSingle:
		if i == 0 {
			return anchor, nil
		}
		return time.Time{}, fmt.Errorf("single occurrence has no instance %d", i)
	default:
		return time.Time{}, fmt.Errorf("unknown periodicity %q", p)
	}
}

// Generate expands template into count instances one period apart. The
// returned series and entries are unsaved; the store assigns ids and links
// them. Only the first instance keeps the template's reconciled flag and
// import metadata.
func Generate(template model.LedgerEntry, p model.Periodicity, count int, cycle *billing.Cycle) (model.RecurrenceSeries, []model.LedgerEntry, error) {
	if count < 1 {
		return model.RecurrenceSeries{}, nil, &common.InvalidCountError{Count: count}
	}
	if template.CompetenceDate.IsZero() {
		return model.RecurrenceSeries{}, nil, &common.InvalidDateError{Reason: "template has no competence date"}
	}
	if !p.Repeats() && count > 1 {
		return model.RecurrenceSeries{}, nil, fmt.Errorf("periodicity %q cannot repeat %d times", p, count)
	}

	anchor := billing.Day(template.CompetenceDate)
	series := model.RecurrenceSeries{
		AnchorDate:       anchor,
		Description:      template.Description,
		Periodicity:      p,
		TotalOccurrences: count,
	}

	entries := make([]model.LedgerEntry, 0, count)
	for i := 0; i < count; i++ {
		competence, err := Offset(anchor, p, i)
		if err != nil {
			return model.RecurrenceSeries{}, nil, err
		}
		cash, err := billing.CashDate(template.PaymentMethod, competence, cycle)
		if err != nil {
			return model.RecurrenceSeries{}, nil, fmt.Errorf("instance %d: %w", i+1, err)
		}

		entry := template
		entry.ID = 0
		entry.SeriesID = nil
		entry.InvoiceID = nil
		entry.CompetenceDate = competence
		entry.CashDate = cash
		if i > 0 {
			entry.Reconciled = false
			entry.ImportHash = ""
			entry.DocumentNumber = ""
		}
		entries = append(entries, entry)
	}

	return series, entries, nil
}

// inFutureRange reports whether e belongs to target's series at or after the
// target's competence date.
func inFutureRange(target, e *model.LedgerEntry) bool {
	if e.ID == target.ID {
		return true
	}
	if target.SeriesID == nil || e.SeriesID == nil || *e.SeriesID != *target.SeriesID {
		return false
	}
	return !e.CompetenceDate.Before(target.CompetenceDate)
}

// futureRange returns target plus its later series siblings, target first and
// the rest ordered by competence date.
func futureRange(target model.LedgerEntry, siblings []model.LedgerEntry) []model.LedgerEntry {
	out := []model.LedgerEntry{target}
	for i := range siblings {
		if siblings[i].ID == target.ID || !inFutureRange(&target, &siblings[i]) {
			continue
		}
		out = append(out, siblings[i])
	}
	rest := out[1:]
	sort.SliceStable(rest, func(i, j int) bool {
		if rest[i].CompetenceDate.Equal(rest[j].CompetenceDate) {
			return rest[i].ID < rest[j].ID
		}
		return rest[i].CompetenceDate.Before(rest[j].CompetenceDate)
	})
	return out
}

// HasFutureUnreconciled reports whether target's series still has unreconciled
// instances after it.
func HasFutureUnreconciled(target model.LedgerEntry, siblings []model.LedgerEntry) bool {
	if target.SeriesID == nil {
		return false
	}
	for _, e := range futureRange(target, siblings)[1:] {
		if !e.Reconciled {
			return true
		}
	}
	return false
}

// ApplyUpdate returns the entries changes should be written to. ScopeOne
// changes only target. ScopeAllFuture changes every unreconciled instance of
// target's series on or after target, target included when it is itself
// unreconciled. Competence-date changes only ever apply to target.
func ApplyUpdate(target model.LedgerEntry, changes Changes, scope Scope, siblings []model.LedgerEntry) []model.LedgerEntry {
	if scope == ScopeOne || target.SeriesID == nil {
		updated := target
		changes.Apply(&updated, true)
		return []model.LedgerEntry{updated}
	}

	var out []model.LedgerEntry
	for _, e := range futureRange(target, siblings) {
		if e.Reconciled {
			continue
		}
		changes.Apply(&e, e.ID == target.ID)
		out = append(out, e)
	}
	return out
}

// DeletePlan lists what a delete removes and which reconciled instances are
// detached from their series instead.
type DeletePlan struct {
	Delete []int64
	Orphan []int64
}

// Empty reports whether the plan changes nothing.
func (p DeletePlan) Empty() bool {
	return len(p.Delete) == 0 && len(p.Orphan) == 0
}

// ApplyDelete plans a delete. ScopeAllFuture removes the unreconciled
// instances on or after target and orphans the reconciled ones in that range.
func ApplyDelete(target model.LedgerEntry, scope Scope, siblings []model.LedgerEntry) DeletePlan {
	if scope == ScopeOne || target.SeriesID == nil {
		return DeletePlan{Delete: []int64{target.ID}}
	}

	var plan DeletePlan
	for _, e := range futureRange(target, siblings) {
		if e.Reconciled {
			plan.Orphan = append(plan.Orphan, e.ID)
			continue
		}
		plan.Delete = append(plan.Delete, e.ID)
	}
	return plan
}
