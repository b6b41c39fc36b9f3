package bulk

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Veraticus/cashflow/internal/common"
	"github.com/Veraticus/cashflow/internal/model"
	"github.com/Veraticus/cashflow/internal/recurrence"
)

// Ledger is the part of the ledger service the coordinator drives.
type Ledger interface {
	Entries(ctx context.Context, ids []int64) ([]model.LedgerEntry, error)
	SeriesEntries(ctx context.Context, seriesID int64) ([]model.LedgerEntry, error)
	DeleteEntries(ctx context.Context, ids []int64, scope recurrence.Scope, confirmReopen bool) (recurrence.DeletePlan, error)
}

// Coordinator validates a selection against the chosen action and hands the
// work to the ledger.
type Coordinator struct {
	ledger Ledger
}

// NewCoordinator creates a coordinator over ledger.
func NewCoordinator(ledger Ledger) *Coordinator {
	return &Coordinator{ledger: ledger}
}

// EditTarget is the single entry a bulk edit routes to.
type EditTarget struct {
	Entry model.LedgerEntry
	// Recurring is set when the entry still belongs to a series.
	Recurring bool
	// FutureUnreconciled is set when an AllFuture edit would reach past the
	// entry itself.
	FutureUnreconciled bool
}

// Edit resolves the entry to edit. The selection must hold exactly one id.
func (c *Coordinator) Edit(ctx context.Context, sel *Selection) (EditTarget, error) {
	if sel.Len() != 1 {
		return EditTarget{}, fmt.Errorf("%w: %d selected", common.ErrEditRequiresSingle, sel.Len())
	}

	entries, err := c.load(ctx, sel.IDs())
	if err != nil {
		return EditTarget{}, err
	}
	target := EditTarget{Entry: entries[0], Recurring: entries[0].IsRecurring()}
	if !target.Recurring {
		return target, nil
	}

	siblings, err := c.ledger.SeriesEntries(ctx, *target.Entry.SeriesID)
	if err != nil {
		return EditTarget{}, err
	}
	target.FutureUnreconciled = recurrence.HasFutureUnreconciled(target.Entry, siblings)
	return target, nil
}

// Delete removes the selected entries. opt is required when any selected
// entry is recurring and defaults to OnlySelected otherwise. Deleted ids are
// dropped from sel.
func (c *Coordinator) Delete(ctx context.Context, sel *Selection, opt *DeleteOption, confirmReopen bool) (recurrence.DeletePlan, error) {
	if sel.Len() == 0 {
		return recurrence.DeletePlan{}, common.ErrEmptySelection
	}

	ids := sel.IDs()
	entries, err := c.load(ctx, ids)
	if err != nil {
		return recurrence.DeletePlan{}, err
	}

	option := OnlySelected
	switch {
	case opt != nil:
		option = *opt
	case anyRecurring(entries):
		return recurrence.DeletePlan{}, common.ErrDeleteOptionRequired
	}

	plan, err := c.ledger.DeleteEntries(ctx, ids, option.Scope(), confirmReopen)
	if err != nil {
		return recurrence.DeletePlan{}, err
	}
	for _, id := range plan.Delete {
		sel.Remove(id)
	}

	slog.Debug("bulk delete",
		"selected", len(ids),
		"option", option.String(),
		"deleted", len(plan.Delete),
		"orphaned", len(plan.Orphan))
	return plan, nil
}

// Reconcile returns the queue of selected entries still to reconcile,
// ordered by cash date then id.
func (c *Coordinator) Reconcile(ctx context.Context, sel *Selection) ([]int64, error) {
	if sel.Len() == 0 {
		return nil, common.ErrEmptySelection
	}
	entries, err := c.load(ctx, sel.IDs())
	if err != nil {
		return nil, err
	}

	queue := make([]int64, 0, len(entries))
	for _, e := range byCashDate(entries) {
		if !e.Reconciled {
			queue = append(queue, e.ID)
		}
	}
	return queue, nil
}

// EditQueue returns every selected id ordered by cash date then id, for
// editing the selection one entry at a time.
func (c *Coordinator) EditQueue(ctx context.Context, sel *Selection) ([]int64, error) {
	if sel.Len() == 0 {
		return nil, common.ErrEmptySelection
	}
	entries, err := c.load(ctx, sel.IDs())
	if err != nil {
		return nil, err
	}

	queue := make([]int64, 0, len(entries))
	for _, e := range byCashDate(entries) {
		queue = append(queue, e.ID)
	}
	return queue, nil
}

// load fetches the selected entries and fails when any of them is gone.
func (c *Coordinator) load(ctx context.Context, ids []int64) ([]model.LedgerEntry, error) {
	entries, err := c.ledger.Entries(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load selection: %w", err)
	}
	if len(entries) != len(ids) {
		found := make(map[int64]bool, len(entries))
		for _, e := range entries {
			found[e.ID] = true
		}
		for _, id := range ids {
			if !found[id] {
				return nil, fmt.Errorf("entry %d: %w", id, common.ErrNotFound)
			}
		}
	}
	return entries, nil
}

func anyRecurring(entries []model.LedgerEntry) bool {
	for i := range entries {
		if entries[i].IsRecurring() {
			return true
		}
	}
	return false
}

func byCashDate(entries []model.LedgerEntry) []model.LedgerEntry {
	out := append([]model.LedgerEntry(nil), entries...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CashDate.Equal(out[j].CashDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].CashDate.Before(out[j].CashDate)
	})
	return out
}
