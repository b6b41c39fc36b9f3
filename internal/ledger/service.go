// Package ledger applies entry, series and invoice operations to storage,
// keeping invoice assignment and invoice status guards in the same
// transaction as the write they protect.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/cashflow/internal/billing"
	"github.com/Veraticus/cashflow/internal/common"
	"github.com/Veraticus/cashflow/internal/model"
	"github.com/Veraticus/cashflow/internal/recurrence"
	"github.com/Veraticus/cashflow/internal/service"
)

// Service is the entry point for every ledger write.
type Service struct {
	store service.Storage
	now   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the clock used to decide what is in the future.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a ledger service on top of store.
func NewService(store service.Storage, opts ...Option) *Service {
	s := &Service{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) today() time.Time {
	return billing.Day(s.now())
}

// withTx runs fn in one storage transaction, rolling back on any error.
func (s *Service) withTx(ctx context.Context, fn func(tx service.Transaction) error) error {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// writeState tracks what a single operation touched.
type writeState struct {
	tx            service.Transaction
	cards         map[int64]*model.Card
	touched       map[int64]bool
	confirmReopen bool
}

func newWriteState(tx service.Transaction, confirmReopen bool) *writeState {
	return &writeState{
		tx:            tx,
		cards:         make(map[int64]*model.Card),
		touched:       make(map[int64]bool),
		confirmReopen: confirmReopen,
	}
}

func (w *writeState) card(ctx context.Context, id int64) (*model.Card, error) {
	if c, ok := w.cards[id]; ok {
		return c, nil
	}
	c, err := w.tx.GetCard(ctx, id)
	if err != nil {
		return nil, err
	}
	w.cards[id] = c
	return c, nil
}

func (w *writeState) cycle(ctx context.Context, e *model.LedgerEntry) (*billing.Cycle, error) {
	if e.CardID == nil {
		return nil, nil
	}
	c, err := w.card(ctx, *e.CardID)
	if err != nil {
		return nil, err
	}
	cycle := billing.CycleOf(c)
	return &cycle, nil
}

// guard authorizes a write into an existing invoice, reopening it when the
// caller confirmed.
func (w *writeState) guard(ctx context.Context, invoiceID int64) error {
	inv, err := w.tx.GetInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}
	if err := w.authorize(ctx, inv); err != nil {
		return err
	}
	w.touched[inv.ID] = true
	return nil
}

func (w *writeState) authorize(ctx context.Context, inv *model.Invoice) error {
	reopened, err := billing.AuthorizeWrite(inv, w.confirmReopen)
	if err != nil {
		return err
	}
	if reopened {
		if err := releasePayment(ctx, w.tx, inv); err != nil {
			return err
		}
		if err := w.tx.UpdateInvoice(ctx, inv); err != nil {
			return err
		}
		slog.Info("reopened invoice", "invoice_id", inv.ID, "due_date", inv.DueDate.Format(time.DateOnly))
	}
	return nil
}

// place derives the cash date and invoice of e. Card entries take the due
// date of the invoice their competence date falls into; bank entries keep
// cashDate when set and use the competence date otherwise.
func (w *writeState) place(ctx context.Context, e *model.LedgerEntry, cashDate time.Time) error {
	if e.CardID == nil {
		e.InvoiceID = nil
		if cashDate.IsZero() {
			cashDate = e.CompetenceDate
		}
		e.CashDate = billing.Day(cashDate)
		return nil
	}

	c, err := w.card(ctx, *e.CardID)
	if err != nil {
		return err
	}
	due, err := billing.CycleOf(c).Resolve(e.CompetenceDate)
	if err != nil {
		return err
	}

	inv, err := w.tx.GetOrCreateInvoice(ctx, c.ID, due, billing.ClosingDate(due, c.ClosingDay))
	if err != nil {
		return err
	}
	if err := w.authorize(ctx, inv); err != nil {
		return err
	}

	e.CashDate = due
	e.InvoiceID = &inv.ID
	w.touched[inv.ID] = true
	return nil
}

// refreshTotals recomputes the total of every invoice the operation touched.
func (w *writeState) refreshTotals(ctx context.Context) error {
	for id := range w.touched {
		inv, err := w.tx.GetInvoice(ctx, id)
		if err != nil {
			return err
		}
		entries, err := w.tx.GetEntries(ctx, service.EntryFilter{InvoiceID: &id})
		if err != nil {
			return err
		}
		total := billing.Total(entries)
		if total.Equal(inv.Total) {
			continue
		}
		inv.Total = total
		if err := w.tx.UpdateInvoice(ctx, inv); err != nil {
			return err
		}
	}
	return nil
}

// NewEntry describes an entry, or the first instance of a series, to create.
type NewEntry struct {
	CompetenceDate time.Time
	// CashDate is only honored for bank account entries.
	CashDate       time.Time
	Amount         decimal.Decimal
	CategoryID     *int64
	AccountID      *int64
	CardID         *int64
	Description    string
	Kind           model.Kind
	Periodicity    model.Periodicity
	ImportHash     string
	DocumentNumber string
	Count          int
	Reconciled     bool
	ConfirmReopen  bool
}

func (n NewEntry) template() (model.LedgerEntry, error) {
	e := model.LedgerEntry{
		Description:    n.Description,
		Amount:         n.Amount,
		Kind:           n.Kind,
		CategoryID:     n.CategoryID,
		CompetenceDate: billing.Day(n.CompetenceDate),
		Reconciled:     n.Reconciled,
		ImportHash:     n.ImportHash,
		DocumentNumber: n.DocumentNumber,
	}
	switch {
	case n.AccountID != nil && n.CardID != nil:
		return e, fmt.Errorf("%w: exactly one of account or card must be set", model.ErrInvalidEntry)
	case n.AccountID != nil:
		e.UseAccount(*n.AccountID)
	case n.CardID != nil:
		if !n.CashDate.IsZero() {
			return e, common.ErrDerivedCashDate
		}
		e.UseCard(*n.CardID)
	}
	if n.CompetenceDate.IsZero() {
		return e, &common.InvalidDateError{Reason: "missing competence date"}
	}
	return e, e.Validate()
}

func (n NewEntry) plan() (model.Periodicity, int) {
	count := n.Count
	if count == 0 {
		count = 1
	}
	p := n.Periodicity
	if p == "" {
		p = model.PeriodSingle
		if count > 1 {
			p = model.PeriodMonthly
		}
	}
	return p, count
}

// CreateEntry creates an entry, or every instance of a series when Count is
// above one. All instances are written in one transaction.
func (s *Service) CreateEntry(ctx context.Context, n NewEntry) ([]model.LedgerEntry, error) {
	var created []model.LedgerEntry
	err := s.withTx(ctx, func(tx service.Transaction) error {
		w := newWriteState(tx, n.ConfirmReopen)
		var err error
		if created, err = s.createTx(ctx, w, n); err != nil {
			return err
		}
		return w.refreshTotals(ctx)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("created entries", "description", n.Description, "count", len(created))
	return created, nil
}

func (s *Service) createTx(ctx context.Context, w *writeState, n NewEntry) ([]model.LedgerEntry, error) {
	template, err := n.template()
	if err != nil {
		return nil, err
	}
	cycle, err := w.cycle(ctx, &template)
	if err != nil {
		return nil, err
	}

	p, count := n.plan()
	series, entries, err := recurrence.Generate(template, p, count, cycle)
	if err != nil {
		return nil, err
	}

	if count > 1 {
		if err := w.tx.CreateSeries(ctx, &series); err != nil {
			return nil, err
		}
	}

	today := s.today()
	for i := range entries {
		e := &entries[i]
		if count > 1 {
			e.SeriesID = &series.ID
		}

		var cash time.Time
		if i == 0 {
			cash = n.CashDate
		}
		if err := w.place(ctx, e, cash); err != nil {
			return nil, err
		}
		if e.Reconciled && e.CashDate.After(today) {
			e.Reconciled = false
		}
		if err := w.tx.CreateEntry(ctx, e); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// Entry returns one entry.
func (s *Service) Entry(ctx context.Context, id int64) (*model.LedgerEntry, error) {
	return s.store.GetEntry(ctx, id)
}

// Entries returns the entries with the given ids.
func (s *Service) Entries(ctx context.Context, ids []int64) ([]model.LedgerEntry, error) {
	return s.store.GetEntriesByIDs(ctx, ids)
}

// SeriesEntries returns every entry still linked to a series, by competence date.
func (s *Service) SeriesEntries(ctx context.Context, seriesID int64) ([]model.LedgerEntry, error) {
	return s.store.GetEntries(ctx, service.EntryFilter{SeriesID: &seriesID, ByCompetence: true})
}

// ListEntries returns the entries matching filter.
func (s *Service) ListEntries(ctx context.Context, filter service.EntryFilter) ([]model.LedgerEntry, error) {
	return s.store.GetEntries(ctx, filter)
}

// UpdateEntry applies changes to an entry and, for ScopeAllFuture, to the
// unreconciled later instances of its series. It returns the entries written.
func (s *Service) UpdateEntry(ctx context.Context, id int64, changes recurrence.Changes, scope recurrence.Scope, confirmReopen bool) ([]model.LedgerEntry, error) {
	var written []model.LedgerEntry
	err := s.withTx(ctx, func(tx service.Transaction) error {
		target, err := tx.GetEntry(ctx, id)
		if err != nil {
			return err
		}
		if changes.IsEmpty() {
			written = []model.LedgerEntry{*target}
			return nil
		}

		siblings, err := seriesSiblings(ctx, tx, target, scope)
		if err != nil {
			return err
		}

		before := map[int64]model.LedgerEntry{target.ID: *target}
		for _, e := range siblings {
			before[e.ID] = e
		}

		w := newWriteState(tx, confirmReopen)
		for _, e := range recurrence.ApplyUpdate(*target, changes, scope, siblings) {
			old := before[e.ID]
			if old.InvoiceID != nil {
				if err := w.guard(ctx, *old.InvoiceID); err != nil {
					return err
				}
			}

			// Bank entries keep a reconciled cash date unless the date or the
			// payment method changed.
			var cash time.Time
			if old.CardID == nil && e.CompetenceDate.Equal(old.CompetenceDate) {
				cash = old.CashDate
			}
			if err := w.place(ctx, &e, cash); err != nil {
				return err
			}
			if err := tx.UpdateEntry(ctx, &e); err != nil {
				return err
			}
			written = append(written, e)
		}
		return w.refreshTotals(ctx)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("updated entries", "target", id, "scope", scope.String(), "count", len(written))
	return written, nil
}

func seriesSiblings(ctx context.Context, q service.Storage, target *model.LedgerEntry, scope recurrence.Scope) ([]model.LedgerEntry, error) {
	if scope != recurrence.ScopeAllFuture || target.SeriesID == nil {
		return nil, nil
	}
	return q.GetEntries(ctx, service.EntryFilter{SeriesID: target.SeriesID, ByCompetence: true})
}

// DeleteEntry deletes an entry, or for ScopeAllFuture it and the unreconciled
// later instances of its series.
func (s *Service) DeleteEntry(ctx context.Context, id int64, scope recurrence.Scope, confirmReopen bool) (recurrence.DeletePlan, error) {
	return s.DeleteEntries(ctx, []int64{id}, scope, confirmReopen)
}

// DeleteEntries deletes a selection in one transaction. With ScopeOne exactly
// the given entries are removed. With ScopeAllFuture every series touched is
// cut from its earliest selected instance onward: unreconciled instances are
// deleted and reconciled ones are detached from the series and kept.
func (s *Service) DeleteEntries(ctx context.Context, ids []int64, scope recurrence.Scope, confirmReopen bool) (recurrence.DeletePlan, error) {
	if len(ids) == 0 {
		return recurrence.DeletePlan{}, common.ErrEmptySelection
	}

	var plan recurrence.DeletePlan
	err := s.withTx(ctx, func(tx service.Transaction) error {
		selected, err := tx.GetEntriesByIDs(ctx, ids)
		if err != nil {
			return err
		}
		if len(selected) != len(uniqueIDs(ids)) {
			return fmt.Errorf("%w: %d of %d selected entries exist", common.ErrNotFound, len(selected), len(uniqueIDs(ids)))
		}

		if plan, err = buildDeletePlan(ctx, tx, selected, scope); err != nil {
			return err
		}
		if plan.Empty() {
			return nil
		}

		w := newWriteState(tx, confirmReopen)
		affected, err := tx.GetEntriesByIDs(ctx, plan.Delete)
		if err != nil {
			return err
		}
		seriesIDs := make(map[int64]bool)
		for _, e := range affected {
			if e.InvoiceID != nil {
				if err := w.guard(ctx, *e.InvoiceID); err != nil {
					return err
				}
			}
			if e.SeriesID != nil {
				seriesIDs[*e.SeriesID] = true
			}
		}

		if err := orphan(ctx, tx, plan.Orphan, seriesIDs); err != nil {
			return err
		}
		if err := tx.DeleteEntries(ctx, plan.Delete); err != nil {
			return err
		}
		if err := dropEmptySeries(ctx, tx, seriesIDs); err != nil {
			return err
		}
		return w.refreshTotals(ctx)
	})
	if err != nil {
		return recurrence.DeletePlan{}, err
	}

	slog.Info("deleted entries",
		"scope", scope.String(),
		"deleted", len(plan.Delete),
		"orphaned", len(plan.Orphan))
	return plan, nil
}

func buildDeletePlan(ctx context.Context, tx service.Transaction, selected []model.LedgerEntry, scope recurrence.Scope) (recurrence.DeletePlan, error) {
	var plan recurrence.DeletePlan
	if scope == recurrence.ScopeOne {
		for _, e := range selected {
			plan.Delete = append(plan.Delete, e.ID)
		}
		return plan, nil
	}

	// Earliest selected instance per series; the rest of the series is
	// covered by its future range.
	first := make(map[int64]model.LedgerEntry)
	var order []int64
	for _, e := range selected {
		if e.SeriesID == nil {
			plan.Delete = append(plan.Delete, e.ID)
			continue
		}
		cur, ok := first[*e.SeriesID]
		if !ok {
			order = append(order, *e.SeriesID)
		}
		if !ok || e.CompetenceDate.Before(cur.CompetenceDate) {
			first[*e.SeriesID] = e
		}
	}

	seen := make(map[int64]bool)
	for _, sid := range order {
		target := first[sid]
		siblings, err := tx.GetEntries(ctx, service.EntryFilter{SeriesID: &sid, ByCompetence: true})
		if err != nil {
			return plan, err
		}
		sub := recurrence.ApplyDelete(target, recurrence.ScopeAllFuture, siblings)
		for _, id := range sub.Delete {
			if !seen[id] {
				seen[id] = true
				plan.Delete = append(plan.Delete, id)
			}
		}
		for _, id := range sub.Orphan {
			if !seen[id] {
				seen[id] = true
				plan.Orphan = append(plan.Orphan, id)
			}
		}
	}
	return plan, nil
}

func orphan(ctx context.Context, tx service.Transaction, ids []int64, seriesIDs map[int64]bool) error {
	if len(ids) == 0 {
		return nil
	}
	entries, err := tx.GetEntriesByIDs(ctx, ids)
	if err != nil {
		return err
	}
	for i := range entries {
		e := &entries[i]
		if e.SeriesID != nil {
			seriesIDs[*e.SeriesID] = true
		}
		e.SeriesID = nil
		if err := tx.UpdateEntry(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func dropEmptySeries(ctx context.Context, tx service.Transaction, seriesIDs map[int64]bool) error {
	for id := range seriesIDs {
		remaining, err := tx.GetEntries(ctx, service.EntryFilter{SeriesID: &id, Limit: 1})
		if err != nil {
			return err
		}
		if len(remaining) > 0 {
			continue
		}
		if err := tx.DeleteSeries(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func uniqueIDs(ids []int64) map[int64]bool {
	out := make(map[int64]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

// Reconciliation confirms an entry against the statement.
type Reconciliation struct {
	Amount        *decimal.Decimal
	CashDate      *time.Time
	ConfirmReopen bool
}

// ReconcileEntry marks an entry reconciled, optionally correcting its amount
// and, for bank entries only, its cash date.
func (s *Service) ReconcileEntry(ctx context.Context, id int64, r Reconciliation) (*model.LedgerEntry, error) {
	var entry *model.LedgerEntry
	err := s.withTx(ctx, func(tx service.Transaction) error {
		e, err := tx.GetEntry(ctx, id)
		if err != nil {
			return err
		}
		if r.CashDate != nil && e.CardID != nil {
			return common.ErrDerivedCashDate
		}

		w := newWriteState(tx, r.ConfirmReopen)
		if r.Amount != nil && !r.Amount.Equal(e.Amount) {
			if !r.Amount.IsPositive() {
				return fmt.Errorf("%w: amount must be positive, got %s", model.ErrInvalidEntry, r.Amount)
			}
			if e.InvoiceID != nil {
				if err := w.guard(ctx, *e.InvoiceID); err != nil {
					return err
				}
			}
			e.Amount = *r.Amount
		}
		if r.CashDate != nil {
			e.CashDate = billing.Day(*r.CashDate)
		}
		if e.CashDate.After(s.today()) {
			return &common.InvalidDateError{Date: e.CashDate, Reason: "cannot reconcile an entry whose cash date is in the future"}
		}

		e.Reconciled = true
		if err := tx.UpdateEntry(ctx, e); err != nil {
			return err
		}
		entry = e
		return w.refreshTotals(ctx)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Balance returns an account's opening balance plus every entry that moved
// money from the opening date up to asOf.
func (s *Service) Balance(ctx context.Context, accountID int64, asOf time.Time) (decimal.Decimal, error) {
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}

	end := billing.Day(asOf)
	filter := service.EntryFilter{AccountID: &accountID, EndDate: &end}
	if !account.OpeningDate.IsZero() {
		if end.Before(account.OpeningDate) {
			return account.OpeningBalance, nil
		}
		filter.StartDate = &account.OpeningDate
	}

	entries, err := s.store.GetEntries(ctx, filter)
	if err != nil {
		return decimal.Zero, err
	}

	balance := account.OpeningBalance
	for i := range entries {
		balance = balance.Add(entries[i].SignedAmount())
	}
	return balance, nil
}

// IsInvoiceClosed reports whether err is a blocked write on a closed invoice.
func IsInvoiceClosed(err error) bool {
	var ice *common.InvoiceClosedError
	return errors.As(err, &ice)
}
