package staging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/cashflow/internal/common"
	"github.com/Veraticus/cashflow/internal/model"
)

// Draft is a validated staged row ready to become ledger entries.
type Draft struct {
	CompetenceDate time.Time
	CashDate       time.Time
	Amount         decimal.Decimal
	CategoryID     *int64
	Description    string
	Kind           model.Kind
	Periodicity    model.Periodicity
	ImportHash     string
	DocumentNumber string
	RowID          int
	Count          int
}

// Sink persists committed drafts. CreateImported must write every draft or
// none of them.
type Sink interface {
	CategoryExists(ctx context.Context, id int64) (bool, error)
	CreateImported(ctx context.Context, accountID int64, drafts []Draft) ([]int64, error)
}

// CommitResult lists the ledger entries created by a commit.
type CommitResult struct {
	CreatedEntryIDs []int64
}

// Commit validates every pending row and hands them to sink in one unit. If
// any row is invalid nothing is written and the batch stays staged.
func (b *Batch) Commit(ctx context.Context, sink Sink) (CommitResult, error) {
	if b.Committed {
		return CommitResult{}, common.ErrBatchCommitted
	}

	pending := b.Pending()
	if len(pending) == 0 {
		return CommitResult{}, common.ErrNoRowsToCommit
	}

	drafts := make([]Draft, 0, len(pending))
	for i := range pending {
		draft, err := validateRow(ctx, &pending[i], sink)
		if err != nil {
			return CommitResult{}, err
		}
		drafts = append(drafts, draft)
	}

	ids, err := sink.CreateImported(ctx, b.AccountID, drafts)
	if err != nil {
		var cve *common.CommitValidationError
		if errors.As(err, &cve) {
			return CommitResult{}, err
		}
		return CommitResult{}, fmt.Errorf("commit batch %s: %w", b.ID, err)
	}

	b.Committed = true
	return CommitResult{CreatedEntryIDs: ids}, nil
}

func validateRow(ctx context.Context, r *StagedRow, sink Sink) (Draft, error) {
	reject := func(field Field, err error) error {
		return &common.CommitValidationError{RowID: r.ID, Field: field.String(), Err: err}
	}

	if strings.TrimSpace(r.Description) == "" {
		return Draft{}, reject(FieldDescription, errors.New("missing description"))
	}
	if !r.Amount.IsPositive() {
		return Draft{}, reject(FieldAmount, fmt.Errorf("amount must be positive, got %s", r.Amount))
	}
	if !r.Kind.IsValid() {
		return Draft{}, reject(FieldKind, fmt.Errorf("unknown kind %q", r.Kind))
	}
	if r.CompetenceDate.IsZero() {
		return Draft{}, reject(FieldCompetenceDate, &common.InvalidDateError{Reason: "missing competence date"})
	}
	if r.CashDate.IsZero() {
		return Draft{}, reject(FieldCashDate, &common.InvalidDateError{Reason: "missing cash date"})
	}
	if r.OccurrenceCount < 1 {
		return Draft{}, reject(FieldOccurrenceCount, &common.InvalidCountError{Count: r.OccurrenceCount})
	}
	if r.OccurrenceCount > 1 && !r.Periodicity.Repeats() {
		return Draft{}, reject(FieldPeriodicity, fmt.Errorf("periodicity %q cannot repeat %d times", r.Periodicity, r.OccurrenceCount))
	}
	if r.CategoryID != nil {
		ok, err := sink.CategoryExists(ctx, *r.CategoryID)
		if err != nil {
			return Draft{}, fmt.Errorf("check category for row %d: %w", r.ID, err)
		}
		if !ok {
			return Draft{}, reject(FieldCategory, fmt.Errorf("category %d: %w", *r.CategoryID, common.ErrNotFound))
		}
	}

	periodicity := r.Periodicity
	if r.OccurrenceCount == 1 {
		periodicity = model.PeriodSingle
	}

	return Draft{
		RowID:          r.ID,
		Description:    r.Description,
		Amount:         r.Amount,
		Kind:           r.Kind,
		CategoryID:     r.CategoryID,
		CompetenceDate: r.CompetenceDate,
		CashDate:       r.CashDate,
		Periodicity:    periodicity,
		Count:          r.OccurrenceCount,
		ImportHash:     r.ImportHash,
		DocumentNumber: r.DocumentNumber,
	}, nil
}
