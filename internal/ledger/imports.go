package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/cashflow/internal/common"
	"github.com/Veraticus/cashflow/internal/service"
	"github.com/Veraticus/cashflow/internal/staging"
)

var _ staging.Sink = (*Service)(nil)

// CategoryExists reports whether a category id is known.
func (s *Service) CategoryExists(ctx context.Context, id int64) (bool, error) {
	_, err := s.store.GetCategoryByID(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateImported writes committed staging drafts as reconciled bank entries
// on accountID. Every draft is written or none is; a failing draft is
// reported as a common.CommitValidationError naming its row. A draft whose
// import hash is already stored for the account is rejected the same way.
func (s *Service) CreateImported(ctx context.Context, accountID int64, drafts []staging.Draft) ([]int64, error) {
	if _, err := s.store.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}

	var ids []int64
	err := s.withTx(ctx, func(tx service.Transaction) error {
		stored, err := tx.GetImportHashes(ctx, accountID)
		if err != nil {
			return err
		}

		w := newWriteState(tx, false)
		for _, d := range drafts {
			if d.ImportHash != "" && stored[d.ImportHash] {
				return &common.CommitValidationError{RowID: d.RowID, Err: common.ErrAlreadyImported}
			}
			created, err := s.createTx(ctx, w, NewEntry{
				Description:    d.Description,
				Amount:         d.Amount,
				Kind:           d.Kind,
				CategoryID:     d.CategoryID,
				CompetenceDate: d.CompetenceDate,
				CashDate:       d.CashDate,
				AccountID:      &accountID,
				Periodicity:    d.Periodicity,
				Count:          d.Count,
				Reconciled:     true,
				ImportHash:     d.ImportHash,
				DocumentNumber: d.DocumentNumber,
			})
			if err != nil {
				return &common.CommitValidationError{RowID: d.RowID, Err: err}
			}
			for _, e := range created {
				ids = append(ids, e.ID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("import into account %d: %w", accountID, err)
	}

	slog.Info("imported entries", "account_id", accountID, "rows", len(drafts), "entries", len(ids))
	return ids, nil
}
