package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/cashflow/internal/common"
	"github.com/Veraticus/cashflow/internal/model"
)

// CreateSeries saves a recurrence series definition and sets its ID.
func (s *SQLiteStorage) CreateSeries(ctx context.Context, series *model.RecurrenceSeries) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSeries(series); err != nil {
		return err
	}
	return s.createSeriesTx(ctx, s.db, series)
}

func (s *SQLiteStorage) createSeriesTx(ctx context.Context, q queryable, series *model.RecurrenceSeries) error {
	if series.CreatedAt.IsZero() {
		series.CreatedAt = time.Now()
	}

	result, err := q.ExecContext(ctx, `
		INSERT INTO recurrence_series (periodicity, total_occurrences, anchor_date, description, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		string(series.Periodicity),
		series.TotalOccurrences,
		formatDate(series.AnchorDate),
		series.Description,
		series.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert series: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get series ID: %w", err)
	}
	series.ID = id
	return nil
}

// GetSeries returns a series by id, or common.ErrNotFound.
func (s *SQLiteStorage) GetSeries(ctx context.Context, id int64) (*model.RecurrenceSeries, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getSeriesTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getSeriesTx(ctx context.Context, q queryable, id int64) (*model.RecurrenceSeries, error) {
	var (
		series      model.RecurrenceSeries
		periodicity string
		anchor      string
	)
	err := q.QueryRowContext(ctx, `
		SELECT id, periodicity, total_occurrences, anchor_date, description, created_at
		FROM recurrence_series
		WHERE id = ?`, id).Scan(
		&series.ID,
		&periodicity,
		&series.TotalOccurrences,
		&anchor,
		&series.Description,
		&series.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("series %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query series: %w", err)
	}

	series.Periodicity = model.Periodicity(periodicity)
	if series.AnchorDate, err = parseDate(anchor); err != nil {
		return nil, err
	}
	return &series, nil
}

// DeleteSeries removes a series definition. Entries still pointing at it are
// detached by the foreign key.
func (s *SQLiteStorage) DeleteSeries(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.deleteSeriesTx(ctx, s.db, id)
}

func (s *SQLiteStorage) deleteSeriesTx(ctx context.Context, q queryable, id int64) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM recurrence_series WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete series %d: %w", id, err)
	}
	return nil
}
