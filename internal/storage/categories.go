package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/cashflow/internal/common"
	"github.com/Veraticus/cashflow/internal/model"
)

// GetCategories returns all categories ordered by name.
func (s *SQLiteStorage) GetCategories(ctx context.Context) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getCategoriesTx(ctx, s.db)
}

func (s *SQLiteStorage) getCategoriesTx(ctx context.Context, q queryable) ([]model.Category, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, created_at
		FROM categories
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		var cat model.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, cat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	slog.Debug("retrieved categories", "count", len(categories))
	return categories, nil
}

// GetCategoryByID returns a category by its id, or common.ErrNotFound.
func (s *SQLiteStorage) GetCategoryByID(ctx context.Context, id int64) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getCategoryByIDTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getCategoryByIDTx(ctx context.Context, q queryable, id int64) (*model.Category, error) {
	var cat model.Category
	err := q.QueryRowContext(ctx, `
		SELECT id, name, created_at
		FROM categories
		WHERE id = ?`, id).Scan(&cat.ID, &cat.Name, &cat.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query category: %w", err)
	}

	return &cat, nil
}

// CreateCategory creates a new category, returning the existing one when the
// name is already taken.
func (s *SQLiteStorage) CreateCategory(ctx context.Context, name string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	return s.createCategoryTx(ctx, s.db, name)
}

func (s *SQLiteStorage) createCategoryTx(ctx context.Context, q queryable, name string) (*model.Category, error) {
	var existing model.Category
	err := q.QueryRowContext(ctx, `
		SELECT id, name, created_at
		FROM categories
		WHERE name = ?`, name).Scan(&existing.ID, &existing.Name, &existing.CreatedAt)

	if err == nil {
		return &existing, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to check existing category: %w", err)
	}

	now := time.Now()
	result, err := q.ExecContext(ctx, `
		INSERT INTO categories (name, created_at)
		VALUES (?, ?)`, name, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get category ID: %w", err)
	}

	slog.Info("created new category", "name", name, "id", id)

	return &model.Category{
		ID:        id,
		Name:      name,
		CreatedAt: now,
	}, nil
}
