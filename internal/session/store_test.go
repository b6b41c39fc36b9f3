package session

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/cashflow/internal/common"
	"github.com/Veraticus/cashflow/internal/model"
	"github.com/Veraticus/cashflow/internal/staging"
)

func newBatch(created time.Time) *staging.Batch {
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	b := staging.Stage(4, "statement.csv", []staging.RawRow{
		{
			Description:    "Bakery",
			Amount:         decimal.RequireFromString("12.50"),
			Kind:           model.KindDebit,
			CompetenceDate: day,
			CashDate:       day.AddDate(0, 0, 1),
			ImportHash:     "abc",
			DocumentNumber: "1001",
		},
		{
			Description:     "Old salary",
			Amount:          decimal.RequireFromString("3000"),
			Kind:            model.KindCredit,
			CompetenceDate:  day,
			CashDate:        day,
			AlreadyImported: true,
		},
	})
	b.CreatedAt = created
	b.Warnings = []string{"skipped line 7"}
	b.Old = []staging.OldRow{{CashDate: day.AddDate(0, -2, 0), Amount: decimal.NewFromInt(5), Description: "Before", Kind: model.KindDebit}}
	return b
}

func TestStore_SaveLoad(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	b := newBatch(time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC))
	require.NoError(t, b.EditRow(1, staging.FieldCategory, "3"))
	require.NoError(t, b.EditRow(1, staging.FieldPeriodicity, "monthly"))
	require.NoError(t, b.EditRow(1, staging.FieldOccurrenceCount, "4"))
	_, err = b.ToggleExclusion(1)
	require.NoError(t, err)
	require.NoError(t, store.Save(b))

	loaded, err := store.Load(b.ID)
	require.NoError(t, err)

	assert.Equal(t, b.ID, loaded.ID)
	assert.Equal(t, b.AccountID, loaded.AccountID)
	assert.True(t, b.CreatedAt.Equal(loaded.CreatedAt))
	assert.Equal(t, b.Warnings, loaded.Warnings)
	require.Len(t, loaded.Rows, 2)
	require.Len(t, loaded.Old, 1)

	row := loaded.Rows[0]
	assert.True(t, row.Amount.Equal(decimal.RequireFromString("12.50")))
	assert.True(t, row.CashDate.Equal(b.Rows[0].CashDate))
	require.NotNil(t, row.CategoryID)
	assert.Equal(t, int64(3), *row.CategoryID)
	assert.Equal(t, model.PeriodMonthly, row.Periodicity)
	assert.Equal(t, 4, row.OccurrenceCount)
	assert.True(t, row.Excluded)
	assert.Equal(t, "1001", row.DocumentNumber)
	assert.True(t, loaded.Rows[1].AlreadyImported)
}

func TestStore_LatestAndDiscard(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Latest()
	require.ErrorIs(t, err, common.ErrNotFound)

	older := newBatch(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	newer := newBatch(time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC))
	committed := newBatch(time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC))
	committed.Committed = true
	for _, b := range []*staging.Batch{older, newer, committed} {
		require.NoError(t, store.Save(b))
	}

	all, err := store.List()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, committed.ID, all[0].ID)

	latest, err := store.Latest()
	require.NoError(t, err)
	assert.Equal(t, newer.ID, latest.ID)

	require.NoError(t, store.Discard(newer.ID))
	latest, err = store.Latest()
	require.NoError(t, err)
	assert.Equal(t, older.ID, latest.ID)

	require.ErrorIs(t, store.Discard(newer.ID), common.ErrNotFound)
	_, err = store.Load(newer.ID)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestStore_RejectsInvalidIDs(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("../etc/passwd")
	assert.Error(t, err)
	assert.Error(t, store.Discard("not-a-uuid"))
}
