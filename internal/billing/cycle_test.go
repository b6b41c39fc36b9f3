package billing

import (
	"testing"
	"time"

	"github.com/Veraticus/cashflow/internal/common"
	"github.com/Veraticus/cashflow/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCashDate(t *testing.T) {
	tests := []struct {
		competence time.Time
		want       time.Time
		name       string
		closingDay int
		dueDay     int
	}{
		{
			name:       "purchase after closing goes to next month",
			competence: Date(2024, time.March, 28),
			closingDay: 25,
			dueDay:     10,
			want:       Date(2024, time.April, 10),
		},
		{
			name:       "purchase before closing stays in same month",
			competence: Date(2024, time.March, 20),
			closingDay: 25,
			dueDay:     10,
			want:       Date(2024, time.March, 10),
		},
		{
			name:       "purchase on closing day stays in same month",
			competence: Date(2024, time.March, 25),
			closingDay: 25,
			dueDay:     10,
			want:       Date(2024, time.March, 10),
		},
		{
			name:       "december purchase rolls into next year",
			competence: Date(2023, time.December, 30),
			closingDay: 20,
			dueDay:     5,
			want:       Date(2024, time.January, 5),
		},
		{
			name:       "due day 31 clamps on a 30 day month",
			competence: Date(2024, time.March, 29),
			closingDay: 28,
			dueDay:     31,
			want:       Date(2024, time.April, 30),
		},
		{
			name:       "due day 30 clamps to leap day",
			competence: Date(2024, time.January, 31),
			closingDay: 15,
			dueDay:     30,
			want:       Date(2024, time.February, 29),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveCashDate(tt.competence, tt.closingDay, tt.dueDay)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveCashDate_MonthProperty(t *testing.T) {
	closingDay, dueDay := 15, 7
	start := Date(2023, time.January, 1)

	for d := start; d.Year() < 2025; d = d.AddDate(0, 0, 1) {
		got, err := ResolveCashDate(d, closingDay, dueDay)
		require.NoError(t, err)

		wantMonth := Date(d.Year(), d.Month(), 1)
		if d.Day() > closingDay {
			wantMonth = AddMonths(wantMonth, 1)
		}
		assert.Equal(t, wantMonth.Year(), got.Year(), d.Format(time.DateOnly))
		assert.Equal(t, wantMonth.Month(), got.Month(), d.Format(time.DateOnly))

		again, err := ResolveCashDate(d, closingDay, dueDay)
		require.NoError(t, err)
		assert.Equal(t, got, again)
	}
}

func TestResolveCashDate_InvalidInputs(t *testing.T) {
	tests := []struct {
		competence time.Time
		name       string
		closingDay int
		dueDay     int
	}{
		{name: "zero competence", competence: time.Time{}, closingDay: 10, dueDay: 20},
		{name: "closing day zero", competence: Date(2024, time.May, 1), closingDay: 0, dueDay: 20},
		{name: "closing day too big", competence: Date(2024, time.May, 1), closingDay: 32, dueDay: 20},
		{name: "due day negative", competence: Date(2024, time.May, 1), closingDay: 10, dueDay: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveCashDate(tt.competence, tt.closingDay, tt.dueDay)
			var dateErr *common.InvalidDateError
			assert.ErrorAs(t, err, &dateErr)
		})
	}
}

func TestAddMonths(t *testing.T) {
	anchor := Date(2024, time.January, 31)

	assert.Equal(t, Date(2024, time.February, 29), AddMonths(anchor, 1))
	assert.Equal(t, Date(2024, time.March, 31), AddMonths(anchor, 2))
	assert.Equal(t, Date(2024, time.April, 30), AddMonths(anchor, 3))
	assert.Equal(t, Date(2025, time.January, 31), AddMonths(anchor, 12))
	assert.Equal(t, Date(2023, time.December, 31), AddMonths(anchor, -1))
	assert.Equal(t, Date(2022, time.December, 31), AddMonths(anchor, -13))
	assert.Equal(t, Date(2025, time.February, 28), AddMonths(Date(2024, time.February, 29), 12))
}

func TestCashDate(t *testing.T) {
	competence := Date(2024, time.March, 28)

	t.Run("bank account uses competence date", func(t *testing.T) {
		got, err := CashDate(model.PaymentBankAccount, competence, nil)
		require.NoError(t, err)
		assert.Equal(t, competence, got)
	})

	t.Run("credit card uses invoice cycle", func(t *testing.T) {
		got, err := CashDate(model.PaymentCreditCard, competence, &Cycle{ClosingDay: 25, DueDay: 10})
		require.NoError(t, err)
		assert.Equal(t, Date(2024, time.April, 10), got)
	})

	t.Run("credit card without cycle", func(t *testing.T) {
		_, err := CashDate(model.PaymentCreditCard, competence, nil)
		assert.ErrorIs(t, err, model.ErrInvalidEntry)
	})
}

func TestClosingDate(t *testing.T) {
	assert.Equal(t, Date(2024, time.April, 5), ClosingDate(Date(2024, time.April, 15), 5))
	assert.Equal(t, Date(2024, time.March, 25), ClosingDate(Date(2024, time.April, 10), 25))
	assert.Equal(t, Date(2024, time.February, 29), ClosingDate(Date(2024, time.March, 10), 31))
	assert.Equal(t, Date(2024, time.April, 1), ReferenceMonth(Date(2024, time.April, 10)))
}
