package billing

import (
	"testing"

	"github.com/Veraticus/cashflow/internal/common"
	"github.com/Veraticus/cashflow/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorizeWrite(t *testing.T) {
	t.Run("open invoice accepts writes", func(t *testing.T) {
		inv := &model.Invoice{ID: 1, Status: model.InvoiceOpen}
		reopened, err := AuthorizeWrite(inv, false)
		require.NoError(t, err)
		assert.False(t, reopened)
		assert.Equal(t, model.InvoiceOpen, inv.Status)
	})

	t.Run("closed invoice rejects unconfirmed writes", func(t *testing.T) {
		inv := &model.Invoice{ID: 7, Status: model.InvoiceClosed}
		_, err := AuthorizeWrite(inv, false)

		var closedErr *common.InvoiceClosedError
		require.ErrorAs(t, err, &closedErr)
		assert.Equal(t, int64(7), closedErr.InvoiceID)
		assert.Equal(t, model.InvoiceClosed, inv.Status)
	})

	t.Run("confirmed write reopens", func(t *testing.T) {
		inv := &model.Invoice{ID: 7, Status: model.InvoiceClosed}
		reopened, err := AuthorizeWrite(inv, true)
		require.NoError(t, err)
		assert.True(t, reopened)
		assert.Equal(t, model.InvoiceReopened, inv.Status)

		reopened, err = AuthorizeWrite(inv, false)
		require.NoError(t, err)
		assert.False(t, reopened)
	})
}

func TestInvoiceTransitions(t *testing.T) {
	inv := &model.Invoice{Status: model.InvoiceOpen}

	require.NoError(t, Close(inv))
	assert.Equal(t, model.InvoiceClosed, inv.Status)
	assert.ErrorIs(t, Close(inv), common.ErrInvalidTransition)

	require.NoError(t, Reopen(inv))
	assert.Equal(t, model.InvoiceReopened, inv.Status)
	assert.ErrorIs(t, Reopen(inv), common.ErrInvalidTransition)

	require.NoError(t, Acknowledge(inv))
	assert.Equal(t, model.InvoiceOpen, inv.Status)
	assert.ErrorIs(t, Acknowledge(inv), common.ErrInvalidTransition)

	inv.Status = model.InvoiceReopened
	require.NoError(t, Close(inv))
	assert.Equal(t, model.InvoiceClosed, inv.Status)
}

func TestTotal(t *testing.T) {
	entries := []model.LedgerEntry{
		{Amount: decimal.RequireFromString("100.50"), Kind: model.KindDebit},
		{Amount: decimal.RequireFromString("20.25"), Kind: model.KindDebit},
		{Amount: decimal.RequireFromString("10.00"), Kind: model.KindCredit},
	}
	assert.True(t, decimal.RequireFromString("110.75").Equal(Total(entries)))
	assert.True(t, Total(nil).IsZero())
}
