package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/cashflow/internal/common"
	"github.com/Veraticus/cashflow/internal/model"
)

func TestParseIDs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    []int64
		wantErr bool
	}{
		{name: "separate args", args: []string{"1", "2"}, want: []int64{1, 2}},
		{name: "comma list", args: []string{"3,4,", "5"}, want: []int64{3, 4, 5}},
		{name: "zero rejected", args: []string{"0"}, wantErr: true},
		{name: "not a number", args: []string{"abc"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseIDs(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChangesFromFlags(t *testing.T) {
	cmd := &cobra.Command{}
	addChangeFlags(cmd)
	require.NoError(t, cmd.Flags().Set("amount", "1.234,56"))
	require.NoError(t, cmd.Flags().Set("kind", "c"))
	require.NoError(t, cmd.Flags().Set("card", "2"))
	require.NoError(t, cmd.Flags().Set("date", "28/03/2024"))

	c, err := changesFromFlags(cmd)
	require.NoError(t, err)

	require.NotNil(t, c.Amount)
	assert.True(t, c.Amount.Equal(decimal.RequireFromString("1234.56")))
	assert.Equal(t, model.KindCredit, *c.Kind)
	assert.Equal(t, int64(2), *c.CardID)
	assert.Equal(t, time.Date(2024, 3, 28, 0, 0, 0, 0, time.UTC), *c.CompetenceDate)
	assert.Nil(t, c.Description)
	assert.Nil(t, c.AccountID)
	assert.False(t, c.IsEmpty())
}

func TestChangesFromFlags_AccountAndCard(t *testing.T) {
	cmd := &cobra.Command{}
	addChangeFlags(cmd)
	require.NoError(t, cmd.Flags().Set("account", "1"))
	require.NoError(t, cmd.Flags().Set("card", "2"))

	_, err := changesFromFlags(cmd)
	assert.Error(t, err)
}

func TestChangesFromFlags_Empty(t *testing.T) {
	cmd := &cobra.Command{}
	addChangeFlags(cmd)

	c, err := changesFromFlags(cmd)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}

func reopenCmd(input string, flags ...string) (*cobra.Command, *bytes.Buffer) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	addReopenFlag(cmd)
	cmd.SetIn(strings.NewReader(input))
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())
	_ = cmd.Flags().Parse(flags)
	return cmd, &out
}

func TestWithReopen(t *testing.T) {
	closed := &common.InvoiceClosedError{InvoiceID: 4, DueDate: time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC)}

	t.Run("confirmed retry", func(t *testing.T) {
		cmd, out := reopenCmd("y\n")
		var calls []bool
		err := withReopen(cmd, func(confirm bool) error {
			calls = append(calls, confirm)
			if !confirm {
				return closed
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []bool{false, true}, calls)
		assert.Contains(t, out.String(), "invoice 4")
	})

	t.Run("declined", func(t *testing.T) {
		cmd, _ := reopenCmd("n\n")
		calls := 0
		err := withReopen(cmd, func(bool) error {
			calls++
			return closed
		})
		assert.ErrorAs(t, err, &closed)
		assert.Equal(t, 1, calls)
	})

	t.Run("flag skips the question", func(t *testing.T) {
		cmd, out := reopenCmd("", "--reopen")
		var calls []bool
		err := withReopen(cmd, func(confirm bool) error {
			calls = append(calls, confirm)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []bool{true}, calls)
		assert.Empty(t, out.String())
	})

	t.Run("other errors pass through", func(t *testing.T) {
		cmd, _ := reopenCmd("y\n")
		boom := errors.New("boom")
		calls := 0
		err := withReopen(cmd, func(bool) error {
			calls++
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, calls)
	})
}

func TestEntryFilterFromFlags(t *testing.T) {
	cmd := listEntriesCmd()
	require.NoError(t, cmd.Flags().Set("from", "2024-01-01"))
	require.NoError(t, cmd.Flags().Set("to", "2024-01-31"))
	require.NoError(t, cmd.Flags().Set("unreconciled", "true"))
	require.NoError(t, cmd.Flags().Set("card", "3"))

	filter, err := entryFilterFromFlags(cmd)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), *filter.EndDate)
	assert.False(t, *filter.Reconciled)
	assert.Equal(t, int64(3), *filter.CardID)
	assert.Nil(t, filter.AccountID)

	require.NoError(t, cmd.Flags().Set("to", "2023-12-31"))
	_, err = entryFilterFromFlags(cmd)
	assert.Error(t, err)
}

func TestFormatFileSize(t *testing.T) {
	assert.Equal(t, "512 B", formatFileSize(512))
	assert.Equal(t, "1.5 KB", formatFileSize(1536))
	assert.Equal(t, "2.0 MB", formatFileSize(2*1024*1024))
}
