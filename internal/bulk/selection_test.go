package bulk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelection(t *testing.T) {
	sel := NewSelection(3, 1, 3)
	assert.Equal(t, []int64{3, 1}, sel.IDs())
	assert.Equal(t, 2, sel.Len())

	assert.True(t, sel.Add(2))
	assert.False(t, sel.Add(2))
	assert.True(t, sel.Has(2))

	assert.True(t, sel.Remove(1))
	assert.False(t, sel.Remove(1))
	assert.Equal(t, []int64{3, 2}, sel.IDs())

	assert.True(t, sel.Toggle(7))
	assert.False(t, sel.Toggle(3))
	assert.Equal(t, []int64{2, 7}, sel.IDs())

	ids := sel.IDs()
	ids[0] = 99
	assert.Equal(t, []int64{2, 7}, sel.IDs(), "IDs returns a copy")

	sel.Clear()
	assert.Zero(t, sel.Len())
	assert.True(t, sel.Add(2))
}

func TestParseDeleteOption(t *testing.T) {
	tests := []struct {
		input   string
		want    DeleteOption
		wantErr bool
	}{
		{input: "one", want: OnlySelected},
		{input: "ALL", want: SelectedAndFuture},
		{input: "selected-and-future", want: SelectedAndFuture},
		{input: "some", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDeleteOption(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
