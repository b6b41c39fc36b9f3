package bulk

import (
	"fmt"
	"strings"

	"github.com/Veraticus/cashflow/internal/common"
	"github.com/Veraticus/cashflow/internal/recurrence"
)

// DeleteOption decides how far a delete reaches into the series of the
// selected entries.
type DeleteOption int

const (
	// OnlySelected deletes exactly the selected entries.
	OnlySelected DeleteOption = iota
	// SelectedAndFuture also deletes the unreconciled later instances of
	// every series touched.
	SelectedAndFuture
)

// ParseDeleteOption accepts "one"/"all" as well as the option names.
func ParseDeleteOption(s string) (DeleteOption, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "one", "only-selected", "only_selected", "selected":
		return OnlySelected, nil
	case "all", "selected-and-future", "selected_and_future", "future":
		return SelectedAndFuture, nil
	default:
		return OnlySelected, fmt.Errorf("%w: delete option %q (want one or all)", common.ErrInvalidScope, s)
	}
}

func (o DeleteOption) String() string {
	if o == SelectedAndFuture {
		return "all"
	}
	return "one"
}

// Scope is the recurrence scope the option maps to.
func (o DeleteOption) Scope() recurrence.Scope {
	if o == SelectedAndFuture {
		return recurrence.ScopeAllFuture
	}
	return recurrence.ScopeOne
}
