package recurrence

import (
	"fmt"
	"strings"

	"github.com/Veraticus/cashflow/internal/common"
)

// Scope selects which instances of a series an edit or delete reaches.
type Scope int

const (
	// ScopeOne touches only the targeted entry.
	ScopeOne Scope = iota
	// ScopeAllFuture also touches every unreconciled instance on or after the target.
	ScopeAllFuture
)

// ParseScope accepts the "one"/"all" flags used by callers.
func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "one", "":
		return ScopeOne, nil
	case "all", "all_future", "future":
		return ScopeAllFuture, nil
	default:
		return ScopeOne, fmt.Errorf("%w: %q", common.ErrInvalidScope, s)
	}
}

func (s Scope) String() string {
	if s == ScopeAllFuture {
		return "all"
	}
	return "one"
}
