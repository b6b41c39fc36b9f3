package model

import (
	"fmt"
	"strings"
	"time"
)

// Periodicity is the distance between two instances of a recurring entry.
type Periodicity string

const (
	// PeriodSingle marks a staged row that does not repeat.
	PeriodSingle     Periodicity = "single"
	PeriodDaily      Periodicity = "daily"
	PeriodWeekly     Periodicity = "weekly"
	PeriodMonthly    Periodicity = "monthly"
	PeriodSemiannual Periodicity = "semiannual"
	PeriodAnnual     Periodicity = "annual"
)

// ParsePeriodicity maps user input to a Periodicity. Empty input means monthly.
func ParsePeriodicity(s string) (Periodicity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "monthly", "mensal":
		return PeriodMonthly, nil
	case "single", "once", "unica":
		return PeriodSingle, nil
	case "daily", "diaria":
		return PeriodDaily, nil
	case "weekly", "semanal":
		return PeriodWeekly, nil
	case "semiannual", "semestral":
		return PeriodSemiannual, nil
	case "annual", "yearly", "anual":
		return PeriodAnnual, nil
	default:
		return "", fmt.Errorf("unknown periodicity %q", s)
	}
}

// Repeats reports whether entries with this periodicity form a series.
func (p Periodicity) Repeats() bool {
	return p != PeriodSingle && p != ""
}

// RecurrenceSeries is the definition a set of generated entries came from.
type RecurrenceSeries struct {
	AnchorDate       time.Time
	CreatedAt        time.Time
	Description      string
	Periodicity      Periodicity
	ID               int64
	TotalOccurrences int
}
