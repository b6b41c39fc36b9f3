// Package staging holds imported statement lines in an editable batch until
// they are committed to the ledger in one all-or-nothing write.
package staging

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/cashflow/internal/common"
	"github.com/Veraticus/cashflow/internal/model"
)

// RawRow is a statement line as produced by an import source.
type RawRow struct {
	CompetenceDate  time.Time
	CashDate        time.Time
	Amount          decimal.Decimal
	CategoryID      *int64
	Description     string
	Kind            model.Kind
	DocumentNumber  string
	ImportHash      string
	AlreadyImported bool
}

// StagedRow is an editable, not yet committed statement line.
type StagedRow struct {
	CompetenceDate  time.Time         `yaml:"competence_date"`
	CashDate        time.Time         `yaml:"cash_date"`
	Amount          decimal.Decimal   `yaml:"amount"`
	CategoryID      *int64            `yaml:"category_id,omitempty"`
	Description     string            `yaml:"description"`
	Kind            model.Kind        `yaml:"kind"`
	Periodicity     model.Periodicity `yaml:"periodicity"`
	ImportHash      string            `yaml:"import_hash,omitempty"`
	DocumentNumber  string            `yaml:"document_number,omitempty"`
	ID              int               `yaml:"id"`
	OccurrenceCount int               `yaml:"occurrence_count"`
	Excluded        bool              `yaml:"excluded"`
	AlreadyImported bool              `yaml:"already_imported"`
}

// Pending reports whether the row would be written by a commit.
func (r *StagedRow) Pending() bool {
	return !r.Excluded && !r.AlreadyImported
}

// OldRow is a statement line dated before the account's opening date. It is
// shown for reference and never committed.
type OldRow struct {
	CashDate       time.Time       `yaml:"cash_date"`
	Amount         decimal.Decimal `yaml:"amount"`
	Description    string          `yaml:"description"`
	Kind           model.Kind      `yaml:"kind"`
	DocumentNumber string          `yaml:"document_number,omitempty"`
}

// Batch is one import session's staging area.
type Batch struct {
	CreatedAt time.Time   `yaml:"created_at"`
	ID        string      `yaml:"id"`
	Source    string      `yaml:"source"`
	Rows      []StagedRow `yaml:"rows"`
	Old       []OldRow    `yaml:"old,omitempty"`
	Warnings  []string    `yaml:"warnings,omitempty"`
	AccountID int64       `yaml:"account_id"`
	Committed bool        `yaml:"committed"`
}

// Stage builds a batch from raw rows. Row ids are 1-based positions.
func Stage(accountID int64, source string, raws []RawRow) *Batch {
	b := &Batch{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Source:    source,
		CreatedAt: time.Now(),
		Rows:      make([]StagedRow, 0, len(raws)),
	}
	for i, raw := range raws {
		b.Rows = append(b.Rows, StagedRow{
			ID:              i + 1,
			Description:     strings.TrimSpace(raw.Description),
			Amount:          raw.Amount,
			Kind:            raw.Kind,
			CategoryID:      raw.CategoryID,
			CompetenceDate:  raw.CompetenceDate,
			CashDate:        raw.CashDate,
			Periodicity:     model.PeriodSingle,
			OccurrenceCount: 1,
			ImportHash:      raw.ImportHash,
			DocumentNumber:  raw.DocumentNumber,
			AlreadyImported: raw.AlreadyImported,
		})
	}
	return b
}

// Row returns the row with the given id.
func (b *Batch) Row(rowID int) (*StagedRow, error) {
	for i := range b.Rows {
		if b.Rows[i].ID == rowID {
			return &b.Rows[i], nil
		}
	}
	return nil, &common.RowNotFoundError{RowID: rowID}
}

func (b *Batch) mutableRow(rowID int) (*StagedRow, error) {
	if b.Committed {
		return nil, common.ErrBatchCommitted
	}
	row, err := b.Row(rowID)
	if err != nil {
		return nil, err
	}
	if row.AlreadyImported {
		return nil, &common.ImmutableRowError{RowID: rowID}
	}
	return row, nil
}

// EditRow sets one field of a staged row from its textual value. Dates are
// stored as given; the cash date is never derived from the competence date
// here.
func (b *Batch) EditRow(rowID int, field Field, value string) error {
	if !field.Valid() {
		return &common.UnknownFieldError{Field: strconv.Itoa(int(field))}
	}
	row, err := b.mutableRow(rowID)
	if err != nil {
		return err
	}

	invalid := func(err error) error {
		return &common.InvalidValueError{Field: field.String(), Value: value, Err: err}
	}

	switch field {
	case FieldDescription:
		v := strings.TrimSpace(value)
		if v == "" {
			return invalid(errors.New("description cannot be empty"))
		}
		row.Description = v
	case FieldAmount:
		amount, err := ParseAmount(value)
		if err != nil {
			return invalid(err)
		}
		row.Amount = amount
	case FieldKind:
		kind, err := model.ParseKind(value)
		if err != nil {
			return invalid(err)
		}
		row.Kind = kind
	case FieldCategory:
		v := strings.TrimSpace(value)
		if v == "" || strings.EqualFold(v, "none") {
			row.CategoryID = nil
			return nil
		}
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id < 1 {
			return invalid(fmt.Errorf("category must be a positive id"))
		}
		row.CategoryID = &id
	case FieldCompetenceDate:
		d, err := ParseDate(value)
		if err != nil {
			return invalid(err)
		}
		row.CompetenceDate = d
	case FieldCashDate:
		d, err := ParseDate(value)
		if err != nil {
			return invalid(err)
		}
		row.CashDate = d
	case FieldPeriodicity:
		p, err := model.ParsePeriodicity(value)
		if err != nil {
			return invalid(err)
		}
		row.Periodicity = p
	case FieldOccurrenceCount:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return invalid(err)
		}
		if n < 1 {
			return invalid(&common.InvalidCountError{Count: n})
		}
		row.OccurrenceCount = n
		if n > 1 && !row.Periodicity.Repeats() {
			row.Periodicity = model.PeriodMonthly
		}
	}
	return nil
}

// ToggleExclusion flips the excluded flag of a row and returns the new value.
func (b *Batch) ToggleExclusion(rowID int) (bool, error) {
	row, err := b.mutableRow(rowID)
	if err != nil {
		return false, err
	}
	row.Excluded = !row.Excluded
	return row.Excluded, nil
}

// Pending returns the rows a commit would write, in batch order.
func (b *Batch) Pending() []StagedRow {
	var out []StagedRow
	for _, r := range b.Rows {
		if r.Pending() {
			out = append(out, r)
		}
	}
	return out
}

// Counts summarizes a batch.
type Counts struct {
	Total           int
	Pending         int
	Excluded        int
	AlreadyImported int
	Old             int
}

// Counts returns how many rows are in each state.
func (b *Batch) Counts() Counts {
	c := Counts{Total: len(b.Rows), Old: len(b.Old)}
	for _, r := range b.Rows {
		switch {
		case r.AlreadyImported:
			c.AlreadyImported++
		case r.Excluded:
			c.Excluded++
		default:
			c.Pending++
		}
	}
	return c
}

// ParseDate accepts ISO dates as well as the dd/mm/yyyy form used by bank
// statements.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.DateOnly, "02/01/2006"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &common.InvalidDateError{Reason: fmt.Sprintf("cannot parse %q", s)}
}

// ParseAmount parses a decimal written either as 1234.56, 1,234.56 or
// 1.234,56. The last separator is the decimal point; a single separator
// followed by exactly three digits is rejected as ambiguous.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	dot := strings.LastIndex(s, ".")
	comma := strings.LastIndex(s, ",")

	decimalSep, groupSep := ".", ","
	if comma > dot {
		decimalSep, groupSep = ",", "."
	}
	if dot >= 0 && comma >= 0 {
		if strings.Count(s, decimalSep) > 1 {
			return decimal.Decimal{}, fmt.Errorf("amount %q has more than one decimal separator", s)
		}
	} else if sep := max(dot, comma); sep >= 0 {
		sepChar := s[sep : sep+1]
		count := strings.Count(s, sepChar)
		switch {
		case count > 1:
			// Only grouping separators, e.g. 1.234.567.
			s = strings.ReplaceAll(s, sepChar, "")
			return decimal.NewFromString(s)
		case len(s)-sep-1 == 3:
			return decimal.Decimal{}, fmt.Errorf("amount %q is ambiguous: %q may group thousands or mark decimals", s, sepChar)
		}
		decimalSep, groupSep = sepChar, ","
		if sepChar == "," {
			groupSep = "."
		}
	}

	s = strings.ReplaceAll(s, groupSep, "")
	s = strings.Replace(s, decimalSep, ".", 1)
	return decimal.NewFromString(s)
}
