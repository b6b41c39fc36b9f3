// Package importer reads bank statements (OFX, CSV, XLSX) into lines and
// prepares them for staging.
package importer

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/cashflow/internal/staging"
)

// Line is one statement line. Amount is signed: credits are positive.
type Line struct {
	CashDate       time.Time
	CompetenceDate time.Time
	Amount         decimal.Decimal
	Description    string
	DocumentNumber string
}

// ErrSkipLine marks a record that carries no transaction.
var ErrSkipLine = errors.New("line carries no transaction")

// Column layout shared by the CSV and XLSX bank exports:
// cash date, unused, description, competence date, document number, amount.
const (
	colCashDate = iota
	_
	colDescription
	colCompetenceDate
	colDocument
	colAmount
	columnCount
)

// parseRecord converts one exported row. Rows without a document number, or
// with document "0", are balance lines and return ErrSkipLine.
func parseRecord(fields []string) (Line, error) {
	if len(fields) < columnCount {
		return Line{}, fmt.Errorf("expected %d columns, got %d", columnCount, len(fields))
	}
	doc := strings.TrimSpace(fields[colDocument])
	if doc == "" || doc == "0" {
		return Line{}, ErrSkipLine
	}

	cashText := strings.TrimSpace(fields[colCashDate])
	cash, err := time.ParseInLocation("02/01/2006", cashText, time.UTC)
	if err != nil {
		return Line{}, fmt.Errorf("cash date %q: %w", cashText, err)
	}
	competence := cash
	if text := strings.TrimSpace(fields[colCompetenceDate]); text != "" {
		if competence, err = time.ParseInLocation("02/01/2006", text, time.UTC); err != nil {
			return Line{}, fmt.Errorf("competence date %q: %w", text, err)
		}
	}

	amount, err := staging.ParseAmount(fields[colAmount])
	if err != nil {
		return Line{}, fmt.Errorf("amount %q: %w", fields[colAmount], err)
	}

	return Line{
		CashDate:       cash,
		CompetenceDate: competence,
		Amount:         amount,
		Description:    strings.TrimSpace(fields[colDescription]),
		DocumentNumber: doc,
	}, nil
}

// skipWarning formats the warning recorded for an unreadable row.
func skipWarning(row int, fields []string, err error) string {
	return fmt.Sprintf("skipped line %d (%s): %v", row, strings.Join(fields, ","), err)
}

// dateOnly keeps the calendar day of t in its own location, at midnight UTC.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
