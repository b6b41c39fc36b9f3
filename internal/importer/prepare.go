package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/cashflow/internal/model"
	"github.com/Veraticus/cashflow/internal/staging"
)

// Format is a supported statement file format.
type Format string

// Supported formats.
const (
	FormatOFX  Format = "ofx"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// DetectFormat picks the format from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ofx", ".qfx":
		return FormatOFX, nil
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported statement format %q", filepath.Ext(path))
	}
}

// ParseFile reads a statement file in any supported format. sheet only
// applies to spreadsheets.
func ParseFile(ctx context.Context, path, sheet string) ([]Line, []string, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, nil, err
	}
	if format == FormatXLSX {
		return ParseXLSX(path, sheet)
	}

	f, err := os.Open(path) //nolint:gosec // user-provided statement path
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open statement: %w", err)
	}
	defer func() { _ = f.Close() }()

	if format == FormatOFX {
		return ParseOFX(ctx, f)
	}
	return ParseCSV(f)
}

// Prepared is a statement split into rows to stage and rows that predate the
// account.
type Prepared struct {
	Rows     []staging.RawRow
	Old      []staging.OldRow
	Warnings []string
}

// Prepare hashes every line against account, marks lines whose hash is in
// existing as already imported, and sets aside lines dated before the
// account's opening date.
func Prepare(account *model.Account, lines []Line, existing map[string]bool) Prepared {
	var p Prepared
	for _, line := range lines {
		if line.Amount.IsZero() {
			p.Warnings = append(p.Warnings, fmt.Sprintf("skipped zero amount line %q on %s",
				line.Description, line.CashDate.Format("02/01/2006")))
			continue
		}

		kind := model.KindDebit
		if line.Amount.IsPositive() {
			kind = model.KindCredit
		}

		if !account.OpeningDate.IsZero() && line.CashDate.Before(account.OpeningDate) {
			p.Old = append(p.Old, staging.OldRow{
				CashDate:       line.CashDate,
				Amount:         line.Amount.Abs(),
				Description:    line.Description,
				Kind:           kind,
				DocumentNumber: line.DocumentNumber,
			})
			continue
		}

		hash := ImportHash(account.ID, line.CashDate, line.DocumentNumber, line.Amount)
		p.Rows = append(p.Rows, staging.RawRow{
			CompetenceDate:  line.CompetenceDate,
			CashDate:        line.CashDate,
			Amount:          line.Amount.Abs(),
			Description:     line.Description,
			Kind:            kind,
			DocumentNumber:  line.DocumentNumber,
			ImportHash:      hash,
			AlreadyImported: existing[hash],
		})
	}
	return p
}

// NewBatch stages a parsed statement for account.
func NewBatch(account *model.Account, source string, lines []Line, warnings []string, existing map[string]bool) *staging.Batch {
	p := Prepare(account, lines, existing)
	b := staging.Stage(account.ID, source, p.Rows)
	b.Old = p.Old
	b.Warnings = append(append([]string(nil), warnings...), p.Warnings...)
	return b
}
