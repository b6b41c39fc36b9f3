package importer

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"
)

// ParseXLSX reads a spreadsheet export with the same column layout as the CSV
// export. An empty sheet name selects the first sheet.
func ParseXLSX(path, sheet string) ([]Line, []string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, nil, fmt.Errorf("spreadsheet %s has no sheets", path)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	var lines []Line
	var warnings []string
	for i, fields := range rows {
		if i == 0 || len(fields) == 0 {
			continue
		}
		line, err := parseRecord(fields)
		switch {
		case errors.Is(err, ErrSkipLine):
			continue
		case err != nil:
			warnings = append(warnings, skipWarning(i+1, fields, err))
			continue
		}
		lines = append(lines, line)
	}

	slog.Info("Parsed spreadsheet", "sheet", sheet, "lines", len(lines), "warnings", len(warnings))
	return lines, warnings, nil
}
