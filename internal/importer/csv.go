package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// ParseCSV reads a comma separated bank export. The first row is a header.
// Files that are not valid UTF-8 are decoded as Latin-1. Unreadable rows are
// skipped and reported as warnings.
func ParseCSV(r io.Reader) ([]Line, []string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	if !utf8.Valid(raw) {
		if raw, err = charmap.ISO8859_1.NewDecoder().Bytes(raw); err != nil {
			return nil, nil, fmt.Errorf("failed to decode CSV file as latin-1: %w", err)
		}
	}

	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var lines []Line
	var warnings []string
	for row := 0; ; row++ {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse CSV file: %w", err)
		}
		if row == 0 {
			continue
		}

		line, err := parseRecord(fields)
		switch {
		case errors.Is(err, ErrSkipLine):
			continue
		case err != nil:
			warnings = append(warnings, skipWarning(row+1, fields, err))
			continue
		}
		lines = append(lines, line)
	}

	slog.Info("Parsed CSV file", "lines", len(lines), "warnings", len(warnings))
	return lines, warnings, nil
}
