// Package lightcurve reads uploaded light-curve CSV files and turns them into
// chartable points. Rows keep whatever columns the file carries; only a flux
// column is required.
package lightcurve

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrMissingHeader     = errors.New("csv has no header row")
	ErrMissingFluxColumn = errors.New("csv must contain a FLUX or flux column")
	ErrNoRows            = errors.New("csv has no data rows")
)

// Row is one CSV record keyed by header name. Values are float64, bool, string
// or nil for empty cells.
type Row = map[string]interface{}

// Table is a parsed file.
type Table struct {
	Columns []string
	Rows    []Row
}

// numberPattern matches the cells that are typed as numbers.
var numberPattern = regexp.MustCompile(`^\s*-?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?\s*$`)

// Parse reads a CSV with a header row. Empty lines are skipped and cell values
// are typed dynamically.
func Parse(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrMissingHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}
	if len(columns) > 0 {
		columns[0] = strings.TrimPrefix(columns[0], "\ufeff")
	}
	if !hasFlux(columns) {
		return nil, ErrMissingFluxColumn
	}

	t := &Table{Columns: columns}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", len(t.Rows)+1, err)
		}
		if blank(rec) {
			continue
		}
		row := make(Row, len(columns))
		for i, col := range columns {
			if i < len(rec) {
				row[col] = typed(rec[i])
			} else {
				row[col] = nil
			}
		}
		t.Rows = append(t.Rows, row)
	}
	if len(t.Rows) == 0 {
		return nil, ErrNoRows
	}
	return t, nil
}

func hasFlux(columns []string) bool {
	for _, c := range columns {
		if c == "FLUX" || c == "flux" {
			return true
		}
	}
	return false
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func typed(raw string) interface{} {
	v := strings.TrimSpace(raw)
	switch v {
	case "":
		return nil
	case "true", "TRUE":
		return true
	case "false", "FALSE":
		return false
	}
	if numberPattern.MatchString(v) {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return raw
}
