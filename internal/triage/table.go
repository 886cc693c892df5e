// Package triage implements the fleet scoring pipeline: column
// resolution, problem detection, critical scoring, and KPI summarization.
package triage

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	terrors "github.com/fleettriage/fleettriage/internal/errors"
)

// Table is an in-memory tabular dataset preserving column order.
type Table struct {
	Columns []string
	Rows    [][]string

	index map[string]int
}

// ParseCSV reads a CSV stream into a Table. The first record is the
// header. Short rows are padded, long rows truncated, so every row has
// exactly one cell per column.
func ParseCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, terrors.Input("parse_csv", "dataset", err)
	}
	if len(records) == 0 {
		return nil, terrors.Input("parse_csv", "dataset", fmt.Errorf("dataset is empty"))
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}

	t := &Table{Columns: header}
	t.rebuildIndex()

	for _, rec := range records[1:] {
		row := make([]string, len(header))
		for i := range header {
			if i < len(rec) {
				row[i] = strings.TrimSpace(rec[i])
			}
		}
		t.Rows = append(t.Rows, row)
	}

	if len(t.Rows) == 0 {
		return nil, terrors.Input("parse_csv", "dataset", fmt.Errorf("dataset has no rows"))
	}
	return t, nil
}

func (t *Table) rebuildIndex() {
	t.index = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		// First occurrence wins for duplicate headers
		if _, ok := t.index[c]; !ok {
			t.index[c] = i
		}
	}
}

// Has reports whether the table contains the named column.
func (t *Table) Has(col string) bool {
	_, ok := t.index[col]
	return ok
}

// Cell returns the value at (row, col), or "" when the column is unknown.
func (t *Table) Cell(row int, col string) string {
	i, ok := t.index[col]
	if !ok || row < 0 || row >= len(t.Rows) {
		return ""
	}
	return t.Rows[row][i]
}

// ColumnValues returns all values of the named column in row order.
func (t *Table) ColumnValues(col string) []string {
	i, ok := t.index[col]
	if !ok {
		return nil
	}
	out := make([]string, len(t.Rows))
	for r := range t.Rows {
		out[r] = t.Rows[r][i]
	}
	return out
}

// SetColumn appends a new column (or overwrites an existing one) with the
// given per-row values.
func (t *Table) SetColumn(col string, values []string) {
	if i, ok := t.index[col]; ok {
		for r := range t.Rows {
			if r < len(values) {
				t.Rows[r][i] = values[r]
			}
		}
		return
	}

	t.Columns = append(t.Columns, col)
	t.index[col] = len(t.Columns) - 1
	for r := range t.Rows {
		v := ""
		if r < len(values) {
			v = values[r]
		}
		t.Rows[r] = append(t.Rows[r], v)
	}
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}
