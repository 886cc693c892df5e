package triage

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Options are the caller-selected cleaning steps applied before scoring.
type Options struct {
	DropNA           bool   `json:"drop_na"`
	FillNA           string `json:"fill_na"` // "mean", "median", "mode", or ""
	RemoveDuplicates bool   `json:"remove_duplicates"`
	TopN             int    `json:"top_n"`
}

// ApplyCleaning transforms the table in place according to the options.
// Steps run in a fixed order: drop, fill, dedupe.
func ApplyCleaning(t *Table, opts Options) {
	if opts.DropNA {
		dropMissingRows(t)
	}

	switch strings.ToLower(strings.TrimSpace(opts.FillNA)) {
	case "mean":
		fillNumeric(t, meanOf)
	case "median":
		fillNumeric(t, medianOf)
	case "mode":
		fillCategoricalMode(t)
	}

	if opts.RemoveDuplicates {
		dropDuplicateRows(t)
	}
}

func dropMissingRows(t *Table) {
	kept := t.Rows[:0]
	for _, row := range t.Rows {
		missing := false
		for _, cell := range row {
			if cell == "" {
				missing = true
				break
			}
		}
		if !missing {
			kept = append(kept, row)
		}
	}
	t.Rows = kept
}

// fillNumeric replaces empty cells of numeric columns with the given
// aggregate of the column's parseable values. A column counts as numeric
// when at least one non-empty cell parses as a float.
func fillNumeric(t *Table, agg func([]float64) float64) {
	for i := range t.Columns {
		var vals []float64
		for r := range t.Rows {
			if v, err := strconv.ParseFloat(t.Rows[r][i], 64); err == nil && !math.IsInf(v, 0) && !math.IsNaN(v) {
				vals = append(vals, v)
			}
		}
		if len(vals) == 0 {
			continue
		}
		fill := strconv.FormatFloat(agg(vals), 'f', -1, 64)
		for r := range t.Rows {
			if t.Rows[r][i] == "" {
				t.Rows[r][i] = fill
			}
		}
	}
}

// fillCategoricalMode replaces empty cells of non-numeric columns with the
// column's most frequent value.
func fillCategoricalMode(t *Table) {
	for i := range t.Columns {
		counts := make(map[string]int)
		numeric := false
		for r := range t.Rows {
			cell := t.Rows[r][i]
			if cell == "" {
				continue
			}
			if _, err := strconv.ParseFloat(cell, 64); err == nil {
				numeric = true
				break
			}
			counts[cell]++
		}
		if numeric || len(counts) == 0 {
			continue
		}

		mode, best := "", 0
		for v, n := range counts {
			if n > best || (n == best && v < mode) {
				mode, best = v, n
			}
		}
		for r := range t.Rows {
			if t.Rows[r][i] == "" {
				t.Rows[r][i] = mode
			}
		}
	}
}

func dropDuplicateRows(t *Table) {
	seen := make(map[string]struct{}, len(t.Rows))
	kept := t.Rows[:0]
	for _, row := range t.Rows {
		key := strings.Join(row, "\x1f")
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, row)
	}
	t.Rows = kept
}

func meanOf(vals []float64) float64 {
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func medianOf(vals []float64) float64 {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
