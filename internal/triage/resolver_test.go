package triage

import (
	"math/rand"
	"strconv"
	"strings"
	"testing"
)

func tableWith(columns []string, rows ...[]string) *Table {
	t := &Table{Columns: columns, Rows: rows}
	t.rebuildIndex()
	return t
}

func TestResolveFieldKeywordMatch(t *testing.T) {
	columns := []string{"CPU Usage (%)", "RAM%", "Disk Storage"}

	tests := []struct {
		field string
		want  string
	}{
		{"cpu", "CPU Usage (%)"},
		{"ram", "RAM%"},
		{"disk", "Disk Storage"}, // matched via the "storage" keyword
		{"network", "Network Status"},
		{"severity", "Severity"},
	}
	for _, tt := range tests {
		if got := ResolveField(columns, tt.field); got != tt.want {
			t.Errorf("ResolveField(%q) = %q, want %q", tt.field, got, tt.want)
		}
	}
}

func TestResolveFieldFirstMatchWins(t *testing.T) {
	columns := []string{"Processor Load", "CPU Usage (%)"}
	if got := ResolveField(columns, "cpu"); got != "Processor Load" {
		t.Errorf("ResolveField = %q, want first column in original order", got)
	}
}

func TestResolveSynthesizesMissingColumns(t *testing.T) {
	tbl := tableWith([]string{"Hostname"},
		[]string{"alpha"}, []string{"beta"}, []string{"gamma"})

	rng := rand.New(rand.NewSource(42))
	res := Resolve(tbl, rng)

	if len(res.Synthesized) != 6 {
		t.Fatalf("Synthesized = %v, want all six telemetry columns", res.Synthesized)
	}

	for row := 0; row < tbl.Len(); row++ {
		cpu, err := strconv.Atoi(tbl.Cell(row, res.CPUCol))
		if err != nil || cpu < 20 || cpu >= 95 {
			t.Errorf("row %d: synthesized cpu %q outside [20,95)", row, tbl.Cell(row, res.CPUCol))
		}
		ram, err := strconv.Atoi(tbl.Cell(row, res.RAMCol))
		if err != nil || ram < 30 || ram >= 98 {
			t.Errorf("row %d: synthesized ram %q outside [30,98)", row, tbl.Cell(row, res.RAMCol))
		}
		disk, err := strconv.Atoi(tbl.Cell(row, res.DiskCol))
		if err != nil || disk < 40 || disk >= 99 {
			t.Errorf("row %d: synthesized disk %q outside [40,99)", row, tbl.Cell(row, res.DiskCol))
		}

		switch tbl.Cell(row, res.NetworkCol) {
		case "Online", "Offline", "Unstable":
		default:
			t.Errorf("row %d: network %q not in category set", row, tbl.Cell(row, res.NetworkCol))
		}
		switch tbl.Cell(row, res.SeverityCol) {
		case "Critical", "Important", "Moderate", "Low":
		default:
			t.Errorf("row %d: severity %q not in category set", row, tbl.Cell(row, res.SeverityCol))
		}
	}
}

// Resolving the same columns twice yields identical names; synthesized
// values differ but stay within the declared ranges.
func TestResolveIdempotentNames(t *testing.T) {
	build := func(seed int64) (*Table, Resolution) {
		tbl := tableWith([]string{"Hostname"}, []string{"a"}, []string{"b"})
		return tbl, Resolve(tbl, rand.New(rand.NewSource(seed)))
	}

	_, r1 := build(1)
	_, r2 := build(2)

	if r1.CPUCol != r2.CPUCol || r1.RAMCol != r2.RAMCol || r1.DiskCol != r2.DiskCol ||
		r1.NetworkCol != r2.NetworkCol || r1.PatchCol != r2.PatchCol ||
		r1.SeverityCol != r2.SeverityCol || r1.CVECol != r2.CVECol {
		t.Errorf("resolved names differ across runs: %+v vs %+v", r1, r2)
	}
}

func TestIdentityColumnPriority(t *testing.T) {
	t.Run("existing Computer ID wins", func(t *testing.T) {
		tbl := tableWith([]string{"Computer ID", "ID"}, []string{"host-7", "9"})
		res := Resolve(tbl, rand.New(rand.NewSource(1)))
		if tbl.Cell(0, res.IDCol) != "host-7" {
			t.Errorf("id = %q, want host-7", tbl.Cell(0, res.IDCol))
		}
	})

	t.Run("ID copied", func(t *testing.T) {
		tbl := tableWith([]string{"ID"}, []string{"42"})
		res := Resolve(tbl, rand.New(rand.NewSource(1)))
		if tbl.Cell(0, res.IDCol) != "42" {
			t.Errorf("id = %q, want 42", tbl.Cell(0, res.IDCol))
		}
	})

	t.Run("Computer copied", func(t *testing.T) {
		tbl := tableWith([]string{"Computer"}, []string{"desk-3"})
		res := Resolve(tbl, rand.New(rand.NewSource(1)))
		if tbl.Cell(0, res.IDCol) != "desk-3" {
			t.Errorf("id = %q, want desk-3", tbl.Cell(0, res.IDCol))
		}
	})

	t.Run("synthesized sequential labels", func(t *testing.T) {
		tbl := tableWith([]string{"Hostname"}, []string{"x"}, []string{"y"})
		res := Resolve(tbl, rand.New(rand.NewSource(1)))
		if got := tbl.Cell(0, res.IDCol); got != "PC_001" {
			t.Errorf("first id = %q, want PC_001", got)
		}
		if got := tbl.Cell(1, res.IDCol); got != "PC_002" {
			t.Errorf("second id = %q, want PC_002", got)
		}
	})
}

func TestCoerceNumericMedianFallback(t *testing.T) {
	got := coerceNumeric([]string{"10", "garbage", "30", "", "20"})
	// median of {10, 30, 20} is 20
	want := []float64{10, 20, 30, 20, 20}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("coerceNumeric[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestCoerceNumericAllInvalid(t *testing.T) {
	for _, v := range coerceNumeric([]string{"a", "b", ""}) {
		if v != 0 {
			t.Errorf("all-invalid column should coerce to 0, got %v", v)
		}
	}
}

func TestCoerceNumericRejectsInf(t *testing.T) {
	got := coerceNumeric([]string{"+Inf", "10", "20"})
	if got[0] != 15 {
		t.Errorf("Inf should fall back to median 15, got %v", got[0])
	}
}

func TestRecordsFinite(t *testing.T) {
	tbl := tableWith(
		[]string{"CPU Usage (%)", "RAM Usage (%)", "Disk Usage (%)", "Network Status", "MissingPatchsKB", "Severity", "CVE identifier(s)", "Computer ID"},
		[]string{"NaN", "55", "60", "Online", "", "Low", "unknown", "PC_001"},
	)
	res := Resolve(tbl, rand.New(rand.NewSource(1)))
	recs := Records(tbl, res)

	if len(recs) != 1 {
		t.Fatalf("records = %d", len(recs))
	}
	if recs[0].CPUPct != 0 {
		t.Errorf("NaN cpu should coerce to 0 with no valid siblings, got %v", recs[0].CPUPct)
	}
	if recs[0].RAMPct != 55 || recs[0].DiskPct != 60 {
		t.Errorf("record = %+v", recs[0])
	}
}

func TestResolverNeverFailsOnArbitraryColumns(t *testing.T) {
	// Hard contract: any column set resolves without error.
	weird := tableWith([]string{"??", strings.Repeat("x", 300), ""},
		[]string{"1", "2", "3"})
	res := Resolve(weird, rand.New(rand.NewSource(7)))
	recs := Records(weird, res)
	if len(recs) != 1 {
		t.Fatalf("expected one record, got %d", len(recs))
	}
}
