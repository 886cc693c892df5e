package triage

import (
	"testing"
)

func TestDropNA(t *testing.T) {
	tbl := tableWith([]string{"A", "B"},
		[]string{"1", "2"},
		[]string{"", "3"},
		[]string{"4", ""},
		[]string{"5", "6"},
	)
	ApplyCleaning(tbl, Options{DropNA: true})
	if tbl.Len() != 2 {
		t.Fatalf("rows = %d, want 2", tbl.Len())
	}
	if tbl.Cell(0, "A") != "1" || tbl.Cell(1, "A") != "5" {
		t.Errorf("unexpected surviving rows: %v", tbl.Rows)
	}
}

func TestFillNAMean(t *testing.T) {
	tbl := tableWith([]string{"N", "Label"},
		[]string{"10", "a"},
		[]string{"", "b"},
		[]string{"30", ""},
	)
	ApplyCleaning(tbl, Options{FillNA: "mean"})
	if got := tbl.Cell(1, "N"); got != "20" {
		t.Errorf("mean fill = %q, want 20", got)
	}
	// categorical column untouched by mean fill
	if got := tbl.Cell(2, "Label"); got != "" {
		t.Errorf("label = %q, want empty", got)
	}
}

func TestFillNAMedian(t *testing.T) {
	tbl := tableWith([]string{"N"},
		[]string{"1"}, []string{"100"}, []string{"3"}, []string{""},
	)
	ApplyCleaning(tbl, Options{FillNA: "median"})
	if got := tbl.Cell(3, "N"); got != "3" {
		t.Errorf("median fill = %q, want 3", got)
	}
}

func TestFillNAMode(t *testing.T) {
	tbl := tableWith([]string{"Status"},
		[]string{"Online"}, []string{"Online"}, []string{"Offline"}, []string{""},
	)
	ApplyCleaning(tbl, Options{FillNA: "mode"})
	if got := tbl.Cell(3, "Status"); got != "Online" {
		t.Errorf("mode fill = %q, want Online", got)
	}
}

func TestRemoveDuplicates(t *testing.T) {
	tbl := tableWith([]string{"A", "B"},
		[]string{"1", "x"},
		[]string{"1", "x"},
		[]string{"1", "y"},
	)
	ApplyCleaning(tbl, Options{RemoveDuplicates: true})
	if tbl.Len() != 2 {
		t.Fatalf("rows = %d, want 2", tbl.Len())
	}
}
