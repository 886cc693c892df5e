package triage

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strconv"
	"strings"

	"github.com/fleettriage/fleettriage/internal/models"
)

// Canonical telemetry fields and their column-name aliases. Matching is a
// case-insensitive substring test, first column in original order wins.
var fieldAliases = map[string][]string{
	"cpu":      {"cpu", "processor", "processor usage"},
	"ram":      {"ram", "memory", "memory usage"},
	"disk":     {"disk", "storage", "disk usage", "storage usage"},
	"network":  {"network", "network status"},
	"patch":    {"missingpatchs", "missingpatchskb", "patch"},
	"severity": {"severity", "risk level"},
	"cve":      {"cve", "cve identifier"},
}

// Default column names used when no alias matches.
var fieldDefaults = map[string]string{
	"cpu":      "CPU Usage (%)",
	"ram":      "RAM Usage (%)",
	"disk":     "Disk Usage (%)",
	"network":  "Network Status",
	"patch":    "MissingPatchsKB",
	"severity": "Severity",
	"cve":      "CVE identifier(s)",
}

const idColumn = "Computer ID"

// Resolution records which physical column serves each canonical field,
// and which columns had to be synthesized.
type Resolution struct {
	CPUCol      string
	RAMCol      string
	DiskCol     string
	NetworkCol  string
	PatchCol    string
	SeverityCol string
	CVECol      string
	IDCol       string

	Synthesized []string
}

// TelemetryColumns lists the resolved telemetry column names in display order.
func (r Resolution) TelemetryColumns() []string {
	return []string{r.CPUCol, r.RAMCol, r.DiskCol, r.NetworkCol, r.PatchCol, r.SeverityCol, r.CVECol}
}

// ResolveField returns the first column whose lowercased name contains one
// of the field's aliases, or the field's default name when none matches.
func ResolveField(columns []string, field string) string {
	aliases, ok := fieldAliases[field]
	if !ok {
		return ""
	}
	for _, col := range columns {
		lower := strings.ToLower(col)
		for _, alias := range aliases {
			if strings.Contains(lower, alias) {
				return col
			}
		}
	}
	return fieldDefaults[field]
}

// Resolve maps the table's columns to the canonical telemetry fields,
// synthesizing any that are absent so downstream stages never fail on
// missing input. rng drives the synthesis and is injectable for
// deterministic tests.
func Resolve(t *Table, rng *rand.Rand) Resolution {
	res := Resolution{
		CPUCol:      ResolveField(t.Columns, "cpu"),
		RAMCol:      ResolveField(t.Columns, "ram"),
		DiskCol:     ResolveField(t.Columns, "disk"),
		NetworkCol:  ResolveField(t.Columns, "network"),
		PatchCol:    ResolveField(t.Columns, "patch"),
		SeverityCol: ResolveField(t.Columns, "severity"),
		CVECol:      ResolveField(t.Columns, "cve"),
	}

	synthNumeric(t, rng, &res, res.CPUCol, 20, 95)
	synthNumeric(t, rng, &res, res.RAMCol, 30, 98)
	synthNumeric(t, rng, &res, res.DiskCol, 40, 99)
	synthChoice(t, rng, &res, res.NetworkCol, []string{"Online", "Offline", "Unstable"})
	synthChoice(t, rng, &res, res.PatchCol, []string{"Release Notes", "5002768", "5002754"})
	synthChoice(t, rng, &res, res.SeverityCol, []string{"Critical", "Important", "Moderate", "Low"})

	res.IDCol = resolveIdentity(t)
	return res
}

// resolveIdentity ensures a "Computer ID" column exists, copying from
// "ID" or "Computer" when present, else synthesizing sequential labels.
func resolveIdentity(t *Table) string {
	if t.Has(idColumn) {
		return idColumn
	}

	var values []string
	switch {
	case t.Has("ID"):
		values = t.ColumnValues("ID")
	case t.Has("Computer"):
		values = t.ColumnValues("Computer")
	default:
		values = make([]string, t.Len())
		for i := range values {
			values[i] = fmt.Sprintf("PC_%03d", i+1)
		}
	}
	t.SetColumn(idColumn, values)
	return idColumn
}

func synthNumeric(t *Table, rng *rand.Rand, res *Resolution, col string, lo, hi int) {
	if t.Has(col) {
		return
	}
	values := make([]string, t.Len())
	for i := range values {
		values[i] = strconv.Itoa(lo + rng.Intn(hi-lo))
	}
	t.SetColumn(col, values)
	res.Synthesized = append(res.Synthesized, col)
}

func synthChoice(t *Table, rng *rand.Rand, res *Resolution, col string, choices []string) {
	if t.Has(col) {
		return
	}
	values := make([]string, t.Len())
	for i := range values {
		values[i] = choices[rng.Intn(len(choices))]
	}
	t.SetColumn(col, values)
	res.Synthesized = append(res.Synthesized, col)
}

// Records builds MachineRecords from the resolved table. Numeric columns
// are coerced with median fallback so no NaN or Inf survives.
func Records(t *Table, res Resolution) []models.MachineRecord {
	cpu := coerceNumeric(t.ColumnValues(res.CPUCol))
	ram := coerceNumeric(t.ColumnValues(res.RAMCol))
	disk := coerceNumeric(t.ColumnValues(res.DiskCol))

	records := make([]models.MachineRecord, t.Len())
	for i := range records {
		records[i] = models.MachineRecord{
			ID:            t.Cell(i, res.IDCol),
			CPUPct:        cpu[i],
			RAMPct:        ram[i],
			DiskPct:       disk[i],
			NetworkStatus: t.Cell(i, res.NetworkCol),
			PatchField:    t.Cell(i, res.PatchCol),
			SeverityField: t.Cell(i, res.SeverityCol),
			CVEField:      t.Cell(i, res.CVECol),
		}
	}
	return records
}

// coerceNumeric parses each value, replacing failures and infinities with
// the median of the parseable values (0 when nothing parses).
func coerceNumeric(raw []string) []float64 {
	parsed := make([]float64, len(raw))
	valid := make([]bool, len(raw))
	var ok []float64

	for i, s := range raw {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
			continue
		}
		parsed[i] = v
		valid[i] = true
		ok = append(ok, v)
	}

	fill := 0.0
	if len(ok) > 0 {
		sorted := append([]float64(nil), ok...)
		sort.Float64s(sorted)
		n := len(sorted)
		if n%2 == 1 {
			fill = sorted[n/2]
		} else {
			fill = (sorted[n/2-1] + sorted[n/2]) / 2
		}
	}

	for i := range parsed {
		if !valid[i] {
			parsed[i] = fill
		}
	}
	return parsed
}
