// Package models defines the shared data types for fleet triage.
package models

// MachineRecord is one row of the fleet dataset after column resolution.
// Numeric fields are always finite: coercion failures are replaced by the
// column median (or 0 when the whole column is non-numeric).
type MachineRecord struct {
	ID            string  `json:"id"`
	CPUPct        float64 `json:"cpu_pct"`
	RAMPct        float64 `json:"ram_pct"`
	DiskPct       float64 `json:"disk_pct"`
	NetworkStatus string  `json:"network_status"`
	PatchField    string  `json:"patch_field"`
	SeverityField string  `json:"severity_field"`
	CVEField      string  `json:"cve_field"`
}

// ProblemFlags holds the per-record problem predicates. The flags are
// independent; vulnerability flags are substring matches and can co-occur.
// Computed once per record, immutable afterwards.
type ProblemFlags struct {
	HighCPU         bool `json:"high_cpu"`
	HighRAM         bool `json:"high_ram"`
	HighDisk        bool `json:"high_disk"`
	NetworkOffline  bool `json:"network_offline"`
	NetworkUnstable bool `json:"network_unstable"`
	MissingPatch    bool `json:"missing_patch"`
	CriticalVuln    bool `json:"critical_vuln"`
	ImportantVuln   bool `json:"important_vuln"`
	ModerateVuln    bool `json:"moderate_vuln"`
	LowVuln         bool `json:"low_vuln"`
	HasCVE          bool `json:"has_cve"`
}

// SeverityLevel is the four-way classification derived from the critical score.
type SeverityLevel string

const (
	SeverityLow      SeverityLevel = "Low"
	SeverityMedium   SeverityLevel = "Medium"
	SeverityHigh     SeverityLevel = "High"
	SeverityCritical SeverityLevel = "Critical"
)

// ScoredMachine is a MachineRecord with its detection and scoring results.
type ScoredMachine struct {
	MachineRecord
	Flags          ProblemFlags  `json:"flags"`
	CriticalScore  float64       `json:"critical_score"`
	SeverityLevel  SeverityLevel `json:"severity_level"`
	ProblemSummary []string      `json:"problem_summary"`
	TotalProblems  int           `json:"total_problems"`
}
