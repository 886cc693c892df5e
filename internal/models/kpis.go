package models

// KPISet is the fixed record of fleet aggregate indicators.
type KPISet struct {
	TotalMachines int `json:"total_machines"`

	CriticalPct float64 `json:"critical_pct"`
	HighPct     float64 `json:"high_pct"`
	MediumPct   float64 `json:"medium_pct"`
	LowPct      float64 `json:"low_pct"`

	AvgCPU  float64 `json:"avg_cpu"`
	AvgRAM  float64 `json:"avg_ram"`
	AvgDisk float64 `json:"avg_disk"`
	MaxCPU  float64 `json:"max_cpu"`
	MaxRAM  float64 `json:"max_ram"`
	MaxDisk float64 `json:"max_disk"`

	MachinesWithProblems  int     `json:"machines_with_problems"`
	AvgProblemsPerMachine float64 `json:"avg_problems_per_machine"`

	MachinesMissingPatches   int `json:"machines_missing_patches"`
	CriticalVulnerabilities  int `json:"critical_vulnerabilities"`
	ImportantVulnerabilities int `json:"important_vulnerabilities"`
	MachinesWithCVE          int `json:"machines_with_cve"`

	OfflineMachines     int `json:"offline_machines"`
	UnstableConnections int `json:"unstable_connections"`

	AvgCriticalScore float64 `json:"avg_critical_score"`
	MaxCriticalScore float64 `json:"max_critical_score"`
}

// KPIResult is either a full KPI set or a degraded fallback carrying the
// machine count plus an error description. Aggregation never propagates
// its failure to the caller.
type KPIResult struct {
	KPIs     *KPISet `json:"kpis,omitempty"`
	Total    int     `json:"total_machines"`
	Degraded bool    `json:"degraded,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// TopMachine is the display projection of a scored machine for the
// top-critical view. Extra holds resolved telemetry columns that were
// actually present in the dataset, keyed by their original names.
type TopMachine struct {
	ComputerID    string            `json:"computer_id"`
	CriticalScore float64           `json:"critical_score"`
	SeverityLevel SeverityLevel     `json:"severity_level"`
	TotalProblems int               `json:"total_problems"`
	Problems      string            `json:"problems"`
	Extra         map[string]string `json:"extra,omitempty"`
}

// PreviewRow is one row of the head-of-dataset preview: every source
// column (coerced telemetry values included) plus the computed scoring
// fields, keyed by column name.
type PreviewRow map[string]any

// AnalysisResult is the full payload of one fleet analysis run.
type AnalysisResult struct {
	KPIs             KPIResult         `json:"kpis"`
	Charts           map[string]string `json:"charts"`
	DataPreview      []PreviewRow      `json:"data_preview"`
	TopCritical      []TopMachine      `json:"top_critical"`
	TotalRows        int               `json:"total_rows"`
	ColumnsAvailable []string          `json:"columns_available"`
}
