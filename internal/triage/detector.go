package triage

import (
	"strings"

	"github.com/fleettriage/fleettriage/internal/models"
)

// Detection thresholds and score weights. The weights sum to 19.0 when
// every flag fires.
const (
	cpuThreshold  = 85.0
	ramThreshold  = 80.0
	diskThreshold = 90.0

	weightHighCPU         = 2.0
	weightHighRAM         = 1.5
	weightHighDisk        = 2.0
	weightNetworkOffline  = 3.0
	weightNetworkUnstable = 2.0
	weightMissingPatch    = 2.0
	weightCriticalVuln    = 3.0
	weightImportantVuln   = 2.0
	weightModerateVuln    = 1.0
	weightLowVuln         = 0.5
	weightHasCVE          = 1.0
)

// Severity bin edges: score <= 3 Low, (3,5] Medium, (5,7] High, >7 Critical.
const (
	lowEdge    = 3.0
	mediumEdge = 5.0
	highEdge   = 7.0
)

// NoIssuesLabel is the summary text for a machine with no detected problems.
const NoIssuesLabel = "No issues detected"

// Detect evaluates the problem predicates for one record. Every predicate
// is total: malformed or empty inputs fail the predicate, never panic.
func Detect(rec models.MachineRecord) models.ProblemFlags {
	network := strings.ToLower(rec.NetworkStatus)
	patch := strings.ToLower(rec.PatchField)
	severity := strings.ToLower(rec.SeverityField)
	cve := strings.ToLower(rec.CVEField)

	return models.ProblemFlags{
		HighCPU:         rec.CPUPct > cpuThreshold,
		HighRAM:         rec.RAMPct > ramThreshold,
		HighDisk:        rec.DiskPct > diskThreshold,
		NetworkOffline:  network == "offline" || network == "disconnected",
		NetworkUnstable: network == "unstable" || network == "poor",
		MissingPatch:    rec.PatchField != "" && patch != "release notes" && patch != "unknown",
		CriticalVuln:    strings.Contains(severity, "critical"),
		ImportantVuln:   strings.Contains(severity, "important"),
		ModerateVuln:    strings.Contains(severity, "moderate"),
		LowVuln:         strings.Contains(severity, "low"),
		HasCVE:          rec.CVEField != "" && cve != "unknown" && strings.Contains(rec.CVEField, "CVE-"),
	}
}

// Score accumulates the weighted contributions of the true flags.
func Score(f models.ProblemFlags) float64 {
	score := 0.0
	if f.HighCPU {
		score += weightHighCPU
	}
	if f.HighRAM {
		score += weightHighRAM
	}
	if f.HighDisk {
		score += weightHighDisk
	}
	if f.NetworkOffline {
		score += weightNetworkOffline
	}
	if f.NetworkUnstable {
		score += weightNetworkUnstable
	}
	if f.MissingPatch {
		score += weightMissingPatch
	}
	if f.CriticalVuln {
		score += weightCriticalVuln
	}
	if f.ImportantVuln {
		score += weightImportantVuln
	}
	if f.ModerateVuln {
		score += weightModerateVuln
	}
	if f.LowVuln {
		score += weightLowVuln
	}
	if f.HasCVE {
		score += weightHasCVE
	}
	return score
}

// Classify bins a critical score into a severity level. Intervals are
// left-exclusive, right-inclusive; anything above the high edge is
// Critical, scores are never negative in practice.
func Classify(score float64) models.SeverityLevel {
	switch {
	case score <= lowEdge:
		return models.SeverityLow
	case score <= mediumEdge:
		return models.SeverityMedium
	case score <= highEdge:
		return models.SeverityHigh
	default:
		return models.SeverityCritical
	}
}

// Summary lists the human-readable labels for the true flags in fixed
// order. LowVuln is flagged but deliberately never listed; the CVE label
// comes last.
func Summary(f models.ProblemFlags) []string {
	var issues []string
	if f.HighCPU {
		issues = append(issues, "High CPU usage")
	}
	if f.HighRAM {
		issues = append(issues, "High RAM usage")
	}
	if f.HighDisk {
		issues = append(issues, "Disk almost full")
	}
	if f.NetworkOffline {
		issues = append(issues, "Network disconnected")
	}
	if f.NetworkUnstable {
		issues = append(issues, "Network unstable")
	}
	if f.MissingPatch {
		issues = append(issues, "Missing security patch")
	}
	if f.CriticalVuln {
		issues = append(issues, "Critical vulnerability")
	}
	if f.ImportantVuln {
		issues = append(issues, "Important vulnerability")
	}
	if f.ModerateVuln {
		issues = append(issues, "Moderate vulnerability")
	}
	if f.HasCVE {
		issues = append(issues, "CVE identified")
	}
	return issues
}

// CountProblems counts the ten summary categories; LowVuln is excluded,
// matching the summary text.
func CountProblems(f models.ProblemFlags) int {
	n := 0
	for _, b := range []bool{
		f.HighCPU, f.HighRAM, f.HighDisk,
		f.NetworkOffline, f.NetworkUnstable,
		f.MissingPatch,
		f.CriticalVuln, f.ImportantVuln, f.ModerateVuln,
		f.HasCVE,
	} {
		if b {
			n++
		}
	}
	return n
}

// ScoreMachine runs the full detect-score-classify pass for one record.
func ScoreMachine(rec models.MachineRecord) models.ScoredMachine {
	flags := Detect(rec)
	score := Score(flags)
	return models.ScoredMachine{
		MachineRecord:  rec,
		Flags:          flags,
		CriticalScore:  score,
		SeverityLevel:  Classify(score),
		ProblemSummary: Summary(flags),
		TotalProblems:  CountProblems(flags),
	}
}
