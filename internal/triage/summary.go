package triage

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/fleettriage/fleettriage/internal/models"
	"github.com/rs/zerolog/log"
)

// ComputeKPIs aggregates scored machines into the fixed KPI set. It never
// propagates a failure: on any problem it degrades to the machine count
// plus an error description.
func ComputeKPIs(machines []models.ScoredMachine) (result models.KPIResult) {
	result.Total = len(machines)

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("KPI aggregation failed, degrading to machine count")
			result = models.KPIResult{
				Total:    len(machines),
				Degraded: true,
				Error:    fmt.Sprintf("KPI calculation error: %v", r),
			}
		}
	}()

	if len(machines) == 0 {
		return models.KPIResult{
			Total:    0,
			Degraded: true,
			Error:    "KPI calculation error: no machines to aggregate",
		}
	}

	n := float64(len(machines))
	k := &models.KPISet{TotalMachines: len(machines)}

	var sevCounts = map[models.SeverityLevel]int{}
	var sumCPU, sumRAM, sumDisk, sumScore float64
	var sumProblems int

	for _, m := range machines {
		sevCounts[m.SeverityLevel]++
		sumCPU += m.CPUPct
		sumRAM += m.RAMPct
		sumDisk += m.DiskPct
		sumScore += m.CriticalScore
		sumProblems += m.TotalProblems

		k.MaxCPU = math.Max(k.MaxCPU, m.CPUPct)
		k.MaxRAM = math.Max(k.MaxRAM, m.RAMPct)
		k.MaxDisk = math.Max(k.MaxDisk, m.DiskPct)
		k.MaxCriticalScore = math.Max(k.MaxCriticalScore, m.CriticalScore)

		if m.Flags.MissingPatch {
			k.MachinesMissingPatches++
		}
		if m.Flags.CriticalVuln {
			k.CriticalVulnerabilities++
		}
		if m.Flags.ImportantVuln {
			k.ImportantVulnerabilities++
		}
		if m.Flags.HasCVE {
			k.MachinesWithCVE++
		}
		if m.Flags.NetworkOffline {
			k.OfflineMachines++
		}
		if m.Flags.NetworkUnstable {
			k.UnstableConnections++
		}
	}

	k.CriticalPct = round1(float64(sevCounts[models.SeverityCritical]) / n * 100)
	k.HighPct = round1(float64(sevCounts[models.SeverityHigh]) / n * 100)
	k.MediumPct = round1(float64(sevCounts[models.SeverityMedium]) / n * 100)
	k.LowPct = round1(float64(sevCounts[models.SeverityLow]) / n * 100)

	k.AvgCPU = round1(sumCPU / n)
	k.AvgRAM = round1(sumRAM / n)
	k.AvgDisk = round1(sumDisk / n)
	k.MaxCPU = round1(k.MaxCPU)
	k.MaxRAM = round1(k.MaxRAM)
	k.MaxDisk = round1(k.MaxDisk)

	k.MachinesWithProblems = sumProblems
	k.AvgProblemsPerMachine = round1(float64(sumProblems) / n)

	k.AvgCriticalScore = round1(sumScore / n)
	k.MaxCriticalScore = round1(k.MaxCriticalScore)

	result.KPIs = k
	return result
}

// TopCritical returns the n highest-scoring machines. The sort is stable:
// ties keep original row order. The Extra projection carries the resolved
// telemetry columns that actually exist in the source table.
func TopCritical(machines []models.ScoredMachine, t *Table, res Resolution, n int) []models.TopMachine {
	if n < 1 {
		n = 5
	}

	order := make([]int, len(machines))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return machines[order[a]].CriticalScore > machines[order[b]].CriticalScore
	})

	if n > len(order) {
		n = len(order)
	}

	display := res.TelemetryColumns()
	out := make([]models.TopMachine, 0, n)
	for _, idx := range order[:n] {
		m := machines[idx]

		problems := NoIssuesLabel
		if len(m.ProblemSummary) > 0 {
			problems = strings.Join(m.ProblemSummary, "; ")
		}

		extra := make(map[string]string)
		for _, col := range display {
			if t != nil && t.Has(col) {
				extra[col] = t.Cell(idx, col)
			}
		}

		out = append(out, models.TopMachine{
			ComputerID:    m.ID,
			CriticalScore: m.CriticalScore,
			SeverityLevel: m.SeverityLevel,
			TotalProblems: m.TotalProblems,
			Problems:      problems,
			Extra:         extra,
		})
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
