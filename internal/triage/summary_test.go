package triage

import (
	"math/rand"
	"testing"

	"github.com/fleettriage/fleettriage/internal/models"
)

func scoredFixture() []models.ScoredMachine {
	records := []models.MachineRecord{
		{ID: "PC_001", CPUPct: 90, RAMPct: 50, DiskPct: 50, NetworkStatus: "Online"},                                    // HighCPU: 2.0 -> Low
		{ID: "PC_002", CPUPct: 50, RAMPct: 85, DiskPct: 95, NetworkStatus: "Offline"},                                   // 1.5+2+3 = 6.5 -> High
		{ID: "PC_003", CPUPct: 90, RAMPct: 85, DiskPct: 95, NetworkStatus: "Offline", SeverityField: "Critical"},        // 2+1.5+2+3+3 = 11.5 -> Critical
		{ID: "PC_004", CPUPct: 10, RAMPct: 10, DiskPct: 10, NetworkStatus: "Online", PatchField: "5002768", CVEField: "CVE-1"}, // 2+1 = 3 -> Low
	}
	out := make([]models.ScoredMachine, len(records))
	for i, r := range records {
		out[i] = ScoreMachine(r)
	}
	return out
}

func TestComputeKPIs(t *testing.T) {
	result := ComputeKPIs(scoredFixture())
	if result.Degraded {
		t.Fatalf("unexpected degradation: %s", result.Error)
	}
	k := result.KPIs

	if k.TotalMachines != 4 {
		t.Errorf("TotalMachines = %d", k.TotalMachines)
	}
	if k.CriticalPct != 25.0 || k.HighPct != 25.0 || k.LowPct != 50.0 || k.MediumPct != 0 {
		t.Errorf("severity pcts = %v/%v/%v/%v", k.CriticalPct, k.HighPct, k.MediumPct, k.LowPct)
	}
	if k.AvgCPU != 60.0 {
		t.Errorf("AvgCPU = %v, want 60.0", k.AvgCPU)
	}
	if k.MaxCPU != 90.0 || k.MaxDisk != 95.0 {
		t.Errorf("max cpu/disk = %v/%v", k.MaxCPU, k.MaxDisk)
	}
	if k.OfflineMachines != 2 {
		t.Errorf("OfflineMachines = %d, want 2", k.OfflineMachines)
	}
	if k.MachinesMissingPatches != 1 || k.MachinesWithCVE != 1 || k.CriticalVulnerabilities != 1 {
		t.Errorf("security counts = %d/%d/%d", k.MachinesMissingPatches, k.MachinesWithCVE, k.CriticalVulnerabilities)
	}
	if k.MaxCriticalScore != 11.5 {
		t.Errorf("MaxCriticalScore = %v, want 11.5", k.MaxCriticalScore)
	}
}

func TestComputeKPIsDegradesOnEmptyInput(t *testing.T) {
	result := ComputeKPIs(nil)
	if !result.Degraded {
		t.Fatal("expected degraded result")
	}
	if result.Total != 0 {
		t.Errorf("Total = %d", result.Total)
	}
	if result.Error == "" {
		t.Error("degraded result should carry an error description")
	}
}

func TestTopCriticalOrderingAndTies(t *testing.T) {
	machines := scoredFixture()
	top := TopCritical(machines, nil, Resolution{}, 2)

	if len(top) != 2 {
		t.Fatalf("top = %d entries", len(top))
	}
	if top[0].ComputerID != "PC_003" || top[1].ComputerID != "PC_002" {
		t.Errorf("order = %s, %s", top[0].ComputerID, top[1].ComputerID)
	}
}

func TestTopCriticalStableTies(t *testing.T) {
	recs := []models.MachineRecord{
		{ID: "first", CPUPct: 90},
		{ID: "second", CPUPct: 90},
		{ID: "third", CPUPct: 90},
	}
	machines := make([]models.ScoredMachine, len(recs))
	for i, r := range recs {
		machines[i] = ScoreMachine(r)
	}

	top := TopCritical(machines, nil, Resolution{}, 3)
	if top[0].ComputerID != "first" || top[1].ComputerID != "second" || top[2].ComputerID != "third" {
		t.Errorf("ties must keep original order, got %s/%s/%s",
			top[0].ComputerID, top[1].ComputerID, top[2].ComputerID)
	}
}

func TestTopCriticalClampsN(t *testing.T) {
	machines := scoredFixture()
	if got := TopCritical(machines, nil, Resolution{}, 100); len(got) != len(machines) {
		t.Errorf("len = %d, want %d", len(got), len(machines))
	}
	if got := TopCritical(machines, nil, Resolution{}, 0); len(got) != len(machines) {
		// 0 falls back to the default of 5, clamped to fleet size
		t.Errorf("len = %d, want %d", len(got), len(machines))
	}
}

func TestTopCriticalProjectsAvailableColumns(t *testing.T) {
	tbl := tableWith(
		[]string{"CPU Usage (%)", "Network Status"},
		[]string{"99", "Offline"},
	)
	res := Resolve(tbl, rand.New(rand.NewSource(3)))
	machines := []models.ScoredMachine{ScoreMachine(Records(tbl, res)[0])}

	top := TopCritical(machines, tbl, res, 1)
	if top[0].Extra["CPU Usage (%)"] != "99" {
		t.Errorf("Extra = %v", top[0].Extra)
	}
	if top[0].Problems == NoIssuesLabel {
		t.Error("offline machine should list problems")
	}
}

func TestTopCriticalNoIssuesLabel(t *testing.T) {
	machines := []models.ScoredMachine{ScoreMachine(models.MachineRecord{ID: "clean", NetworkStatus: "Online"})}
	top := TopCritical(machines, nil, Resolution{}, 1)
	if top[0].Problems != NoIssuesLabel {
		t.Errorf("Problems = %q, want %q", top[0].Problems, NoIssuesLabel)
	}
}
