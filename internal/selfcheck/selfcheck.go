// Package selfcheck scores the host the service runs on with the same
// detector used for fleet datasets.
package selfcheck

import (
	"context"
	"os"
	"time"

	gocpu "github.com/shirou/gopsutil/v4/cpu"
	godisk "github.com/shirou/gopsutil/v4/disk"
	gomem "github.com/shirou/gopsutil/v4/mem"
	gonet "github.com/shirou/gopsutil/v4/net"

	"github.com/fleettriage/fleettriage/internal/models"
	"github.com/fleettriage/fleettriage/internal/triage"
)

// System call wrappers for testing
var (
	cpuPercent    = gocpu.PercentWithContext
	virtualMemory = gomem.VirtualMemoryWithContext
	diskUsage     = godisk.UsageWithContext
	netInterfaces = gonet.InterfacesWithContext
	hostname      = os.Hostname
)

// Report is the host's own triage result.
type Report struct {
	Hostname    string               `json:"hostname"`
	CollectedAt time.Time            `json:"collected_at"`
	Machine     models.ScoredMachine `json:"machine"`
}

// Collect samples host telemetry and scores it. Collectors that fail
// leave their field at zero rather than failing the report; the patch
// and vulnerability fields are unknown for a live host and never flag.
func Collect(ctx context.Context, diskPath string) (*Report, error) {
	collectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if diskPath == "" {
		diskPath = "/"
	}

	rec := models.MachineRecord{
		NetworkStatus: "online",
		PatchField:    "unknown",
		SeverityField: "unknown",
		CVEField:      "unknown",
	}

	if name, err := hostname(); err == nil {
		rec.ID = name
	} else {
		rec.ID = "localhost"
	}

	if pcts, err := cpuPercent(collectCtx, time.Second, false); err == nil && len(pcts) > 0 {
		rec.CPUPct = pcts[0]
	}

	if memStats, err := virtualMemory(collectCtx); err == nil {
		rec.RAMPct = memStats.UsedPercent
	}

	if usage, err := diskUsage(collectCtx, diskPath); err == nil {
		rec.DiskPct = usage.UsedPercent
	}

	if !anyInterfaceUp(collectCtx) {
		rec.NetworkStatus = "offline"
	}

	return &Report{
		Hostname:    rec.ID,
		CollectedAt: time.Now().UTC(),
		Machine:     triage.ScoreMachine(rec),
	}, nil
}

// anyInterfaceUp reports whether a non-loopback interface is up.
func anyInterfaceUp(ctx context.Context) bool {
	ifaces, err := netInterfaces(ctx)
	if err != nil {
		// Cannot tell; assume connectivity rather than flag a false offline
		return true
	}
	for _, iface := range ifaces {
		up, loopback := false, false
		for _, flag := range iface.Flags {
			switch flag {
			case "up":
				up = true
			case "loopback":
				loopback = true
			}
		}
		if up && !loopback {
			return true
		}
	}
	return false
}
