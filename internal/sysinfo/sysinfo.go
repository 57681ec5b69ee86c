// Package sysinfo builds point-in-time snapshots of host capacity:
// CPU topology, memory, disk, GPU availability, and platform identity.
//
// Snapshots are immutable and rebuilt on every call. Individual metrics
// degrade independently: an unreadable core count or frequency marks
// that field unknown instead of failing the snapshot.
package sysinfo

import (
	"context"
	"encoding/json"
	"math"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/runready/runready/internal/errors"
	"github.com/runready/runready/internal/gpu"
)

// Frequency is a CPU frequency in MHz that may be unreported by the
// platform. It serializes as a JSON number when known and as the string
// "unknown" otherwise, so consumers can tell "0 MHz" from "unsupported".
type Frequency struct {
	MHz   float64
	Known bool
}

// MarshalJSON implements json.Marshaler.
func (f Frequency) MarshalJSON() ([]byte, error) {
	if !f.Known {
		return json.Marshal("unknown")
	}
	return json.Marshal(f.MHz)
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Frequency) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		f.Known = false
		f.MHz = 0
		return nil
	}
	if err := json.Unmarshal(data, &f.MHz); err != nil {
		return err
	}
	f.Known = true
	return nil
}

// CPU describes processor topology. PhysicalCores is nil when the
// platform cannot report it; logical cores are always present.
type CPU struct {
	PhysicalCores   *int      `json:"physical_cores"`
	LogicalCores    int       `json:"logical_cores"`
	MaxFrequencyMHz Frequency `json:"max_frequency_mhz"`
}

// Memory describes RAM capacity in binary gigabytes.
type Memory struct {
	TotalGB     float64 `json:"total_gb"`
	AvailableGB float64 `json:"available_gb"`
	PercentUsed float64 `json:"percent_used"`
}

// Disk describes capacity of the root filesystem in binary gigabytes.
type Disk struct {
	TotalGB     float64 `json:"total_gb"`
	FreeGB      float64 `json:"free_gb"`
	PercentUsed float64 `json:"percent_used"`
}

// Platform identifies the host OS, architecture, and Go runtime.
type Platform struct {
	System         string `json:"system"`
	Machine        string `json:"machine"`
	RuntimeVersion string `json:"runtime_version"`
}

// Snapshot is one complete host inspection result.
type Snapshot struct {
	CPU      CPU      `json:"cpu"`
	Memory   Memory   `json:"memory"`
	Disk     Disk     `json:"disk"`
	GPU      gpu.Info `json:"gpu"`
	Platform Platform `json:"platform"`
}

// Inspector reads host state. Construct once and reuse; each Snapshot
// call re-reads everything.
type Inspector struct {
	// GPU is the detector selected at startup.
	GPU gpu.Detector

	// DiskPath is the filesystem whose capacity is reported.
	DiskPath string
}

// NewInspector returns an Inspector probing the root filesystem with
// the given GPU detector.
func NewInspector(det gpu.Detector) *Inspector {
	return &Inspector{
		GPU:      det,
		DiskPath: defaultDiskPath(),
	}
}

func defaultDiskPath() string {
	if runtime.GOOS == "windows" {
		return `C:\`
	}
	return "/"
}

// Snapshot inspects the host and returns the current state.
//
// Memory, disk, and logical core counts are required; their failure
// fails the snapshot. Physical core count, frequency, and GPU state
// degrade to unknown/unavailable.
func (i *Inspector) Snapshot(ctx context.Context) (*Snapshot, error) {
	logical, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return nil, errors.New(errors.ErrCodeHostProbe, "failed to read CPU count", err)
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, errors.New(errors.ErrCodeHostProbe, "failed to read memory stats", err)
	}

	du, err := disk.UsageWithContext(ctx, i.DiskPath)
	if err != nil {
		return nil, errors.New(errors.ErrCodeHostProbe, "failed to read disk usage", err).
			WithDetail("path", i.DiskPath)
	}

	snap := &Snapshot{
		CPU: CPU{
			PhysicalCores:   physicalCores(ctx),
			LogicalCores:    logical,
			MaxFrequencyMHz: maxFrequency(ctx),
		},
		Memory: Memory{
			TotalGB:     roundGB(vm.Total),
			AvailableGB: roundGB(vm.Available),
			PercentUsed: round1(vm.UsedPercent),
		},
		Disk: Disk{
			TotalGB:     roundGB(du.Total),
			FreeGB:      roundGB(du.Free),
			PercentUsed: round1(du.UsedPercent),
		},
		GPU: i.GPU.Detect(),
		Platform: Platform{
			System:         systemName(),
			Machine:        machineArch(),
			RuntimeVersion: runtime.Version(),
		},
	}
	return snap, nil
}

// physicalCores returns the physical core count, or nil when the
// platform cannot report one.
func physicalCores(ctx context.Context) *int {
	n, err := cpu.CountsWithContext(ctx, false)
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}

// maxFrequency reads the advertised CPU clock. Apple Silicon and many
// containers report nothing here, which is fine.
func maxFrequency(ctx context.Context) Frequency {
	infos, err := cpu.InfoWithContext(ctx)
	if err != nil || len(infos) == 0 || infos[0].Mhz <= 0 {
		return Frequency{Known: false}
	}
	return Frequency{MHz: infos[0].Mhz, Known: true}
}

// systemName reports the OS the way uname does: Linux, Darwin, Windows.
func systemName() string {
	s := runtime.GOOS
	if s == "" {
		return "unknown"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// machineArch reports the hardware architecture in uname -m terms.
func machineArch() string {
	switch runtime.GOARCH {
	case "amd64":
		return "x86_64"
	case "386":
		return "i386"
	case "arm64":
		if runtime.GOOS == "darwin" {
			return "arm64"
		}
		return "aarch64"
	default:
		return runtime.GOARCH
	}
}

// roundGB converts bytes to binary gigabytes rounded to 2 decimals.
func roundGB(b uint64) float64 {
	return math.Round(float64(b)/(1<<30)*100) / 100
}

// round1 rounds a percentage to 1 decimal.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
