package preflight

import (
	"fmt"

	"github.com/runready/runready/internal/sysinfo"
)

// MinMemoryGB is the minimum available memory the server itself needs
// to run (1 GB). Project verdicts apply their own, higher thresholds.
const MinMemoryGB = 1.0

// CheckMemory checks available memory against the measured host
// snapshot. A nil snapshot means the probe failed, which degrades the
// check to a warning rather than blocking startup.
func (c *Checker) CheckMemory(snap *sysinfo.Snapshot) CheckResult {
	result := CheckResult{Name: "memory", Required: true}

	if snap == nil {
		result.Status = StatusWarn
		result.Message = "host probe unavailable"
		return result
	}

	result.Message = fmt.Sprintf("%.1f GB available (minimum: 1 GB)", snap.Memory.AvailableGB)
	result.Status = StatusPass
	if snap.Memory.AvailableGB < MinMemoryGB {
		result.Status = StatusFail
	}
	return result
}
