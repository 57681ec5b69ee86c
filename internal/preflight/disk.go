package preflight

import (
	"fmt"
	"syscall"
)

// MinDiskSpaceBytes is the free-space floor for the state directory
// (100MB). The history database and log files live there.
const MinDiskSpaceBytes = 100 * 1024 * 1024

// CheckDiskSpace verifies free space at the state directory. Run it
// after CheckDataDir so the directory exists.
func (c *Checker) CheckDiskSpace() CheckResult {
	result := CheckResult{Name: "disk_space", Required: true}

	var stat syscall.Statfs_t
	if err := syscall.Statfs(c.dataDir, &stat); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("statfs %s: %v", c.dataDir, err)
		return result
	}

	free := stat.Bavail * uint64(stat.Bsize)
	result.Message = fmt.Sprintf("%s free (minimum: 100 MB)", formatBytes(free))
	result.Status = StatusPass
	if free < MinDiskSpaceBytes {
		result.Status = StatusFail
	}
	return result
}

// formatBytes renders a byte count with its largest fitting unit.
func formatBytes(n uint64) string {
	units := []struct {
		size uint64
		name string
	}{
		{1 << 40, "TB"},
		{1 << 30, "GB"},
		{1 << 20, "MB"},
		{1 << 10, "KB"},
	}
	for _, u := range units {
		if n >= u.size {
			return fmt.Sprintf("%.1f %s", float64(n)/float64(u.size), u.name)
		}
	}
	return fmt.Sprintf("%d bytes", n)
}
