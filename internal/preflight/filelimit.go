package preflight

import (
	"fmt"
	"syscall"
)

// MinFileDescriptors is the lowest workable NOFILE soft limit. Source
// scans hold many files open at once.
const MinFileDescriptors = 1024

// CheckFileDescriptors verifies the process file descriptor limit.
func (c *Checker) CheckFileDescriptors() CheckResult {
	result := CheckResult{Name: "file_descriptors", Required: true}

	var limit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &limit); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("could not read RLIMIT_NOFILE: %v", err)
		return result
	}

	result.Message = fmt.Sprintf("%d (minimum: %d)", limit.Cur, MinFileDescriptors)
	result.Status = StatusPass
	if limit.Cur < MinFileDescriptors {
		result.Status = StatusFail
		result.Details = "Raise it with 'ulimit -n 10240' before large scans"
	}
	return result
}
