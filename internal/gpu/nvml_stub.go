//go:build !linux

package gpu

// NVML probing is only wired up on Linux. Other platforms report no GPU.
func platformDetector() Detector {
	return noopDetector{}
}
