// Package gpu detects GPU compute availability on the host.
//
// Detection is best-effort by contract: a missing driver, a missing
// library, or an unsupported platform all degrade to "no GPU" rather
// than surfacing an error. Callers receive a Detector selected once at
// startup; hosts without a usable runtime get the no-op implementation.
//
// Set RUNREADY_GPU=off to force the no-op detector, e.g. in CI.
package gpu

import (
	"os"
	"strings"
)

// NoGPUInfo is the description reported when no GPU is found.
const NoGPUInfo = "No GPU detected"

// Info describes GPU availability on the host.
type Info struct {
	Available   bool   `json:"available"`
	Description string `json:"info"`
}

// Detector probes the host for a usable GPU compute runtime.
type Detector interface {
	// Detect returns the current GPU state. It never fails: probe
	// errors of any kind report as an unavailable GPU.
	Detect() Info
}

// New selects the detector for this host.
func New() Detector {
	if strings.EqualFold(os.Getenv("RUNREADY_GPU"), "off") {
		return noopDetector{}
	}
	return platformDetector()
}

// noopDetector reports no GPU unconditionally. Used on platforms
// without an NVML runtime and when detection is disabled.
type noopDetector struct{}

func (noopDetector) Detect() Info {
	return Info{Available: false, Description: NoGPUInfo}
}
