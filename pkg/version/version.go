// Package version exposes the build metadata stamped into runready
// binaries.
package version

import (
	"fmt"
	"runtime"
)

// Build metadata. Release builds override these through
// -ldflags "-X github.com/runready/runready/pkg/version.Version=...";
// unstamped builds report dev/unknown.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// GoVersion reports the toolchain that compiled the running binary.
var GoVersion = runtime.Version()

// BuildInfo is the machine-readable form of the build metadata, shaped
// for the version command's --json output.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// Info snapshots the build metadata together with the runtime
// platform.
func Info() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// String renders the one-line human form shown by the version command.
func String() string {
	i := Info()
	return fmt.Sprintf("runready %s (commit: %s, built: %s, go: %s)",
		i.Version, i.Commit, i.Date, i.GoVersion)
}

// Short returns the bare version number.
func Short() string {
	return Version
}
