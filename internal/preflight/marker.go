package preflight

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/runready/runready/pkg/version"
)

// MarkerFile marks that preflight passed. It records the version that
// passed so an upgrade forces a re-check.
const MarkerFile = ".preflight-passed"

// markerStamp is the parsed content of a marker file.
type markerStamp struct {
	version  string
	passedAt time.Time
}

// readMarker parses the marker in dataDir. ok is false when the file
// is missing or not in "version timestamp" form.
func readMarker(dataDir string) (markerStamp, bool) {
	content, err := os.ReadFile(filepath.Join(dataDir, MarkerFile))
	if err != nil {
		return markerStamp{}, false
	}

	fields := strings.Fields(string(content))
	if len(fields) < 2 {
		return markerStamp{}, false
	}
	passedAt, err := time.Parse(time.RFC3339, fields[1])
	if err != nil {
		return markerStamp{}, false
	}
	return markerStamp{version: fields[0], passedAt: passedAt}, true
}

// NeedsCheck reports whether preflight should run: true when no valid
// marker exists or the marker was written by a different version.
func NeedsCheck(dataDir string) bool {
	stamp, ok := readMarker(dataDir)
	return !ok || stamp.version != version.Version
}

// MarkPassed writes the marker recording this version and the current
// time, creating the data directory if needed.
func MarkPassed(dataDir string) error {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("create marker directory: %w", err)
	}

	content := version.Version + " " + time.Now().Format(time.RFC3339)
	return os.WriteFile(filepath.Join(dataDir, MarkerFile), []byte(content), 0644)
}

// ClearMarker removes the marker, forcing a re-check on the next run.
// Removing an absent marker is not an error.
func ClearMarker(dataDir string) error {
	err := os.Remove(filepath.Join(dataDir, MarkerFile))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove marker file: %w", err)
	}
	return nil
}

// MarkerAge returns how long ago preflight passed, or zero when no
// valid marker exists.
func MarkerAge(dataDir string) time.Duration {
	stamp, ok := readMarker(dataDir)
	if !ok {
		return 0
	}
	return time.Since(stamp.passedAt)
}
