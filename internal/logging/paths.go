package logging

import (
	"fmt"
	"os"
	"path/filepath"
)

const logFileName = "server.log"

// DefaultLogDir returns ~/.runready/logs, falling back to the system
// temp directory when the home directory cannot be resolved.
func DefaultLogDir() string {
	base, err := os.UserHomeDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, ".runready", "logs")
}

// DefaultLogPath returns the server log file inside DefaultLogDir.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), logFileName)
}

// FindLogFile resolves the log file the viewer should read. An explicit
// path wins when given; otherwise the global server log is used. Either
// way the file must already exist.
func FindLogFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("log file not found: %s", explicit)
		}
		return explicit, nil
	}

	path := DefaultLogPath()
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("no log file at %s; run the server once (or with --debug) to create it", path)
	}
	return path, nil
}
