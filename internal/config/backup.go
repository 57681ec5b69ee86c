package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// MaxBackups bounds how many timestamped config backups are kept.
const MaxBackups = 3

// BackupSuffix marks backup files next to the live config.
const BackupSuffix = ".bak"

// backupTimeFormat embeds the creation time in the backup name. The
// format sorts lexicographically in chronological order, which is what
// ListUserConfigBackups relies on.
const backupTimeFormat = "20060102-150405"

// BackupUserConfig copies the user config aside before a mutation.
// Returns the path of the new backup, or "" when there is no config to
// protect.
func BackupUserConfig() (string, error) {
	if !UserConfigExists() {
		return "", nil
	}

	src := GetUserConfigPath()
	data, err := os.ReadFile(src)
	if err != nil {
		return "", fmt.Errorf("read config for backup: %w", err)
	}

	dst := src + BackupSuffix + "." + time.Now().Format(backupTimeFormat)
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}

	pruneOldBackups()
	return dst, nil
}

// ListUserConfigBackups returns the backup paths for the user config,
// newest first.
func ListUserConfigBackups() ([]string, error) {
	dir := filepath.Dir(GetUserConfigPath())
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list config directory: %w", err)
	}

	prefix := filepath.Base(GetUserConfigPath()) + BackupSuffix + "."
	var backups []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), prefix) {
			backups = append(backups, filepath.Join(dir, e.Name()))
		}
	}

	// Names embed the timestamp, so reverse lexicographic order is
	// newest first without touching mod times.
	sort.Sort(sort.Reverse(sort.StringSlice(backups)))
	return backups, nil
}

// pruneOldBackups drops everything past the MaxBackups newest backups.
// Prune failures are ignored.
func pruneOldBackups() {
	backups, err := ListUserConfigBackups()
	if err != nil {
		return
	}
	for i := MaxBackups; i < len(backups); i++ {
		_ = os.Remove(backups[i])
	}
}

// RestoreUserConfig replaces the user config with the contents of
// backupPath. The config being replaced is itself backed up first.
func RestoreUserConfig(backupPath string) error {
	data, err := os.ReadFile(backupPath)
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}

	if UserConfigExists() {
		if _, err := BackupUserConfig(); err != nil {
			return fmt.Errorf("backup current config: %w", err)
		}
	}

	if err := os.MkdirAll(GetUserConfigDir(), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(GetUserConfigPath(), data, 0o644); err != nil {
		return fmt.Errorf("write restored config: %w", err)
	}
	return nil
}
