package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setConfigHome points XDG_CONFIG_HOME at a fresh temp dir and returns
// the runready config directory inside it, created.
func setConfigHome(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)
	dir := filepath.Join(tmp, "runready")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	return dir
}

func seedBackup(t *testing.T, dir, stamp, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml"+BackupSuffix+"."+stamp)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestBackupUserConfig_NoConfig(t *testing.T) {
	setConfigHome(t)

	path, err := BackupUserConfig()
	require.NoError(t, err)
	assert.Empty(t, path, "nothing to back up")
}

func TestBackupUserConfig_CopiesConfigAside(t *testing.T) {
	dir := setConfigHome(t)
	content := "version: 1\nanalyzer:\n  min_memory_gb: 8\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))

	path, err := BackupUserConfig()
	require.NoError(t, err)
	require.NotEmpty(t, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
	assert.True(t, filepath.IsAbs(path))
	assert.Contains(t, filepath.Base(path), BackupSuffix+".")
}

func TestListUserConfigBackups_Empty(t *testing.T) {
	setConfigHome(t)

	backups, err := ListUserConfigBackups()
	require.NoError(t, err)
	assert.Empty(t, backups)
}

func TestListUserConfigBackups_NewestFirst(t *testing.T) {
	dir := setConfigHome(t)
	// Names embed the timestamp, so order is independent of mod times.
	for _, stamp := range []string{"20240101-100000", "20240101-120000", "20240101-110000"} {
		seedBackup(t, dir, stamp, "x")
	}

	backups, err := ListUserConfigBackups()
	require.NoError(t, err)
	require.Len(t, backups, 3)
	assert.Equal(t, "config.yaml.bak.20240101-120000", filepath.Base(backups[0]))
	assert.Equal(t, "config.yaml.bak.20240101-110000", filepath.Base(backups[1]))
	assert.Equal(t, "config.yaml.bak.20240101-100000", filepath.Base(backups[2]))
}

func TestBackupUserConfig_PrunesOldest(t *testing.T) {
	dir := setConfigHome(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("version: 1\n"), 0o644))
	for _, stamp := range []string{"20240101-100000", "20240101-110000", "20240101-120000"} {
		seedBackup(t, dir, stamp, "old")
	}

	// A fourth backup pushes the chain past MaxBackups.
	_, err := BackupUserConfig()
	require.NoError(t, err)

	backups, err := ListUserConfigBackups()
	require.NoError(t, err)
	assert.Len(t, backups, MaxBackups)
	for _, b := range backups {
		assert.NotEqual(t, "config.yaml.bak.20240101-100000", filepath.Base(b), "oldest backup should be pruned")
	}
}

func TestRestoreUserConfig_MissingBackup(t *testing.T) {
	dir := setConfigHome(t)

	err := RestoreUserConfig(filepath.Join(dir, "config.yaml.bak.20240101-100000"))
	assert.Error(t, err)
}

func TestRestoreUserConfig_ReplacesCurrent(t *testing.T) {
	dir := setConfigHome(t)
	want := "version: 1\nanalyzer:\n  min_memory_gb: 8\n"
	backupPath := seedBackup(t, dir, "20240101-100000", want)
	current := "version: 1\nanalyzer:\n  min_memory_gb: 2\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(current), 0o644))

	require.NoError(t, RestoreUserConfig(backupPath))

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, want, string(data))
}
