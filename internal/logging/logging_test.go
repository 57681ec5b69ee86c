package logging

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLogDir(t *testing.T) {
	dir := DefaultLogDir()
	require.NotEmpty(t, dir)
	assert.Contains(t, dir, ".runready")
	assert.Contains(t, dir, "logs")
}

func TestDefaultLogPath(t *testing.T) {
	path := DefaultLogPath()
	require.NotEmpty(t, path)
	assert.Equal(t, "server.log", filepath.Base(path))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, 10, cfg.MaxSizeMB)
	assert.Equal(t, 5, cfg.MaxFiles)
	assert.True(t, cfg.WriteToStderr)
}

func TestDebugConfig(t *testing.T) {
	cfg := DebugConfig()

	assert.Equal(t, "debug", cfg.Level)
	assert.True(t, cfg.WriteToStderr)
}

func TestSetup_WritesJSONToFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "test.log")

	logger, cleanup, err := Setup(Config{
		Level:         "debug",
		FilePath:      logPath,
		MaxSizeMB:     1,
		MaxFiles:      3,
		WriteToStderr: false,
	})
	require.NoError(t, err)
	defer cleanup()
	require.NotNil(t, logger)

	logger.Info("resource snapshot complete", "duration_ms", 12)

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"msg":"resource snapshot complete"`)
	assert.Contains(t, string(content), `"duration_ms":12`)
}

func TestSetup_FileOnlyForServing(t *testing.T) {
	// The config used while serving MCP must not touch stderr.
	cfg := fileOnlyConfig("debug")
	assert.False(t, cfg.WriteToStderr)
	assert.Equal(t, "debug", cfg.Level)

	logPath := filepath.Join(t.TempDir(), "mcp-test.log")
	cfg.FilePath = logPath

	logger, cleanup, err := Setup(cfg)
	require.NoError(t, err)
	defer cleanup()

	logger.Info("serving")
	_, err = os.Stat(logPath)
	assert.NoError(t, err, "log file should be created")
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"debug", "DEBUG"},
		{"DEBUG", "DEBUG"},
		{"info", "INFO"},
		{"warn", "WARN"},
		{"warning", "WARN"},
		{"error", "ERROR"},
		{"ERROR", "ERROR"},
		{"unknown", "INFO"},
		{"", "INFO"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.expected, LevelFromString(tc.input).String(), "input %q", tc.input)
	}
}

func TestFindLogFile_NotFound(t *testing.T) {
	_, err := FindLogFile("/nonexistent/path/to/log.log")
	assert.Error(t, err)
}

func TestFindLogFile_ExplicitPath(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "test.log")
	require.NoError(t, os.WriteFile(logPath, []byte("test"), 0o644))

	found, err := FindLogFile(logPath)
	require.NoError(t, err)
	assert.Equal(t, logPath, found)
}

func TestRotatingWriter_ImmediateSyncVisible(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "test.log")

	w, err := NewRotatingWriter(logPath, 1, 3)
	require.NoError(t, err)
	defer w.Close()

	record := []byte(`{"time":"2026-01-01T00:00:00Z","level":"INFO","msg":"test"}` + "\n")
	n, err := w.Write(record)
	require.NoError(t, err)
	require.Equal(t, len(record), n)

	// Readable without closing the writer first.
	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Equal(t, record, content)
}

func TestRotatingWriter_ManualSync(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "test.log")

	w, err := NewRotatingWriter(logPath, 1, 3)
	require.NoError(t, err)
	defer w.Close()

	w.SetImmediateSync(false)

	record := []byte(`{"time":"2026-01-01T00:00:00Z","level":"INFO","msg":"test"}` + "\n")
	_, err = w.Write(record)
	require.NoError(t, err)
	require.NoError(t, w.Sync())

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Equal(t, record, content)
}

func TestRotatingWriter_RotatesWhenFull(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "rotate.log")

	// 1MB limit; two ~600KB writes force a rotation on the second.
	w, err := NewRotatingWriter(logPath, 1, 3)
	require.NoError(t, err)
	defer w.Close()

	chunk := bytes.Repeat([]byte("x"), 600*1024)
	_, err = w.Write(chunk)
	require.NoError(t, err)
	_, err = w.Write(chunk)
	require.NoError(t, err)

	_, err = os.Stat(logPath + ".1")
	assert.NoError(t, err, "rotated copy should exist")

	info, err := os.Stat(logPath)
	require.NoError(t, err)
	assert.Equal(t, int64(len(chunk)), info.Size(), "current file should hold only the second chunk")
}

func TestRotatingWriter_RetentionCapsChain(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "chain.log")

	w, err := NewRotatingWriter(logPath, 1, 3)
	require.NoError(t, err)
	defer w.Close()

	// Five oversized writes produce four rotations against a keep of 3.
	chunk := bytes.Repeat([]byte("x"), 600*1024)
	for i := 0; i < 5; i++ {
		_, err = w.Write(chunk)
		require.NoError(t, err)
	}

	for _, suffix := range []string{"", ".1", ".2", ".3"} {
		_, err := os.Stat(logPath + suffix)
		assert.NoError(t, err, "expected %s%s to exist", logPath, suffix)
	}
	_, err = os.Stat(logPath + ".4")
	assert.True(t, os.IsNotExist(err), "chain should stop at .3")
}

func writeLogFixture(t *testing.T, lines []string) string {
	t.Helper()
	logPath := filepath.Join(t.TempDir(), "viewer.log")
	require.NoError(t, os.WriteFile(logPath, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return logPath
}

func TestViewer_Tail(t *testing.T) {
	logPath := writeLogFixture(t, []string{
		`{"time":"2026-01-01T10:00:00Z","level":"DEBUG","msg":"probe started"}`,
		`{"time":"2026-01-01T10:00:01Z","level":"INFO","msg":"snapshot complete","duration_ms":12}`,
		`{"time":"2026-01-01T10:00:02Z","level":"ERROR","msg":"scan failed","error":"permission denied"}`,
		`not json at all`,
	})

	v := NewViewer(ViewerConfig{NoColor: true}, os.Stdout)
	entries, err := v.Tail(logPath, 10)
	require.NoError(t, err)

	require.Len(t, entries, 4)
	assert.True(t, entries[0].IsValid)
	assert.Equal(t, "probe started", entries[0].Msg)
	assert.False(t, entries[3].IsValid, "non-JSON line should be marked invalid")
}

func TestViewer_Tail_ReturnsTrailingWindow(t *testing.T) {
	var lines []string
	for i := 0; i < 10; i++ {
		lines = append(lines, fmt.Sprintf(`{"time":"2026-01-01T10:00:%02dZ","level":"INFO","msg":"scan %d"}`, i, i))
	}
	logPath := writeLogFixture(t, lines)

	v := NewViewer(ViewerConfig{NoColor: true}, os.Stdout)
	entries, err := v.Tail(logPath, 3)
	require.NoError(t, err)

	require.Len(t, entries, 3)
	assert.Equal(t, "scan 7", entries[0].Msg)
	assert.Equal(t, "scan 8", entries[1].Msg)
	assert.Equal(t, "scan 9", entries[2].Msg)
}

func TestViewer_Tail_LevelFilter(t *testing.T) {
	logPath := writeLogFixture(t, []string{
		`{"time":"2026-01-01T10:00:00Z","level":"DEBUG","msg":"noise"}`,
		`{"time":"2026-01-01T10:00:01Z","level":"WARN","msg":"low memory"}`,
		`{"time":"2026-01-01T10:00:02Z","level":"ERROR","msg":"scan failed"}`,
	})

	v := NewViewer(ViewerConfig{Level: "warn", NoColor: true}, os.Stdout)
	entries, err := v.Tail(logPath, 10)
	require.NoError(t, err)

	require.Len(t, entries, 2)
	assert.Equal(t, "low memory", entries[0].Msg)
}

func TestViewer_Tail_PatternFilter(t *testing.T) {
	logPath := writeLogFixture(t, []string{
		`{"time":"2026-01-01T10:00:00Z","level":"INFO","msg":"dependency scan"}`,
		`{"time":"2026-01-01T10:00:01Z","level":"INFO","msg":"gpu probe"}`,
	})

	v := NewViewer(ViewerConfig{Pattern: regexp.MustCompile(`gpu`), NoColor: true}, os.Stdout)
	entries, err := v.Tail(logPath, 10)
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, "gpu probe", entries[0].Msg)
}

func TestViewer_FormatEntry(t *testing.T) {
	v := NewViewer(ViewerConfig{NoColor: true}, os.Stdout)

	entry := LogEntry{
		Time:    time.Date(2026, 1, 1, 10, 30, 45, 0, time.UTC),
		Level:   "INFO",
		Msg:     "report generated",
		Attrs:   map[string]interface{}{"ready": true, "gpu_count": 2},
		IsValid: true,
	}

	formatted := v.FormatEntry(entry)
	assert.Contains(t, formatted, "10:30:45")
	assert.Contains(t, formatted, "INFO")
	assert.Contains(t, formatted, "report generated")
	assert.Contains(t, formatted, "gpu_count=2 ready=true", "attributes should be key-sorted")
}

func TestViewer_FormatEntry_InvalidLineReturnsRaw(t *testing.T) {
	v := NewViewer(ViewerConfig{NoColor: true}, os.Stdout)

	entry := LogEntry{Raw: "plain text line", IsValid: false}
	assert.Equal(t, "plain text line", v.FormatEntry(entry))
}
