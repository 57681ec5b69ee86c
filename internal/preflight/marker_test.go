package preflight

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runready/runready/pkg/version"
)

func writeMarker(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, MarkerFile), []byte(content), 0o644))
}

func TestNeedsCheck(t *testing.T) {
	stamp := time.Now().Format(time.RFC3339)

	tests := map[string]struct {
		content string // "" seeds no marker at all
		want    bool
	}{
		"no marker":                {content: "", want: true},
		"marker from this binary":  {content: version.Version + " " + stamp, want: false},
		"marker from older binary": {content: "0.0.1-old " + stamp, want: true},
		"timestamp-only legacy":    {content: stamp, want: true},
		"unparseable timestamp":    {content: version.Version + " yesterday", want: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			if tc.content != "" {
				writeMarker(t, dir, tc.content)
			}
			assert.Equal(t, tc.want, NeedsCheck(dir))
		})
	}
}

func TestMarkPassed_RecordsVersionAndTime(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, MarkPassed(dir))

	content, err := os.ReadFile(filepath.Join(dir, MarkerFile))
	require.NoError(t, err)

	fields := strings.Fields(string(content))
	require.Len(t, fields, 2, "marker should hold version and timestamp")
	assert.Equal(t, version.Version, fields[0])
	passedAt, err := time.Parse(time.RFC3339, fields[1])
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), passedAt, time.Minute)
}

func TestMarkPassed_CreatesMissingDataDir(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "nested", ".runready")

	require.NoError(t, MarkPassed(dataDir))
	assert.FileExists(t, filepath.Join(dataDir, MarkerFile))
}

func TestClearMarker(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, MarkPassed(dir))

	require.NoError(t, ClearMarker(dir))
	assert.NoFileExists(t, filepath.Join(dir, MarkerFile))

	// Clearing an already absent marker is fine.
	assert.NoError(t, ClearMarker(dir))
}

func TestMarkerAge(t *testing.T) {
	t.Run("fresh marker", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, MarkPassed(dir))
		assert.Less(t, MarkerAge(dir), time.Second)
	})

	t.Run("old marker reports elapsed time", func(t *testing.T) {
		dir := t.TempDir()
		writeMarker(t, dir, version.Version+" "+time.Now().Add(-2*time.Hour).Format(time.RFC3339))
		assert.Greater(t, MarkerAge(dir), time.Hour)
	})

	t.Run("missing or malformed markers have no age", func(t *testing.T) {
		assert.Zero(t, MarkerAge(t.TempDir()))

		dir := t.TempDir()
		writeMarker(t, dir, "not a marker")
		assert.Zero(t, MarkerAge(dir))
	})
}
