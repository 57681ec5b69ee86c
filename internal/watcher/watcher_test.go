package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperation_String(t *testing.T) {
	want := map[Operation]string{
		OpCreate:          "CREATE",
		OpModify:          "MODIFY",
		OpDelete:          "DELETE",
		OpRename:          "RENAME",
		OpGitignoreChange: "GITIGNORE_CHANGE",
		OpConfigChange:    "CONFIG_CHANGE",
		Operation(99):     "UNKNOWN",
		Operation(-1):     "UNKNOWN",
	}
	for op, s := range want {
		assert.Equal(t, s, op.String())
	}
}

func TestOperation_ValuesAreDistinct(t *testing.T) {
	ops := []Operation{OpCreate, OpModify, OpDelete, OpRename, OpGitignoreChange, OpConfigChange}

	seen := make(map[Operation]bool)
	for _, op := range ops {
		assert.False(t, seen[op], "duplicate operation value %d", op)
		seen[op] = true
	}
}

func TestFileEvent_RenameCarriesOldPath(t *testing.T) {
	event := FileEvent{Path: "src/model.py", OldPath: "src/net.py", Operation: OpRename, Timestamp: time.Now()}

	assert.Equal(t, "RENAME", event.Operation.String())
	assert.NotEqual(t, event.Path, event.OldPath, "rename records both sides")
	assert.Equal(t, "src/net.py", event.OldPath)
}

func TestDefaultOptions(t *testing.T) {
	// The debounce window batches editor save bursts; the poll interval
	// only matters on the fallback backend.
	assert.Equal(t, Options{
		DebounceWindow:  200 * time.Millisecond,
		PollInterval:    5 * time.Second,
		EventBufferSize: 1000,
	}, DefaultOptions())
}

func TestOptions_Validate_DefaultsAreValid(t *testing.T) {
	require.NoError(t, DefaultOptions().Validate())
}

func TestOptions_WithDefaults(t *testing.T) {
	t.Run("zero value gets every default", func(t *testing.T) {
		assert.Equal(t, DefaultOptions(), Options{}.WithDefaults())
	})

	t.Run("negative values fall back too", func(t *testing.T) {
		opts := Options{DebounceWindow: -time.Second, PollInterval: -1, EventBufferSize: -5}
		assert.Equal(t, DefaultOptions(), opts.WithDefaults())
	})

	t.Run("fully set options pass through unchanged", func(t *testing.T) {
		opts := Options{
			DebounceWindow:  50 * time.Millisecond,
			PollInterval:    time.Minute,
			EventBufferSize: 64,
			IgnorePatterns:  []string{"*.ckpt", "data/"},
		}
		assert.Equal(t, opts, opts.WithDefaults())
	})

	t.Run("partial fill touches only the zero fields", func(t *testing.T) {
		got := Options{DebounceWindow: 50 * time.Millisecond}.WithDefaults()
		assert.Equal(t, 50*time.Millisecond, got.DebounceWindow)
		assert.Equal(t, defaultPollInterval, got.PollInterval)
		assert.Equal(t, defaultEventBufferSize, got.EventBufferSize)
	})
}
