package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeEvents_CoalescingRules(t *testing.T) {
	tests := []struct {
		name     string
		first    Operation
		next     Operation
		wantOp   Operation
		wantKeep bool
	}{
		{"create then modify stays create", OpCreate, OpModify, OpCreate, true},
		{"create then delete cancels out", OpCreate, OpDelete, 0, false},
		{"modify then modify keeps latest", OpModify, OpModify, OpModify, true},
		{"modify then delete reports delete", OpModify, OpDelete, OpDelete, true},
		{"delete then create becomes modify", OpDelete, OpCreate, OpModify, true},
		{"delete then delete stays delete", OpDelete, OpDelete, OpDelete, true},
		{"config change keeps latest", OpConfigChange, OpConfigChange, OpConfigChange, true},
		{"gitignore change keeps latest", OpGitignoreChange, OpGitignoreChange, OpGitignoreChange, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cur := FileEvent{Path: "app.py", Operation: tt.first, Timestamp: time.Now()}
			next := FileEvent{Path: "app.py", Operation: tt.next, Timestamp: time.Now()}

			merged, keep := mergeEvents(tt.first, cur, next)

			assert.Equal(t, tt.wantKeep, keep)
			if keep {
				assert.Equal(t, tt.wantOp, merged.Operation)
			}
		})
	}
}

func TestMergeEvents_FirstOpPersistsAcrossMerges(t *testing.T) {
	create := FileEvent{Path: "new.py", Operation: OpCreate, Timestamp: time.Now()}
	modify := FileEvent{Path: "new.py", Operation: OpModify, Timestamp: time.Now()}
	cur, keep := mergeEvents(OpCreate, create, modify)
	require.True(t, keep)
	require.Equal(t, OpCreate, cur.Operation)

	// The merge keys on the FIRST op, so create-modify-delete still
	// nets out to nothing
	_, keep = mergeEvents(OpCreate, cur, FileEvent{Path: "new.py", Operation: OpDelete})
	assert.False(t, keep)
}

// nextBatch waits for one coalesced batch, failing the test at the
// deadline.
func nextBatch(t *testing.T, d *Debouncer, within time.Duration) []FileEvent {
	t.Helper()

	select {
	case batch := <-d.Output():
		return batch
	case <-time.After(within):
		t.Fatal("no batch before deadline")
	}
	return nil
}

func TestDebouncer_EmitsAfterQuietWindow(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "train.py", Operation: OpCreate, Timestamp: time.Now()})

	batch := nextBatch(t, d, 200*time.Millisecond)
	require.Len(t, batch, 1)
	assert.Equal(t, "train.py", batch[0].Path)
	assert.Equal(t, OpCreate, batch[0].Operation)
}

func TestDebouncer_RapidSaves_CollapseToOneEvent(t *testing.T) {
	d := NewDebouncer(100 * time.Millisecond)
	defer d.Stop()

	// An editor save storm on one file
	for i := 0; i < 5; i++ {
		d.Add(FileEvent{Path: "requirements.txt", Operation: OpModify, Timestamp: time.Now()})
		time.Sleep(10 * time.Millisecond)
	}

	batch := nextBatch(t, d, 500*time.Millisecond)
	require.Len(t, batch, 1)
	assert.Equal(t, "requirements.txt", batch[0].Path)
	assert.Equal(t, OpModify, batch[0].Operation)
}

func TestDebouncer_CreateDeleteCancels(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "tmp.py", Operation: OpCreate, Timestamp: time.Now()})
	d.Add(FileEvent{Path: "tmp.py", Operation: OpDelete, Timestamp: time.Now()})

	// The file never outlived the window, so no batch may appear
	select {
	case batch := <-d.Output():
		t.Fatalf("unexpected batch: %v", batch)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestDebouncer_BatchOrderedByTimestampThenPath(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	// Last-added event carries the oldest timestamp
	base := time.Now()
	d.Add(FileEvent{Path: "b.py", Operation: OpModify, Timestamp: base.Add(10 * time.Millisecond)})
	d.Add(FileEvent{Path: "a.py", Operation: OpCreate, Timestamp: base.Add(10 * time.Millisecond)})
	d.Add(FileEvent{Path: "z.py", Operation: OpDelete, Timestamp: base})

	batch := nextBatch(t, d, 200*time.Millisecond)
	require.Len(t, batch, 3)
	assert.Equal(t, "z.py", batch[0].Path)
	assert.Equal(t, "a.py", batch[1].Path)
	assert.Equal(t, "b.py", batch[2].Path)
}

func TestDebouncer_KeepsPathsIndependent(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	now := time.Now()
	d.Add(FileEvent{Path: "a.py", Operation: OpCreate, Timestamp: now})
	d.Add(FileEvent{Path: "b.py", Operation: OpModify, Timestamp: now})
	d.Add(FileEvent{Path: "c.py", Operation: OpDelete, Timestamp: now})

	batch := nextBatch(t, d, 200*time.Millisecond)
	require.Len(t, batch, 3)

	ops := map[string]Operation{}
	for _, e := range batch {
		ops[e.Path] = e.Operation
	}
	assert.Equal(t, OpCreate, ops["a.py"])
	assert.Equal(t, OpModify, ops["b.py"])
	assert.Equal(t, OpDelete, ops["c.py"])
}

func TestDebouncer_AddAfterStop_Ignored(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)
	d.Stop()

	d.Add(FileEvent{Path: "late.py", Operation: OpCreate, Timestamp: time.Now()})

	// Output is closed with nothing buffered
	batch, ok := <-d.Output()
	assert.False(t, ok)
	assert.Empty(t, batch)
}

func TestDebouncer_StopIsIdempotent(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	d.Stop()
	d.Stop() // must not panic

	_, ok := <-d.Output()
	assert.False(t, ok, "output should close on stop")
}
