package watcher

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Debouncer coalesces rapid file events so a burst of saves triggers
// one rescan instead of many. Within a window, events for one path
// merge by what the sequence nets out to:
//
//	create then modify  -> create, the file is still brand new
//	create then delete  -> dropped, nothing outlived the window
//	modify then delete  -> delete
//	delete then create  -> modify, the file was replaced in place
//
// The window restarts on every Add, so a batch flushes only after the
// tree has been quiet for one full window.
type Debouncer struct {
	window time.Duration

	out  chan []FileEvent
	quit chan struct{}

	mu      sync.Mutex
	pending map[string]*mergeState
	timer   *time.Timer
	stopped bool
}

// mergeState tracks one path's coalescing. The first operation seen
// drives the merge rules even as the current event is rewritten, so
// create-modify-delete still nets out to nothing.
type mergeState struct {
	first Operation
	event FileEvent
}

// NewDebouncer creates a debouncer with the given quiet window.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{
		window:  window,
		pending: map[string]*mergeState{},
		out:     make(chan []FileEvent, 10),
		quit:    make(chan struct{}),
	}
}

// Add feeds one event into the debouncer, merging it with any pending
// event for the same path.
func (d *Debouncer) Add(event FileEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	state, ok := d.pending[event.Path]
	if !ok {
		d.pending[event.Path] = &mergeState{first: event.Operation, event: event}
		d.armTimer()
		return
	}

	if merged, keep := mergeEvents(state.first, state.event, event); keep {
		state.event = merged
	} else {
		delete(d.pending, event.Path)
	}
	d.armTimer()
}

// mergeEvents applies the coalescing rules. keep=false means the pair
// cancelled out and the path drops from the batch entirely.
func mergeEvents(first Operation, cur, next FileEvent) (merged FileEvent, keep bool) {
	switch first {
	case OpCreate:
		switch next.Operation {
		case OpModify:
			return cur, true // still a brand-new file
		case OpDelete:
			return FileEvent{}, false
		}

	case OpDelete:
		if next.Operation == OpCreate {
			next.Operation = OpModify // deleted and recreated = replaced
			return next, true
		}
	}

	// Everything else keeps the newest event: repeated modifies collapse
	// to the last one, modify-then-delete reports the delete, and the
	// rescan trigger ops (gitignore, config) always win as latest.
	return next, true
}

// armTimer restarts the quiet window. Caller holds the lock.
func (d *Debouncer) armTimer() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.emitBatch)
}

// emitBatch flushes the pending events, oldest first. Ordering by
// timestamp then path keeps the watch feed stable when a batch holds
// many paths stamped in the same instant.
func (d *Debouncer) emitBatch() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped || len(d.pending) == 0 {
		return
	}

	batch := make([]FileEvent, 0, len(d.pending))
	for _, state := range d.pending {
		batch = append(batch, state.event)
	}
	d.pending = map[string]*mergeState{}

	sort.Slice(batch, func(i, j int) bool {
		if !batch[i].Timestamp.Equal(batch[j].Timestamp) {
			return batch[i].Timestamp.Before(batch[j].Timestamp)
		}
		return batch[i].Path < batch[j].Path
	})

	select {
	case d.out <- batch:
	default:
		slog.Warn("dropping debounced batch, output full",
			slog.Int("batch", len(batch)),
		)
	}
}

// Output streams the coalesced batches.
func (d *Debouncer) Output() <-chan []FileEvent {
	return d.out
}

// Stop discards pending events and closes the output. Safe to call
// more than once.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.stopped = true

	if d.timer != nil {
		d.timer.Stop()
	}
	close(d.quit)
	close(d.out)
}
