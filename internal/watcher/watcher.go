package watcher

import (
	"context"
	"time"
)

// Operation classifies what happened to a path.
type Operation int

const (
	OpCreate Operation = iota
	OpModify
	OpDelete
	OpRename
	// OpGitignoreChange fires when a .gitignore file changes. The set of
	// analyzed files may have shifted, so consumers rescan with fresh
	// ignore rules.
	OpGitignoreChange
	// OpConfigChange fires when the .runready.yaml project config
	// changes. Consumers reload exclude patterns and thresholds.
	OpConfigChange
)

var opNames = [...]string{
	OpCreate:          "CREATE",
	OpModify:          "MODIFY",
	OpDelete:          "DELETE",
	OpRename:          "RENAME",
	OpGitignoreChange: "GITIGNORE_CHANGE",
	OpConfigChange:    "CONFIG_CHANGE",
}

func (op Operation) String() string {
	if op >= 0 && int(op) < len(opNames) {
		return opNames[op]
	}
	return "UNKNOWN"
}

// FileEvent is one observed change in the watched project tree.
type FileEvent struct {
	Path      string // relative to the watch root
	OldPath   string // previous path, set only for renames
	Operation Operation
	IsDir     bool
	Timestamp time.Time // when the change was detected
}

// Watcher is the contract for a single-event backend. HybridWatcher
// wraps a backend and exposes debounced batches instead; see
// HybridWatcher.Events.
type Watcher interface {
	// Start watches path recursively until Stop or context cancellation.
	Start(ctx context.Context, path string) error

	// Stop releases resources. Safe to call more than once.
	Stop() error

	// Events streams file events. Closed when the watcher stops.
	Events() <-chan FileEvent

	// Errors streams non-fatal errors. Closed when the watcher stops.
	Errors() <-chan error
}

const (
	defaultDebounceWindow  = 200 * time.Millisecond
	defaultPollInterval    = 5 * time.Second
	defaultEventBufferSize = 1000
)

// Options tunes watcher behavior. Zero fields mean "use the default";
// call WithDefaults before handing Options to a backend.
type Options struct {
	// DebounceWindow is the quiet period before a coalesced batch is
	// emitted.
	DebounceWindow time.Duration

	// PollInterval is the rescan interval when the polling fallback is
	// active.
	PollInterval time.Duration

	// EventBufferSize caps the batch channel. When the consumer falls
	// behind, whole batches are dropped and counted.
	EventBufferSize int

	// IgnorePatterns are extra gitignore-syntax patterns applied on top
	// of the project's own .gitignore files.
	IgnorePatterns []string
}

// DefaultOptions returns the standard tuning.
func DefaultOptions() Options {
	return Options{
		DebounceWindow:  defaultDebounceWindow,
		PollInterval:    defaultPollInterval,
		EventBufferSize: defaultEventBufferSize,
	}
}

// Validate checks the options. Every field currently defaults safely,
// so it never fails.
func (o Options) Validate() error {
	return nil
}

// WithDefaults fills zero or negative fields from DefaultOptions.
func (o Options) WithDefaults() Options {
	if o.DebounceWindow <= 0 {
		o.DebounceWindow = defaultDebounceWindow
	}
	if o.PollInterval <= 0 {
		o.PollInterval = defaultPollInterval
	}
	if o.EventBufferSize <= 0 {
		o.EventBufferSize = defaultEventBufferSize
	}
	return o
}
