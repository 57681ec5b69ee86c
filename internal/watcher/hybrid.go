package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/runready/runready/internal/gitignore"
)

// stateDirs are never watched regardless of ignore rules. The runready
// data directory churns on every run (history db, preflight marker) and
// must not re-trigger the rescan it belongs to.
var stateDirs = []string{".git", ".runready"}

// HybridWatcher watches a project tree with fsnotify, falling back to
// polling when fsnotify cannot be initialized. Raw events pass through
// the debouncer, so consumers receive coalesced batches.
type HybridWatcher struct {
	opts Options
	root string

	// Exactly one backend is non-nil, decided at construction.
	fsw  *fsnotify.Watcher
	poll *PollingWatcher

	debounce *Debouncer
	out      chan []FileEvent
	errc     chan error
	quit     chan struct{}

	mu      sync.RWMutex
	ignore  *gitignore.Matcher
	stopped bool

	dropped atomic.Uint64
}

// NewHybridWatcher creates a watcher with the given options. fsnotify
// is preferred; a failed init (inotify limit, unsupported filesystem)
// selects the polling fallback instead of erroring.
func NewHybridWatcher(opts Options) (*HybridWatcher, error) {
	opts = opts.WithDefaults()

	h := &HybridWatcher{
		opts:     opts,
		debounce: NewDebouncer(opts.DebounceWindow),
		ignore:   newIgnoreMatcher(opts.IgnorePatterns),
		out:      make(chan []FileEvent, opts.EventBufferSize),
		errc:     make(chan error, 10),
		quit:     make(chan struct{}),
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		h.poll = NewPollingWatcher(opts.PollInterval)
		return h, nil
	}
	h.fsw = fsw
	return h, nil
}

// newIgnoreMatcher builds the matcher every rescan starts from: the
// caller's extra patterns plus the runready state directory.
func newIgnoreMatcher(extra []string) *gitignore.Matcher {
	m := gitignore.New()
	for _, pattern := range extra {
		m.AddPattern(pattern)
	}
	m.AddPattern(".runready/")
	m.AddPattern(".runready/**")
	return m
}

// Start begins watching path and blocks servicing the backend until ctx
// ends or Stop is called.
func (h *HybridWatcher) Start(ctx context.Context, path string) error {
	root, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve watch path: %w", err)
	}
	h.root = root

	h.loadGitignore()

	go h.pumpDebounced(ctx)

	if h.fsw != nil {
		return h.runFsnotify(ctx)
	}
	return h.runPolling(ctx)
}

// runFsnotify registers the tree and services fsnotify until stopped.
func (h *HybridWatcher) runFsnotify(ctx context.Context) error {
	if err := h.watchTree(h.root); err != nil {
		return fmt.Errorf("watch project tree: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			_ = h.Stop()
			return ctx.Err()
		case <-h.quit:
			return nil
		case ev, ok := <-h.fsw.Events:
			if !ok {
				return nil
			}
			h.onFsEvent(ev)
		case err, ok := <-h.fsw.Errors:
			if !ok {
				return nil
			}
			h.deliverErr(err)
		}
	}
}

// runPolling starts the fallback backend, relaying its events through
// the same filter and debounce path the fsnotify branch uses.
func (h *HybridWatcher) runPolling(ctx context.Context) error {
	go h.relayPolling(ctx)
	return h.poll.Start(ctx, h.root)
}

func (h *HybridWatcher) relayPolling(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.quit:
			return
		case ev, ok := <-h.poll.Events():
			if !ok {
				return
			}
			h.accept(ev)
		case err, ok := <-h.poll.Errors():
			if !ok {
				return
			}
			h.deliverErr(err)
		}
	}
}

// accept runs one already-shaped event through the ignore filter and
// the special-file mapping before queueing it for debounce.
func (h *HybridWatcher) accept(ev FileEvent) {
	if h.shouldIgnore(ev.Path, ev.IsDir) {
		return
	}
	if special, ok := h.specialEvent(ev.Path); ok {
		ev = special
	}
	h.debounce.Add(ev)
}

// specialEvent maps changes to the ignore rules or the project config
// onto their dedicated operations. A .gitignore change also reloads the
// watcher's own matcher immediately, since the stale rules would filter
// the very events the consumer needs to react to.
func (h *HybridWatcher) specialEvent(relPath string) (FileEvent, bool) {
	switch filepath.Base(relPath) {
	case ".gitignore":
		h.loadGitignore()
		return FileEvent{
			Path:      relPath,
			Operation: OpGitignoreChange,
			Timestamp: time.Now(),
		}, true
	case ".runready.yaml", ".runready.yml":
		return FileEvent{
			Path:      relPath,
			Operation: OpConfigChange,
			Timestamp: time.Now(),
		}, true
	}
	return FileEvent{}, false
}

// onFsEvent shapes one raw fsnotify event and feeds it to accept.
func (h *HybridWatcher) onFsEvent(ev fsnotify.Event) {
	rel, err := filepath.Rel(h.root, ev.Name)
	if err != nil {
		rel = ev.Name
	}

	// Stat fails for deletes, leaving isDir false, which is what the
	// ignore check needs there anyway
	var isDir bool
	if info, err := os.Stat(ev.Name); err == nil {
		isDir = info.IsDir()
	}

	op, mapped := mapFsnotifyOp(ev.Op)
	if !mapped {
		return
	}

	// New directories must join the watch before files land in them
	if op == OpCreate && isDir && !h.shouldIgnore(rel, true) {
		_ = h.fsw.Add(ev.Name)
	}

	h.accept(FileEvent{Path: rel, Operation: op, IsDir: isDir, Timestamp: time.Now()})
}

// fsnotifyOps orders the bitmask checks; create wins when an event
// carries several bits.
var fsnotifyOps = []struct {
	bit fsnotify.Op
	op  Operation
}{
	{fsnotify.Create, OpCreate},
	{fsnotify.Write, OpModify},
	{fsnotify.Remove, OpDelete},
	{fsnotify.Rename, OpRename},
}

// mapFsnotifyOp translates an fsnotify bitmask. Chmod-only events
// report mapped=false and are dropped.
func mapFsnotifyOp(op fsnotify.Op) (Operation, bool) {
	for _, m := range fsnotifyOps {
		if op&m.bit != 0 {
			return m.op, true
		}
	}
	return 0, false
}

// pumpDebounced moves coalesced batches from the debouncer to the
// output channel until the watcher stops.
func (h *HybridWatcher) pumpDebounced(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.quit:
			return
		case batch, ok := <-h.debounce.Output():
			if !ok {
				return
			}
			if len(batch) == 0 {
				continue
			}
			h.deliver(batch)
		}
	}
}

// watchTree registers root and every non-ignored directory below it.
func (h *HybridWatcher) watchTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		switch {
		case err != nil:
			return nil // unreadable entries are skipped, not fatal
		case !d.IsDir():
			return nil
		}

		rel, _ := filepath.Rel(h.root, path)
		if rel != "." && h.shouldIgnore(rel, true) {
			return filepath.SkipDir
		}
		return h.fsw.Add(path)
	})
}

// inStateDir reports whether relPath is, or lives under, one of the
// always-ignored state directories.
func inStateDir(relPath string) bool {
	for _, dir := range stateDirs {
		if relPath == dir || strings.HasPrefix(relPath, dir+"/") {
			return true
		}
	}
	return false
}

// shouldIgnore reports whether rel is filtered from watching.
func (h *HybridWatcher) shouldIgnore(rel string, isDir bool) bool {
	if rel == "" || rel == "." || inStateDir(rel) {
		return true
	}

	// loadGitignore swaps the matcher under the write lock
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ignore.Match(rel, isDir)
}

// loadGitignore rebuilds the ignore matcher from the configured
// patterns plus every .gitignore in the tree. The new matcher is built
// off-lock and swapped in at the end.
func (h *HybridWatcher) loadGitignore() {
	m := newIgnoreMatcher(h.opts.IgnorePatterns)

	rootIgnore := filepath.Join(h.root, ".gitignore")
	if err := m.AddFromFile(rootIgnore, ""); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not read root .gitignore",
			slog.String("path", rootIgnore),
			slog.String("error", err.Error()))
	}

	// Nested .gitignore files scope their patterns to their own subtree
	_ = filepath.WalkDir(h.root, func(path string, d fs.DirEntry, err error) error {
		switch {
		case err != nil:
			slog.Warn("gitignore scan skipping directory",
				slog.String("path", path),
				slog.String("error", err.Error()))
			return nil
		case d.IsDir() || d.Name() != ".gitignore" || path == rootIgnore:
			return nil
		}

		base, _ := filepath.Rel(h.root, filepath.Dir(path))
		if err := m.AddFromFile(path, base); err != nil {
			slog.Warn("could not read nested .gitignore",
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
		return nil
	})

	h.mu.Lock()
	h.ignore = m
	h.mu.Unlock()
}

// deliver hands a batch to the consumer, dropping it when the consumer
// has fallen behind.
func (h *HybridWatcher) deliver(batch []FileEvent) {
	if h.isStopped() {
		return
	}

	select {
	case h.out <- batch:
	default:
		n := h.dropped.Add(1)
		slog.Warn("consumer lagging, dropping event batch",
			slog.Int("batch", len(batch)),
			slog.Uint64("dropped_total", n),
		)
	}
}

// DroppedBatches reports how many batches were discarded because the
// consumer lagged.
func (h *HybridWatcher) DroppedBatches() uint64 {
	return h.dropped.Load()
}

// deliverErr forwards an error unless the error channel is full.
func (h *HybridWatcher) deliverErr(err error) {
	if h.isStopped() {
		return
	}

	select {
	case h.errc <- err:
	default:
	}
}

func (h *HybridWatcher) isStopped() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.stopped
}

// Stop shuts the watcher down and closes its channels. Safe to call
// more than once.
func (h *HybridWatcher) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return nil
	}
	h.stopped = true
	close(h.quit)

	h.debounce.Stop()
	if h.fsw != nil {
		_ = h.fsw.Close()
	}
	if h.poll != nil {
		_ = h.poll.Stop()
	}

	close(h.out)
	close(h.errc)
	return nil
}

// Events is the consumer side of the debounced batch stream.
func (h *HybridWatcher) Events() <-chan []FileEvent {
	return h.out
}

// Errors surfaces backend failures that did not stop the watcher.
func (h *HybridWatcher) Errors() <-chan error {
	return h.errc
}

// WatcherType names the active backend, "fsnotify" or "polling".
func (h *HybridWatcher) WatcherType() string {
	if h.fsw != nil {
		return "fsnotify"
	}
	return "polling"
}
