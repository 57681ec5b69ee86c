package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// PollingWatcher detects changes by stamping the project tree on every
// tick and diffing against the previous stamp. It is the fallback when
// fsnotify cannot be initialized (inotify limits, network mounts).
type PollingWatcher struct {
	interval time.Duration
	root     string

	out  chan FileEvent
	errc chan error
	quit chan struct{}

	mu      sync.RWMutex
	stamps  map[string]fileStamp
	stopped bool
}

// fileStamp is the per-entry fingerprint a poll cycle compares. Content
// is never read; mtime plus size is enough to notice a rewrite.
type fileStamp struct {
	modTime time.Time
	size    int64
	isDir   bool
}

func stampOf(info fs.FileInfo, isDir bool) fileStamp {
	return fileStamp{modTime: info.ModTime(), size: info.Size(), isDir: isDir}
}

// NewPollingWatcher creates a polling watcher that rescans the tree at
// the given interval.
func NewPollingWatcher(interval time.Duration) *PollingWatcher {
	return &PollingWatcher{
		interval: interval,
		stamps:   map[string]fileStamp{},
		out:      make(chan FileEvent, 100),
		errc:     make(chan error, 10),
		quit:     make(chan struct{}),
	}
}

// Start establishes the baseline stamp of path and then polls until the
// context is cancelled or Stop is called.
func (p *PollingWatcher) Start(ctx context.Context, path string) error {
	root, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve watch path: %w", err)
	}
	if info, err := os.Stat(root); err != nil {
		return fmt.Errorf("stat watch root: %w", err)
	} else if !info.IsDir() {
		return fmt.Errorf("watch root is not a directory: %s", root)
	}
	p.root = root

	p.mu.Lock()
	p.stamps, _ = p.stampTree()
	p.mu.Unlock()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = p.Stop()
			return ctx.Err()
		case <-p.quit:
			return nil
		case <-ticker.C:
			p.tick()
		}
	}
}

// tick runs one poll cycle, forwarding its error without blocking.
func (p *PollingWatcher) tick() {
	err := p.pollOnce()
	if err == nil {
		return
	}
	select {
	case p.errc <- err:
	default:
	}
}

// Stop ends polling and closes the channels. Safe to call more than
// once.
func (p *PollingWatcher) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return nil
	}
	p.stopped = true

	close(p.quit)
	close(p.out)
	close(p.errc)
	return nil
}

// Events streams one event per observed change.
func (p *PollingWatcher) Events() <-chan FileEvent {
	return p.out
}

// Errors streams non-fatal poll failures.
func (p *PollingWatcher) Errors() <-chan error {
	return p.errc
}

// stampTree walks the root and fingerprints every entry. The returned
// order is the walk's lexical order; creations and modifications are
// reported in it so successive polls of the same tree agree.
func (p *PollingWatcher) stampTree() (map[string]fileStamp, []string) {
	stamps := map[string]fileStamp{}
	var order []string

	// Unreadable entries are skipped; the next cycle retries them.
	_ = filepath.WalkDir(p.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		rel, err := filepath.Rel(p.root, path)
		if err != nil || rel == "." {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}

		stamps[rel] = stampOf(info, d.IsDir())
		order = append(order, rel)
		return nil
	})

	return stamps, order
}

// pollOnce stamps the tree, diffs it against the previous cycle, and
// emits one event per changed entry.
func (p *PollingWatcher) pollOnce() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := os.Stat(p.root); err != nil {
		return fmt.Errorf("watch root vanished: %w", err)
	}

	current, order := p.stampTree()
	now := time.Now()

	for _, rel := range order {
		cur := current[rel]
		prev, existed := p.stamps[rel]

		switch {
		case !existed:
			p.emit(FileEvent{Path: rel, Operation: OpCreate, IsDir: cur.isDir, Timestamp: now})
		case prev.modTime != cur.modTime || prev.size != cur.size:
			p.emit(FileEvent{Path: rel, Operation: OpModify, IsDir: cur.isDir, Timestamp: now})
		}
	}

	// Deletions have no walk position; sort them so a removed subtree
	// reports in a stable order.
	var gone []string
	for rel := range p.stamps {
		if _, exists := current[rel]; !exists {
			gone = append(gone, rel)
		}
	}
	sort.Strings(gone)
	for _, rel := range gone {
		p.emit(FileEvent{Path: rel, Operation: OpDelete, IsDir: p.stamps[rel].isDir, Timestamp: now})
	}

	p.stamps = current
	return nil
}

// emit sends an event without blocking the poll cycle. Must be called
// with the lock held so Stop cannot close the channel mid-send.
func (p *PollingWatcher) emit(event FileEvent) {
	if p.stopped {
		return
	}

	select {
	case p.out <- event:
	default:
		slog.Warn("poll event dropped, buffer full",
			slog.String("path", event.Path),
			slog.String("op", event.Operation.String()),
		)
	}
}
