package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// RotatingWriter is an io.Writer that rotates its file once it passes a
// size threshold, logrotate style: server.log becomes server.log.1, .1
// becomes .2, and the copy past the retention count is dropped.
type RotatingWriter struct {
	path     string
	maxBytes int64
	keep     int

	mu       sync.Mutex
	file     *os.File
	size     int64
	syncEach bool // fsync every write; runready-logs -f depends on it
}

// NewRotatingWriter opens or creates the log file at path, creating
// parent directories as needed. Rotation triggers once a write would
// push the file past maxSizeMB, and up to maxFiles rotated copies are
// retained. Per-write fsync starts enabled so followers see records
// without waiting for a buffer flush.
func NewRotatingWriter(path string, maxSizeMB, maxFiles int) (*RotatingWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	w := &RotatingWriter{
		path:     path,
		maxBytes: int64(maxSizeMB) << 20,
		keep:     maxFiles,
		syncEach: true,
	}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

// SetImmediateSync toggles the per-write fsync. Disabling it trades
// real-time visibility in the log viewer for fewer syscalls.
func (w *RotatingWriter) SetImmediateSync(enabled bool) {
	w.mu.Lock()
	w.syncEach = enabled
	w.mu.Unlock()
}

// Write appends p, rotating first if the file would grow past the size
// limit. A failed rotation is reported on stderr and the write proceeds
// against the current file.
func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.size+int64(len(p)) > w.maxBytes {
		if err := w.rotate(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "log rotate failed, continuing on current file: %v\n", err)
		}
	}

	n, err := w.file.Write(p)
	w.size += int64(n)
	if err == nil && w.syncEach {
		_ = w.file.Sync()
	}
	return n, err
}

// Sync flushes buffered data to disk.
func (w *RotatingWriter) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	return w.file.Sync()
}

// Close closes the underlying file.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	return w.file.Close()
}

func (w *RotatingWriter) open() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat log file: %w", err)
	}
	w.file = f
	w.size = info.Size()
	return nil
}

// rotate shifts the numbered chain up by one and reopens a fresh file.
// Caller holds w.mu.
func (w *RotatingWriter) rotate() error {
	if w.file != nil {
		if err := w.file.Close(); err != nil {
			return fmt.Errorf("close log file: %w", err)
		}
		w.file = nil
	}

	// Oldest copy falls off the end, then each survivor moves up a slot.
	_ = os.Remove(w.numbered(w.keep))
	for n := w.keep - 1; n >= 1; n-- {
		_ = os.Rename(w.numbered(n), w.numbered(n+1))
	}
	if err := os.Rename(w.path, w.numbered(1)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("rotate log file: %w", err)
	}

	w.size = 0
	return w.open()
}

func (w *RotatingWriter) numbered(n int) string {
	return fmt.Sprintf("%s.%d", w.path, n)
}
