package ui

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/runready/runready/internal/readiness"
)

// PlainRenderer outputs plain text watch events (for CI/pipes). Each
// line is timestamped so piped output stays useful as a log.
type PlainRenderer struct {
	mu         sync.Mutex
	out        io.Writer
	noColor    bool
	projectDir string
}

// NewPlainRenderer creates a plain text renderer.
func NewPlainRenderer(cfg Config) *PlainRenderer {
	return &PlainRenderer{
		out:        cfg.Output,
		noColor:    cfg.NoColor,
		projectDir: cfg.ProjectDir,
	}
}

// Start implements Renderer.
func (r *PlainRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.projectDir != "" {
		_, _ = fmt.Fprintf(r.out, "Watching %s (Ctrl+C to stop)\n", r.projectDir)
	}
	return nil
}

// UpdateReport implements Renderer. Plain mode prints the verdict line
// only; the full report is available from the report command.
func (r *PlainRenderer) UpdateReport(report *readiness.Report, took time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, _ = fmt.Fprintf(r.out, "[%s] %s (%s)\n",
		time.Now().Format("15:04:05"), report.Verdict.Text(), took.Round(time.Millisecond))
}

// AddEvent implements Renderer.
func (r *PlainRenderer) AddEvent(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stamp := event.Time
	if stamp.IsZero() {
		stamp = time.Now()
	}
	prefix := stamp.Format("15:04:05")

	switch event.Kind {
	case EventChange:
		_, _ = fmt.Fprintf(r.out, "[%s] changed: %s\n", prefix, event.Path)
	case EventRescan:
		_, _ = fmt.Fprintf(r.out, "[%s] re-analyzing...\n", prefix)
	case EventError:
		_, _ = fmt.Fprintf(r.out, "[%s] ERROR: %v\n", prefix, event.Err)
	case EventInfo:
		_, _ = fmt.Fprintf(r.out, "[%s] %s\n", prefix, event.Message)
	case EventReport:
		// Reports are printed by UpdateReport with their duration
	default:
		if event.Message != "" {
			_, _ = fmt.Fprintf(r.out, "[%s] %s\n", prefix, event.Message)
		}
	}
}

// AddMemorySample implements Renderer. Plain mode has no trend display.
func (r *PlainRenderer) AddMemorySample(availableGB float64) {}

// Done implements Renderer. Plain mode has no interactive quit, so the
// returned nil channel never fires.
func (r *PlainRenderer) Done() <-chan struct{} {
	return nil
}

// Stop implements Renderer.
func (r *PlainRenderer) Stop() error {
	return nil
}
