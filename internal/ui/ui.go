// Package ui provides terminal rendering for readiness reports and the
// live watch display.
package ui

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/runready/runready/internal/readiness"
)

// EventKind classifies a watch event.
type EventKind int

const (
	// EventChange is a file change that will trigger a re-analysis.
	EventChange EventKind = iota
	// EventRescan marks the start of a re-analysis.
	EventRescan
	// EventReport marks a completed re-analysis.
	EventReport
	// EventError is a watcher or analysis failure.
	EventError
	// EventInfo is a session notice, such as a config reload.
	EventInfo
)

var kindNames = [...]string{
	EventChange: "change",
	EventRescan: "rescan",
	EventReport: "report",
	EventError:  "error",
	EventInfo:   "info",
}

// String returns the human-readable event kind.
func (k EventKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Event is one entry in the watch event log.
type Event struct {
	Time    time.Time
	Kind    EventKind
	Path    string
	Message string
	Err     error
}

// Renderer is the live watch display.
type Renderer interface {
	// Start brings the display up.
	Start(ctx context.Context) error

	// UpdateReport records a completed analysis run.
	UpdateReport(report *readiness.Report, took time.Duration)

	// AddEvent appends a watch event to the log.
	AddEvent(event Event)

	// AddMemorySample feeds the memory trend display.
	AddMemorySample(availableGB float64)

	// Done reports renderer-initiated shutdown, such as the user
	// pressing 'q' in the TUI. Renderers without interactive quit
	// return a nil channel, which never fires.
	Done() <-chan struct{}

	// Stop tears the display down and restores the terminal.
	Stop() error
}

// Config selects and configures a renderer.
type Config struct {
	Output     io.Writer
	ForcePlain bool
	NoColor    bool
	ProjectDir string // shown in the display header
}

// ConfigOption adjusts a renderer Config.
type ConfigOption func(*Config)

// WithForcePlain skips terminal detection and always renders plain text.
func WithForcePlain(force bool) ConfigOption { return func(c *Config) { c.ForcePlain = force } }

// WithNoColor strips ANSI colors from plain output.
func WithNoColor(noColor bool) ConfigOption { return func(c *Config) { c.NoColor = noColor } }

// WithProjectDir sets the project path shown in the display header.
func WithProjectDir(dir string) ConfigOption { return func(c *Config) { c.ProjectDir = dir } }

// NewConfig creates a Config writing to output, with opts applied.
func NewConfig(output io.Writer, opts ...ConfigOption) Config {
	cfg := Config{Output: output}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// NewRenderer picks the display for the current environment: the TUI
// on an interactive terminal, plain line output for CI, pipes, and
// --no-tui. A TUI that fails to initialize also degrades to plain.
func NewRenderer(cfg Config) Renderer {
	if cfg.ForcePlain || !IsTTY(cfg.Output) || DetectCI() {
		return NewPlainRenderer(cfg)
	}

	tui, err := NewTUIRenderer(cfg)
	if err != nil {
		return NewPlainRenderer(cfg)
	}
	return tui
}

// IsTTY reports whether w is an interactive terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// DetectNoColor reports whether the NO_COLOR convention asks us to
// skip ANSI colors.
func DetectNoColor() bool {
	_, ok := os.LookupEnv("NO_COLOR")
	return ok
}

// ciEnvVars mark CI services. The TUI is useless in captured logs even
// when a pseudo-terminal is attached.
var ciEnvVars = []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"}

// DetectCI reports whether we are running under a CI service.
func DetectCI() bool {
	for _, v := range ciEnvVars {
		if _, ok := os.LookupEnv(v); ok {
			return true
		}
	}
	return false
}
