package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/runready/runready/internal/config"
	"github.com/runready/runready/internal/heavy"
	"github.com/runready/runready/internal/manifest"
	"github.com/runready/runready/internal/readiness"
	"github.com/runready/runready/internal/sysinfo"
	"github.com/runready/runready/internal/ui"
	"github.com/runready/runready/internal/watcher"
)

// memSampleInterval is how often the memory trend display is fed
// between analysis runs.
const memSampleInterval = 5 * time.Second

func newWatchCmd() *cobra.Command {
	var (
		plain   bool
		noColor bool
	)

	cmd := &cobra.Command{
		Use:   "watch [path]",
		Short: "Watch a project and re-check readiness on changes",
		Long: `Watch a project directory and re-run the readiness report whenever
its manifest or source files change.

In an interactive terminal this shows a live dashboard with the
current verdict, host resources, a memory trend, and an event log.
In pipes and CI it falls back to timestamped plain text lines.

Edits to .runready.yaml are picked up without restarting. Press 'q'
or Ctrl+C to stop.`,
		Example: `  # Watch the current project
  runready watch

  # Watch another project
  runready watch ~/src/ml-api

  # Plain text output (for logs/CI)
  runready watch --plain`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			path, err := resolveProjectPath(args)
			if err != nil {
				return err
			}
			return runWatch(ctx, cmd, path, plain, noColor)
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "Plain text output (no TUI)")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	return cmd
}

// watchLoop carries the live-rebuildable analysis pipeline. A config
// change swaps cfg, rules and composer mid-session.
type watchLoop struct {
	path     string
	cfg      *config.Config
	prober   *sysinfo.Inspector
	rules    *heavy.Ruleset
	composer *readiness.Composer
	renderer ui.Renderer
}

func runWatch(ctx context.Context, cmd *cobra.Command, path string, plain, noColor bool) error {
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// One watch session per machine: concurrent sessions would
	// interleave writes to the same history database.
	dataDir := config.DefaultDataDir()
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	lock := flock.New(filepath.Join(dataDir, "watch.lock"))
	acquired, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire watch lock: %w", err)
	}
	if !acquired {
		return fmt.Errorf("another watch session is already running (lock: %s)", lock.Path())
	}
	defer func() { _ = lock.Unlock() }()

	prober, detector, composer, err := buildAnalyzer(cfg)
	if err != nil {
		return err
	}

	renderer := ui.NewRenderer(ui.NewConfig(cmd.OutOrStdout(),
		ui.WithForcePlain(plain),
		ui.WithNoColor(noColor),
		ui.WithProjectDir(path),
	))
	if err := renderer.Start(ctx); err != nil {
		return fmt.Errorf("start renderer: %w", err)
	}
	defer func() { _ = renderer.Stop() }()

	loop := &watchLoop{
		path:     path,
		cfg:      cfg,
		prober:   prober,
		rules:    detector.Rules(),
		composer: composer,
		renderer: renderer,
	}

	// First verdict before any change arrives
	loop.analyze(ctx)

	w, err := watcher.NewHybridWatcher(watcher.Options{
		DebounceWindow: cfg.Watch.DebounceDuration(),
		PollInterval:   cfg.Watch.PollIntervalDuration(),
	})
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = w.Stop() }()

	renderer.AddEvent(ui.Event{Time: time.Now(), Kind: ui.EventInfo,
		Message: fmt.Sprintf("watching via %s", w.WatcherType())})

	watchErr := make(chan error, 1)
	go func() {
		watchErr <- w.Start(ctx, path)
	}()

	memTicker := time.NewTicker(memSampleInterval)
	defer memTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-renderer.Done():
			// User quit the TUI
			return nil

		case err := <-watchErr:
			// ctx expiry surfaces through the watcher too; only a
			// failure while the session is still live is an error.
			if err != nil && ctx.Err() == nil {
				return fmt.Errorf("watcher stopped: %w", err)
			}
			return nil

		case batch, ok := <-w.Events():
			if !ok {
				return nil
			}
			loop.handleBatch(ctx, batch)

		case err, ok := <-w.Errors():
			if !ok {
				return nil
			}
			renderer.AddEvent(ui.Event{Time: time.Now(), Kind: ui.EventError, Err: err})

		case <-memTicker.C:
			if snap, err := loop.prober.Snapshot(ctx); err == nil {
				renderer.AddMemorySample(snap.Memory.AvailableGB)
			}
		}
	}
}

// handleBatch logs the relevant changes from one debounced batch and
// re-analyzes when any of them can affect the verdict.
func (l *watchLoop) handleBatch(ctx context.Context, batch []watcher.FileEvent) {
	trigger := false
	reload := false

	for _, e := range batch {
		if e.Operation == watcher.OpConfigChange {
			reload = true
		}
		if !l.isRelevant(e) {
			continue
		}
		trigger = true
		l.renderer.AddEvent(ui.Event{
			Time:    e.Timestamp,
			Kind:    ui.EventChange,
			Path:    e.Path,
			Message: e.Operation.String(),
		})
	}

	if reload {
		l.reloadConfig()
	}
	if trigger {
		l.renderer.AddEvent(ui.Event{Time: time.Now(), Kind: ui.EventRescan})
		l.analyze(ctx)
	}
}

// isRelevant reports whether an event can change the readiness verdict:
// manifest edits, source files the ruleset scans, and rule-set inputs
// like .gitignore or the project config.
func (l *watchLoop) isRelevant(e watcher.FileEvent) bool {
	switch e.Operation {
	case watcher.OpGitignoreChange, watcher.OpConfigChange:
		return true
	}
	if e.IsDir {
		return false
	}

	base := filepath.Base(e.Path)
	if base == manifest.RequirementsFile || base == manifest.PackageJSONFile {
		return true
	}
	return l.rules.MatchesSourceFile(base)
}

// analyze runs one readiness pass and feeds the renderer and history.
func (l *watchLoop) analyze(ctx context.Context) {
	start := time.Now()
	report, err := l.composer.Compose(ctx, l.path)
	took := time.Since(start)

	if err != nil {
		l.renderer.AddEvent(ui.Event{Time: time.Now(), Kind: ui.EventError, Err: err})
		return
	}

	l.renderer.UpdateReport(report, took)
	if report.Snapshot != nil {
		l.renderer.AddMemorySample(report.Snapshot.Memory.AvailableGB)
	}
	recordRun(ctx, l.cfg, l.path, report, took)
}

// reloadConfig rebuilds the pipeline after a .runready.yaml edit so new
// thresholds and rules apply to subsequent runs.
func (l *watchLoop) reloadConfig() {
	cfg, err := config.Load(l.path)
	if err != nil {
		l.renderer.AddEvent(ui.Event{Time: time.Now(), Kind: ui.EventError,
			Err: fmt.Errorf("config reload failed: %w", err)})
		return
	}

	prober, detector, composer, err := buildAnalyzer(cfg)
	if err != nil {
		l.renderer.AddEvent(ui.Event{Time: time.Now(), Kind: ui.EventError,
			Err: fmt.Errorf("config reload failed: %w", err)})
		return
	}

	l.cfg = cfg
	l.prober = prober
	l.rules = detector.Rules()
	l.composer = composer
	l.renderer.AddEvent(ui.Event{Time: time.Now(), Kind: ui.EventInfo, Message: "configuration reloaded"})
}
