package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/runready/runready/internal/config"
	"github.com/runready/runready/internal/gpu"
	"github.com/runready/runready/internal/heavy"
	"github.com/runready/runready/internal/history"
	"github.com/runready/runready/internal/readiness"
	"github.com/runready/runready/internal/sysinfo"
)

// buildAnalyzer constructs the probe/detect/compose pipeline shared by
// the one-shot commands and watch.
func buildAnalyzer(cfg *config.Config) (*sysinfo.Inspector, *heavy.Detector, *readiness.Composer, error) {
	prober := sysinfo.NewInspector(gpu.New())

	rules, err := heavy.LoadRuleset(cfg.Analyzer.RulesFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load ruleset: %w", err)
	}
	detector, err := heavy.NewDetector(rules, cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create detector: %w", err)
	}

	return prober, detector, readiness.NewComposer(prober, detector, cfg), nil
}

// resolveProjectPath picks the target project directory: the positional
// argument when given, the enclosing project root otherwise.
func resolveProjectPath(args []string) (string, error) {
	if len(args) == 0 {
		root, err := config.FindProjectRoot(".")
		if err != nil {
			return os.Getwd()
		}
		return root, nil
	}

	path, err := filepath.Abs(args[0])
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("project path does not exist: %s", path)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("project path is not a directory: %s", path)
	}
	return path, nil
}

// recordRun appends a readiness outcome to the history store when
// history is enabled. Failures are logged and swallowed: the audit log
// never blocks the check itself.
func recordRun(ctx context.Context, cfg *config.Config, projectPath string, report *readiness.Report, took time.Duration) {
	if !cfg.History.Enabled {
		return
	}

	store, err := history.Open(cfg.History)
	if err != nil {
		slog.Warn("history record skipped: store open failed",
			slog.String("path", cfg.History.Path),
			slog.String("error", err.Error()))
		return
	}
	defer func() { _ = store.Close() }()

	run := &history.Run{
		ProjectPath:  projectPath,
		Ready:        report.Verdict.Ready,
		Issues:       report.Verdict.Issues,
		FindingCount: len(report.Heavy.Findings),
		DurationMS:   took.Milliseconds(),
	}
	if report.Dependencies != nil {
		run.DependencyCount = len(report.Dependencies.PythonPackages) + len(report.Dependencies.NodePackages)
	}

	if err := store.Record(ctx, run); err != nil {
		slog.Warn("history record failed", slog.String("error", err.Error()))
	}
}
