package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runready/runready/internal/config"
	"github.com/runready/runready/internal/history"
	"github.com/runready/runready/internal/output"
	"github.com/runready/runready/internal/ui"
)

func newHistoryCmd() *cobra.Command {
	var (
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent readiness runs",
		Long: `List recent readiness checks from the history database, newest
first. Every report run (CLI, MCP tool, or HTTP request) is recorded
with its verdict, issues, and timing.

History is an audit log: verdicts are always recomputed, never served
from here.`,
		Example: `  # Last 20 runs
  runready history

  # More runs
  runready history -n 100

  # Machine-readable
  runready history --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, limit, jsonOutput)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", history.DefaultRecentLimit, "Number of runs to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runHistory(cmd *cobra.Command, limit int, jsonOutput bool) error {
	out := output.New(cmd.OutOrStdout())

	root, err := config.FindProjectRoot(".")
	if err != nil {
		root, _ = os.Getwd()
	}
	cfg, err := config.Load(root)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if !cfg.History.Enabled {
		out.Warning("History is disabled in configuration")
		out.Status("💡", "Set history.enabled: true (or RUNREADY_HISTORY_ENABLED=true) to record runs")
		return nil
	}

	store, err := history.Open(cfg.History)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	runs, err := store.Recent(ctx, limit)
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}

	if jsonOutput {
		return out.JSON(runs)
	}

	if len(runs) == 0 {
		out.Status("📭", "No recorded runs yet")
		out.Status("💡", "Run 'runready report' to record one")
		return nil
	}

	for _, run := range runs {
		icon := "✅"
		if !run.Ready {
			icon = "⚠️"
		}
		out.Statusf(icon, "%-14s %s  (%d findings, %d deps, %dms)",
			ui.RelativeTime(run.Timestamp), run.ProjectPath,
			run.FindingCount, run.DependencyCount, run.DurationMS)
		for _, issue := range run.Issues {
			out.Statusf("", "    - %s", strings.TrimSpace(issue))
		}
	}

	total, err := store.Count(ctx)
	if err == nil {
		out.Newline()
		out.Statusf("📊", "Showing %d of %d runs", len(runs), total)
	}
	out.Statusf("📁", "History: %s", store.Path())

	return nil
}
