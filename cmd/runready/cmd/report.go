package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/runready/runready/internal/config"
	"github.com/runready/runready/internal/ui"
)

func newReportCmd() *cobra.Command {
	var (
		jsonOutput bool
		plain      bool
		noColor    bool
	)

	cmd := &cobra.Command{
		Use:   "report [path]",
		Short: "Generate a readiness report for a project",
		Long: `Run all readiness checks against a project and print the combined
report: system resources, declared dependencies, heavy-usage findings,
and the final verdict.

Without a path, the enclosing project root is analyzed.`,
		Example: `  # Report for the current project
  runready report

  # Report for another project
  runready report ~/src/ml-api

  # Exact tool output, no styling
  runready report --plain

  # Machine-readable
  runready report --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveProjectPath(args)
			if err != nil {
				return err
			}
			return runReport(cmd.Context(), cmd, path, jsonOutput, plain, noColor)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the report as JSON")
	cmd.Flags().BoolVar(&plain, "plain", false, "Plain text output without styling")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	return cmd
}

func runReport(ctx context.Context, cmd *cobra.Command, path string, jsonOutput, plain, noColor bool) error {
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	_, _, composer, err := buildAnalyzer(cfg)
	if err != nil {
		return err
	}

	start := time.Now()
	report, err := composer.Compose(ctx, path)
	if err != nil {
		return err
	}
	recordRun(ctx, cfg, path, report, time.Since(start))

	renderer := ui.NewReportRenderer(cmd.OutOrStdout(), noColor)
	switch {
	case jsonOutput:
		return renderer.RenderJSON(report)
	case plain:
		_, err := fmt.Fprint(cmd.OutOrStdout(), report.Text())
		return err
	default:
		return renderer.Render(path, report)
	}
}
