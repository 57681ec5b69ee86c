package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/runready/runready/internal/config"
	"github.com/runready/runready/internal/gpu"
	"github.com/runready/runready/internal/preflight"
	"github.com/runready/runready/internal/sysinfo"
)

// errChecksFailed signals a non-zero exit without extra output; the
// check report above it already explains what went wrong.
var errChecksFailed = errors.New("system check failed")

func newDoctorCmd() *cobra.Command {
	var (
		verbose    bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose the host, configuration, and ruleset",
		Long: `Check that this machine can run the analyzer at all.

The report covers:
  - the ~/.runready data directory (must be writable)
  - free disk space (100MB floor)
  - available memory (1GB floor)
  - the GPU probe (informational)
  - configuration file validity
  - the detection ruleset
  - the open file limit (1024 floor)
  - project detection, when run inside a project

Pass --verbose for the detail line under each check, or --json for a
report scripts can parse.`,
		Example: `  # Full report
  runready doctor

  # With per-check details
  runready doctor --verbose

  # Machine readable
  runready doctor --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, verbose, jsonOutput)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Include the detail line under each check")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the report as JSON")

	return cmd
}

func runDoctor(cmd *cobra.Command, verbose, jsonOutput bool) error {
	// Signal-aware context so a stuck probe can be interrupted
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := projectRootOrCwd()

	cfg, err := config.Load(root)
	if err != nil {
		// A broken config is itself a diagnosis; the config check
		// reports it, so fall back to defaults and keep going.
		cfg = config.NewConfig()
	}

	dataDir := config.DefaultDataDir()

	checker := preflight.New(
		preflight.WithDataDir(dataDir),
		preflight.WithProjectPath(root),
		preflight.WithConfig(cfg),
		preflight.WithProber(sysinfo.NewInspector(gpu.New())),
		preflight.WithVerbose(verbose),
		preflight.WithOutput(cmd.OutOrStdout()),
	)

	results := checker.RunAll(ctx)

	if jsonOutput {
		return writeCheckReport(cmd, checker, results)
	}

	checker.PrintResults(results)

	// Show when the cached preflight marker last passed
	if !preflight.NeedsCheck(dataDir) {
		if age := preflight.MarkerAge(dataDir); age > 0 {
			cmd.Printf("\nLast successful check: %s ago\n", formatAge(age))
		}
	}

	if checker.HasCriticalFailures(results) {
		return errChecksFailed
	}

	return nil
}

// JSONOutput is the machine-readable shape of a doctor run.
type JSONOutput struct {
	Status   string            `json:"status"`
	Checks   []JSONCheckResult `json:"checks"`
	Warnings []string          `json:"warnings,omitempty"`
	Errors   []string          `json:"errors,omitempty"`
}

// JSONCheckResult is one check inside JSONOutput.
type JSONCheckResult struct {
	Name     string `json:"name"`
	Status   string `json:"status"`
	Message  string `json:"message"`
	Required bool   `json:"required"`
	Details  string `json:"details,omitempty"`
}

func writeCheckReport(cmd *cobra.Command, checker *preflight.Checker, results []preflight.CheckResult) error {
	report := JSONOutput{Status: checker.SummaryStatus(results)}

	for _, r := range results {
		report.Checks = append(report.Checks, JSONCheckResult{
			Name:     r.Name,
			Status:   strings.ToLower(r.Status.String()),
			Message:  r.Message,
			Required: r.Required,
			Details:  r.Details,
		})

		line := r.Name + ": " + r.Message
		switch {
		case r.IsCritical():
			report.Errors = append(report.Errors, line)
		case r.Status == preflight.StatusWarn:
			report.Warnings = append(report.Warnings, line)
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// formatAge renders a marker age in coarse human units.
func formatAge(d time.Duration) string {
	hours := int(d.Hours())
	switch {
	case hours < 1:
		return "less than 1 hour"
	case hours == 1:
		return "1 hour"
	case hours < 24:
		return fmt.Sprintf("%d hours", hours)
	case hours < 48:
		return "1 day"
	default:
		return fmt.Sprintf("%d days", hours/24)
	}
}
