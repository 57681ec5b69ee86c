// Package cmd provides the CLI commands for runready.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/runready/runready/internal/config"
	rrerrors "github.com/runready/runready/internal/errors"
	"github.com/runready/runready/internal/gpu"
	"github.com/runready/runready/internal/logging"
	"github.com/runready/runready/internal/preflight"
	"github.com/runready/runready/internal/profiling"
	"github.com/runready/runready/internal/sysinfo"
	"github.com/runready/runready/pkg/version"
)

// diag drives the optional profiling and debug-logging lifecycle that
// wraps every command run. Persistent flags bind straight into it.
var diag = diagnostics{profiler: profiling.NewProfiler()}

type diagnostics struct {
	cpuProfile   string
	memProfile   string
	traceProfile string
	debug        bool

	profiler    *profiling.Profiler
	stopCPU     func()
	stopTrace   func()
	stopLogging func()
}

// NewRootCmd creates the root command for the runready CLI.
func NewRootCmd() *cobra.Command {
	var skipCheck bool

	cmd := &cobra.Command{
		Use:   "runready",
		Short: "Runtime readiness analyzer and MCP server",
		Long: `RunReady inspects the local machine's CPU, memory, disk and GPU,
reads a project's declared dependencies, and judges whether the
project can run on this machine.

Running 'runready' with no arguments starts the MCP server over stdio
so AI assistants can call the readiness tools directly. Use the
subcommands for the same checks from the terminal.`,
		Version: version.Version,
		// Errors are rendered by Execute through the structured
		// formatter instead of cobra's default printer.
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// If help was explicitly requested, show it
			if len(args) > 0 {
				return cmd.Help()
			}
			return runSmartDefault(cmd.Context(), skipCheck)
		},
	}

	cmd.SetVersionTemplate("runready version {{.Version}}\n")

	cmd.Flags().BoolVar(&skipCheck, "skip-check", false, "Skip pre-flight system checks")

	pf := cmd.PersistentFlags()
	pf.StringVar(&diag.cpuProfile, "profile-cpu", "", "Write CPU profile to file")
	pf.StringVar(&diag.memProfile, "profile-mem", "", "Write memory profile to file")
	pf.StringVar(&diag.traceProfile, "profile-trace", "", "Write execution trace to file")
	pf.BoolVar(&diag.debug, "debug", false, "Enable debug logging to ~/.runready/logs/")

	cmd.PersistentPreRunE = diag.start
	cmd.PersistentPostRunE = diag.stop

	for _, sub := range []*cobra.Command{
		newServeCmd(),
		newReportCmd(),
		newResourcesCmd(),
		newDepsCmd(),
		newHeavyCmd(),
		newDoctorCmd(),
		newHistoryCmd(),
		newConfigCmd(),
		newInitCmd(),
		newWatchCmd(),
		newVersionCmd(),
	} {
		cmd.AddCommand(sub)
	}

	return cmd
}

// start is the persistent pre-run hook: debug logging first so the
// profilers log through it.
func (d *diagnostics) start(_ *cobra.Command, _ []string) error {
	if d.debug {
		logger, cleanup, err := logging.Setup(logging.DebugConfig())
		if err != nil {
			return fmt.Errorf("failed to setup debug logging: %w", err)
		}
		d.stopLogging = cleanup
		slog.SetDefault(logger)
		slog.Info("Debug logging enabled",
			slog.String("log_file", logging.DefaultLogPath()),
			slog.String("version", version.Version))
	}

	if d.cpuProfile != "" {
		stop, err := d.profiler.StartCPU(d.cpuProfile)
		if err != nil {
			return fmt.Errorf("failed to start CPU profile: %w", err)
		}
		d.stopCPU = stop
	}

	if d.traceProfile != "" {
		stop, err := d.profiler.StartTrace(d.traceProfile)
		if err != nil {
			if d.stopCPU != nil {
				d.stopCPU()
			}
			return fmt.Errorf("failed to start trace: %w", err)
		}
		d.stopTrace = stop
	}

	return nil
}

// stop is the persistent post-run hook. The heap profile is written
// here so it captures the command's peak allocations.
func (d *diagnostics) stop(_ *cobra.Command, _ []string) error {
	if d.stopCPU != nil {
		d.stopCPU()
		d.stopCPU = nil
	}
	if d.stopTrace != nil {
		d.stopTrace()
		d.stopTrace = nil
	}

	if d.memProfile != "" {
		if err := d.profiler.WriteHeap(d.memProfile); err != nil {
			return fmt.Errorf("failed to write memory profile: %w", err)
		}
	}

	if d.stopLogging != nil {
		slog.Info("Debug logging stopped")
		d.stopLogging()
		d.stopLogging = nil
	}

	return nil
}

// Execute runs the root command. Failures print through the structured
// error formatter; --debug adds the underlying cause.
func Execute() error {
	err := NewRootCmd().Execute()
	if err != nil {
		_, _ = fmt.Fprint(os.Stderr, rrerrors.FormatForUser(err, diag.debug))
	}
	return err
}

// runSmartDefault implements the zero-argument flow: silent preflight,
// then MCP over stdio.
func runSmartDefault(ctx context.Context, skipCheck bool) error {
	// The MCP protocol requires stdout to be used EXCLUSIVELY for
	// JSON-RPC messages. Nothing may be written to stdout before the
	// server starts; preflight results go to the log file only.
	// Use 'runready doctor' for visible diagnostics instead.

	root, err := config.FindProjectRoot(".")
	if err != nil {
		root, _ = os.Getwd()
	}

	cfg, err := config.Load(root)
	if err != nil {
		slog.Error("Config load failed", slog.String("error", err.Error()))
		return fmt.Errorf("load config: %w", err)
	}

	dataDir := config.DefaultDataDir()

	if !skipCheck && preflight.NeedsCheck(dataDir) {
		checker := preflight.New(
			preflight.WithDataDir(dataDir),
			preflight.WithConfig(cfg),
			preflight.WithProber(sysinfo.NewInspector(gpu.New())),
			preflight.WithOutput(io.Discard),
		)
		results := checker.RunAll(ctx)

		if checker.HasCriticalFailures(results) {
			slog.Error("System check failed - run 'runready doctor' for diagnostics")
			return fmt.Errorf("system check failed")
		}

		if err := preflight.MarkPassed(dataDir); err != nil {
			slog.Debug("Failed to mark preflight as passed", slog.String("error", err.Error()))
		}
	}

	// No stdout writes may happen before this point.
	return runServe(ctx, cfg, serveOptions{transport: "stdio"})
}
