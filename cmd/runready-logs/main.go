// Package main implements runready-logs, a viewer for the server log.
//
// The MCP server cannot write diagnostics to stdout, the protocol owns
// that stream, so everything lands in ~/.runready/logs/server.log.
// This command tails and filters that file.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"regexp"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/runready/runready/internal/logging"
	"github.com/runready/runready/pkg/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

type logsOptions struct {
	follow  bool
	lines   int
	level   string
	filter  string
	noColor bool
	logFile string
}

func newRootCmd() *cobra.Command {
	var opts logsOptions

	cmd := &cobra.Command{
		Use:   "runready-logs",
		Short: "View runready server logs",
		// main prints the error; without this cobra would print it too.
		SilenceErrors: true,
		SilenceUsage:  true,
		Long: `View and tail runready server logs.

The MCP server logs exclusively to ~/.runready/logs/server.log because
stdout is reserved for the protocol stream. This viewer prints the tail
of that file, optionally filtered, and can follow it as it grows.

Examples:
  runready-logs                    # last 50 lines of the server log
  runready-logs -n 200             # more history
  runready-logs -f                 # stream new entries
  runready-logs --level warn       # warnings and errors only
  runready-logs --filter "gpu"     # entries matching a regex`,
		Version: version.Version,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogs(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.follow, "follow", "f", false, "Stream new entries as they arrive")
	cmd.Flags().IntVarP(&opts.lines, "lines", "n", 50, "How many trailing lines to print")
	cmd.Flags().StringVar(&opts.level, "level", "", "Only show entries at or above this level")
	cmd.Flags().StringVar(&opts.filter, "filter", "", "Only show entries matching this regex")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Plain output without color")
	cmd.Flags().StringVar(&opts.logFile, "file", "", "Log file to read (defaults to the server log)")

	return cmd
}

func runLogs(ctx context.Context, opts logsOptions) error {
	path, err := logging.FindLogFile(opts.logFile)
	if err != nil {
		return err
	}

	pattern, err := compileFilter(opts.filter)
	if err != nil {
		return err
	}

	viewer := logging.NewViewer(logging.ViewerConfig{
		Level:   opts.level,
		Pattern: pattern,
		NoColor: opts.noColor,
	}, os.Stdout)

	printHeader(os.Stderr, path, opts.follow)

	if opts.follow {
		return runFollow(ctx, viewer, path)
	}
	entries, err := viewer.Tail(path, opts.lines)
	if err != nil {
		return err
	}
	viewer.Print(entries)
	return nil
}

// compileFilter turns the --filter flag into a matcher; an empty flag
// means no filtering.
func compileFilter(expr string) (*regexp.Regexp, error) {
	if expr == "" {
		return nil, nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid filter pattern %q: %w", expr, err)
	}
	return re, nil
}

// printHeader writes the chrome to w, never to stdout, which stays
// clean for piping.
func printHeader(w io.Writer, path string, follow bool) {
	fmt.Fprintf(w, "Log file: %s\n", path)
	if follow {
		fmt.Fprintln(w, "Following... press Ctrl+C to stop")
	}
	fmt.Fprintln(w, "---")
}

// runFollow streams new entries until the follower fails or the user
// interrupts.
func runFollow(ctx context.Context, viewer *logging.Viewer, path string) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	feed := make(chan logging.LogEntry, 100)
	done := make(chan error, 1)
	go func() { done <- viewer.Follow(ctx, path, feed) }()

	for {
		select {
		case entry := <-feed:
			fmt.Println(viewer.FormatEntry(entry))
		case err := <-done:
			return err
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr, "\nStopped.")
			return nil
		}
	}
}
