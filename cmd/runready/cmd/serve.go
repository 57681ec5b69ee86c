package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/runready/runready/internal/config"
	rrerrors "github.com/runready/runready/internal/errors"
	"github.com/runready/runready/internal/gpu"
	"github.com/runready/runready/internal/heavy"
	"github.com/runready/runready/internal/history"
	"github.com/runready/runready/internal/httpapi"
	"github.com/runready/runready/internal/logging"
	"github.com/runready/runready/internal/mcp"
	"github.com/runready/runready/internal/sysinfo"
)

// serveOptions configures a server run.
type serveOptions struct {
	transport string
	httpAddr  string
	debug     bool
}

func newServeCmd() *cobra.Command {
	var (
		transport string
		httpAddr  string
		debug     bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the readiness MCP server.

The server speaks JSON-RPC over stdio and exposes four tools:
  check_system_resources, analyze_project_dependencies,
  detect_heavy_requirements, generate_readiness_report

With --http, the same operations are additionally served as a REST API
for dashboards and scripts. Both transports run until interrupted.

All logging goes to ~/.runready/logs/ because stdout is reserved for
the MCP protocol. Use 'runready-logs -f' to follow the logs.`,
		Example: `  # Serve MCP over stdio (what MCP clients launch)
  runready serve

  # Additionally expose the HTTP API on the configured address
  runready serve --http

  # HTTP API on an explicit address
  runready serve --http 0.0.0.0:8080`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			root, err := config.FindProjectRoot(".")
			if err != nil {
				root, _ = os.Getwd()
			}
			cfg, err := config.Load(root)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			if !cmd.Flags().Changed("transport") {
				transport = cfg.Server.Transport
			}
			if httpAddr == httpAddrFromConfig {
				httpAddr = cfg.Server.HTTPAddr
			}

			return runServe(ctx, cfg, serveOptions{
				transport: transport,
				httpAddr:  httpAddr,
				debug:     debug,
			})
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport to serve (stdio, http)")
	cmd.Flags().StringVar(&httpAddr, "http", "", "Also serve the HTTP API on this address")
	cmd.Flags().Lookup("http").NoOptDefVal = httpAddrFromConfig
	cmd.Flags().BoolVar(&debug, "debug", false, "Force debug-level logging")

	return cmd
}

// httpAddrFromConfig marks a bare --http flag; the address then comes
// from server.http_addr.
const httpAddrFromConfig = "config"

// runServe builds the server stack and serves until ctx is canceled.
// Also used by the root command's zero-argument flow, so it must never
// write to stdout.
func runServe(ctx context.Context, cfg *config.Config, opts serveOptions) (err error) {
	// File-only logging: stdout carries JSON-RPC, stderr stays silent
	// so MCP clients don't mistake log lines for protocol errors.
	var cleanup func()
	if opts.debug {
		cleanup, err = logging.SetupMCPMode()
	} else {
		cleanup, err = logging.SetupMCPModeWithLevel(cfg.Server.LogLevel)
	}
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer cleanup()

	// Record terminal failures while the log file is still open.
	defer func() {
		if err != nil {
			slog.Error("server stopped with error", rrerrors.FormatForLog(err)...)
		}
	}()

	if opts.transport == "stdio" {
		if err := verifyStdinForMCP(); err != nil {
			slog.Error("stdin validation failed", slog.String("error", err.Error()))
			return err
		}
	}

	prober := sysinfo.NewInspector(gpu.New())

	rules, err := heavy.LoadRuleset(cfg.Analyzer.RulesFile)
	if err != nil {
		return fmt.Errorf("load ruleset: %w", err)
	}
	detector, err := heavy.NewDetector(rules, cfg)
	if err != nil {
		return fmt.Errorf("create detector: %w", err)
	}

	srv, err := mcp.NewServer(prober, detector, cfg)
	if err != nil {
		return fmt.Errorf("create MCP server: %w", err)
	}

	// History is optional: a broken store degrades to no audit log
	// rather than blocking the server.
	var store *history.Store
	if cfg.History.Enabled {
		store, err = history.Open(cfg.History)
		if err != nil {
			slog.Warn("history disabled: store open failed",
				slog.String("path", cfg.History.Path),
				slog.String("error", err.Error()))
		} else {
			defer func() { _ = store.Close() }()
			srv.SetHistory(store)
		}
	}

	// transport "http" means the HTTP API is the only transport: no MCP
	// client is attached, so there is no stdio loop to run.
	if opts.transport == "http" && opts.httpAddr == "" {
		opts.httpAddr = cfg.Server.HTTPAddr
	}

	if opts.httpAddr == "" {
		return srv.Serve(ctx, opts.transport)
	}

	api, err := httpapi.NewServer(prober, detector, cfg)
	if err != nil {
		return fmt.Errorf("create HTTP server: %w", err)
	}
	if store != nil {
		api.SetHistory(store)
	}

	if opts.transport == "http" {
		return api.Serve(ctx, opts.httpAddr)
	}

	// Run both transports; the first to fail tears the other down.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return api.Serve(gctx, opts.httpAddr)
	})
	g.Go(func() error {
		return srv.Serve(gctx, opts.transport)
	})
	return g.Wait()
}

// verifyStdinForMCP checks that stdin is a pipe, not a terminal. MCP
// clients launch the server with stdin/stdout connected to the JSON-RPC
// stream; running it interactively would just hang waiting for input.
func verifyStdinForMCP() error {
	fd := os.Stdin.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return fmt.Errorf("stdin is a terminal, not a pipe: the MCP server expects " +
			"to be launched by an MCP client; use 'runready report' for a one-shot " +
			"check or 'runready doctor' for diagnostics")
	}
	return nil
}
