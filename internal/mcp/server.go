package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/runready/runready/internal/config"
	"github.com/runready/runready/internal/heavy"
	"github.com/runready/runready/internal/history"
	"github.com/runready/runready/internal/manifest"
	"github.com/runready/runready/internal/readiness"
	"github.com/runready/runready/pkg/version"
)

// Server is the MCP server for RunReady.
// It exposes the readiness checks to AI clients (Claude Code, Cursor) as
// four tools over stdio.
type Server struct {
	mcp      *mcp.Server
	prober   readiness.Prober
	detector *heavy.Detector
	composer *readiness.Composer
	logger   *slog.Logger

	// Run history (optional, set via SetHistory)
	history *history.Store

	mu sync.RWMutex
}

// ToolInfo names a wire tool and carries its client-facing description.
type ToolInfo struct {
	Name        string
	Description string
}

// Wire tool specs. Registration and ListTools read the same entries, so
// the advertised catalog can never drift from what is actually served.
var (
	resourcesTool = &mcp.Tool{
		Name:        "check_system_resources",
		Description: "Check CPU, RAM, disk space and GPU availability on local machine",
	}
	dependenciesTool = &mcp.Tool{
		Name:        "analyze_project_dependencies",
		Description: "Analyze project dependencies from requirements.txt or package.json",
	}
	heavyTool = &mcp.Tool{
		Name:        "detect_heavy_requirements",
		Description: "Detect ML/AI frameworks and estimate resource requirements",
	}
	reportTool = &mcp.Tool{
		Name:        "generate_readiness_report",
		Description: "Generate comprehensive readiness assessment report",
	}
)

// NewServer wires the readiness tooling into an MCP server. The prober
// supplies host facts and the detector scans projects for heavy
// computational requirements; the readiness composer is built from both.
func NewServer(prober readiness.Prober, detector *heavy.Detector, cfg *config.Config) (*Server, error) {
	if prober == nil {
		return nil, errors.New("host prober is required")
	}
	if detector == nil {
		return nil, errors.New("heavy detector is required")
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}

	s := &Server{
		prober:   prober,
		detector: detector,
		composer: readiness.NewComposer(prober, detector, cfg),
		logger:   slog.Default(),
	}
	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    "runready",
		Title:   "RunReady",
		Version: version.Version,
	}, nil)
	s.registerTools()

	return s, nil
}

// SetHistory attaches a run history store. When set, every readiness
// report records one run.
func (s *Server) SetHistory(store *history.Store) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = store
}

// MCPServer exposes the underlying SDK server, for transports that
// mount it directly.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return "runready", version.Version
}

// ListTools returns the advertised tool catalog, in registration order.
func (s *Server) ListTools() []ToolInfo {
	tools := []*mcp.Tool{resourcesTool, dependenciesTool, heavyTool, reportTool}
	infos := make([]ToolInfo, 0, len(tools))
	for _, tl := range tools {
		infos = append(infos, ToolInfo{Name: tl.Name, Description: tl.Description})
	}
	return infos
}

// CallTool invokes a tool by name with the given arguments.
// The result is the ordered list of text contents the tool emits over
// the wire, one element per content item.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) ([]string, error) {
	switch name {
	case resourcesTool.Name:
		return s.handleResourcesTool(ctx)
	case dependenciesTool.Name:
		return s.handleDependenciesTool(ctx, args)
	case heavyTool.Name:
		return s.handleHeavyTool(ctx, args)
	case reportTool.Name:
		return s.handleReportTool(ctx, args)
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

// handleResourcesTool answers check_system_resources. Probe failures
// degrade to the check's own error sentence instead of a protocol error.
func (s *Server) handleResourcesTool(ctx context.Context) ([]string, error) {
	start := time.Now()
	requestID := generateRequestID()

	s.logger.Info("check_system_resources started",
		slog.String("request_id", requestID))

	snap, err := s.prober.Snapshot(ctx)
	duration := time.Since(start)

	if err != nil {
		s.logger.Warn("check_system_resources degraded",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return []string{readiness.ResourceErrorText(err)}, nil
	}

	s.logger.Info("check_system_resources completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", duration))

	return []string{readiness.ResourcesText(snap, nil)}, nil
}

// handleDependenciesTool answers analyze_project_dependencies. Read
// failures degrade to the check's own error sentence.
func (s *Server) handleDependenciesTool(ctx context.Context, args map[string]any) ([]string, error) {
	start := time.Now()
	requestID := generateRequestID()

	projectPath, err := projectPathArg(args)
	if err != nil {
		return nil, err
	}

	s.logger.Info("analyze_project_dependencies started",
		slog.String("request_id", requestID),
		slog.String("project_path", projectPath))

	deps, readErr := manifest.Read(projectPath)
	duration := time.Since(start)

	if readErr != nil {
		s.logger.Warn("analyze_project_dependencies degraded",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", readErr.Error()))
		return []string{readiness.DependencyErrorText(readErr)}, nil
	}

	s.logger.Info("analyze_project_dependencies completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", duration),
		slog.Int("package_count", len(deps.PythonPackages)+len(deps.NodePackages)))

	return []string{readiness.DependenciesText(deps, nil)}, nil
}

// handleHeavyTool answers detect_heavy_requirements: one text content
// per finding, or the no-findings sentinel.
func (s *Server) handleHeavyTool(ctx context.Context, args map[string]any) ([]string, error) {
	start := time.Now()
	requestID := generateRequestID()

	projectPath, err := projectPathArg(args)
	if err != nil {
		return nil, err
	}

	s.logger.Info("detect_heavy_requirements started",
		slog.String("request_id", requestID),
		slog.String("project_path", projectPath))

	result, err := s.detector.Detect(ctx, projectPath)
	duration := time.Since(start)

	if err != nil {
		s.logger.Error("detect_heavy_requirements failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	s.logger.Info("detect_heavy_requirements completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", duration),
		slog.Int("finding_count", len(result.Findings)))

	return result.Lines(), nil
}

// handleReportTool answers generate_readiness_report. The contents
// interleave section headers with each section's entries and the verdict
// closes the list. An attached history store records the run.
func (s *Server) handleReportTool(ctx context.Context, args map[string]any) ([]string, error) {
	start := time.Now()
	requestID := generateRequestID()

	projectPath, err := projectPathArg(args)
	if err != nil {
		return nil, err
	}

	s.logger.Info("generate_readiness_report started",
		slog.String("request_id", requestID),
		slog.String("project_path", projectPath))

	report, err := s.composer.Compose(ctx, projectPath)
	duration := time.Since(start)

	if err != nil {
		s.logger.Error("generate_readiness_report failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	s.logger.Info("generate_readiness_report completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", duration),
		slog.Bool("ready", report.Verdict.Ready),
		slog.Int("issue_count", len(report.Verdict.Issues)))

	s.recordRun(ctx, requestID, projectPath, report, duration)

	return flattenSections(report.Sections()), nil
}

// recordRun appends the report outcome to the run history, when a store
// is attached. Failures are logged and swallowed: audit must not break
// reporting.
func (s *Server) recordRun(ctx context.Context, requestID, projectPath string, report *readiness.Report, duration time.Duration) {
	s.mu.RLock()
	store := s.history
	s.mu.RUnlock()

	if store == nil {
		return
	}

	run := &history.Run{
		ProjectPath:  projectPath,
		Ready:        report.Verdict.Ready,
		Issues:       report.Verdict.Issues,
		FindingCount: len(report.Heavy.Findings),
		DurationMS:   duration.Milliseconds(),
	}
	if report.Dependencies != nil {
		run.DependencyCount = len(report.Dependencies.PythonPackages) + len(report.Dependencies.NodePackages)
	}

	if err := store.Record(ctx, run); err != nil {
		s.logger.Warn("history record failed",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
		return
	}

	s.logger.Debug("history recorded",
		slog.String("request_id", requestID),
		slog.String("run_id", run.ID))
}

// projectPathArg extracts and validates the required project_path argument.
func projectPathArg(args map[string]any) (string, error) {
	projectPath, ok := args["project_path"].(string)
	if !ok || projectPath == "" {
		return "", NewInvalidParamsError("project_path parameter is required and must be a non-empty string")
	}
	if strings.TrimSpace(projectPath) == "" {
		return "", NewInvalidParamsError("project_path cannot be empty or whitespace only")
	}
	return projectPath, nil
}

// flattenSections interleaves section headers with their entries, the
// shape the report tool emits over the wire.
func flattenSections(sections []readiness.Section) []string {
	var texts []string
	for _, sec := range sections {
		texts = append(texts, sec.Header)
		texts = append(texts, sec.Lines...)
	}
	return texts
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, resourcesTool, s.mcpResourcesHandler)
	mcp.AddTool(s.mcp, dependenciesTool, s.mcpDependenciesHandler)
	mcp.AddTool(s.mcp, heavyTool, s.mcpHeavyHandler)
	mcp.AddTool(s.mcp, reportTool, s.mcpReportHandler)

	s.logger.Info("MCP tools registered", slog.Int("count", 4))
}

// The mcp*Handler methods adapt the typed SDK entry points onto the
// CallTool handlers above, so stdio clients and direct callers run the
// identical code path.

func (s *Server) mcpResourcesHandler(ctx context.Context, _ *mcp.CallToolRequest, _ ResourcesInput) (*mcp.CallToolResult, any, error) {
	return wrapTexts(s.handleResourcesTool(ctx))
}

func (s *Server) mcpDependenciesHandler(ctx context.Context, _ *mcp.CallToolRequest, input DependenciesInput) (*mcp.CallToolResult, any, error) {
	return wrapTexts(s.handleDependenciesTool(ctx, map[string]any{"project_path": input.ProjectPath}))
}

func (s *Server) mcpHeavyHandler(ctx context.Context, _ *mcp.CallToolRequest, input HeavyInput) (*mcp.CallToolResult, any, error) {
	return wrapTexts(s.handleHeavyTool(ctx, map[string]any{"project_path": input.ProjectPath}))
}

func (s *Server) mcpReportHandler(ctx context.Context, _ *mcp.CallToolRequest, input ReportInput) (*mcp.CallToolResult, any, error) {
	return wrapTexts(s.handleReportTool(ctx, map[string]any{"project_path": input.ProjectPath}))
}

// wrapTexts adapts a handler's text list onto the SDK result triple,
// one content item per entry.
func wrapTexts(texts []string, err error) (*mcp.CallToolResult, any, error) {
	if err != nil {
		return nil, nil, err
	}
	contents := make([]mcp.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, &mcp.TextContent{Text: t})
	}
	return &mcp.CallToolResult{Content: contents}, nil, nil
}

// Serve runs the server over the named transport until ctx ends. Only
// stdio is spoken here; the HTTP surface is a separate server.
func (s *Server) Serve(ctx context.Context, transport string) error {
	if transport != "stdio" {
		return fmt.Errorf("unsupported transport %q (stdio only)", transport)
	}

	s.logger.Info("MCP server listening", slog.String("transport", transport))

	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("MCP server stopped", slog.String("error", err.Error()))
	} else {
		s.logger.Info("MCP server stopped")
	}
	return err
}

// Close is a no-op today: the SDK server stops when its run context
// ends. It exists so callers can treat the server like any other
// closable resource.
func (s *Server) Close() error {
	return nil
}

// generateRequestID returns a short random hex tag that ties together
// the log lines of one tool call.
func generateRequestID() string {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
