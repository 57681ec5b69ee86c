package preflight

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/runready/runready/internal/config"
	"github.com/runready/runready/internal/heavy"
	"github.com/runready/runready/internal/manifest"
	"github.com/runready/runready/internal/sysinfo"
)

// CheckStatus classifies the outcome of one preflight check: pass,
// warn or fail.
type CheckStatus int

const (
	StatusPass CheckStatus = iota
	StatusWarn
	StatusFail
)

var statusNames = [...]string{
	StatusPass: "PASS",
	StatusWarn: "WARN",
	StatusFail: "FAIL",
}

func (s CheckStatus) String() string {
	if s >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "UNKNOWN"
}

// CheckResult holds the result of a single preflight check.
type CheckResult struct {
	Name     string      `json:"name"`
	Status   CheckStatus `json:"status"`
	Message  string      `json:"message"`
	Details  string      `json:"details,omitempty"`
	Required bool        `json:"required"`
}

// IsCritical reports whether this failure must block startup.
func (r CheckResult) IsCritical() bool { return r.Required && r.Status == StatusFail }

// Prober supplies host snapshots for the memory and GPU checks.
type Prober interface {
	Snapshot(ctx context.Context) (*sysinfo.Snapshot, error)
}

// Checker performs preflight validation checks.
type Checker struct {
	dataDir     string
	projectPath string
	cfg         *config.Config
	prober      Prober
	verbose     bool
	output      io.Writer
}

// Option configures a Checker.
type Option func(*Checker)

// WithDataDir sets the state directory checked for writability and
// disk space.
func WithDataDir(dir string) Option {
	return func(c *Checker) { c.dataDir = dir }
}

// WithProjectPath adds an informational check naming the project at
// the given path.
func WithProjectPath(path string) Option {
	return func(c *Checker) { c.projectPath = path }
}

// WithConfig sets the configuration to validate.
func WithConfig(cfg *config.Config) Option {
	return func(c *Checker) {
		if cfg != nil {
			c.cfg = cfg
		}
	}
}

// WithProber sets the host prober backing the memory and GPU checks.
func WithProber(p Prober) Option {
	return func(c *Checker) { c.prober = p }
}

// WithVerbose enables per-check details in printed output.
func WithVerbose(verbose bool) Option {
	return func(c *Checker) { c.verbose = verbose }
}

// WithOutput sets the writer PrintResults reports to.
func WithOutput(w io.Writer) Option {
	return func(c *Checker) { c.output = w }
}

// New creates a new Checker with the given options.
func New(opts ...Option) *Checker {
	c := &Checker{
		dataDir: config.DefaultDataDir(),
		cfg:     config.NewConfig(),
		output:  os.Stdout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunAll runs every preflight check and returns the results. The data
// dir check runs first so the disk check can inspect the directory it
// creates; the project check, when configured, comes last.
func (c *Checker) RunAll(ctx context.Context) []CheckResult {
	snap := c.snapshot(ctx)

	results := []CheckResult{
		c.CheckDataDir(),
		c.CheckDiskSpace(),
		c.CheckMemory(snap),
		c.CheckGPU(snap),
		c.CheckConfig(),
		c.CheckRules(),
		c.CheckFileDescriptors(),
	}
	if c.projectPath != "" {
		results = append(results, c.CheckProject())
	}
	return results
}

// snapshot probes the host once, shared by the memory and GPU checks.
// A failed probe degrades those checks to warnings.
func (c *Checker) snapshot(ctx context.Context) *sysinfo.Snapshot {
	if c.prober == nil {
		return nil
	}
	snap, err := c.prober.Snapshot(ctx)
	if err != nil {
		return nil
	}
	return snap
}

// HasCriticalFailures reports whether any required check failed.
func (c *Checker) HasCriticalFailures(results []CheckResult) bool {
	return slices.ContainsFunc(results, CheckResult.IsCritical)
}

// SummaryStatus folds results into a single verdict: "ready",
// "ready_with_warnings" or "failed".
func (c *Checker) SummaryStatus(results []CheckResult) string {
	status := "ready"
	for _, r := range results {
		if r.IsCritical() {
			return "failed"
		}
		if r.Status != StatusPass {
			status = "ready_with_warnings"
		}
	}
	return status
}

// PrintResults writes a human-readable report to the configured
// output.
func (c *Checker) PrintResults(results []CheckResult) {
	_, _ = fmt.Fprintln(c.output, "RunReady System Check")
	_, _ = fmt.Fprintln(c.output, "=====================")
	_, _ = fmt.Fprintln(c.output)

	for _, r := range results {
		_, _ = fmt.Fprintf(c.output, "[%s] %s: %s\n", r.Status, r.Name, r.Message)
		if c.verbose && r.Details != "" {
			_, _ = fmt.Fprintf(c.output, "      %s\n", r.Details)
		}
	}

	_, _ = fmt.Fprintf(c.output, "\nStatus: %s\n", strings.ToUpper(c.SummaryStatus(results)))

	var failures, warnings []string
	for _, r := range results {
		switch {
		case r.IsCritical():
			failures = append(failures, r.Name+": "+r.Message)
		case r.Status == StatusWarn:
			warnings = append(warnings, r.Name+": "+r.Message)
		}
	}
	printIssueList(c.output, "error", failures)
	printIssueList(c.output, "warning", warnings)
}

func printIssueList(w io.Writer, kind string, issues []string) {
	if len(issues) == 0 {
		return
	}
	_, _ = fmt.Fprintf(w, "\n%d %s(s):\n", len(issues), kind)
	for _, issue := range issues {
		_, _ = fmt.Fprintf(w, "  - %s\n", issue)
	}
}

// CheckDataDir checks the state directory exists and is writable. The
// history database and preflight marker live there.
func (c *Checker) CheckDataDir() CheckResult {
	result := CheckResult{Name: "data_dir", Required: true}

	if err := os.MkdirAll(c.dataDir, 0755); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot create %s: %v", c.dataDir, err)
		return result
	}

	probe := filepath.Join(c.dataDir, ".runready-preflight-test")
	f, err := os.Create(probe)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("not writable: %v", err)
		return result
	}
	_ = f.Close()
	_ = os.Remove(probe)

	result.Status = StatusPass
	result.Message = c.dataDir
	return result
}

// CheckConfig validates the effective configuration.
func (c *Checker) CheckConfig() CheckResult {
	result := CheckResult{Name: "config", Required: true}

	if err := c.cfg.Validate(); err != nil {
		result.Status = StatusFail
		result.Message = err.Error()
		return result
	}

	result.Status = StatusPass
	result.Message = "OK"
	return result
}

// CheckRules verifies the detection ruleset loads.
func (c *Checker) CheckRules() CheckResult {
	result := CheckResult{Name: "rules", Required: true}

	rules, err := heavy.LoadRuleset(c.cfg.Analyzer.RulesFile)
	if err != nil {
		result.Status = StatusFail
		result.Message = err.Error()
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%d manifest + %d source rules", len(rules.ManifestRules), len(rules.SourceRules))
	if c.cfg.Analyzer.RulesFile != "" {
		result.Details = c.cfg.Analyzer.RulesFile
	}
	return result
}

// CheckGPU reports GPU availability. Informational: a CPU-only host is
// a valid analysis target.
func (c *Checker) CheckGPU(snap *sysinfo.Snapshot) CheckResult {
	result := CheckResult{Name: "gpu"}

	if snap == nil {
		result.Status = StatusWarn
		result.Message = "host probe unavailable"
		return result
	}

	result.Status = StatusPass
	result.Message = snap.GPU.Description
	return result
}

// CheckProject reports what project the analyzer sees at the target
// path.
func (c *Checker) CheckProject() CheckResult {
	info := manifest.DetectProject(c.projectPath)
	return CheckResult{
		Name:    "project",
		Status:  StatusPass,
		Message: fmt.Sprintf("%s (%s)", info.Name, info.Type),
		Details: info.RootPath,
	}
}
