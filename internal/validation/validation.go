// Package validation provides the scenario harness used to dogfood the
// MCP tool surface end to end: each scenario lays out a throwaway
// project, calls a real tool handler, and checks the returned text.
//
// Scenarios are data-driven, loaded from testdata/scenarios.yaml, so
// detection rules and report wording can be pinned down (or extended)
// without rebuilding the harness. Verdict scenarios assume the GPU
// probe is disabled and no memory floor is configured; the tests pin
// both before constructing a Validator.
package validation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/runready/runready/internal/config"
	"github.com/runready/runready/internal/gpu"
	"github.com/runready/runready/internal/heavy"
	"github.com/runready/runready/internal/mcp"
	"github.com/runready/runready/internal/sysinfo"
)

// Scenario defines one tool invocation with its fixture and the
// substrings the output must (and must not) contain.
type Scenario struct {
	ID       string            `yaml:"id"`        // e.g. "R-03"
	Name     string            `yaml:"name"`      // Human-readable name
	Tool     string            `yaml:"tool"`      // MCP tool to call
	Files    map[string]string `yaml:"files"`     // Fixture files, path -> content
	Args     map[string]any    `yaml:"args"`      // Tool arguments; override the fixture path
	OmitPath bool              `yaml:"omit_path"` // Do not inject the fixture dir as project_path
	Expect   []string          `yaml:"expect"`    // Substrings that must appear in the output
	Reject   []string          `yaml:"reject"`    // Substrings that must not appear
	WantErr  bool              `yaml:"want_err"`  // The call itself must fail
	Notes    string            `yaml:"notes"`     // Optional explanation for maintainers
}

// ScenarioConfig holds all validation scenarios loaded from YAML.
type ScenarioConfig struct {
	Readiness []Scenario `yaml:"readiness"`
	Detection []Scenario `yaml:"detection"`
	Negative  []Scenario `yaml:"negative"`
}

var (
	scenariosOnce sync.Once
	scenariosData *ScenarioConfig
	scenariosErr  error
)

// LoadScenarios loads validation scenarios from testdata/scenarios.yaml.
// Results are cached after first load (singleton pattern).
func LoadScenarios() (*ScenarioConfig, error) {
	scenariosOnce.Do(func() {
		_, filename, _, ok := runtime.Caller(0)
		if !ok {
			scenariosErr = fmt.Errorf("failed to get current file path")
			return
		}

		path := filepath.Join(filepath.Dir(filename), "testdata", "scenarios.yaml")
		data, err := os.ReadFile(path)
		if err != nil {
			scenariosErr = fmt.Errorf("failed to read scenarios file %s: %w", path, err)
			return
		}

		var cfg ScenarioConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			scenariosErr = fmt.Errorf("failed to parse scenarios YAML: %w", err)
			return
		}

		scenariosData = &cfg
	})

	return scenariosData, scenariosErr
}

// ResetScenarios clears the cached scenarios (for testing).
func ResetScenarios() {
	scenariosOnce = sync.Once{}
	scenariosData = nil
	scenariosErr = nil
}

// ReadinessScenarios returns the full-report scenarios.
func ReadinessScenarios() []Scenario {
	cfg, err := LoadScenarios()
	if err != nil {
		return nil
	}
	return cfg.Readiness
}

// DetectionScenarios returns the single-tool detection scenarios.
func DetectionScenarios() []Scenario {
	cfg, err := LoadScenarios()
	if err != nil {
		return nil
	}
	return cfg.Detection
}

// NegativeScenarios returns scenarios exercising invalid input.
func NegativeScenarios() []Scenario {
	cfg, err := LoadScenarios()
	if err != nil {
		return nil
	}
	return cfg.Negative
}

// ScenarioResult captures the outcome of a single scenario.
type ScenarioResult struct {
	Scenario  Scenario      `json:"scenario"`
	Passed    bool          `json:"passed"`
	Duration  time.Duration `json:"duration_ms"`
	Output    []string      `json:"output"`              // Text contents the tool returned
	Missing   []string      `json:"missing,omitempty"`   // Expect substrings not found
	Forbidden []string      `json:"forbidden,omitempty"` // Reject substrings that appeared
	Error     string        `json:"error,omitempty"`
}

// Summary captures results of a full validation run.
type Summary struct {
	Timestamp     time.Time        `json:"timestamp"`
	Readiness     []ScenarioResult `json:"readiness"`
	Detection     []ScenarioResult `json:"detection"`
	Negative      []ScenarioResult `json:"negative"`
	ReadinessPass int              `json:"readiness_pass"`
	ReadinessTot  int              `json:"readiness_total"`
	DetectionPass int              `json:"detection_pass"`
	DetectionTot  int              `json:"detection_total"`
	NegativePass  int              `json:"negative_pass"`
	NegativeTot   int              `json:"negative_total"`
}

// Validator runs scenarios against a real MCP server instance.
type Validator struct {
	server  *mcp.Server
	baseDir string
}

// NewValidator creates a validator backed by a freshly built server
// stack. A nil cfg uses defaults. Fixture projects are laid out under a
// private temp directory; Close removes it.
func NewValidator(cfg *config.Config) (*Validator, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}

	prober := sysinfo.NewInspector(gpu.New())

	rules, err := heavy.LoadRuleset(cfg.Analyzer.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("load ruleset: %w", err)
	}
	detector, err := heavy.NewDetector(rules, cfg)
	if err != nil {
		return nil, fmt.Errorf("create detector: %w", err)
	}

	server, err := mcp.NewServer(prober, detector, cfg)
	if err != nil {
		return nil, fmt.Errorf("create MCP server: %w", err)
	}

	baseDir, err := os.MkdirTemp("", "runready-validation-")
	if err != nil {
		return nil, fmt.Errorf("create fixture dir: %w", err)
	}

	return &Validator{server: server, baseDir: baseDir}, nil
}

// Close removes the fixture directory.
func (v *Validator) Close() error {
	return os.RemoveAll(v.baseDir)
}

// RunScenario lays out the scenario's fixture, executes the tool call,
// and scores the output.
func (v *Validator) RunScenario(ctx context.Context, spec Scenario) ScenarioResult {
	result := ScenarioResult{Scenario: spec}

	fixtureDir, err := v.writeFixture(spec)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	args := map[string]any{}
	if !spec.OmitPath {
		args["project_path"] = fixtureDir
	}
	for k, val := range spec.Args {
		args[k] = val
	}

	start := time.Now()
	output, err := v.server.CallTool(ctx, spec.Tool, args)
	result.Duration = time.Since(start)
	result.Output = output

	if err != nil {
		result.Error = err.Error()
		result.Passed = spec.WantErr
		return result
	}
	if spec.WantErr {
		// The call was supposed to fail and didn't.
		return result
	}

	result.Missing, result.Forbidden = checkOutput(output, spec.Expect, spec.Reject)
	result.Passed = len(result.Missing) == 0 && len(result.Forbidden) == 0
	return result
}

// RunAll executes every scenario section and aggregates pass counts.
func (v *Validator) RunAll(ctx context.Context) *Summary {
	summary := &Summary{Timestamp: time.Now()}

	for _, spec := range ReadinessScenarios() {
		sr := v.RunScenario(ctx, spec)
		summary.Readiness = append(summary.Readiness, sr)
		summary.ReadinessTot++
		if sr.Passed {
			summary.ReadinessPass++
		}
	}

	for _, spec := range DetectionScenarios() {
		sr := v.RunScenario(ctx, spec)
		summary.Detection = append(summary.Detection, sr)
		summary.DetectionTot++
		if sr.Passed {
			summary.DetectionPass++
		}
	}

	for _, spec := range NegativeScenarios() {
		sr := v.RunScenario(ctx, spec)
		summary.Negative = append(summary.Negative, sr)
		summary.NegativeTot++
		if sr.Passed {
			summary.NegativePass++
		}
	}

	return summary
}

// writeFixture materializes the scenario's files under a per-scenario
// directory. Rerunning a scenario overwrites its previous fixture.
func (v *Validator) writeFixture(spec Scenario) (string, error) {
	dir := filepath.Join(v.baseDir, sanitizeID(spec.ID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create fixture dir: %w", err)
	}

	for name, content := range spec.Files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", fmt.Errorf("create fixture subdir: %w", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return "", fmt.Errorf("write fixture file %s: %w", name, err)
		}
	}

	return dir, nil
}

// sanitizeID makes a scenario ID safe to use as a directory name.
func sanitizeID(id string) string {
	if id == "" {
		return "scenario"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}

// checkOutput scores the joined tool output against the expect/reject
// substring lists.
func checkOutput(output, expect, reject []string) (missing, forbidden []string) {
	joined := strings.Join(output, "\n")
	for _, want := range expect {
		if !strings.Contains(joined, want) {
			missing = append(missing, want)
		}
	}
	for _, bad := range reject {
		if strings.Contains(joined, bad) {
			forbidden = append(forbidden, bad)
		}
	}
	return missing, forbidden
}
