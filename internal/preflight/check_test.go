package preflight

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runready/runready/internal/config"
	"github.com/runready/runready/internal/gpu"
	"github.com/runready/runready/internal/sysinfo"
)

// stubProber implements Prober for testing.
type stubProber struct {
	snap *sysinfo.Snapshot
	err  error
}

func (p *stubProber) Snapshot(_ context.Context) (*sysinfo.Snapshot, error) {
	return p.snap, p.err
}

// Ensure stubProber implements Prober
var _ Prober = (*stubProber)(nil)

// healthySnapshot reports a machine with plenty of memory and no GPU.
func healthySnapshot() *sysinfo.Snapshot {
	physical := 4
	return &sysinfo.Snapshot{
		CPU: sysinfo.CPU{
			PhysicalCores:   &physical,
			LogicalCores:    8,
			MaxFrequencyMHz: sysinfo.Frequency{MHz: 3600, Known: true},
		},
		Memory: sysinfo.Memory{
			TotalGB:     16.0,
			AvailableGB: 8.0,
			PercentUsed: 50.0,
		},
		Disk: sysinfo.Disk{
			TotalGB:     500.0,
			FreeGB:      250.0,
			PercentUsed: 50.0,
		},
		GPU: gpu.Info{Available: false, Description: gpu.NoGPUInfo},
		Platform: sysinfo.Platform{
			System:         "Linux",
			Machine:        "x86_64",
			RuntimeVersion: "go1.25.5",
		},
	}
}

func TestCheckStatus_String(t *testing.T) {
	tests := []struct {
		status CheckStatus
		want   string
	}{
		{StatusPass, "PASS"},
		{StatusWarn, "WARN"},
		{StatusFail, "FAIL"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.String())
		})
	}
}

func TestCheckResult_IsCritical(t *testing.T) {
	tests := []struct {
		name     string
		result   CheckResult
		expected bool
	}{
		{
			name:     "required pass is not critical",
			result:   CheckResult{Status: StatusPass, Required: true},
			expected: false,
		},
		{
			name:     "required fail is critical",
			result:   CheckResult{Status: StatusFail, Required: true},
			expected: true,
		},
		{
			name:     "optional fail is not critical",
			result:   CheckResult{Status: StatusFail, Required: false},
			expected: false,
		},
		{
			name:     "required warn is not critical",
			result:   CheckResult{Status: StatusWarn, Required: true},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.result.IsCritical())
		})
	}
}

func TestChecker_New(t *testing.T) {
	// Given: default options
	checker := New()

	// Then: checker is created with defaults
	assert.NotNil(t, checker)
	assert.False(t, checker.verbose)
	assert.NotEmpty(t, checker.dataDir)
	assert.NotNil(t, checker.cfg)
	assert.Nil(t, checker.prober)
}

func TestChecker_NewWithOptions(t *testing.T) {
	// Given: custom options
	buf := &bytes.Buffer{}
	prober := &stubProber{snap: healthySnapshot()}
	checker := New(
		WithDataDir("/tmp/runready-test"),
		WithProjectPath("/tmp/project"),
		WithProber(prober),
		WithVerbose(true),
		WithOutput(buf),
	)

	// Then: options are applied
	assert.Equal(t, "/tmp/runready-test", checker.dataDir)
	assert.Equal(t, "/tmp/project", checker.projectPath)
	assert.Equal(t, prober, checker.prober)
	assert.True(t, checker.verbose)
	assert.Equal(t, buf, checker.output)
}

func TestChecker_HasCriticalFailures(t *testing.T) {
	checker := New()

	tests := []struct {
		name     string
		results  []CheckResult
		expected bool
	}{
		{
			name:     "no results",
			results:  []CheckResult{},
			expected: false,
		},
		{
			name: "all pass",
			results: []CheckResult{
				{Status: StatusPass, Required: true},
				{Status: StatusPass, Required: true},
			},
			expected: false,
		},
		{
			name: "warning only",
			results: []CheckResult{
				{Status: StatusPass, Required: true},
				{Status: StatusWarn, Required: false},
			},
			expected: false,
		},
		{
			name: "optional failure",
			results: []CheckResult{
				{Status: StatusPass, Required: true},
				{Status: StatusFail, Required: false},
			},
			expected: false,
		},
		{
			name: "required failure",
			results: []CheckResult{
				{Status: StatusPass, Required: true},
				{Status: StatusFail, Required: true},
			},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, checker.HasCriticalFailures(tt.results))
		})
	}
}

func TestChecker_CheckDataDir_Writable(t *testing.T) {
	// Given: a writable state directory
	tmpDir := t.TempDir()

	// When: checking the data dir
	checker := New(WithDataDir(filepath.Join(tmpDir, "state")))
	result := checker.CheckDataDir()

	// Then: passes and the directory was created
	assert.Equal(t, StatusPass, result.Status)
	assert.Equal(t, "data_dir", result.Name)
	assert.True(t, result.Required)
	assert.DirExists(t, filepath.Join(tmpDir, "state"))
}

func TestChecker_CheckDataDir_ReadOnly(t *testing.T) {
	// Given: a read-only parent directory (skip on CI/root)
	if os.Getuid() == 0 {
		t.Skip("Skipping read-only test when running as root")
	}

	tmpDir := t.TempDir()
	readOnlyDir := filepath.Join(tmpDir, "readonly")
	require.NoError(t, os.Mkdir(readOnlyDir, 0555))
	defer func() { _ = os.Chmod(readOnlyDir, 0755) }() // Restore for cleanup

	// When: checking a data dir under the read-only parent
	checker := New(WithDataDir(filepath.Join(readOnlyDir, "state")))
	result := checker.CheckDataDir()

	// Then: fails
	assert.Equal(t, StatusFail, result.Status)
}

func TestChecker_CheckDiskSpace_Passes(t *testing.T) {
	// Given: a state directory on a normal filesystem
	checker := New(WithDataDir(t.TempDir()))

	// When: checking disk space
	result := checker.CheckDiskSpace()

	// Then: passes with a free-space message
	assert.Equal(t, StatusPass, result.Status)
	assert.Equal(t, "disk_space", result.Name)
	assert.Contains(t, result.Message, "free (minimum: 100 MB)")
}

func TestChecker_CheckMemory_Passes(t *testing.T) {
	// Given: a snapshot with 8 GB available
	checker := New()

	// When: checking memory
	result := checker.CheckMemory(healthySnapshot())

	// Then: passes with the measured amount
	assert.Equal(t, StatusPass, result.Status)
	assert.Equal(t, "memory", result.Name)
	assert.Equal(t, "8.0 GB available (minimum: 1 GB)", result.Message)
}

func TestChecker_CheckMemory_FailsBelowMinimum(t *testing.T) {
	// Given: a snapshot with almost no memory left
	snap := healthySnapshot()
	snap.Memory.AvailableGB = 0.5

	// When: checking memory
	checker := New()
	result := checker.CheckMemory(snap)

	// Then: fails critically
	assert.Equal(t, StatusFail, result.Status)
	assert.True(t, result.IsCritical())
	assert.Equal(t, "0.5 GB available (minimum: 1 GB)", result.Message)
}

func TestChecker_CheckMemory_NilSnapshotWarns(t *testing.T) {
	// Given: no host snapshot (probe failed or no prober configured)
	checker := New()

	// When: checking memory
	result := checker.CheckMemory(nil)

	// Then: warns instead of blocking startup
	assert.Equal(t, StatusWarn, result.Status)
	assert.Equal(t, "host probe unavailable", result.Message)
	assert.False(t, result.IsCritical())
}

func TestChecker_CheckGPU_ReportsDescription(t *testing.T) {
	tests := []struct {
		name string
		info gpu.Info
		want string
	}{
		{
			name: "no gpu",
			info: gpu.Info{Available: false, Description: gpu.NoGPUInfo},
			want: "No GPU detected",
		},
		{
			name: "cuda gpu",
			info: gpu.Info{Available: true, Description: "CUDA available: Test Device"},
			want: "CUDA available: Test Device",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := healthySnapshot()
			snap.GPU = tt.info

			checker := New()
			result := checker.CheckGPU(snap)

			assert.Equal(t, StatusPass, result.Status)
			assert.Equal(t, "gpu", result.Name)
			assert.False(t, result.Required)
			assert.Equal(t, tt.want, result.Message)
		})
	}
}

func TestChecker_CheckGPU_NilSnapshotWarns(t *testing.T) {
	checker := New()
	result := checker.CheckGPU(nil)

	assert.Equal(t, StatusWarn, result.Status)
	assert.Equal(t, "host probe unavailable", result.Message)
	assert.False(t, result.IsCritical())
}

func TestChecker_CheckConfig_ValidPasses(t *testing.T) {
	checker := New(WithConfig(config.NewConfig()))
	result := checker.CheckConfig()

	assert.Equal(t, StatusPass, result.Status)
	assert.Equal(t, "config", result.Name)
	assert.Equal(t, "OK", result.Message)
}

func TestChecker_CheckConfig_InvalidFails(t *testing.T) {
	// Given: a config with a negative memory threshold
	cfg := config.NewConfig()
	cfg.Analyzer.MinMemoryGB = -1

	// When: checking the config
	checker := New(WithConfig(cfg))
	result := checker.CheckConfig()

	// Then: fails critically with the validation error
	assert.Equal(t, StatusFail, result.Status)
	assert.True(t, result.IsCritical())
	assert.Contains(t, result.Message, "min_memory_gb")
}

func TestChecker_CheckRules_DefaultRulesetLoads(t *testing.T) {
	checker := New()
	result := checker.CheckRules()

	assert.Equal(t, StatusPass, result.Status)
	assert.Equal(t, "rules", result.Name)
	assert.Contains(t, result.Message, "manifest")
	assert.Contains(t, result.Message, "source rules")
	assert.Empty(t, result.Details, "default ruleset should not report a file path")
}

func TestChecker_CheckRules_MissingFileFails(t *testing.T) {
	// Given: a config pointing at a nonexistent rules file
	cfg := config.NewConfig()
	cfg.Analyzer.RulesFile = filepath.Join(t.TempDir(), "missing.yaml")

	// When: checking rules
	checker := New(WithConfig(cfg))
	result := checker.CheckRules()

	// Then: fails critically
	assert.Equal(t, StatusFail, result.Status)
	assert.True(t, result.IsCritical())
}

func TestChecker_CheckProject_ReportsNameAndType(t *testing.T) {
	// Given: a Python project
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "requirements.txt"), []byte("torch\n"), 0644))

	// When: checking the project
	checker := New(WithProjectPath(tmpDir))
	result := checker.CheckProject()

	// Then: reports name and type informationally
	assert.Equal(t, StatusPass, result.Status)
	assert.Equal(t, "project", result.Name)
	assert.False(t, result.Required)
	assert.Contains(t, result.Message, "(python)")
	assert.Equal(t, tmpDir, result.Details)
}

func TestChecker_RunAll_ReturnsAllChecks(t *testing.T) {
	// Given: a valid state directory and a healthy host
	checker := New(
		WithDataDir(t.TempDir()),
		WithProber(&stubProber{snap: healthySnapshot()}),
	)

	// When: running all checks
	ctx := context.Background()
	results := checker.RunAll(ctx)

	// Then: returns multiple check results
	assert.NotEmpty(t, results)

	// Verify expected checks are present
	checkNames := make(map[string]bool)
	for _, r := range results {
		checkNames[r.Name] = true
	}

	assert.True(t, checkNames["data_dir"], "data_dir check missing")
	assert.True(t, checkNames["disk_space"], "disk_space check missing")
	assert.True(t, checkNames["memory"], "memory check missing")
	assert.True(t, checkNames["gpu"], "gpu check missing")
	assert.True(t, checkNames["config"], "config check missing")
	assert.True(t, checkNames["rules"], "rules check missing")
	assert.True(t, checkNames["file_descriptors"], "file_descriptors check missing")
	assert.False(t, checkNames["project"], "project check should be absent without a project path")
}

func TestChecker_RunAll_IncludesProjectWhenPathSet(t *testing.T) {
	// Given: a project path alongside the usual options
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "requirements.txt"), []byte("numpy\n"), 0644))

	checker := New(
		WithDataDir(t.TempDir()),
		WithProber(&stubProber{snap: healthySnapshot()}),
		WithProjectPath(tmpDir),
	)

	// When: running all checks
	results := checker.RunAll(context.Background())

	// Then: the project check is the final entry
	require.NotEmpty(t, results)
	assert.Equal(t, "project", results[len(results)-1].Name)
}

func TestChecker_RunAll_ProbeFailureDegradesHostChecks(t *testing.T) {
	// Given: a prober that fails
	checker := New(
		WithDataDir(t.TempDir()),
		WithProber(&stubProber{err: assert.AnError}),
	)

	// When: running all checks
	results := checker.RunAll(context.Background())

	// Then: memory and gpu warn, nothing critical from the host side
	byName := make(map[string]CheckResult)
	for _, r := range results {
		byName[r.Name] = r
	}

	assert.Equal(t, StatusWarn, byName["memory"].Status)
	assert.Equal(t, StatusWarn, byName["gpu"].Status)
	assert.False(t, checker.HasCriticalFailures(results))
}

func TestChecker_PrintResults(t *testing.T) {
	// Given: some check results
	results := []CheckResult{
		{Name: "disk_space", Status: StatusPass, Message: "50 GB free"},
		{Name: "gpu", Status: StatusWarn, Message: "host probe unavailable"},
		{Name: "memory", Status: StatusFail, Message: "Insufficient", Required: true},
	}

	buf := &bytes.Buffer{}
	checker := New(WithOutput(buf))

	// When: printing results
	checker.PrintResults(results)

	// Then: output contains formatted results
	output := buf.String()
	assert.Contains(t, output, "RunReady System Check")
	assert.Contains(t, output, "[PASS]")
	assert.Contains(t, output, "[WARN]")
	assert.Contains(t, output, "[FAIL]")
	assert.Contains(t, output, "disk_space")
	assert.Contains(t, output, "Status: FAILED")
}

func TestChecker_PrintResults_VerboseShowsDetails(t *testing.T) {
	// Given: a result carrying details
	results := []CheckResult{
		{Name: "rules", Status: StatusPass, Message: "2 manifest + 2 source rules", Details: "/etc/runready/rules.yaml"},
	}

	buf := &bytes.Buffer{}
	checker := New(WithOutput(buf), WithVerbose(true))

	// When: printing results
	checker.PrintResults(results)

	// Then: details appear in the output
	assert.Contains(t, buf.String(), "/etc/runready/rules.yaml")
}

func TestChecker_SummaryStatus(t *testing.T) {
	checker := New()

	tests := []struct {
		name     string
		results  []CheckResult
		expected string
	}{
		{
			name: "all pass",
			results: []CheckResult{
				{Status: StatusPass},
				{Status: StatusPass},
			},
			expected: "ready",
		},
		{
			name: "with warnings",
			results: []CheckResult{
				{Status: StatusPass},
				{Status: StatusWarn},
			},
			expected: "ready_with_warnings",
		},
		{
			name: "with critical failure",
			results: []CheckResult{
				{Status: StatusPass},
				{Status: StatusFail, Required: true},
			},
			expected: "failed",
		},
		{
			name: "with optional failure",
			results: []CheckResult{
				{Status: StatusPass},
				{Status: StatusFail, Required: false},
			},
			expected: "ready_with_warnings",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, checker.SummaryStatus(tt.results))
		})
	}
}
