package mcp

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runready/runready/internal/config"
	"github.com/runready/runready/internal/gpu"
	"github.com/runready/runready/internal/heavy"
	"github.com/runready/runready/internal/readiness"
	"github.com/runready/runready/internal/sysinfo"
)

// stubProber implements readiness.Prober for testing.
type stubProber struct {
	snap *sysinfo.Snapshot
	err  error
}

func (p *stubProber) Snapshot(_ context.Context) (*sysinfo.Snapshot, error) {
	return p.snap, p.err
}

var _ readiness.Prober = (*stubProber)(nil)

// healthyProber reports a machine with plenty of memory and an optional GPU.
func healthyProber(gpuAvailable bool) *stubProber {
	physical := 4
	info := gpu.Info{Available: false, Description: gpu.NoGPUInfo}
	if gpuAvailable {
		info = gpu.Info{Available: true, Description: "CUDA available: Test Device"}
	}
	return &stubProber{
		snap: &sysinfo.Snapshot{
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
			GPU: info,
			Platform: sysinfo.Platform{
				System:         "Linux",
				Machine:        "x86_64",
				RuntimeVersion: "go1.25.5",
			},
		},
	}
}

// newDetector builds a detector over the built-in ruleset.
func newDetector(t *testing.T, cfg *config.Config) *heavy.Detector {
	t.Helper()

	rules, err := heavy.LoadRuleset("")
	require.NoError(t, err)
	detector, err := heavy.NewDetector(rules, cfg)
	require.NoError(t, err)
	return detector
}

// newTestServer creates a server with stub host facts for testing.
func newTestServer(t *testing.T, prober readiness.Prober) *Server {
	t.Helper()

	cfg := config.NewConfig()
	srv, err := NewServer(prober, newDetector(t, cfg), cfg)
	require.NoError(t, err)
	require.NotNil(t, srv)

	return srv
}

// writeProject builds a throwaway project tree.
func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func TestNewServer(t *testing.T) {
	cfg := config.NewConfig()
	detector := newDetector(t, cfg)

	t.Run("wires the SDK server", func(t *testing.T) {
		srv, err := NewServer(healthyProber(false), detector, cfg)
		require.NoError(t, err)
		require.NotNil(t, srv)
		assert.NotNil(t, srv.MCPServer())
	})

	t.Run("requires a prober", func(t *testing.T) {
		srv, err := NewServer(nil, detector, cfg)
		require.Error(t, err)
		assert.Nil(t, srv)
		assert.Contains(t, err.Error(), "prober")
	})

	t.Run("requires a detector", func(t *testing.T) {
		srv, err := NewServer(healthyProber(false), nil, cfg)
		require.Error(t, err)
		assert.Nil(t, srv)
		assert.Contains(t, err.Error(), "detector")
	})

	t.Run("nil config falls back to defaults", func(t *testing.T) {
		srv, err := NewServer(healthyProber(false), detector, nil)
		require.NoError(t, err)
		require.NotNil(t, srv)
	})
}

func TestServer_Info(t *testing.T) {
	name, ver := newTestServer(t, healthyProber(false)).Info()

	assert.Equal(t, "runready", name)
	assert.NotEmpty(t, ver)
}

func TestServer_ListTools_AdvertisesCatalog(t *testing.T) {
	tools := newTestServer(t, healthyProber(false)).ListTools()

	// The wire catalog, in registration order.
	want := []ToolInfo{
		{
			Name:        "check_system_resources",
			Description: "Check CPU, RAM, disk space and GPU availability on local machine",
		},
		{
			Name:        "analyze_project_dependencies",
			Description: "Analyze project dependencies from requirements.txt or package.json",
		},
		{
			Name:        "detect_heavy_requirements",
			Description: "Detect ML/AI frameworks and estimate resource requirements",
		},
		{
			Name:        "generate_readiness_report",
			Description: "Generate comprehensive readiness assessment report",
		},
	}
	assert.Equal(t, want, tools)
}

func TestServer_CallTool_UnknownTool(t *testing.T) {
	srv := newTestServer(t, healthyProber(false))

	_, err := srv.CallTool(context.Background(), "nonexistent_tool", nil)

	require.Error(t, err)
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeMethodNotFound, mcpErr.Code)
	assert.Equal(t, "Tool 'nonexistent_tool' not found.", mcpErr.Message)
}

func TestServer_CallTool_BadProjectPath(t *testing.T) {
	srv := newTestServer(t, healthyProber(false))

	cases := map[string]struct {
		tool string
		args map[string]any
	}{
		"missing for deps":   {"analyze_project_dependencies", map[string]any{}},
		"missing for heavy":  {"detect_heavy_requirements", map[string]any{}},
		"missing for report": {"generate_readiness_report", map[string]any{}},
		"empty string":       {"detect_heavy_requirements", map[string]any{"project_path": ""}},
		"whitespace only":    {"generate_readiness_report", map[string]any{"project_path": "   "}},
		"wrong type":         {"analyze_project_dependencies", map[string]any{"project_path": 42}},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := srv.CallTool(context.Background(), tc.tool, tc.args)

			require.Error(t, err)
			var mcpErr *MCPError
			require.ErrorAs(t, err, &mcpErr)
			assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
		})
	}
}

func TestServer_Close(t *testing.T) {
	assert.NoError(t, newTestServer(t, healthyProber(false)).Close())
}

func TestServer_ConcurrentCalls(t *testing.T) {
	srv := newTestServer(t, healthyProber(true))
	project := writeProject(t, map[string]string{
		"requirements.txt": "requests\n",
	})

	// Alternate tools across goroutines; the race detector does the
	// real judging here.
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				_, err = srv.CallTool(context.Background(), "check_system_resources", nil)
			} else {
				_, err = srv.CallTool(context.Background(), "analyze_project_dependencies", map[string]any{
					"project_path": project,
				})
			}
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
}
