package sysinfo

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runready/runready/internal/gpu"
)

// stubDetector returns a fixed GPU state.
type stubDetector struct {
	info gpu.Info
}

func (s stubDetector) Detect() gpu.Info { return s.info }

func noGPU() gpu.Detector {
	return stubDetector{info: gpu.Info{Available: false, Description: gpu.NoGPUInfo}}
}

// =============================================================================
// Snapshot Invariant Tests
// =============================================================================

func TestSnapshot_MemoryInvariants(t *testing.T) {
	// Given: a real host inspection
	snap, err := NewInspector(noGPU()).Snapshot(context.Background())
	require.NoError(t, err)

	// Then: available never exceeds total and nothing is negative
	assert.GreaterOrEqual(t, snap.Memory.TotalGB, snap.Memory.AvailableGB)
	assert.GreaterOrEqual(t, snap.Memory.AvailableGB, 0.0)
	assert.Greater(t, snap.Memory.TotalGB, 0.0)
	assert.GreaterOrEqual(t, snap.Memory.PercentUsed, 0.0)
	assert.LessOrEqual(t, snap.Memory.PercentUsed, 100.0)
}

func TestSnapshot_DiskInvariants(t *testing.T) {
	snap, err := NewInspector(noGPU()).Snapshot(context.Background())
	require.NoError(t, err)

	assert.GreaterOrEqual(t, snap.Disk.TotalGB, snap.Disk.FreeGB)
	assert.Greater(t, snap.Disk.TotalGB, 0.0)
	assert.GreaterOrEqual(t, snap.Disk.PercentUsed, 0.0)
	assert.LessOrEqual(t, snap.Disk.PercentUsed, 100.0)
}

func TestSnapshot_CPUFields(t *testing.T) {
	snap, err := NewInspector(noGPU()).Snapshot(context.Background())
	require.NoError(t, err)

	// Logical cores are required; physical cores may be unknown
	assert.Greater(t, snap.CPU.LogicalCores, 0)
	if snap.CPU.PhysicalCores != nil {
		assert.Greater(t, *snap.CPU.PhysicalCores, 0)
		assert.LessOrEqual(t, *snap.CPU.PhysicalCores, snap.CPU.LogicalCores)
	}
}

func TestSnapshot_PlatformFields(t *testing.T) {
	snap, err := NewInspector(noGPU()).Snapshot(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, snap.Platform.System)
	// uname style: first letter capitalized
	first := snap.Platform.System[:1]
	assert.Equal(t, strings.ToUpper(first), first)
	assert.NotEmpty(t, snap.Platform.Machine)
	assert.True(t, strings.HasPrefix(snap.Platform.RuntimeVersion, "go"),
		"runtime version should look like go1.x, got %s", snap.Platform.RuntimeVersion)
}

func TestSnapshot_GPUComesFromDetector(t *testing.T) {
	// Given: a detector reporting a specific device
	det := stubDetector{info: gpu.Info{Available: true, Description: "CUDA available: Test Device"}}

	// When: taking a snapshot
	snap, err := NewInspector(det).Snapshot(context.Background())
	require.NoError(t, err)

	// Then: the snapshot mirrors the detector verbatim
	assert.True(t, snap.GPU.Available)
	assert.Equal(t, "CUDA available: Test Device", snap.GPU.Description)
}

// =============================================================================
// Serialization Tests
// =============================================================================

func TestSnapshot_JSONKeys(t *testing.T) {
	// The JSON shape is the tool contract; key names must not drift
	snap, err := NewInspector(noGPU()).Snapshot(context.Background())
	require.NoError(t, err)

	data, err := json.Marshal(snap)
	require.NoError(t, err)

	var decoded map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	require.Contains(t, decoded, "cpu")
	assert.Contains(t, decoded["cpu"], "physical_cores")
	assert.Contains(t, decoded["cpu"], "logical_cores")
	assert.Contains(t, decoded["cpu"], "max_frequency_mhz")

	require.Contains(t, decoded, "memory")
	assert.Contains(t, decoded["memory"], "total_gb")
	assert.Contains(t, decoded["memory"], "available_gb")
	assert.Contains(t, decoded["memory"], "percent_used")

	require.Contains(t, decoded, "disk")
	assert.Contains(t, decoded["disk"], "total_gb")
	assert.Contains(t, decoded["disk"], "free_gb")
	assert.Contains(t, decoded["disk"], "percent_used")

	require.Contains(t, decoded, "gpu")
	assert.Contains(t, decoded["gpu"], "available")
	assert.Contains(t, decoded["gpu"], "info")

	require.Contains(t, decoded, "platform")
	assert.Contains(t, decoded["platform"], "system")
	assert.Contains(t, decoded["platform"], "machine")
	assert.Contains(t, decoded["platform"], "runtime_version")
}

func TestFrequency_MarshalJSON(t *testing.T) {
	// Known frequency serializes as a number
	data, err := json.Marshal(Frequency{MHz: 3200.5, Known: true})
	require.NoError(t, err)
	assert.Equal(t, "3200.5", string(data))

	// Unknown frequency serializes as the sentinel string
	data, err = json.Marshal(Frequency{Known: false})
	require.NoError(t, err)
	assert.Equal(t, `"unknown"`, string(data))
}

func TestFrequency_UnmarshalJSON(t *testing.T) {
	var f Frequency
	require.NoError(t, json.Unmarshal([]byte("2400"), &f))
	assert.True(t, f.Known)
	assert.Equal(t, 2400.0, f.MHz)

	require.NoError(t, json.Unmarshal([]byte(`"unknown"`), &f))
	assert.False(t, f.Known)
}

func TestCPU_NilPhysicalCores_SerializesAsNull(t *testing.T) {
	data, err := json.Marshal(CPU{PhysicalCores: nil, LogicalCores: 8})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"physical_cores":null`)
}

// =============================================================================
// Helper Tests
// =============================================================================

func TestRoundGB(t *testing.T) {
	tests := []struct {
		bytes uint64
		want  float64
	}{
		{1 << 30, 1.0},
		{1610612736, 1.5},  // 1.5 GiB exactly
		{16 << 30, 16.0},
		{17091788800, 15.92}, // rounds to 2 decimals
		{0, 0.0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, roundGB(tt.bytes), "bytes=%d", tt.bytes)
	}
}

func TestRound1(t *testing.T) {
	assert.Equal(t, 62.1, round1(62.1234))
	assert.Equal(t, 62.2, round1(62.15))
	assert.Equal(t, 0.0, round1(0))
	assert.Equal(t, 100.0, round1(100))
}

func TestSystemName_Capitalized(t *testing.T) {
	s := systemName()
	assert.NotEmpty(t, s)
	assert.Equal(t, strings.ToUpper(s[:1]), s[:1])
}

func TestMachineArch_NotEmpty(t *testing.T) {
	assert.NotEmpty(t, machineArch())
}
