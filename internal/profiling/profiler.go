// Package profiling backs the root command's --profile-* flags with
// runtime/pprof and runtime/trace captures.
package profiling

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
)

// Profiler drives CPU, heap and execution-trace capture. The runtime
// allows at most one CPU profile and one trace at a time, so the
// cleanup from a Start call must run before the next Start.
type Profiler struct{}

// NewProfiler returns a Profiler.
func NewProfiler() *Profiler {
	return &Profiler{}
}

func createOutput(path, what string) (*os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", what, err)
	}
	return f, nil
}

// StartCPU begins CPU profiling into path. The returned function stops
// the profile and closes the file.
func (p *Profiler) StartCPU(path string) (func(), error) {
	f, err := createOutput(path, "cpu profile")
	if err != nil {
		return nil, err
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("start cpu profile: %w", err)
	}

	return func() {
		pprof.StopCPUProfile()
		_ = f.Close()
	}, nil
}

// StartTrace begins execution tracing into path. The returned function
// stops the trace and closes the file.
func (p *Profiler) StartTrace(path string) (func(), error) {
	f, err := createOutput(path, "trace file")
	if err != nil {
		return nil, err
	}
	if err := trace.Start(f); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("start trace: %w", err)
	}

	return func() {
		trace.Stop()
		_ = f.Close()
	}, nil
}

// WriteHeap captures a point-in-time heap profile to path. It runs a
// GC first so the profile shows live allocations, not garbage.
func (p *Profiler) WriteHeap(path string) error {
	f, err := createOutput(path, "heap profile")
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		return fmt.Errorf("write heap profile: %w", err)
	}
	return nil
}
