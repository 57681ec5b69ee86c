// Package readiness combines the host snapshot, the dependency list,
// and the heavy-usage findings into a readiness report with a derived
// verdict.
//
// The verdict rules consume typed values in-process. The serialized
// JSON that appears in report sections is produced from the same
// values afterwards, so rule evaluation can never be broken by a
// rendering change.
package readiness

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/runready/runready/internal/config"
	"github.com/runready/runready/internal/heavy"
	"github.com/runready/runready/internal/manifest"
	"github.com/runready/runready/internal/sysinfo"
)

// Verdict lines and report section headers.
const (
	ReadyText    = "✅ Project is ready to run!"
	NotReadyText = "⚠️ Project may not run properly: "

	IssueGPUMissing = "GPU is required but not available"

	resourcesHeader    = "=== System Resources Check ==="
	dependenciesHeader = "=== Project Dependencies Check ==="
	heavyHeader        = "=== Heavy Requirements Check ==="
	verdictHeader      = "=== Verdict ==="
)

// Prober supplies host snapshots.
type Prober interface {
	Snapshot(ctx context.Context) (*sysinfo.Snapshot, error)
}

// Verdict is the readiness decision with its reasons.
type Verdict struct {
	Ready  bool     `json:"ready"`
	Issues []string `json:"issues"`
}

// Text renders the verdict line.
func (v Verdict) Text() string {
	if v.Ready {
		return ReadyText
	}
	return NotReadyText + strings.Join(v.Issues, ", ")
}

// Report carries the outcome of one readiness run. Check failures are
// kept alongside the values so rendering can show the error text in
// the failed check's section while the others proceed.
type Report struct {
	Snapshot        *sysinfo.Snapshot        `json:"resources,omitempty"`
	SnapshotErr     error                    `json:"-"`
	Dependencies    *manifest.DependencyList `json:"dependencies,omitempty"`
	DependenciesErr error                    `json:"-"`
	Heavy           *heavy.Result            `json:"heavy"`
	Verdict         Verdict                  `json:"verdict"`
}

// Section is one labeled block of the rendered report.
type Section struct {
	Header string
	Lines  []string
}

// Sections renders the report blocks in their fixed order.
func (r *Report) Sections() []Section {
	return []Section{
		{Header: resourcesHeader, Lines: []string{r.resourcesText()}},
		{Header: dependenciesHeader, Lines: []string{r.dependenciesText()}},
		{Header: heavyHeader, Lines: r.Heavy.Lines()},
		{Header: verdictHeader, Lines: []string{r.Verdict.Text()}},
	}
}

// Text renders the whole report as plain text, sections separated by a
// blank line.
func (r *Report) Text() string {
	var b strings.Builder
	for i, s := range r.Sections() {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(s.Header)
		b.WriteByte('\n')
		for _, line := range s.Lines {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (r *Report) resourcesText() string {
	return ResourcesText(r.Snapshot, r.SnapshotErr)
}

func (r *Report) dependenciesText() string {
	return DependenciesText(r.Dependencies, r.DependenciesErr)
}

// ResourcesText renders a resource snapshot as indented JSON. A probe
// failure renders as the check's own error sentence instead.
func ResourcesText(snap *sysinfo.Snapshot, probeErr error) string {
	if probeErr != nil {
		return ResourceErrorText(probeErr)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return ResourceErrorText(err)
	}
	return string(data)
}

// DependenciesText renders a dependency list as indented JSON. A read
// failure renders as the check's own error sentence instead.
func DependenciesText(deps *manifest.DependencyList, readErr error) string {
	if readErr != nil {
		return DependencyErrorText(readErr)
	}
	data, err := json.MarshalIndent(deps, "", "  ")
	if err != nil {
		return DependencyErrorText(err)
	}
	return string(data)
}

// ResourceErrorText renders a failed resource check the way the check
// itself reports it.
func ResourceErrorText(err error) string {
	return fmt.Sprintf("Error checking system resources: %v", err)
}

// DependencyErrorText renders a failed dependency check the way the
// check itself reports it.
func DependencyErrorText(err error) string {
	return fmt.Sprintf("Error analyzing dependencies: %v", err)
}

// Composer runs the three checks and derives the verdict.
type Composer struct {
	prober      Prober
	detector    *heavy.Detector
	minMemoryGB float64
}

// NewComposer wires a composer. The memory threshold comes from
// analyzer.min_memory_gb; a threshold of zero disables the memory rule.
func NewComposer(prober Prober, detector *heavy.Detector, cfg *config.Config) *Composer {
	return &Composer{
		prober:      prober,
		detector:    detector,
		minMemoryGB: cfg.Analyzer.MinMemoryGB,
	}
}

// Compose runs the checks against projectPath and returns the report.
// Individual check failures land in the report; only a failed heavy
// scan (cancellation, unreadable root) aborts the run.
func (c *Composer) Compose(ctx context.Context, projectPath string) (*Report, error) {
	report := &Report{}

	snap, err := c.prober.Snapshot(ctx)
	if err != nil {
		report.SnapshotErr = err
	} else {
		report.Snapshot = snap
	}

	deps, err := manifest.Read(projectPath)
	if err != nil {
		report.DependenciesErr = err
	} else {
		report.Dependencies = deps
	}

	heavyResult, err := c.detector.Detect(ctx, projectPath)
	if err != nil {
		return nil, err
	}
	report.Heavy = heavyResult

	report.Verdict = c.verdict(report)
	return report, nil
}

// verdict applies the readiness rules. The rules are independent and
// additive; each fires at most once. A failed snapshot counts as no
// GPU and zero available memory.
func (c *Composer) verdict(r *Report) Verdict {
	gpuAvailable := false
	availableGB := 0.0
	if r.Snapshot != nil {
		gpuAvailable = r.Snapshot.GPU.Available
		availableGB = r.Snapshot.Memory.AvailableGB
	}

	v := Verdict{Ready: true, Issues: []string{}}

	if r.Heavy.RequiresGPU() && !gpuAvailable {
		v.Ready = false
		v.Issues = append(v.Issues, IssueGPUMissing)
	}

	if availableGB < c.minMemoryGB {
		v.Ready = false
		v.Issues = append(v.Issues, fmt.Sprintf("Not enough RAM: %s GB available", formatGB(availableGB)))
	}

	return v
}

// formatGB renders a gigabyte figure with minimal digits but always at
// least one decimal (2 -> "2.0", 2.37 -> "2.37").
func formatGB(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
