package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/runready/runready/internal/readiness"
	"github.com/runready/runready/internal/sysinfo"
)

// ReportRenderer displays a readiness report.
type ReportRenderer struct {
	out     io.Writer
	styles  Styles
	noColor bool
}

// NewReportRenderer creates a report renderer.
func NewReportRenderer(out io.Writer, noColor bool) *ReportRenderer {
	return &ReportRenderer{
		out:     out,
		styles:  GetStyles(noColor),
		noColor: noColor,
	}
}

// Render displays the report to the terminal.
func (r *ReportRenderer) Render(projectPath string, report *readiness.Report) error {
	// Header
	title := "Readiness Report"
	if projectPath != "" {
		title += " • " + projectPath
	}
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render(title))

	r.renderResources(report)
	r.renderDependencies(report)
	r.renderHeavy(report)

	// Verdict
	verdict := report.Verdict.Text()
	if report.Verdict.Ready {
		_, _ = fmt.Fprintf(r.out, "%s\n", r.styles.Ready.Render(verdict))
	} else {
		_, _ = fmt.Fprintf(r.out, "%s\n", r.styles.Warning.Render(verdict))
	}

	return nil
}

// RenderJSON outputs the report as JSON.
func (r *ReportRenderer) RenderJSON(report *readiness.Report) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

func (r *ReportRenderer) renderResources(report *readiness.Report) {
	_, _ = fmt.Fprintf(r.out, "  %s\n", r.styles.Label.Render("Resources"))

	if report.SnapshotErr != nil {
		_, _ = fmt.Fprintf(r.out, "    %s\n\n", r.styles.Error.Render(readiness.ResourceErrorText(report.SnapshotErr)))
		return
	}

	snap := report.Snapshot
	_, _ = fmt.Fprintf(r.out, "    Platform: %s %s (%s)\n", snap.Platform.System, snap.Platform.Machine, snap.Platform.RuntimeVersion)
	_, _ = fmt.Fprintf(r.out, "    CPU:      %s\n", cpuLine(snap.CPU))
	_, _ = fmt.Fprintf(r.out, "    Memory:   %.1f GB free of %.1f GB (%.1f%% used)\n",
		snap.Memory.AvailableGB, snap.Memory.TotalGB, snap.Memory.PercentUsed)
	_, _ = fmt.Fprintf(r.out, "    Disk:     %.1f GB free of %.1f GB\n", snap.Disk.FreeGB, snap.Disk.TotalGB)
	_, _ = fmt.Fprintf(r.out, "    GPU:      %s\n", r.renderGPU(snap))
	_, _ = fmt.Fprintln(r.out)
}

func (r *ReportRenderer) renderGPU(snap *sysinfo.Snapshot) string {
	if snap.GPU.Available {
		return r.styles.Ready.Render(snap.GPU.Description)
	}
	return snap.GPU.Description
}

func (r *ReportRenderer) renderDependencies(report *readiness.Report) {
	_, _ = fmt.Fprintf(r.out, "  %s\n", r.styles.Label.Render("Dependencies"))

	if report.DependenciesErr != nil {
		_, _ = fmt.Fprintf(r.out, "    %s\n\n", r.styles.Error.Render(readiness.DependencyErrorText(report.DependenciesErr)))
		return
	}

	deps := report.Dependencies
	if deps == nil || (len(deps.PythonPackages) == 0 && len(deps.NodePackages) == 0) {
		_, _ = fmt.Fprintf(r.out, "    %s\n\n", r.styles.Dim.Render("none found"))
		return
	}

	if len(deps.PythonPackages) > 0 {
		_, _ = fmt.Fprintf(r.out, "    python (%d): %s\n", len(deps.PythonPackages), strings.Join(deps.PythonPackages, ", "))
	}
	if len(deps.NodePackages) > 0 {
		_, _ = fmt.Fprintf(r.out, "    node (%d):   %s\n", len(deps.NodePackages), strings.Join(deps.NodePackages, ", "))
	}
	_, _ = fmt.Fprintln(r.out)
}

func (r *ReportRenderer) renderHeavy(report *readiness.Report) {
	_, _ = fmt.Fprintf(r.out, "  %s\n", r.styles.Label.Render("Heavy requirements"))

	if len(report.Heavy.Findings) == 0 {
		_, _ = fmt.Fprintf(r.out, "    %s\n\n", r.styles.Dim.Render(report.Heavy.Lines()[0]))
		return
	}

	for _, f := range report.Heavy.Findings {
		line := "- " + f.Text
		if f.RequiresGPU {
			_, _ = fmt.Fprintf(r.out, "    %s\n", r.styles.Warning.Render(line))
		} else {
			_, _ = fmt.Fprintf(r.out, "    %s\n", line)
		}
	}
	_, _ = fmt.Fprintln(r.out)
}

// cpuLine renders the CPU topology on one line. Physical core count and
// max frequency are omitted when the platform cannot report them.
func cpuLine(cpu sysinfo.CPU) string {
	var b strings.Builder
	if cpu.PhysicalCores != nil {
		fmt.Fprintf(&b, "%d cores, %d logical", *cpu.PhysicalCores, cpu.LogicalCores)
	} else {
		fmt.Fprintf(&b, "%d logical cores", cpu.LogicalCores)
	}
	if cpu.MaxFrequencyMHz.Known {
		fmt.Fprintf(&b, " @ %.0f MHz", cpu.MaxFrequencyMHz.MHz)
	}
	return b.String()
}

// RelativeTime formats a time as a human-friendly age for history
// listings.
func RelativeTime(t time.Time) string {
	now := time.Now()
	diff := now.Sub(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format("2006-01-02 15:04")
	}
}
