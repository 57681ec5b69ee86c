// Package heavy detects GPU- and large-model-dependent workloads in a
// project tree by matching ruleset keywords against the project
// manifest and its source files.
//
// Detection is deterministic: manifest findings come first in rule
// order, then per-file findings in the scanner's walk order, each
// file's findings again in rule order. File contents are read by a
// bounded worker pool, but results are reassembled by walk position so
// parallelism never changes the output.
package heavy

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/runready/runready/internal/config"
	"github.com/runready/runready/internal/manifest"
	"github.com/runready/runready/internal/scanner"
)

// NoFindings is the sentinel line reported when nothing heavy was
// detected.
const NoFindings = "No heavy computational requirements detected"

// Finding is one heavy-usage detection hit.
type Finding struct {
	// Text is the human-readable finding line.
	Text string `json:"text"`

	// Rule is the id of the rule that fired.
	Rule string `json:"rule"`

	// File is the project-relative path of the matched source file.
	// Empty for manifest findings.
	File string `json:"file,omitempty"`

	// RequiresGPU marks findings whose rule declares a GPU dependency.
	RequiresGPU bool `json:"requires_gpu,omitempty"`
}

// Result is the ordered outcome of one detection run.
type Result struct {
	Findings []Finding `json:"findings"`
}

// Lines renders the finding texts, or the sentinel when none fired.
func (r *Result) Lines() []string {
	if len(r.Findings) == 0 {
		return []string{NoFindings}
	}
	lines := make([]string, len(r.Findings))
	for i, f := range r.Findings {
		lines[i] = f.Text
	}
	return lines
}

// RequiresGPU reports whether any finding came from a GPU rule.
func (r *Result) RequiresGPU() bool {
	for _, f := range r.Findings {
		if f.RequiresGPU {
			return true
		}
	}
	return false
}

// Detector runs ruleset-driven heavy-usage detection over project
// trees. A Detector is safe for concurrent use.
type Detector struct {
	rules   *Ruleset
	scanner *scanner.Scanner

	exclude          []string
	respectGitignore bool
	followSymlinks   bool
	maxFileSize      int64
	workers          int
}

// NewDetector wires a detector from a loaded ruleset and the scan
// configuration.
func NewDetector(rules *Ruleset, cfg *config.Config) (*Detector, error) {
	s, err := scanner.New()
	if err != nil {
		return nil, err
	}

	workers := cfg.Scan.Workers
	if workers <= 0 {
		workers = 1
	}

	return &Detector{
		rules:            rules,
		scanner:          s,
		exclude:          cfg.Scan.Exclude,
		respectGitignore: cfg.Scan.RespectGitignore,
		followSymlinks:   cfg.Scan.FollowSymlinks,
		maxFileSize:      int64(cfg.Scan.MaxFileSizeMB) * 1024 * 1024,
		workers:          workers,
	}, nil
}

// Rules returns the detector's ruleset.
func (d *Detector) Rules() *Ruleset {
	return d.rules
}

// Detect scans projectPath and returns the ordered findings. A missing
// project directory is not an error; it simply has no manifest and no
// source files, so the result is empty.
func (d *Detector) Detect(ctx context.Context, projectPath string) (*Result, error) {
	result := &Result{Findings: []Finding{}}

	result.Findings = append(result.Findings, d.manifestFindings(projectPath)...)

	sourceFindings, err := d.sourceFindings(ctx, projectPath)
	if err != nil {
		return nil, err
	}
	result.Findings = append(result.Findings, sourceFindings...)

	return result, nil
}

// manifestFindings matches manifest rules against the raw manifest
// text. Each rule contributes at most one finding no matter how many
// of its keywords appear.
func (d *Detector) manifestFindings(projectPath string) []Finding {
	data, err := os.ReadFile(filepath.Join(projectPath, manifest.RequirementsFile))
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Debug("manifest unreadable, skipping manifest rules",
				slog.String("path", projectPath),
				slog.String("error", err.Error()))
		}
		return nil
	}

	content := strings.ToLower(string(data))

	var findings []Finding
	for _, rule := range d.rules.ManifestRules {
		if containsAny(content, rule.Keywords) {
			findings = append(findings, Finding{
				Text: rule.Finding,
				Rule: rule.ID,
			})
		}
	}
	return findings
}

// sourceFindings walks the tree, reads candidate source files with a
// bounded worker pool, and applies the source rules to each file.
func (d *Detector) sourceFindings(ctx context.Context, projectPath string) ([]Finding, error) {
	if info, err := os.Stat(projectPath); err != nil || !info.IsDir() {
		return nil, nil
	}

	files, err := d.collectSourceFiles(ctx, projectPath)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}

	// Indexed by walk position so parallel reads can't reorder findings.
	perFile := make([][]Finding, len(files))

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, d.workers)

	for i, file := range files {
		i, file := i, file

		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-gctx.Done():
				return gctx.Err()
			}

			perFile[i] = d.scanSourceFile(file)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var findings []Finding
	for _, ff := range perFile {
		findings = append(findings, ff...)
	}
	return findings, nil
}

// collectSourceFiles drains the scan stream and keeps files whose name
// matches a ruleset source extension, preserving walk order.
func (d *Detector) collectSourceFiles(ctx context.Context, projectPath string) ([]*scanner.FileInfo, error) {
	results, err := d.scanner.Scan(ctx, &scanner.ScanOptions{
		RootDir:          projectPath,
		ExcludePatterns:  d.exclude,
		RespectGitignore: d.respectGitignore,
		FollowSymlinks:   d.followSymlinks,
		MaxFileSize:      d.maxFileSize,
	})
	if err != nil {
		return nil, err
	}

	var files []*scanner.FileInfo
	for result := range results {
		if result.Error != nil {
			slog.Debug("source scan error, continuing",
				slog.String("error", result.Error.Error()))
			continue
		}
		if d.rules.MatchesSourceFile(result.File.Path) {
			files = append(files, result.File)
		}
	}
	return files, nil
}

// scanSourceFile reads one file and applies every source rule. Matching
// is byte-substring based, so undecodable bytes are harmless. A read
// failure skips the file without failing the scan.
func (d *Detector) scanSourceFile(file *scanner.FileInfo) []Finding {
	data, err := os.ReadFile(file.AbsPath)
	if err != nil {
		slog.Debug("skipping unreadable source file",
			slog.String("path", file.Path),
			slog.String("error", err.Error()))
		return nil
	}

	content := strings.ToLower(string(data))
	base := filepath.Base(file.Path)

	var findings []Finding
	for _, rule := range d.rules.SourceRules {
		if containsAny(content, rule.Keywords) {
			findings = append(findings, Finding{
				Text:        strings.ReplaceAll(rule.Finding, "{file}", base),
				Rule:        rule.ID,
				File:        file.Path,
				RequiresGPU: rule.RequiresGPU,
			})
		}
	}
	return findings
}

func containsAny(content string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(content, kw) {
			return true
		}
	}
	return false
}
