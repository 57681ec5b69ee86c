package heavy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/runready/runready/configs"
	"github.com/runready/runready/internal/errors"
)

// rulesetVersion is the schema version this build understands.
const rulesetVersion = 1

// ManifestRule matches keywords against the raw manifest text.
// It fires at most once per project.
type ManifestRule struct {
	ID       string   `yaml:"id"`
	Keywords []string `yaml:"keywords"`
	Finding  string   `yaml:"finding"`
}

// SourceRule matches keywords against source file content. It fires at
// most once per file; {file} in Finding expands to the file's base name.
type SourceRule struct {
	ID          string   `yaml:"id"`
	Keywords    []string `yaml:"keywords"`
	Finding     string   `yaml:"finding"`
	RequiresGPU bool     `yaml:"requires_gpu"`
}

// Ruleset is the detection rule table. Rules are evaluated in the order
// they appear, which fixes the order of findings.
type Ruleset struct {
	Version          int            `yaml:"version"`
	SourceExtensions []string       `yaml:"source_extensions"`
	ManifestRules    []ManifestRule `yaml:"manifest_rules"`
	SourceRules      []SourceRule   `yaml:"source_rules"`
}

// LoadRuleset returns the ruleset at path, or the embedded default
// ruleset when path is empty. A custom file replaces the default
// entirely; rulesets are never merged.
func LoadRuleset(path string) (*Ruleset, error) {
	if path == "" {
		rs, err := parseRuleset(configs.DefaultRules)
		if err != nil {
			return nil, errors.New(errors.ErrCodeInternal, "embedded default ruleset is invalid", err)
		}
		return rs, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.ErrCodeRulesInvalid, "failed to read rules file", err).
			WithDetail("path", path).
			WithSuggestion("Check analyzer.rules_file in your config")
	}

	rs, err := parseRuleset(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRulesInvalid, err).
			WithDetail("path", path)
	}
	return rs, nil
}

func parseRuleset(data []byte) (*Ruleset, error) {
	var rs Ruleset
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("failed to parse rules YAML: %w", err)
	}
	if err := rs.normalize(); err != nil {
		return nil, err
	}
	return &rs, nil
}

// normalize validates the ruleset and lowercases keywords and
// extensions, so matching against lowercased content works no matter
// how a custom file spells them.
func (r *Ruleset) normalize() error {
	if r.Version == 0 {
		r.Version = rulesetVersion
	}
	if r.Version != rulesetVersion {
		return fmt.Errorf("unsupported ruleset version %d (want %d)", r.Version, rulesetVersion)
	}

	seen := make(map[string]bool)
	check := func(id string, keywords []string, finding string) error {
		if id == "" {
			return fmt.Errorf("rule with empty id")
		}
		if seen[id] {
			return fmt.Errorf("duplicate rule id %q", id)
		}
		seen[id] = true
		if len(keywords) == 0 {
			return fmt.Errorf("rule %q has no keywords", id)
		}
		if finding == "" {
			return fmt.Errorf("rule %q has no finding text", id)
		}
		return nil
	}

	for i := range r.ManifestRules {
		rule := &r.ManifestRules[i]
		if err := check(rule.ID, rule.Keywords, rule.Finding); err != nil {
			return err
		}
		lowerAll(rule.Keywords)
	}
	for i := range r.SourceRules {
		rule := &r.SourceRules[i]
		if err := check(rule.ID, rule.Keywords, rule.Finding); err != nil {
			return err
		}
		lowerAll(rule.Keywords)
	}

	for i, ext := range r.SourceExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		r.SourceExtensions[i] = ext
	}

	return nil
}

// MatchesSourceFile reports whether the file name carries one of the
// ruleset's source extensions.
func (r *Ruleset) MatchesSourceFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return false
	}
	for _, e := range r.SourceExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

func lowerAll(ss []string) {
	for i, s := range ss {
		ss[i] = strings.ToLower(s)
	}
}
