// Package configs carries the assets compiled into every runready
// binary: the two configuration templates and the built-in detection
// ruleset.
//
// Everything here ships inside the executable via //go:embed, so a
// plain `go install` produces the same behavior as a packaged release
// with no files to install alongside the binary.
//
// Who reads what:
//   - `runready init` writes ProjectConfigTemplate to .runready.yaml
//   - `runready config init` writes UserConfigTemplate to
//     ~/.config/runready/config.yaml
//   - internal/heavy parses DefaultRules when no custom ruleset is
//     configured
//
// At run time the layers merge in ascending priority: compiled-in
// defaults, then the user config, then the project config, then
// RUNREADY_* environment variables. internal/config.Load implements
// the merge.
//
// Editing a .yaml file here changes nothing until the next build.
package configs

import _ "embed"

// DefaultRules is the heavy-usage ruleset the analyzer falls back to
// when analyzer.rules_file (or RUNREADY_RULES_FILE) is unset. It pairs
// manifest keyword rules and source-file pattern rules with the finding
// messages they produce.
//
//go:embed default-rules.yaml
var DefaultRules []byte

// UserConfigTemplate seeds ~/.config/runready/config.yaml. It holds
// machine-scoped settings: the memory floor, where the history database
// lives, server defaults. One copy per machine, shared by every
// project.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// ProjectConfigTemplate seeds .runready.yaml at the project root. It
// holds per-project settings such as scan.exclude and a custom rules
// file, and is meant to be committed with the project.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
