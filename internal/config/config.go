package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ProjectType classifies a project by its dependency manifest.
type ProjectType string

const (
	ProjectTypeGo      ProjectType = "go"
	ProjectTypeNode    ProjectType = "node"
	ProjectTypePython  ProjectType = "python"
	ProjectTypeUnknown ProjectType = "unknown"
)

func (p ProjectType) String() string { return string(p) }

// IsKnown reports whether detection identified a supported ecosystem.
func (p ProjectType) IsKnown() bool { return p != ProjectTypeUnknown }

// Config represents the complete RunReady configuration.
type Config struct {
	Version  int            `yaml:"version" json:"version"`
	Analyzer AnalyzerConfig `yaml:"analyzer" json:"analyzer"`
	Scan     ScanConfig     `yaml:"scan" json:"scan"`
	Server   ServerConfig   `yaml:"server" json:"server"`
	History  HistoryConfig  `yaml:"history" json:"history"`
	Watch    WatchConfig    `yaml:"watch" json:"watch"`
}

// AnalyzerConfig configures readiness analysis.
// Values are configurable via:
//  1. User config (~/.config/runready/config.yaml) - personal defaults
//  2. Project config (.runready.yaml) - per-repo tuning
//  3. Env vars (RUNREADY_MIN_MEMORY_GB, RUNREADY_RULES_FILE) - highest priority
type AnalyzerConfig struct {
	// MinMemoryGB is the available memory below which the verdict
	// reports a RAM shortfall. Default: 4.
	MinMemoryGB float64 `yaml:"min_memory_gb" json:"min_memory_gb"`

	// RulesFile points to a custom heavy-usage ruleset YAML.
	// Empty uses the built-in ruleset.
	RulesFile string `yaml:"rules_file" json:"rules_file"`
}

// ScanConfig configures the project source scan.
type ScanConfig struct {
	// Exclude lists glob patterns skipped during source scans.
	// Empty by default: every readable file under the project is visited.
	Exclude []string `yaml:"exclude" json:"exclude"`

	// RespectGitignore skips files matched by .gitignore when true.
	// Off by default so detection sees the full tree.
	RespectGitignore bool `yaml:"respect_gitignore" json:"respect_gitignore"`

	// MaxFileSizeMB caps the size of source files read during detection.
	MaxFileSizeMB int `yaml:"max_file_size_mb" json:"max_file_size_mb"`

	// Workers is the number of concurrent scan workers.
	Workers int `yaml:"workers" json:"workers"`

	// FollowSymlinks controls whether symlinked files are scanned.
	FollowSymlinks bool `yaml:"follow_symlinks" json:"follow_symlinks"`
}

// ServerConfig configures the MCP and HTTP servers.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	HTTPAddr  string `yaml:"http_addr" json:"http_addr"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
}

// HistoryConfig configures the readiness run history store.
type HistoryConfig struct {
	// Enabled turns run recording on or off. Default: true.
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Path is the SQLite database location.
	// Defaults to ~/.runready/history.db
	Path string `yaml:"path" json:"path"`
	// MaxRuns is the number of runs kept before pruning. Default: 1000.
	MaxRuns int `yaml:"max_runs" json:"max_runs"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	// Debounce is the window for coalescing file events. Default: "500ms".
	Debounce string `yaml:"debounce" json:"debounce"`
	// PollInterval is the fallback polling interval. Default: "5s".
	PollInterval string `yaml:"poll_interval" json:"poll_interval"`
}

// DebounceDuration parses Debounce; invalid or empty values return 0 so
// the watcher falls back to its own default.
func (w WatchConfig) DebounceDuration() time.Duration {
	d, err := time.ParseDuration(w.Debounce)
	if err != nil {
		return 0
	}
	return d
}

// PollIntervalDuration parses PollInterval; invalid or empty values
// return 0 so the watcher falls back to its own default.
func (w WatchConfig) PollIntervalDuration() time.Duration {
	d, err := time.ParseDuration(w.PollInterval)
	if err != nil {
		return 0
	}
	return d
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Analyzer: AnalyzerConfig{
			MinMemoryGB: 4,
			RulesFile:   "",
		},
		Scan: ScanConfig{
			Exclude:          nil,   // Every file is fair game by default
			RespectGitignore: false, // Detection covers ignored files too
			MaxFileSizeMB:    10,
			Workers:          runtime.NumCPU(),
			FollowSymlinks:   false,
		},
		Server: ServerConfig{
			Transport: "stdio",
			HTTPAddr:  "127.0.0.1:7979",
			LogLevel:  "debug", // Debug by default to aid troubleshooting
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    defaultHistoryPath(),
			MaxRuns: 1000,
		},
		Watch: WatchConfig{
			Debounce:     "500ms",
			PollInterval: "5s",
		},
	}
}

// DefaultDataDir returns the directory holding runtime state (history
// database, preflight marker): ~/.runready
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".runready")
	}
	return filepath.Join(home, ".runready")
}

func defaultHistoryPath() string {
	return filepath.Join(DefaultDataDir(), "history.db")
}

// Load builds the effective configuration for a project directory.
// Layers apply in increasing precedence:
//
//	hardcoded defaults
//	user config (~/.config/runready/config.yaml)
//	project config (.runready.yaml)
//	project .env (loaded into the environment, never overriding it)
//	RUNREADY_* environment variables
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if path := GetUserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, fmt.Errorf("load user config: %w", err)
		}
	}
	if err := cfg.loadProjectFile(dir); err != nil {
		return nil, err
	}

	// .env never overrides variables already set in the environment.
	_ = godotenv.Load(filepath.Join(dir, ".env"))
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadProjectFile merges the project-level config, preferring
// .runready.yaml over .runready.yml. Neither existing is fine.
func (c *Config) loadProjectFile(dir string) error {
	for _, name := range []string{".runready.yaml", ".runready.yml"} {
		if path := filepath.Join(dir, name); fileExists(path) {
			return c.loadYAML(path)
		}
	}
	return nil
}

// loadYAML merges one YAML file onto c. Parsing goes through a scratch
// Config so type errors surface instead of half-applying the file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith overlays the non-zero values of other onto c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}
	c.Analyzer.merge(other.Analyzer)
	c.Scan.merge(other.Scan)
	c.Server.merge(other.Server)
	c.History.merge(other.History)
	c.Watch.merge(other.Watch)
}

func (a *AnalyzerConfig) merge(o AnalyzerConfig) {
	if o.MinMemoryGB != 0 {
		a.MinMemoryGB = o.MinMemoryGB
	}
	if o.RulesFile != "" {
		a.RulesFile = o.RulesFile
	}
}

func (s *ScanConfig) merge(o ScanConfig) {
	// Excludes accumulate across layers instead of replacing.
	if len(o.Exclude) > 0 {
		s.Exclude = append(s.Exclude, o.Exclude...)
	}
	if o.RespectGitignore {
		s.RespectGitignore = true
	}
	if o.FollowSymlinks {
		s.FollowSymlinks = true
	}
	if o.MaxFileSizeMB != 0 {
		s.MaxFileSizeMB = o.MaxFileSizeMB
	}
	if o.Workers != 0 {
		s.Workers = o.Workers
	}
}

func (s *ServerConfig) merge(o ServerConfig) {
	if o.Transport != "" {
		s.Transport = o.Transport
	}
	if o.HTTPAddr != "" {
		s.HTTPAddr = o.HTTPAddr
	}
	if o.LogLevel != "" {
		s.LogLevel = o.LogLevel
	}
}

func (h *HistoryConfig) merge(o HistoryConfig) {
	// A bare `enabled:` toggle cannot be told apart from an absent one
	// after unmarshal, so Enabled only merges when the section set
	// something else too.
	if o.Path != "" || o.MaxRuns != 0 {
		h.Enabled = o.Enabled
	}
	if o.Path != "" {
		h.Path = o.Path
	}
	if o.MaxRuns > 0 {
		h.MaxRuns = o.MaxRuns
	}
}

func (w *WatchConfig) merge(o WatchConfig) {
	if o.Debounce != "" {
		w.Debounce = o.Debounce
	}
	if o.PollInterval != "" {
		w.PollInterval = o.PollInterval
	}
}

// applyEnvOverrides applies RUNREADY_* variables, the highest-precedence
// layer. Unparseable numeric values are ignored rather than fatal.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("RUNREADY_MIN_MEMORY_GB"); v != "" {
		if f, err := parseFloat64(v); err == nil && f >= 0 {
			c.Analyzer.MinMemoryGB = f
		}
	}
	if v := os.Getenv("RUNREADY_RULES_FILE"); v != "" {
		c.Analyzer.RulesFile = v
	}
	if v := os.Getenv("RUNREADY_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("RUNREADY_TRANSPORT"); v != "" {
		c.Server.Transport = v
	}
	if v := os.Getenv("RUNREADY_HTTP_ADDR"); v != "" {
		c.Server.HTTPAddr = v
	}
	if v := os.Getenv("RUNREADY_SCAN_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Scan.Workers = n
		}
	}
	if v := os.Getenv("RUNREADY_RESPECT_GITIGNORE"); v != "" {
		c.Scan.RespectGitignore = isTruthy(v)
	}
	if v := os.Getenv("RUNREADY_HISTORY_ENABLED"); v != "" {
		c.History.Enabled = isTruthy(v)
	}
	if v := os.Getenv("RUNREADY_HISTORY_PATH"); v != "" {
		c.History.Path = v
	}
}

func isTruthy(v string) bool {
	return strings.EqualFold(v, "true") || v == "1"
}

// parseFloat64 is the permissive float parser used for env overrides.
func parseFloat64(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// Validate reports the first invalid setting found.
func (c *Config) Validate() error {
	if c.Analyzer.MinMemoryGB < 0 {
		return fmt.Errorf("analyzer.min_memory_gb must be non-negative, got %g", c.Analyzer.MinMemoryGB)
	}
	if c.Scan.MaxFileSizeMB < 0 {
		return fmt.Errorf("scan.max_file_size_mb must be non-negative, got %d", c.Scan.MaxFileSizeMB)
	}
	if c.Scan.Workers < 0 {
		return fmt.Errorf("scan.workers must be non-negative, got %d", c.Scan.Workers)
	}
	if c.History.MaxRuns < 0 {
		return fmt.Errorf("history.max_runs must be non-negative, got %d", c.History.MaxRuns)
	}

	switch strings.ToLower(c.Server.Transport) {
	case "stdio", "http":
	default:
		return fmt.Errorf("server.transport must be 'stdio' or 'http', got %s", c.Server.Transport)
	}
	switch strings.ToLower(c.Server.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	for _, d := range []struct{ name, value string }{
		{"watch.debounce", c.Watch.Debounce},
		{"watch.poll_interval", c.Watch.PollInterval},
	} {
		if d.value == "" {
			continue
		}
		if _, err := time.ParseDuration(d.value); err != nil {
			return fmt.Errorf("%s is not a valid duration: %q", d.name, d.value)
		}
	}

	return nil
}

// WriteYAML serializes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// MergeNewDefaults fills in fields that config files written by older
// releases predate, returning the dotted names of whatever was added.
func (c *Config) MergeNewDefaults() []string {
	def := NewConfig()
	var added []string
	fill := func(name string, missing bool, set func()) {
		if missing {
			set()
			added = append(added, name)
		}
	}

	fill("analyzer.min_memory_gb", c.Analyzer.MinMemoryGB == 0, func() { c.Analyzer.MinMemoryGB = def.Analyzer.MinMemoryGB })
	fill("scan.max_file_size_mb", c.Scan.MaxFileSizeMB == 0, func() { c.Scan.MaxFileSizeMB = def.Scan.MaxFileSizeMB })
	fill("scan.workers", c.Scan.Workers == 0, func() { c.Scan.Workers = def.Scan.Workers })
	fill("server.http_addr", c.Server.HTTPAddr == "", func() { c.Server.HTTPAddr = def.Server.HTTPAddr })
	fill("history.path", c.History.Path == "", func() { c.History.Path = def.History.Path })
	fill("history.max_runs", c.History.MaxRuns == 0, func() { c.History.MaxRuns = def.History.MaxRuns })
	fill("watch.debounce", c.Watch.Debounce == "", func() { c.Watch.Debounce = def.Watch.Debounce })
	fill("watch.poll_interval", c.Watch.PollInterval == "", func() { c.Watch.PollInterval = def.Watch.PollInterval })

	return added
}

// GetUserConfigPath returns the user-level config location:
// $XDG_CONFIG_HOME/runready/config.yaml when XDG_CONFIG_HOME is set,
// ~/.config/runready/config.yaml otherwise.
func GetUserConfigPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), ".config", "runready", "config.yaml")
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "runready", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// LoadUserConfig reads just the user-level file, without the project or
// environment layers on top. A missing file returns (nil, nil).
func LoadUserConfig() (*Config, error) {
	path := GetUserConfigPath()
	if !fileExists(path) {
		return nil, nil
	}
	cfg := NewConfig()
	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// projectMarkers maps marker files to project types, in priority order.
// A go.mod wins over a package.json in a mixed repo.
var projectMarkers = []struct {
	file string
	typ  ProjectType
}{
	{"go.mod", ProjectTypeGo},
	{"package.json", ProjectTypeNode},
	{"pyproject.toml", ProjectTypePython},
	{"requirements.txt", ProjectTypePython},
}

// DetectProjectType classifies dir by the first marker file present.
func DetectProjectType(dir string) ProjectType {
	for _, m := range projectMarkers {
		if fileExists(filepath.Join(dir, m.file)) {
			return m.typ
		}
	}
	return ProjectTypeUnknown
}

// FindProjectRoot walks up from startDir until it hits a directory
// holding .git or a project config file. Without a marker anywhere up
// the tree, the start directory itself is returned.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolve project root: %w", err)
	}

	for dir := absDir; ; dir = filepath.Dir(dir) {
		if dirExists(filepath.Join(dir, ".git")) ||
			fileExists(filepath.Join(dir, ".runready.yaml")) ||
			fileExists(filepath.Join(dir, ".runready.yml")) {
			return dir, nil
		}
		if filepath.Dir(dir) == dir {
			return absDir, nil
		}
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
