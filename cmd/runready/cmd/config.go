package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/runready/runready/configs"
	"github.com/runready/runready/internal/config"
	"github.com/runready/runready/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the user configuration file",
		Long: `Work with the machine-wide configuration file.

User configuration holds machine-wide settings: the memory and disk
thresholds behind the readiness verdict, history retention, server
transport, and the default log level. Project-level overrides live in
.runready.yaml at the project root.

Precedence, lowest to highest: hardcoded defaults, then the user config
(~/.config/runready/config.yaml), then the project config, then
RUNREADY_* environment variables.`,
		Example: `  # Write the starter template
  runready config init

  # Print the merged view of every layer
  runready config show

  # Where the user config lives
  runready config path`,
	}

	cmd.AddCommand(newConfigInitCmd(), newConfigShowCmd(), newConfigPathCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the user configuration file",
		Long: `Write the user configuration template to
~/.config/runready/config.yaml ($XDG_CONFIG_HOME is honored).

With --force an existing file is upgraded in place: current settings
are kept, options added since the file was written gain their
defaults, and the old file is backed up first.`,
		Example: `  runready config init
  runready config init --force`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := output.New(cmd.OutOrStdout())
			if !config.UserConfigExists() {
				return writeUserConfigTemplate(out)
			}
			if force {
				return upgradeUserConfig(out)
			}
			out.Warning("User configuration already exists")
			out.Statusf("📁", "File: %s", config.GetUserConfigPath())
			out.Newline()
			out.Status("💡", "Use --force to upgrade with new defaults (preserves your settings)")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Upgrade an existing file in place")

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var jsonOutput bool
	var source string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Show the configuration after merging defaults, the user config, the
project config, and RUNREADY_* environment variables. --source narrows
the view to a single layer.`,
		Example: `  runready config show
  runready config show --json
  runready config show --source user`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd, jsonOutput, source)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of YAML")
	cmd.Flags().StringVar(&source, "source", "merged", "Layer to print: merged, user, project or defaults")

	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the user config location",
		Long:  `Print where the user configuration file is (or would be) read from.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return err
		},
	}
}

func writeUserConfigTemplate(out *output.Writer) error {
	path := config.GetUserConfigPath()
	if err := os.MkdirAll(config.GetUserConfigDir(), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configs.UserConfigTemplate), 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	out.Success("Created user configuration")
	out.Statusf("📁", "File: %s", path)
	out.Newline()
	out.Status("💡", "Adjust analyzer.min_memory_gb if your projects need more headroom,")
	out.Status("", "then run 'runready config show' to verify.")
	return nil
}

// upgradeUserConfig backs up the current file, folds in any defaults
// added since it was written, and reports what changed.
func upgradeUserConfig(out *output.Writer) error {
	backupPath, err := config.BackupUserConfig()
	if err != nil {
		return fmt.Errorf("backup config: %w", err)
	}

	cfg, err := config.LoadUserConfig()
	if err != nil {
		return fmt.Errorf("load existing config: %w", err)
	}
	if cfg == nil {
		return fmt.Errorf("user config disappeared during upgrade")
	}

	added := cfg.MergeNewDefaults()

	path := config.GetUserConfigPath()
	if err := cfg.WriteYAML(path); err != nil {
		return fmt.Errorf("write upgraded config: %w", err)
	}

	out.Success("Configuration upgraded")
	out.Statusf("📁", "File: %s", path)
	out.Statusf("💾", "Backup: %s", backupPath)
	out.Newline()

	if len(added) == 0 {
		out.Status("✓", "Already up to date")
		return nil
	}
	out.Status("✨", "Options added at their defaults:")
	for _, field := range added {
		out.Statusf("", "  - %s", field)
	}
	return nil
}

func runConfigShow(cmd *cobra.Command, jsonOutput bool, source string) error {
	out := output.New(cmd.OutOrStdout())

	cfg, desc, err := configForSource(out, source)
	if err != nil {
		return err
	}
	if cfg == nil {
		return nil
	}

	if jsonOutput {
		return out.JSON(cfg)
	}

	out.Statusf("📋", "Source: %s", desc)
	out.Newline()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

// configForSource loads the layer named by source. A nil config with a
// nil error means the layer has no file on disk; the user has already
// been told where it was expected.
func configForSource(out *output.Writer, source string) (*config.Config, string, error) {
	switch source {
	case "merged":
		cfg, err := config.Load(projectRootOrCwd())
		if err != nil {
			return nil, "", fmt.Errorf("load config: %w", err)
		}
		return cfg, "merged (defaults < user < project < env)", nil

	case "user":
		path := config.GetUserConfigPath()
		if !config.UserConfigExists() {
			return nil, "", missingLayer(out, "user", path, "runready config init")
		}
		cfg, err := readConfigLayer(path)
		return cfg, fmt.Sprintf("user (%s)", path), err

	case "project":
		root := projectRootOrCwd()
		path, ok := findProjectConfigFile(root)
		if !ok {
			return nil, "", missingLayer(out, "project", filepath.Join(root, ".runready.yaml"), "runready init")
		}
		cfg, err := readConfigLayer(path)
		return cfg, fmt.Sprintf("project (%s)", path), err

	case "defaults":
		return config.NewConfig(), "defaults (hardcoded)", nil

	default:
		return nil, "", fmt.Errorf("invalid source %q (want merged, user, project or defaults)", source)
	}
}

// missingLayer tells the user a requested config layer has no file yet.
func missingLayer(out *output.Writer, layer, expected, initCmd string) error {
	out.Warningf("No %s configuration file found", layer)
	out.Statusf("📁", "Expected location: %s", expected)
	out.Statusf("💡", "Run '%s' to create one", initCmd)
	return nil
}

// projectRootOrCwd locates the project root for config layering,
// falling back to the working directory when no marker is found.
func projectRootOrCwd() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	if root, err := config.FindProjectRoot(cwd); err == nil {
		return root
	}
	return cwd
}

// readConfigLayer parses a single config file without any merging.
func readConfigLayer(path string) (*config.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	cfg := config.NewConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// findProjectConfigFile checks root for .runready.yaml or .runready.yml.
func findProjectConfigFile(root string) (string, bool) {
	for _, name := range []string{".runready.yaml", ".runready.yml"} {
		path := filepath.Join(root, name)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}
