package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/runready/runready/configs"
	"github.com/runready/runready/internal/config"
	"github.com/runready/runready/internal/output"
)

// MCPServerConfig is one server entry in .mcp.json.
type MCPServerConfig struct {
	Type    string            `json:"type,omitempty"`
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// MCPConfig is the root .mcp.json structure.
type MCPConfig struct {
	MCPServers map[string]MCPServerConfig `json:"mcpServers"`
}

// initOptions mirrors the init command's flags.
type initOptions struct {
	force      bool
	configOnly bool
}

func newInitCmd() *cobra.Command {
	var opts initOptions

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Set up runready for a project",
		Long: `Set up runready for the current project.

Writes a .runready.yaml configuration template and registers the
runready MCP server in .mcp.json so AI assistants can call the
readiness tools. Restart your MCP client afterwards to pick up the
new server.`,
		Example: `  # Set up the current project
  runready init

  # Replace files written by an earlier init
  runready init --force

  # Project config only, no MCP registration
  runready init --config-only`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.force, "force", false, "Replace existing files")
	cmd.Flags().BoolVar(&opts.configOnly, "config-only", false, "Write project config only, skip MCP registration")

	return cmd
}

func runInit(cmd *cobra.Command, opts initOptions) error {
	out := output.New(cmd.OutOrStdout())

	root := projectRootOrCwd()
	if ptype := config.DetectProjectType(root); ptype.IsKnown() {
		out.Statusf("🔍", "Detected project type: %s", ptype)
	}

	if err := writeProjectConfig(out, root, opts.force); err != nil {
		return err
	}
	if !opts.configOnly {
		if err := registerMCPServer(out, root, opts.force); err != nil {
			return err
		}
	}

	out.Newline()
	out.Success("Project initialized")
	out.Status("💡", "Run 'runready report' to check readiness now")
	return nil
}

// writeProjectConfig creates .runready.yaml from the embedded template.
func writeProjectConfig(out *output.Writer, root string, force bool) error {
	path := filepath.Join(root, ".runready.yaml")

	if _, err := os.Stat(path); err == nil && !force {
		out.Warning("Project configuration already exists")
		out.Statusf("📁", "File: %s", path)
		out.Status("💡", "Use --force to overwrite")
		return nil
	}

	if err := os.WriteFile(path, []byte(configs.ProjectConfigTemplate), 0o644); err != nil {
		return fmt.Errorf("write project config: %w", err)
	}

	out.Success("Created project configuration")
	out.Statusf("📁", "File: %s", path)
	return nil
}

// registerMCPServer adds (or updates) the runready entry in the
// project's .mcp.json, preserving other configured servers.
func registerMCPServer(out *output.Writer, root string, force bool) error {
	path := filepath.Join(root, ".mcp.json")

	mcpCfg, err := readMCPConfig(path)
	if err != nil {
		return err
	}
	if _, exists := mcpCfg.MCPServers["runready"]; exists && !force {
		out.Status("✓", "MCP server already registered in .mcp.json")
		return nil
	}

	// The bare command serves MCP over stdio after a silent preflight
	mcpCfg.MCPServers["runready"] = MCPServerConfig{
		Type:    "stdio",
		Command: "runready",
	}

	data, err := json.MarshalIndent(mcpCfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal .mcp.json: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	out.Success("Registered MCP server in .mcp.json")
	out.Statusf("📁", "File: %s", path)
	return nil
}

// readMCPConfig loads an existing .mcp.json, or returns an empty config
// when the file is absent.
func readMCPConfig(path string) (MCPConfig, error) {
	cfg := MCPConfig{MCPServers: map[string]MCPServerConfig{}}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("existing %s is not valid JSON: %w", path, err)
	}
	if cfg.MCPServers == nil {
		cfg.MCPServers = map[string]MCPServerConfig{}
	}
	return cfg, nil
}
