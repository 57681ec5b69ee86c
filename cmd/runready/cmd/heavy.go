package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runready/runready/internal/config"
	"github.com/runready/runready/internal/output"
)

func newHeavyCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "heavy [path]",
		Short: "Detect heavy computational requirements in a project",
		Long: `Scan the project's manifest and source files for signs of GPU or
ML-framework usage: framework imports, large-model references, CUDA
calls. Findings feed the readiness verdict's GPU rule.

The detection rules are data-driven; see analyzer.rules_file in the
configuration to supply a custom ruleset.`,
		Example: `  # Scan the current project
  runready heavy

  # Scan another project
  runready heavy ~/src/ml-api

  # Findings with rule ids and file paths
  runready heavy --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveProjectPath(args)
			if err != nil {
				return err
			}

			cfg, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			_, detector, _, err := buildAnalyzer(cfg)
			if err != nil {
				return err
			}

			result, err := detector.Detect(cmd.Context(), path)
			if err != nil {
				return err
			}

			if jsonOutput {
				return output.New(cmd.OutOrStdout()).JSON(result)
			}

			_, werr := fmt.Fprintln(cmd.OutOrStdout(), strings.Join(result.Lines(), "\n"))
			return werr
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output findings as JSON")

	return cmd
}
