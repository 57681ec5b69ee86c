package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runready/runready/internal/manifest"
	"github.com/runready/runready/internal/output"
	"github.com/runready/runready/internal/readiness"
)

func newDepsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "deps [path]",
		Short: "List a project's declared dependencies",
		Long: `Read the project's dependency manifest (requirements.txt, falling
back to package.json) and print the declared package specifiers in
file order. Comments and blank lines are skipped; specifiers are kept
verbatim, including version constraints.

A project without a manifest yields an empty list, not an error.`,
		Example: `  # Dependencies of the current project
  runready deps

  # Dependencies of another project
  runready deps ~/src/ml-api`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveProjectPath(args)
			if err != nil {
				return err
			}

			deps, readErr := manifest.Read(path)

			if jsonOutput {
				if readErr != nil {
					return readErr
				}
				return output.New(cmd.OutOrStdout()).JSON(deps)
			}

			_, werr := fmt.Fprintln(cmd.OutOrStdout(), readiness.DependenciesText(deps, readErr))
			return werr
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON (fail on read errors)")

	return cmd
}
