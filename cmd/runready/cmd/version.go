package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runready/runready/internal/output"
	"github.com/runready/runready/pkg/version"
)

func newVersionCmd() *cobra.Command {
	var (
		jsonOutput  bool
		shortOutput bool
	)

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show build and version details",
		Long:  `Print the runready version along with git commit, build date, and Go toolchain details.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch {
			case shortOutput:
				// Bare version for scripts, even when --json is also set.
				_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Short())
				return err
			case jsonOutput:
				return output.New(cmd.OutOrStdout()).JSON(version.Info())
			default:
				_, err := fmt.Fprintln(cmd.OutOrStdout(), version.String())
				return err
			}
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print build info as JSON")
	cmd.Flags().BoolVar(&shortOutput, "short", false, "Print only the version number")

	return cmd
}
