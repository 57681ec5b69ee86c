package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runready/runready/internal/gpu"
	"github.com/runready/runready/internal/output"
	"github.com/runready/runready/internal/readiness"
	"github.com/runready/runready/internal/sysinfo"
)

func newResourcesCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "resources",
		Short: "Show host CPU, memory, disk and GPU capacity",
		Long: `Probe the local machine and print its resource snapshot: CPU core
counts and frequency, total and available memory, disk capacity, GPU
availability, and platform details.

This is the same snapshot the readiness verdict is based on.`,
		Example: `  # Print the snapshot
  runready resources

  # Same, explicit JSON (the snapshot is JSON either way)
  runready resources --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			prober := sysinfo.NewInspector(gpu.New())
			snap, err := prober.Snapshot(cmd.Context())

			if jsonOutput {
				if err != nil {
					return err
				}
				return output.New(cmd.OutOrStdout()).JSON(snap)
			}

			// Degraded probes print the scoped error text, matching
			// the MCP tool output.
			_, werr := fmt.Fprintln(cmd.OutOrStdout(), readiness.ResourcesText(snap, err))
			return werr
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON (fail on probe errors)")

	return cmd
}
