package commands

import (
	"github.com/spf13/cobra"

	"github.com/virtkube/virtkube/cmd/virtkube/handlers"
)

// Plan returns the command that shows the actions a reconciliation would
// take, without applying anything.
func Plan() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show what apply would change",
		Long: `Compute the difference between the fleet spec and the actual
hypervisor state and print the resulting actions. No changes are made.

Examples:
  # Plan using virtkube.yaml in the current directory
  virtkube plan

  # Plan against a specific spec file
  virtkube plan -c production.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Plan(cmd.Context(), configPath)
		},
	}

	specFlag(cmd, &configPath)
	return cmd
}
