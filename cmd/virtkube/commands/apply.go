package commands

import (
	"github.com/spf13/cobra"

	"github.com/virtkube/virtkube/cmd/virtkube/handlers"
)

// Apply returns the command that reconciles the fleet to the spec.
func Apply() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Create or update the fleet",
		Long: `Reconcile the virtual machine fleet against the spec: clone
volumes, inject seed configuration, start domains, and wait until every
node is reachable over SSH with cloud-init finished.

Examples:
  # Reconcile using virtkube.yaml in the current directory
  virtkube apply

  # Re-apply after changing node counts
  virtkube apply -c production.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Apply(cmd.Context(), configPath)
		},
	}

	specFlag(cmd, &configPath)
	return cmd
}
