package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/virtkube/virtkube/cmd/virtkube/handlers"
)

// Destroy returns the command that tears down the whole fleet.
func Destroy() *cobra.Command {
	var (
		configPath string
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Tear down the fleet",
		Long: `Power off and remove every node of the fleet, including root
volumes and seed disks. Node records are removed from local state once
their resources are gone.

Requires --force to proceed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !force {
				return fmt.Errorf("refusing to destroy without --force")
			}
			return handlers.Destroy(cmd.Context(), configPath)
		},
	}

	specFlag(cmd, &configPath)
	cmd.Flags().BoolVar(&force, "force", false, "Confirm destruction of all fleet resources")
	return cmd
}
