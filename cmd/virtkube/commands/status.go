package commands

import (
	"github.com/spf13/cobra"

	"github.com/virtkube/virtkube/cmd/virtkube/handlers"
)

// Status returns the command that reports fleet and cluster health.
func Status() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show fleet and cluster state",
		Long: `Print the persisted node records, refreshed against the
hypervisor, and cluster node health when a kubeconfig has been captured.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Status(cmd.Context(), configPath)
		},
	}

	specFlag(cmd, &configPath)
	return cmd
}
