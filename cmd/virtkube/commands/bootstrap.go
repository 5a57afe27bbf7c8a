package commands

import (
	"github.com/spf13/cobra"

	"github.com/virtkube/virtkube/cmd/virtkube/handlers"
)

// Bootstrap returns the command that forms the Kubernetes cluster across
// the ready fleet.
func Bootstrap() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Form the Kubernetes cluster",
		Long: `Initialize the control plane on the lowest-index ready
control-plane node, install the pod network addon and join the remaining
nodes. The admin kubeconfig is written to the state directory.

A failed control-plane initialization is fatal; rerun bootstrap after
remediation. Individual worker join failures are reported per node and do
not abort the run.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Bootstrap(cmd.Context(), configPath)
		},
	}

	specFlag(cmd, &configPath)
	return cmd
}
