// Package commands defines the CLI command structure and flag bindings.
//
// Commands handle argument parsing and validation only; execution is
// delegated to the handlers package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the virtkube CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "virtkube",
		Short:         "Provision a kubeadm Kubernetes cluster on libvirt/KVM",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(Plan())
	cmd.AddCommand(Apply())
	cmd.AddCommand(Destroy())
	cmd.AddCommand(Bootstrap())
	cmd.AddCommand(Status())
	cmd.AddCommand(Version())

	return cmd
}

func specFlag(cmd *cobra.Command, configPath *string) {
	cmd.Flags().StringVarP(configPath, "config", "c", "", "Path to fleet spec file (default: virtkube.yaml)")
}
