package bootstrap

import (
	"context"
	"fmt"

	"github.com/virtkube/virtkube/internal/addons/helm"
)

// CNIInstaller deploys the pod-network addon onto a formed control plane.
type CNIInstaller interface {
	Install(ctx context.Context, kubeconfig []byte, podCIDR string) error
}

// FlannelInstaller installs the flannel chart, the smallest CNI that works
// out of the box on DHCP-addressed VMs.
type FlannelInstaller struct{}

func (FlannelInstaller) Install(ctx context.Context, kubeconfig []byte, podCIDR string) error {
	client, err := helm.NewClient(kubeconfig, "kube-flannel")
	if err != nil {
		return fmt.Errorf("failed to create helm client: %w", err)
	}

	spec := helm.ChartSpec{
		Repository: "https://flannel-io.github.io/flannel",
		Name:       "flannel",
		Version:    "v0.27.4",
		Namespace:  "kube-flannel",
		Release:    "flannel",
	}
	values := map[string]interface{}{
		"podCidr": podCIDR,
	}

	if _, err := client.InstallOrUpgrade(ctx, spec, values); err != nil {
		return fmt.Errorf("failed to install flannel: %w", err)
	}
	return nil
}
