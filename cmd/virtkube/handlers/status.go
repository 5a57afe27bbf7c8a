package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/virtkube/virtkube/internal/k8s"
)

// clusterReader is the slice of the cluster API status needs.
type clusterReader interface {
	NodeStatuses(ctx context.Context) ([]k8s.NodeStatus, error)
}

// newClusterReader builds a cluster client from kubeconfig bytes.
// Replaced in tests.
var newClusterReader = func(kubeconfig []byte) (clusterReader, error) {
	return k8s.NewClientFromBytes(kubeconfig)
}

// Status prints the fleet records, refreshed against the hypervisor, and
// the cluster node conditions when a kubeconfig has been captured.
func Status(ctx context.Context, configPath string) error {
	rt, cleanup, err := setup(configPath)
	if err != nil {
		return err
	}
	defer cleanup()

	records, err := rt.reconciler.Refresh(ctx)
	if err != nil {
		return err
	}
	fmt.Print(renderFleet(rt.spec.ClusterName, records))

	kubeconfig, err := readFile(rt.kubeconfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Print(dimStyle.Render("\n  No kubeconfig captured yet. Run 'virtkube bootstrap' to form the cluster."))
			fmt.Println()
			return nil
		}
		return err
	}

	client, err := newClusterReader(kubeconfig)
	if err != nil {
		return err
	}
	statuses, err := client.NodeStatuses(ctx)
	if err != nil {
		// The fleet view is still useful when the API server is down.
		fmt.Printf("\n  cluster unreachable: %v\n", err)
		return nil
	}
	fmt.Print(renderClusterNodes(statuses))
	return nil
}
