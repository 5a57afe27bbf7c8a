package handlers

import (
	"context"
	"fmt"

	"github.com/virtkube/virtkube/internal/bootstrap"
	"github.com/virtkube/virtkube/internal/fleet"
)

// Bootstrap forms the Kubernetes cluster across the ready fleet.
//
// The admin kubeconfig is written to the state directory as soon as the
// control plane is up, so a later partial failure still leaves the
// operator with cluster access. A partially formed cluster exits nonzero
// after reporting per-node results.
func Bootstrap(ctx context.Context, configPath string) error {
	rt, cleanup, err := setup(configPath)
	if err != nil {
		return err
	}
	defer cleanup()

	result, runErr := rt.reconciler.Bootstrap(ctx)

	if result != nil && len(result.Kubeconfig) > 0 {
		if werr := writeFile(rt.kubeconfigPath(), result.Kubeconfig, 0o600); werr != nil {
			return fmt.Errorf("failed to write kubeconfig: %w", werr)
		}
		fmt.Printf("Kubeconfig saved to: %s\n", rt.kubeconfigPath())
	}

	if result != nil {
		fmt.Print(renderBootstrap(rt.spec.ClusterName, result))
	}
	if runErr != nil {
		return runErr
	}

	switch result.Outcome {
	case bootstrap.OutcomeFormed:
		fmt.Printf("\nAccess the cluster with:\n")
		fmt.Printf("  export KUBECONFIG=%s\n", rt.kubeconfigPath())
		fmt.Printf("  kubectl get nodes\n")
		return nil
	case bootstrap.OutcomePartiallyFormed:
		return &fleet.BootstrapError{
			Stage: "join",
			Err:   fmt.Errorf("%d of %d nodes failed to join", failedCount(result), len(result.Nodes)),
		}
	default:
		return &fleet.BootstrapError{Stage: string(result.Phase), Err: fmt.Errorf("cluster failed to form")}
	}
}

func failedCount(result *bootstrap.Result) int {
	n := 0
	for _, nr := range result.Nodes {
		if nr.Err != nil {
			n++
		}
	}
	return n
}
