package handlers

import (
	"context"
	"fmt"
)

// Apply reconciles the fleet toward the spec.
//
// The workflow:
//  1. Load and validate the fleet spec
//  2. Refresh persisted records against live hypervisor state
//  3. Execute the resulting create and destroy actions
//  4. Probe new nodes to a terminal state, control planes first
//
// Nodes that fail to provision or never become ready are recorded as
// Failed and reported; a rerun retries only what is still missing.
func Apply(ctx context.Context, configPath string) error {
	rt, cleanup, err := setup(configPath)
	if err != nil {
		return err
	}
	defer cleanup()

	result, records, err := rt.reconciler.Apply(ctx)
	if result == nil {
		return err
	}
	for _, f := range result.Failed() {
		fmt.Printf("  %s: %v\n", f.Action, f.Err)
	}
	fmt.Print(renderFleet(rt.spec.ClusterName, records))
	if err != nil {
		return err
	}

	fmt.Printf("\nFleet is ready. Form the cluster with:\n")
	fmt.Printf("  virtkube bootstrap -c %s\n", displayPath(configPath))
	return nil
}

func displayPath(configPath string) string {
	if configPath == "" {
		return "virtkube.yaml"
	}
	return configPath
}
