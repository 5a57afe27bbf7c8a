package handlers

import (
	"context"
	"fmt"
)

// Plan computes the reconciliation plan against live hypervisor state and
// prints it without changing anything.
func Plan(ctx context.Context, configPath string) error {
	rt, cleanup, err := setup(configPath)
	if err != nil {
		return err
	}
	defer cleanup()

	p, err := rt.reconciler.Plan(ctx)
	if err != nil {
		return err
	}

	fmt.Print(renderPlan(rt.spec.ClusterName, p))
	return nil
}
