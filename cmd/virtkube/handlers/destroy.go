package handlers

import (
	"context"
	"fmt"
)

// Destroy tears down every node the fleet tracks: domains, root volumes
// and seed volumes. Resources that are already gone are skipped.
func Destroy(ctx context.Context, configPath string) error {
	rt, cleanup, err := setup(configPath)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := rt.reconciler.Destroy(ctx)
	if err != nil {
		if result != nil {
			for _, f := range result.Failed() {
				fmt.Printf("  %s: %v\n", f.Action, f.Err)
			}
		}
		return err
	}

	fmt.Printf("Destroyed %d nodes.\n", len(result.Results))
	return nil
}
