package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/virtkube/virtkube/internal/fleet"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "invalid spec",
			err:  &fleet.InvalidSpecError{Field: "control_plane.count", Reason: "must be at least 1"},
			want: exitInvalidSpec,
		},
		{
			name: "provision failure",
			err:  &fleet.ProvisionError{Node: fleet.NodeKey{Role: fleet.RoleWorker}, Op: "clone volume", Err: errors.New("no space")},
			want: exitProvision,
		},
		{
			name: "timeout",
			err:  &fleet.TimeoutError{Node: fleet.NodeKey{Role: fleet.RoleWorker}, Stage: "awaiting DHCP lease", Err: errors.New("deadline")},
			want: exitTimeout,
		},
		{
			name: "bootstrap failure",
			err:  &fleet.BootstrapError{Stage: "init", Err: errors.New("preflight")},
			want: exitBootstrap,
		},
		{
			name: "wrapped provision failure keeps its code",
			err: fmt.Errorf("fleet reconciliation finished with failures: %w",
				&fleet.ProvisionError{Node: fleet.NodeKey{Role: fleet.RoleControlPlane}, Op: "create domain", Err: errors.New("busy")}),
			want: exitProvision,
		},
		{
			name: "joined errors keep their code",
			err: fmt.Errorf("fleet reconciliation finished with failures: %w",
				errors.Join(&fleet.TimeoutError{Node: fleet.NodeKey{Role: fleet.RoleWorker}, Stage: "awaiting ssh and cloud-init", Err: errors.New("deadline")})),
			want: exitTimeout,
		},
		{
			name: "plain error",
			err:  errors.New("something else"),
			want: exitGeneric,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}
