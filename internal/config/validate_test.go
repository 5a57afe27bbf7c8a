package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtkube/virtkube/internal/fleet"
)

func validFleetSpec() *FleetSpec {
	return &FleetSpec{
		ClusterName: "lab",
		ControlPlane: RoleSpec{
			Count:          1,
			HostnamePrefix: "lab-cp-",
			CPUs:           2,
			MemoryMiB:      4096,
			DiskGiB:        20,
			Pool:           "default",
			BaseImage:      "debian-12-base",
		},
		Workers: RoleSpec{
			Count:          2,
			HostnamePrefix: "lab-worker-",
			CPUs:           2,
			MemoryMiB:      4096,
			DiskGiB:        20,
			Pool:           "default",
			BaseImage:      "debian-12-base",
		},
		SSH: SSHConfig{
			User:           "admin",
			PublicKeyPath:  "/keys/id.pub",
			PrivateKeyPath: "/keys/id",
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*FleetSpec)
		wantErr string
	}{
		{
			name:   "valid spec",
			mutate: func(*FleetSpec) {},
		},
		{
			name:    "missing cluster name",
			mutate:  func(s *FleetSpec) { s.ClusterName = "" },
			wantErr: "cluster_name",
		},
		{
			name:    "zero control planes",
			mutate:  func(s *FleetSpec) { s.ControlPlane.Count = 0 },
			wantErr: "control_plane.count",
		},
		{
			name:    "negative workers",
			mutate:  func(s *FleetSpec) { s.Workers.Count = -1 },
			wantErr: "workers.count",
		},
		{
			name: "colliding hostname prefixes",
			mutate: func(s *FleetSpec) {
				s.Workers.HostnamePrefix = s.ControlPlane.HostnamePrefix
			},
			wantErr: "workers.hostname_prefix",
		},
		{
			name:    "zero cpus",
			mutate:  func(s *FleetSpec) { s.ControlPlane.CPUs = 0 },
			wantErr: "control_plane.cpus",
		},
		{
			name:    "negative memory",
			mutate:  func(s *FleetSpec) { s.Workers.MemoryMiB = -512 },
			wantErr: "workers.memory_mib",
		},
		{
			name:    "zero disk",
			mutate:  func(s *FleetSpec) { s.ControlPlane.DiskGiB = 0 },
			wantErr: "control_plane.disk_gib",
		},
		{
			name:    "missing pool",
			mutate:  func(s *FleetSpec) { s.ControlPlane.Pool = "" },
			wantErr: "control_plane.pool",
		},
		{
			name:    "missing base image",
			mutate:  func(s *FleetSpec) { s.Workers.BaseImage = "" },
			wantErr: "workers.base_image",
		},
		{
			name:    "missing public key path",
			mutate:  func(s *FleetSpec) { s.SSH.PublicKeyPath = "" },
			wantErr: "ssh.public_key_path",
		},
		{
			name:    "missing private key path",
			mutate:  func(s *FleetSpec) { s.SSH.PrivateKeyPath = "" },
			wantErr: "ssh.private_key_path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validFleetSpec()
			tt.mutate(spec)

			err := spec.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, fleet.IsInvalidSpec(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRole(t *testing.T) {
	spec := validFleetSpec()

	assert.Equal(t, spec.ControlPlane, spec.Role("control-plane"))
	assert.Equal(t, spec.Workers, spec.Role("worker"))
}
