package config

import (
	"fmt"

	"github.com/virtkube/virtkube/internal/fleet"
)

// Validate checks the spec invariants. A spec that fails validation is
// rejected before anything is applied.
func (s *FleetSpec) Validate() error {
	if s.ClusterName == "" {
		return &fleet.InvalidSpecError{Field: "cluster_name", Reason: "is required"}
	}
	if s.ControlPlane.Count < 1 {
		return &fleet.InvalidSpecError{Field: "control_plane.count", Reason: "at least one control-plane node is required"}
	}
	if s.Workers.Count < 0 {
		return &fleet.InvalidSpecError{Field: "workers.count", Reason: "must not be negative"}
	}
	if s.ControlPlane.HostnamePrefix == s.Workers.HostnamePrefix {
		return &fleet.InvalidSpecError{Field: "workers.hostname_prefix", Reason: "must differ from control_plane.hostname_prefix"}
	}

	if err := validateRole("control_plane", s.ControlPlane); err != nil {
		return err
	}
	if err := validateRole("workers", s.Workers); err != nil {
		return err
	}

	if s.SSH.PublicKeyPath == "" {
		return &fleet.InvalidSpecError{Field: "ssh.public_key_path", Reason: "is required"}
	}
	if s.SSH.PrivateKeyPath == "" {
		return &fleet.InvalidSpecError{Field: "ssh.private_key_path", Reason: "is required"}
	}
	return nil
}

func validateRole(field string, r RoleSpec) error {
	sizing := []struct {
		name  string
		value int
	}{
		{"cpus", r.CPUs},
		{"memory_mib", r.MemoryMiB},
		{"disk_gib", r.DiskGiB},
	}
	for _, s := range sizing {
		if s.value <= 0 {
			return &fleet.InvalidSpecError{
				Field:  fmt.Sprintf("%s.%s", field, s.name),
				Reason: "must be a positive integer",
			}
		}
	}
	if r.Pool == "" {
		return &fleet.InvalidSpecError{Field: field + ".pool", Reason: "is required"}
	}
	if r.BaseImage == "" {
		return &fleet.InvalidSpecError{Field: field + ".base_image", Reason: "is required"}
	}
	return nil
}
