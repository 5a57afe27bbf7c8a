// Package config loads and validates the declarative fleet specification.
//
// The spec is a YAML file (default virtkube.yaml) describing the desired
// fleet: per-role node counts and sizing, the libvirt connection, storage
// pool, base image and SSH access. The spec is immutable for the duration
// of a run.
package config

import "time"

// FleetSpec is the desired state of the fleet for one run.
type FleetSpec struct {
	ClusterName string `mapstructure:"cluster_name" yaml:"cluster_name"`

	// Libvirt holds hypervisor connection settings.
	Libvirt LibvirtConfig `mapstructure:"libvirt" yaml:"libvirt"`

	// Network is the libvirt network all nodes attach to (DHCP addressing).
	Network string `mapstructure:"network" yaml:"network"`

	ControlPlane RoleSpec `mapstructure:"control_plane" yaml:"control_plane"`
	Workers      RoleSpec `mapstructure:"workers" yaml:"workers"`

	SSH SSHConfig `mapstructure:"ssh" yaml:"ssh"`

	// Timezone is injected into each node's seed configuration.
	Timezone string `mapstructure:"timezone" yaml:"timezone"`

	// StateDir holds the node records and the audit log.
	StateDir string `mapstructure:"state_dir" yaml:"state_dir"`

	// PodCIDR is handed to kubeadm init and the CNI addon.
	PodCIDR string `mapstructure:"pod_cidr" yaml:"pod_cidr"`
}

// LibvirtConfig describes how to reach the hypervisor.
type LibvirtConfig struct {
	// URI is the libvirt connection URI, e.g. qemu:///system or
	// qemu+tcp://host/system. Overridable via VIRTKUBE_LIBVIRT_URI.
	URI string `mapstructure:"uri" yaml:"uri"`
}

// RoleSpec is the desired sizing for one role.
type RoleSpec struct {
	Count int `mapstructure:"count" yaml:"count"`

	// HostnamePrefix combined with a two-digit index yields the node
	// hostname, e.g. cp- -> cp-00.
	HostnamePrefix string `mapstructure:"hostname_prefix" yaml:"hostname_prefix"`

	CPUs      int `mapstructure:"cpus" yaml:"cpus"`
	MemoryMiB int `mapstructure:"memory_mib" yaml:"memory_mib"`
	DiskGiB   int `mapstructure:"disk_gib" yaml:"disk_gib"`

	// Pool is the libvirt storage pool holding root and seed volumes.
	Pool string `mapstructure:"pool" yaml:"pool"`

	// BaseImage is the name of the backing volume cloned for each node.
	BaseImage string `mapstructure:"base_image" yaml:"base_image"`
}

// SSHConfig describes the administrative access injected at seed time.
type SSHConfig struct {
	User string `mapstructure:"user" yaml:"user"`

	// PublicKeyPath is embedded into each node's seed configuration.
	PublicKeyPath string `mapstructure:"public_key_path" yaml:"public_key_path"`

	// PrivateKeyPath is used by the prober and bootstrap coordinator.
	PrivateKeyPath string `mapstructure:"private_key_path" yaml:"private_key_path"`
}

// Role returns the RoleSpec for the given role name.
func (s *FleetSpec) Role(role string) RoleSpec {
	if role == "control-plane" {
		return s.ControlPlane
	}
	return s.Workers
}

// Timeouts bounds every wait in the pipeline. No unbounded blocking is
// permitted anywhere.
type Timeouts struct {
	// NodeReady bounds a single node's probe from Created to Ready.
	NodeReady time.Duration

	// FleetReady bounds the whole fleet readiness wait.
	FleetReady time.Duration

	// Bootstrap bounds control-plane init and addon installation.
	Bootstrap time.Duration

	// Join bounds a single worker join attempt.
	Join time.Duration

	// ProbeInterval is the fixed polling interval of the readiness prober.
	ProbeInterval time.Duration
}

// DefaultTimeouts returns the built-in timeout policy.
func DefaultTimeouts() *Timeouts {
	return &Timeouts{
		NodeReady:     10 * time.Minute,
		FleetReady:    20 * time.Minute,
		Bootstrap:     15 * time.Minute,
		Join:          5 * time.Minute,
		ProbeInterval: 5 * time.Second,
	}
}
