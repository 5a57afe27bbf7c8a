// Package libvirt wraps the libvirt RPC API behind narrow capability
// interfaces so the planner, executor and prober never touch the wire
// protocol directly. A mock implementation backs the unit tests.
package libvirt

import "context"

// DomainSpec holds all parameters for defining a virtual machine.
type DomainSpec struct {
	Name      string
	CPUs      int
	MemoryMiB int

	// RootVolume and SeedVolume name volumes inside Pool; the client
	// resolves them to host paths when building the domain definition.
	Pool       string
	RootVolume string
	SeedVolume string

	// Network is the libvirt network providing DHCP addressing.
	Network string

	// MAC is the fixed interface address, derived from the hostname so
	// DHCP leases can be correlated back to node records.
	MAC string
}

// DomainInfo is the observed state of one domain.
type DomainInfo struct {
	Name    string
	Running bool
}

// Lease is one DHCP lease on the shared network.
type Lease struct {
	Hostname string
	IP       string
	MAC      string
}

// DomainManager manages virtual machine lifecycle.
type DomainManager interface {
	// CreateDomain defines and starts a VM. It is idempotent: an already
	// defined domain is started if stopped and otherwise left alone.
	CreateDomain(ctx context.Context, spec DomainSpec) error

	// DestroyDomain powers off and undefines a VM. Absent domains are not
	// an error.
	DestroyDomain(ctx context.Context, name string) error

	// GetDomain returns the domain state, or nil if it does not exist.
	GetDomain(ctx context.Context, name string) (*DomainInfo, error)

	// ListDomains returns all domains, running or not.
	ListDomains(ctx context.Context) ([]DomainInfo, error)
}

// VolumeManager manages storage volumes in named pools.
type VolumeManager interface {
	// CloneVolume creates a new volume in pool backed by a full copy of
	// baseImage, grown to sizeGiB. Idempotent: an existing volume with the
	// target name is left alone.
	CloneVolume(ctx context.Context, pool, baseImage, name string, sizeGiB int) error

	// UploadVolume creates (or replaces) a raw volume with the given
	// content, used for seed configuration ISOs.
	UploadVolume(ctx context.Context, pool, name string, content []byte) error

	// DeleteVolume removes a volume. Absent volumes are not an error.
	DeleteVolume(ctx context.Context, pool, name string) error

	// VolumePath resolves a volume name to its host path.
	VolumePath(ctx context.Context, pool, name string) (string, error)
}

// LeaseReader enumerates DHCP leases on a network.
type LeaseReader interface {
	ListLeases(ctx context.Context, network string) ([]Lease, error)
}

// Hypervisor combines every capability the orchestrator consumes.
type Hypervisor interface {
	DomainManager
	VolumeManager
	LeaseReader

	// Close releases the underlying connection.
	Close() error
}
