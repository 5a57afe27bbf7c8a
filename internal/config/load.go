package config

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the spec file looked for when none is given.
const DefaultFile = "virtkube.yaml"

// LoadFile reads, decodes, defaults and validates a fleet spec.
func LoadFile(path string) (*FleetSpec, error) {
	// #nosec G304 -- path is operator-supplied on purpose
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read spec file: %w", err)
	}
	return Load(data)
}

// Load decodes a fleet spec from YAML bytes.
func Load(data []byte) (*FleetSpec, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	var spec FleetSpec
	if err := mapstructure.Decode(raw, &spec); err != nil {
		return nil, fmt.Errorf("failed to decode spec: %w", err)
	}

	applyDefaults(&spec)

	if err := spec.Validate(); err != nil {
		return nil, err
	}

	return &spec, nil
}

func applyDefaults(spec *FleetSpec) {
	if uri := os.Getenv("VIRTKUBE_LIBVIRT_URI"); uri != "" {
		spec.Libvirt.URI = uri
	}
	if spec.Libvirt.URI == "" {
		spec.Libvirt.URI = "qemu:///system"
	}
	if spec.Network == "" {
		spec.Network = "default"
	}
	if spec.Timezone == "" {
		spec.Timezone = "UTC"
	}
	if spec.StateDir == "" {
		spec.StateDir = ".virtkube"
	}
	if spec.PodCIDR == "" {
		spec.PodCIDR = "10.244.0.0/16"
	}
	if spec.ControlPlane.HostnamePrefix == "" {
		spec.ControlPlane.HostnamePrefix = spec.ClusterName + "-cp-"
	}
	if spec.Workers.HostnamePrefix == "" {
		spec.Workers.HostnamePrefix = spec.ClusterName + "-worker-"
	}
	if spec.SSH.User == "" {
		spec.SSH.User = "admin"
	}

	defaultRole(&spec.ControlPlane, &spec.Workers)
}

// defaultRole fills worker sizing from the control-plane sizing when unset,
// so small specs only have to state sizing once.
func defaultRole(cp, workers *RoleSpec) {
	if workers.CPUs == 0 {
		workers.CPUs = cp.CPUs
	}
	if workers.MemoryMiB == 0 {
		workers.MemoryMiB = cp.MemoryMiB
	}
	if workers.DiskGiB == 0 {
		workers.DiskGiB = cp.DiskGiB
	}
	if workers.Pool == "" {
		workers.Pool = cp.Pool
	}
	if workers.BaseImage == "" {
		workers.BaseImage = cp.BaseImage
	}
}
