package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtkube/virtkube/internal/fleet"
)

const validSpec = `
cluster_name: lab
libvirt:
  uri: qemu:///system
network: default
control_plane:
  count: 1
  cpus: 2
  memory_mib: 4096
  disk_gib: 20
  pool: default
  base_image: debian-12-base
workers:
  count: 2
ssh:
  user: admin
  public_key_path: /home/admin/.ssh/id_ed25519.pub
  private_key_path: /home/admin/.ssh/id_ed25519
`

func TestLoad_ValidSpec(t *testing.T) {
	spec, err := Load([]byte(validSpec))
	require.NoError(t, err)

	assert.Equal(t, "lab", spec.ClusterName)
	assert.Equal(t, "qemu:///system", spec.Libvirt.URI)
	assert.Equal(t, 1, spec.ControlPlane.Count)
	assert.Equal(t, 2, spec.Workers.Count)
	assert.Equal(t, "admin", spec.SSH.User)
}

func TestLoad_Defaults(t *testing.T) {
	spec, err := Load([]byte(validSpec))
	require.NoError(t, err)

	assert.Equal(t, "UTC", spec.Timezone)
	assert.Equal(t, ".virtkube", spec.StateDir)
	assert.Equal(t, "10.244.0.0/16", spec.PodCIDR)
	assert.Equal(t, "lab-cp-", spec.ControlPlane.HostnamePrefix)
	assert.Equal(t, "lab-worker-", spec.Workers.HostnamePrefix)
}

func TestLoad_WorkerSizingInheritsControlPlane(t *testing.T) {
	spec, err := Load([]byte(validSpec))
	require.NoError(t, err)

	assert.Equal(t, 2, spec.Workers.CPUs)
	assert.Equal(t, 4096, spec.Workers.MemoryMiB)
	assert.Equal(t, 20, spec.Workers.DiskGiB)
	assert.Equal(t, "default", spec.Workers.Pool)
	assert.Equal(t, "debian-12-base", spec.Workers.BaseImage)
}

func TestLoad_EnvOverridesURI(t *testing.T) {
	t.Setenv("VIRTKUBE_LIBVIRT_URI", "qemu+tcp://hypervisor.lab/system")

	spec, err := Load([]byte(validSpec))
	require.NoError(t, err)
	assert.Equal(t, "qemu+tcp://hypervisor.lab/system", spec.Libvirt.URI)
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load([]byte("cluster_name: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal yaml")
}

func TestLoad_ValidationFailure(t *testing.T) {
	_, err := Load([]byte("cluster_name: lab"))
	require.Error(t, err)
	assert.True(t, fleet.IsInvalidSpec(err))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "virtkube.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validSpec), 0o600))

	spec, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "lab", spec.ClusterName)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read spec file")
}
