package handlers

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtkube/virtkube/internal/config"
	"github.com/virtkube/virtkube/internal/fleet"
	"github.com/virtkube/virtkube/internal/k8s"
	"github.com/virtkube/virtkube/internal/platform/libvirt"
	"github.com/virtkube/virtkube/internal/provisioning"
	"github.com/virtkube/virtkube/internal/ssh"
)

// saveAndRestoreFactories saves the current factory functions and restores
// them after the test.
func saveAndRestoreFactories(t *testing.T) {
	t.Helper()
	origLoadSpecFile := loadSpecFile
	origNewHypervisor := newHypervisor
	origNewObserver := newObserver
	origNewSSHFactory := newSSHFactory
	origDefaultTimeouts := defaultTimeouts
	origReadFile := readFile
	origWriteFile := writeFile
	origNewClusterReader := newClusterReader

	t.Cleanup(func() {
		loadSpecFile = origLoadSpecFile
		newHypervisor = origNewHypervisor
		newObserver = origNewObserver
		newSSHFactory = origNewSSHFactory
		defaultTimeouts = origDefaultTimeouts
		readFile = origReadFile
		writeFile = origWriteFile
		newClusterReader = origNewClusterReader
	})
}

type stubComm struct{ err error }

func (s stubComm) Execute(context.Context, string) (string, error) { return "", s.err }
func (s stubComm) UploadFile(context.Context, []byte, string) error {
	return s.err
}

func handlerSpec(t *testing.T) *config.FleetSpec {
	t.Helper()
	return &config.FleetSpec{
		ClusterName: "lab",
		Libvirt:     config.LibvirtConfig{URI: "qemu:///system"},
		Network:     "default",
		Timezone:    "UTC",
		StateDir:    t.TempDir(),
		PodCIDR:     "10.244.0.0/16",
		ControlPlane: config.RoleSpec{
			Count:          1,
			HostnamePrefix: "lab-cp-",
			CPUs:           2,
			MemoryMiB:      4096,
			DiskGiB:        20,
			Pool:           "default",
			BaseImage:      "debian-12-base",
		},
		Workers: config.RoleSpec{
			Count:          1,
			HostnamePrefix: "lab-worker-",
			CPUs:           2,
			MemoryMiB:      4096,
			DiskGiB:        20,
			Pool:           "default",
			BaseImage:      "debian-12-base",
		},
		SSH: config.SSHConfig{
			User:           "admin",
			PublicKeyPath:  "/keys/id.pub",
			PrivateKeyPath: "/keys/id",
		},
	}
}

// injectDefaults wires the fakes every handler test starts from: an
// in-memory hypervisor, canned key material and fast timeouts.
func injectDefaults(t *testing.T, hv *libvirt.MockClient, sshErr error) {
	t.Helper()
	spec := handlerSpec(t)

	loadSpecFile = func(string) (*config.FleetSpec, error) { return spec, nil }
	newHypervisor = func(string) (libvirt.Hypervisor, error) { return hv, nil }
	newObserver = func() provisioning.Observer { return provisioning.NopObserver{} }
	readFile = func(path string) ([]byte, error) {
		switch path {
		case "/keys/id.pub":
			return []byte("ssh-ed25519 AAAA test"), nil
		case "/keys/id":
			return []byte("fake private key"), nil
		}
		return os.ReadFile(path)
	}
	newSSHFactory = func(string, []byte) ssh.Factory {
		return func(string) ssh.Communicator { return stubComm{err: sshErr} }
	}
	defaultTimeouts = func() *config.Timeouts {
		return &config.Timeouts{
			NodeReady:     200 * time.Millisecond,
			FleetReady:    time.Second,
			Bootstrap:     time.Second,
			Join:          time.Second,
			ProbeInterval: 5 * time.Millisecond,
		}
	}
}

func addLeases(hv *libvirt.MockClient) {
	hv.AddLease("default", libvirt.Lease{Hostname: "lab-cp-00", IP: "192.168.122.10", MAC: libvirt.NodeMAC("lab-cp-00")})
	hv.AddLease("default", libvirt.Lease{Hostname: "lab-worker-00", IP: "192.168.122.11", MAC: libvirt.NodeMAC("lab-worker-00")})
}

func TestPlanHandler(t *testing.T) {
	saveAndRestoreFactories(t)
	hv := libvirt.NewMockClient()
	injectDefaults(t, hv, nil)

	err := Plan(context.Background(), "virtkube.yaml")
	require.NoError(t, err)
}

func TestPlanHandler_SpecLoadError(t *testing.T) {
	saveAndRestoreFactories(t)
	injectDefaults(t, libvirt.NewMockClient(), nil)
	loadSpecFile = func(string) (*config.FleetSpec, error) {
		return nil, &fleet.InvalidSpecError{Field: "cluster_name", Reason: "is required"}
	}

	err := Plan(context.Background(), "bad.yaml")
	require.Error(t, err)
	assert.True(t, fleet.IsInvalidSpec(err))
}

func TestPlanHandler_HypervisorError(t *testing.T) {
	saveAndRestoreFactories(t)
	injectDefaults(t, libvirt.NewMockClient(), nil)
	newHypervisor = func(string) (libvirt.Hypervisor, error) {
		return nil, errors.New("connection refused")
	}

	err := Plan(context.Background(), "virtkube.yaml")
	require.Error(t, err)
}

func TestPlanHandler_MissingKeyFile(t *testing.T) {
	saveAndRestoreFactories(t)
	injectDefaults(t, libvirt.NewMockClient(), nil)
	readFile = func(string) ([]byte, error) {
		return nil, os.ErrNotExist
	}

	err := Plan(context.Background(), "virtkube.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ssh public key")
}

func TestApplyHandler(t *testing.T) {
	saveAndRestoreFactories(t)
	hv := libvirt.NewMockClient()
	hv.AddBaseImage("default", "debian-12-base")
	addLeases(hv)
	injectDefaults(t, hv, nil)

	err := Apply(context.Background(), "virtkube.yaml")
	require.NoError(t, err)

	domains, derr := hv.ListDomains(context.Background())
	require.NoError(t, derr)
	assert.Len(t, domains, 2)
}

func TestApplyHandler_ProvisionFailure(t *testing.T) {
	saveAndRestoreFactories(t)
	hv := libvirt.NewMockClient() // no base image
	injectDefaults(t, hv, nil)

	err := Apply(context.Background(), "virtkube.yaml")
	require.Error(t, err)
	// The provision classification reaches the command layer, where it
	// selects the dedicated exit code.
	assert.True(t, fleet.IsProvision(err))
}

func TestDestroyHandler(t *testing.T) {
	saveAndRestoreFactories(t)
	hv := libvirt.NewMockClient()
	hv.AddBaseImage("default", "debian-12-base")
	addLeases(hv)
	injectDefaults(t, hv, nil)

	require.NoError(t, Apply(context.Background(), "virtkube.yaml"))
	require.NoError(t, Destroy(context.Background(), "virtkube.yaml"))

	domains, err := hv.ListDomains(context.Background())
	require.NoError(t, err)
	assert.Empty(t, domains)
}

func TestDestroyHandler_EmptyFleet(t *testing.T) {
	saveAndRestoreFactories(t)
	injectDefaults(t, libvirt.NewMockClient(), nil)

	err := Destroy(context.Background(), "virtkube.yaml")
	require.NoError(t, err)
}

func TestStatusHandler_NoKubeconfig(t *testing.T) {
	saveAndRestoreFactories(t)
	hv := libvirt.NewMockClient()
	hv.AddBaseImage("default", "debian-12-base")
	addLeases(hv)
	injectDefaults(t, hv, nil)

	require.NoError(t, Apply(context.Background(), "virtkube.yaml"))

	// No kubeconfig captured yet: fleet view only, no error.
	err := Status(context.Background(), "virtkube.yaml")
	require.NoError(t, err)
}

func TestStatusHandler_WithCluster(t *testing.T) {
	saveAndRestoreFactories(t)
	hv := libvirt.NewMockClient()
	injectDefaults(t, hv, nil)

	// Capture the state dir the injected spec uses.
	spec, err := loadSpecFile("")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(spec.StateDir, "kubeconfig"), []byte("apiVersion: v1"), 0o600))

	var gotKubeconfig []byte
	newClusterReader = func(kubeconfig []byte) (clusterReader, error) {
		gotKubeconfig = kubeconfig
		return stubCluster{statuses: []k8s.NodeStatus{
			{Name: "lab-cp-00", Ready: true},
			{Name: "lab-worker-00", Ready: false},
		}}, nil
	}

	require.NoError(t, Status(context.Background(), "virtkube.yaml"))
	assert.Equal(t, []byte("apiVersion: v1"), gotKubeconfig)
}

type stubCluster struct {
	statuses []k8s.NodeStatus
	err      error
}

func (s stubCluster) NodeStatuses(context.Context) ([]k8s.NodeStatus, error) {
	return s.statuses, s.err
}

func TestStatusHandler_ClusterUnreachable(t *testing.T) {
	saveAndRestoreFactories(t)
	hv := libvirt.NewMockClient()
	injectDefaults(t, hv, nil)

	spec, err := loadSpecFile("")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(spec.StateDir, "kubeconfig"), []byte("apiVersion: v1"), 0o600))

	newClusterReader = func([]byte) (clusterReader, error) {
		return stubCluster{err: errors.New("connection refused")}, nil
	}

	// The fleet view still renders; an unreachable API server is reported,
	// not fatal.
	require.NoError(t, Status(context.Background(), "virtkube.yaml"))
}

func TestLoadSpec_DefaultFileMissing(t *testing.T) {
	saveAndRestoreFactories(t)

	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(cwd) })

	_, err = loadSpec("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no spec file found")
}

func TestDisplayPath(t *testing.T) {
	assert.Equal(t, "virtkube.yaml", displayPath(""))
	assert.Equal(t, "prod.yaml", displayPath("prod.yaml"))
}
