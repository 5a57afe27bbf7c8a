// Package handlers implements the business logic for CLI commands.
//
// Handlers are framework-agnostic and testable independent of cobra. The
// factory variables below are replaced in tests for dependency injection.
package handlers

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/virtkube/virtkube/internal/config"
	"github.com/virtkube/virtkube/internal/orchestration"
	"github.com/virtkube/virtkube/internal/platform/libvirt"
	"github.com/virtkube/virtkube/internal/provisioning"
	"github.com/virtkube/virtkube/internal/ssh"
	"github.com/virtkube/virtkube/internal/state"
)

const kubeconfigFile = "kubeconfig"

// Factory function variables - replaced in tests for dependency injection.
var (
	// loadSpecFile loads the fleet spec from a file.
	loadSpecFile = config.LoadFile

	// newHypervisor connects to the virtualization backend.
	newHypervisor = func(uri string) (libvirt.Hypervisor, error) {
		return libvirt.NewRealClient(uri)
	}

	// newObserver builds the progress observer.
	newObserver = func() provisioning.Observer {
		return provisioning.NewConsoleObserver()
	}

	// newSSHFactory builds the per-host SSH session factory.
	newSSHFactory = ssh.NewFactory

	// defaultTimeouts returns the timeout policy for one run, with
	// environment overrides applied.
	defaultTimeouts = config.LoadTimeouts

	// readFile reads key material and kubeconfigs.
	readFile = os.ReadFile

	// writeFile persists the captured kubeconfig.
	writeFile = os.WriteFile
)

// runtime bundles everything a handler needs for one invocation.
type runtime struct {
	spec       *config.FleetSpec
	store      *state.Store
	audit      *state.AuditLog
	hv         libvirt.Hypervisor
	reconciler *orchestration.Reconciler
}

func (r *runtime) kubeconfigPath() string {
	return filepath.Join(r.spec.StateDir, kubeconfigFile)
}

// loadSpec resolves the spec path and loads it.
func loadSpec(configPath string) (*config.FleetSpec, error) {
	if configPath == "" {
		configPath = config.DefaultFile
		if _, err := os.Stat(configPath); err != nil {
			return nil, fmt.Errorf("no spec file found: create %s or pass --config", config.DefaultFile)
		}
	}
	return loadSpecFile(configPath)
}

// setup builds the runtime for one run. The returned cleanup closes the
// hypervisor connection.
func setup(configPath string) (*runtime, func(), error) {
	spec, err := loadSpec(configPath)
	if err != nil {
		return nil, nil, err
	}

	store, err := state.Open(spec.StateDir)
	if err != nil {
		return nil, nil, err
	}
	audit := state.NewAuditLog(spec.StateDir)

	hv, err := newHypervisor(spec.Libvirt.URI)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { _ = hv.Close() }

	publicKey, err := readFile(spec.SSH.PublicKeyPath)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to read ssh public key: %w", err)
	}
	privateKey, err := readFile(spec.SSH.PrivateKeyPath)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to read ssh private key: %w", err)
	}

	rec := orchestration.NewReconciler(
		hv,
		spec,
		store,
		audit,
		newObserver(),
		defaultTimeouts(),
		newSSHFactory(spec.SSH.User, privateKey),
		string(publicKey),
	)

	return &runtime{
		spec:       spec,
		store:      store,
		audit:      audit,
		hv:         hv,
		reconciler: rec,
	}, cleanup, nil
}
