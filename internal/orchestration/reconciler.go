// Package orchestration provides high-level workflow coordination: it
// sequences planning, execution, readiness probing and bootstrap, and
// keeps persisted state in sync with the hypervisor, which remains the
// source of truth.
package orchestration

import (
	"context"
	"errors"
	"fmt"

	"github.com/virtkube/virtkube/internal/bootstrap"
	"github.com/virtkube/virtkube/internal/config"
	"github.com/virtkube/virtkube/internal/fleet"
	"github.com/virtkube/virtkube/internal/plan"
	"github.com/virtkube/virtkube/internal/platform/libvirt"
	"github.com/virtkube/virtkube/internal/probe"
	"github.com/virtkube/virtkube/internal/provisioning"
	"github.com/virtkube/virtkube/internal/ssh"
	"github.com/virtkube/virtkube/internal/state"
)

// Reconciler wires the planner, executor, prober and coordinator for one
// fleet.
type Reconciler struct {
	hv         libvirt.Hypervisor
	spec       *config.FleetSpec
	store      *state.Store
	audit      *state.AuditLog
	observer   provisioning.Observer
	timeouts   *config.Timeouts
	sshFactory ssh.Factory

	executor    *provisioning.Executor
	prober      *probe.Prober
	coordinator *bootstrap.Coordinator
}

// NewReconciler creates a reconciler with the default component wiring.
func NewReconciler(hv libvirt.Hypervisor, spec *config.FleetSpec, store *state.Store, audit *state.AuditLog, observer provisioning.Observer, timeouts *config.Timeouts, sshFactory ssh.Factory, sshPublicKey string) *Reconciler {
	return &Reconciler{
		hv:          hv,
		spec:        spec,
		store:       store,
		audit:       audit,
		observer:    observer,
		timeouts:    timeouts,
		sshFactory:  sshFactory,
		executor:    provisioning.NewExecutor(hv, spec, store, audit, observer, sshPublicKey),
		prober:      probe.NewProber(hv, sshFactory, store, observer, timeouts, spec.Network),
		coordinator: bootstrap.NewCoordinator(sshFactory, observer, timeouts, audit, spec.PodCIDR),
	}
}

// Plan refreshes actual state and computes the reconciliation plan without
// applying anything.
func (r *Reconciler) Plan(ctx context.Context) (*plan.ReconciliationPlan, error) {
	actual, err := r.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	return plan.Plan(r.spec, actual)
}

// Apply reconciles the fleet: plan, execute, then probe new and
// not-yet-ready nodes to a terminal state. Control-plane nodes are probed
// before workers so the later bootstrap phases always find the control
// plane settled first.
func (r *Reconciler) Apply(ctx context.Context) (*provisioning.Result, []fleet.NodeRecord, error) {
	p, err := r.Plan(ctx)
	if err != nil {
		return nil, nil, err
	}

	if p.Empty() {
		r.observer.Printf("fleet already matches the spec, nothing to apply")
	} else {
		r.observer.Printf("applying %d actions", len(p.Actions))
	}

	result := r.executor.Apply(ctx, p)

	byRole := fleet.ByRole(r.pending())
	_, cpErr := r.prober.AwaitFleet(ctx, byRole[fleet.RoleControlPlane])
	_, workerErr := r.prober.AwaitFleet(ctx, byRole[fleet.RoleWorker])

	records := r.store.Records()
	if err := failureError("fleet reconciliation finished with failures", result, cpErr, workerErr); err != nil {
		return result, records, err
	}
	return result, records, nil
}

// failureError rolls execution and probe failures into one error that
// still exposes the typed causes to errors.As, so the CLI keeps its
// distinct exit codes. Returns nil when nothing failed.
func failureError(msg string, result *provisioning.Result, probeErrs ...error) error {
	var errs []error
	for _, res := range result.Failed() {
		errs = append(errs, res.Err)
	}
	errs = append(errs, probeErrs...)
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return nil
}

// pending returns nodes that still need probing.
func (r *Reconciler) pending() []fleet.NodeRecord {
	var out []fleet.NodeRecord
	for _, rec := range r.store.Records() {
		switch rec.Status {
		case fleet.StatusCreated, fleet.StatusBooting:
			out = append(out, rec)
		}
	}
	return out
}

// Destroy tears down the whole fleet.
func (r *Reconciler) Destroy(ctx context.Context) (*provisioning.Result, error) {
	actual, err := r.Refresh(ctx)
	if err != nil {
		return nil, err
	}

	p := plan.Teardown(actual)
	if p.Empty() {
		r.observer.Printf("no nodes to destroy")
		return &provisioning.Result{}, nil
	}

	r.observer.Printf("destroying %d nodes", len(p.Actions))
	result := r.executor.Apply(ctx, p)
	if err := failureError("teardown finished with failures", result); err != nil {
		return result, err
	}
	return result, nil
}

// Bootstrap forms the Kubernetes cluster across the ready fleet.
func (r *Reconciler) Bootstrap(ctx context.Context) (*bootstrap.Result, error) {
	actual, err := r.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	return r.coordinator.Run(ctx, actual)
}

// Refresh re-syncs node records from live hypervisor state. Records whose
// domain vanished are dropped; domains matching the naming scheme but
// missing a record are adopted. IPs are refreshed from current leases.
func (r *Reconciler) Refresh(ctx context.Context) ([]fleet.NodeRecord, error) {
	domains, err := r.hv.ListDomains(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list domains: %w", err)
	}
	leases, err := r.hv.ListLeases(ctx, r.spec.Network)
	if err != nil {
		return nil, fmt.Errorf("failed to list leases: %w", err)
	}

	live := make(map[string]libvirt.DomainInfo, len(domains))
	for _, d := range domains {
		live[d.Name] = d
	}

	var records []fleet.NodeRecord
	seen := make(map[fleet.NodeKey]bool)

	for _, rec := range r.store.Records() {
		if _, ok := live[rec.Hostname]; !ok {
			r.observer.Printf("domain %s is gone, dropping record", rec.Hostname)
			continue
		}
		if ip := leaseIP(leases, rec); ip != "" {
			rec.IP = ip
		}
		records = append(records, rec)
		seen[rec.Key()] = true
	}

	// Adopt domains created by earlier runs whose records were lost.
	for name := range live {
		rec, ok := recordFromName(r.spec, name)
		if !ok || seen[rec.Key()] {
			continue
		}
		if ip := leaseIP(leases, rec); ip != "" {
			rec.IP = ip
			rec.Status = fleet.StatusBooting
		}
		r.observer.Printf("adopting unmanaged domain %s as %s", name, rec.Key())
		records = append(records, rec)
	}

	if err := r.store.Replace(records); err != nil {
		return nil, err
	}
	return records, nil
}

func leaseIP(leases []libvirt.Lease, rec fleet.NodeRecord) string {
	for _, l := range leases {
		if l.MAC == rec.MAC || (l.Hostname != "" && l.Hostname == rec.Hostname) {
			return l.IP
		}
	}
	return ""
}

