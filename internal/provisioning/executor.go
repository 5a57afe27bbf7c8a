// Package provisioning carries out reconciliation plans against the
// hypervisor: volume cloning, seed disk injection, domain creation and
// teardown. Actions for different node slots run in parallel; actions for
// the same slot are serialized.
package provisioning

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/virtkube/virtkube/internal/config"
	"github.com/virtkube/virtkube/internal/fleet"
	"github.com/virtkube/virtkube/internal/plan"
	"github.com/virtkube/virtkube/internal/platform/libvirt"
	"github.com/virtkube/virtkube/internal/state"
	"github.com/virtkube/virtkube/internal/util/naming"
)

// Executor applies plan actions against the hypervisor and keeps the state
// store and audit log current.
type Executor struct {
	hv           libvirt.Hypervisor
	spec         *config.FleetSpec
	store        *state.Store
	audit        *state.AuditLog
	observer     Observer
	sshPublicKey string

	// locks serializes actions per node slot.
	locks sync.Map // fleet.NodeKey -> *sync.Mutex
}

// NewExecutor creates an executor for one run.
func NewExecutor(hv libvirt.Hypervisor, spec *config.FleetSpec, store *state.Store, audit *state.AuditLog, observer Observer, sshPublicKey string) *Executor {
	return &Executor{
		hv:           hv,
		spec:         spec,
		store:        store,
		audit:        audit,
		observer:     observer,
		sshPublicKey: strings.TrimSpace(sshPublicKey),
	}
}

// ActionResult is the outcome of one applied action.
type ActionResult struct {
	Action plan.Action
	Record fleet.NodeRecord
	Err    error
}

// Result summarizes one Apply run. Failed actions do not stop independent
// actions; the caller inspects Failed() for the partial-failure summary.
type Result struct {
	Results []ActionResult
}

// Failed returns the results that carry errors.
func (r *Result) Failed() []ActionResult {
	var out []ActionResult
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// Records returns the node records of successful create actions.
func (r *Result) Records() []fleet.NodeRecord {
	var out []fleet.NodeRecord
	for _, res := range r.Results {
		if res.Err == nil && res.Action.Type == plan.ActionCreate {
			out = append(out, res.Record)
		}
	}
	return out
}

// Apply executes every action of the plan. Creates for different slots run
// concurrently; control-plane creates are not ordered ahead of worker
// creates here because creation has no cross-role dependency. The role
// barrier is enforced later, at probe/bootstrap time.
func (e *Executor) Apply(ctx context.Context, p *plan.ReconciliationPlan) *Result {
	result := &Result{Results: make([]ActionResult, len(p.Actions))}

	var wg sync.WaitGroup
	for i, action := range p.Actions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result.Results[i] = e.apply(ctx, action)
		}()
	}
	wg.Wait()

	return result
}

func (e *Executor) apply(ctx context.Context, action plan.Action) ActionResult {
	mu := e.lockFor(action.Key())
	mu.Lock()
	defer mu.Unlock()

	var (
		rec fleet.NodeRecord
		err error
	)
	switch action.Type {
	case plan.ActionCreate:
		rec, err = e.createNode(ctx, action)
	default:
		rec, err = action.Record, e.destroyNode(ctx, action.Record)
	}
	return ActionResult{Action: action, Record: rec, Err: err}
}

func (e *Executor) lockFor(key fleet.NodeKey) *sync.Mutex {
	mu, _ := e.locks.LoadOrStore(key, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (e *Executor) createNode(ctx context.Context, action plan.Action) (fleet.NodeRecord, error) {
	role := e.roleSpec(action.Role)
	hostname := naming.Hostname(role.HostnamePrefix, action.Index)

	rec := fleet.NodeRecord{
		Role:       action.Role,
		Index:      action.Index,
		Hostname:   hostname,
		MAC:        libvirt.NodeMAC(hostname),
		RootVolume: naming.RootVolume(hostname),
		SeedVolume: naming.SeedVolume(hostname),
		Status:     fleet.StatusPending,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	if existing, ok := e.store.Get(action.Key()); ok {
		rec = existing
	}
	if err := e.store.Upsert(rec); err != nil {
		return rec, err
	}

	e.observer.Event(Event{Type: EventNodeCreating, Node: hostname, Timestamp: time.Now()})

	if err := e.hv.CloneVolume(ctx, role.Pool, role.BaseImage, rec.RootVolume, role.DiskGiB); err != nil {
		return e.failCreate(rec, action, "clone volume", err)
	}

	seed, err := BuildSeedISO(SeedConfig{
		Hostname:     hostname,
		User:         e.spec.SSH.User,
		SSHPublicKey: e.sshPublicKey,
		Timezone:     e.spec.Timezone,
	})
	if err != nil {
		return e.failCreate(rec, action, "build seed", err)
	}
	if err := e.hv.UploadVolume(ctx, role.Pool, rec.SeedVolume, seed); err != nil {
		return e.failCreate(rec, action, "upload seed", err)
	}

	domainSpec := libvirt.DomainSpec{
		Name:       naming.Domain(hostname),
		CPUs:       role.CPUs,
		MemoryMiB:  role.MemoryMiB,
		Pool:       role.Pool,
		RootVolume: rec.RootVolume,
		SeedVolume: rec.SeedVolume,
		Network:    e.spec.Network,
		MAC:        rec.MAC,
	}
	if err := e.hv.CreateDomain(ctx, domainSpec); err != nil {
		return e.failCreate(rec, action, "create domain", err)
	}

	rec = rec.WithStatus(fleet.StatusCreated)
	if err := e.store.Upsert(rec); err != nil {
		return rec, err
	}

	e.observer.Event(Event{Type: EventNodeCreated, Node: hostname, Timestamp: time.Now()})
	if err := e.audit.Record(state.AuditEntry{
		Action: "create",
		Node:   hostname,
		Resources: map[string]string{
			"domain":      hostname,
			"root_volume": rec.RootVolume,
			"seed_volume": rec.SeedVolume,
			"mac":         rec.MAC,
		},
	}); err != nil {
		return rec, err
	}
	return rec, nil
}

func (e *Executor) failCreate(rec fleet.NodeRecord, action plan.Action, op string, cause error) (fleet.NodeRecord, error) {
	err := &fleet.ProvisionError{Node: action.Key(), Op: op, Err: cause}
	rec = rec.WithFailure(err)
	// Keep the failed record on disk so the next plan/apply cycle sees it
	// and the operator can inspect what happened.
	_ = e.store.Upsert(rec)
	e.observer.Event(Event{Type: EventNodeFailed, Node: rec.Hostname, Message: err.Error(), Timestamp: time.Now()})
	_ = e.audit.Record(state.AuditEntry{Action: "create", Node: rec.Hostname, Error: err.Error()})
	return rec, err
}

func (e *Executor) destroyNode(ctx context.Context, rec fleet.NodeRecord) error {
	role := e.roleSpec(rec.Role)

	e.observer.Event(Event{Type: EventNodeDestroying, Node: rec.Hostname, Timestamp: time.Now()})

	// Each step tolerates already-absent resources so destroy is
	// idempotent.
	if err := e.hv.DestroyDomain(ctx, naming.Domain(rec.Hostname)); err != nil {
		return e.failDestroy(rec, "destroy domain", err)
	}
	if err := e.hv.DeleteVolume(ctx, role.Pool, rec.RootVolume); err != nil {
		return e.failDestroy(rec, "delete root volume", err)
	}
	if err := e.hv.DeleteVolume(ctx, role.Pool, rec.SeedVolume); err != nil {
		return e.failDestroy(rec, "delete seed volume", err)
	}

	if err := e.store.Remove(rec.Key()); err != nil {
		return err
	}

	e.observer.Event(Event{Type: EventNodeDestroyed, Node: rec.Hostname, Timestamp: time.Now()})
	return e.audit.Record(state.AuditEntry{
		Action: "destroy",
		Node:   rec.Hostname,
		Resources: map[string]string{
			"domain":      rec.Hostname,
			"root_volume": rec.RootVolume,
			"seed_volume": rec.SeedVolume,
		},
	})
}

func (e *Executor) failDestroy(rec fleet.NodeRecord, op string, cause error) error {
	err := &fleet.ProvisionError{Node: rec.Key(), Op: op, Err: cause}
	_ = e.audit.Record(state.AuditEntry{Action: "destroy", Node: rec.Hostname, Error: err.Error()})
	return err
}

func (e *Executor) roleSpec(role fleet.Role) config.RoleSpec {
	if role == fleet.RoleControlPlane {
		return e.spec.ControlPlane
	}
	return e.spec.Workers
}
