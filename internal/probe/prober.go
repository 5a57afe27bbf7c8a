// Package probe polls newly created nodes until they are reachable and
// minimally configured: DHCP lease observed, SSH session established,
// cloud-init finished. Probes for independent nodes run concurrently; the
// fleet-level wait blocks until every node reaches a terminal state or the
// global timeout expires.
package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/virtkube/virtkube/internal/config"
	"github.com/virtkube/virtkube/internal/fleet"
	"github.com/virtkube/virtkube/internal/platform/libvirt"
	"github.com/virtkube/virtkube/internal/provisioning"
	"github.com/virtkube/virtkube/internal/ssh"
	"github.com/virtkube/virtkube/internal/state"
)

// bootFinishedCheck succeeds once cloud-init has completed on the node.
const bootFinishedCheck = "test -f /var/lib/cloud/instance/boot-finished"

// Prober drives node records from Created to Ready or Failed.
type Prober struct {
	leases     libvirt.LeaseReader
	sshFactory ssh.Factory
	store      *state.Store
	observer   provisioning.Observer
	timeouts   *config.Timeouts
	network    string
}

// NewProber creates a prober for the given network.
func NewProber(leases libvirt.LeaseReader, sshFactory ssh.Factory, store *state.Store, observer provisioning.Observer, timeouts *config.Timeouts, network string) *Prober {
	return &Prober{
		leases:     leases,
		sshFactory: sshFactory,
		store:      store,
		observer:   observer,
		timeouts:   timeouts,
		network:    network,
	}
}

// AwaitReady polls one node until Ready, Failed, or timeout. The returned
// record reflects the terminal state; it is also persisted to the store on
// every transition.
func (p *Prober) AwaitReady(ctx context.Context, node fleet.NodeRecord, timeout time.Duration) (fleet.NodeRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(p.timeouts.ProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			err := &fleet.TimeoutError{Node: node.Key(), Stage: stageOf(node), Err: ctx.Err()}
			node = node.WithFailure(err)
			p.persist(node)
			p.observer.Event(provisioning.Event{Type: provisioning.EventNodeFailed, Node: node.Hostname, Message: err.Error(), Timestamp: time.Now()})
			return node, err
		case <-ticker.C:
			next, done, err := p.step(ctx, node)
			if err != nil {
				// Fatal misconfiguration, surfaced immediately.
				node = next.WithFailure(err)
				p.persist(node)
				p.observer.Event(provisioning.Event{Type: provisioning.EventNodeFailed, Node: node.Hostname, Message: err.Error(), Timestamp: time.Now()})
				return node, err
			}
			if next.Status != node.Status {
				p.persist(next)
				p.announce(next)
			}
			node = next
			if done {
				return node, nil
			}
		}
	}
}

// step advances the node one probe cycle. A non-nil error is fatal;
// transient failures return the unchanged record.
func (p *Prober) step(ctx context.Context, node fleet.NodeRecord) (fleet.NodeRecord, bool, error) {
	if node.IP == "" {
		ip, err := p.findLease(ctx, node)
		if err != nil || ip == "" {
			// Lease enumeration hiccups are transient; keep polling.
			return node, false, nil
		}
		node.IP = ip
		node = node.WithStatus(fleet.StatusBooting)
		return node, false, nil
	}

	comm := p.sshFactory(node.IP)
	if _, err := comm.Execute(ctx, bootFinishedCheck); err != nil {
		if ssh.IsAuthError(err) {
			return node, false, fmt.Errorf("ssh authentication failed for %s: %w", node.Hostname, err)
		}
		// Connection refused, host unreachable, or cloud-init still
		// running: retried silently until the deadline.
		return node, false, nil
	}

	return node.WithStatus(fleet.StatusReady), true, nil
}

func (p *Prober) findLease(ctx context.Context, node fleet.NodeRecord) (string, error) {
	leases, err := p.leases.ListLeases(ctx, p.network)
	if err != nil {
		return "", err
	}
	for _, lease := range leases {
		if lease.MAC == node.MAC || (lease.Hostname != "" && lease.Hostname == node.Hostname) {
			return lease.IP, nil
		}
	}
	return "", nil
}

// AwaitFleet probes all nodes concurrently and returns the updated records
// in input order once every node is terminal or the global timeout expires.
// Per-node probe errors are joined into the returned error so callers can
// classify the failure; they never cancel sibling probes.
func (p *Prober) AwaitFleet(ctx context.Context, nodes []fleet.NodeRecord) ([]fleet.NodeRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeouts.FleetReady)
	defer cancel()

	results := make([]fleet.NodeRecord, len(nodes))
	probeErrs := make([]error, len(nodes))
	g, ctx := errgroup.WithContext(ctx)
	for i, node := range nodes {
		g.Go(func() error {
			// Individual failures are captured in the record and error
			// slices; returning nil keeps sibling probes running.
			results[i], probeErrs[i] = p.AwaitReady(ctx, node, p.timeouts.NodeReady)
			return nil
		})
	}
	_ = g.Wait()

	return results, errors.Join(probeErrs...)
}

func (p *Prober) persist(node fleet.NodeRecord) {
	if err := p.store.Upsert(node); err != nil {
		p.observer.Printf("failed to persist %s: %v", node.Hostname, err)
	}
}

func (p *Prober) announce(node fleet.NodeRecord) {
	switch node.Status {
	case fleet.StatusBooting:
		p.observer.Event(provisioning.Event{Type: provisioning.EventNodeBooting, Node: node.Hostname, Message: node.IP, Timestamp: time.Now()})
	case fleet.StatusReady:
		p.observer.Event(provisioning.Event{Type: provisioning.EventNodeReady, Node: node.Hostname, Timestamp: time.Now()})
	}
}

func stageOf(node fleet.NodeRecord) string {
	if node.IP == "" {
		return "awaiting DHCP lease"
	}
	return "awaiting ssh and cloud-init"
}
