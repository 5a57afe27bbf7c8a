// Package plan computes the minimal set of create/destroy actions needed
// to reconcile actual hypervisor state with a desired fleet spec.
//
// The diff is keyed by (role, index). Sizing drift on existing nodes is
// deliberately ignored: this system supports add/remove only, not in-place
// resize.
package plan

import (
	"fmt"
	"sort"

	"github.com/virtkube/virtkube/internal/config"
	"github.com/virtkube/virtkube/internal/fleet"
)

// ActionType discriminates plan actions.
type ActionType string

const (
	// ActionCreate creates a node for a desired (role, index) slot.
	ActionCreate ActionType = "create"
	// ActionDestroy removes a node whose slot is no longer desired.
	ActionDestroy ActionType = "destroy"
)

// Action is one step of a reconciliation plan.
type Action struct {
	Type  ActionType
	Role  fleet.Role
	Index int

	// Record is the existing node to remove; set for destroy actions only.
	Record fleet.NodeRecord
}

// Key returns the node slot the action targets.
func (a Action) Key() fleet.NodeKey {
	return fleet.NodeKey{Role: a.Role, Index: a.Index}
}

func (a Action) String() string {
	switch a.Type {
	case ActionCreate:
		return fmt.Sprintf("Create(%s)", a.Key())
	default:
		return fmt.Sprintf("Destroy(%s)", a.Key())
	}
}

// ReconciliationPlan is an ordered action list. Applying it twice with no
// intervening spec change yields no further actions.
type ReconciliationPlan struct {
	Actions []Action
}

// Empty reports whether there is nothing to do.
func (p *ReconciliationPlan) Empty() bool {
	return len(p.Actions) == 0
}

// Creates returns the create actions in plan order.
func (p *ReconciliationPlan) Creates() []Action {
	return p.filter(ActionCreate)
}

// Destroys returns the destroy actions in plan order.
func (p *ReconciliationPlan) Destroys() []Action {
	return p.filter(ActionDestroy)
}

func (p *ReconciliationPlan) filter(t ActionType) []Action {
	var out []Action
	for _, a := range p.Actions {
		if a.Type == t {
			out = append(out, a)
		}
	}
	return out
}

// Plan diffs desired against actual and returns the actions to converge.
//
// Ordering: control-plane creates come before worker creates, so the plan
// never brings up workers without at least one control-plane node planned.
// Destroys are emitted per role in descending index order, keeping
// low-index nodes stable.
func Plan(desired *config.FleetSpec, actual []fleet.NodeRecord) (*ReconciliationPlan, error) {
	if desired.ControlPlane.Count < 1 {
		return nil, &fleet.InvalidSpecError{
			Field:  "control_plane.count",
			Reason: "at least one control-plane node is required",
		}
	}
	if desired.Workers.Count < 0 {
		return nil, &fleet.InvalidSpecError{
			Field:  "workers.count",
			Reason: "must not be negative",
		}
	}

	existing := make(map[fleet.NodeKey]fleet.NodeRecord, len(actual))
	for _, rec := range actual {
		existing[rec.Key()] = rec
	}

	counts := map[fleet.Role]int{
		fleet.RoleControlPlane: desired.ControlPlane.Count,
		fleet.RoleWorker:       desired.Workers.Count,
	}

	p := &ReconciliationPlan{}

	// Creates, control plane first.
	for _, role := range fleet.Roles() {
		for i := 0; i < counts[role]; i++ {
			key := fleet.NodeKey{Role: role, Index: i}
			if _, ok := existing[key]; ok {
				continue
			}
			p.Actions = append(p.Actions, Action{Type: ActionCreate, Role: role, Index: i})
		}
	}

	// Destroys, highest index first within each role.
	for _, role := range fleet.Roles() {
		var surplus []fleet.NodeRecord
		for key, rec := range existing {
			if key.Role == role && key.Index >= counts[role] {
				surplus = append(surplus, rec)
			}
		}
		sort.Slice(surplus, func(i, j int) bool {
			return surplus[i].Index > surplus[j].Index
		})
		for _, rec := range surplus {
			p.Actions = append(p.Actions, Action{
				Type:   ActionDestroy,
				Role:   rec.Role,
				Index:  rec.Index,
				Record: rec,
			})
		}
	}

	return p, nil
}

// Teardown plans the destruction of every existing node, highest index
// first within each role. Used by explicit fleet teardown, which is the
// only path allowed to go below one control-plane node.
func Teardown(actual []fleet.NodeRecord) *ReconciliationPlan {
	p := &ReconciliationPlan{}
	for _, role := range []fleet.Role{fleet.RoleWorker, fleet.RoleControlPlane} {
		var nodes []fleet.NodeRecord
		for _, rec := range actual {
			if rec.Role == role {
				nodes = append(nodes, rec)
			}
		}
		sort.Slice(nodes, func(i, j int) bool {
			return nodes[i].Index > nodes[j].Index
		})
		for _, rec := range nodes {
			p.Actions = append(p.Actions, Action{
				Type:   ActionDestroy,
				Role:   rec.Role,
				Index:  rec.Index,
				Record: rec,
			})
		}
	}
	return p
}
