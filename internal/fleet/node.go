package fleet

import (
	"fmt"
	"time"
)

// Role identifies the cluster role a node is provisioned for.
type Role string

const (
	// RoleControlPlane nodes run the Kubernetes management services.
	RoleControlPlane Role = "control-plane"
	// RoleWorker nodes run workloads only.
	RoleWorker Role = "worker"
)

// Roles lists all roles in provisioning order: control planes first, so a
// cluster never comes up with workers but no control plane.
func Roles() []Role {
	return []Role{RoleControlPlane, RoleWorker}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleControlPlane || r == RoleWorker
}

// Status is the provisioning lifecycle state of a node.
type Status string

const (
	// StatusPending means the node is planned but no resources exist yet.
	StatusPending Status = "Pending"
	// StatusCreated means the VM and its volumes exist on the hypervisor.
	StatusCreated Status = "Created"
	// StatusBooting means a DHCP lease was observed for the node.
	StatusBooting Status = "Booting"
	// StatusReady means SSH succeeds and cloud-init has finished.
	StatusReady Status = "Ready"
	// StatusFailed means the node did not become ready before its deadline,
	// or a provisioning step failed.
	StatusFailed Status = "Failed"
)

// Terminal reports whether the status is an end state of the readiness
// lifecycle.
func (s Status) Terminal() bool {
	return s == StatusReady || s == StatusFailed
}

// NodeRecord is the actual state of one instantiated node.
//
// Records are created by the provisioning executor, transitioned by the
// readiness prober, and destroyed only by an explicit destroy action. The
// prober and bootstrap coordinator treat them as read-only input and return
// updated copies rather than mutating shared state.
type NodeRecord struct {
	Role     Role   `json:"role"`
	Index    int    `json:"index"`
	Hostname string `json:"hostname"`

	// IP is empty until a DHCP lease is observed.
	IP  string `json:"ip,omitempty"`
	MAC string `json:"mac,omitempty"`

	RootVolume string `json:"root_volume"`
	SeedVolume string `json:"seed_volume"`

	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Error holds the failure message when Status is Failed.
	Error string `json:"error,omitempty"`
}

// Key returns the (role, index) identity used to match records against the
// desired spec.
func (n NodeRecord) Key() NodeKey {
	return NodeKey{Role: n.Role, Index: n.Index}
}

// NodeKey identifies a node slot independent of the resources backing it.
type NodeKey struct {
	Role  Role
	Index int
}

func (k NodeKey) String() string {
	return fmt.Sprintf("%s/%d", k.Role, k.Index)
}

// WithStatus returns a copy of the record with the status and update time set.
func (n NodeRecord) WithStatus(s Status) NodeRecord {
	n.Status = s
	n.UpdatedAt = time.Now().UTC()
	return n
}

// WithFailure returns a copy of the record marked Failed with the given cause.
func (n NodeRecord) WithFailure(err error) NodeRecord {
	n = n.WithStatus(StatusFailed)
	if err != nil {
		n.Error = err.Error()
	}
	return n
}

// ByRole partitions records by role, preserving order.
func ByRole(records []NodeRecord) map[Role][]NodeRecord {
	out := make(map[Role][]NodeRecord)
	for _, r := range records {
		out[r.Role] = append(out[r.Role], r)
	}
	return out
}

// Ready filters records down to those in Ready state.
func Ready(records []NodeRecord) []NodeRecord {
	var out []NodeRecord
	for _, r := range records {
		if r.Status == StatusReady {
			out = append(out, r)
		}
	}
	return out
}
