// Package bootstrap sequences cluster formation across the reconciled,
// ready fleet: initialize one control-plane node, install the pod-network
// addon, join the remaining nodes, and confirm health through the cluster
// API.
package bootstrap

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/virtkube/virtkube/internal/config"
	"github.com/virtkube/virtkube/internal/fleet"
	"github.com/virtkube/virtkube/internal/k8s"
	"github.com/virtkube/virtkube/internal/provisioning"
	"github.com/virtkube/virtkube/internal/ssh"
	"github.com/virtkube/virtkube/internal/state"
	"github.com/virtkube/virtkube/internal/util/retry"
)

// Phase is the coordinator's position in the formation state machine.
type Phase string

const (
	PhaseUnbootstrapped    Phase = "Unbootstrapped"
	PhaseControlPlaneReady Phase = "ControlPlaneReady"
	PhaseNetworkReady      Phase = "NetworkReady"
	PhaseJoining           Phase = "Joining"
	PhaseFormed            Phase = "Formed"
)

// Outcome is the terminal report of a bootstrap run.
type Outcome string

const (
	// OutcomeFormed means every expected node is healthy.
	OutcomeFormed Outcome = "Formed"
	// OutcomePartiallyFormed means the control plane is up but some
	// workers failed. A valid terminal state, not an error.
	OutcomePartiallyFormed Outcome = "PartiallyFormed"
	// OutcomeFailed means no cluster was formed.
	OutcomeFailed Outcome = "FailedToForm"
)

// NodeResult reports the join outcome of one node.
type NodeResult struct {
	Node     fleet.NodeKey
	Hostname string
	Err      error
}

// Result is the roll-up reported to the operator.
type Result struct {
	Outcome    Outcome
	Phase      Phase
	Endpoint   string
	Kubeconfig []byte
	Nodes      []NodeResult
}

// clusterClient is the slice of the cluster API the coordinator needs.
type clusterClient interface {
	WaitForNodesReady(ctx context.Context, expected []string, timeout time.Duration) error
	NodeStatuses(ctx context.Context) ([]k8s.NodeStatus, error)
}

// Coordinator drives the bootstrap state machine.
type Coordinator struct {
	sshFactory ssh.Factory
	observer   provisioning.Observer
	timeouts   *config.Timeouts
	audit      *state.AuditLog
	podCIDR    string

	cni CNIInstaller

	// newClusterClient is replaced in tests.
	newClusterClient func(kubeconfig []byte) (clusterClient, error)

	// joinRetries bounds per-worker join attempts.
	joinRetries int
}

// NewCoordinator creates a bootstrap coordinator.
func NewCoordinator(sshFactory ssh.Factory, observer provisioning.Observer, timeouts *config.Timeouts, audit *state.AuditLog, podCIDR string) *Coordinator {
	return &Coordinator{
		sshFactory: sshFactory,
		observer:   observer,
		timeouts:   timeouts,
		audit:      audit,
		podCIDR:    podCIDR,
		cni:        FlannelInstaller{},
		newClusterClient: func(kubeconfig []byte) (clusterClient, error) {
			return k8s.NewClientFromBytes(kubeconfig)
		},
		joinRetries: 3,
	}
}

// Run forms the cluster over the ready subset of nodes. Control-plane
// initialization failure is fatal and reported, not retried; rerunning
// bootstrap from scratch is the recovery path. Worker failures are
// contained per node. Every run is audited, successful or not.
func (c *Coordinator) Run(ctx context.Context, nodes []fleet.NodeRecord) (*Result, error) {
	result, err := c.run(ctx, nodes)
	c.auditRun(result, err)
	return result, err
}

func (c *Coordinator) run(ctx context.Context, nodes []fleet.NodeRecord) (*Result, error) {
	ready := fleet.Ready(nodes)
	cps := sortByIndex(filterRole(ready, fleet.RoleControlPlane))
	workers := sortByIndex(filterRole(ready, fleet.RoleWorker))

	if len(cps) == 0 {
		err := &fleet.BootstrapError{Stage: "init", Err: fmt.Errorf("no ready control-plane node")}
		return &Result{Outcome: OutcomeFailed, Phase: PhaseUnbootstrapped}, err
	}

	// Lowest index initializes; the rest join as control planes.
	initNode, extraCPs := cps[0], cps[1:]

	result := &Result{Phase: PhaseUnbootstrapped}

	kubeconfig, token, certKey, err := c.initControlPlane(ctx, initNode)
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Nodes = append(result.Nodes, NodeResult{Node: initNode.Key(), Hostname: initNode.Hostname, Err: err})
		return result, err
	}
	result.Phase = PhaseControlPlaneReady
	result.Endpoint = token.Endpoint
	result.Kubeconfig = kubeconfig
	result.Nodes = append(result.Nodes, NodeResult{Node: initNode.Key(), Hostname: initNode.Hostname})

	if err := c.cni.Install(ctx, kubeconfig, c.podCIDR); err != nil {
		berr := &fleet.BootstrapError{Stage: "pod network addon", Err: err}
		result.Outcome = OutcomeFailed
		return result, berr
	}
	result.Phase = PhaseNetworkReady
	c.observer.Printf("pod network addon installed")

	result.Phase = PhaseJoining
	joinResults := c.joinNodes(ctx, initNode, extraCPs, workers, token, certKey)
	result.Nodes = append(result.Nodes, joinResults...)

	expected := expectedHostnames(result.Nodes)
	client, err := c.newClusterClient(kubeconfig)
	if err != nil {
		berr := &fleet.BootstrapError{Stage: "cluster client", Err: err}
		result.Outcome = OutcomeFailed
		return result, berr
	}
	if err := client.WaitForNodesReady(ctx, expected, c.timeouts.Bootstrap); err != nil {
		c.observer.Printf("not all nodes reported ready: %v", err)
		c.markUnhealthy(ctx, client, result, err)
	}

	result.Outcome = outcomeOf(result.Nodes)
	if result.Outcome == OutcomeFormed {
		result.Phase = PhaseFormed
	}
	return result, nil
}

// markUnhealthy attaches a timeout to every joined node the cluster API
// does not report Ready. A join that exits zero is not formation; only
// nodes the API server sees healthy count toward Formed.
func (c *Coordinator) markUnhealthy(ctx context.Context, client clusterClient, result *Result, waitErr error) {
	ready := make(map[string]bool)
	if statuses, err := client.NodeStatuses(ctx); err == nil {
		for _, s := range statuses {
			ready[s.Name] = s.Ready
		}
	}
	for i, n := range result.Nodes {
		if n.Err == nil && !ready[n.Hostname] {
			result.Nodes[i].Err = &fleet.TimeoutError{Node: n.Node, Stage: "awaiting cluster node ready", Err: waitErr}
		}
	}
}

// auditRun appends the bootstrap outcome to the audit log. Failed runs are
// recorded too; the trail must reconstruct unsuccessful bootstraps. The
// join token is never written here.
func (c *Coordinator) auditRun(result *Result, runErr error) {
	entry := state.AuditEntry{
		Action: "bootstrap",
		Resources: map[string]string{
			"outcome": string(result.Outcome),
			"phase":   string(result.Phase),
		},
	}
	if result.Endpoint != "" {
		entry.Resources["endpoint"] = result.Endpoint
	}
	if runErr != nil {
		entry.Error = runErr.Error()
	}
	_ = c.audit.Record(entry)
}

// initControlPlane runs kubeadm init on the designated node, or only
// captures credentials when the node is already initialized.
func (c *Coordinator) initControlPlane(ctx context.Context, node fleet.NodeRecord) ([]byte, ClusterJoinToken, string, error) {
	comm := c.sshFactory(node.IP)

	var certKey string
	if isInitialized(ctx, comm) {
		c.observer.Printf("control plane on %s already initialized, skipping init", node.Hostname)
	} else {
		c.observer.Printf("initializing control plane on %s", node.Hostname)
		out, err := comm.Execute(ctx, initCommand(node.IP, c.podCIDR))
		if err != nil {
			return nil, ClusterJoinToken{}, "", &fleet.BootstrapError{Stage: "init", Err: err}
		}
		// The certificate key only appears in fresh init output; reruns
		// with extra control planes would need re-uploaded certs.
		certKey, _ = ParseCertificateKey(out)
	}

	kubeconfig, err := fetchKubeconfig(ctx, comm)
	if err != nil {
		return nil, ClusterJoinToken{}, "", &fleet.BootstrapError{Stage: "kubeconfig capture", Err: err}
	}
	c.stageKubeconfig(ctx, comm, node, kubeconfig)

	token, err := fetchJoinToken(ctx, comm)
	if err != nil {
		return nil, ClusterJoinToken{}, "", &fleet.BootstrapError{Stage: "join token", Err: err}
	}

	return kubeconfig, token, certKey, nil
}

// stageKubeconfig copies the admin kubeconfig into the node user's home so
// kubectl works over a plain SSH session. Staging failures are reported
// but never block formation.
func (c *Coordinator) stageKubeconfig(ctx context.Context, comm ssh.Communicator, node fleet.NodeRecord, kubeconfig []byte) {
	if _, err := comm.Execute(ctx, "mkdir -p $HOME/.kube"); err != nil {
		c.observer.Printf("could not stage kubeconfig on %s: %v", node.Hostname, err)
		return
	}
	if err := comm.UploadFile(ctx, kubeconfig, ".kube/config"); err != nil {
		c.observer.Printf("could not stage kubeconfig on %s: %v", node.Hostname, err)
	}
}

// joinNodes joins extra control planes first, then all workers in
// parallel. A failed join never blocks the others.
func (c *Coordinator) joinNodes(ctx context.Context, initNode fleet.NodeRecord, extraCPs, workers []fleet.NodeRecord, token ClusterJoinToken, certKey string) []NodeResult {
	var results []NodeResult

	// Control planes join sequentially: etcd membership changes do not
	// tolerate concurrent joins.
	for _, node := range extraCPs {
		err := c.joinOne(ctx, initNode, node, token, certKey)
		results = append(results, NodeResult{Node: node.Key(), Hostname: node.Hostname, Err: err})
	}

	workerResults := make([]NodeResult, len(workers))
	g, gctx := errgroup.WithContext(ctx)
	for i, node := range workers {
		g.Go(func() error {
			err := c.joinOne(gctx, initNode, node, token, "")
			workerResults[i] = NodeResult{Node: node.Key(), Hostname: node.Hostname, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return append(results, workerResults...)
}

// joinOne joins a single node with bounded retries, re-fetching the token
// when it expired mid-run.
func (c *Coordinator) joinOne(ctx context.Context, initNode, node fleet.NodeRecord, token ClusterJoinToken, certKey string) error {
	comm := c.sshFactory(node.IP)

	if isJoined(ctx, comm) {
		c.observer.Printf("%s already joined, skipping", node.Hostname)
		return nil
	}

	c.observer.Printf("joining %s", node.Hostname)

	attempts := 0
	err := retry.Do(ctx, func() error {
		attempts++

		cmd := token.JoinCommand()
		if certKey != "" {
			cmd = token.ControlPlaneJoinCommand(certKey)
		}

		joinCtx, cancel := context.WithTimeout(ctx, c.timeouts.Join)
		defer cancel()

		_, err := comm.Execute(joinCtx, cmd)
		if err != nil && isTokenError(err) {
			if fresh, tokenErr := fetchJoinToken(ctx, c.sshFactory(initNode.IP)); tokenErr == nil {
				token = fresh
			}
		}
		return err
	}, retry.WithMaxRetries(c.joinRetries), retry.WithInitialDelay(5*time.Second))
	if err != nil {
		jerr := &fleet.JoinError{Node: node.Key(), Attempts: attempts, Err: err}
		c.observer.Event(provisioning.Event{Type: provisioning.EventNodeFailed, Node: node.Hostname, Message: jerr.Error(), Timestamp: time.Now()})
		return jerr
	}

	c.observer.Printf("%s joined", node.Hostname)
	return nil
}

func filterRole(nodes []fleet.NodeRecord, role fleet.Role) []fleet.NodeRecord {
	var out []fleet.NodeRecord
	for _, n := range nodes {
		if n.Role == role {
			out = append(out, n)
		}
	}
	return out
}

func sortByIndex(nodes []fleet.NodeRecord) []fleet.NodeRecord {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Index < nodes[j].Index })
	return nodes
}

func expectedHostnames(results []NodeResult) []string {
	var out []string
	for _, r := range results {
		if r.Err == nil {
			out = append(out, r.Hostname)
		}
	}
	return out
}

func outcomeOf(results []NodeResult) Outcome {
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	switch {
	case failed == 0:
		return OutcomeFormed
	case failed == len(results):
		return OutcomeFailed
	default:
		return OutcomePartiallyFormed
	}
}
