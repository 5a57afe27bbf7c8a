package k8s

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

func clusterNode(name string, ready bool) *corev1.Node {
	status := corev1.ConditionFalse
	if ready {
		status = corev1.ConditionTrue
	}
	return &corev1.Node{
		ObjectMeta: metav1.ObjectMeta{Name: name},
		Status: corev1.NodeStatus{
			Conditions: []corev1.NodeCondition{
				{Type: corev1.NodeMemoryPressure, Status: corev1.ConditionFalse},
				{Type: corev1.NodeReady, Status: status},
			},
		},
	}
}

func TestNodeStatuses(t *testing.T) {
	clientset := fake.NewSimpleClientset(
		clusterNode("lab-cp-00", true),
		clusterNode("lab-worker-00", false),
	)
	client := &Client{clientset: clientset}

	statuses, err := client.NodeStatuses(context.Background())
	require.NoError(t, err)
	require.Len(t, statuses, 2)

	byName := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		byName[s.Name] = s.Ready
	}
	assert.True(t, byName["lab-cp-00"])
	assert.False(t, byName["lab-worker-00"])
}

func TestWaitForNodesReady_AllReady(t *testing.T) {
	clientset := fake.NewSimpleClientset(
		clusterNode("lab-cp-00", true),
		clusterNode("lab-worker-00", true),
	)
	client := &Client{clientset: clientset}

	err := client.WaitForNodesReady(context.Background(), []string{"lab-cp-00", "lab-worker-00"}, 10*time.Second)
	assert.NoError(t, err)
}

func TestWaitForNodesReady_Timeout(t *testing.T) {
	clientset := fake.NewSimpleClientset(clusterNode("lab-cp-00", true))
	client := &Client{clientset: clientset}

	// lab-worker-00 never registers.
	err := client.WaitForNodesReady(context.Background(), []string{"lab-cp-00", "lab-worker-00"}, 100*time.Millisecond)
	assert.Error(t, err)
}

func TestIsNodeReady_NoReadyCondition(t *testing.T) {
	node := &corev1.Node{
		Status: corev1.NodeStatus{
			Conditions: []corev1.NodeCondition{
				{Type: corev1.NodeMemoryPressure, Status: corev1.ConditionFalse},
			},
		},
	}
	assert.False(t, isNodeReady(node))
}

func TestResourceForKind(t *testing.T) {
	assert.Equal(t, "daemonsets", resourceForKind("DaemonSet"))
	assert.Equal(t, "networkpolicies", resourceForKind("NetworkPolicy"))
	assert.Equal(t, "ingresses", resourceForKind("Ingress"))
	assert.Equal(t, "clusterrolebindings", resourceForKind("ClusterRoleBinding"))
	// Unknown kinds fall back to the lowercased plural.
	assert.Equal(t, "foos", resourceForKind("Foo"))
}
