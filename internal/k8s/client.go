// Package k8s wraps the cluster control-plane API: node status queries,
// manifest application and readiness waits used once the cluster exists.
package k8s

import (
	"context"
	"fmt"
	"strings"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/apimachinery/pkg/util/yaml"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
)

// Client wraps Kubernetes API operations against a freshly formed cluster.
type Client struct {
	clientset kubernetes.Interface
	dynamic   dynamic.Interface
}

// NewClientFromBytes creates a client from kubeconfig bytes, as captured
// off the first control-plane node.
func NewClientFromBytes(kubeconfig []byte) (*Client, error) {
	config, err := clientcmd.RESTConfigFromKubeConfig(kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("failed to build kubeconfig from bytes: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}

	dynamicClient, err := dynamic.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic client: %w", err)
	}

	return &Client{clientset: clientset, dynamic: dynamicClient}, nil
}

// NodeStatus is one cluster member as reported by the API server.
type NodeStatus struct {
	Name  string
	Ready bool
}

// NodeStatuses lists all cluster nodes with their readiness.
func (c *Client) NodeStatuses(ctx context.Context) ([]NodeStatus, error) {
	nodes, err := c.clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}

	out := make([]NodeStatus, 0, len(nodes.Items))
	for _, node := range nodes.Items {
		out = append(out, NodeStatus{
			Name:  node.Name,
			Ready: isNodeReady(&node),
		})
	}
	return out, nil
}

// WaitForNodesReady blocks until every hostname in expected reports Ready,
// or the timeout expires.
func (c *Client) WaitForNodesReady(ctx context.Context, expected []string, timeout time.Duration) error {
	return wait.PollUntilContextTimeout(ctx, 5*time.Second, timeout, true, func(ctx context.Context) (bool, error) {
		statuses, err := c.NodeStatuses(ctx)
		if err != nil {
			return false, nil
		}

		ready := make(map[string]bool, len(statuses))
		for _, s := range statuses {
			ready[s.Name] = s.Ready
		}
		for _, name := range expected {
			if !ready[name] {
				return false, nil
			}
		}
		return true, nil
	})
}

// Apply creates or updates every object in a multi-document YAML manifest.
func (c *Client) Apply(ctx context.Context, manifest string) error {
	decoder := yaml.NewYAMLOrJSONDecoder(strings.NewReader(manifest), 4096)

	for {
		var obj unstructured.Unstructured
		if err := decoder.Decode(&obj); err != nil {
			if err.Error() == "EOF" {
				break
			}
			return fmt.Errorf("failed to decode manifest: %w", err)
		}
		if len(obj.Object) == 0 {
			continue
		}

		gvk := obj.GroupVersionKind()
		gvr := schema.GroupVersionResource{
			Group:    gvk.Group,
			Version:  gvk.Version,
			Resource: resourceForKind(gvk.Kind),
		}

		client := c.dynamic.Resource(gvr).Namespace(obj.GetNamespace())
		if _, err := client.Create(ctx, &obj, metav1.CreateOptions{}); err != nil {
			if _, err := client.Update(ctx, &obj, metav1.UpdateOptions{}); err != nil {
				return fmt.Errorf("failed to apply %s/%s: %w", obj.GetKind(), obj.GetName(), err)
			}
		}
	}
	return nil
}

func isNodeReady(node *corev1.Node) bool {
	for _, cond := range node.Status.Conditions {
		if cond.Type == corev1.NodeReady {
			return cond.Status == corev1.ConditionTrue
		}
	}
	return false
}

// resourceForKind maps well-known kinds to their resource names. Covers
// what CNI and addon manifests contain; unknown kinds fall back to the
// lowercased plural.
func resourceForKind(kind string) string {
	switch kind {
	case "NetworkPolicy":
		return "networkpolicies"
	case "PodSecurityPolicy":
		return "podsecuritypolicies"
	case "Ingress":
		return "ingresses"
	case "ConfigMap":
		return "configmaps"
	case "DaemonSet":
		return "daemonsets"
	case "Deployment":
		return "deployments"
	case "ServiceAccount":
		return "serviceaccounts"
	case "ClusterRole":
		return "clusterroles"
	case "ClusterRoleBinding":
		return "clusterrolebindings"
	case "Role":
		return "roles"
	case "RoleBinding":
		return "rolebindings"
	case "Service":
		return "services"
	case "Secret":
		return "secrets"
	case "Namespace":
		return "namespaces"
	default:
		return strings.ToLower(kind) + "s"
	}
}
