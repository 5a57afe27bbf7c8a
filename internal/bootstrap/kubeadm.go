package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/virtkube/virtkube/internal/ssh"
)

// kubeadm invocations run over the administrative SSH session. All state
// lives on the nodes; this file only builds commands and interprets their
// output.

const (
	adminConfPath   = "/etc/kubernetes/admin.conf"
	kubeletConfPath = "/etc/kubernetes/kubelet.conf"
)

func initCommand(advertiseIP, podCIDR string) string {
	return fmt.Sprintf(
		"sudo kubeadm init --apiserver-advertise-address=%s --pod-network-cidr=%s --upload-certs",
		advertiseIP, podCIDR)
}

// isInitialized reports whether the node already carries a control plane,
// making a bootstrap rerun skip straight to credential capture.
func isInitialized(ctx context.Context, comm ssh.Communicator) bool {
	_, err := comm.Execute(ctx, "test -f "+adminConfPath)
	return err == nil
}

// isJoined reports whether the node already runs a kubelet joined to a
// cluster.
func isJoined(ctx context.Context, comm ssh.Communicator) bool {
	_, err := comm.Execute(ctx, "test -f "+kubeletConfPath)
	return err == nil
}

// fetchKubeconfig reads the admin kubeconfig off an initialized
// control-plane node.
func fetchKubeconfig(ctx context.Context, comm ssh.Communicator) ([]byte, error) {
	out, err := comm.Execute(ctx, "sudo cat "+adminConfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read admin kubeconfig: %w", err)
	}
	return []byte(out), nil
}

// fetchJoinToken creates a fresh bootstrap token on the control plane and
// parses the resulting join command.
func fetchJoinToken(ctx context.Context, comm ssh.Communicator) (ClusterJoinToken, error) {
	out, err := comm.Execute(ctx, "sudo kubeadm token create --print-join-command")
	if err != nil {
		return ClusterJoinToken{}, fmt.Errorf("failed to create join token: %w", err)
	}
	return ParseJoinCommand(out)
}

// isTokenError reports whether a join failure looks like an expired or
// invalid token, in which case the token is re-fetched before the next
// attempt.
func isTokenError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "token") &&
		(strings.Contains(msg, "expired") || strings.Contains(msg, "invalid") || strings.Contains(msg, "unauthorized"))
}
