package bootstrap

import (
	"fmt"
	"regexp"
	"strings"
)

// ClusterJoinToken is the credential a worker needs to register with an
// initialized control plane. It is produced once per control-plane
// initialization and re-fetched when expired. The token value must never
// appear in logs or the audit trail in cleartext.
type ClusterJoinToken struct {
	Token      string
	CACertHash string
	Endpoint   string
}

// String redacts the secret so accidental logging stays harmless.
func (t ClusterJoinToken) String() string {
	return fmt.Sprintf("ClusterJoinToken{endpoint: %s, token: <redacted>, hash: %s}", t.Endpoint, t.CACertHash)
}

// JoinCommand renders the kubeadm join invocation for a worker.
func (t ClusterJoinToken) JoinCommand() string {
	return fmt.Sprintf("sudo kubeadm join %s --token %s --discovery-token-ca-cert-hash %s",
		t.Endpoint, t.Token, t.CACertHash)
}

// ControlPlaneJoinCommand renders the join invocation for an additional
// control-plane node, using the certificate key uploaded during init.
func (t ClusterJoinToken) ControlPlaneJoinCommand(certificateKey string) string {
	return t.JoinCommand() + " --control-plane --certificate-key " + certificateKey
}

var joinCommandRe = regexp.MustCompile(
	`kubeadm join\s+(\S+)\s+--token\s+(\S+)\s+--discovery-token-ca-cert-hash\s+(\S+)`)

// ParseJoinCommand extracts the token from the output of
// `kubeadm token create --print-join-command`.
func ParseJoinCommand(output string) (ClusterJoinToken, error) {
	m := joinCommandRe.FindStringSubmatch(strings.ReplaceAll(output, "\\\n", " "))
	if m == nil {
		return ClusterJoinToken{}, fmt.Errorf("no join command found in kubeadm output")
	}
	return ClusterJoinToken{
		Endpoint:   m[1],
		Token:      m[2],
		CACertHash: m[3],
	}, nil
}

var certificateKeyRe = regexp.MustCompile(`--certificate-key\s+([0-9a-f]{64})`)

// ParseCertificateKey extracts the uploaded-certs key from kubeadm init
// output, needed to join further control-plane nodes.
func ParseCertificateKey(output string) (string, error) {
	m := certificateKeyRe.FindStringSubmatch(output)
	if m == nil {
		return "", fmt.Errorf("no certificate key found in kubeadm output")
	}
	return m[1], nil
}
