// Package ssh provides the administrative remote session used by the
// readiness prober and the bootstrap coordinator.
package ssh

import "context"

// Communicator executes commands on one remote host.
type Communicator interface {
	// Execute runs a command and returns its combined output. The error
	// carries the output when the command exits nonzero.
	Execute(ctx context.Context, command string) (string, error)

	// UploadFile writes content to a path on the remote host.
	UploadFile(ctx context.Context, content []byte, remotePath string) error
}

// Factory builds a Communicator for a host discovered at runtime. Probing
// and joining only learn node addresses once DHCP leases appear, so
// communicators cannot be constructed up front.
type Factory func(host string) Communicator
