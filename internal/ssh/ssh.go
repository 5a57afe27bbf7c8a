package ssh

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

const dialTimeout = 10 * time.Second

// Client implements Communicator over the SSH protocol with public key
// authentication. Each call dials a fresh connection; retry policy belongs
// to the caller, which knows whether a failure is worth waiting out.
type Client struct {
	host       string
	user       string
	privateKey []byte
}

// NewClient creates a Communicator for host using the given key pair.
func NewClient(host, user string, privateKey []byte) *Client {
	return &Client{
		host:       host,
		user:       user,
		privateKey: privateKey,
	}
}

// NewFactory returns a Factory closing over user and key.
func NewFactory(user string, privateKey []byte) Factory {
	return func(host string) Communicator {
		return NewClient(host, user, privateKey)
	}
}

func (c *Client) dial(ctx context.Context) (*ssh.Client, error) {
	signer, err := ssh.ParsePrivateKey(c.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	config := &ssh.ClientConfig{
		User:            c.user,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // #nosec G106 -- hosts are freshly provisioned VMs without known keys
		Timeout:         dialTimeout,
	}

	addr := net.JoinHostPort(c.host, "22")
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s failed: %w", addr, err)
	}
	// Clear the handshake deadline so long-running commands are bounded by
	// ctx, not the dial deadline.
	_ = conn.SetDeadline(time.Time{})

	return ssh.NewClient(sshConn, chans, reqs), nil
}

// Execute runs command on the remote host.
func (c *Client) Execute(ctx context.Context, command string) (string, error) {
	client, err := c.dial(ctx)
	if err != nil {
		return "", err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	defer session.Close()

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = session.Close()
		case <-done:
		}
	}()

	output, err := session.CombinedOutput(command)
	close(done)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return string(output), ctxErr
		}
		return string(output), fmt.Errorf("command failed: %w, output: %s", err, output)
	}
	return string(output), nil
}

// UploadFile writes content to remotePath via stdin redirection. Enough
// for staging kubeconfigs without pulling in SFTP.
func (c *Client) UploadFile(ctx context.Context, content []byte, remotePath string) error {
	client, err := c.dial(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	defer session.Close()

	session.Stdin = strings.NewReader(string(content))
	if output, err := session.CombinedOutput(fmt.Sprintf("cat > %q", remotePath)); err != nil {
		return fmt.Errorf("failed to upload %s: %w, output: %s", remotePath, err, output)
	}
	return nil
}

// IsAuthError reports whether err is an authentication failure rather than
// a transient connection problem. Auth failures indicate key
// misconfiguration and are not worth retrying.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "unable to authenticate") ||
		strings.Contains(err.Error(), "no supported methods remain")
}
