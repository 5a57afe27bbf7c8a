package ssh

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsAuthError(t *testing.T) {
	assert.True(t, IsAuthError(errors.New("ssh: unable to authenticate, attempted methods [none publickey]")))
	assert.True(t, IsAuthError(errors.New("ssh: handshake failed: ssh: no supported methods remain")))

	assert.False(t, IsAuthError(errors.New("dial tcp 192.168.122.10:22: connect: connection refused")))
	assert.False(t, IsAuthError(errors.New("context deadline exceeded")))
	assert.False(t, IsAuthError(nil))
}

func TestNewFactory(t *testing.T) {
	factory := NewFactory("admin", []byte("key material"))

	comm := factory("192.168.122.10")
	client, ok := comm.(*Client)
	require.True(t, ok)
	assert.Equal(t, "192.168.122.10", client.host)
	assert.Equal(t, "admin", client.user)
}

func TestExecute_InvalidKeyFailsBeforeDialing(t *testing.T) {
	client := NewClient("192.0.2.1", "admin", []byte("not a pem key"))

	_, err := client.Execute(context.Background(), "true")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse private key")
}

func TestUploadFile_InvalidKeyFailsBeforeDialing(t *testing.T) {
	client := NewClient("192.0.2.1", "admin", []byte("not a pem key"))

	err := client.UploadFile(context.Background(), []byte("content"), "/tmp/x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse private key")
}
