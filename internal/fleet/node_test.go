package fleet

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusReady.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusCreated.Terminal())
	assert.False(t, StatusBooting.Terminal())
}

func TestRoles_ControlPlaneFirst(t *testing.T) {
	assert.Equal(t, []Role{RoleControlPlane, RoleWorker}, Roles())
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleControlPlane.Valid())
	assert.True(t, RoleWorker.Valid())
	assert.False(t, Role("etcd").Valid())
}

func TestNodeKeyString(t *testing.T) {
	assert.Equal(t, "control-plane/0", NodeKey{Role: RoleControlPlane, Index: 0}.String())
	assert.Equal(t, "worker/3", NodeKey{Role: RoleWorker, Index: 3}.String())
}

func TestWithStatus(t *testing.T) {
	rec := NodeRecord{Role: RoleWorker, Index: 0, Status: StatusCreated}
	updated := rec.WithStatus(StatusReady)

	assert.Equal(t, StatusReady, updated.Status)
	assert.False(t, updated.UpdatedAt.IsZero())
	// The original is untouched.
	assert.Equal(t, StatusCreated, rec.Status)
}

func TestWithFailure(t *testing.T) {
	rec := NodeRecord{Role: RoleWorker, Index: 0}

	failed := rec.WithFailure(errors.New("never got a lease"))
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Equal(t, "never got a lease", failed.Error)

	noCause := rec.WithFailure(nil)
	assert.Equal(t, StatusFailed, noCause.Status)
	assert.Empty(t, noCause.Error)
}

func TestByRole(t *testing.T) {
	records := []NodeRecord{
		{Role: RoleWorker, Index: 0},
		{Role: RoleControlPlane, Index: 0},
		{Role: RoleWorker, Index: 1},
	}

	byRole := ByRole(records)
	assert.Len(t, byRole[RoleControlPlane], 1)
	assert.Len(t, byRole[RoleWorker], 2)
	// Input order is preserved within a role.
	assert.Equal(t, 0, byRole[RoleWorker][0].Index)
	assert.Equal(t, 1, byRole[RoleWorker][1].Index)
}

func TestReady(t *testing.T) {
	records := []NodeRecord{
		{Index: 0, Status: StatusReady},
		{Index: 1, Status: StatusFailed},
		{Index: 2, Status: StatusReady},
		{Index: 3, Status: StatusBooting},
	}

	ready := Ready(records)
	assert.Len(t, ready, 2)
	assert.Equal(t, 0, ready[0].Index)
	assert.Equal(t, 2, ready[1].Index)
}
