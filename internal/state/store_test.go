package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtkube/virtkube/internal/fleet"
)

func testRecord(role fleet.Role, index int, hostname string) fleet.NodeRecord {
	return fleet.NodeRecord{
		Role:     role,
		Index:    index,
		Hostname: hostname,
		Status:   fleet.StatusCreated,
	}
}

func TestOpen_EmptyDir(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, s.Records())
}

func TestOpen_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", ".virtkube")
	_, err := Open(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestOpen_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, recordsFile), []byte("{not json"), 0o600))

	_, err := Open(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse state file")
}

func TestStore_UpsertPersistsAcrossOpens(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Upsert(testRecord(fleet.RoleControlPlane, 0, "lab-cp-00")))
	require.NoError(t, s.Upsert(testRecord(fleet.RoleWorker, 0, "lab-worker-00")))

	reopened, err := Open(dir)
	require.NoError(t, err)

	records := reopened.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "lab-cp-00", records[0].Hostname)
	assert.Equal(t, "lab-worker-00", records[1].Hostname)
}

func TestStore_UpsertOverwritesSlot(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	rec := testRecord(fleet.RoleWorker, 1, "lab-worker-01")
	require.NoError(t, s.Upsert(rec))
	require.NoError(t, s.Upsert(rec.WithStatus(fleet.StatusReady)))

	got, ok := s.Get(rec.Key())
	require.True(t, ok)
	assert.Equal(t, fleet.StatusReady, got.Status)
	assert.Len(t, s.Records(), 1)
}

func TestStore_Remove(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	rec := testRecord(fleet.RoleWorker, 0, "lab-worker-00")
	require.NoError(t, s.Upsert(rec))
	require.NoError(t, s.Remove(rec.Key()))

	_, ok := s.Get(rec.Key())
	assert.False(t, ok)
}

func TestStore_RecordsSortedControlPlaneFirst(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Upsert(testRecord(fleet.RoleWorker, 1, "lab-worker-01")))
	require.NoError(t, s.Upsert(testRecord(fleet.RoleControlPlane, 1, "lab-cp-01")))
	require.NoError(t, s.Upsert(testRecord(fleet.RoleWorker, 0, "lab-worker-00")))
	require.NoError(t, s.Upsert(testRecord(fleet.RoleControlPlane, 0, "lab-cp-00")))

	var hostnames []string
	for _, rec := range s.Records() {
		hostnames = append(hostnames, rec.Hostname)
	}
	assert.Equal(t, []string{"lab-cp-00", "lab-cp-01", "lab-worker-00", "lab-worker-01"}, hostnames)
}

func TestStore_Replace(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	require.NoError(t, s.Upsert(testRecord(fleet.RoleWorker, 0, "stale")))
	require.NoError(t, s.Replace([]fleet.NodeRecord{
		testRecord(fleet.RoleControlPlane, 0, "lab-cp-00"),
	}))

	records := s.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "lab-cp-00", records[0].Hostname)

	// Replacement is durable, not just in-memory.
	reopened, err := Open(dir)
	require.NoError(t, err)
	assert.Len(t, reopened.Records(), 1)
}

func TestStore_NoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Upsert(testRecord(fleet.RoleControlPlane, 0, "lab-cp-00")))

	_, err = os.Stat(filepath.Join(dir, recordsFile+".tmp"))
	assert.True(t, os.IsNotExist(err))
}
