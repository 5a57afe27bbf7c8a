package state

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLog_RecordAndEntries(t *testing.T) {
	log := NewAuditLog(t.TempDir())

	require.NoError(t, log.Record(AuditEntry{
		Action: "create",
		Node:   "lab-cp-00",
		Resources: map[string]string{
			"domain":      "lab-cp-00",
			"root_volume": "lab-cp-00-root",
		},
	}))
	require.NoError(t, log.Record(AuditEntry{
		Action: "destroy",
		Node:   "lab-worker-01",
		Error:  "domain busy",
	}))

	entries, err := log.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "create", entries[0].Action)
	assert.Equal(t, "lab-cp-00", entries[0].Node)
	assert.Equal(t, "lab-cp-00-root", entries[0].Resources["root_volume"])
	assert.Equal(t, "destroy", entries[1].Action)
	assert.Equal(t, "domain busy", entries[1].Error)
}

func TestAuditLog_TimestampDefaulted(t *testing.T) {
	log := NewAuditLog(t.TempDir())
	require.NoError(t, log.Record(AuditEntry{Action: "create"}))

	entries, err := log.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.WithinDuration(t, time.Now().UTC(), entries[0].Timestamp, time.Minute)
}

func TestAuditLog_ExplicitTimestampKept(t *testing.T) {
	log := NewAuditLog(t.TempDir())
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, log.Record(AuditEntry{Action: "create", Timestamp: ts}))

	entries, err := log.Entries()
	require.NoError(t, err)
	assert.Equal(t, ts, entries[0].Timestamp)
}

func TestAuditLog_EntriesEmptyWhenMissing(t *testing.T) {
	log := NewAuditLog(t.TempDir())
	entries, err := log.Entries()
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestAuditLog_OneLinePerEntry(t *testing.T) {
	dir := t.TempDir()
	log := NewAuditLog(dir)
	require.NoError(t, log.Record(AuditEntry{Action: "create", Node: "a"}))
	require.NoError(t, log.Record(AuditEntry{Action: "create", Node: "b"}))

	data, err := os.ReadFile(filepath.Join(dir, auditFile))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	assert.Len(t, lines, 2)
}
