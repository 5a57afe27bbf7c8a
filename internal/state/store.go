// Package state persists node records and the audit trail between
// invocations so a later run can reconstruct actual state without
// re-querying the hypervisor from scratch. The hypervisor stays the source
// of truth; records are re-synced from it on demand.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/virtkube/virtkube/internal/fleet"
)

const (
	recordsFile = "nodes.json"
	auditFile   = "audit.log"
)

// Store holds the persisted fleet state under a directory.
type Store struct {
	mu  sync.Mutex
	dir string

	records map[fleet.NodeKey]fleet.NodeRecord
}

// fileFormat is the on-disk shape of the records file.
type fileFormat struct {
	SavedAt time.Time          `json:"saved_at"`
	Nodes   []fleet.NodeRecord `json:"nodes"`
}

// Open loads (or initializes) the store in dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create state dir %s: %w", dir, err)
	}

	s := &Store{
		dir:     dir,
		records: make(map[fleet.NodeKey]fleet.NodeRecord),
	}

	data, err := os.ReadFile(filepath.Join(dir, recordsFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}
	for _, rec := range f.Nodes {
		s.records[rec.Key()] = rec
	}
	return s, nil
}

// Records returns all node records sorted by role then index.
func (s *Store) Records() []fleet.NodeRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]fleet.NodeRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Role != out[j].Role {
			return out[i].Role == fleet.RoleControlPlane
		}
		return out[i].Index < out[j].Index
	})
	return out
}

// Get returns the record for a node slot.
func (s *Store) Get(key fleet.NodeKey) (fleet.NodeRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	return rec, ok
}

// Upsert stores a record and persists immediately, so cancellation at any
// point leaves an inspectable on-disk state.
func (s *Store) Upsert(rec fleet.NodeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Key()] = rec
	return s.persistLocked()
}

// Remove deletes a record and persists.
func (s *Store) Remove(key fleet.NodeKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return s.persistLocked()
}

// Replace swaps the whole record set, used when re-syncing from the
// hypervisor.
func (s *Store) Replace(records []fleet.NodeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[fleet.NodeKey]fleet.NodeRecord, len(records))
	for _, rec := range records {
		s.records[rec.Key()] = rec
	}
	return s.persistLocked()
}

func (s *Store) persistLocked() error {
	f := fileFormat{
		SavedAt: time.Now().UTC(),
		Nodes:   make([]fleet.NodeRecord, 0, len(s.records)),
	}
	for _, rec := range s.records {
		f.Nodes = append(f.Nodes, rec)
	}
	sort.Slice(f.Nodes, func(i, j int) bool {
		if f.Nodes[i].Role != f.Nodes[j].Role {
			return f.Nodes[i].Role == fleet.RoleControlPlane
		}
		return f.Nodes[i].Index < f.Nodes[j].Index
	})

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	path := filepath.Join(s.dir, recordsFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}
