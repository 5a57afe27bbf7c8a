package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuditEntry is one line of the append-only audit log. The log records
// every create and destroy with resulting resource identifiers, enabling
// post-hoc reconstruction of fleet history. Credentials such as join tokens
// are never written here in cleartext.
type AuditEntry struct {
	Timestamp time.Time         `json:"ts"`
	Action    string            `json:"action"`
	Node      string            `json:"node,omitempty"`
	Resources map[string]string `json:"resources,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// AuditLog appends JSON lines to audit.log in the state directory.
type AuditLog struct {
	mu   sync.Mutex
	path string
}

// NewAuditLog opens the audit log in dir.
func NewAuditLog(dir string) *AuditLog {
	return &AuditLog{path: filepath.Join(dir, auditFile)}
}

// Record appends one entry. Append failures are returned, never ignored:
// an unauditable action should fail loudly.
func (a *AuditLog) Record(entry AuditEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	f, err := os.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// Entries reads the whole audit history, oldest first.
func (a *AuditLog) Entries() ([]AuditEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	data, err := os.ReadFile(a.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}

	var entries []AuditEntry
	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var e AuditEntry
		if err := dec.Decode(&e); err != nil {
			return nil, fmt.Errorf("failed to parse audit log: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
