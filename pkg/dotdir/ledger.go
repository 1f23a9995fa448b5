package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	ledgerFile = "ledger.json"
)

// Ledger records which watched files have already been ingested so a
// restarted watcher does not re-submit them. It is persisted as a JSON file
// in the target .engram/ directory.
type Ledger struct {
	// Entries maps an absolute file path to its ingestion record.
	Entries map[string]LedgerEntry `json:"entries"`
}

// LedgerEntry records one ingested file.
type LedgerEntry struct {
	DocumentID string    `json:"document_id"`
	ModTime    time.Time `json:"mod_time"`
	IngestedAt time.Time `json:"ingested_at"`
}

// LoadLedger loads the ingest ledger from a target .engram/ledger.json.
// Returns an empty ledger if none exists yet.
// If overrideDir is non-empty, it is used instead of the default location.
func (m *Manager) LoadLedger(overrideDir string) (*Ledger, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, ledgerFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Ledger{Entries: map[string]LedgerEntry{}}, nil
		}
		return nil, fmt.Errorf("reading ingest ledger: %w", err)
	}

	ledger := &Ledger{}
	if err := json.Unmarshal(data, ledger); err != nil {
		return nil, fmt.Errorf("parsing ingest ledger: %w", err)
	}
	if ledger.Entries == nil {
		ledger.Entries = map[string]LedgerEntry{}
	}

	return ledger, nil
}

// SaveLedger persists the ingest ledger to a target .engram/ledger.json.
func (m *Manager) SaveLedger(ledger *Ledger, overrideDir string) error {
	if ledger == nil {
		return errors.New("cannot save nil ledger")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(ledger, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding ingest ledger: %w", err)
	}

	path := filepath.Join(dir, ledgerFile)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing ingest ledger: %w", err)
	}

	return nil
}

// Seen reports whether path was already ingested at this modification time.
func (l *Ledger) Seen(path string, modTime time.Time) bool {
	entry, ok := l.Entries[path]
	return ok && !modTime.After(entry.ModTime)
}

// Record notes a completed ingestion for path.
func (l *Ledger) Record(path, documentID string, modTime time.Time) {
	if l.Entries == nil {
		l.Entries = map[string]LedgerEntry{}
	}
	l.Entries[path] = LedgerEntry{
		DocumentID: documentID,
		ModTime:    modTime,
		IngestedAt: time.Now().UTC(),
	}
}
