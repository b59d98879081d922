package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/nickcecere/convsync/pkg/syncerr"
)

// journalCapacity bounds how many past operations the journal remembers.
// Older entries are dropped as new ones are recorded — this is a recent-
// activity log for diagnostics, not a full audit trail.
const journalCapacity = 5

// OperationType discriminates the kind of sync operation a record
// describes.
type OperationType string

const (
	OperationPull OperationType = "pull"
	OperationPush OperationType = "push"
)

// OperationRecord is one entry in the journal: a snapshot of what a single
// pull or push did.
type OperationRecord struct {
	ID                string        `json:"id"`
	Timestamp         string        `json:"timestamp"`
	Type              OperationType `json:"type"`
	SessionsAffected  int           `json:"sessions_affected"`
	ConflictsResolved int           `json:"conflicts_resolved"`
	// CommitHash is the sync repo's commit hash captured immediately before
	// this operation committed anything, so a later `git diff` against it
	// shows exactly what the operation changed. Empty if the commit hash
	// couldn't be read (e.g. the repo has no commits yet).
	CommitHash string `json:"commit_hash,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Journal is a bounded, most-recent-first log of past operations.
type Journal struct {
	Records []OperationRecord `json:"records"`
}

// JournalPath returns the conventional location of the journal file.
func JournalPath(configDir string) string {
	return filepath.Join(configDir, "journal.json")
}

// LoadJournal reads the journal at path, returning an empty Journal if the
// file doesn't exist yet.
func LoadJournal(path string) (*Journal, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Journal{}, nil
	}
	if err != nil {
		return nil, syncerr.New(syncerr.KindConfigFailure, "journal.load", fmt.Errorf("read %s: %w", path, err))
	}
	var j Journal
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, syncerr.New(syncerr.KindConfigFailure, "journal.load", fmt.Errorf("parse %s: %w", path, err))
	}
	return &j, nil
}

// Append adds rec to the front of the journal, evicting the oldest record
// once the journal exceeds journalCapacity, then saves atomically.
func (j *Journal) Append(path string, rec OperationRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	j.Records = append([]OperationRecord{rec}, j.Records...)
	if len(j.Records) > journalCapacity {
		j.Records = j.Records[:journalCapacity]
	}
	return j.save(path)
}

func (j *Journal) save(path string) error {
	data, err := json.MarshalIndent(j, "", "  ")
	if err != nil {
		return syncerr.New(syncerr.KindConfigFailure, "journal.save", fmt.Errorf("marshal: %w", err))
	}
	return atomicWrite(path, data)
}
