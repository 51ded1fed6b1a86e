// Package journal keeps uploads whose store write failed so they can be
// replayed later. Entries live in one JSON file that is replaced atomically.
// Every load and save holds an advisory lock on a sibling ".lock" file, so
// the server and cmd/reconcile may share one journal.
package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

const NotePendingInsert = "pending_db_insert"

type Entry struct {
	ID               string    `json:"id"`
	Timestamp        time.Time `json:"timestamp"`
	ProjectID        int64     `json:"project_id"`
	BidID            int64     `json:"bid_id"`
	UploaderID       int64     `json:"uploader_id"`
	Filename         string    `json:"filename"`
	OriginalFilename string    `json:"orig_filename"`
	StoragePath      string    `json:"file_path"`
	SizeBytes        int64     `json:"size_bytes"`
	Source           string    `json:"source"`
	Note             string    `json:"note"`
	// IssueID is set for uploads made from an issue; replay recreates the
	// issue attachment as well.
	IssueID          int64     `json:"issue_id,omitempty"`
	// Promote marks an upload that re-accepts a rejected but still awarded bid.
	Promote          bool      `json:"promote,omitempty"`
}

type Journal struct {
	path string
	mu   sync.Mutex
	lock *flock.Flock
}

func New(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("journal: create dir: %w", err)
	}
	return &Journal{path: path, lock: flock.New(path + ".lock")}, nil
}

// locked runs fn holding the in-process mutex and the file lock.
func (j *Journal) locked(fn func() error) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.lock.Lock(); err != nil {
		return fmt.Errorf("journal: lock %s: %w", j.lock.Path(), err)
	}
	defer j.lock.Unlock()
	return fn()
}

func (j *Journal) Path() string {
	return j.path
}

// Append records e, assigning an ID and timestamp when missing.
func (j *Journal) Append(e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.Note == "" {
		e.Note = NotePendingInsert
	}
	err := j.locked(func() error {
		entries, err := j.load()
		if err != nil {
			return err
		}
		return j.save(append(entries, e))
	})
	return e, err
}

func (j *Journal) List() ([]Entry, error) {
	var entries []Entry
	err := j.locked(func() error {
		var err error
		entries, err = j.load()
		return err
	})
	return entries, err
}

// LatestForBid returns the newest pending entry for the bid.
func (j *Journal) LatestForBid(bidID int64) (Entry, bool, error) {
	entries, err := j.List()
	if err != nil {
		return Entry{}, false, err
	}
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].BidID == bidID {
			return entries[i], true, nil
		}
	}
	return Entry{}, false, nil
}

// Remove drops the entries with the given IDs. Unknown IDs are ignored.
func (j *Journal) Remove(ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	return j.locked(func() error {
		entries, err := j.load()
		if err != nil {
			return err
		}
		kept := entries[:0]
		for _, e := range entries {
			if !drop[e.ID] {
				kept = append(kept, e)
			}
		}
		return j.save(kept)
	})
}

func (j *Journal) load() ([]Entry, error) {
	data, err := os.ReadFile(j.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("journal: read: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("journal: decode %s: %w", j.path, err)
	}
	return entries, nil
}

// save writes to a temp file in the same directory and renames it over the
// journal so readers never see a partial file.
func (j *Journal) save(entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("journal: encode: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(j.path), "pending_*.json")
	if err != nil {
		return fmt.Errorf("journal: temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("journal: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("journal: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), j.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("journal: replace: %w", err)
	}
	return nil
}
