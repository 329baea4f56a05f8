// Package history keeps a JSON file of executed SQL statements.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cybertec-postgresql/sqlconsole/pkg/types"
	"github.com/google/uuid"
)

// Version is the schema version written to history files
const Version = "1.0"

// DefaultMaxEntries bounds the entries kept in a history file
const DefaultMaxEntries = 1000

// Entry records one execution
type Entry struct {
	ID           uuid.UUID     `json:"id"`
	Time         time.Time     `json:"time"`
	User         string        `json:"user,omitempty"`
	DataSource   string        `json:"dataSource"`
	SQL          string        `json:"sql"`  // Executed text, comments stripped
	Rows         int           `json:"rows"` // Summed over every statement
	RowsAffected int64         `json:"rowsAffected"`
	Duration     time.Duration `json:"duration"`
	Error        string        `json:"error,omitempty"`
}

// Tally adds the row counts and durations of results to e
func (e *Entry) Tally(results []*types.Result) {
	for _, res := range results {
		e.Rows += len(res.Rows)
		e.RowsAffected += res.RowsAffected
		e.Duration += res.Duration
	}
}

// History is the on-disk document
type History struct {
	Version string  `json:"version"`
	Entries []Entry `json:"entries"` // Oldest first
}

// Store handles persistence of the history file. It is safe for concurrent use
// within one process.
type Store struct {
	filePath   string
	maxEntries int
	mu         sync.Mutex
}

// NewStore creates a new history store. maxEntries <= 0 uses DefaultMaxEntries.
func NewStore(filePath string, maxEntries int) *Store {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Store{
		filePath:   filePath,
		maxEntries: maxEntries,
	}
}

// Append adds an entry, assigning its ID and time when unset, and drops the
// oldest entries beyond the store limit
func (s *Store) Append(e Entry) (Entry, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := s.load()
	if err != nil {
		return e, err
	}
	h.Entries = append(h.Entries, e)
	if over := len(h.Entries) - s.maxEntries; over > 0 {
		h.Entries = h.Entries[over:]
	}
	return e, s.save(h)
}

// Load reads the history. A missing file is an empty history.
func (s *Store) Load() (*History, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Recent returns up to limit entries, newest first. limit <= 0 returns all.
func (s *Store) Recent(limit int) ([]Entry, error) {
	h, err := s.Load()
	if err != nil {
		return nil, err
	}
	n := len(h.Entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Entry, 0, n)
	for i := len(h.Entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, h.Entries[i])
	}
	return out, nil
}

func (s *Store) load() (*History, error) {
	data, err := os.ReadFile(s.filePath)
	if os.IsNotExist(err) {
		return &History{Version: Version}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

	var h History
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("failed to parse history file %s: %w", s.filePath, err)
	}
	if h.Version == "" {
		h.Version = Version
	}
	return &h, nil
}

// save writes through a temporary file so readers never see a partial document
func (s *Store) save(h *History) error {
	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".history-*.json")
	if err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write history file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.filePath); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}
	return nil
}

// Clear removes the history file
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.filePath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Path returns the file path where history is stored
func (s *Store) Path() string {
	return s.filePath
}
