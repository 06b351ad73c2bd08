// Package register keeps the local release register: a SQLite log of every
// disclosure-control run, released or refused, together with the audit detail
// of what each run changed. Run summaries are exported to runs.jsonl after
// every write; audit detail stays in the database and is never exported,
// because it contains the raw counts the published output withheld.
package register

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// DBFile is the register database file name inside the data directory.
const DBFile = "register.db"

// RunsFile is the exported run-summary file name inside the data directory.
const RunsFile = "runs.jsonl"

var (
	// ErrRegisterClosed is returned by operations on a closed register.
	ErrRegisterClosed = errors.New("register is closed")
	// ErrRunNotFound is returned when no run has the requested ID.
	ErrRunNotFound = errors.New("run not found")
	// ErrInvalidRun is returned when a run record is missing required fields.
	ErrInvalidRun = errors.New("invalid run")
)

// Register is the SQLite-backed run log. All methods are safe for concurrent
// use. The database is the source of truth; runs.jsonl is a derived export.
type Register struct {
	mu      sync.RWMutex
	open    bool
	dataDir string
	db      *sql.DB
}

// Open creates the data directory if needed, opens the register database,
// and ensures the schema exists. Runs recorded by earlier sessions are kept.
func Open(dataDir string) (*Register, error) {
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dataDir, DBFile))
	if err != nil {
		return nil, fmt.Errorf("opening register database: %w", err)
	}
	for _, ddl := range schemaDDL {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return nil, fmt.Errorf("initializing register schema: %w", err)
		}
	}

	return &Register{open: true, dataDir: dataDir, db: db}, nil
}

// Close releases the database handle. Close is idempotent; after it returns,
// all other operations fail with ErrRegisterClosed.
func (r *Register) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.open {
		return nil
	}
	r.open = false
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("closing register database: %w", err)
	}
	return nil
}

// newRunID generates a UUID v7 so run IDs sort by creation time.
func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
