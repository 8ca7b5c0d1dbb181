// Package store provides SQLite-backed persistence for execution history.
package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the persistence layer for executions and their event history.
type Store struct {
	db *sql.DB
}

// New creates a new Store, initializing the database if needed.
func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Execution registry: one row per spawned CLI run
	CREATE TABLE IF NOT EXISTS executions (
		session_id   TEXT PRIMARY KEY,
		project_path TEXT NOT NULL,
		query        TEXT NOT NULL,
		status       TEXT NOT NULL,
		pid          INTEGER,
		exit_code    INTEGER,
		started_at   DATETIME DEFAULT CURRENT_TIMESTAMP,
		ended_at     DATETIME,
		updated_at   DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Stream event history for debugging/replay
	CREATE TABLE IF NOT EXISTS execution_events (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		kind       TEXT NOT NULL,
		payload    TEXT,
		timestamp  DATETIME DEFAULT CURRENT_TIMESTAMP,

		FOREIGN KEY (session_id) REFERENCES executions(session_id)
	);

	CREATE INDEX IF NOT EXISTS idx_executions_status ON executions(status);
	CREATE INDEX IF NOT EXISTS idx_events_session ON execution_events(session_id, timestamp);
	`

	_, err := s.db.Exec(schema)
	return err
}

// ExecutionRow is a persisted execution record.
type ExecutionRow struct {
	SessionID   string
	ProjectPath string
	Query       string
	Status      string
	PID         *int
	ExitCode    *int
	StartedAt   time.Time
	EndedAt     *time.Time
	UpdatedAt   time.Time
}

// EventRow is a persisted stream event.
type EventRow struct {
	ID        int64
	SessionID string
	Kind      string
	Payload   string
	Timestamp time.Time
}
