// Package storage persists request tasks in SQLite for the task backend.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a task id does not exist.
var ErrNotFound = errors.New("task not found")

// Options tune the store.
type Options struct {
	// ListingLag delays a new task's appearance in ListTasks, the way the real
	// list endpoint trails task creation.
	ListingLag time.Duration
	// Now overrides the clock in tests.
	Now func() time.Time
}

// SQLiteStore is the task backend's persistence.
type SQLiteStore struct {
	db   *sql.DB
	lag  time.Duration
	now  func() time.Time
	path string
}

// NewSQLiteStore opens (or creates) tasks.db under basePath. ":memory:" opens
// a private in-memory database.
func NewSQLiteStore(basePath string, opts Options) (*SQLiteStore, error) {
	dbPath := ":memory:"
	if basePath != ":memory:" {
		if err := os.MkdirAll(basePath, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
		dbPath = filepath.Join(basePath, "tasks.db")
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection: keeps :memory: a single database and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &SQLiteStore{db: db, lag: opts.ListingLag, now: opts.Now, path: dbPath}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tasks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		category_id TEXT NOT NULL,
		title TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'new',
		conversation_id TEXT NOT NULL UNIQUE,
		payload TEXT NOT NULL DEFAULT '{}',
		created_at TEXT NOT NULL,
		visible_at TEXT NOT NULL            -- listing lag: hidden from ListTasks until then
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_visible ON tasks(visible_at);
	CREATE INDEX IF NOT EXISTS idx_tasks_category ON tasks(category_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

// Path returns the database path, ":memory:" for in-memory stores.
func (s *SQLiteStore) Path() string { return s.path }

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// checkRowsErr reports errors hit while iterating rows.
func checkRowsErr(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows iteration error: %w", err)
	}
	return nil
}
