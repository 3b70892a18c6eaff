// Package evallog persists per-backend outcome records to a local SQLite
// database. The log is append-only operational telemetry; nothing in the
// pipeline ever reads it back.
package evallog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Log is an append-only SQLite evaluation log.
type Log struct {
	db   *sql.DB
	path string
}

// Open creates (if needed) and opens the evaluation log database at dbPath.
func Open(dbPath string) (*Log, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	l := &Log{db: db, path: dbPath}
	if err := l.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return l, nil
}

func (l *Log) initialize() error {
	table := `
	CREATE TABLE IF NOT EXISTS evaluation_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_timestamp_utc TEXT NOT NULL,
		run_id TEXT NOT NULL,
		backend_name TEXT NOT NULL,
		query TEXT NOT NULL,
		execution_time_seconds REAL NOT NULL,
		result_count INTEGER NOT NULL,
		was_successful INTEGER NOT NULL,
		error_message TEXT
	);`

	if _, err := l.db.Exec(table); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// Record appends one backend outcome. Each insert is independent; there is no
// read-modify-write on the log.
func (l *Log) Record(runID, backend, query string, duration time.Duration, results int, ok bool, errMsg string) error {
	successful := 0
	if ok {
		successful = 1
	}

	_, err := l.db.Exec(`
		INSERT INTO evaluation_log (
			run_timestamp_utc, run_id, backend_name, query,
			execution_time_seconds, result_count, was_successful, error_message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339),
		runID,
		backend,
		query,
		duration.Seconds(),
		results,
		successful,
		errMsg,
	)
	if err != nil {
		return fmt.Errorf("failed to insert evaluation record: %w", err)
	}
	return nil
}

// Path returns the database file location.
func (l *Log) Path() string { return l.path }

// Close closes the underlying database.
func (l *Log) Close() error { return l.db.Close() }
