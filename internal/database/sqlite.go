package database

import (
	"database/sql"
	"fmt"
	"time"

	"fh-go/internal/database/migrations"
	"fh-go/internal/fh"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteJournal implements the Journal interface using SQLite.
type SQLiteJournal struct {
	db   *sql.DB
	path string
}

// NewSQLiteJournal opens the journal at path and brings its schema up to
// date. path can be a file path or ":memory:" for an in-memory journal.
func NewSQLiteJournal(path string) (*SQLiteJournal, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.Up(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating journal: %w", err)
	}
	return &SQLiteJournal{db: db, path: path}, nil
}

// NewSQLiteJournalFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteJournalFromDB(db *sql.DB) *SQLiteJournal {
	return &SQLiteJournal{db: db}
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// This is exported for use in tests that need a properly configured SQLite connection.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to ":memory:" is a separate database, and SQLite
	// allows one writer anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	// Concurrent fh runs on other repositories share the journal.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// StartOperation records the start of an operation and returns its ID.
func (s *SQLiteJournal) StartOperation(runID, operation, dataDir, parameters string, startedAt time.Time) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO operations (run_id, operation, data_dir, parameters, started_at)
		 VALUES (?, ?, ?, ?, ?)`,
		runID, operation, dataDir, parameters, startedAt.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("creating operation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading operation id: %w", err)
	}
	return id, nil
}

// FinishOperation records how an operation ended.
func (s *SQLiteJournal) FinishOperation(id int64, result fh.OperationResult, finishedAt time.Time) error {
	res, err := s.db.Exec(
		`UPDATE operations
		 SET finished_at = ?, status = ?, snapshot = ?, changes = ?, error = ?
		 WHERE id = ?`,
		finishedAt.UTC(), result.Status, result.Snapshot, result.Changes, result.Error, id,
	)
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finishing operation: no operation with id %d", id)
	}
	return nil
}

// ListOperations returns up to limit operations, newest first.
func (s *SQLiteJournal) ListOperations(limit int) ([]*fh.Operation, error) {
	rows, err := s.db.Query(
		`SELECT id, run_id, operation, data_dir, parameters, started_at, finished_at,
		        status, snapshot, changes, error
		 FROM operations ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	defer rows.Close()

	var ops []*fh.Operation
	for rows.Next() {
		var op fh.Operation
		if err := rows.Scan(&op.ID, &op.RunID, &op.Operation, &op.DataDir, &op.Parameters,
			&op.StartedAt, &op.FinishedAt, &op.Status, &op.Snapshot, &op.Changes, &op.Error); err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		ops = append(ops, &op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}

// Path returns the file the journal was opened from.
func (s *SQLiteJournal) Path() string {
	return s.path
}

// CheckMigrations verifies the journal schema is at the latest version.
func (s *SQLiteJournal) CheckMigrations() error {
	return migrations.Check(s.db)
}

// BackupTo creates a complete copy of the journal at destPath using VACUUM INTO.
func (s *SQLiteJournal) BackupTo(destPath string) error {
	_, err := s.db.Exec("VACUUM INTO ?", destPath)
	if err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteJournal) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteJournal implements fh.Journal interface
var _ fh.Journal = (*SQLiteJournal)(nil)
