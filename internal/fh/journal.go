package fh

import (
	"database/sql"
	"time"
)

// Operation is one recorded CLI run.
type Operation struct {
	ID         int64
	RunID      string
	Operation  string
	DataDir    string
	Parameters string
	StartedAt  time.Time
	FinishedAt sql.NullTime
	Status     string
	Snapshot   string
	Changes    int64
	Error      string
}

// OperationResult is what a finished operation reports back to the journal.
type OperationResult struct {
	Status   string // "success", "dirty" or "error"
	Snapshot string // filename of the snapshot written or inspected, if any
	Changes  int
	Error    string
}

// Journal records every operation run against any repository on this host.
type Journal interface {
	// StartOperation inserts an operation row and returns its ID.
	StartOperation(runID, operation, dataDir, parameters string, startedAt time.Time) (int64, error)

	// FinishOperation records the outcome of an operation.
	FinishOperation(id int64, result OperationResult, finishedAt time.Time) error

	// ListOperations returns the most recent operations, newest first.
	ListOperations(limit int) ([]*Operation, error)

	// CheckMigrations verifies the schema is current.
	CheckMigrations() error

	// BackupTo writes a consistent copy of the journal to path.
	BackupTo(path string) error

	Close() error
}
