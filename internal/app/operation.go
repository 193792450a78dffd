package app

import (
	"errors"

	"fh-go/internal/fh"
)

// Operation statuses recorded in the journal.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusDirty   = "dirty"
	StatusError   = "error"
)

// Operation tracks one CLI run for the journal. It is created in memory with
// ID=0 and gets an ID once the journal has recorded its start.
type Operation struct {
	ID         int64
	Name       string
	Parameters string
	Result     fh.OperationResult
}

// NewOperation creates a new in-memory operation.
func NewOperation(name, parameters string) *Operation {
	return &Operation{
		Name:       name,
		Parameters: parameters,
		Result:     fh.OperationResult{Status: StatusRunning},
	}
}

// Persisted returns true if the journal has recorded this operation.
func (op *Operation) Persisted() bool {
	return op.ID != 0
}

// Finish records the outcome. A dirty repository is not an error, and
// declining or having nothing to commit counts as success.
func (op *Operation) Finish(snapshot string, changes int, dirty bool, err error) {
	op.Result.Snapshot = snapshot
	op.Result.Changes = changes
	switch {
	case err == nil && dirty:
		op.Result.Status = StatusDirty
	case err == nil, errors.Is(err, fh.ErrNothingToCommit), errors.Is(err, fh.ErrAborted):
		op.Result.Status = StatusSuccess
	default:
		op.Result.Status = StatusError
		op.Result.Error = err.Error()
	}
}
