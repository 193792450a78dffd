package fh

import (
	"errors"

	"fh-go/internal/checksum"
	"fh-go/internal/config"
	"fh-go/internal/fs"
	"fh-go/internal/scan"
	"fh-go/internal/snapshot"
	"fh-go/internal/store"
)

var (
	ErrNothingToCommit = errors.New("nothing to commit")
	ErrAborted         = errors.New("aborted")
	ErrNoPaths         = errors.New("no paths given")
	ErrIndexLocation   = errors.New("index directory cannot be the data root")
	ErrMissingRecord   = errors.New("change refers to a file missing from the scan")
)

// ErrorKind groups errors for reporting and exit codes.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindIO
	KindFormat
	KindChecksum
	KindCausality
	KindPath
	KindConfig
	KindLocked
	KindUser
)

func (k ErrorKind) String() string {
	switch k {
	case KindIO:
		return "I/O error"
	case KindFormat:
		return "format error"
	case KindChecksum:
		return "checksum mismatch"
	case KindCausality:
		return "causality error"
	case KindPath:
		return "path error"
	case KindConfig:
		return "configuration error"
	case KindLocked:
		return "locked"
	case KindUser:
		return "not applied"
	default:
		return "error"
	}
}

// Classify maps an error returned by the service to its kind.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, store.ErrChecksumMismatch):
		return KindChecksum
	case errors.Is(err, store.ErrCausality):
		return KindCausality
	case errors.Is(err, snapshot.ErrFormat),
		errors.Is(err, store.ErrInvalidEntry),
		errors.Is(err, store.ErrTimestampMismatch),
		errors.Is(err, store.ErrAlgorithmMismatch),
		errors.Is(err, store.ErrMissingDigest):
		return KindFormat
	case errors.Is(err, scan.ErrInvalidPath), errors.Is(err, fs.ErrOutsideRoot):
		return KindPath
	case errors.Is(err, checksum.ErrUnknownAlgorithm), errors.Is(err, ErrIndexLocation),
		errors.Is(err, config.ErrInvalid):
		return KindConfig
	case errors.Is(err, store.ErrLocked):
		return KindLocked
	case errors.Is(err, ErrNothingToCommit), errors.Is(err, ErrAborted), errors.Is(err, ErrNoPaths):
		return KindUser
	default:
		return KindIO
	}
}
