package store

import (
	"errors"
	"os"
)

// ErrLocked is returned when another process holds a conflicting lock.
var ErrLocked = errors.New("store is locked by another process")

// Lock is an advisory lock on a store. Writers hold it exclusively for the
// whole load, compare and append sequence; readers hold it shared.
type Lock struct {
	f      *os.File
	path   string
	remove bool
}

// RemoveOnRelease makes Release delete the lock file. Init uses it when it
// fails, so a tree that was never initialized is left untouched.
func (l *Lock) RemoveOnRelease() {
	if l != nil {
		l.remove = true
	}
}

// LockPath returns the path of the lock file guarding the store at root. It
// sits beside the store directory so it can be taken before the store exists.
func LockPath(root string) string {
	return root + ".lock"
}
