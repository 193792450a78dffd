//go:build !unix

package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// AcquireLock creates the lock file exclusively for writers. Readers do not
// lock on platforms without flock.
func AcquireLock(root string, exclusive bool) (*Lock, error) {
	path := LockPath(root)
	if !exclusive {
		return &Lock{path: path}, nil
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, path)
		}
		return nil, fmt.Errorf("creating lock file: %w", err)
	}
	return &Lock{f: f, path: path, remove: true}, nil
}

// Release drops the lock.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	if l.remove {
		if rerr := os.Remove(l.path); err == nil {
			err = rerr
		}
	}
	if err != nil {
		return fmt.Errorf("releasing lock %s: %w", l.path, err)
	}
	return nil
}
