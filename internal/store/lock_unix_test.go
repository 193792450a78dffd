//go:build unix

package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestAcquireLock(t *testing.T) {
	root := filepath.Join(t.TempDir(), ".fhistory")

	t.Run("shared locks coexist", func(t *testing.T) {
		a, err := AcquireLock(root, false)
		if err != nil {
			t.Fatalf("AcquireLock(shared) error = %v", err)
		}
		defer a.Release()
		b, err := AcquireLock(root, false)
		if err != nil {
			t.Fatalf("second AcquireLock(shared) error = %v", err)
		}
		defer b.Release()
	})

	t.Run("exclusive excludes", func(t *testing.T) {
		w, err := AcquireLock(root, true)
		if err != nil {
			t.Fatalf("AcquireLock(exclusive) error = %v", err)
		}
		if _, err := AcquireLock(root, false); !errors.Is(err, ErrLocked) {
			t.Errorf("AcquireLock(shared) while held error = %v, want ErrLocked", err)
		}
		if _, err := AcquireLock(root, true); !errors.Is(err, ErrLocked) {
			t.Errorf("AcquireLock(exclusive) while held error = %v, want ErrLocked", err)
		}
		if err := w.Release(); err != nil {
			t.Fatalf("Release() error = %v", err)
		}
		again, err := AcquireLock(root, true)
		if err != nil {
			t.Fatalf("AcquireLock() after release error = %v", err)
		}
		again.Release()
	})

	t.Run("remove on release", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), ".fhistory")
		l, err := AcquireLock(root, true)
		if err != nil {
			t.Fatalf("AcquireLock() error = %v", err)
		}
		l.RemoveOnRelease()
		if err := l.Release(); err != nil {
			t.Fatalf("Release() error = %v", err)
		}
		if _, err := os.Stat(LockPath(root)); !os.IsNotExist(err) {
			t.Errorf("lock file still present after Release: %v", err)
		}
	})
}
