package database

import (
	"os"
	"path/filepath"
	"testing"

	"fh-go/internal/config"
)

func TestNewJournalFromConfig(t *testing.T) {
	t.Run("memory journal", func(t *testing.T) {
		got, err := NewJournalFromConfig(config.DatabaseConfig{Type: "memory"})
		if err != nil {
			t.Fatalf("NewJournalFromConfig() unexpected error: %v", err)
		}
		if got == nil {
			t.Fatal("NewJournalFromConfig() returned nil")
		}
		defer got.Close()

		if err := got.CheckMigrations(); err != nil {
			t.Errorf("CheckMigrations() error = %v", err)
		}
	})

	t.Run("sqlite journal creates data dir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "db")
		got, err := NewJournalFromConfig(config.DatabaseConfig{Type: "sqlite", DataDir: dir})
		if err != nil {
			t.Fatalf("NewJournalFromConfig() unexpected error: %v", err)
		}
		defer got.Close()

		if _, err := os.Stat(filepath.Join(dir, JournalFileName)); err != nil {
			t.Errorf("journal file not created: %v", err)
		}
	})

	t.Run("none", func(t *testing.T) {
		got, err := NewJournalFromConfig(config.DatabaseConfig{Type: "none"})
		if err != nil {
			t.Fatalf("NewJournalFromConfig() unexpected error: %v", err)
		}
		if got != nil {
			t.Errorf("NewJournalFromConfig() = %v, want nil", got)
		}
	})

	t.Run("sqlite journal without data_dir", func(t *testing.T) {
		got, err := NewJournalFromConfig(config.DatabaseConfig{Type: "sqlite"})
		if err == nil {
			t.Error("NewJournalFromConfig() expected error for missing data_dir, got nil")
		}
		if got != nil {
			t.Error("NewJournalFromConfig() should return nil on error")
		}
	})

	t.Run("unknown database type", func(t *testing.T) {
		got, err := NewJournalFromConfig(config.DatabaseConfig{Type: "unknown"})
		if err == nil {
			t.Error("NewJournalFromConfig() expected error for unknown type, got nil")
		}
		if got != nil {
			t.Error("NewJournalFromConfig() should return nil on error")
		}
	})
}
