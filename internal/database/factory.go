package database

import (
	"fmt"
	"os"
	"path/filepath"

	"fh-go/internal/config"
	"fh-go/internal/fh"
)

// JournalFileName is the journal file inside database.data_dir.
const JournalFileName = "fh.db"

// NewJournalFromConfig creates a Journal implementation based on the database
// config type. Type "none" returns a nil Journal: operations are not recorded.
func NewJournalFromConfig(cfg config.DatabaseConfig) (fh.Journal, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
		j, err := NewSQLiteJournal(filepath.Join(cfg.DataDir, JournalFileName))
		if err != nil {
			return nil, err
		}
		return j, nil
	case "memory":
		j, err := NewSQLiteJournal(":memory:")
		if err != nil {
			return nil, err
		}
		return j, nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
