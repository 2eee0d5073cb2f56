package database

import (
	"fmt"
	"path/filepath"

	"snapkeep/internal/config"
	"snapkeep/internal/snap"
)

// IndexFileName is the on-disk name of the sqlite index database.
const IndexFileName = "snapkeep.db"

// NewIndexFromConfig creates an Index implementation based on the database config type.
func NewIndexFromConfig(cfg config.DatabaseConfig) (snap.Index, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		return NewSQLiteIndex(filepath.Join(cfg.DataDir, IndexFileName))
	case "memory":
		return NewSQLiteIndex(":memory:")
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
