package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore is a Store backed by an SQLite database file.
type SQLiteStore struct {
	*sqlStore
}

// NewSQLiteStore opens the SQLite database at the configured DSN, creating
// its parent directory and schema when missing.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("sqlite: %w", ErrDSNNotSet)
	}
	if dir := filepath.Dir(cfg.DSN); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", dir, err)
		}
	}

	st, err := openDB("SQLiteStore", "sqlite3", cfg.DSN, sqliteMigrations, false, func(db *sql.DB) {
		// One connection serializes writers; SQLite rejects concurrent ones.
		db.SetMaxOpenConns(1)
	})
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{sqlStore: st}, nil
}
