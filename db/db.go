package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"confessbot/apperr"
)

const dbDriver = "sqlite3"

// Store is the record store for confessions. It owns the single process-wide
// database handle.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at path and makes sure
// the schema exists. It is safe to call on every start.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, apperr.Wrap(apperr.Storage, "create database directory", err)
		}
	}

	db, err := sql.Open(dbDriver, path)
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, "open database", err)
	}

	// One connection: every statement and transaction is serialized, which is
	// what makes approval labels unique.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, apperr.Wrap(apperr.Storage, "connect database", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, apperr.Wrap(apperr.Storage, "apply pragmas", err)
	}

	// createTables is defined in migrate.go
	if err := createTables(context.Background(), db); err != nil {
		db.Close()
		return nil, apperr.Wrap(apperr.Storage, "create tables", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return apperr.Wrap(apperr.Storage, "ping database", err)
	}
	return nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}
