// Package store persists championships, drivers, and race results in an
// embedded SQLite database. Migration design follows the teacher's
// store.Store: ordered DDL strings in [migrations], each applied exactly
// once and tracked in schema_migrations — append, never edit or reorder.
package store

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"

	_ "modernc.org/sqlite"
)

var migrations = []string{
	// v1 — championships
	`CREATE TABLE IF NOT EXISTS championships (
		id         INTEGER PRIMARY KEY,
		name       TEXT NOT NULL,
		category   TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL DEFAULT (unixepoch())
	)`,
	// v2 — drivers
	`CREATE TABLE IF NOT EXISTS drivers (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		steam_name   TEXT NOT NULL UNIQUE,
		nationality  INTEGER NOT NULL DEFAULT 0,
		created_at   INTEGER NOT NULL DEFAULT (unixepoch()),
		updated_at   INTEGER
	)`,
	// v3 — race results
	`CREATE TABLE IF NOT EXISTS race_results (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		championship_id INTEGER NOT NULL,
		classification  BLOB NOT NULL,
		created_at      INTEGER NOT NULL DEFAULT (unixepoch())
	)`,
	// v4 — race results index
	`CREATE INDEX IF NOT EXISTS idx_race_results_championship ON race_results(championship_id)`,
	// v5 — WAL mode
	`PRAGMA journal_mode=WAL`,
}

// Store wraps a SQLite database and exposes the repositories the F1 Service
// and control API depend on.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and applies any
// pending migrations. Use ":memory:" for ephemeral in-process storage.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)

	if _, err := db.Exec(`PRAGMA busy_timeout=5000`); err != nil {
		log.Warn().Err(err).Msg("store: set busy_timeout failed (non-fatal)")
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	log.Info().Str("path", path).Msg("store opened")
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var current int
	if err := s.db.QueryRow(
		`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`,
	).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for i, stmt := range migrations {
		v := i + 1
		if v <= current {
			continue
		}
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", v, err)
		}
		if _, err := s.db.Exec(`INSERT INTO schema_migrations(version) VALUES(?)`, v); err != nil {
			return fmt.Errorf("record migration %d: %w", v, err)
		}
		log.Debug().Int("version", v).Msg("store: applied migration")
	}
	return nil
}
