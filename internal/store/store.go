// Package store implements C3: the normalized persistent database of
// event types, files, events, measurements, and trigger-maintained
// aggregates (spec.md §3, §4.3, §6). Grounded on the teacher's
// internal/core.Engine (modernc.org/sqlite, WAL mode, one schema.Exec at
// open time), generalized from a single ad-hoc hot-reload schema to the
// fixed five-table contract spec.md §6 calls "stable".
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by lookups that find no matching row.
var ErrNotFound = errors.New("store: not found")

// Store wraps the SQLite connection. The collector opens it read-write
// (the sole writer, per spec.md §5); the viewer opens it read-only.
type Store struct {
	db       *sql.DB
	path     string
	readOnly bool
}

// Options tunes the connection, sourced from config.Database.
type Options struct {
	CacheSize   int
	BusyTimeout int
	ReadOnly    bool
}

// Open opens (creating if necessary, unless ReadOnly) the database at path
// and ensures the schema exists.
func Open(path string, opts Options) (*Store, error) {
	if !opts.ReadOnly {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	busy := opts.BusyTimeout
	if busy <= 0 {
		busy = 5000
	}
	cache := opts.CacheSize
	if cache <= 0 {
		cache = 2000
	}

	dsn := fmt.Sprintf(
		"%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(%d)&_pragma=cache_size(-%d)",
		path, busy, cache,
	)
	if opts.ReadOnly {
		dsn += "&_pragma=query_only(ON)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db, path: path, readOnly: opts.ReadOnly}

	if !opts.ReadOnly {
		if err := s.init(); err != nil {
			db.Close()
			return nil, err
		}
	} else {
		if err := s.checkVersion(); err != nil {
			db.Close()
			return nil, err
		}
	}

	return s, nil
}

func (s *Store) init() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}

	var have string
	err := s.db.QueryRow("SELECT value FROM schema_meta WHERE key = 'version'").Scan(&have)
	if err == sql.ErrNoRows {
		_, err = s.db.Exec("INSERT INTO schema_meta (key, value) VALUES ('version', ?)", fmt.Sprint(schemaVersion))
		if err != nil {
			return fmt.Errorf("write schema version: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if have != fmt.Sprint(schemaVersion) {
		return fmt.Errorf("fatal: schema version mismatch (have %s, want %d)", have, schemaVersion)
	}
	return nil
}

func (s *Store) checkVersion() error {
	var have string
	err := s.db.QueryRow("SELECT value FROM schema_meta WHERE key = 'version'").Scan(&have)
	if err == sql.ErrNoRows {
		// Freshly-created empty database the viewer opened before the
		// collector ever ran: not an error, just nothing to show yet.
		return nil
	}
	if err != nil {
		return fmt.Errorf("fatal: read schema version: %w", err)
	}
	if have != fmt.Sprint(schemaVersion) {
		return fmt.Errorf("fatal: schema version mismatch (have %s, want %d)", have, schemaVersion)
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DB exposes the underlying *sql.DB for direct queries; the package tests
// use it to read the aggregates table.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close checkpoints the WAL (if writable) and closes the connection.
func (s *Store) Close() error {
	if !s.readOnly {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	}
	return s.db.Close()
}
