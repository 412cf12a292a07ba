// Package sqlite is the local, file-backed vector index: chunks live in one SQLite
// database and are ranked by brute-force cosine similarity.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/kailas-cloud/docsage/internal/domain"
)

// FileName is the database file created inside the index location.
const FileName = "docsage.db"

const schema = `
CREATE TABLE IF NOT EXISTS collections (
	name       TEXT PRIMARY KEY,
	dimensions INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS chunks (
	collection   TEXT    NOT NULL,
	id           TEXT    NOT NULL,
	ticket_id    TEXT    NOT NULL,
	content_type TEXT    NOT NULL,
	context_line TEXT    NOT NULL DEFAULT '',
	content      TEXT    NOT NULL,
	vector       BLOB    NOT NULL,
	seq          INTEGER NOT NULL,
	PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS idx_chunks_type ON chunks (collection, content_type);
CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value BLOB NOT NULL
);
`

// Store owns the database handle. It is opened lazily: query paths never create
// the file, so a missing index surfaces as domain.ErrIndexUnavailable.
type Store struct {
	path string

	mu sync.Mutex
	db *sql.DB
}

// NewStore points a store at dir/docsage.db without touching the filesystem.
func NewStore(dir string) *Store {
	return &Store{path: filepath.Join(dir, FileName)}
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection if it was opened.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Ping opens the existing database and checks it responds.
func (s *Store) Ping(ctx context.Context) error {
	conn, err := s.conn(ctx, false)
	if err != nil {
		return err
	}
	if err := conn.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping %s: %w", domain.ErrIndexUnavailable, s.path, err)
	}
	return nil
}

// conn returns the open handle. With create=false a missing file is an error.
func (s *Store) conn(ctx context.Context, create bool) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db, nil
	}

	if _, err := os.Stat(s.path); err != nil {
		if !create || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: open %s: %w", domain.ErrIndexUnavailable, s.path, err)
		}
		if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
			return nil, fmt.Errorf("%w: create index directory: %w", domain.ErrIndexUnavailable, err)
		}
	}

	// WAL lets query-only workloads read concurrently
	db, err := sql.Open("sqlite", s.path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", domain.ErrIndexUnavailable, s.path, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: apply schema: %w", domain.ErrIndexUnavailable, err)
	}

	s.db = db
	return db, nil
}
