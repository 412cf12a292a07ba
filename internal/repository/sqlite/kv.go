package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/kailas-cloud/docsage/internal/db"
)

// KV is a byte key-value table in the same database, used by the embedding cache.
// It never creates the database file: before the index exists every key misses
// and writes are dropped.
type KV struct {
	store *Store
}

// NewKV returns the key-value view of s.
func NewKV(s *Store) *KV {
	return &KV{store: s}
}

// Get returns the value for key or db.ErrKeyNotFound.
func (k *KV) Get(ctx context.Context, key string) ([]byte, error) {
	conn, err := k.store.conn(ctx, false)
	if errors.Is(err, os.ErrNotExist) {
		return nil, db.ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	var val []byte
	err = conn.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, db.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kv get %s: %w", key, err)
	}
	return val, nil
}

// Set stores value under key, replacing any previous value.
func (k *KV) Set(ctx context.Context, key string, value []byte) error {
	conn, err := k.store.conn(ctx, false)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if _, err := conn.ExecContext(ctx,
		`INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	); err != nil {
		return fmt.Errorf("kv set %s: %w", key, err)
	}
	return nil
}
