// Package sqlitestore keeps all baselines of a project in a single SQLite
// database file.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gogpu/vrt/store"
)

// Memory opens a private in-memory database.
const Memory = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS blobs (
	key        TEXT PRIMARY KEY,
	data       BLOB NOT NULL,
	updated_at INTEGER NOT NULL
);
`

var memSeq atomic.Uint64

// Store is a store.Store backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at path. Use Memory for an in-memory
// database that lives until Close.
func Open(path string) (*Store, error) {
	var dsn string
	if path == Memory {
		// Each in-memory store gets its own named database so stores opened
		// by different tests do not share rows.
		dsn = fmt.Sprintf("file:vrt-mem-%d?mode=memory&cache=shared", memSeq.Add(1))
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlitestore: create %s: %w", dir, err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open: %w", err)
	}
	if path == Memory {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitestore: connect: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitestore: migrate: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database path, or Memory.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// ReadFile implements store.Store.
func (s *Store) ReadFile(ctx context.Context, key string) ([]byte, error) {
	if err := store.ValidateKey(key); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM blobs WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.NotFound(key)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: read %s: %w", key, err)
	}
	return data, nil
}

// WriteFile implements store.Store.
func (s *Store) WriteFile(ctx context.Context, key string, data []byte) error {
	if err := store.ValidateKey(key); err != nil {
		return err
	}
	if data == nil {
		data = []byte{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO blobs (key, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		key, data, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("sqlitestore: write %s: %w", key, err)
	}
	return nil
}

// List implements store.Lister.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM blobs WHERE substr(key, 1, length(?1)) = ?1 ORDER BY key`, prefix)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: list %q: %w", prefix, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("sqlitestore: list %q: %w", prefix, err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Delete implements store.Deleter.
func (s *Store) Delete(ctx context.Context, prefix string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM blobs WHERE substr(key, 1, length(?1)) = ?1`, prefix)
	if err != nil {
		return 0, fmt.Errorf("sqlitestore: delete %q: %w", prefix, err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}
