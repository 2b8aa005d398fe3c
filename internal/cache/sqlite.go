package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// SQLite stores entries in a single-file database so the persistent store
// survives restarts.
type SQLite struct {
	mu   sync.Mutex
	conn *sqlite.Conn
	now  func() time.Time
}

// OpenSQLite opens or creates the database at path and drops rows whose
// backend expiry has passed.
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	conn, err := sqlite.OpenConn(path, sqlite.OpenCreate|sqlite.OpenReadWrite)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	err = sqlitex.ExecuteTransient(conn, `
		CREATE TABLE IF NOT EXISTS cache_entries (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			expires_at INTEGER NOT NULL
		)
	`, nil)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	s := &SQLite{conn: conn, now: time.Now}
	if err := s.purge(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return s, nil
}

// Load implements Backend.
func (s *SQLite) Load(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conn.SetInterrupt(ctx.Done())
	defer s.conn.SetInterrupt(nil)

	var (
		value []byte
		found bool
	)

	err := sqlitex.Execute(s.conn, "SELECT value FROM cache_entries WHERE key = ?", &sqlitex.ExecOptions{
		Args: []any{key},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			value = []byte(stmt.ColumnText(0))
			found = true

			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query entry: %w", err)
	}

	if !found {
		return nil, ErrMiss
	}

	return value, nil
}

// Save implements Backend.
func (s *SQLite) Save(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conn.SetInterrupt(ctx.Done())
	defer s.conn.SetInterrupt(nil)

	err := sqlitex.Execute(s.conn, `
		INSERT INTO cache_entries (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at
	`, &sqlitex.ExecOptions{
		Args: []any{key, string(value), s.now().Add(ttl).UnixMilli()},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert entry: %w", err)
	}

	return nil
}

// Remove implements Backend.
func (s *SQLite) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conn.SetInterrupt(ctx.Done())
	defer s.conn.SetInterrupt(nil)

	err := sqlitex.Execute(s.conn, "DELETE FROM cache_entries WHERE key = ?", &sqlitex.ExecOptions{
		Args: []any{key},
	})
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}

	return nil
}

// Close closes the underlying connection.
func (s *SQLite) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.conn.Close()
}

func (s *SQLite) purge() error {
	err := sqlitex.Execute(s.conn, "DELETE FROM cache_entries WHERE expires_at < ?", &sqlitex.ExecOptions{
		Args: []any{s.now().UnixMilli()},
	})
	if err != nil {
		return fmt.Errorf("failed to purge expired entries: %w", err)
	}

	return nil
}
