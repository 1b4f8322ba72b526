// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package kvstore

import (
	"context"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/talia-ai/webchat/lib/sqlitepool"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS client_state (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
) WITHOUT ROWID;
`

// SQLiteStore keeps values in a client_state table.
type SQLiteStore struct {
	pool *sqlitepool.Pool
}

// OpenSQLite opens (or creates) the database at path and ensures the
// table exists.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteStore, error) {
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:   path,
		Logger: logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, sqliteSchema, nil)
		},
	})
	if err != nil {
		return nil, &Error{Backend: "sqlite", Op: "open", Err: err}
	}
	return &SQLiteStore{pool: pool}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return "", false, &Error{Backend: "sqlite", Op: "get", Key: key, Err: err}
	}
	defer s.pool.Put(conn)

	var value string
	var found bool
	err = sqlitex.Execute(conn, "SELECT value FROM client_state WHERE key = ?", &sqlitex.ExecOptions{
		Args: []any{key},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			value = stmt.ColumnText(0)
			found = true
			return nil
		},
	})
	if err != nil {
		return "", false, &Error{Backend: "sqlite", Op: "get", Key: key, Err: err}
	}
	return value, found, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return &Error{Backend: "sqlite", Op: "set", Key: key, Err: err}
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`INSERT INTO client_state (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		&sqlitex.ExecOptions{Args: []any{key, value}},
	)
	if err != nil {
		return &Error{Backend: "sqlite", Op: "set", Key: key, Err: err}
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return &Error{Backend: "sqlite", Op: "delete", Key: key, Err: err}
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, "DELETE FROM client_state WHERE key = ?", &sqlitex.ExecOptions{Args: []any{key}})
	if err != nil {
		return &Error{Backend: "sqlite", Op: "delete", Key: key, Err: err}
	}
	return nil
}

// Close closes the underlying pool.
func (s *SQLiteStore) Close() error {
	return s.pool.Close()
}
