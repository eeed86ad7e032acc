// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

package sqlitepool

import (
	"context"
	"path/filepath"
	"testing"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(Config{}); err == nil {
		t.Fatal("Open with empty Path succeeded")
	}
}

func TestOnConnectRunsBeforeTake(t *testing.T) {
	pool, err := Open(Config{
		Path:     filepath.Join(t.TempDir(), "state.db"),
		PoolSize: 2,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteTransient(conn,
				"CREATE TABLE IF NOT EXISTS kv (k TEXT PRIMARY KEY, v TEXT)", nil)
		},
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer pool.Close()

	ctx := context.Background()
	conn, err := pool.Take(ctx)
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	defer pool.Put(conn)

	if err := sqlitex.Execute(conn, "INSERT INTO kv (k, v) VALUES (?, ?)", &sqlitex.ExecOptions{
		Args: []any{"owner", "escrow.owner"},
	}); err != nil {
		t.Fatalf("insert into OnConnect-created table: %v", err)
	}
}

func TestWritesVisibleAcrossConnections(t *testing.T) {
	pool, err := Open(Config{
		Path:     filepath.Join(t.TempDir(), "state.db"),
		PoolSize: 2,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteTransient(conn,
				"CREATE TABLE IF NOT EXISTS kv (k TEXT PRIMARY KEY, v TEXT)", nil)
		},
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer pool.Close()

	ctx := context.Background()

	writer, err := pool.Take(ctx)
	if err != nil {
		t.Fatalf("Take writer: %v", err)
	}
	if err := sqlitex.Execute(writer, "INSERT INTO kv (k, v) VALUES (?, ?)", &sqlitex.ExecOptions{
		Args: []any{"repo", "octo/widgets"},
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	pool.Put(writer)

	reader, err := pool.Take(ctx)
	if err != nil {
		t.Fatalf("Take reader: %v", err)
	}
	defer pool.Put(reader)

	var got string
	err = sqlitex.Execute(reader, "SELECT v FROM kv WHERE k = ?", &sqlitex.ExecOptions{
		Args: []any{"repo"},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			got = stmt.ColumnText(0)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if got != "octo/widgets" {
		t.Errorf("read %q, want %q", got, "octo/widgets")
	}
}
