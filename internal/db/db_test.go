package db

import (
	"context"
	"path/filepath"
	"testing"
)

func TestParseDialect(t *testing.T) {
	cases := map[string]Dialect{
		"":            DialectSQLite,
		"sqlite":      DialectSQLite,
		"SQLite3":     DialectSQLite,
		"postgres":    DialectPostgres,
		" postgresql": DialectPostgres,
	}
	for input, want := range cases {
		got, err := ParseDialect(input)
		if err != nil {
			t.Fatalf("parse %q: %v", input, err)
		}
		if got != want {
			t.Fatalf("parse %q: expected %q, got %q", input, want, got)
		}
	}

	if _, err := ParseDialect("mysql"); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}

func TestRebindNumbersPlaceholdersForPostgres(t *testing.T) {
	q := New(nil, DialectPostgres)
	got := q.rebind("UPDATE tasks SET title = ? WHERE id = ?")
	if got != "UPDATE tasks SET title = $1 WHERE id = $2" {
		t.Fatalf("unexpected rebind result %q", got)
	}

	sqlite := New(nil, DialectSQLite)
	if got := sqlite.rebind("SELECT ?"); got != "SELECT ?" {
		t.Fatalf("expected sqlite query unchanged, got %q", got)
	}
}

func TestOpenPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lazytodo.db")

	first, err := Open(DialectSQLite, path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	store := NewStore(first, DialectSQLite)
	created, err := store.CreateTask(context.Background(), "Survives restart")
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	_ = first.Close()

	second, err := Open(DialectSQLite, path)
	if err != nil {
		t.Fatalf("reopen db: %v", err)
	}
	defer second.Close()

	reloaded, err := NewStore(second, DialectSQLite).GetTask(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get task after reopen: %v", err)
	}
	if reloaded.Title != "Survives restart" {
		t.Fatalf("unexpected title %q", reloaded.Title)
	}
}

func TestOpenRequiresDSN(t *testing.T) {
	if _, err := Open(DialectSQLite, ""); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}
