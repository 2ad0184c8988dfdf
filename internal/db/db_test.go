package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/calebmorris/prospector/internal/schema"
)

// testDB opens an initialized mirror store in a temp directory.
func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mirror.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.InitSchema(); err != nil {
		t.Fatalf("InitSchema() failed: %v", err)
	}
	return db
}

func TestOpen_Success(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mirror.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer db.Close()

	if db.path != path {
		t.Errorf("path = %q, want %q", db.path, path)
	}
}

func TestInitSchema_CreatesAllTables(t *testing.T) {
	db := testDB(t)

	tables := []string{"accounts", "contacts", "timeline_events", "partnerships", "sync_status", "research_queue"}
	for _, table := range tables {
		var count int
		query := `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`
		if err := db.conn.QueryRow(query, table).Scan(&count); err != nil {
			t.Fatalf("Failed to query table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("Table %s does not exist", table)
		}
	}
}

func TestInitSchema_Idempotent(t *testing.T) {
	db := testDB(t)
	if err := db.InitSchema(); err != nil {
		t.Errorf("Second InitSchema() failed: %v", err)
	}
}

func TestCountEntities(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	count, err := db.CountEntities(ctx, schema.EntityAccounts)
	if err != nil {
		t.Fatalf("CountEntities() failed: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}

	if _, err := db.UpsertAccountContext(ctx, &schema.Account{RemoteID: "acc_1", Name: "Acme"}); err != nil {
		t.Fatalf("UpsertAccount() failed: %v", err)
	}

	count, err = db.CountEntities(ctx, schema.EntityAccounts)
	if err != nil {
		t.Fatalf("CountEntities() failed: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}

	if _, err := db.CountEntities(ctx, "no_such_table"); err == nil {
		t.Error("CountEntities() accepted an unknown entity type")
	}
}

func TestClose_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mirror.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}

	if err := db.Close(); err != nil {
		t.Errorf("Close() failed: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Errorf("Second Close() failed: %v", err)
	}
}
