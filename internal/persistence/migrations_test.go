package persistence

import (
	"context"
	"testing"
	"testing/fstest"

	"go.uber.org/zap"

	"github.com/taskforge/task-manager/internal/config"
	"github.com/taskforge/task-manager/internal/repository"
)

func newMemoryStore(t *testing.T) *SQLite {
	t.Helper()
	store, err := NewSQLite(context.Background(), config.SQLiteConfig{Path: ":memory:"}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

func tableExists(t *testing.T, db repository.DB, name string) bool {
	t.Helper()
	var n int
	if err := db.QueryRow(context.Background(), "SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&n); err != nil {
		t.Fatalf("lookup %s: %v", name, err)
	}
	return n == 1
}

func TestApplyMigrations_FailedFileIsRolledBack(t *testing.T) {
	store := newMemoryStore(t)
	fsys := fstest.MapFS{
		"m/0001_first.sql":  {Data: []byte("CREATE TABLE first (x INTEGER);")},
		"m/0002_broken.sql": {Data: []byte("CREATE TABLE second (x INTEGER); CREATE TABLE broken (")},
		"m/0003_never.sql":  {Data: []byte("CREATE TABLE never (x INTEGER);")},
	}

	if err := applyMigrations(context.Background(), fsys, "m", store.DB(), zap.NewNop()); err == nil {
		t.Fatal("expected the broken migration to fail")
	}
	db := store.DB()
	if !tableExists(t, db, "first") {
		t.Error("first migration was not kept")
	}
	if tableExists(t, db, "second") {
		t.Error("half of the broken migration was committed")
	}
	if tableExists(t, db, "never") {
		t.Error("migrations continued after a failure")
	}
}

func TestMigrate_IsRepeatable(t *testing.T) {
	store := newMemoryStore(t)
	for i := 0; i < 2; i++ {
		if err := store.Migrate(context.Background(), zap.NewNop()); err != nil {
			t.Fatalf("run %d: %v", i+1, err)
		}
	}
	for _, table := range []string{"users", "task_statuses", "labels", "tasks", "task_labels"} {
		if !tableExists(t, store.DB(), table) {
			t.Errorf("table %s missing", table)
		}
	}
}
