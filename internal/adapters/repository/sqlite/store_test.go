package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/okian/winstate/internal/adapters/repository"
	"github.com/okian/winstate/internal/adapters/repository/storetest"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return store
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) repository.Store {
		return openTempStore(t)
	})
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), "  "); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestReopenKeepsResults(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "results.db")

	first, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := first.Put(ctx, storetest.Result("g", "a", 3, "00:10", "Ada")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()

	got, err := second.Top(ctx, "g", 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Ada" {
		t.Fatalf("got %+v, want one result named Ada", got)
	}
	games, err := second.Games(ctx)
	if err != nil {
		t.Fatalf("games: %v", err)
	}
	if games != 1 {
		t.Fatalf("games = %d, want 1", games)
	}
}

func TestMigrationsApplyOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTempStore(t)
	defer store.Close()

	if err := applyMigrations(ctx, store.db, fstest.MapFS{
		"0001_results.sql": {Data: []byte("-- +migrate Up\nCREATE TABLE results (x INTEGER);\n")},
	}, ""); err != nil {
		t.Fatalf("reapplying a recorded migration should be a no-op: %v", err)
	}

	var applied int
	if err := store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+migrationTable).Scan(&applied); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if applied != 1 {
		t.Fatalf("applied = %d, want 1", applied)
	}
}

func TestExtractUp(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"CREATE TABLE a (x INT);":                                      "CREATE TABLE a (x INT);",
		"-- +migrate Up\nCREATE TABLE a (x INT);":                      "\nCREATE TABLE a (x INT);",
		"-- +migrate Up\nCREATE TABLE a (x INT);\n-- +migrate Down\nX": "\nCREATE TABLE a (x INT);\n",
	}
	for in, want := range cases {
		if got := extractUp(in); got != want {
			t.Errorf("extractUp(%q) = %q, want %q", in, got, want)
		}
	}
}
