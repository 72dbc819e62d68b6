// Package testutil provides shared test helpers for setting up report roots
// and databases.
package testutil

import (
	"log/slog"
	"os"
	"testing"

	"github.com/starford/uxr/internal/categories"
	"github.com/starford/uxr/internal/index"
	"github.com/starford/uxr/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "uxr-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestRoot creates a temporary managed root with a storage provider.
func TestRoot(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// TestCategories opens the category list stored in db.
func TestCategories(t *testing.T, db *index.DB) *categories.Store {
	t.Helper()
	cats, err := categories.Open(db, Logger())
	if err != nil {
		t.Fatal(err)
	}
	return cats
}

// Logger returns a logger that only prints errors.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}
