package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/synccircle/internal/persistence/sqlite"
	"github.com/example/synccircle/internal/persistence/sqlite/migration"
)

// SQLiteHarness is a migrated SQLite database in a per-test temporary
// directory.
type SQLiteHarness struct {
	Storage *sqlite.Storage
}

// NewSQLiteHarness opens and migrates a fresh database. It is closed when the
// test finishes.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	ctx := context.Background()
	path := filepath.Join(tb.TempDir(), "synccircle.db")
	storage, err := sqlite.Open(ctx, migration.TempFileTestSQLiteConfig(path))
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	tb.Cleanup(func() { _ = storage.Close() })

	if err := storage.Migrate(ctx, nil); err != nil {
		tb.Fatalf("failed to migrate storage: %v", err)
	}
	return &SQLiteHarness{Storage: storage}
}

// Seed stores the sample circle with its members and events.
func (h *SQLiteHarness) Seed(tb testing.TB, sample SampleCircle) {
	tb.Helper()

	ctx := context.Background()
	if err := h.Storage.CreateCircle(ctx, sample.Circle); err != nil {
		tb.Fatalf("failed to seed circle %s: %v", sample.Circle.ID, err)
	}
	for _, member := range sample.Members {
		if err := h.Storage.CreateMember(ctx, member); err != nil {
			tb.Fatalf("failed to seed member %s: %v", member.ID, err)
		}
	}
	if len(sample.Events) > 0 {
		if err := h.Storage.CreateEvents(ctx, sample.Events); err != nil {
			tb.Fatalf("failed to seed events of %s: %v", sample.Circle.ID, err)
		}
	}
}
