package testutil

import (
	"testing"

	"edusphere/internal/database"
)

// NewTestDatabase creates a new in-memory SQLite profile store with migrations applied.
// The database is automatically closed when the test completes.
func NewTestDatabase(t *testing.T) *database.SQLiteStorage {
	t.Helper()

	db, err := database.NewSQLiteStorage(":memory:", FixedClock())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}
