package testutil

import (
	"testing"

	"snapkeep/internal/database"
	"snapkeep/internal/snap"
)

// NewTestIndex creates a new in-memory SQLite index with schema applied.
// The index is automatically closed when the test completes.
func NewTestIndex(t *testing.T) snap.Index {
	t.Helper()

	index, err := database.NewSQLiteIndex(":memory:")
	if err != nil {
		t.Fatalf("failed to open index: %v", err)
	}

	t.Cleanup(func() {
		index.Close()
	})

	return index
}
