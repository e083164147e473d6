// Package testutil holds helpers shared by package tests.
package testutil

import (
	"testing"

	"github.com/speechcoach/coach/internal/repository"
)

// NewTestSQLiteStore returns an in-memory store closed when the test ends.
func NewTestSQLiteStore(t *testing.T) *repository.SQLiteStore {
	t.Helper()

	s, err := repository.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}
