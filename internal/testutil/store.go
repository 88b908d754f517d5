package testutil

import (
	"testing"

	"frostbyte/internal/frost"
	"frostbyte/internal/store"
)

// NewTestStore creates an in-memory metadata store with migrations applied.
// The store is automatically closed when the test completes.
func NewTestStore(t *testing.T) frost.MetadataStore {
	t.Helper()

	s, err := store.Open(store.ModeMemory)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	t.Cleanup(func() {
		s.Close()
	})

	return s
}
