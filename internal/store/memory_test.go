package store

import "testing"

// TestMemoryStore runs the shared store suite against the in-memory
// implementation the engine tests rely on
func TestMemoryStore(t *testing.T) {
	RunStoreTests(t,
		func(t *testing.T) Store { return NewMemoryStore() },
		func(t *testing.T) {},
	)
}
