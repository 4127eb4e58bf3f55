package testutil

import (
	"testing"

	"github.com/abrezinsky/talentscout/internal/repository"
)

// NewTestRepository creates a new in-memory repository for testing.
// Each call creates a fresh database with all migrations applied.
func NewTestRepository(t *testing.T) *repository.Repository {
	t.Helper()

	repo, err := repository.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}

	t.Cleanup(func() {
		repo.Close()
	})

	return repo
}

// NewTestKVStore creates an in-memory flat key-value store for testing.
func NewTestKVStore(t *testing.T) *repository.KVStore {
	t.Helper()

	store, err := repository.OpenKVStore("")
	if err != nil {
		t.Fatalf("failed to create test kv store: %v", err)
	}
	return store
}
