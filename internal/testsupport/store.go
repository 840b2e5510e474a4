package testsupport

import (
	"context"
	"testing"

	"spyglass/internal/config"
	"spyglass/internal/taskstore"
)

// MustOpenStore opens a taskstore.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) taskstore.Store {
	t.Helper()

	store, err := taskstore.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("taskstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewTask creates a pending task for tests using the provided store.
func NewTask(t testing.TB, store taskstore.Store, platform, identifier string) *taskstore.Task {
	t.Helper()

	task, err := store.Create(context.Background(), platform, identifier, taskstore.DepthQuick, "")
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return task
}

// ClaimTask claims a pending task for tests, failing on any claim error.
func ClaimTask(t testing.TB, store taskstore.Store, id int64) *taskstore.Task {
	t.Helper()

	task, err := store.Claim(context.Background(), id)
	if err != nil {
		t.Fatalf("store.Claim: %v", err)
	}
	return task
}
