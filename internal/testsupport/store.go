package testsupport

import (
	"context"
	"testing"

	"clipforge/internal/config"
	"clipforge/internal/queue"
)

// MustOpenStore opens the job store against cfg and closes it when the test
// finishes.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()
	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("open job store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// NewJob inserts a job and fails the test on error.
func NewJob(t testing.TB, store *queue.Store, spec queue.JobSpec) *queue.Job {
	t.Helper()
	job, err := store.NewJob(context.Background(), spec)
	if err != nil {
		t.Fatalf("insert job: %v", err)
	}
	return job
}
