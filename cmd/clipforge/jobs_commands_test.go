package main

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"clipforge/internal/queue"
)

func TestJobsStatusAndList(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	if _, err := env.store.NewJob(ctx, queue.JobSpec{VideoPath: filepath.Join(env.baseDir, "alpha.mp4")}); err != nil {
		t.Fatalf("alpha job: %v", err)
	}

	beta, err := env.store.NewJob(ctx, queue.JobSpec{VideoPath: filepath.Join(env.baseDir, "beta.mp4")})
	if err != nil {
		t.Fatalf("beta job: %v", err)
	}
	beta.SetFailed("render exploded")
	if err := env.store.Update(ctx, beta); err != nil {
		t.Fatalf("mark beta failed: %v", err)
	}

	out, _, err := runCLI(t, []string{"jobs", "status"}, env.configPath)
	if err != nil {
		t.Fatalf("jobs status: %v", err)
	}
	requireContains(t, out, "Pending")
	requireContains(t, out, "Failed")

	out, _, err = runCLI(t, []string{"jobs", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("jobs list: %v", err)
	}
	requireContains(t, out, "alpha.mp4")
	requireContains(t, out, "beta.mp4")

	out, _, err = runCLI(t, []string{"jobs", "list", "--status", "failed"}, env.configPath)
	if err != nil {
		t.Fatalf("jobs list --status failed: %v", err)
	}
	requireContains(t, out, "beta.mp4")
	if strings.Contains(out, "alpha.mp4") {
		t.Fatalf("status filter leaked pending job:\n%s", out)
	}
}

func TestJobsListRejectsUnknownStatus(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"jobs", "list", "--status", "bogus"}, env.configPath)
	if err == nil {
		t.Fatal("expected unknown status to be rejected")
	}
	requireContains(t, err.Error(), "bogus")
}

func TestJobsRetryAndClear(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	alpha, err := env.store.NewJob(ctx, queue.JobSpec{VideoPath: filepath.Join(env.baseDir, "alpha.mp4")})
	if err != nil {
		t.Fatalf("alpha job: %v", err)
	}
	alpha.SetFailed("fetch exploded")
	if err := env.store.Update(ctx, alpha); err != nil {
		t.Fatalf("mark alpha failed: %v", err)
	}

	out, _, err := runCLI(t, []string{"jobs", "retry"}, env.configPath)
	if err != nil {
		t.Fatalf("jobs retry: %v", err)
	}
	requireContains(t, out, "Retried 1 failed jobs")

	updated, err := env.store.GetByID(ctx, alpha.ID)
	if err != nil {
		t.Fatalf("lookup alpha: %v", err)
	}
	if updated.Status != queue.StatusPending {
		t.Fatalf("expected pending after retry, got %s", updated.Status)
	}

	updated.Status = queue.StatusCompleted
	if err := env.store.Update(ctx, updated); err != nil {
		t.Fatalf("mark alpha completed: %v", err)
	}

	out, _, err = runCLI(t, []string{"jobs", "clear", "--completed"}, env.configPath)
	if err != nil {
		t.Fatalf("jobs clear: %v", err)
	}
	requireContains(t, out, "Cleared 1 completed jobs")

	remaining, err := env.store.List(ctx)
	if err != nil {
		t.Fatalf("list remaining: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected empty queue, found %d jobs", len(remaining))
	}
}

func TestJobsRetrySpecificID(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	pending, err := env.store.NewJob(ctx, queue.JobSpec{VideoPath: filepath.Join(env.baseDir, "pending.mp4")})
	if err != nil {
		t.Fatalf("pending job: %v", err)
	}

	failed, err := env.store.NewJob(ctx, queue.JobSpec{VideoPath: filepath.Join(env.baseDir, "failed.mp4")})
	if err != nil {
		t.Fatalf("failed job: %v", err)
	}
	failed.SetFailed("compose exploded")
	if err := env.store.Update(ctx, failed); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	out, _, err := runCLI(t, []string{"jobs", "retry",
		strconv.FormatInt(failed.ID, 10),
		strconv.FormatInt(pending.ID, 10),
		"999",
	}, env.configPath)
	if err != nil {
		t.Fatalf("jobs retry ids: %v", err)
	}
	requireContains(t, out, "reset for retry")
	requireContains(t, out, "not in failed state")
	requireContains(t, out, "not found")
}

func TestJobsClearRejectsConflictingFlags(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"jobs", "clear", "--completed", "--failed"}, env.configPath)
	if err == nil {
		t.Fatal("expected conflicting flags to be rejected")
	}
}
