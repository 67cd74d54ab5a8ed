package services_test

import (
	"context"
	"testing"

	"clipforge/internal/services"
)

func TestJobIDRoundTrip(t *testing.T) {
	ctx := services.WithJobID(context.Background(), 42)
	id, ok := services.JobIDFromContext(ctx)
	if !ok || id != 42 {
		t.Fatalf("got id=%d ok=%v", id, ok)
	}
	if _, ok := services.JobIDFromContext(context.Background()); ok {
		t.Fatal("expected no job id on bare context")
	}
}

func TestStageRoundTrip(t *testing.T) {
	ctx := services.WithStage(context.Background(), "rendering")
	stage, ok := services.StageFromContext(ctx)
	if !ok || stage != "rendering" {
		t.Fatalf("got stage=%q ok=%v", stage, ok)
	}
	if got := services.WithStage(ctx, ""); got != ctx {
		t.Fatal("expected blank stage to return ctx unchanged")
	}
}

func TestWorkerRoundTrip(t *testing.T) {
	ctx := services.WithWorker(context.Background(), 3)
	worker, ok := services.WorkerFromContext(ctx)
	if !ok || worker != 3 {
		t.Fatalf("got worker=%d ok=%v", worker, ok)
	}
	if got := services.WithWorker(ctx, -1); got != ctx {
		t.Fatal("expected negative worker to return ctx unchanged")
	}
}

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := services.WithRequestID(context.Background(), "req-123")
	rid, ok := services.RequestIDFromContext(ctx)
	if !ok || rid != "req-123" {
		t.Fatalf("got request id=%q ok=%v", rid, ok)
	}
	if _, ok := services.RequestIDFromContext(context.Background()); ok {
		t.Fatal("expected no request id on bare context")
	}
}
