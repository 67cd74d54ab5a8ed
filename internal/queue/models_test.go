package queue

import (
	"testing"
	"time"
)

func TestParseStatus(t *testing.T) {
	for _, status := range AllStatuses() {
		parsed, ok := ParseStatus(string(status))
		if !ok || parsed != status {
			t.Fatalf("ParseStatus(%q) = %q, %v", status, parsed, ok)
		}
	}
	if parsed, ok := ParseStatus("  Rendering "); !ok || parsed != StatusRendering {
		t.Fatalf("expected tolerant parse, got %q, %v", parsed, ok)
	}
	if _, ok := ParseStatus("exploded"); ok {
		t.Fatal("expected unknown status to fail")
	}
	if _, ok := ParseStatus(""); ok {
		t.Fatal("expected empty status to fail")
	}
}

func TestIsProcessing(t *testing.T) {
	processing := []Status{StatusPlanning, StatusFetching, StatusComposing, StatusRendering}
	for _, status := range processing {
		if !IsProcessingStatus(status) {
			t.Fatalf("expected %s to be processing", status)
		}
	}
	for _, status := range []Status{StatusPending, StatusPlanned, StatusCompleted, StatusFailed, StatusReview} {
		if IsProcessingStatus(status) {
			t.Fatalf("expected %s to not be processing", status)
		}
	}
}

func TestJobWorkDir(t *testing.T) {
	job := Job{ID: 7, UUID: "abc-123"}
	if got := job.WorkDir("/tmp/work"); got != "/tmp/work/abc-123" {
		t.Fatalf("WorkDir = %q", got)
	}
	job.UUID = ""
	if got := job.WorkDir("/tmp/work"); got != "/tmp/work/job-7" {
		t.Fatalf("WorkDir without uuid = %q", got)
	}
	if got := job.WorkDir(""); got != "" {
		t.Fatalf("WorkDir with empty base = %q", got)
	}
}

func TestSetFailedClearsHeartbeat(t *testing.T) {
	now := time.Now().UTC()
	job := Job{Status: StatusRendering, LastHeartbeat: &now, ProgressPercent: 80}
	job.SetFailed("render exploded")
	if job.Status != StatusFailed {
		t.Fatalf("expected failed status, got %s", job.Status)
	}
	if job.LastHeartbeat != nil {
		t.Fatal("expected heartbeat cleared")
	}
	if job.ErrorMessage != "render exploded" || job.ProgressMessage != "render exploded" {
		t.Fatalf("expected error recorded, got %q / %q", job.ErrorMessage, job.ProgressMessage)
	}
	if job.ProgressPercent != 0 {
		t.Fatalf("expected progress reset, got %f", job.ProgressPercent)
	}
}
