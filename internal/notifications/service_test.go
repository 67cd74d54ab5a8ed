package notifications_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"clipforge/internal/config"
	"clipforge/internal/notifications"
)

type capturedRequest struct {
	contentType string
	body        map[string]any
}

// captureServer accepts webhook posts and records the decoded body of the
// most recent one.
func captureServer(t *testing.T, into *capturedRequest) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if r.Method != http.MethodPost {
			t.Errorf("webhook used %s, want POST", r.Method)
		}
		into.contentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&into.body); err != nil {
			t.Errorf("decode webhook body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNewServiceReturnsNoopWhenWebhookMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.WebhookURL = ""

	svc := notifications.NewService(&cfg)
	err := svc.Publish(context.Background(), notifications.EventJobCompleted, notifications.Payload{"video": "talk.mp4"})
	if err != nil {
		t.Fatalf("noop notifier should swallow publishes, got %v", err)
	}
}

func TestWebhookServiceFormatsEvents(t *testing.T) {
	tests := []struct {
		name    string
		event   notifications.Event
		payload notifications.Payload
		want    string
	}{
		{
			name:    "job queued",
			event:   notifications.EventJobQueued,
			payload: notifications.Payload{"job_id": 3, "video": "talk.mp4"},
			want:    "Queued: talk.mp4",
		},
		{
			name:    "job started",
			event:   notifications.EventJobStarted,
			payload: notifications.Payload{"job_id": 3, "video": "talk.mp4"},
			want:    "Processing: talk.mp4",
		},
		{
			name:    "job completed",
			event:   notifications.EventJobCompleted,
			payload: notifications.Payload{"video": "talk.mp4", "output": "/out/talk_tiktok.mp4"},
			want:    "Video ready: talk.mp4 -> /out/talk_tiktok.mp4",
		},
		{
			name:    "job failed",
			event:   notifications.EventJobFailed,
			payload: notifications.Payload{"video": "talk.mp4", "error": "render: ffmpeg exited with status 1"},
			want:    "Failed: talk.mp4: render: ffmpeg exited with status 1",
		},
		{
			name:    "batch completed clean",
			event:   notifications.EventBatchCompleted,
			payload: notifications.Payload{"processed": 4, "failed": 0, "duration": "3m20s"},
			want:    "Batch complete: 4 jobs processed in 3m20s",
		},
		{
			name:    "batch completed with failures",
			event:   notifications.EventBatchCompleted,
			payload: notifications.Payload{"processed": 3, "failed": 1, "duration": "2m5s"},
			want:    "Batch complete: 3 succeeded, 1 failed in 2m5s",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got capturedRequest
			server := captureServer(t, &got)

			cfg := config.Default()
			cfg.Notifications.WebhookURL = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("Publish: %v", err)
			}

			if got.contentType != "application/json" {
				t.Fatalf("content type: got %q", got.contentType)
			}
			if got.body["event"] != string(tc.event) {
				t.Fatalf("event field: got %v want %q", got.body["event"], tc.event)
			}
			if got.body["message"] != tc.want {
				t.Fatalf("message: got %v want %q", got.body["message"], tc.want)
			}
			if ts, _ := got.body["timestamp"].(string); ts == "" {
				t.Fatal("missing timestamp in webhook body")
			}
			if _, ok := got.body["data"].(map[string]any); !ok {
				t.Fatal("missing data object in webhook body")
			}
		})
	}
}

func TestWebhookServiceHonorsEventToggles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call for suppressed event: %s", r.URL)
	}))
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Notifications.WebhookURL = server.URL
	cfg.Notifications.Queue = false
	cfg.Notifications.Complete = false
	cfg.Notifications.Errors = false

	svc := notifications.NewService(&cfg)
	for _, event := range []notifications.Event{
		notifications.EventJobQueued,
		notifications.EventJobStarted,
		notifications.EventJobCompleted,
		notifications.EventJobFailed,
		notifications.EventBatchCompleted,
	} {
		if err := svc.Publish(context.Background(), event, notifications.Payload{"video": "ignored"}); err != nil {
			t.Fatalf("suppressed event %s: %v", event, err)
		}
	}
}

func TestWebhookServiceSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Notifications.WebhookURL = server.URL

	svc := notifications.NewService(&cfg)
	err := svc.Publish(context.Background(), notifications.EventJobFailed, notifications.Payload{"video": "talk.mp4"})
	if err == nil {
		t.Fatal("expected error for 502 response")
	}
}
