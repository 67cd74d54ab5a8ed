package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clipforge/internal/config"
)

const userAgent = "ClipForge/0.1.0"

// Event identifies a workflow milestone worth announcing.
type Event string

const (
	EventJobQueued      Event = "job_queued"
	EventJobStarted     Event = "job_started"
	EventJobCompleted   Event = "job_completed"
	EventJobFailed      Event = "job_failed"
	EventBatchCompleted Event = "batch_completed"
)

// Payload carries event-specific fields into the webhook body. Values must be
// JSON-marshalable; callers pass error strings rather than error values.
type Payload map[string]any

// Service defines the notification surface exposed to workflow components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by the configured webhook.
// When no webhook URL is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	endpoint := strings.TrimSpace(cfg.Notifications.WebhookURL)
	if endpoint == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &webhookService{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventJobQueued:      cfg.Notifications.Queue,
			EventJobStarted:     cfg.Notifications.Queue,
			EventBatchCompleted: cfg.Notifications.Queue,
			EventJobCompleted:   cfg.Notifications.Complete,
			EventJobFailed:      cfg.Notifications.Errors,
		},
	}
}

type webhookService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

type envelope struct {
	Event     string  `json:"event"`
	Timestamp string  `json:"timestamp"`
	Message   string  `json:"message"`
	Data      Payload `json:"data,omitempty"`
}

func (w *webhookService) Publish(ctx context.Context, event Event, payload Payload) error {
	if w == nil || w.client == nil {
		return nil
	}
	if !w.enabled[event] {
		return nil
	}

	body, err := json.Marshal(envelope{
		Event:     string(event),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Message:   message(event, payload),
		Data:      payload,
	})
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func message(event Event, payload Payload) string {
	video := text(payload, "video")
	switch event {
	case EventJobQueued:
		return fmt.Sprintf("Queued: %s", video)
	case EventJobStarted:
		return fmt.Sprintf("Processing: %s", video)
	case EventJobCompleted:
		if output := text(payload, "output"); output != "" {
			return fmt.Sprintf("Video ready: %s -> %s", video, output)
		}
		return fmt.Sprintf("Video ready: %s", video)
	case EventJobFailed:
		if reason := text(payload, "error"); reason != "" {
			return fmt.Sprintf("Failed: %s: %s", video, reason)
		}
		return fmt.Sprintf("Failed: %s", video)
	case EventBatchCompleted:
		processed := count(payload, "processed")
		failed := count(payload, "failed")
		duration := text(payload, "duration")
		if duration == "" {
			duration = "0s"
		}
		if failed == 0 {
			return fmt.Sprintf("Batch complete: %d jobs processed in %s", processed, duration)
		}
		return fmt.Sprintf("Batch complete: %d succeeded, %d failed in %s", processed, failed, duration)
	default:
		return string(event)
	}
}

func text(payload Payload, key string) string {
	if payload == nil {
		return ""
	}
	value, ok := payload[key]
	if !ok || value == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

func count(payload Payload, key string) int {
	if payload == nil {
		return 0
	}
	switch v := payload[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
