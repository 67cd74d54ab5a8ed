package workflow

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"clipforge/internal/logging"
	"clipforge/internal/queue"
	"clipforge/internal/services"
)

func (m *Manager) workerLogger(index int) *slog.Logger {
	base := m.logger
	if base == nil {
		base = logging.NewNop()
	}
	return base.With(
		logging.String(logging.FieldComponent, "workflow-worker"),
		logging.Int(logging.FieldWorker, index),
	)
}

// stageLogger layers the stage context fields onto the worker logger.
func (m *Manager) stageLogger(ctx context.Context, base *slog.Logger) *slog.Logger {
	switch {
	case base != nil:
	case m.logger != nil:
		base = m.logger
	default:
		base = logging.NewNop()
	}
	return logging.WithContext(ctx, base)
}

// withStageContext tags ctx with the identifiers every stage log line and
// wrapped error should carry.
func withStageContext(ctx context.Context, stage string, job *queue.Job, worker int, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = services.WithWorker(ctx, worker)
	if stage != "" {
		ctx = services.WithStage(ctx, stage)
	}
	if requestID != "" {
		ctx = services.WithRequestID(ctx, requestID)
	}
	if job == nil {
		return ctx
	}
	return services.WithJobID(ctx, job.ID)
}

// deriveStageLabel turns a status value into the form shown in progress
// output, so "composing" reads as "Composing".
func deriveStageLabel(status queue.Status) string {
	if status == "" {
		return ""
	}
	caser := cases.Title(language.Und)
	return caser.String(strings.ReplaceAll(string(status), "_", " "))
}
