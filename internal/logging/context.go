package logging

import (
	"context"
	"log/slog"

	"clipforge/internal/services"
)

// Standardized structured-log keys. Components use these constants instead
// of spelling keys inline so the log stream stays greppable.
const (
	// FieldComponent names the component writing the record.
	FieldComponent = "component"
	// FieldJobID carries the queue job identifier.
	FieldJobID = "job_id"
	// FieldStage carries the workflow stage name.
	FieldStage = "stage"
	// FieldWorker carries the batch worker index.
	FieldWorker = "worker"
	// FieldQuery carries a cutaway search query.
	FieldQuery = "query"
	// FieldCorrelationID ties every record of one run together.
	FieldCorrelationID = "correlation_id"
	// FieldEventType is a machine-readable event name.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the operator's next step.
	FieldErrorHint = "error_hint"
	// FieldImpact states the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldDecisionType labels policy decisions.
	FieldDecisionType = "decision_type"
	// FieldAlert flags records that monitoring should surface.
	FieldAlert = "alert"
)

// ContextFields extracts the standardized attributes carried by ctx.
func ContextFields(ctx context.Context) []Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]Attr, 0, 4)
	if id, ok := services.JobIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldJobID, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if worker, ok := services.WorkerFromContext(ctx); ok {
		fields = append(fields, slog.Int(FieldWorker, worker))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns logger augmented with the fields carried by ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}

// WarnWithContext logs a warning carrying the ctx fields plus default
// error_hint and impact attributes when the caller supplied none. Warnings
// should always state cause, consequence, and next step.
func WarnWithContext(ctx context.Context, logger *slog.Logger, msg string, attrs ...Attr) {
	if logger == nil {
		return
	}
	attrs = contextualize(ctx, attrs)
	if !hasKey(attrs, FieldErrorHint) {
		attrs = append(attrs, String(FieldErrorHint, "check logs for details"))
	}
	if !hasKey(attrs, FieldImpact) {
		attrs = append(attrs, String(FieldImpact, "operation completed with warnings"))
	}
	logger.Warn(msg, Args(attrs...)...)
}

// ErrorWithContext logs an error carrying the ctx fields plus a default
// error_hint attribute when the caller supplied none.
func ErrorWithContext(ctx context.Context, logger *slog.Logger, msg string, attrs ...Attr) {
	if logger == nil {
		return
	}
	attrs = contextualize(ctx, attrs)
	if !hasKey(attrs, FieldErrorHint) {
		attrs = append(attrs, String(FieldErrorHint, "check logs for details"))
	}
	logger.Error(msg, Args(attrs...)...)
}

func contextualize(ctx context.Context, attrs []Attr) []Attr {
	for _, field := range ContextFields(ctx) {
		if !hasKey(attrs, field.Key) {
			attrs = append(attrs, field)
		}
	}
	return attrs
}
