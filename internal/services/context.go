package services

import "context"

type (
	jobIDKey     struct{}
	stageKey     struct{}
	workerKey    struct{}
	requestIDKey struct{}
)

// WithJobID annotates ctx with the queue job identifier.
func WithJobID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, jobIDKey{}, id)
}

// JobIDFromContext extracts the queue job identifier if present.
func JobIDFromContext(ctx context.Context) (int64, bool) {
	switch val := ctx.Value(jobIDKey{}).(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	}
	return 0, false
}

// WithStage annotates ctx with the workflow stage name. Blank names leave
// ctx untouched.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey{}, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	return nonEmptyString(ctx, stageKey{})
}

// WithWorker annotates ctx with the worker pool index. Negative indexes
// leave ctx untouched.
func WithWorker(ctx context.Context, worker int) context.Context {
	if worker < 0 {
		return ctx
	}
	return context.WithValue(ctx, workerKey{}, worker)
}

// WorkerFromContext returns the worker pool index if present.
func WorkerFromContext(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(workerKey{}).(int)
	return v, ok
}

// WithRequestID annotates ctx with the correlation identifier shared by all
// log lines of one pipeline pass.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	return nonEmptyString(ctx, requestIDKey{})
}

func nonEmptyString(ctx context.Context, key any) (string, bool) {
	s, ok := ctx.Value(key).(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}
