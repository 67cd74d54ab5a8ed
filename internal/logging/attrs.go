package logging

import (
	"log/slog"
	"time"
)

// Attr aliases slog.Attr so call sites can build structured fields without
// importing slog alongside this package.
type Attr = slog.Attr

func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

func Float64(key string, value float64) Attr { return slog.Float64(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func Int64(key string, value int64) Attr { return slog.Int64(key, value) }

func String(key, value string) Attr { return slog.String(key, value) }

// Error renders err under the "error" key. A nil error logs as "<nil>"
// rather than panicking in slog.Any.
func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

// Alert tags a line that monitoring should surface regardless of level.
func Alert(value string) Attr { return String(FieldAlert, value) }

// DecisionAttrs records a policy decision in one consistent shape so
// fallback and retry choices can be grepped out of the logs.
func DecisionAttrs(decisionType, result, reason string) []Attr {
	return []Attr{
		String(FieldDecisionType, decisionType),
		String("decision_result", result),
		String("decision_reason", reason),
	}
}

// Args converts attrs into the variadic form slog's logging methods accept.
func Args(attrs ...Attr) []any {
	args := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	return args
}

func hasKey(attrs []Attr, key string) bool {
	for _, attr := range attrs {
		if attr.Key == key {
			return true
		}
	}
	return false
}
