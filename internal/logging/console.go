package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

// consoleHandler renders one line per record:
//
//	<ts> <LEVEL> <component>: <msg> [<file>:<line>] key=value ...
//
// The component field is folded into the message prefix instead of being
// printed as an attribute.
type consoleHandler struct {
	mu     *sync.Mutex
	out    io.Writer
	min    *slog.LevelVar
	source bool
	prefix string
	fields []slog.Attr
}

func newConsoleHandler(w io.Writer, min *slog.LevelVar, addSource bool) *consoleHandler {
	return &consoleHandler{mu: &sync.Mutex{}, out: w, min: min, source: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.min.Level()
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.fields = append(h.fields[:len(h.fields):len(h.fields)], flattenAttrs(h.prefix, attrs)...)
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.prefix = joinKey(h.prefix, name)
	return &clone
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	fields := h.fields
	if record.NumAttrs() > 0 {
		inline := make([]slog.Attr, 0, record.NumAttrs())
		record.Attrs(func(attr slog.Attr) bool {
			inline = append(inline, attr)
			return true
		})
		fields = append(fields[:len(fields):len(fields)], flattenAttrs(h.prefix, inline)...)
	}

	component := ""
	for _, field := range fields {
		if field.Key == FieldComponent {
			component = field.Value.String()
			break
		}
	}

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var line strings.Builder
	line.Grow(96 + len(fields)*24)
	line.WriteString(ts.UTC().Format(time.RFC3339))
	line.WriteByte(' ')
	line.WriteString(levelLabel(record.Level))
	line.WriteByte(' ')
	if component != "" {
		line.WriteString(component)
		line.WriteString(": ")
	}
	if msg := strings.TrimSpace(record.Message); msg != "" {
		line.WriteString(msg)
	} else {
		line.WriteString("(no message)")
	}
	if h.source {
		if record.PC != 0 {
			frames := runtime.CallersFrames([]uintptr{record.PC})
			frame, _ := frames.Next()
			fmt.Fprintf(&line, " [%s:%d]", filepath.Base(frame.File), frame.Line)
		}
	}
	for _, field := range fields {
		if field.Key == "" || field.Key == FieldComponent {
			continue
		}
		line.WriteByte(' ')
		line.WriteString(field.Key)
		line.WriteByte('=')
		line.WriteString(renderValue(field.Value))
	}
	line.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, line.String())
	return err
}

// flattenAttrs resolves groups into dotted keys so the line format stays flat.
func flattenAttrs(prefix string, attrs []slog.Attr) []slog.Attr {
	var out []slog.Attr
	for _, attr := range attrs {
		attr.Value = attr.Value.Resolve()
		if attr.Value.Kind() == slog.KindGroup {
			out = append(out, flattenAttrs(joinKey(prefix, attr.Key), attr.Value.Group())...)
			continue
		}
		if attr.Key == "" {
			continue
		}
		out = append(out, slog.Attr{Key: joinKey(prefix, attr.Key), Value: attr.Value})
	}
	return out
}

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	default:
		return prefix + "." + key
	}
}

func renderValue(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return quoteIfNeeded(v.String())
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return quoteIfNeeded(err.Error())
		}
		return quoteIfNeeded(fmt.Sprint(v.Any()))
	default:
		return v.String()
	}
}

func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	for _, r := range s {
		if r <= ' ' || r == '=' || r == '"' {
			return strconv.Quote(s)
		}
	}
	return s
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
