package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"clipforge/internal/config"
)

const logFileName = "clipforge.log"

// Options describe how the pipeline logger writes.
type Options struct {
	// Level is debug, info, warn, or error. Unknown values fall back to info.
	Level string
	// Format is console or json.
	Format string
	// Path is the log file to append to. Empty logs to stdout.
	Path string
	// AddSource includes file:line on every record. Debug level implies it.
	AddSource bool
}

// New constructs a slog logger for the options.
func New(opts Options) (*slog.Logger, error) {
	level := parseLevel(opts.Level)
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)

	out, err := openOutput(opts.Path)
	if err != nil {
		return nil, err
	}

	addSource := opts.AddSource || level <= slog.LevelDebug

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	switch format {
	case "json":
		return slog.New(newJSONHandler(out, levelVar, addSource)), nil
	case "console", "":
		return slog.New(newConsoleHandler(out, levelVar, addSource)), nil
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}
}

// NewFromConfig builds the pipeline logger: level and format from the
// [logging] section, appending to clipforge.log under the configured log
// directory. The terminal is left to the command's own status output; use
// the logs command to follow the file.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	opts := Options{Level: "info", Format: "console"}
	if cfg != nil {
		opts.Level = cfg.Logging.Level
		opts.Format = cfg.Logging.Format
		if dir := strings.TrimSpace(cfg.Paths.LogDir); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("ensure log directory: %w", err)
			}
			opts.Path = filepath.Join(dir, logFileName)
		}
	}
	return New(opts)
}

// NewNop returns a logger that discards everything. Components accept it in
// tests and in code paths that have no logger to pass down.
func NewNop() *slog.Logger {
	return slog.New(noopHandler{})
}

// NewComponentLogger derives a logger carrying the component field, which
// the console handler folds into the message prefix.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openOutput(path string) (io.Writer, error) {
	path = strings.TrimSpace(path)
	switch path {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return file, nil
}

func newJSONHandler(w io.Writer, level *slog.LevelVar, addSource bool) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		AddSource:   addSource,
		ReplaceAttr: renameJSONAttr,
	})
}

// renameJSONAttr maps slog's default keys onto the ts/level/msg convention
// the log tooling expects, with RFC3339 UTC timestamps and short callers.
func renameJSONAttr(_ []string, attr slog.Attr) slog.Attr {
	switch attr.Key {
	case slog.TimeKey:
		attr.Key = "ts"
		if attr.Value.Kind() == slog.KindTime {
			attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339))
		}
	case slog.LevelKey:
		attr.Key = "level"
		attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
	case slog.MessageKey:
		attr.Key = "msg"
	case slog.SourceKey:
		if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
			attr.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
		}
	}
	return attr
}

type noopHandler struct{}

func (noopHandler) Enabled(context.Context, slog.Level) bool { return false }

func (noopHandler) Handle(context.Context, slog.Record) error { return nil }

func (noopHandler) WithAttrs([]slog.Attr) slog.Handler { return noopHandler{} }

func (noopHandler) WithGroup(string) slog.Handler { return noopHandler{} }
