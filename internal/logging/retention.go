package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SweepLogs removes .log files under dir whose modification time is older
// than retentionDays, skipping the file the logger is currently appending
// to. A retentionDays of 0 or less disables the sweep. Removal failures are
// logged and skipped so retention never blocks a run.
func SweepLogs(logger *slog.Logger, retentionDays int, dir, activePath string) {
	dir = strings.TrimSpace(dir)
	if retentionDays <= 0 || dir == "" {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	active := absOrSame(activePath)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".log" {
			continue
		}
		path := absOrSame(filepath.Join(dir, entry.Name()))
		if active != "" && path == active {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(nil, logger, "log retention remove failed; file remains",
				String("path", path),
				Error(err),
				String(FieldEventType, "log_retention_failed"),
				String(FieldErrorHint, "check file permissions and log_dir ownership"),
				String(FieldImpact, "old log file remains on disk"),
			)
			continue
		}
		if logger != nil {
			logger.Info("log pruned",
				String("path", path),
				String(FieldEventType, "log_pruned"),
			)
		}
	}
}

func absOrSame(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
