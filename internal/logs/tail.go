package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"clipforge/internal/config"
)

// FileName is the log file the application writes under the configured log
// directory.
const FileName = "clipforge.log"

const (
	pollInterval = 250 * time.Millisecond
	maxLineBytes = 1024 * 1024
)

// Path returns the main log file location for cfg, or "" when no log
// directory is configured.
func Path(cfg *config.Config) string {
	if cfg == nil || strings.TrimSpace(cfg.Paths.LogDir) == "" {
		return ""
	}
	return filepath.Join(cfg.Paths.LogDir, FileName)
}

// Tail returns up to limit trailing lines from the log at path. A missing
// file yields no lines and no error, so the command works before the first
// run has logged anything.
func Tail(path string, limit int) ([]string, error) {
	lines, _, err := tailWithOffset(path, limit)
	return lines, err
}

// Follow writes the last limit lines of the log to w, then streams appended
// lines until ctx is cancelled.
func Follow(ctx context.Context, w io.Writer, path string, limit int) error {
	lines, offset, err := tailWithOffset(path, limit)
	if err != nil {
		return err
	}
	writeLines(w, lines)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		// A shrunken file means rotation or truncation; start over.
		if info, err := os.Stat(path); err == nil && info.Size() < offset {
			offset = 0
		}
		lines, next, err := readFrom(path, offset)
		if err != nil {
			return err
		}
		offset = next
		writeLines(w, lines)
	}
}

func writeLines(w io.Writer, lines []string) {
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}

func newLogScanner(file *os.File) *bufio.Scanner {
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return scanner
}

// tailWithOffset collects the trailing limit lines and reports the
// end-of-file offset follow loops resume from. Memory stays proportional
// to limit however large the log has grown.
func tailWithOffset(path string, limit int) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	var lines []string
	if limit > 0 {
		scanner := newLogScanner(file)
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
			if len(lines) >= 2*limit {
				copy(lines, lines[len(lines)-limit:])
				lines = lines[:limit]
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, 0, fmt.Errorf("read log file: %w", err)
		}
		if len(lines) > limit {
			lines = lines[len(lines)-limit:]
		}
	}

	offset, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}
	return lines, offset, nil
}

// readFrom returns the lines appended after offset and the new end offset.
func readFrom(path string, offset int64) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, offset, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}

	var lines []string
	scanner := newLogScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}

	next, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, 0, fmt.Errorf("determine log offset: %w", err)
	}
	return lines, next, nil
}
