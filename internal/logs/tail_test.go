package logs_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/logs"
)

func TestTailLastLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, logs.FileName)
	if err := os.WriteFile(path, []byte("a\nb\nc\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	lines, err := logs.Tail(path, 2)
	if err != nil {
		t.Fatalf("tail returned error: %v", err)
	}
	if len(lines) != 2 || lines[0] != "b" || lines[1] != "c" {
		t.Fatalf("unexpected lines: %#v", lines)
	}
}

func TestTailLongLog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, logs.FileName)

	var b strings.Builder
	for i := 1; i <= 200; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	lines, err := logs.Tail(path, 5)
	if err != nil {
		t.Fatalf("tail returned error: %v", err)
	}
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d", len(lines))
	}
	for i, line := range lines {
		if want := fmt.Sprintf("line %d", 196+i); line != want {
			t.Fatalf("line %d = %q, want %q", i, line, want)
		}
	}
}

func TestTailShortFileReturnsEverything(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, logs.FileName)
	if err := os.WriteFile(path, []byte("only\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	lines, err := logs.Tail(path, 50)
	if err != nil {
		t.Fatalf("tail returned error: %v", err)
	}
	if len(lines) != 1 || lines[0] != "only" {
		t.Fatalf("unexpected lines: %#v", lines)
	}
}

func TestTailMissingFile(t *testing.T) {
	lines, err := logs.Tail(filepath.Join(t.TempDir(), logs.FileName), 10)
	if err != nil {
		t.Fatalf("expected missing file to be quiet, got %v", err)
	}
	if len(lines) != 0 {
		t.Fatalf("expected no lines, got %#v", lines)
	}
}

func TestPathUsesConfiguredLogDir(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = "/var/log/clipforge"
	if got := logs.Path(&cfg); got != "/var/log/clipforge/clipforge.log" {
		t.Fatalf("unexpected path %q", got)
	}
	cfg.Paths.LogDir = ""
	if got := logs.Path(&cfg); got != "" {
		t.Fatalf("expected empty path without a log dir, got %q", got)
	}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestFollowStreamsAppendedLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, logs.FileName)
	if err := os.WriteFile(path, []byte("start\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	out := &lockedBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, out, path, 10)
	}()

	deadline := time.After(10 * time.Second)
	for !strings.Contains(out.String(), "start") {
		select {
		case <-deadline:
			t.Fatal("follow never wrote the initial lines")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("later\n"); err != nil {
		t.Fatalf("append log: %v", err)
	}
	_ = f.Close()

	for !strings.Contains(out.String(), "later") {
		select {
		case <-deadline:
			t.Fatal("follow never saw the appended line")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("follow returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("follow did not stop after cancel")
	}
}
