package main

import (
	"os"
	"strings"
	"testing"

	"clipforge/internal/logs"
)

func TestLogsCommandTailsFile(t *testing.T) {
	env := setupCLITestEnv(t)

	logPath := logs.Path(env.cfg)
	if err := os.MkdirAll(env.cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("mkdir log dir: %v", err)
	}
	writeFile(t, logPath, "first line\nsecond line\nthird line\n")

	out, _, err := runCLI(t, []string{"logs", "--lines", "2"}, env.configPath)
	if err != nil {
		t.Fatalf("logs failed: %v", err)
	}
	requireContains(t, out, "second line")
	requireContains(t, out, "third line")
	if strings.Contains(out, "first line") {
		t.Errorf("expected only the last two lines, got:\n%s", out)
	}
}

func TestLogsCommandBeforeFirstRun(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"logs"}, env.configPath)
	if err != nil {
		t.Fatalf("logs failed: %v", err)
	}
	requireContains(t, out, "No log entries available")
}
