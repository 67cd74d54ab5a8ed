package main

import (
	"os"
	"strings"
	"testing"

	"clipforge/internal/testsupport"
)

func TestDoctorHealthyEnvironment(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithStubbedBinaries())

	out, _, err := runCLI(t, []string{"doctor"}, env.configPath)
	if err != nil {
		t.Fatalf("doctor reported problems: %v\noutput:\n%s", err, out)
	}

	requireContains(t, out, "== Configuration ==")
	requireContains(t, out, "== Preflight ==")
	requireContains(t, out, "== System dependencies ==")
	requireContains(t, out, "== Job database ==")
	requireContains(t, out, "== Stages ==")
	requireContains(t, out, "FFmpeg:")
	requireContains(t, out, "Render stage:")
	requireContains(t, out, "No problems found")

	// No API key is configured, so the fetch stage degrades to a warning
	// instead of failing the whole check.
	fetchLine := ""
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "Fetch stage:") {
			fetchLine = line
			break
		}
	}
	if fetchLine == "" {
		t.Fatalf("fetch stage line missing from output:\n%s", out)
	}
	if !strings.Contains(fetchLine, "[WARN]") {
		t.Errorf("fetch stage should warn without an api key, got: %s", fetchLine)
	}
}

func TestDoctorCountsProblems(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithStubbedBinaries())

	data, err := os.ReadFile(env.configPath)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	appended := string(data) + "\n[broll]\nfallback = \"default\"\ndefault_clip = \"/nonexistent/fallback.mp4\"\n"
	if err := os.WriteFile(env.configPath, []byte(appended), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	out, _, err := runCLI(t, []string{"doctor"}, env.configPath)
	if err == nil {
		t.Fatalf("expected doctor to fail, output:\n%s", out)
	}
	if !strings.Contains(err.Error(), "problems found") {
		t.Errorf("error = %v, want a problem count", err)
	}
	requireContains(t, out, "Fallback clip:")
	requireContains(t, out, "[ERROR]")
}
