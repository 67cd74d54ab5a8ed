package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"clipforge/internal/timeline"
)

func writePlanFixtures(t *testing.T) (video, transcriptPath, brollPath string) {
	t.Helper()
	dir := t.TempDir()
	video = filepath.Join(dir, "talk.mp4")
	transcriptPath = filepath.Join(dir, "talk.words.json")
	writeFile(t, transcriptPath, `{"words":[
		{"word":"welcome","start":0.0,"end":0.4},
		{"word":"back","start":0.45,"end":0.9},
		{"word":"everyone","start":0.95,"end":1.4}
	]}`)
	brollPath = filepath.Join(dir, "talk.broll.csv")
	writeFile(t, brollPath, "start_sec,end_sec,type,search_query,fade_in,fade_out\n5.0,8.0,fullframe,city skyline,0.5,0.5\n")
	return video, transcriptPath, brollPath
}

func TestPlanCommandPrintsTables(t *testing.T) {
	env := setupCLITestEnv(t)
	video, transcriptPath, brollPath := writePlanFixtures(t)

	out, _, err := runCLI(t, []string{
		"plan", video,
		"--duration", "30",
		"--transcript", transcriptPath,
		"--broll", brollPath,
	}, env.configPath)
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}

	requireContains(t, out, "Timeline: 30.000s across 3 segments (1 cutaways, 1 cues)")
	requireContains(t, out, "cutaway")
	requireContains(t, out, `query "city skyline"`)
	requireContains(t, out, "0-1")
	requireContains(t, out, "1-2")
}

func TestPlanCommandJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	video, transcriptPath, brollPath := writePlanFixtures(t)

	out, _, err := runCLI(t, []string{
		"plan", video,
		"--duration", "30",
		"--transcript", transcriptPath,
		"--broll", brollPath,
		"--json",
	}, env.configPath)
	if err != nil {
		t.Fatalf("plan --json failed: %v", err)
	}

	var plan timeline.Plan
	if err := json.Unmarshal([]byte(out), &plan); err != nil {
		t.Fatalf("decode plan JSON: %v\noutput:\n%s", err, out)
	}
	if plan.TotalDuration != 30 {
		t.Errorf("total duration = %v, want 30", plan.TotalDuration)
	}
	if len(plan.Segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(plan.Segments))
	}
	if plan.CutawayCount() != 1 {
		t.Errorf("cutaway count = %d, want 1", plan.CutawayCount())
	}
	if len(plan.Transitions) != 2 {
		t.Errorf("expected 2 transitions, got %d", len(plan.Transitions))
	}
	if len(plan.Cues) == 0 {
		t.Error("expected caption cues in plan")
	}
}

func TestPlanCommandWritesPlanFile(t *testing.T) {
	env := setupCLITestEnv(t)
	video, transcriptPath, brollPath := writePlanFixtures(t)
	planPath := filepath.Join(t.TempDir(), "plan.json")

	out, _, err := runCLI(t, []string{
		"plan", video,
		"--duration", "30",
		"--transcript", transcriptPath,
		"--broll", brollPath,
		"--output", planPath,
	}, env.configPath)
	if err != nil {
		t.Fatalf("plan --output failed: %v", err)
	}
	requireContains(t, out, "Wrote plan to "+planPath)

	data, err := os.ReadFile(planPath)
	if err != nil {
		t.Fatalf("read plan file: %v", err)
	}
	var plan timeline.Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		t.Fatalf("decode written plan: %v", err)
	}
	if len(plan.Segments) != 3 {
		t.Errorf("written plan has %d segments, want 3", len(plan.Segments))
	}
}

func TestPlanCommandRequiresExistingVideoWithoutDuration(t *testing.T) {
	env := setupCLITestEnv(t)
	missing := filepath.Join(t.TempDir(), "missing.mp4")

	_, _, err := runCLI(t, []string{"plan", missing}, env.configPath)
	if err == nil {
		t.Fatal("expected an error for a missing video without --duration")
	}
}
