package composition_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"clipforge/internal/captions"
	"clipforge/internal/composition"
	"clipforge/internal/services"
	"clipforge/internal/timeline"
	"clipforge/internal/transitions"
)

type fakeProbe struct {
	calls     []string
	durations map[string]float64
	err       error
}

func (f *fakeProbe) probe(_ context.Context, path string) (composition.MediaInfo, error) {
	f.calls = append(f.calls, path)
	if f.err != nil {
		return composition.MediaInfo{}, f.err
	}
	return composition.MediaInfo{
		Duration: f.durations[path],
		Width:    1920,
		Height:   1080,
		HasAudio: true,
	}, nil
}

func testWords() []timeline.Word {
	return []timeline.Word{
		{Interval: timeline.Interval{Start: 0.0, End: 0.4}, Text: "Welcome"},
		{Interval: timeline.Interval{Start: 0.4, End: 0.8}, Text: "to"},
		{Interval: timeline.Interval{Start: 0.8, End: 1.2}, Text: "BrainBinge"},
	}
}

func testInputs() composition.Inputs {
	return composition.Inputs{
		AvatarPath:     "/work/avatar.mp4",
		AvatarDuration: 15.0,
		Words:          testWords(),
		Requests: []timeline.BrollRequest{
			{Interval: timeline.Interval{Start: 3.0, End: 6.5}, Query: "city skyline", DisplayMode: timeline.DisplayFullFrame},
			{Interval: timeline.Interval{Start: 8.0, End: 11.0}, Query: "team collaboration", DisplayMode: timeline.DisplayPictureInPicture},
		},
		Clips: []composition.Clip{
			{Path: "/cache/clips/city.mp4", Duration: 10.0},
			{Path: "/cache/clips/team.mp4", Duration: 12.5},
		},
		Transitions: transitions.Policy{
			Styles:         []timeline.TransitionStyle{timeline.StyleFade},
			Duration:       0.5,
			AudioCrossfade: true,
		},
		Captions: captions.Options{
			MaxWordsPerCue:    3,
			MergeBelowSeconds: 0.15,
			MinCueSeconds:     0.2,
			MaxCueSeconds:     3.0,
		},
	}
}

func TestAssembleMergesProducers(t *testing.T) {
	probe := &fakeProbe{}
	assembler := composition.NewAssembler(probe.probe, nil)

	plan, err := assembler.Assemble(context.Background(), testInputs())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if plan.TotalDuration != 15.0 {
		t.Errorf("total duration = %.3f, want 15.0", plan.TotalDuration)
	}
	if len(plan.Segments) != 5 {
		t.Fatalf("expected 5 segments, got %d", len(plan.Segments))
	}
	if len(plan.Transitions) != 4 || len(plan.AudioFades) != 4 {
		t.Fatalf("expected 4 transitions and fades, got %d/%d", len(plan.Transitions), len(plan.AudioFades))
	}
	wantAt := []float64{3.0, 6.5, 8.0, 11.0}
	for i, op := range plan.Transitions {
		if op.AtTime != wantAt[i] {
			t.Errorf("transition %d at %.3f, want %.3f", i, op.AtTime, wantAt[i])
		}
	}

	city := plan.Segments[1]
	if city.SourcePath != "/cache/clips/city.mp4" || city.SourceDuration != 10.0 {
		t.Errorf("city segment source = %s/%.1f", city.SourcePath, city.SourceDuration)
	}
	team := plan.Segments[3]
	if team.SourcePath != "/cache/clips/team.mp4" || team.SourceDuration != 12.5 {
		t.Errorf("team segment source = %s/%.1f", team.SourcePath, team.SourceDuration)
	}
	for _, i := range []int{0, 2, 4} {
		if got := plan.Segments[i].SourcePath; got != "/work/avatar.mp4" {
			t.Errorf("avatar segment %d source = %s", i, got)
		}
	}

	if len(plan.Cues) != 1 || plan.Cues[0].Text() != "Welcome to BrainBinge" {
		t.Errorf("cues = %+v", plan.Cues)
	}
	if len(probe.calls) != 0 {
		t.Errorf("probe ran for fully resolved inputs: %v", probe.calls)
	}
}

func TestAssembleProbesAvatarWhenDurationUnknown(t *testing.T) {
	probe := &fakeProbe{durations: map[string]float64{"/work/avatar.mp4": 15.0}}
	in := testInputs()
	in.AvatarDuration = 0

	plan, err := composition.NewAssembler(probe.probe, nil).Assemble(context.Background(), in)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if plan.TotalDuration != 15.0 {
		t.Errorf("total duration = %.3f, want probed 15.0", plan.TotalDuration)
	}
	if len(probe.calls) != 1 || probe.calls[0] != "/work/avatar.mp4" {
		t.Errorf("probe calls = %v", probe.calls)
	}
}

func TestAssembleProbesClipsWithoutDuration(t *testing.T) {
	probe := &fakeProbe{durations: map[string]float64{"/cache/clips/team.mp4": 7.25}}
	in := testInputs()
	in.Clips[1].Duration = 0

	plan, err := composition.NewAssembler(probe.probe, nil).Assemble(context.Background(), in)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if got := plan.Segments[3].SourceDuration; got != 7.25 {
		t.Errorf("team segment duration = %.2f, want probed 7.25", got)
	}
	if len(probe.calls) != 1 || probe.calls[0] != "/cache/clips/team.mp4" {
		t.Errorf("probe calls = %v", probe.calls)
	}
}

func TestAssemblePropagatesProbeFailure(t *testing.T) {
	probe := &fakeProbe{err: services.Wrap(services.ErrExternalTool, "compose", "probe", "boom", nil)}
	in := testInputs()
	in.AvatarDuration = 0

	_, err := composition.NewAssembler(probe.probe, nil).Assemble(context.Background(), in)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestAssembleRejectsMismatchedClips(t *testing.T) {
	in := testInputs()
	in.Clips = in.Clips[:1]

	_, err := composition.NewAssembler(nil, nil).Assemble(context.Background(), in)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAssembleRejectsEmptyClipPath(t *testing.T) {
	in := testInputs()
	in.Clips[0].Path = "  "

	_, err := composition.NewAssembler(nil, nil).Assemble(context.Background(), in)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAssemblePreviewWithoutClips(t *testing.T) {
	in := testInputs()
	in.Clips = nil

	plan, err := composition.NewAssembler(nil, nil).Assemble(context.Background(), in)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	city := plan.Segments[1]
	if city.SourcePath != "" || city.Query != "city skyline" {
		t.Errorf("preview cutaway = %+v", city)
	}
	if len(plan.Transitions) != 4 {
		t.Errorf("preview transitions = %d, want 4", len(plan.Transitions))
	}
}

func TestAssembleSurfacesPlannerErrors(t *testing.T) {
	in := testInputs()
	in.Requests[1].Interval = timeline.Interval{Start: 5.0, End: 9.0}

	_, err := composition.NewAssembler(nil, nil).Assemble(context.Background(), in)
	if !errors.Is(err, services.ErrOverlap) {
		t.Fatalf("expected overlap error, got %v", err)
	}
}

func TestAssembleSkipsCaptionsWithoutWords(t *testing.T) {
	in := testInputs()
	in.Words = nil

	plan, err := composition.NewAssembler(nil, nil).Assemble(context.Background(), in)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if plan.Cues != nil {
		t.Errorf("expected no cues, got %+v", plan.Cues)
	}
}

func TestWritePlanRoundTrips(t *testing.T) {
	plan, err := composition.NewAssembler(nil, nil).Assemble(context.Background(), testInputs())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	path := filepath.Join(t.TempDir(), "artifacts", "plan.json")
	if err := composition.WritePlan(path, plan); err != nil {
		t.Fatalf("WritePlan: %v", err)
	}
	loaded, err := composition.ReadPlan(path)
	if err != nil {
		t.Fatalf("ReadPlan: %v", err)
	}
	if !reflect.DeepEqual(plan, loaded) {
		t.Errorf("round trip mismatch\nwrote %+v\nread  %+v", plan, loaded)
	}
}

func TestReadPlanErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := composition.ReadPlan(filepath.Join(dir, "missing.json")); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("missing file: expected not found, got %v", err)
	}

	corrupt := filepath.Join(dir, "corrupt.json")
	if err := os.WriteFile(corrupt, []byte("{broken"), 0o644); err != nil {
		t.Fatalf("write corrupt plan: %v", err)
	}
	if _, err := composition.ReadPlan(corrupt); !errors.Is(err, services.ErrValidation) {
		t.Errorf("corrupt file: expected validation error, got %v", err)
	}
}
