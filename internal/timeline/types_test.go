package timeline

import "testing"

func TestParseTransitionStyle(t *testing.T) {
	for _, style := range TransitionStyles() {
		got, err := ParseTransitionStyle(string(style))
		if err != nil {
			t.Fatalf("ParseTransitionStyle(%q): %v", style, err)
		}
		if got != style {
			t.Fatalf("ParseTransitionStyle(%q) = %q", style, got)
		}
	}

	if got, err := ParseTransitionStyle("  Fade "); err != nil || got != StyleFade {
		t.Fatalf("expected case/space tolerant parse, got %q, %v", got, err)
	}

	if _, err := ParseTransitionStyle("sparkle"); err == nil {
		t.Fatal("expected error for unknown style")
	}
}

func TestParseDisplayMode(t *testing.T) {
	tests := []struct {
		in      string
		want    DisplayMode
		wantErr bool
	}{
		{in: "fullframe", want: DisplayFullFrame},
		{in: "FULL", want: DisplayFullFrame},
		{in: "pip", want: DisplayPictureInPicture},
		{in: " picture_in_picture ", want: DisplayPictureInPicture},
		{in: "sidebar", wantErr: true},
	}

	for _, tc := range tests {
		got, err := ParseDisplayMode(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseDisplayMode(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseDisplayMode(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseDisplayMode(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestClampFades(t *testing.T) {
	req := BrollRequest{Interval: Interval{Start: 3, End: 4}, FadeIn: 0.8, FadeOut: 0.5}
	clamped := req.ClampFades()
	if clamped.FadeIn != 0.5 || clamped.FadeOut != 0.5 {
		t.Fatalf("fades should clamp to half duration, got in=%v out=%v", clamped.FadeIn, clamped.FadeOut)
	}

	req = BrollRequest{Interval: Interval{Start: 0, End: 4}, FadeIn: 0.3, FadeOut: 0.3}
	clamped = req.ClampFades()
	if clamped.FadeIn != 0.3 || clamped.FadeOut != 0.3 {
		t.Fatalf("fitting fades should pass through, got in=%v out=%v", clamped.FadeIn, clamped.FadeOut)
	}
}

func TestCueText(t *testing.T) {
	cue := Cue{
		Interval: Interval{Start: 0, End: 1.2},
		Words: []Word{
			{Interval: Interval{Start: 0, End: 0.4}, Text: "hello"},
			{Interval: Interval{Start: 0.4, End: 1.2}, Text: "world"},
		},
	}
	if got := cue.Text(); got != "hello world" {
		t.Fatalf("Text() = %q", got)
	}
}

func TestPlanCutawayCount(t *testing.T) {
	plan := Plan{Segments: []Segment{
		{Kind: SegmentAvatar, Interval: Interval{Start: 0, End: 3}},
		{Kind: SegmentCutaway, Interval: Interval{Start: 3, End: 6}},
		{Kind: SegmentAvatar, Interval: Interval{Start: 6, End: 9}},
		{Kind: SegmentCutaway, Interval: Interval{Start: 9, End: 12}},
	}}
	if got := plan.CutawayCount(); got != 2 {
		t.Fatalf("CutawayCount() = %d, want 2", got)
	}
}
