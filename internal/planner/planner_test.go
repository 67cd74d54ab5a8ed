package planner_test

import (
	"errors"
	"math"
	"testing"

	"clipforge/internal/planner"
	"clipforge/internal/services"
	"clipforge/internal/timeline"
)

func request(start, end float64, query string, mode timeline.DisplayMode) timeline.BrollRequest {
	return timeline.BrollRequest{
		Interval:    timeline.Interval{Start: start, End: end},
		Query:       query,
		DisplayMode: mode,
	}
}

func TestPlanCoversTimelineWithAlternatingSegments(t *testing.T) {
	requests := []timeline.BrollRequest{
		request(3.0, 6.5, "city skyline", timeline.DisplayFullFrame),
		request(8.0, 11.0, "team collaboration", timeline.DisplayPictureInPicture),
	}

	segments, err := planner.Plan(15.0, requests)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	want := []struct {
		start, end float64
		kind       timeline.SegmentKind
		offset     float64
	}{
		{0.0, 3.0, timeline.SegmentAvatar, 0.0},
		{3.0, 6.5, timeline.SegmentCutaway, 0.0},
		{6.5, 8.0, timeline.SegmentAvatar, 6.5},
		{8.0, 11.0, timeline.SegmentCutaway, 0.0},
		{11.0, 15.0, timeline.SegmentAvatar, 11.0},
	}
	if len(segments) != len(want) {
		t.Fatalf("expected %d segments, got %d: %+v", len(want), len(segments), segments)
	}
	for i, w := range want {
		seg := segments[i]
		if seg.Start != w.start || seg.End != w.end {
			t.Errorf("segment %d interval = %s, want [%.3f, %.3f)", i, seg.Interval, w.start, w.end)
		}
		if seg.Kind != w.kind {
			t.Errorf("segment %d kind = %s, want %s", i, seg.Kind, w.kind)
		}
		if seg.SourceOffset != w.offset {
			t.Errorf("segment %d source offset = %.3f, want %.3f", i, seg.SourceOffset, w.offset)
		}
	}
	if segments[1].Query != "city skyline" || segments[1].DisplayMode != timeline.DisplayFullFrame {
		t.Errorf("first cutaway lost request metadata: %+v", segments[1])
	}
	if segments[3].DisplayMode != timeline.DisplayPictureInPicture {
		t.Errorf("second cutaway display mode = %s, want pip", segments[3].DisplayMode)
	}
}

func TestPlanWithoutRequestsReturnsSingleAvatarSegment(t *testing.T) {
	segments, err := planner.Plan(42.5, nil)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(segments) != 1 {
		t.Fatalf("expected one segment, got %d", len(segments))
	}
	seg := segments[0]
	if seg.Kind != timeline.SegmentAvatar || seg.Start != 0 || seg.End != 42.5 || seg.SourceOffset != 0 {
		t.Fatalf("unexpected segment %+v", seg)
	}
}

func TestPlanSkipsZeroDurationGaps(t *testing.T) {
	requests := []timeline.BrollRequest{
		request(0.0, 3.0, "sunrise", timeline.DisplayFullFrame),
		request(3.0, 5.0, "traffic", timeline.DisplayFullFrame),
	}

	segments, err := planner.Plan(5.0, requests)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("expected two segments with no gap fillers, got %d: %+v", len(segments), segments)
	}
	for i, seg := range segments {
		if seg.Kind != timeline.SegmentCutaway {
			t.Errorf("segment %d kind = %s, want cutaway", i, seg.Kind)
		}
	}
}

func TestPlanRejectsOverlappingRequests(t *testing.T) {
	cases := map[string][]timeline.BrollRequest{
		"partial overlap": {
			request(3.0, 6.5, "a", timeline.DisplayFullFrame),
			request(6.0, 9.0, "b", timeline.DisplayFullFrame),
		},
		"unsorted order": {
			request(8.0, 11.0, "a", timeline.DisplayFullFrame),
			request(3.0, 6.5, "b", timeline.DisplayFullFrame),
		},
		"nested": {
			request(2.0, 10.0, "a", timeline.DisplayFullFrame),
			request(4.0, 6.0, "b", timeline.DisplayFullFrame),
		},
	}
	for name, requests := range cases {
		if _, err := planner.Plan(15.0, requests); !errors.Is(err, services.ErrOverlap) {
			t.Errorf("%s: expected overlap error, got %v", name, err)
		}
	}
}

func TestPlanRejectsRequestsBeyondTimeline(t *testing.T) {
	tooLong := []timeline.BrollRequest{request(12.0, 16.0, "a", timeline.DisplayFullFrame)}
	if _, err := planner.Plan(15.0, tooLong); !errors.Is(err, services.ErrOutOfRange) {
		t.Errorf("expected out of range error for request past the end, got %v", err)
	}

	negative := []timeline.BrollRequest{{
		Interval: timeline.Interval{Start: -1.0, End: 2.0},
		Query:    "a",
	}}
	if _, err := planner.Plan(15.0, negative); !errors.Is(err, services.ErrOutOfRange) {
		t.Errorf("expected out of range error for negative start, got %v", err)
	}
}

func TestPlanRejectsNonPositiveTotalDuration(t *testing.T) {
	for _, total := range []float64{0, -3, math.NaN(), math.Inf(1)} {
		if _, err := planner.Plan(total, nil); !errors.Is(err, services.ErrOutOfRange) {
			t.Errorf("total %v: expected out of range error, got %v", total, err)
		}
	}
}

func TestPlanRejectsDegenerateRequest(t *testing.T) {
	degenerate := []timeline.BrollRequest{{
		Interval: timeline.Interval{Start: 4.0, End: 4.0},
		Query:    "a",
	}}
	if _, err := planner.Plan(15.0, degenerate); !errors.Is(err, services.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestPlanClampsOversizedFades(t *testing.T) {
	requests := []timeline.BrollRequest{{
		Interval:    timeline.Interval{Start: 2.0, End: 4.0},
		Query:       "waves",
		DisplayMode: timeline.DisplayFullFrame,
		FadeIn:      1.5,
		FadeOut:     1.2,
	}}

	segments, err := planner.Plan(10.0, requests)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	cutaway := segments[1]
	if cutaway.FadeIn != 1.0 || cutaway.FadeOut != 1.0 {
		t.Fatalf("fades = %.3f/%.3f, want both clamped to 1.000", cutaway.FadeIn, cutaway.FadeOut)
	}
}

func TestPlanSegmentsAreContiguous(t *testing.T) {
	requests := []timeline.BrollRequest{
		request(0.75, 2.25, "a", timeline.DisplayFullFrame),
		request(2.25, 4.0, "b", timeline.DisplayPictureInPicture),
		request(5.5, 6.0, "c", timeline.DisplayFullFrame),
	}
	const total = 9.25

	segments, err := planner.Plan(total, requests)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if segments[0].Start != 0 {
		t.Errorf("first segment starts at %.3f, want 0", segments[0].Start)
	}
	if last := segments[len(segments)-1]; last.End != total {
		t.Errorf("last segment ends at %.3f, want %.3f", last.End, total)
	}
	for i := 0; i < len(segments)-1; i++ {
		if segments[i].End != segments[i+1].Start {
			t.Errorf("gap between segment %d and %d: %.3f vs %.3f", i, i+1, segments[i].End, segments[i+1].Start)
		}
	}
	for i, seg := range segments {
		switch seg.Kind {
		case timeline.SegmentAvatar:
			if seg.SourceOffset != seg.Start {
				t.Errorf("avatar segment %d offset = %.3f, want %.3f", i, seg.SourceOffset, seg.Start)
			}
		case timeline.SegmentCutaway:
			if seg.SourceOffset != 0 {
				t.Errorf("cutaway segment %d offset = %.3f, want 0", i, seg.SourceOffset)
			}
		}
	}
}
