package captions_test

import (
	"strings"
	"testing"

	"clipforge/internal/captions"
	"clipforge/internal/timeline"
)

func TestWriteSRT(t *testing.T) {
	words := []timeline.Word{
		word(0.0, 0.48, "hello"),
		word(0.5, 1.02, "brave"),
		word(1.1, 1.5, "world"),
		word(2.25, 3.75, "again"),
	}
	cues, err := captions.Build(words, 3)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	var out strings.Builder
	if err := captions.WriteSRT(&out, cues); err != nil {
		t.Fatalf("WriteSRT: %v", err)
	}

	want := "1\n" +
		"00:00:00,000 --> 00:00:01,500\n" +
		"hello brave world\n" +
		"\n" +
		"2\n" +
		"00:00:02,250 --> 00:00:03,750\n" +
		"again\n"
	if out.String() != want {
		t.Fatalf("unexpected srt output:\n%q\nwant:\n%q", out.String(), want)
	}
}

func TestWriteSRTRollsOverHours(t *testing.T) {
	cues := []timeline.Cue{{
		Interval: timeline.Interval{Start: 3661.5, End: 3662.0},
		Words:    []timeline.Word{word(3661.5, 3662.0, "late")},
	}}

	var out strings.Builder
	if err := captions.WriteSRT(&out, cues); err != nil {
		t.Fatalf("WriteSRT: %v", err)
	}
	if !strings.Contains(out.String(), "01:01:01,500 --> 01:01:02,000") {
		t.Fatalf("expected hour rollover in timestamps, got:\n%s", out.String())
	}
}

func TestWriteSRTEmptyCueList(t *testing.T) {
	var out strings.Builder
	if err := captions.WriteSRT(&out, nil); err != nil {
		t.Fatalf("WriteSRT: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("expected empty output, got %q", out.String())
	}
}
