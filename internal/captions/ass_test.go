package captions_test

import (
	"strings"
	"testing"

	"clipforge/internal/brand"
	"clipforge/internal/captions"
	"clipforge/internal/timeline"
)

func twoWordCue() []timeline.Cue {
	return []timeline.Cue{{
		Interval: timeline.Interval{Start: 0.0, End: 1.0},
		Words: []timeline.Word{
			word(0.0, 0.5, "hello"),
			word(0.6, 1.0, "world"),
		},
	}}
}

func TestRenderASSWordHighlight(t *testing.T) {
	var out strings.Builder
	err := captions.RenderASS(&out, twoWordCue(), brand.Default(), captions.ASSOptions{Position: "bottom"})
	if err != nil {
		t.Fatalf("RenderASS: %v", err)
	}
	script := out.String()

	for _, fragment := range []string{
		"PlayResX: 1080",
		"PlayResY: 1920",
		"Style: Default,Montserrat,60,&H00FFFFFF,&H0001B8F7,",
		"Dialogue: 0,0:00:00.00,0:00:00.60,Default,,0,0,0,,{\\c&H0001B8F7&}hello{\\c&H00FFFFFF&} world",
		"Dialogue: 0,0:00:00.60,0:00:01.00,Default,,0,0,0,,hello {\\c&H0001B8F7&}world{\\c&H00FFFFFF&}",
	} {
		if !strings.Contains(script, fragment) {
			t.Errorf("script missing %q:\n%s", fragment, script)
		}
	}
}

func TestRenderASSPlainAnimation(t *testing.T) {
	kit := brand.Default()
	kit.Captions.Animation = brand.AnimationNone

	var out strings.Builder
	if err := captions.RenderASS(&out, twoWordCue(), kit, captions.ASSOptions{}); err != nil {
		t.Fatalf("RenderASS: %v", err)
	}
	script := out.String()

	if !strings.Contains(script, "Dialogue: 0,0:00:00.00,0:00:01.00,Default,,0,0,0,,hello world") {
		t.Errorf("expected a single plain dialogue event:\n%s", script)
	}
	if strings.Count(script, "Dialogue:") != 1 {
		t.Errorf("expected exactly one dialogue event, got %d", strings.Count(script, "Dialogue:"))
	}
}

func TestRenderASSTextTransform(t *testing.T) {
	kit := brand.Default()
	kit.Captions.Animation = brand.AnimationNone
	kit.Captions.TextTransform = brand.TransformUpper

	var out strings.Builder
	if err := captions.RenderASS(&out, twoWordCue(), kit, captions.ASSOptions{}); err != nil {
		t.Fatalf("RenderASS: %v", err)
	}
	if !strings.Contains(out.String(), ",,HELLO WORLD") {
		t.Errorf("upper transform missing:\n%s", out.String())
	}

	kit.Captions.TextTransform = brand.TransformTitle
	kit.Captions.Animation = brand.AnimationWordHighlight
	out.Reset()
	if err := captions.RenderASS(&out, twoWordCue(), kit, captions.ASSOptions{}); err != nil {
		t.Fatalf("RenderASS: %v", err)
	}
	if !strings.Contains(out.String(), "Hello") || !strings.Contains(out.String(), "World") {
		t.Errorf("title transform missing from highlight events:\n%s", out.String())
	}
}

func TestRenderASSEscapesOverrideBraces(t *testing.T) {
	kit := brand.Default()
	kit.Captions.Animation = brand.AnimationNone
	cues := []timeline.Cue{{
		Interval: timeline.Interval{Start: 0.0, End: 1.0},
		Words:    []timeline.Word{word(0.0, 1.0, "{cheer}")},
	}}

	var out strings.Builder
	if err := captions.RenderASS(&out, cues, kit, captions.ASSOptions{}); err != nil {
		t.Fatalf("RenderASS: %v", err)
	}
	if !strings.Contains(out.String(), ",,(cheer)") {
		t.Errorf("braces should be neutralised:\n%s", out.String())
	}
}

func TestRenderASSPositionAlignment(t *testing.T) {
	cases := map[string]string{
		"top":    ",8,40,40,150,1",
		"center": ",5,40,40,150,1",
		"bottom": ",2,40,40,150,1",
	}
	for position, fragment := range cases {
		var out strings.Builder
		err := captions.RenderASS(&out, twoWordCue(), brand.Default(), captions.ASSOptions{Position: position})
		if err != nil {
			t.Fatalf("RenderASS(%s): %v", position, err)
		}
		if !strings.Contains(out.String(), fragment) {
			t.Errorf("%s alignment fragment %q missing", position, fragment)
		}
	}
}

func TestRenderASSRejectsBadKitColour(t *testing.T) {
	kit := brand.Default()
	kit.Captions.HighlightColor = "sparkly"

	var out strings.Builder
	if err := captions.RenderASS(&out, twoWordCue(), kit, captions.ASSOptions{}); err == nil {
		t.Fatal("expected an error for a malformed colour")
	}
}
