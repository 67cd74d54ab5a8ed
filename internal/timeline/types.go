// Package timeline defines the shared vocabulary of the composition engine:
// intervals, transcript words, caption cues, avatar/cutaway segments,
// transition operations, and the assembled per-job plan.
package timeline

import (
	"fmt"
	"strings"
)

// SegmentKind distinguishes base-track coverage from inserted cutaway footage.
type SegmentKind string

const (
	SegmentAvatar  SegmentKind = "avatar"
	SegmentCutaway SegmentKind = "cutaway"
)

// DisplayMode selects how a cutaway clip is framed over the avatar track.
type DisplayMode string

const (
	DisplayFullFrame        DisplayMode = "fullframe"
	DisplayPictureInPicture DisplayMode = "pip"
)

// ParseDisplayMode maps a plan-file spelling onto a DisplayMode.
func ParseDisplayMode(raw string) (DisplayMode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "fullframe", "full_frame", "full":
		return DisplayFullFrame, nil
	case "pip", "picture_in_picture":
		return DisplayPictureInPicture, nil
	default:
		return "", fmt.Errorf("unknown display mode %q", raw)
	}
}

// TransitionStyle names a boundary transition the render layer can execute.
// The set is closed: styles are validated when configuration loads, never at
// render time.
type TransitionStyle string

const (
	StyleFade        TransitionStyle = "fade"
	StyleDissolve    TransitionStyle = "dissolve"
	StyleSlideLeft   TransitionStyle = "slideleft"
	StyleSlideRight  TransitionStyle = "slideright"
	StyleSlideUp     TransitionStyle = "slideup"
	StyleSlideDown   TransitionStyle = "slidedown"
	StyleCircleOpen  TransitionStyle = "circleopen"
	StyleCircleClose TransitionStyle = "circleclose"
	StyleWipeLeft    TransitionStyle = "wipeleft"
	StyleWipeRight   TransitionStyle = "wiperight"
	StyleZoomIn      TransitionStyle = "zoomin"
)

var allTransitionStyles = []TransitionStyle{
	StyleFade,
	StyleDissolve,
	StyleSlideLeft,
	StyleSlideRight,
	StyleSlideUp,
	StyleSlideDown,
	StyleCircleOpen,
	StyleCircleClose,
	StyleWipeLeft,
	StyleWipeRight,
	StyleZoomIn,
}

var transitionStyleSet = func() map[TransitionStyle]struct{} {
	set := make(map[TransitionStyle]struct{}, len(allTransitionStyles))
	for _, style := range allTransitionStyles {
		set[style] = struct{}{}
	}
	return set
}()

// TransitionStyles returns the closed set of supported styles.
func TransitionStyles() []TransitionStyle {
	out := make([]TransitionStyle, len(allTransitionStyles))
	copy(out, allTransitionStyles)
	return out
}

// ParseTransitionStyle validates a configured style name.
func ParseTransitionStyle(raw string) (TransitionStyle, error) {
	style := TransitionStyle(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := transitionStyleSet[style]; !ok {
		return "", fmt.Errorf("unknown transition style %q", raw)
	}
	return style, nil
}

// Word is a single transcript token with the interval it is spoken over.
type Word struct {
	Interval
	Text string `json:"text"`
}

// Cue is one caption line: consecutive words displayed together. The
// highlight walks the words as a stepped sub-timeline; see HighlightWindow.
type Cue struct {
	Interval
	Words []Word `json:"words"`
}

// Text joins the cue's words for display.
func (c Cue) Text() string {
	parts := make([]string, len(c.Words))
	for i, w := range c.Words {
		parts[i] = w.Text
	}
	return strings.Join(parts, " ")
}

// HighlightWindow is the span during which one word of a cue carries the
// highlight. Windows step at each word start and tile the cue exactly.
type HighlightWindow struct {
	Interval
	WordIndex int `json:"word_index"`
}

// BrollRequest asks for cutaway coverage of an interval on the base timeline.
type BrollRequest struct {
	Interval
	Query       string      `json:"query"`
	DisplayMode DisplayMode `json:"display_mode"`
	FadeIn      float64     `json:"fade_in"`
	FadeOut     float64     `json:"fade_out"`
}

// ClampFades shrinks the fade pair when it cannot fit inside the request:
// once FadeIn+FadeOut reaches the interval duration, both become half of it.
func (r BrollRequest) ClampFades() BrollRequest {
	if d := r.Duration(); r.FadeIn+r.FadeOut >= d {
		r.FadeIn = d / 2
		r.FadeOut = d / 2
	}
	return r
}

// Segment is one contiguous span of the output timeline, backed either by the
// avatar track or by a fetched cutaway clip. A plan's segments are ordered,
// non-overlapping, and cover [0, TotalDuration) exactly.
type Segment struct {
	Interval
	Kind           SegmentKind `json:"kind"`
	SourcePath     string      `json:"source_path,omitempty"`
	SourceOffset   float64     `json:"source_offset"`
	SourceDuration float64     `json:"source_duration,omitempty"`
	DisplayMode    DisplayMode `json:"display_mode,omitempty"`
	Query          string      `json:"query,omitempty"`
	FadeIn         float64     `json:"fade_in,omitempty"`
	FadeOut        float64     `json:"fade_out,omitempty"`
}

// TransitionOp is a boundary transition between two adjacent segments.
// AtTime is the shared boundary on the output timeline, millisecond-rounded
// via RoundMS; Duration never exceeds half of either neighbour.
type TransitionOp struct {
	AtTime     float64         `json:"at_time"`
	Style      TransitionStyle `json:"style"`
	Duration   float64         `json:"duration"`
	LeftIndex  int             `json:"left_index"`
	RightIndex int             `json:"right_index"`
}

// AudioCrossfade mirrors the video transition at one boundary with an
// identical AtTime and Duration.
type AudioCrossfade struct {
	Boundary int     `json:"boundary"`
	AtTime   float64 `json:"at_time"`
	Duration float64 `json:"duration"`
}

// Plan is the fully assembled composition for one job. It is built once per
// job, never mutated afterwards, and may be serialized for inspection.
type Plan struct {
	TotalDuration float64          `json:"total_duration"`
	Segments      []Segment        `json:"segments"`
	Transitions   []TransitionOp   `json:"transitions"`
	AudioFades    []AudioCrossfade `json:"audio_fades,omitempty"`
	Cues          []Cue            `json:"cues,omitempty"`
}

// CutawayCount reports how many segments are cutaways.
func (p Plan) CutawayCount() int {
	n := 0
	for _, seg := range p.Segments {
		if seg.Kind == SegmentCutaway {
			n++
		}
	}
	return n
}
