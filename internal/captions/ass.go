package captions

import (
	"fmt"
	"io"
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"clipforge/internal/brand"
	"clipforge/internal/timeline"
)

// ASSOptions positions rendered subtitles on the output canvas. Zero values
// fall back to the vertical 1080x1920 canvas with bottom placement.
type ASSOptions struct {
	PlayResX int
	PlayResY int
	Position string
}

// Vertical distance in script pixels between the subtitle block and the
// canvas edge it is anchored to.
const assMarginV = 150

var assTextReplacer = strings.NewReplacer("{", "(", "}", ")", "\n", " ", "\r", " ")

// RenderASS writes styled subtitles using the brand kit's caption font and
// colours. With word highlight animation each cue becomes one dialogue event
// per highlight window, recolouring the active word; otherwise each cue is a
// single event.
func RenderASS(w io.Writer, cues []timeline.Cue, kit brand.Kit, opts ASSOptions) error {
	if opts.PlayResX <= 0 {
		opts.PlayResX = 1080
	}
	if opts.PlayResY <= 0 {
		opts.PlayResY = 1920
	}
	primary, err := brand.ASSColor(kit.Captions.Color)
	if err != nil {
		return err
	}
	highlight, err := brand.ASSColor(kit.Captions.HighlightColor)
	if err != nil {
		return err
	}
	shadow, err := brand.ASSColor(kit.Captions.ShadowColor)
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[Script Info]\nTitle: %s captions\nScriptType: v4.00+\nPlayResX: %d\nPlayResY: %d\nWrapStyle: 0\nScaledBorderAndShadow: yes\n\n",
		kit.Name, opts.PlayResX, opts.PlayResY)

	b.WriteString("[V4+ Styles]\n")
	b.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	bold := 0
	if strings.EqualFold(kit.Captions.Font.Weight, "bold") {
		bold = -1
	}
	fmt.Fprintf(&b, "Style: Default,%s,%d,%s,%s,%s,%s,%d,0,0,0,100,100,0,0,1,3,1,%d,40,40,%d,1\n\n",
		kit.Captions.Font.Family, kit.Captions.Font.Size,
		primary, highlight, shadow, shadow, bold, alignment(opts.Position), assMarginV)

	transform := textTransform(kit.Captions.TextTransform)

	b.WriteString("[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, cue := range cues {
		if kit.Captions.Animation == brand.AnimationWordHighlight && len(cue.Words) > 0 {
			for _, win := range HighlightWindows(cue) {
				fmt.Fprintf(&b, "Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n",
					assTimestamp(win.Start), assTimestamp(win.End),
					highlightText(cue, win.WordIndex, primary, highlight, transform))
			}
			continue
		}
		fmt.Fprintf(&b, "Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n",
			assTimestamp(cue.Start), assTimestamp(cue.End), assTextReplacer.Replace(transform(cue.Text())))
	}

	_, err = io.WriteString(w, b.String())
	return err
}

// highlightText renders a cue's words with the word at index wrapped in the
// highlight colour and everything after it reset to the primary colour.
func highlightText(cue timeline.Cue, index int, primary, highlight string, transform func(string) string) string {
	parts := make([]string, len(cue.Words))
	for i, word := range cue.Words {
		text := assTextReplacer.Replace(transform(word.Text))
		if i == index {
			parts[i] = fmt.Sprintf("{\\c%s&}%s{\\c%s&}", highlight, text, primary)
		} else {
			parts[i] = text
		}
	}
	return strings.Join(parts, " ")
}

// textTransform returns the display-case function for the kit's
// text_transform setting. The subtitle file carries the transformed text;
// SRT output keeps the transcript's original casing.
func textTransform(name string) func(string) string {
	switch name {
	case brand.TransformUpper:
		caser := cases.Upper(language.Und)
		return caser.String
	case brand.TransformTitle:
		caser := cases.Title(language.Und)
		return caser.String
	default:
		return func(s string) string { return s }
	}
}

// alignment maps the configured caption position onto ASS numpad alignment.
func alignment(position string) int {
	switch strings.ToLower(strings.TrimSpace(position)) {
	case "top":
		return 8
	case "center":
		return 5
	default:
		return 2
	}
}

// assTimestamp formats seconds as H:MM:SS.cc, the centisecond resolution the
// subtitle format supports.
func assTimestamp(seconds float64) string {
	cs := int64(math.Round(seconds * 100))
	if cs < 0 {
		cs = 0
	}
	h := cs / 360000
	m := cs % 360000 / 6000
	s := cs % 6000 / 100
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs%100)
}
