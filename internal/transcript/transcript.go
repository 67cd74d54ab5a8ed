// Package transcript parses word-timing transcripts produced by forced
// alignment. Both supported shapes decode to the same document: a bare JSON
// array of words, or an object with a "words" array and optional metadata.
package transcript

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"clipforge/internal/services"
	"clipforge/internal/timeline"
)

// DefaultGapSeconds is the silence length below which CloseGaps stitches
// adjacent words together.
const DefaultGapSeconds = 0.05

// Document is a parsed transcript. Duration is the declared total when the
// source object carries one, otherwise the end of the last word.
type Document struct {
	Words    []timeline.Word
	Duration float64
}

type wireWord struct {
	Word  string  `json:"word"`
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type wireDocument struct {
	Words    []wireWord `json:"words"`
	Duration float64    `json:"duration"`
}

// Load reads and parses a transcript file. Words come back with
// sub-threshold gaps already closed so downstream timelines never see
// micro-pauses the aligner left between words.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, services.Wrap(services.ErrNotFound, "transcript", "load", path, err)
		}
		return nil, services.Wrap(services.ErrValidation, "transcript", "load", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}
	doc.Words = CloseGaps(doc.Words, DefaultGapSeconds)
	return doc, nil
}

// Parse decodes transcript JSON and validates each word's timing.
func Parse(data []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(data)
	var wire wireDocument
	if bytes.HasPrefix(trimmed, []byte("[")) {
		if err := json.Unmarshal(trimmed, &wire.Words); err != nil {
			return nil, services.Wrap(services.ErrValidation, "transcript", "parse", "invalid json", err)
		}
	} else {
		if err := json.Unmarshal(trimmed, &wire); err != nil {
			return nil, services.Wrap(services.ErrValidation, "transcript", "parse", "invalid json", err)
		}
	}
	if len(wire.Words) == 0 {
		return nil, services.Wrap(services.ErrEmptyInput, "transcript", "parse", "transcript has no words", nil)
	}

	words := make([]timeline.Word, 0, len(wire.Words))
	for i, ww := range wire.Words {
		text := strings.TrimSpace(ww.Text)
		if text == "" {
			text = strings.TrimSpace(ww.Word)
		}
		if text == "" {
			return nil, services.Wrap(services.ErrValidation, "transcript", "parse",
				fmt.Sprintf("word %d has no text", i), nil)
		}
		if ww.Start < 0 {
			return nil, services.Wrap(services.ErrValidation, "transcript", "parse",
				fmt.Sprintf("word %d %q starts at %.3f", i, text, ww.Start), nil)
		}
		if ww.End < ww.Start {
			return nil, services.Wrap(services.ErrValidation, "transcript", "parse",
				fmt.Sprintf("word %d %q ends at %.3f before it starts at %.3f", i, text, ww.End, ww.Start), nil)
		}
		words = append(words, timeline.Word{
			Interval: timeline.Interval{Start: ww.Start, End: ww.End},
			Text:     text,
		})
	}

	duration := wire.Duration
	if duration <= 0 {
		duration = words[len(words)-1].End
	}
	return &Document{Words: words, Duration: duration}, nil
}

// CloseGaps extends each word to touch its successor when the silence
// between them is shorter than threshold seconds; micro-pauses otherwise
// show up as flicker in the caption highlight. Overlaps smaller than a
// word are clipped back the same way.
func CloseGaps(words []timeline.Word, threshold float64) []timeline.Word {
	if len(words) == 0 {
		return nil
	}
	smoothed := append([]timeline.Word(nil), words...)
	for i := 1; i < len(smoothed); i++ {
		prev := &smoothed[i-1]
		curr := smoothed[i]
		if curr.Start <= prev.Start {
			continue
		}
		if gap := curr.Start - prev.End; gap < threshold {
			prev.End = curr.Start
		}
	}
	return smoothed
}
