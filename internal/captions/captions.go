// Package captions groups word-level transcript timings into caption cues
// and renders them as SRT or brand-styled ASS subtitles. Grouping is
// deterministic: the same words and options always produce the same cues.
package captions

import (
	"fmt"

	"clipforge/internal/services"
	"clipforge/internal/timeline"
)

// Options mirror the caption settings from configuration.
type Options struct {
	MaxWordsPerCue    int
	MergeBelowSeconds float64
	MinCueSeconds     float64
	MaxCueSeconds     float64
}

// ValidateWords checks that the transcript is non-empty and that word
// timings never run backwards. Adjacent words may touch but must not
// overlap.
func ValidateWords(words []timeline.Word) error {
	if len(words) == 0 {
		return services.Wrap(services.ErrEmptyInput, "captions", "validate", "transcript has no words", nil)
	}
	for i := 1; i < len(words); i++ {
		if words[i].Start < words[i-1].End {
			return services.Wrap(services.ErrUnsortedInput, "captions", "validate",
				fmt.Sprintf("word %d %q starts at %.3f before word %d ends at %.3f",
					i, words[i].Text, words[i].Start, i-1, words[i-1].End), nil)
		}
	}
	return nil
}

// Build groups consecutive words into cues of up to maxWordsPerCue words.
// Each cue spans from its first word's start to its last word's end.
func Build(words []timeline.Word, maxWordsPerCue int) ([]timeline.Cue, error) {
	if maxWordsPerCue < 1 {
		return nil, services.Wrap(services.ErrValidation, "captions", "build",
			fmt.Sprintf("max words per cue %d must be at least 1", maxWordsPerCue), nil)
	}
	if err := ValidateWords(words); err != nil {
		return nil, err
	}
	return group(words, maxWordsPerCue, 0), nil
}

// Process runs the full caption pipeline: validate word timings, merge
// too-short words into their successors, group into cues, and stretch cues
// that would vanish before a viewer can read them.
func Process(words []timeline.Word, opts Options) ([]timeline.Cue, error) {
	if opts.MaxWordsPerCue < 1 {
		return nil, services.Wrap(services.ErrValidation, "captions", "process",
			fmt.Sprintf("max words per cue %d must be at least 1", opts.MaxWordsPerCue), nil)
	}
	if err := ValidateWords(words); err != nil {
		return nil, err
	}
	merged := MergeShortWords(words, opts.MergeBelowSeconds)
	cues := group(merged, opts.MaxWordsPerCue, opts.MaxCueSeconds)
	return extendShortCues(cues, opts.MinCueSeconds), nil
}

// MergeShortWords joins words shorter than the threshold with the following
// word so the highlight never flashes. A merged pair keeps the first word's
// start and the second word's end. Merging is a single pass and does not
// cascade.
func MergeShortWords(words []timeline.Word, threshold float64) []timeline.Word {
	if threshold <= 0 || len(words) < 2 {
		return append([]timeline.Word(nil), words...)
	}
	merged := make([]timeline.Word, 0, len(words))
	for i := 0; i < len(words); i++ {
		word := words[i]
		if word.Duration() < threshold && i+1 < len(words) {
			next := words[i+1]
			word = timeline.Word{
				Interval: timeline.Interval{Start: word.Start, End: next.End},
				Text:     word.Text + " " + next.Text,
			}
			i++
		}
		merged = append(merged, word)
	}
	return merged
}

// HighlightWindows splits a cue into one window per word. Window i opens at
// word i's start and closes when word i+1 starts; the last window closes at
// the cue's end. Together the windows tile the cue exactly.
func HighlightWindows(cue timeline.Cue) []timeline.HighlightWindow {
	if len(cue.Words) == 0 {
		return nil
	}
	windows := make([]timeline.HighlightWindow, len(cue.Words))
	for i, word := range cue.Words {
		start := word.Start
		if i == 0 {
			start = cue.Start
		}
		end := cue.End
		if i < len(cue.Words)-1 {
			end = cue.Words[i+1].Start
		}
		windows[i] = timeline.HighlightWindow{
			Interval:  timeline.Interval{Start: start, End: end},
			WordIndex: i,
		}
	}
	return windows
}

// group collects words into cues, starting a new cue once the current one
// holds maxWords words or once adding the next word would stretch it past
// maxSpan seconds. A maxSpan of zero disables the span limit.
func group(words []timeline.Word, maxWords int, maxSpan float64) []timeline.Cue {
	cues := make([]timeline.Cue, 0, (len(words)+maxWords-1)/maxWords)
	current := make([]timeline.Word, 0, maxWords)
	flush := func() {
		if len(current) == 0 {
			return
		}
		cues = append(cues, timeline.Cue{
			Interval: timeline.Interval{Start: current[0].Start, End: current[len(current)-1].End},
			Words:    append([]timeline.Word(nil), current...),
		})
		current = current[:0]
	}
	for _, word := range words {
		if len(current) > 0 {
			full := len(current) == maxWords
			overlong := maxSpan > 0 && word.End-current[0].Start > maxSpan
			if full || overlong {
				flush()
			}
		}
		current = append(current, word)
	}
	flush()
	return cues
}

// extendShortCues stretches cues below the minimum display time, never past
// the start of the following cue.
func extendShortCues(cues []timeline.Cue, minSeconds float64) []timeline.Cue {
	if minSeconds <= 0 {
		return cues
	}
	for i := range cues {
		if cues[i].Duration() >= minSeconds {
			continue
		}
		end := cues[i].Start + minSeconds
		if i+1 < len(cues) && end > cues[i+1].Start {
			end = cues[i+1].Start
		}
		if end > cues[i].End {
			cues[i].End = end
		}
	}
	return cues
}
