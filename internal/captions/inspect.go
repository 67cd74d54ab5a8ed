package captions

import (
	"fmt"

	"clipforge/internal/timeline"
)

// Inspect thresholds: cues under flickerSeconds are too brief to read, and
// silences over silenceGapSeconds usually mean transcript words went missing.
const (
	flickerSeconds    = 0.1
	silenceGapSeconds = 2.0
)

// Inspect reports human-readable timing problems in a cue list. Cue numbers
// in the findings are 1-based so they line up with SRT block numbering. An
// empty result means the timings look sound.
func Inspect(cues []timeline.Cue) []string {
	var findings []string
	for i, cue := range cues {
		d := cue.Duration()
		switch {
		case d <= 0:
			findings = append(findings, fmt.Sprintf("cue %d %s has non-positive duration", i+1, cue.Interval))
		case d < flickerSeconds:
			findings = append(findings, fmt.Sprintf("cue %d %s flashes for %.0fms", i+1, cue.Interval, d*1000))
		}
		if i+1 >= len(cues) {
			continue
		}
		next := cues[i+1]
		if cue.End > next.Start {
			findings = append(findings, fmt.Sprintf("cue %d overlaps cue %d by %.3fs", i+1, i+2, cue.End-next.Start))
		} else if gap := next.Start - cue.End; gap > silenceGapSeconds {
			findings = append(findings, fmt.Sprintf("gap of %.1fs between cue %d and cue %d", gap, i+1, i+2))
		}
	}
	return findings
}
