package captions

import (
	"fmt"
	"io"
	"math"

	"clipforge/internal/timeline"
)

// WriteSRT renders cues as a SubRip subtitle stream: one numbered block per
// cue, blocks separated by a blank line.
func WriteSRT(w io.Writer, cues []timeline.Cue) error {
	for i, cue := range cues {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		block := fmt.Sprintf("%d\n%s --> %s\n%s\n",
			i+1, srtTimestamp(cue.Start), srtTimestamp(cue.End), cue.Text())
		if _, err := io.WriteString(w, block); err != nil {
			return err
		}
	}
	return nil
}

// srtTimestamp formats seconds as HH:MM:SS,mmm with millisecond rounding.
func srtTimestamp(seconds float64) string {
	ms := int64(math.Round(seconds * 1000))
	if ms < 0 {
		ms = 0
	}
	h := ms / 3600000
	m := ms % 3600000 / 60000
	s := ms % 60000 / 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms%1000)
}
