// Package transitions derives the boundary transition graph for a segment
// plan: exactly one operation per adjacent pair, cycling through the
// configured styles. Offsets are millisecond-rounded through the shared
// timeline rule so the render layer consumes the same values the plan stores.
package transitions

import (
	"fmt"

	"clipforge/internal/services"
	"clipforge/internal/timeline"
)

// Policy carries the configured transition behaviour for one job.
type Policy struct {
	Styles         []timeline.TransitionStyle
	Duration       float64
	AudioCrossfade bool
}

// Build emits one transition per segment boundary. AtTime is the cumulative
// sum of segment durations up to and including the left segment, and the
// transition duration is clamped so it never consumes more than half of
// either neighbour. When the policy enables audio crossfades, each video
// transition is paired with an audio fade carrying the identical AtTime and
// Duration.
func Build(segments []timeline.Segment, policy Policy) ([]timeline.TransitionOp, []timeline.AudioCrossfade, error) {
	if len(segments) < 2 {
		return nil, nil, nil
	}
	if len(policy.Styles) == 0 {
		return nil, nil, services.Wrap(services.ErrValidation, "plan", "transitions",
			"no transition styles configured", nil)
	}
	if policy.Duration <= 0 {
		return nil, nil, services.Wrap(services.ErrValidation, "plan", "transitions",
			fmt.Sprintf("transition duration %.3f must be positive", policy.Duration), nil)
	}

	ops := make([]timeline.TransitionOp, 0, len(segments)-1)
	var fades []timeline.AudioCrossfade
	if policy.AudioCrossfade {
		fades = make([]timeline.AudioCrossfade, 0, len(segments)-1)
	}
	elapsed := 0.0
	for i := 0; i < len(segments)-1; i++ {
		left, right := segments[i], segments[i+1]
		elapsed += left.Duration()

		duration := policy.Duration
		if half := left.Duration() / 2; half < duration {
			duration = half
		}
		if half := right.Duration() / 2; half < duration {
			duration = half
		}

		op := timeline.TransitionOp{
			AtTime:     timeline.RoundMS(elapsed),
			Style:      policy.Styles[i%len(policy.Styles)],
			Duration:   timeline.RoundMS(duration),
			LeftIndex:  i,
			RightIndex: i + 1,
		}
		ops = append(ops, op)
		if policy.AudioCrossfade {
			fades = append(fades, timeline.AudioCrossfade{
				Boundary: i,
				AtTime:   op.AtTime,
				Duration: op.Duration,
			})
		}
	}
	return ops, fades, nil
}
