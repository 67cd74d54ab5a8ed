// Package planner turns a job's cutaway requests into the ordered segment
// list that covers the output timeline. Every gap between requests becomes an
// avatar segment sampling the base track at the same offset, so the segments
// always cover [0, totalDuration) exactly with no holes and no overlap.
package planner

import (
	"fmt"
	"math"

	"clipforge/internal/services"
	"clipforge/internal/timeline"
)

// Plan builds the segment list for one job. Requests must be sorted by start
// time and must not overlap; a request may touch its neighbour exactly, in
// which case no avatar segment is emitted between them. With no requests the
// whole timeline is a single avatar segment.
func Plan(totalDuration float64, requests []timeline.BrollRequest) ([]timeline.Segment, error) {
	if math.IsNaN(totalDuration) || math.IsInf(totalDuration, 0) || totalDuration <= 0 {
		return nil, services.Wrap(services.ErrOutOfRange, "plan", "segments",
			fmt.Sprintf("total duration %.3f must be positive", totalDuration), nil)
	}

	segments := make([]timeline.Segment, 0, 2*len(requests)+1)
	cursor := 0.0
	for i, req := range requests {
		if req.End <= req.Start {
			return nil, services.Wrap(services.ErrValidation, "plan", "segments",
				fmt.Sprintf("request %d %s has non-positive duration", i, req.Interval), nil)
		}
		if req.Start < 0 || req.End > totalDuration {
			return nil, services.Wrap(services.ErrOutOfRange, "plan", "segments",
				fmt.Sprintf("request %d %s exceeds timeline [0.000, %.3f)", i, req.Interval, totalDuration), nil)
		}
		if req.Start < cursor {
			return nil, services.Wrap(services.ErrOverlap, "plan", "segments",
				fmt.Sprintf("request %d %s overlaps coverage ending at %.3f", i, req.Interval, cursor), nil)
		}
		if req.Start > cursor {
			segments = append(segments, avatarSegment(cursor, req.Start))
		}
		segments = append(segments, cutawaySegment(req))
		cursor = req.End
	}
	if cursor < totalDuration {
		segments = append(segments, avatarSegment(cursor, totalDuration))
	}
	return segments, nil
}

// avatarSegment covers [start, end) with the base track. The source offset
// equals the segment start because the avatar recording and the output
// timeline share a clock.
func avatarSegment(start, end float64) timeline.Segment {
	return timeline.Segment{
		Interval:     timeline.Interval{Start: start, End: end},
		Kind:         timeline.SegmentAvatar,
		SourceOffset: start,
	}
}

// cutawaySegment covers the request's interval with fetched footage. Cutaway
// clips always play from their own beginning, so the source offset is zero.
func cutawaySegment(req timeline.BrollRequest) timeline.Segment {
	req = req.ClampFades()
	mode := req.DisplayMode
	if mode == "" {
		mode = timeline.DisplayFullFrame
	}
	return timeline.Segment{
		Interval:     req.Interval,
		Kind:         timeline.SegmentCutaway,
		SourceOffset: 0,
		DisplayMode:  mode,
		Query:        req.Query,
		FadeIn:       req.FadeIn,
		FadeOut:      req.FadeOut,
	}
}
