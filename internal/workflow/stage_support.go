package workflow

import (
	"strings"

	"clipforge/internal/brand"
	"clipforge/internal/captions"
	"clipforge/internal/config"
	"clipforge/internal/queue"
	"clipforge/internal/timeline"
	"clipforge/internal/transitions"
)

func transitionPolicy(cfg *config.Config) transitions.Policy {
	return transitions.Policy{
		Styles:         cfg.TransitionStyles(),
		Duration:       cfg.Transitions.DurationSeconds,
		AudioCrossfade: cfg.Transitions.AudioCrossfade,
	}
}

func captionOptions(cfg *config.Config) captions.Options {
	return captions.Options{
		MaxWordsPerCue:    cfg.Captions.MaxWordsPerCue,
		MergeBelowSeconds: cfg.Captions.MergeBelowSeconds,
		MinCueSeconds:     cfg.Captions.MinCueSeconds,
		MaxCueSeconds:     cfg.Captions.MaxCueSeconds,
	}
}

// cutawayRequests recovers the cutaway requests a plan was built from.
// Segments carry the query, display mode, and fades verbatim, so replanning
// the recovered requests against the same duration reproduces the segment
// list exactly.
func cutawayRequests(plan timeline.Plan) []timeline.BrollRequest {
	requests := make([]timeline.BrollRequest, 0, plan.CutawayCount())
	for _, seg := range plan.Segments {
		if seg.Kind != timeline.SegmentCutaway {
			continue
		}
		requests = append(requests, timeline.BrollRequest{
			Interval:    seg.Interval,
			Query:       seg.Query,
			DisplayMode: seg.DisplayMode,
			FadeIn:      seg.FadeIn,
			FadeOut:     seg.FadeOut,
		})
	}
	return requests
}

// loadKit resolves the brand kit for a job: the job's own kit when attached,
// otherwise the configured default, otherwise the built-in kit.
func loadKit(cfg *config.Config, job *queue.Job) (brand.Kit, error) {
	path := strings.TrimSpace(job.BrandPath)
	if path == "" {
		path = strings.TrimSpace(cfg.Brand.DefaultKit)
	}
	return brand.Load(path)
}
