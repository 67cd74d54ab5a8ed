// Package composition merges the three plan producers into one composition
// plan: segment coverage from the planner, the boundary transition graph,
// and the caption timeline. It also binds cutaway segments to their fetched
// clips, probing durations the fetch layer could not report, and serializes
// plans as JSON artifacts for inspection.
package composition

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"clipforge/internal/captions"
	"clipforge/internal/fileutil"
	"clipforge/internal/logging"
	"clipforge/internal/media/ffprobe"
	"clipforge/internal/planner"
	"clipforge/internal/services"
	"clipforge/internal/timeline"
	"clipforge/internal/transitions"
)

// MediaInfo is the probe summary the assembler reads from a media file.
type MediaInfo struct {
	Duration float64
	Width    int
	Height   int
	HasAudio bool
}

// ProbeFunc inspects a media file on disk.
type ProbeFunc func(ctx context.Context, path string) (MediaInfo, error)

// FFprobeMedia returns a ProbeFunc backed by the system ffprobe binary.
// Files without a video stream or a usable duration are rejected.
func FFprobeMedia(binary string) ProbeFunc {
	return func(ctx context.Context, path string) (MediaInfo, error) {
		result, err := ffprobe.Inspect(ctx, binary, path)
		if err != nil {
			return MediaInfo{}, services.Wrap(services.ErrExternalTool, "compose", "probe", path, err)
		}
		video := result.VideoStream()
		if video == nil {
			return MediaInfo{}, services.Wrap(services.ErrValidation, "compose", "probe",
				fmt.Sprintf("%s has no video stream", path), nil)
		}
		info := MediaInfo{
			Duration: result.DurationSeconds(),
			Width:    video.Width,
			Height:   video.Height,
			HasAudio: result.AudioStream() != nil,
		}
		if info.Duration <= 0 {
			return MediaInfo{}, services.Wrap(services.ErrExternalTool, "compose", "probe",
				fmt.Sprintf("%s reports no duration", path), nil)
		}
		return info, nil
	}
}

// Clip is the resolved footage for the request at the same index. A zero
// Duration is probed during assembly.
type Clip struct {
	Path     string
	Duration float64
}

// Inputs carries everything the assembler merges into one plan.
//
// Clips must parallel Requests element for element once fetching has run.
// A nil Clips slice assembles a preview plan whose cutaway segments carry
// queries but no source paths; such a plan can be inspected and serialized
// but not rendered.
type Inputs struct {
	AvatarPath     string
	AvatarDuration float64
	Words          []timeline.Word
	Requests       []timeline.BrollRequest
	Clips          []Clip
	Transitions    transitions.Policy
	Captions       captions.Options
}

// Assembler builds composition plans.
type Assembler struct {
	probe  ProbeFunc
	logger *slog.Logger
}

// NewAssembler constructs an assembler. A nil probe falls back to the
// system ffprobe; a nil logger disables logging.
func NewAssembler(probe ProbeFunc, logger *slog.Logger) *Assembler {
	if probe == nil {
		probe = FFprobeMedia("ffprobe")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Assembler{probe: probe, logger: logger}
}

// Assemble merges inputs into a complete plan. The timeline length comes
// from AvatarDuration, or from probing AvatarPath when unset. Requests
// must fit the timeline; the planner rejects overlaps and out-of-range
// intervals before any clip is touched.
func (a *Assembler) Assemble(ctx context.Context, in Inputs) (timeline.Plan, error) {
	total := in.AvatarDuration
	if total <= 0 {
		if strings.TrimSpace(in.AvatarPath) == "" {
			return timeline.Plan{}, services.Wrap(services.ErrValidation, "compose", "assemble",
				"avatar duration unknown and no avatar path to probe", nil)
		}
		info, err := a.probe(ctx, in.AvatarPath)
		if err != nil {
			return timeline.Plan{}, err
		}
		if !info.HasAudio {
			a.logger.Warn("avatar has no audio track; output will be silent",
				logging.String("path", in.AvatarPath))
		}
		total = info.Duration
	}
	total = timeline.RoundMS(total)

	segments, err := planner.Plan(total, in.Requests)
	if err != nil {
		return timeline.Plan{}, err
	}
	if err := a.bindSources(ctx, segments, in); err != nil {
		return timeline.Plan{}, err
	}

	ops, fades, err := transitions.Build(segments, in.Transitions)
	if err != nil {
		return timeline.Plan{}, err
	}

	var cues []timeline.Cue
	if len(in.Words) > 0 {
		if last := in.Words[len(in.Words)-1].End; last > total {
			a.logger.Warn("transcript runs past the avatar",
				logging.Float64("last_word_end", last),
				logging.Float64("avatar_duration", total),
			)
		}
		cues, err = captions.Process(in.Words, in.Captions)
		if err != nil {
			return timeline.Plan{}, err
		}
	}

	plan := timeline.Plan{
		TotalDuration: total,
		Segments:      segments,
		Transitions:   ops,
		AudioFades:    fades,
		Cues:          cues,
	}
	a.logger.Info("assembled plan",
		logging.Float64("total_duration", plan.TotalDuration),
		logging.Int("segments", len(plan.Segments)),
		logging.Int("cutaways", plan.CutawayCount()),
		logging.Int("transitions", len(plan.Transitions)),
		logging.Int("cues", len(plan.Cues)),
	)
	return plan, nil
}

// bindSources fills each segment's source fields: avatar segments point at
// the base track, cutaway segments at their fetched clips in request order.
func (a *Assembler) bindSources(ctx context.Context, segments []timeline.Segment, in Inputs) error {
	if in.Clips != nil && len(in.Clips) != len(in.Requests) {
		return services.Wrap(services.ErrValidation, "compose", "assemble",
			fmt.Sprintf("%d clips resolved for %d requests", len(in.Clips), len(in.Requests)), nil)
	}

	next := 0
	for i := range segments {
		if segments[i].Kind == timeline.SegmentAvatar {
			segments[i].SourcePath = in.AvatarPath
			continue
		}
		if in.Clips == nil {
			continue
		}
		clip := in.Clips[next]
		next++
		if strings.TrimSpace(clip.Path) == "" {
			return services.Wrap(services.ErrValidation, "compose", "assemble",
				fmt.Sprintf("request %d %q resolved to no clip", next-1, segments[i].Query), nil)
		}
		if clip.Duration <= 0 {
			info, err := a.probe(ctx, clip.Path)
			if err != nil {
				return err
			}
			a.logger.Debug("probed clip",
				logging.String("path", clip.Path),
				logging.Float64("duration", info.Duration),
				logging.Int("width", info.Width),
				logging.Int("height", info.Height),
			)
			clip.Duration = info.Duration
		}
		segments[i].SourcePath = clip.Path
		segments[i].SourceDuration = clip.Duration
	}
	return nil
}

// WritePlan serializes a plan to path as indented JSON, creating parent
// directories as needed.
func WritePlan(path string, plan timeline.Plan) error {
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrValidation, "compose", "write-plan", "encoding plan", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return services.Wrap(services.ErrCacheWrite, "compose", "write-plan", "creating plan directory", err)
	}
	if err := fileutil.WriteFileAtomic(path, append(data, '\n'), 0o644); err != nil {
		return services.Wrap(services.ErrCacheWrite, "compose", "write-plan", path, err)
	}
	return nil
}

// ReadPlan loads a serialized plan artifact.
func ReadPlan(path string) (timeline.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return timeline.Plan{}, services.Wrap(services.ErrNotFound, "compose", "read-plan", path, err)
		}
		return timeline.Plan{}, services.Wrap(services.ErrValidation, "compose", "read-plan", path, err)
	}
	var plan timeline.Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		return timeline.Plan{}, services.Wrap(services.ErrValidation, "compose", "read-plan", "invalid plan json", err)
	}
	return plan, nil
}
