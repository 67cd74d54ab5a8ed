package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"log/slog"

	"clipforge/internal/captions"
	"clipforge/internal/clipcache"
	"clipforge/internal/composition"
	"clipforge/internal/config"
	"clipforge/internal/fileutil"
	"clipforge/internal/logging"
	"clipforge/internal/queue"
	"clipforge/internal/services"
	"clipforge/internal/stage"
	"clipforge/internal/timeline"
)

// composeStage binds the preview plan to fetched footage and produces the
// final renderable plan plus the styled subtitle artifact. Fallback decisions
// from the fetch stage decide which cutaways survive: skipped queries revert
// to avatar coverage, defaulted queries use the configured stand-in clip.
type composeStage struct {
	cfg    *config.Config
	store  *queue.Store
	logger *slog.Logger
	cache  *clipcache.Store
	probe  composition.ProbeFunc
}

// NewComposeStage constructs the composition stage handler.
func NewComposeStage(cfg *config.Config, store *queue.Store, logger *slog.Logger, cache *clipcache.Store, probe composition.ProbeFunc) stage.Handler {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String(logging.FieldComponent, "compose-stage"))
	}
	return &composeStage{cfg: cfg, store: store, logger: stageLogger, cache: cache, probe: probe}
}

func (c *composeStage) Prepare(ctx context.Context, job *queue.Job) error {
	if _, err := stage.ParsePlan(job.PlanJSON); err != nil {
		return err
	}
	workDir := job.WorkDir(c.cfg.Paths.WorkDir)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return services.Wrap(services.ErrCacheWrite, "compose", "prepare workspace",
			fmt.Sprintf("Failed to create work directory %s", workDir), err)
	}
	job.ProgressMessage = "Preparing final composition"
	job.ProgressPercent = 0
	return nil
}

func (c *composeStage) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, c.logger)

	preview, err := stage.ParsePlan(job.PlanJSON)
	if err != nil {
		return err
	}

	c.updateProgress(ctx, job, "Resolving cutaway clips", 20)
	requests, clips, err := c.resolveClips(preview, job.Fallbacks())
	if err != nil {
		return err
	}

	c.updateProgress(ctx, job, "Assembling final plan", 50)
	assembler := composition.NewAssembler(c.probe, logger)
	plan, err := assembler.Assemble(ctx, composition.Inputs{
		AvatarPath:     job.VideoPath,
		AvatarDuration: preview.TotalDuration,
		Requests:       requests,
		Clips:          clips,
		Transitions:    transitionPolicy(c.cfg),
		Captions:       captionOptions(c.cfg),
	})
	if err != nil {
		return err
	}
	// The caption timeline was cut during planning; carry it over unchanged.
	plan.Cues = preview.Cues

	workDir := job.WorkDir(c.cfg.Paths.WorkDir)
	if len(plan.Cues) > 0 {
		c.updateProgress(ctx, job, "Rendering subtitles", 75)
		kit, err := loadKit(c.cfg, job)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := captions.RenderASS(&buf, plan.Cues, kit, captions.ASSOptions{Position: c.cfg.Captions.Position}); err != nil {
			return err
		}
		captionsPath := filepath.Join(workDir, "captions.ass")
		if err := fileutil.WriteFileAtomic(captionsPath, buf.Bytes(), 0o644); err != nil {
			return services.Wrap(services.ErrCacheWrite, "compose", "write subtitles",
				fmt.Sprintf("Failed to write %s", captionsPath), err)
		}
		// The plain SRT rides along as the interchange artifact; the burned
		// captions come from the styled ASS.
		buf.Reset()
		if err := captions.WriteSRT(&buf, plan.Cues); err != nil {
			return err
		}
		srtPath := filepath.Join(workDir, "captions.srt")
		if err := fileutil.WriteFileAtomic(srtPath, buf.Bytes(), 0o644); err != nil {
			return services.Wrap(services.ErrCacheWrite, "compose", "write subtitles",
				fmt.Sprintf("Failed to write %s", srtPath), err)
		}
		logger.Info("subtitles rendered",
			logging.String("ass", captionsPath),
			logging.String("srt", srtPath),
			logging.Int("cues", len(plan.Cues)),
		)
	}

	data, err := json.Marshal(plan)
	if err != nil {
		return services.Wrap(services.ErrValidation, "compose", "encode plan", "Failed to encode composition plan", err)
	}
	job.PlanJSON = string(data)
	if err := composition.WritePlan(filepath.Join(workDir, "plan.json"), plan); err != nil {
		return err
	}

	c.updateProgress(ctx, job, fmt.Sprintf("Composed %d segments with %d cutaways", len(plan.Segments), plan.CutawayCount()), 100)
	logger.Info("final plan ready",
		logging.Float64("total_duration", plan.TotalDuration),
		logging.Int("segments", len(plan.Segments)),
		logging.Int("cutaways", plan.CutawayCount()),
		logging.Int("transitions", len(plan.Transitions)),
	)
	return nil
}

// resolveClips pairs each surviving cutaway request with its footage. Skipped
// requests are dropped, defaulted requests use the configured clip with the
// duration left for the assembler to probe, and everything else must already
// sit in the cache.
func (c *composeStage) resolveClips(preview timeline.Plan, fallbacks []queue.FallbackEvent) ([]timeline.BrollRequest, []composition.Clip, error) {
	actions := make(map[string]string, len(fallbacks))
	for _, event := range fallbacks {
		actions[event.Query] = event.Action
	}

	requests := cutawayRequests(preview)
	surviving := make([]timeline.BrollRequest, 0, len(requests))
	clips := make([]composition.Clip, 0, len(requests))
	for _, req := range requests {
		switch actions[req.Query] {
		case "skip":
			continue
		case "default":
			defaultClip := strings.TrimSpace(c.cfg.Broll.DefaultClip)
			if defaultClip == "" {
				return nil, nil, services.Wrap(services.ErrConfiguration, "compose", "resolve clips",
					"Fallback clip not configured; set broll.default_clip", nil)
			}
			surviving = append(surviving, req)
			clips = append(clips, composition.Clip{Path: defaultClip})
		default:
			entry, ok := c.cache.Resolve(req.Query)
			if !ok {
				return nil, nil, services.Wrap(services.ErrClipUnavailable, "compose", "resolve clips",
					fmt.Sprintf("Clip for %q missing from cache; rerun fetch", req.Query), nil)
			}
			surviving = append(surviving, req)
			clips = append(clips, composition.Clip{Path: entry.Path, Duration: entry.DurationSeconds})
		}
	}
	return surviving, clips, nil
}

// HealthCheck verifies the composer can probe clip durations.
func (c *composeStage) HealthCheck(ctx context.Context) stage.Health {
	const name = "compose"
	if c.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if c.cache == nil {
		return stage.Unhealthy(name, "clip cache unavailable")
	}
	if _, err := exec.LookPath(c.cfg.FFprobeBinary()); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("%s not found; install the ffmpeg suite", c.cfg.FFprobeBinary()))
	}
	return stage.Healthy(name)
}

func (c *composeStage) updateProgress(ctx context.Context, job *queue.Job, message string, percent float64) {
	job.SetProgress(job.ProgressStage, message, percent)
	if err := c.store.UpdateProgress(ctx, job); err != nil {
		logging.WithContext(ctx, c.logger).Warn("failed to persist compose progress", logging.Error(err))
	}
}
