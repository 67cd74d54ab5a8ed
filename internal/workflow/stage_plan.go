package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"log/slog"

	"clipforge/internal/brollplan"
	"clipforge/internal/captions"
	"clipforge/internal/composition"
	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/queue"
	"clipforge/internal/services"
	"clipforge/internal/stage"
	"clipforge/internal/timeline"
	"clipforge/internal/transcript"
)

// planStage builds the preview composition plan: transcript words become
// caption cues, the b-roll CSV becomes cutaway segments, and the transition
// graph is laid over the boundaries. Cutaway segments carry queries only;
// the fetch stage resolves them to footage.
type planStage struct {
	cfg    *config.Config
	store  *queue.Store
	logger *slog.Logger
	probe  composition.ProbeFunc
}

// NewPlanStage constructs the planning stage handler.
func NewPlanStage(cfg *config.Config, store *queue.Store, logger *slog.Logger, probe composition.ProbeFunc) stage.Handler {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String(logging.FieldComponent, "plan-stage"))
	}
	return &planStage{cfg: cfg, store: store, logger: stageLogger, probe: probe}
}

func (p *planStage) Prepare(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, p.logger)

	video := strings.TrimSpace(job.VideoPath)
	if video == "" {
		return services.Wrap(services.ErrValidation, "plan", "validate inputs",
			"Job has no source video; queue jobs with a talking-head recording", nil)
	}
	if _, err := os.Stat(video); err != nil {
		return services.Wrap(services.ErrValidation, "plan", "validate inputs",
			fmt.Sprintf("Source video %s is not readable", video), err)
	}
	if transcriptPath := strings.TrimSpace(job.TranscriptPath); transcriptPath != "" {
		if _, err := os.Stat(transcriptPath); err != nil {
			return services.Wrap(services.ErrValidation, "plan", "validate inputs",
				fmt.Sprintf("Transcript %s is not readable", transcriptPath), err)
		}
	}
	workDir := job.WorkDir(p.cfg.Paths.WorkDir)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return services.Wrap(services.ErrCacheWrite, "plan", "prepare workspace",
			fmt.Sprintf("Failed to create work directory %s", workDir), err)
	}

	job.ProgressMessage = "Preparing composition planning"
	job.ProgressPercent = 0
	logger.Info("starting plan preparation", logging.String("video", filepath.Base(video)))
	return nil
}

func (p *planStage) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, p.logger)

	var words []timeline.Word
	if path := strings.TrimSpace(job.TranscriptPath); path != "" {
		p.updateProgress(ctx, job, "Loading transcript", 10)
		doc, err := transcript.Load(path)
		if err != nil {
			return err
		}
		words = doc.Words
		logger.Info("transcript loaded",
			logging.String("path", filepath.Base(path)),
			logging.Int("words", len(words)),
		)
	}

	var requests []timeline.BrollRequest
	if path := strings.TrimSpace(job.PlanPath); path != "" {
		p.updateProgress(ctx, job, "Loading b-roll plan", 25)
		loaded, err := brollplan.Load(path)
		if err != nil {
			return err
		}
		requests = loaded
		logger.Info("b-roll plan loaded",
			logging.String("path", filepath.Base(path)),
			logging.Int("requests", len(requests)),
		)
	}

	p.updateProgress(ctx, job, "Assembling preview plan", 50)
	assembler := composition.NewAssembler(p.probe, logger)
	plan, err := assembler.Assemble(ctx, composition.Inputs{
		AvatarPath:  job.VideoPath,
		Words:       words,
		Requests:    requests,
		Transitions: transitionPolicy(p.cfg),
		Captions:    captionOptions(p.cfg),
	})
	if err != nil {
		return err
	}

	for _, finding := range captions.Inspect(plan.Cues) {
		logger.Warn("caption timing issue", logging.String("finding", finding))
	}

	data, err := json.Marshal(plan)
	if err != nil {
		return services.Wrap(services.ErrValidation, "plan", "encode plan", "Failed to encode composition plan", err)
	}
	job.PlanJSON = string(data)

	artifact := filepath.Join(job.WorkDir(p.cfg.Paths.WorkDir), "plan.json")
	if err := composition.WritePlan(artifact, plan); err != nil {
		return err
	}

	p.updateProgress(ctx, job, planSummary(plan), 100)
	logger.Info("preview plan ready",
		logging.Float64("total_duration", plan.TotalDuration),
		logging.Int("segments", len(plan.Segments)),
		logging.Int("cutaways", plan.CutawayCount()),
		logging.Int("cues", len(plan.Cues)),
		logging.String("artifact", artifact),
	)
	return nil
}

func planSummary(plan timeline.Plan) string {
	return fmt.Sprintf("Planned %.1fs across %d segments (%d cutaways, %d cues)",
		plan.TotalDuration, len(plan.Segments), plan.CutawayCount(), len(plan.Cues))
}

// HealthCheck verifies the planner can probe media durations.
func (p *planStage) HealthCheck(ctx context.Context) stage.Health {
	const name = "plan"
	if p.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if _, err := exec.LookPath(p.cfg.FFprobeBinary()); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("%s not found; install the ffmpeg suite", p.cfg.FFprobeBinary()))
	}
	return stage.Healthy(name)
}

func (p *planStage) updateProgress(ctx context.Context, job *queue.Job, message string, percent float64) {
	job.SetProgress(job.ProgressStage, message, percent)
	if err := p.store.UpdateProgress(ctx, job); err != nil {
		logging.WithContext(ctx, p.logger).Warn("failed to persist plan progress", logging.Error(err))
	}
}
