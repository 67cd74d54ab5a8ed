package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"log/slog"

	"clipforge/internal/config"
	"clipforge/internal/fileutil"
	"clipforge/internal/logging"
	"clipforge/internal/queue"
	"clipforge/internal/render"
	"clipforge/internal/services"
	"clipforge/internal/services/ffmpeg"
	"clipforge/internal/stage"
	"clipforge/internal/textutil"
)

// renderStage executes the composed plan through ffmpeg against the target
// platform profile and verifies the output landed.
type renderStage struct {
	cfg    *config.Config
	store  *queue.Store
	logger *slog.Logger
	runner ffmpeg.Runner
}

// NewRenderStage constructs the render stage handler.
func NewRenderStage(cfg *config.Config, store *queue.Store, logger *slog.Logger, runner ffmpeg.Runner) stage.Handler {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String(logging.FieldComponent, "render-stage"))
	}
	return &renderStage{cfg: cfg, store: store, logger: stageLogger, runner: runner}
}

func (r *renderStage) Prepare(ctx context.Context, job *queue.Job) error {
	if _, err := stage.ParsePlan(job.PlanJSON); err != nil {
		return err
	}
	job.ProgressMessage = "Preparing render"
	job.ProgressPercent = 0
	return nil
}

func (r *renderStage) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, r.logger)

	plan, err := stage.ParsePlan(job.PlanJSON)
	if err != nil {
		return err
	}

	profileName := strings.TrimSpace(job.Platform)
	if profileName == "" {
		profileName = r.cfg.Render.Profile
	}
	profile, err := render.ProfileByName(profileName)
	if err != nil {
		return err
	}
	profile = profile.Override(r.cfg.Render.Preset, r.cfg.Render.VideoBitrate, r.cfg.Render.AudioBitrate)

	kit, err := loadKit(r.cfg, job)
	if err != nil {
		return err
	}

	workDir := job.WorkDir(r.cfg.Paths.WorkDir)
	captionsPath := filepath.Join(workDir, "captions.ass")
	if _, err := os.Stat(captionsPath); err != nil {
		captionsPath = ""
	}

	output := strings.TrimSpace(job.OutputPath)
	if output == "" {
		base := filepath.Base(job.VideoPath)
		stem := textutil.SanitizeToken(strings.TrimSuffix(base, filepath.Ext(base)))
		output = filepath.Join(r.cfg.Paths.OutputDir, fmt.Sprintf("%s_%s.mp4", stem, profile.Name))
	}
	// Encode into the job work dir; the file moves to its destination only
	// after ffmpeg exits cleanly.
	scratch := filepath.Join(workDir, fmt.Sprintf("encode_%s.mp4", profile.Name))

	renderJob := render.Job{
		Plan:            plan,
		AvatarPath:      job.VideoPath,
		CaptionsPath:    captionsPath,
		Kit:             kit,
		Profile:         profile,
		ShortClipPolicy: r.cfg.Broll.ShortClipPolicy,
		OutputPath:      scratch,
	}

	r.updateProgress(ctx, job, fmt.Sprintf("Rendering %s profile", profile.Name), 0)
	sampler := logging.NewProgressSampler(0)
	onProgress := func(p ffmpeg.Progress) {
		percent := renderPercent(plan.TotalDuration, p)
		message := renderProgressMessage(percent, p)
		if !p.Done && !sampler.ShouldLog(percent, job.ProgressStage) {
			return
		}
		r.updateProgress(ctx, job, message, percent)
	}

	renderer := render.NewRenderer(r.runner, logger)
	if err := renderer.Render(ctx, renderJob, onProgress); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return services.Wrap(services.ErrTransient, "render", "publish", "creating output directory", err)
	}
	if err := fileutil.MoveFileVerified(scratch, output); err != nil {
		return services.Wrap(services.ErrTransient, "render", "publish", "moving rendered file into place", err)
	}

	job.OutputPath = output
	job.SetProgress(job.ProgressStage, fmt.Sprintf("Rendered %s", filepath.Base(output)), 100)
	logger.Info("render stage complete",
		logging.String("output", output),
		logging.String("profile", profile.Name),
		logging.Bool("captions", captionsPath != ""),
	)
	return nil
}

func renderPercent(total float64, p ffmpeg.Progress) float64 {
	if p.Done {
		return 100
	}
	if total <= 0 {
		return 0
	}
	percent := p.OutTime.Seconds() / total * 100
	if percent < 0 {
		return 0
	}
	// Hold just under complete until ffmpeg confirms the file is finished.
	if percent > 99 {
		return 99
	}
	return percent
}

func renderProgressMessage(percent float64, p ffmpeg.Progress) string {
	if p.Done {
		return "Finalizing output"
	}
	if p.Speed > 0 {
		return fmt.Sprintf("Encoding %.1f%% @ %.1fx", percent, p.Speed)
	}
	return fmt.Sprintf("Encoding %.1f%%", percent)
}

// HealthCheck verifies ffmpeg responds.
func (r *renderStage) HealthCheck(ctx context.Context) stage.Health {
	const name = "render"
	if r.runner == nil {
		return stage.Unhealthy(name, "ffmpeg runner unavailable")
	}
	if _, err := r.runner.Version(ctx); err != nil {
		return stage.Unhealthy(name, "ffmpeg not available; install the ffmpeg suite")
	}
	return stage.Healthy(name)
}

func (r *renderStage) updateProgress(ctx context.Context, job *queue.Job, message string, percent float64) {
	job.SetProgress(job.ProgressStage, message, percent)
	if err := r.store.UpdateProgress(ctx, job); err != nil {
		logging.WithContext(ctx, r.logger).Warn("failed to persist render progress", logging.Error(err))
	}
}
