package render

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"clipforge/internal/logging"
	"clipforge/internal/services"
	"clipforge/internal/services/ffmpeg"
)

// Renderer executes assembled jobs through an ffmpeg runner.
type Renderer struct {
	runner ffmpeg.Runner
	logger *slog.Logger
}

// NewRenderer constructs a renderer. A nil logger disables logging.
func NewRenderer(runner ffmpeg.Runner, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Renderer{runner: runner, logger: logger}
}

// Render builds the argument list for job, runs ffmpeg, and verifies the
// output file exists and is non-empty. Progress updates stream to onProgress
// when provided.
func (r *Renderer) Render(ctx context.Context, job Job, onProgress func(ffmpeg.Progress)) error {
	args, err := BuildArgs(job)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(job.OutputPath), 0o755); err != nil {
		return services.Wrap(services.ErrExternalTool, "render", "output", "creating output directory", err)
	}

	r.logger.Info("rendering video",
		logging.String("output", job.OutputPath),
		logging.String("profile", job.Profile.Name),
		logging.Int("segments", len(job.Plan.Segments)),
		logging.Float64("duration_seconds", job.Plan.TotalDuration),
	)
	if err := r.runner.Run(ctx, args, onProgress); err != nil {
		return services.Wrap(services.ErrExternalTool, "render", "ffmpeg", "compositing timeline", err)
	}

	info, err := os.Stat(job.OutputPath)
	if err != nil || info.Size() == 0 {
		return services.Wrap(services.ErrExternalTool, "render", "output", "ffmpeg produced no output file", err)
	}
	r.logger.Info("render complete",
		logging.String("output", job.OutputPath),
		logging.Int64("size_bytes", info.Size()),
	)
	return nil
}
