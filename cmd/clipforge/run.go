package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"clipforge/internal/clipcache"
	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/logs"
	"clipforge/internal/notifications"
	"clipforge/internal/preflight"
	"clipforge/internal/queue"
	"clipforge/internal/render"
	"clipforge/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var transcriptPath string
	var brollPath string
	var brandPath string
	var outputPath string
	var platform string

	cmd := &cobra.Command{
		Use:   "run <video>",
		Short: "Compose one video and wait for the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			spec, err := buildJobSpec(args[0], transcriptPath, brollPath, brandPath, outputPath, platform)
			if err != nil {
				return err
			}
			return runJobs(cmd, cfg, []queue.JobSpec{spec})
		},
	}

	cmd.Flags().StringVarP(&transcriptPath, "transcript", "t", "", "Word-timing transcript JSON")
	cmd.Flags().StringVarP(&brollPath, "broll", "b", "", "B-roll plan CSV")
	cmd.Flags().StringVar(&brandPath, "brand", "", "Brand kit file (overrides the configured default)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path")
	cmd.Flags().StringVarP(&platform, "platform", "p", "", "Target platform profile (tiktok, reels, shorts)")
	return cmd
}

// buildJobSpec validates the inputs a job references before it is queued.
// The video and any sidecar files must exist now; the output path only has
// to be writable once rendering starts.
func buildJobSpec(videoPath, transcriptPath, brollPath, brandPath, outputPath, platform string) (queue.JobSpec, error) {
	video, err := absoluteExistingFile("video", videoPath)
	if err != nil {
		return queue.JobSpec{}, err
	}

	spec := queue.JobSpec{VideoPath: video}

	if strings.TrimSpace(transcriptPath) != "" {
		path, err := absoluteExistingFile("transcript", transcriptPath)
		if err != nil {
			return queue.JobSpec{}, err
		}
		spec.TranscriptPath = path
	}
	if strings.TrimSpace(brollPath) != "" {
		path, err := absoluteExistingFile("b-roll plan", brollPath)
		if err != nil {
			return queue.JobSpec{}, err
		}
		spec.PlanPath = path
	}
	if strings.TrimSpace(brandPath) != "" {
		path, err := absoluteExistingFile("brand kit", brandPath)
		if err != nil {
			return queue.JobSpec{}, err
		}
		spec.BrandPath = path
	}
	if strings.TrimSpace(outputPath) != "" {
		abs, err := filepath.Abs(strings.TrimSpace(outputPath))
		if err != nil {
			return queue.JobSpec{}, fmt.Errorf("resolve output path: %w", err)
		}
		spec.OutputPath = abs
	}
	if name := strings.TrimSpace(platform); name != "" {
		if _, err := render.ProfileByName(name); err != nil {
			return queue.JobSpec{}, err
		}
		spec.Platform = strings.ToLower(name)
	}
	return spec, nil
}

func absoluteExistingFile(label, path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("%s path is empty", label)
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve %s path: %w", label, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%s %s is not readable: %w", label, abs, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s %s is a directory", label, abs)
	}
	return abs, nil
}

// runJobs queues the specs and drains the pipeline in-process. It is shared
// by the run and batch commands; both block until every queued job reaches a
// terminal status or the process is signalled.
func runJobs(cmd *cobra.Command, cfg *config.Config, specs []queue.JobSpec) error {
	out := cmd.OutOrStdout()

	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if logPath := logs.Path(cfg); logPath != "" {
		logging.SweepLogs(logger, cfg.Logging.RetentionDays, cfg.Paths.LogDir, logPath)
	}

	if err := ensurePreflight(signalCtx, cfg, out); err != nil {
		return err
	}

	store, err := queue.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	cache, err := clipcache.OpenExclusive(cfg.Paths.CacheDir, cacheMaxBytes(cfg), logger)
	if err != nil {
		return err
	}
	defer cache.Close()

	notifier := notifications.NewService(cfg)
	manager := workflow.NewManagerWithNotifier(cfg, store, logger, notifier)
	manager.ConfigureStages(workflow.NewStageSet(cfg, store, logger, cache))

	jobs := make([]*queue.Job, 0, len(specs))
	for _, spec := range specs {
		job, err := store.NewJob(signalCtx, spec)
		if err != nil {
			return err
		}
		jobs = append(jobs, job)
		if err := notifier.Publish(signalCtx, notifications.EventJobQueued, notifications.Payload{
			"job_id": job.ID,
			"uuid":   job.UUID,
			"video":  filepath.Base(job.VideoPath),
		}); err != nil {
			logger.Debug("job queued notification failed", logging.Error(err))
		}
		fmt.Fprintf(out, "Queued job %d: %s\n", job.ID, filepath.Base(job.VideoPath))
	}

	if err := manager.ProcessQueue(signalCtx); err != nil {
		if signalCtx.Err() != nil {
			fmt.Fprintln(out, "Interrupted; unfinished jobs resume on the next run")
		}
		return err
	}

	return reportOutcomes(cmd.Context(), out, store, jobs)
}

// ensurePreflight fails fast when the environment cannot carry a job to
// completion, so broken setups surface before any work is queued.
func ensurePreflight(ctx context.Context, cfg *config.Config, out io.Writer) error {
	var failed []string
	for _, result := range preflight.RunAll(ctx, cfg) {
		if result.Passed {
			continue
		}
		failed = append(failed, fmt.Sprintf("%s: %s", result.Name, result.Detail))
	}
	for _, status := range preflight.CheckSystemDeps(ctx, cfg) {
		if status.Available || status.Optional {
			continue
		}
		failed = append(failed, fmt.Sprintf("%s: %s", status.Name, status.Detail))
	}
	if len(failed) == 0 {
		return nil
	}
	for _, line := range failed {
		fmt.Fprintf(out, "  %s\n", line)
	}
	return fmt.Errorf("%d preflight checks failed; run `clipforge doctor` for details", len(failed))
}

func reportOutcomes(ctx context.Context, out io.Writer, store *queue.Store, jobs []*queue.Job) error {
	unfinished := 0
	for _, job := range jobs {
		refreshed, err := store.GetByID(ctx, job.ID)
		if err != nil {
			return err
		}
		switch refreshed.Status {
		case queue.StatusCompleted:
			fmt.Fprintf(out, "Job %d completed: %s\n", refreshed.ID, refreshed.OutputPath)
		case queue.StatusReview:
			unfinished++
			fmt.Fprintf(out, "Job %d needs review: %s\n", refreshed.ID, refreshed.ReviewReason)
		case queue.StatusFailed:
			unfinished++
			fmt.Fprintf(out, "Job %d failed: %s\n", refreshed.ID, refreshed.ErrorMessage)
		default:
			unfinished++
			fmt.Fprintf(out, "Job %d did not finish (status %s)\n", refreshed.ID, refreshed.Status)
		}
	}
	if unfinished > 0 {
		return fmt.Errorf("%d of %d jobs did not complete", unfinished, len(jobs))
	}
	return nil
}
