package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"clipforge/internal/logging"
	"clipforge/internal/queue"
	"clipforge/internal/stage"
)

func (m *Manager) executeStage(ctx context.Context, stageLogger *slog.Logger, stg pipelineStage, job *queue.Job) error {
	started := time.Now()
	stageLogger.Info(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("processing_status", string(stg.processingStatus)),
		logging.String("video", filepath.Base(strings.TrimSpace(job.VideoPath))),
	)

	if stg.handler == nil {
		stageLogger.Warn("missing stage handler", logging.String(logging.FieldStage, stg.name))
		job.SetFailed(fmt.Sprintf("stage %s missing handler", stg.name))
		if err := m.store.Update(ctx, job); err != nil {
			stageLogger.Error("failed to persist missing handler failure", logging.Error(err))
		}
		err := errors.New("stage handler unavailable")
		m.setLastError(err)
		return err
	}

	if err := stg.handler.Prepare(ctx, job); err != nil {
		m.handleStageFailure(ctx, stg.name, job, err)
		m.setLastError(err)
		return err
	}
	if err := m.persistJob(ctx, stageLogger, job, "stage preparation"); err != nil {
		return err
	}

	if err := m.executeWithHeartbeat(ctx, stg.handler, job); err != nil {
		if errors.Is(err, context.Canceled) {
			stageLogger.Debug("stage interrupted by shutdown")
			return err
		}
		m.handleStageFailure(ctx, stg.name, job, err)
		m.setLastError(err)
		return err
	}

	finalizeStageStatus(stg, job)
	if err := m.persistJob(ctx, stageLogger, job, "stage result"); err != nil {
		return err
	}

	stageLogger.Info(
		"stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(job.Status)),
		logging.String("progress_stage", strings.TrimSpace(job.ProgressStage)),
		logging.Duration("stage_duration", time.Since(started)),
	)
	m.setLastJob(job)
	if job.Status == queue.StatusCompleted {
		m.notifyJobCompleted(ctx, job)
	}
	m.checkQueueCompletion(ctx)
	return nil
}

// finalizeStageStatus advances the job to the stage's done status unless the
// handler already moved it elsewhere, and squares up the progress fields when
// the pipeline finishes.
func finalizeStageStatus(stg pipelineStage, job *queue.Job) {
	if job.Status == stg.processingStatus || job.Status == "" {
		job.Status = stg.doneStatus
	}
	job.LastHeartbeat = nil
	if job.Status != queue.StatusCompleted {
		return
	}
	if !job.NeedsReview {
		job.ProgressStage = deriveStageLabel(queue.StatusCompleted)
	}
	if job.ProgressPercent < 100 {
		job.ProgressPercent = 100
	}
	if strings.TrimSpace(job.ProgressMessage) == "" {
		job.ProgressMessage = deriveStageLabel(queue.StatusCompleted)
	}
}

func (m *Manager) persistJob(ctx context.Context, stageLogger *slog.Logger, job *queue.Job, what string) error {
	err := m.store.Update(ctx, job)
	if err == nil {
		return nil
	}
	wrapped := fmt.Errorf("persist %s: %w", what, err)
	stageLogger.Error("failed to persist "+what, logging.Error(wrapped))
	m.setLastError(wrapped)
	return wrapped
}

// executeWithHeartbeat runs the handler while a background loop keeps the
// job's heartbeat column fresh. The loop is stopped and drained before the
// handler's error is returned.
func (m *Manager) executeWithHeartbeat(ctx context.Context, handler stage.Handler, job *queue.Job) error {
	var beats sync.WaitGroup
	defer beats.Wait()

	loopCtx, stopLoop := context.WithCancel(ctx)
	defer stopLoop()

	beats.Add(1)
	go m.heartbeat.StartLoop(loopCtx, &beats, job.ID)

	return handler.Execute(ctx, job)
}

func (m *Manager) transitionToProcessing(ctx context.Context, stg pipelineStage, job *queue.Job) error {
	if stg.processingStatus == "" {
		return errors.New("processing status must not be empty")
	}

	now := time.Now().UTC()
	job.Status = stg.processingStatus
	job.ProgressStage = deriveStageLabel(stg.processingStatus)
	job.ProgressMessage = fmt.Sprintf("%s started", deriveStageLabel(stg.processingStatus))
	job.ProgressPercent = 0
	job.ErrorMessage = ""
	job.LastHeartbeat = &now

	if err := m.store.Update(ctx, job); err != nil {
		return fmt.Errorf("persist processing transition: %w", err)
	}
	m.setLastJob(job)
	return nil
}
