package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"clipforge/internal/logging"
	"clipforge/internal/queue"
	"clipforge/internal/services"
)

func (m *Manager) handleStageFailure(ctx context.Context, stageName string, job *queue.Job, stageErr error) {
	logger := logging.WithContext(ctx, logging.NewComponentLogger(m.logger, "workflow-manager"))

	message := failureMessage(stageName, stageErr)
	resolved := services.FailureStatus(stageErr)
	m.setJobFailureState(job, resolved, message)

	logger.Error("stage failed",
		logging.String("resolved_status", string(resolved)),
		logging.String("error_message", message),
		logging.Alert("stage_failure"),
		logging.Error(stageErr),
		logging.String(logging.FieldEventType, "stage_failure"),
	)

	if err := m.store.Update(ctx, job); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("shutting down, could not persist stage failure")
		} else {
			logger.Error("failed to persist stage failure", logging.Error(err))
		}
	}

	m.setLastJob(job)
	m.notifyJobFailed(ctx, stageName, job, message)
	m.checkQueueCompletion(ctx)
}

func failureMessage(stageName string, stageErr error) string {
	if stageErr == nil {
		return fmt.Sprintf("%s failed without error detail", stageLabelOrDefault(stageName))
	}
	message := strings.TrimSpace(stageErr.Error())
	if message == "" {
		return fmt.Sprintf("%s failed", stageLabelOrDefault(stageName))
	}
	return message
}

func stageLabelOrDefault(stageName string) string {
	if stageName = strings.TrimSpace(stageName); stageName != "" {
		return stageName
	}
	return "workflow"
}

// setJobFailureState writes the terminal failure fields. Review-class errors
// keep the job visible to the operator with the reason attached; everything
// else is a plain failure eligible for retry.
func (m *Manager) setJobFailureState(job *queue.Job, resolved queue.Status, message string) {
	if resolved == queue.StatusReview {
		job.Status = queue.StatusReview
		job.NeedsReview = true
		job.ReviewReason = message
		job.ErrorMessage = message
		job.ProgressStage = "Needs review"
		job.ProgressMessage = message
		job.ProgressPercent = 0
		job.LastHeartbeat = nil
		return
	}
	job.SetFailed(message)
}
