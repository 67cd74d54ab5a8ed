package workflow

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"clipforge/internal/logging"
	"clipforge/internal/notifications"
	"clipforge/internal/queue"
)

// publish delivers one event and downgrades delivery problems to debug logs.
// Notification trouble never interrupts pipeline work.
func (m *Manager) publish(ctx context.Context, event notifications.Event, what string, payload notifications.Payload) {
	err := m.notifier.Publish(ctx, event, payload)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		m.logger.Debug("shutting down, could not send " + what)
	default:
		m.logger.Debug(what+" failed", logging.Error(err))
	}
}

// onJobClaimed latches the batch timer on the first claim and announces jobs
// entering the pipeline from pending.
func (m *Manager) onJobClaimed(ctx context.Context, job *queue.Job, from queue.Status) {
	if m.notifier == nil {
		return
	}
	m.beginBatch()
	if from != queue.StatusPending {
		return
	}
	m.publish(ctx, notifications.EventJobStarted, "job start notification", notifications.Payload{
		"job_id": job.ID,
		"uuid":   job.UUID,
		"video":  filepath.Base(job.VideoPath),
	})
}

func (m *Manager) notifyJobCompleted(ctx context.Context, job *queue.Job) {
	if m.notifier == nil {
		return
	}
	m.publish(ctx, notifications.EventJobCompleted, "job completion notification", notifications.Payload{
		"job_id": job.ID,
		"video":  filepath.Base(job.VideoPath),
		"output": job.OutputPath,
	})
}

func (m *Manager) notifyJobFailed(ctx context.Context, stageName string, job *queue.Job, message string) {
	if m.notifier == nil {
		return
	}
	m.publish(ctx, notifications.EventJobFailed, "job failure notification", notifications.Payload{
		"job_id": job.ID,
		"video":  filepath.Base(job.VideoPath),
		"stage":  stageName,
		"error":  message,
		"status": string(job.Status),
	})
}

func (m *Manager) checkQueueCompletion(ctx context.Context) {
	if m.notifier == nil {
		return
	}
	stats, err := m.store.Stats(ctx)
	switch {
	case errors.Is(err, context.Canceled):
		m.logger.Debug("shutting down, could not check queue completion")
		return
	case err != nil:
		logging.WarnWithContext(ctx, m.logger, "queue stats unavailable for completion notification; notification skipped",
			logging.Error(err),
			logging.String(logging.FieldEventType, "queue_stats_failed"),
			logging.String(logging.FieldErrorHint, "check queue database access"),
			logging.String(logging.FieldImpact, "completion notification will not be sent"),
		)
		return
	}
	if countActiveJobs(stats) > 0 {
		return
	}

	start, ok := m.endBatch()
	if !ok {
		return
	}
	var elapsed time.Duration
	if !start.IsZero() {
		elapsed = time.Since(start)
	}
	m.publish(ctx, notifications.EventBatchCompleted, "batch completion notification", notifications.Payload{
		"processed": stats[queue.StatusCompleted],
		"failed":    stats[queue.StatusFailed] + stats[queue.StatusReview],
		"duration":  elapsed.Round(time.Second).String(),
	})
}

// beginBatch starts the wall-clock timer for the current batch unless one is
// already running.
func (m *Manager) beginBatch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queueActive {
		return
	}
	m.queueActive = true
	m.queueStart = time.Now()
}

// endBatch closes the running batch and reports when it started. ok is false
// when no batch was in flight.
func (m *Manager) endBatch() (start time.Time, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.queueActive {
		return time.Time{}, false
	}
	start = m.queueStart
	m.queueActive = false
	m.queueStart = time.Time{}
	return start, true
}

// countActiveJobs totals the jobs still moving through the pipeline.
// Completed, failed, and review jobs are settled and do not count.
func countActiveJobs(stats map[queue.Status]int) int {
	total := 0
	for status, count := range stats {
		switch status {
		case queue.StatusCompleted, queue.StatusFailed, queue.StatusReview:
		default:
			total += count
		}
	}
	return total
}
