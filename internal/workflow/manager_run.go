package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"clipforge/internal/logging"
	"clipforge/internal/queue"
)

// Start begins background processing with the configured worker pool.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("workflow already running")
	}
	if len(m.statusOrder) == 0 {
		return errors.New("workflow stages not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.running = true
	m.cancel = cancel
	m.wg.Add(m.workers + 1)

	go m.heartbeat.RunReclaimLoop(runCtx, &m.wg)
	for i := 0; i < m.workers; i++ {
		go m.runWorker(runCtx, i)
	}
	return nil
}

// Stop terminates background processing and waits for the workers to drain.
// Calling Stop on a manager that never started is a no-op.
func (m *Manager) Stop() {
	m.mu.Lock()
	stop := m.cancel
	m.cancel = nil
	m.running = false
	m.mu.Unlock()

	if stop == nil {
		return
	}
	stop()
	m.wg.Wait()
}

// ProcessQueue runs the configured stages until every job reaches a terminal
// status, then stops the workers. It is the entry point for the run and batch
// commands, which enqueue jobs and drain the queue in one invocation.
func (m *Manager) ProcessQueue(ctx context.Context) error {
	if err := m.Start(ctx); err != nil {
		return err
	}
	defer m.Stop()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			stats, err := m.store.Stats(ctx)
			if errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			if err == nil && countActiveJobs(stats) == 0 {
				return nil
			}
		}
	}
}

func (m *Manager) runWorker(ctx context.Context, index int) {
	defer m.wg.Done()
	logger := m.workerLogger(index)

	for ctx.Err() == nil {
		job, stg, err := m.claimNextJob(ctx)
		switch {
		case errors.Is(err, context.Canceled):
			return
		case err != nil:
			m.handleClaimError(ctx, logger, err)
			continue
		case job == nil:
			m.waitForJobOrShutdown(ctx)
			continue
		}

		requestID := uuid.NewString()
		stageCtx := withStageContext(ctx, stg.name, job, index, requestID)
		stageLogger := m.stageLogger(stageCtx, logger)

		m.onJobClaimed(stageCtx, job, stg.startStatus)
		if err := m.executeStage(stageCtx, stageLogger, stg, job); errors.Is(err, context.Canceled) {
			return
		}
	}
}

// claimNextJob atomically selects the oldest actionable job and moves it into
// its stage's processing status. The claim lock keeps two workers from
// grabbing the same job between the select and the status write.
func (m *Manager) claimNextJob(ctx context.Context) (*queue.Job, pipelineStage, error) {
	m.claimMu.Lock()
	defer m.claimMu.Unlock()

	job, err := m.store.NextForStatuses(ctx, m.statusOrder...)
	if err != nil || job == nil {
		return nil, pipelineStage{}, err
	}
	stg, ok := m.stageByStart[job.Status]
	if !ok {
		return nil, pipelineStage{}, nil
	}
	if err := m.transitionToProcessing(ctx, stg, job); err != nil {
		return nil, pipelineStage{}, err
	}
	return job, stg, nil
}

func (m *Manager) handleClaimError(ctx context.Context, logger *slog.Logger, err error) {
	m.setLastError(err)
	logger.Error("failed to claim next queue job",
		logging.Error(err),
		logging.String(logging.FieldEventType, "queue_claim_failed"),
		logging.String(logging.FieldErrorHint, "check queue database access"),
	)
	m.waitForJobOrShutdown(ctx)
}

func (m *Manager) waitForJobOrShutdown(ctx context.Context) {
	idle := time.NewTimer(m.pollInterval)
	defer idle.Stop()
	select {
	case <-ctx.Done():
	case <-idle.C:
	}
}
