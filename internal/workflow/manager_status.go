package workflow

import (
	"context"

	"clipforge/internal/logging"
	"clipforge/internal/queue"
	"clipforge/internal/stage"
)

// StatusSummary is a point-in-time view of the manager for the status and
// doctor commands.
type StatusSummary struct {
	Running     bool
	LastError   string
	LastJob     *queue.Job
	QueueStats  map[queue.Status]int
	StageHealth map[string]stage.Health
}

// Status snapshots manager state, then collects queue counts and per-stage
// readiness outside the lock.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	summary := StatusSummary{Running: m.running}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	if m.lastJob != nil {
		snapshot := *m.lastJob
		summary.LastJob = &snapshot
	}
	stageSet := make([]pipelineStage, len(m.stages))
	copy(stageSet, m.stages)
	m.mu.RUnlock()

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read queue stats", logging.Error(err))
	}
	summary.QueueStats = stats

	summary.StageHealth = make(map[string]stage.Health, len(stageSet))
	for _, stg := range stageSet {
		if stg.handler == nil {
			continue
		}
		summary.StageHealth[stg.name] = stg.handler.HealthCheck(ctx)
	}
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastErr = err
}

func (m *Manager) setLastJob(job *queue.Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastJob = nil
	if job != nil {
		snapshot := *job
		m.lastJob = &snapshot
	}
}
