package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"clipforge/internal/logging"
	"clipforge/internal/queue"
)

// HeartbeatMonitor keeps processing jobs visibly alive and returns abandoned
// work to the queue. Each executing stage runs a StartLoop goroutine that
// stamps the job row; a single RunReclaimLoop goroutine rolls back any
// processing job whose stamp has gone stale past the configured timeout.
type HeartbeatMonitor struct {
	store             *queue.Store
	logger            *slog.Logger
	heartbeatInterval time.Duration
	heartbeatTimeout  time.Duration
}

// NewHeartbeatMonitor creates a new monitor.
func NewHeartbeatMonitor(store *queue.Store, logger *slog.Logger, interval, timeout time.Duration) *HeartbeatMonitor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &HeartbeatMonitor{
		store:             store,
		logger:            logging.NewComponentLogger(logger, "workflow-heartbeat"),
		heartbeatInterval: interval,
		heartbeatTimeout:  timeout,
	}
}

// ReclaimStale rolls processing jobs whose heartbeat predates the timeout back
// to the status that feeds their stage, making them claimable again.
func (h *HeartbeatMonitor) ReclaimStale(ctx context.Context) error {
	if h.heartbeatTimeout <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-h.heartbeatTimeout)
	reclaimed, err := h.store.ReclaimStaleProcessing(ctx, cutoff)
	if err != nil {
		return err
	}
	if reclaimed > 0 {
		h.logger.Info("reclaimed stale jobs", logging.Int64("count", reclaimed))
	}
	return nil
}

// RunReclaimLoop sweeps for stale processing jobs until context cancellation.
// One loop per manager covers every worker.
func (h *HeartbeatMonitor) RunReclaimLoop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	h.reclaimAndReport(ctx)

	if h.heartbeatInterval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.reclaimAndReport(ctx)
		}
	}
}

func (h *HeartbeatMonitor) reclaimAndReport(ctx context.Context) {
	if err := h.ReclaimStale(ctx); err != nil && !errors.Is(err, context.Canceled) {
		h.logger.Warn("failed to reclaim stale processing jobs",
			logging.Error(err),
			logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"),
			logging.String(logging.FieldErrorHint, "check queue database access"),
		)
	}
}

// StartLoop stamps the job's heartbeat at the configured interval until the
// stage finishes and cancels the context.
func (h *HeartbeatMonitor) StartLoop(ctx context.Context, wg *sync.WaitGroup, jobID int64) {
	defer wg.Done()

	if h.heartbeatInterval <= 0 {
		<-ctx.Done()
		return
	}

	logger := logging.WithContext(ctx, h.logger)
	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.store.UpdateHeartbeat(ctx, jobID); err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Info("shutting down, heartbeat update cancelled")
					return
				}
				logger.Warn("heartbeat update failed", logging.Error(err))
			}
		}
	}
}
