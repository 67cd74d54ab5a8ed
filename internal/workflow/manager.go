package workflow

import (
	"log/slog"
	"sync"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/notifications"
	"clipforge/internal/queue"
)

// Manager coordinates queue processing using registered stage handlers.
type Manager struct {
	cfg      *config.Config
	store    *queue.Store
	logger   *slog.Logger
	notifier notifications.Service

	workers      int
	pollInterval time.Duration
	heartbeat    *HeartbeatMonitor

	stages       []pipelineStage
	stageByStart map[queue.Status]pipelineStage
	statusOrder  []queue.Status

	claimMu sync.Mutex

	mu      sync.RWMutex
	running bool
	cancel  func()
	wg      sync.WaitGroup
	lastErr error
	lastJob *queue.Job

	queueActive bool
	queueStart  time.Time
}

// NewManager constructs a workflow manager with the default webhook notifier.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Manager {
	return NewManagerWithNotifier(cfg, store, logger, notifications.NewService(cfg))
}

// NewManagerWithNotifier constructs a workflow manager with a custom notifier
// (used in tests).
func NewManagerWithNotifier(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) *Manager {
	workers := cfg.Workflow.Workers
	if workers < 1 {
		workers = 1
	}
	poll := time.Duration(cfg.Workflow.QueuePollInterval) * time.Second
	beat := time.Duration(cfg.Workflow.HeartbeatInterval) * time.Second
	stale := time.Duration(cfg.Workflow.HeartbeatTimeout) * time.Second
	return &Manager{
		cfg:          cfg,
		store:        store,
		logger:       logger,
		notifier:     notifier,
		workers:      workers,
		pollInterval: poll,
		heartbeat:    NewHeartbeatMonitor(store, logger, beat, stale),
	}
}
