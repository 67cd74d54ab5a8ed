package workflow

import (
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"clipforge/internal/clipcache"
	"clipforge/internal/composition"
	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/queue"
	"clipforge/internal/services/ffmpeg"
	"clipforge/internal/services/pexels"
	"clipforge/internal/stage"
)

// StageSet bundles the concrete workflow handlers the manager orchestrates.
type StageSet struct {
	Plan    stage.Handler
	Fetch   stage.Handler
	Compose stage.Handler
	Render  stage.Handler
}

type pipelineStage struct {
	name             string
	handler          stage.Handler
	startStatus      queue.Status
	processingStatus queue.Status
	doneStatus       queue.Status
}

// NewStageSet wires the production stage handlers from configuration. The
// Pexels client is only built when an API key is configured; jobs without
// cutaways process fine without one, and jobs with cutaways surface a
// configuration error from the fetch stage.
func NewStageSet(cfg *config.Config, store *queue.Store, logger *slog.Logger, cache *clipcache.Store) StageSet {
	probe := composition.FFprobeMedia(cfg.FFprobeBinary())

	var client pexels.Client
	if key := strings.TrimSpace(cfg.Pexels.APIKey); key != "" {
		ledger := pexels.NewLedger(
			filepath.Join(cfg.Paths.CacheDir, "ratelimit.json"),
			cfg.Pexels.RateLimitRequests,
			time.Duration(cfg.Pexels.RateLimitWindowSeconds)*time.Second,
		)
		httpClient, err := pexels.NewHTTPClient(key,
			pexels.WithBaseURL(cfg.Pexels.BaseURL),
			pexels.WithLedger(ledger),
			pexels.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Pexels.RequestTimeout) * time.Second}),
		)
		if err != nil {
			logging.NewComponentLogger(logger, "workflow").Warn("pexels client unavailable", logging.Error(err))
		} else {
			client = httpClient
		}
	}

	runner := ffmpeg.NewCLI(ffmpeg.WithBinary(cfg.FFmpegBinary()))

	return StageSet{
		Plan:    NewPlanStage(cfg, store, logger, probe),
		Fetch:   NewFetchStage(cfg, store, logger, cache, client, probe),
		Compose: NewComposeStage(cfg, store, logger, cache, probe),
		Render:  NewRenderStage(cfg, store, logger, runner),
	}
}

// ConfigureStages registers the stage handlers the workflow will run. Nil
// handlers are skipped and the pipeline chains over the gap, which lets tests
// run partial pipelines.
func (m *Manager) ConfigureStages(set StageSet) {
	stages := make([]pipelineStage, 0, 4)
	start := queue.StatusPending
	if set.Plan != nil {
		stages = append(stages, pipelineStage{
			name:             "plan",
			handler:          set.Plan,
			startStatus:      start,
			processingStatus: queue.StatusPlanning,
			doneStatus:       queue.StatusPlanned,
		})
		start = queue.StatusPlanned
	}
	if set.Fetch != nil {
		stages = append(stages, pipelineStage{
			name:             "fetch",
			handler:          set.Fetch,
			startStatus:      start,
			processingStatus: queue.StatusFetching,
			doneStatus:       queue.StatusFetched,
		})
		start = queue.StatusFetched
	}
	if set.Compose != nil {
		stages = append(stages, pipelineStage{
			name:             "compose",
			handler:          set.Compose,
			startStatus:      start,
			processingStatus: queue.StatusComposing,
			doneStatus:       queue.StatusComposed,
		})
		start = queue.StatusComposed
	}
	if set.Render != nil {
		stages = append(stages, pipelineStage{
			name:             "render",
			handler:          set.Render,
			startStatus:      start,
			processingStatus: queue.StatusRendering,
			doneStatus:       queue.StatusCompleted,
		})
	}

	byStart := make(map[queue.Status]pipelineStage, len(stages))
	order := make([]queue.Status, 0, len(stages))
	for _, stg := range stages {
		byStart[stg.startStatus] = stg
		order = append(order, stg.startStatus)
	}

	m.mu.Lock()
	m.stages = stages
	m.stageByStart = byStart
	m.statusOrder = order
	m.mu.Unlock()
}
