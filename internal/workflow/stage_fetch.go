package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"log/slog"

	"clipforge/internal/clipcache"
	"clipforge/internal/composition"
	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/queue"
	"clipforge/internal/services"
	"clipforge/internal/services/pexels"
	"clipforge/internal/stage"
	"clipforge/internal/textutil"
	"clipforge/internal/timeline"
)

// fetchStage resolves each cutaway query to footage in the clip cache,
// downloading from Pexels on cache misses. Unavailable clips follow the
// configured fallback policy; the decisions are recorded on the job so the
// compose stage can honor them.
type fetchStage struct {
	cfg    *config.Config
	store  *queue.Store
	logger *slog.Logger
	cache  *clipcache.Store
	client pexels.Client
	probe  composition.ProbeFunc
}

// NewFetchStage constructs the fetch stage handler. A nil client is allowed;
// jobs without cutaways pass through and jobs with cutaways fail with a
// configuration error.
func NewFetchStage(cfg *config.Config, store *queue.Store, logger *slog.Logger, cache *clipcache.Store, client pexels.Client, probe composition.ProbeFunc) stage.Handler {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String(logging.FieldComponent, "fetch-stage"))
	}
	return &fetchStage{cfg: cfg, store: store, logger: stageLogger, cache: cache, client: client, probe: probe}
}

func (f *fetchStage) Prepare(ctx context.Context, job *queue.Job) error {
	if _, err := stage.ParsePlan(job.PlanJSON); err != nil {
		return err
	}
	if f.cache == nil {
		return services.Wrap(services.ErrConfiguration, "fetch", "validate inputs",
			"Clip cache unavailable; check cache_dir permissions", nil)
	}
	job.ProgressMessage = "Preparing clip fetch"
	job.ProgressPercent = 0
	return nil
}

func (f *fetchStage) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, f.logger)

	plan, err := stage.ParsePlan(job.PlanJSON)
	if err != nil {
		return err
	}
	requests := cutawayRequests(plan)
	if len(requests) == 0 {
		job.FallbackJSON = ""
		f.updateProgress(ctx, job, "No cutaway footage requested", 100)
		logger.Info("no cutaways to fetch")
		return nil
	}
	if f.client == nil {
		return services.Wrap(services.ErrConfiguration, "fetch", "pexels",
			"Pexels API key not configured; set PEXELS_API_KEY or pexels.api_key", nil)
	}

	policy := strings.ToLower(strings.TrimSpace(f.cfg.Broll.Fallback))
	events := make([]queue.FallbackEvent, 0, len(requests))
	var unavailable []string
	fetched := 0

	for i, req := range requests {
		percent := float64(i) / float64(len(requests)) * 100
		f.updateProgress(ctx, job, fmt.Sprintf("Fetching clip %d of %d: %s", i+1, len(requests), req.Query), percent)

		downloaded := false
		fetch := f.clipFetcher(req)
		entry, err := f.cache.Fetch(ctx, req.Query, func(ctx context.Context, destPath string) (clipcache.FetchResult, error) {
			downloaded = true
			return fetch(ctx, destPath)
		})
		if err != nil {
			if errors.Is(err, services.ErrClipUnavailable) {
				action := policy
				if action != "default" && action != "strict" {
					action = "skip"
				}
				if action == "strict" {
					unavailable = append(unavailable, req.Query)
					continue
				}
				events = append(events, queue.FallbackEvent{Query: req.Query, Action: action})
				attrs := append(logging.DecisionAttrs("broll_fallback", action, err.Error()),
					logging.String(logging.FieldQuery, req.Query),
				)
				logger.Info("cutaway fallback applied", logging.Args(attrs...)...)
				continue
			}
			return err
		}
		fetched++
		logger.Info("clip ready",
			logging.String(logging.FieldQuery, req.Query),
			logging.String("origin", textutil.Ternary(downloaded, "download", "cache")),
			logging.String("source", entry.Source),
			logging.Float64("clip_duration", entry.DurationSeconds),
			logging.Int64("size_bytes", entry.SizeBytes),
		)
	}

	if len(unavailable) > 0 {
		return services.Wrap(services.ErrClipUnavailable, "fetch", "broll",
			fmt.Sprintf("No clip available for queries: %s", strings.Join(unavailable, ", ")), nil)
	}
	if err := job.SetFallbacks(events); err != nil {
		return services.Wrap(services.ErrValidation, "fetch", "record fallbacks", "Failed to record fallback decisions", err)
	}

	f.updateProgress(ctx, job, fmt.Sprintf("Fetched %d of %d clips", fetched, len(requests)), 100)
	logger.Info("clip fetch complete",
		logging.Int("requested", len(requests)),
		logging.Int("fetched", fetched),
		logging.Int("fallbacks", len(events)),
	)
	return nil
}

// clipFetcher adapts one cutaway request into a cache fetch: search, pick the
// best rendition, download to the cache's staging path, and probe the
// downloaded file for the ledger. Probed dimensions win over the API's
// advertised ones.
func (f *fetchStage) clipFetcher(req timeline.BrollRequest) clipcache.FetchFunc {
	return func(ctx context.Context, destPath string) (clipcache.FetchResult, error) {
		videos, err := f.client.Search(ctx, req.Query, f.cfg.Pexels.PerPage)
		if err != nil {
			return clipcache.FetchResult{}, err
		}
		needed := f.neededClipSeconds(req)
		file, ok := pexels.BestMatch(videos, needed, f.cfg.Pexels.Quality)
		if !ok {
			return clipcache.FetchResult{}, services.Wrap(services.ErrClipUnavailable, "fetch", "match",
				fmt.Sprintf("No clip of at least %.1fs found for %q", needed, req.Query), nil)
		}
		if err := f.client.Download(ctx, file, destPath); err != nil {
			return clipcache.FetchResult{}, err
		}
		info, err := f.probe(ctx, destPath)
		if err != nil {
			return clipcache.FetchResult{}, err
		}
		width, height := file.Width, file.Height
		if info.Width > 0 {
			width, height = info.Width, info.Height
		}
		return clipcache.FetchResult{
			DurationSeconds: info.Duration,
			Width:           width,
			Height:          height,
			Source:          "pexels",
		}, nil
	}
}

// neededClipSeconds bounds the clip duration a request asks the API for.
// Slots shorter than broll.min_seconds still fetch a clip of at least the
// floor, and slots past broll.max_seconds accept shorter footage; the
// short-clip policy stretches it over the slot at render time.
func (f *fetchStage) neededClipSeconds(req timeline.BrollRequest) float64 {
	needed := req.Duration()
	if min := f.cfg.Broll.MinSeconds; min > 0 && needed < min {
		needed = min
	}
	if max := f.cfg.Broll.MaxSeconds; max > 0 && needed > max {
		needed = max
	}
	return needed
}

// HealthCheck reports degraded when no Pexels client is configured; jobs
// without cutaways still process.
func (f *fetchStage) HealthCheck(ctx context.Context) stage.Health {
	const name = "fetch"
	if f.cache == nil {
		return stage.Unhealthy(name, "clip cache unavailable")
	}
	if f.client == nil {
		return stage.Unhealthy(name, "pexels api key not configured; cutaway fetch will fail")
	}
	return stage.Healthy(name)
}

func (f *fetchStage) updateProgress(ctx context.Context, job *queue.Job, message string, percent float64) {
	job.SetProgress(job.ProgressStage, message, percent)
	if err := f.store.UpdateProgress(ctx, job); err != nil {
		logging.WithContext(ctx, f.logger).Warn("failed to persist fetch progress", logging.Error(err))
	}
}
