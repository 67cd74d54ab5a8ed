package preflight

import (
	"context"
	"strings"

	"clipforge/internal/config"
)

// Result is the outcome of one environment check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every preflight check that applies to the given config.
// Checks whose feature is not configured are skipped.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	// The pipeline cannot run without its working directories.
	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("Cache directory", cfg.Paths.CacheDir),
	}

	// Jobs can queue while output storage is offline.
	if out := strings.TrimSpace(cfg.Paths.OutputDir); out != "" {
		results = append(results, CheckDirectoryAccess("Output directory", out))
	}
	if cfg.Workflow.MinFreeGiB > 0 {
		floor := uint64(cfg.Workflow.MinFreeGiB * (1 << 30))
		results = append(results, CheckDiskSpace("Work disk space", cfg.Paths.WorkDir, floor))
	}
	if key := strings.TrimSpace(cfg.Pexels.APIKey); key != "" {
		results = append(results, CheckPexels(ctx, cfg.Pexels.BaseURL, key))
	}
	if strings.EqualFold(strings.TrimSpace(cfg.Broll.Fallback), "default") {
		results = append(results, CheckFileAccess("Fallback clip", cfg.Broll.DefaultClip))
	}
	if kit := strings.TrimSpace(cfg.Brand.DefaultKit); kit != "" {
		results = append(results, CheckBrandKit(kit))
	}
	if hook := strings.TrimSpace(cfg.Notifications.WebhookURL); hook != "" {
		results = append(results, CheckWebhook(hook))
	}
	return results
}
