package main

import (
	"context"
	"os"
	"testing"

	"clipforge/internal/clipcache"
	"clipforge/internal/logging"
)

func seedCacheEntry(t *testing.T, root, query string) {
	t.Helper()
	cache, err := clipcache.Open(root, 1<<30, logging.NewNop())
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	defer cache.Close()

	_, err = cache.Fetch(context.Background(), query, func(ctx context.Context, destPath string) (clipcache.FetchResult, error) {
		if err := os.WriteFile(destPath, []byte("stock footage"), 0o644); err != nil {
			return clipcache.FetchResult{}, err
		}
		return clipcache.FetchResult{DurationSeconds: 12, Width: 1920, Height: 1080, Source: "pexels"}, nil
	})
	if err != nil {
		t.Fatalf("seed cache entry: %v", err)
	}
}

func TestCacheStatsEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"cache", "stats"}, env.configPath)
	if err != nil {
		t.Fatalf("cache stats failed: %v", err)
	}
	requireContains(t, out, "Entries: 0")
}

func TestCacheLsShowsEntries(t *testing.T) {
	env := setupCLITestEnv(t)
	seedCacheEntry(t, env.cfg.Paths.CacheDir, "city skyline")

	out, _, err := runCLI(t, []string{"cache", "ls"}, env.configPath)
	if err != nil {
		t.Fatalf("cache ls failed: %v", err)
	}
	requireContains(t, out, "city skyline")
	requireContains(t, out, "pexels")
	requireContains(t, out, "1920x1080")
}

func TestCacheClearRemovesEntries(t *testing.T) {
	env := setupCLITestEnv(t)
	seedCacheEntry(t, env.cfg.Paths.CacheDir, "city skyline")

	out, _, err := runCLI(t, []string{"cache", "clear"}, env.configPath)
	if err != nil {
		t.Fatalf("cache clear failed: %v", err)
	}
	requireContains(t, out, "Removed 1 cached clips")

	out, _, err = runCLI(t, []string{"cache", "ls"}, env.configPath)
	if err != nil {
		t.Fatalf("cache ls after clear failed: %v", err)
	}
	requireContains(t, out, "Cache is empty")
}
