package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipforge/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFileAccess(t *testing.T) {
	f := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckFileAccess("test", f); !result.Passed {
		t.Fatalf("expected pass for readable file, got: %s", result.Detail)
	}
	if result := CheckFileAccess("test", filepath.Join(t.TempDir(), "nope.mp4")); result.Passed {
		t.Fatal("expected failure for missing file")
	}
	if result := CheckFileAccess("test", ""); result.Passed {
		t.Fatal("expected failure for empty path")
	}
}

func TestCheckDiskSpace(t *testing.T) {
	dir := t.TempDir()
	if result := CheckDiskSpace("test", dir, 1); !result.Passed {
		t.Fatalf("expected pass for 1-byte floor, got: %s", result.Detail)
	}
	result := CheckDiskSpace("test", dir, 1<<62)
	if result.Passed {
		t.Fatal("expected failure for unsatisfiable floor")
	}
	if !strings.Contains(result.Detail, "need") {
		t.Errorf("expected detail to name the required floor, got: %s", result.Detail)
	}
	if result := CheckDiskSpace("test", filepath.Join(dir, "nope"), 1); result.Passed {
		t.Fatal("expected failure for missing path")
	}
}

func TestCheckPexels_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "good-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	result := CheckPexels(context.Background(), srv.URL, "good-key")
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckPexels_BadKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	result := CheckPexels(context.Background(), srv.URL, "bad-key")
	if result.Passed {
		t.Fatal("expected failure for bad key")
	}
}

func TestCheckPexels_RateLimitedStillPasses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	result := CheckPexels(context.Background(), srv.URL, "key")
	if !result.Passed {
		t.Fatalf("expected rate-limited key to pass, got: %s", result.Detail)
	}
}

func TestCheckPexels_MissingKey(t *testing.T) {
	result := CheckPexels(context.Background(), "http://localhost", "")
	if result.Passed {
		t.Fatal("expected failure for missing key")
	}
}

func TestCheckWebhook(t *testing.T) {
	if result := CheckWebhook("https://hooks.example.com/clipforge"); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if result := CheckWebhook("ftp://example.com"); result.Passed {
		t.Fatal("expected failure for unsupported scheme")
	}
	if result := CheckWebhook("not a url %%"); result.Passed {
		t.Fatal("expected failure for malformed url")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Paths.WorkDir = t.TempDir()
	cfg.Paths.CacheDir = t.TempDir()
	cfg.Paths.OutputDir = ""
	cfg.Pexels.APIKey = ""
	cfg.Notifications.WebhookURL = ""
	cfg.Workflow.MinFreeGiB = 0

	results := RunAll(context.Background(), &cfg)
	// State, work, and cache directory checks only.
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for _, r := range results {
		if !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
}

func TestRunAll_IncludesPexelsWhenConfigured(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Paths.WorkDir = t.TempDir()
	cfg.Paths.CacheDir = t.TempDir()
	cfg.Paths.OutputDir = ""
	cfg.Pexels.APIKey = "test"
	cfg.Pexels.BaseURL = srv.URL

	results := RunAll(context.Background(), &cfg)
	found := false
	for _, r := range results {
		if r.Name == "Pexels API" {
			found = true
			if !r.Passed {
				t.Errorf("pexels check failed: %s", r.Detail)
			}
		}
	}
	if !found {
		t.Fatal("expected pexels check to run when api key is set")
	}
}

func TestRunAll_IncludesFallbackClipWhenPolicyDefault(t *testing.T) {
	clip := filepath.Join(t.TempDir(), "default.mp4")
	if err := os.WriteFile(clip, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Paths.WorkDir = t.TempDir()
	cfg.Paths.CacheDir = t.TempDir()
	cfg.Paths.OutputDir = ""
	cfg.Pexels.APIKey = ""
	cfg.Broll.Fallback = "default"
	cfg.Broll.DefaultClip = clip

	results := RunAll(context.Background(), &cfg)
	found := false
	for _, r := range results {
		if r.Name == "Fallback clip" {
			found = true
			if !r.Passed {
				t.Errorf("fallback clip check failed: %s", r.Detail)
			}
		}
	}
	if !found {
		t.Fatal("expected fallback clip check when policy is default")
	}
}

func TestRunAll_IncludesDiskSpaceWhenFloorSet(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Paths.WorkDir = t.TempDir()
	cfg.Paths.CacheDir = t.TempDir()
	cfg.Paths.OutputDir = ""
	cfg.Pexels.APIKey = ""
	cfg.Workflow.MinFreeGiB = 0.000001

	results := RunAll(context.Background(), &cfg)
	found := false
	for _, r := range results {
		if r.Name == "Work disk space" {
			found = true
			if !r.Passed {
				t.Errorf("disk space check failed: %s", r.Detail)
			}
		}
	}
	if !found {
		t.Fatal("expected disk space check when a floor is configured")
	}
}
