package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"clipforge/internal/config"
)

// ConfigOption adjusts the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t   testing.TB
	dir string
	cfg *config.Config
}

// NewConfig returns a config whose paths all live under a per-test temp
// directory, with the settings that would otherwise block tests (API key,
// disk-space floor) neutralized.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Pexels.APIKey = "test"
	cfg.Workflow.MinFreeGiB = 0
	cfg.Paths = config.Paths{
		OutputDir: filepath.Join(dir, "out"),
		StateDir:  filepath.Join(dir, "state"),
		WorkDir:   filepath.Join(dir, "work"),
		LogDir:    filepath.Join(dir, "logs"),
		CacheDir:  filepath.Join(dir, "cache"),
	}

	builder := &configBuilder{t: t, dir: dir, cfg: &cfg}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithWorkers overrides the worker pool size on the test config.
func WithWorkers(count int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.Workers = count
	}
}

// WithBrollFallback sets the cutaway fallback policy on the test config.
func WithBrollFallback(policy string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Broll.Fallback = policy
	}
}

// WithStubbedBinaries writes no-op executables for the given names into a
// bin dir prepended to PATH for the rest of the test. Defaults to ffmpeg
// and ffprobe when no names are given.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		bin := filepath.Join(b.dir, "bin")
		if err := os.MkdirAll(bin, 0o755); err != nil {
			b.t.Fatalf("create stub bin dir: %v", err)
		}
		for _, name := range names {
			stub := filepath.Join(bin, name)
			if err := os.WriteFile(stub, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
				b.t.Fatalf("stub %s: %v", name, err)
			}
		}
		b.t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir reports the per-test temp root that the config's paths live under.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
