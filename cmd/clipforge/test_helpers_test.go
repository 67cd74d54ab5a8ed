package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipforge/internal/config"
	"clipforge/internal/queue"
	"clipforge/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	store      *queue.Store
	baseDir    string
	configPath string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	home := filepath.Join(base, "home")
	t.Setenv("HOME", home)
	t.Setenv("PEXELS_API_KEY", "")

	cfg := testsupport.NewConfig(t, opts...)
	cfg.Pexels.APIKey = ""

	configPath := filepath.Join(home, ".config", "clipforge", "config.toml")
	for _, dir := range []string{home, filepath.Dir(configPath)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		store:      testsupport.MustOpenStore(t, cfg),
		baseDir:    base,
		configPath: configPath,
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}

	var out, errOut bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// writeTestConfig points every path at the test sandbox and disables the
// disk-space floor so results do not depend on the host filesystem.
func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	writeFile(t, path, fmt.Sprintf(`[paths]
output_dir = %q
state_dir = %q
work_dir = %q
log_dir = %q
cache_dir = %q

[workflow]
min_free_gib = 0.0
`,
		cfg.Paths.OutputDir,
		cfg.Paths.StateDir,
		cfg.Paths.WorkDir,
		cfg.Paths.LogDir,
		cfg.Paths.CacheDir,
	))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}
