package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"clipforge/internal/timeline"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	StateDir  string `toml:"state_dir"`
	WorkDir   string `toml:"work_dir"`
	LogDir    string `toml:"log_dir"`
	CacheDir  string `toml:"cache_dir"`
}

// Pexels contains configuration for the Pexels video API.
type Pexels struct {
	APIKey                 string `toml:"api_key"`
	BaseURL                string `toml:"base_url"`
	PerPage                int    `toml:"per_page"`
	Quality                string `toml:"quality"`
	RequestTimeout         int    `toml:"request_timeout"`
	RateLimitRequests      int    `toml:"rate_limit_requests"`
	RateLimitWindowSeconds int    `toml:"rate_limit_window_seconds"`
}

// Captions contains cue grouping thresholds and placement.
// Visual styling (font, colors) comes from the brand kit.
type Captions struct {
	MaxWordsPerCue    int     `toml:"max_words_per_cue"`
	MergeBelowSeconds float64 `toml:"merge_below_seconds"`
	MinCueSeconds     float64 `toml:"min_cue_seconds"`
	MaxCueSeconds     float64 `toml:"max_cue_seconds"`
	Position          string  `toml:"position"`
}

// Transitions contains the style rotation applied at segment boundaries.
type Transitions struct {
	Styles          []string `toml:"styles"`
	DurationSeconds float64  `toml:"duration_seconds"`
	AudioCrossfade  bool     `toml:"audio_crossfade"`
}

// Broll contains cutaway sourcing policy.
type Broll struct {
	Fallback        string  `toml:"fallback"`
	DefaultClip     string  `toml:"default_clip"`
	ShortClipPolicy string  `toml:"short_clip_policy"`
	MinSeconds      float64 `toml:"min_seconds"`
	MaxSeconds      float64 `toml:"max_seconds"`
}

// Render contains encoder selection and output tuning.
type Render struct {
	Profile       string `toml:"profile"`
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
	Preset        string `toml:"preset"`
	VideoBitrate  string `toml:"video_bitrate"`
	AudioBitrate  string `toml:"audio_bitrate"`
}

// Cache contains clip cache sizing.
type Cache struct {
	MaxGiB int `toml:"max_gib"`
}

// Workflow contains worker pool sizing and pipeline timing.
type Workflow struct {
	Workers           int     `toml:"workers"`
	QueuePollInterval int     `toml:"queue_poll_interval"`
	HeartbeatInterval int     `toml:"heartbeat_interval"`
	HeartbeatTimeout  int     `toml:"heartbeat_timeout"`
	MinFreeGiB        float64 `toml:"min_free_gib"`
}

// Notifications contains webhook notification settings.
type Notifications struct {
	WebhookURL     string `toml:"webhook_url"`
	RequestTimeout int    `toml:"request_timeout"`
	Queue          bool   `toml:"queue"`
	Complete       bool   `toml:"complete"`
	Errors         bool   `toml:"errors"`
}

// Brand contains the default brand kit location.
type Brand struct {
	DefaultKit string `toml:"default_kit"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for ClipForge.
//
// Configuration sections by subsystem:
//   - Paths: output, state, work, log, and cache directories
//   - Pexels: stock footage API credentials and rate limit budget
//   - Captions: cue grouping thresholds and on-screen placement
//   - Transitions: boundary style rotation and crossfade timing
//   - Broll: cutaway fallback policy and clip length bounds
//   - Render: target platform profile and encoder tuning
//   - Cache: clip cache size ceiling
//   - Workflow: worker pool sizing and heartbeat timing
//   - Notifications: webhook targets for job lifecycle events
//   - Brand: default brand kit location
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Pexels        Pexels        `toml:"pexels"`
	Captions      Captions      `toml:"captions"`
	Transitions   Transitions   `toml:"transitions"`
	Broll         Broll         `toml:"broll"`
	Render        Render        `toml:"render"`
	Cache         Cache         `toml:"cache"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Brand         Brand         `toml:"brand"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/clipforge/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	_ = godotenv.Load() // best-effort: load .env if present

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	cfg := Default()
	if exists {
		data, err := os.ReadFile(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

// resolveConfigPath picks the file to load: an explicit path wins, then the
// user-level config, then a clipforge.toml in the working directory. The
// returned flag reports whether the file exists.
func resolveConfigPath(path string) (string, bool, error) {
	if strings.TrimSpace(path) != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		switch _, err := os.Stat(expanded); {
		case err == nil:
			return expanded, true, nil
		case errors.Is(err, fs.ErrNotExist):
			return expanded, false, nil
		default:
			return "", false, fmt.Errorf("stat config: %w", err)
		}
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("clipforge.toml")
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{defaultPath, projectPath} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for pipeline operation.
// OutputDir is created on a best-effort basis so jobs can be queued while
// external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	required := []string{c.Paths.StateDir, c.Paths.WorkDir, c.Paths.LogDir, c.Paths.CacheDir}
	for _, dir := range required {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if out := strings.TrimSpace(c.Paths.OutputDir); out != "" {
		_ = os.MkdirAll(out, 0o755)
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable used for rendering.
func (c *Config) FFmpegBinary() string {
	if bin := strings.TrimSpace(c.Render.FFmpegBinary); bin != "" {
		return bin
	}
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable used for media inspection.
func (c *Config) FFprobeBinary() string {
	if bin := strings.TrimSpace(c.Render.FFprobeBinary); bin != "" {
		return bin
	}
	return "ffprobe"
}

// TransitionStyles returns the configured style rotation parsed into timeline
// values. Entries that fail to parse are skipped; an empty result falls back
// to the repository default rotation. Validate rejects unknown names, so a
// loaded config never hits either branch.
func (c *Config) TransitionStyles() []timeline.TransitionStyle {
	styles := make([]timeline.TransitionStyle, 0, len(c.Transitions.Styles))
	for _, raw := range c.Transitions.Styles {
		style, err := timeline.ParseTransitionStyle(raw)
		if err != nil {
			continue
		}
		styles = append(styles, style)
	}
	if len(styles) == 0 {
		for _, raw := range defaultTransitionStyles() {
			style, err := timeline.ParseTransitionStyle(raw)
			if err != nil {
				continue
			}
			styles = append(styles, style)
		}
	}
	return styles
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return "", nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		switch {
		case pathValue == "~":
			pathValue = home
		case pathValue[1] == '/' || pathValue[1] == '\\':
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
