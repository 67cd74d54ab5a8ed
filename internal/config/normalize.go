package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizePexels(); err != nil {
		return err
	}
	c.normalizeCaptions()
	c.normalizeTransitions()
	if err := c.normalizeBroll(); err != nil {
		return err
	}
	c.normalizeRender()
	c.normalizeCache()
	c.normalizeNotifications()
	if err := c.normalizeBrand(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir()
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizePexels() error {
	if value, ok := os.LookupEnv("PEXELS_API_KEY"); ok && strings.TrimSpace(value) != "" {
		c.Pexels.APIKey = strings.TrimSpace(value)
	}
	c.Pexels.APIKey = strings.TrimSpace(c.Pexels.APIKey)
	c.Pexels.BaseURL = strings.TrimSpace(c.Pexels.BaseURL)
	if c.Pexels.BaseURL == "" {
		c.Pexels.BaseURL = defaultPexelsBaseURL
	}
	if c.Pexels.PerPage <= 0 {
		c.Pexels.PerPage = defaultPexelsPerPage
	}
	if c.Pexels.PerPage > 80 {
		// Pexels caps per_page at 80.
		c.Pexels.PerPage = 80
	}
	c.Pexels.Quality = strings.ToLower(strings.TrimSpace(c.Pexels.Quality))
	if c.Pexels.Quality == "" {
		c.Pexels.Quality = defaultPexelsQuality
	}
	if c.Pexels.RequestTimeout <= 0 {
		c.Pexels.RequestTimeout = defaultPexelsRequestTimeout
	}
	if c.Pexels.RateLimitRequests <= 0 {
		c.Pexels.RateLimitRequests = defaultPexelsRateLimitRequests
	}
	if c.Pexels.RateLimitWindowSeconds <= 0 {
		c.Pexels.RateLimitWindowSeconds = defaultPexelsRateLimitWindowSeconds
	}
	return nil
}

func (c *Config) normalizeCaptions() {
	if c.Captions.MaxWordsPerCue <= 0 {
		c.Captions.MaxWordsPerCue = defaultMaxWordsPerCue
	}
	if c.Captions.MergeBelowSeconds < 0 {
		c.Captions.MergeBelowSeconds = defaultCaptionMergeBelowSeconds
	}
	if c.Captions.MinCueSeconds <= 0 {
		c.Captions.MinCueSeconds = defaultCaptionMinCueSeconds
	}
	if c.Captions.MaxCueSeconds <= 0 {
		c.Captions.MaxCueSeconds = defaultCaptionMaxCueSeconds
	}
	c.Captions.Position = strings.ToLower(strings.TrimSpace(c.Captions.Position))
	if c.Captions.Position == "" {
		c.Captions.Position = defaultCaptionPosition
	}
}

func (c *Config) normalizeTransitions() {
	styles := make([]string, 0, len(c.Transitions.Styles))
	for _, style := range c.Transitions.Styles {
		normalized := strings.ToLower(strings.TrimSpace(style))
		if normalized == "" {
			continue
		}
		styles = append(styles, normalized)
	}
	if len(styles) == 0 {
		styles = defaultTransitionStyles()
	}
	c.Transitions.Styles = styles
	if c.Transitions.DurationSeconds <= 0 {
		c.Transitions.DurationSeconds = defaultTransitionDurationSeconds
	}
}

func (c *Config) normalizeBroll() error {
	c.Broll.Fallback = strings.ToLower(strings.TrimSpace(c.Broll.Fallback))
	if c.Broll.Fallback == "" {
		c.Broll.Fallback = defaultBrollFallback
	}
	c.Broll.ShortClipPolicy = strings.ToLower(strings.TrimSpace(c.Broll.ShortClipPolicy))
	if c.Broll.ShortClipPolicy == "" {
		c.Broll.ShortClipPolicy = defaultShortClipPolicy
	}
	if c.Broll.MinSeconds <= 0 {
		c.Broll.MinSeconds = defaultBrollMinSeconds
	}
	if c.Broll.MaxSeconds <= 0 {
		c.Broll.MaxSeconds = defaultBrollMaxSeconds
	}
	if strings.TrimSpace(c.Broll.DefaultClip) != "" {
		expanded, err := expandPath(c.Broll.DefaultClip)
		if err != nil {
			return fmt.Errorf("broll.default_clip: %w", err)
		}
		c.Broll.DefaultClip = expanded
	}
	return nil
}

func (c *Config) normalizeRender() {
	c.Render.Profile = strings.ToLower(strings.TrimSpace(c.Render.Profile))
	if c.Render.Profile == "" {
		c.Render.Profile = defaultRenderProfile
	}
	c.Render.FFmpegBinary = strings.TrimSpace(c.Render.FFmpegBinary)
	c.Render.FFprobeBinary = strings.TrimSpace(c.Render.FFprobeBinary)
	c.Render.Preset = strings.TrimSpace(c.Render.Preset)
	if c.Render.Preset == "" {
		c.Render.Preset = defaultRenderPreset
	}
	c.Render.VideoBitrate = strings.TrimSpace(c.Render.VideoBitrate)
	if c.Render.VideoBitrate == "" {
		c.Render.VideoBitrate = defaultVideoBitrate
	}
	c.Render.AudioBitrate = strings.TrimSpace(c.Render.AudioBitrate)
	if c.Render.AudioBitrate == "" {
		c.Render.AudioBitrate = defaultAudioBitrate
	}
}

func (c *Config) normalizeCache() {
	if c.Cache.MaxGiB <= 0 {
		c.Cache.MaxGiB = defaultCacheMaxGiB
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.WebhookURL = strings.TrimSpace(c.Notifications.WebhookURL)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeBrand() error {
	if strings.TrimSpace(c.Brand.DefaultKit) == "" {
		c.Brand.DefaultKit = ""
		return nil
	}
	expanded, err := expandPath(c.Brand.DefaultKit)
	if err != nil {
		return fmt.Errorf("brand.default_kit: %w", err)
	}
	c.Brand.DefaultKit = expanded
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
