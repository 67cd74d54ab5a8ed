package config

import (
	"errors"
	"fmt"
	"strings"

	"clipforge/internal/timeline"
)

var renderProfiles = map[string]struct{}{
	"tiktok": {},
	"reels":  {},
	"shorts": {},
}

var pexelsQualities = map[string]struct{}{
	"sd":  {},
	"hd":  {},
	"uhd": {},
}

var captionPositions = map[string]struct{}{
	"top":    {},
	"center": {},
	"bottom": {},
}

// Validate ensures the configuration is usable. The Pexels API key is not
// required here: plan and cache commands run offline, and fetch reports a
// configuration error when the key is missing.
func (c *Config) Validate() error {
	if err := c.validatePexels(); err != nil {
		return err
	}
	if err := c.validateCaptions(); err != nil {
		return err
	}
	if err := c.validateTransitions(); err != nil {
		return err
	}
	if err := c.validateBroll(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePexels() error {
	if err := ensurePositiveMap(map[string]int{
		"pexels.per_page":                  c.Pexels.PerPage,
		"pexels.request_timeout":           c.Pexels.RequestTimeout,
		"pexels.rate_limit_requests":       c.Pexels.RateLimitRequests,
		"pexels.rate_limit_window_seconds": c.Pexels.RateLimitWindowSeconds,
	}); err != nil {
		return err
	}
	if _, ok := pexelsQualities[c.Pexels.Quality]; !ok {
		return fmt.Errorf("pexels.quality must be one of sd, hd, uhd (got %q)", c.Pexels.Quality)
	}
	return nil
}

func (c *Config) validateCaptions() error {
	if c.Captions.MaxWordsPerCue < 1 {
		return errors.New("captions.max_words_per_cue must be at least 1")
	}
	if c.Captions.MergeBelowSeconds < 0 {
		return errors.New("captions.merge_below_seconds must be >= 0")
	}
	if c.Captions.MinCueSeconds <= 0 {
		return errors.New("captions.min_cue_seconds must be positive")
	}
	if c.Captions.MaxCueSeconds <= c.Captions.MinCueSeconds {
		return errors.New("captions.max_cue_seconds must be greater than captions.min_cue_seconds")
	}
	if _, ok := captionPositions[c.Captions.Position]; !ok {
		return fmt.Errorf("captions.position must be one of top, center, bottom (got %q)", c.Captions.Position)
	}
	return nil
}

func (c *Config) validateTransitions() error {
	if len(c.Transitions.Styles) == 0 {
		return errors.New("transitions.styles must include at least one style")
	}
	for _, style := range c.Transitions.Styles {
		if _, err := timeline.ParseTransitionStyle(style); err != nil {
			return fmt.Errorf("transitions.styles: %w (valid: %s)", err, joinStyles())
		}
	}
	if c.Transitions.DurationSeconds <= 0 {
		return errors.New("transitions.duration_seconds must be positive")
	}
	return nil
}

func joinStyles() string {
	styles := timeline.TransitionStyles()
	names := make([]string, len(styles))
	for i, style := range styles {
		names[i] = string(style)
	}
	return strings.Join(names, ", ")
}

func (c *Config) validateBroll() error {
	switch c.Broll.Fallback {
	case "skip", "default", "strict":
	default:
		return fmt.Errorf("broll.fallback must be one of skip, default, strict (got %q)", c.Broll.Fallback)
	}
	if c.Broll.Fallback == "default" && strings.TrimSpace(c.Broll.DefaultClip) == "" {
		return errors.New("broll.default_clip must be set when broll.fallback is \"default\"")
	}
	switch c.Broll.ShortClipPolicy {
	case "loop", "freeze":
	default:
		return fmt.Errorf("broll.short_clip_policy must be one of loop, freeze (got %q)", c.Broll.ShortClipPolicy)
	}
	if c.Broll.MinSeconds <= 0 {
		return errors.New("broll.min_seconds must be positive")
	}
	if c.Broll.MaxSeconds <= c.Broll.MinSeconds {
		return errors.New("broll.max_seconds must be greater than broll.min_seconds")
	}
	return nil
}

func (c *Config) validateRender() error {
	if _, ok := renderProfiles[c.Render.Profile]; !ok {
		return fmt.Errorf("render.profile must be one of tiktok, reels, shorts (got %q)", c.Render.Profile)
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.MaxGiB <= 0 {
		return errors.New("cache.max_gib must be positive")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.workers":             c.Workflow.Workers,
		"workflow.queue_poll_interval": c.Workflow.QueuePollInterval,
	}); err != nil {
		return err
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		return errors.New("workflow.heartbeat_timeout must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	if c.Workflow.MinFreeGiB < 0 {
		return errors.New("workflow.min_free_gib must be >= 0 (0 disables the check)")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	if url := c.Notifications.WebhookURL; url != "" {
		if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			return fmt.Errorf("notifications.webhook_url must be an http(s) URL (got %q)", url)
		}
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
