package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultOutputDir                    = "~/clips"
	defaultStateDir                     = "~/.local/share/clipforge"
	defaultWorkDir                      = "~/.local/share/clipforge/work"
	defaultLogDir                       = "~/.local/share/clipforge/logs"
	defaultLogRetentionDays             = 60
	defaultLogFormat                    = "console"
	defaultLogLevel                     = "info"
	defaultPexelsBaseURL                = "https://api.pexels.com/videos"
	defaultPexelsPerPage                = 15
	defaultPexelsQuality                = "hd"
	defaultPexelsRequestTimeout         = 30
	defaultPexelsRateLimitRequests      = 200
	defaultPexelsRateLimitWindowSeconds = 3600
	defaultMaxWordsPerCue               = 3
	defaultCaptionMergeBelowSeconds     = 0.15
	defaultCaptionMinCueSeconds         = 0.20
	defaultCaptionMaxCueSeconds         = 3.0
	defaultCaptionPosition              = "bottom"
	defaultTransitionDurationSeconds    = 0.5
	defaultBrollFallback                = "skip"
	defaultShortClipPolicy              = "loop"
	defaultBrollMinSeconds              = 2.0
	defaultBrollMaxSeconds              = 5.0
	defaultRenderProfile                = "tiktok"
	defaultRenderPreset                 = "medium"
	defaultVideoBitrate                 = "10M"
	defaultAudioBitrate                 = "192k"
	defaultWorkflowWorkers              = 2
	defaultWorkflowPollInterval         = 5
	defaultWorkflowHeartbeatInterval    = 15
	defaultWorkflowHeartbeatTimeout     = 120
	defaultWorkflowMinFreeGiB           = 1.0
	defaultCacheMaxGiB                  = 20
	defaultNotifyRequestTimeout         = 10
)

// defaultTransitionStyles is the rotation applied when the config names none.
func defaultTransitionStyles() []string {
	return []string{"slideright", "fade", "dissolve", "circleopen", "slideright", "zoomin"}
}

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "clipforge", "clips")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/clipforge/clips"
	}
	return filepath.Join(home, ".cache", "clipforge", "clips")
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			StateDir:  defaultStateDir,
			WorkDir:   defaultWorkDir,
			LogDir:    defaultLogDir,
			CacheDir:  defaultCacheDir(),
		},
		Pexels: Pexels{
			BaseURL:                defaultPexelsBaseURL,
			PerPage:                defaultPexelsPerPage,
			Quality:                defaultPexelsQuality,
			RequestTimeout:         defaultPexelsRequestTimeout,
			RateLimitRequests:      defaultPexelsRateLimitRequests,
			RateLimitWindowSeconds: defaultPexelsRateLimitWindowSeconds,
		},
		Captions: Captions{
			MaxWordsPerCue:    defaultMaxWordsPerCue,
			MergeBelowSeconds: defaultCaptionMergeBelowSeconds,
			MinCueSeconds:     defaultCaptionMinCueSeconds,
			MaxCueSeconds:     defaultCaptionMaxCueSeconds,
			Position:          defaultCaptionPosition,
		},
		Transitions: Transitions{
			Styles:          defaultTransitionStyles(),
			DurationSeconds: defaultTransitionDurationSeconds,
			AudioCrossfade:  true,
		},
		Broll: Broll{
			Fallback:        defaultBrollFallback,
			ShortClipPolicy: defaultShortClipPolicy,
			MinSeconds:      defaultBrollMinSeconds,
			MaxSeconds:      defaultBrollMaxSeconds,
		},
		Render: Render{
			Profile:       defaultRenderProfile,
			FFmpegBinary:  "ffmpeg",
			FFprobeBinary: "ffprobe",
			Preset:        defaultRenderPreset,
			VideoBitrate:  defaultVideoBitrate,
			AudioBitrate:  defaultAudioBitrate,
		},
		Cache: Cache{
			MaxGiB: defaultCacheMaxGiB,
		},
		Workflow: Workflow{
			Workers:           defaultWorkflowWorkers,
			QueuePollInterval: defaultWorkflowPollInterval,
			HeartbeatInterval: defaultWorkflowHeartbeatInterval,
			HeartbeatTimeout:  defaultWorkflowHeartbeatTimeout,
			MinFreeGiB:        defaultWorkflowMinFreeGiB,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Queue:          true,
			Complete:       true,
			Errors:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
