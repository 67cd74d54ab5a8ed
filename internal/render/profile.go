package render

import (
	"sort"
	"strings"

	"clipforge/internal/services"
)

// Profile fixes the output geometry and encoder settings for one target
// platform. All current targets share the 1080x1920 portrait canvas; the
// profile still travels with the job so geometry stays a per-job fact
// rather than a package constant.
type Profile struct {
	Name         string
	Width        int
	Height       int
	FPS          int
	VideoBitrate string
	AudioBitrate string
	Preset       string
}

func builtinProfiles() map[string]Profile {
	base := Profile{
		Width:        1080,
		Height:       1920,
		FPS:          30,
		VideoBitrate: "10M",
		AudioBitrate: "192k",
		Preset:       "medium",
	}
	profiles := make(map[string]Profile, 3)
	for _, name := range []string{"tiktok", "reels", "shorts"} {
		p := base
		p.Name = name
		profiles[name] = p
	}
	return profiles
}

// Profiles lists the built-in target profiles sorted by name.
func Profiles() []Profile {
	byName := builtinProfiles()
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]Profile, 0, len(names))
	for _, name := range names {
		out = append(out, byName[name])
	}
	return out
}

// ProfileByName resolves a configured profile name.
func ProfileByName(name string) (Profile, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	profile, ok := builtinProfiles()[key]
	if !ok {
		return Profile{}, services.Wrap(services.ErrConfiguration, "render", "profile",
			"unknown render profile "+name+", expected tiktok, reels, or shorts", nil)
	}
	return profile, nil
}

// Override returns a copy with any non-empty encoder settings applied.
// Geometry is fixed per profile and cannot be overridden.
func (p Profile) Override(preset, videoBitrate, audioBitrate string) Profile {
	if preset = strings.TrimSpace(preset); preset != "" {
		p.Preset = preset
	}
	if videoBitrate = strings.TrimSpace(videoBitrate); videoBitrate != "" {
		p.VideoBitrate = videoBitrate
	}
	if audioBitrate = strings.TrimSpace(audioBitrate); audioBitrate != "" {
		p.AudioBitrate = audioBitrate
	}
	return p
}
