// Package brand loads and validates brand kits: the identity and caption
// styling applied to every video rendered for a channel.
//
// A kit is a YAML document (JSON also parses, since yaml.v3 accepts it)
// holding the brand name, optional logo and watermark art, a color palette,
// caption font styling, and the header shown during the opening seconds.
// Missing fields fall back to repository defaults, so a kit may specify as
// little as a name.
package brand

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"clipforge/internal/config"
	"clipforge/internal/services"
)

// Animation styles for caption rendering.
const (
	AnimationNone          = "none"
	AnimationWordHighlight = "word_highlight"
)

// Text transforms applied to caption text at render time.
const (
	TransformNone  = "none"
	TransformUpper = "upper"
	TransformTitle = "title"
)

var hexColorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Colors is the brand palette. All values are #RRGGBB hex.
type Colors struct {
	Primary    string `yaml:"primary"`
	Secondary  string `yaml:"secondary"`
	Background string `yaml:"background"`
}

// Font describes the caption typeface.
type Font struct {
	Family string `yaml:"family"`
	Weight string `yaml:"weight"`
	Size   int    `yaml:"size"`
}

// Captions describes how cues are drawn on the canvas.
type Captions struct {
	Font           Font   `yaml:"font"`
	Color          string `yaml:"color"`
	HighlightColor string `yaml:"highlight_color"`
	ShadowColor    string `yaml:"shadow_color"`
	Animation      string `yaml:"animation"`
	TextTransform  string `yaml:"text_transform"`
}

// Header describes the brand banner shown at the top of the video.
type Header struct {
	Enabled bool    `yaml:"enabled"`
	Text    string  `yaml:"text"`
	Seconds float64 `yaml:"seconds"`
}

// Kit is a complete brand kit.
type Kit struct {
	Name      string   `yaml:"name"`
	Logo      string   `yaml:"logo"`
	Watermark string   `yaml:"watermark"`
	Colors    Colors   `yaml:"colors"`
	Captions  Captions `yaml:"captions"`
	Header    Header   `yaml:"header"`
}

// Default returns the kit applied when a job names none.
func Default() Kit {
	return Kit{
		Name: "BrainBinge",
		Colors: Colors{
			Primary:    "#F7B801",
			Secondary:  "#FFFFFF",
			Background: "#000000",
		},
		Captions: Captions{
			Font: Font{
				Family: "Montserrat",
				Weight: "bold",
				Size:   60,
			},
			Color:          "#FFFFFF",
			HighlightColor: "#F7B801",
			ShadowColor:    "#000000",
			Animation:      AnimationWordHighlight,
			TextTransform:  TransformNone,
		},
		Header: Header{
			Enabled: true,
			Seconds: 3,
		},
	}
}

// Load reads a kit from path, filling unset fields from Default. An empty
// path returns the default kit.
func Load(path string) (Kit, error) {
	kit := Default()
	if strings.TrimSpace(path) == "" {
		return kit, nil
	}

	expanded, err := config.ExpandPath(path)
	if err != nil {
		return Kit{}, services.Wrap(services.ErrConfiguration, "brand", "load", "resolve kit path", err)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return Kit{}, services.Wrap(services.ErrConfiguration, "brand", "load", fmt.Sprintf("read kit %s", expanded), err)
	}
	if err := yaml.Unmarshal(data, &kit); err != nil {
		return Kit{}, services.Wrap(services.ErrConfiguration, "brand", "load", fmt.Sprintf("parse kit %s", expanded), err)
	}

	kit.normalize()
	if err := kit.Validate(); err != nil {
		return Kit{}, err
	}
	return kit, nil
}

func (k *Kit) normalize() {
	defaults := Default()
	k.Name = strings.TrimSpace(k.Name)
	if k.Name == "" {
		k.Name = defaults.Name
	}
	if strings.TrimSpace(k.Colors.Primary) == "" {
		k.Colors.Primary = defaults.Colors.Primary
	}
	if strings.TrimSpace(k.Colors.Secondary) == "" {
		k.Colors.Secondary = defaults.Colors.Secondary
	}
	if strings.TrimSpace(k.Colors.Background) == "" {
		k.Colors.Background = defaults.Colors.Background
	}
	if strings.TrimSpace(k.Captions.Font.Family) == "" {
		k.Captions.Font.Family = defaults.Captions.Font.Family
	}
	if strings.TrimSpace(k.Captions.Font.Weight) == "" {
		k.Captions.Font.Weight = defaults.Captions.Font.Weight
	}
	if k.Captions.Font.Size == 0 {
		k.Captions.Font.Size = defaults.Captions.Font.Size
	}
	if strings.TrimSpace(k.Captions.Color) == "" {
		k.Captions.Color = defaults.Captions.Color
	}
	if strings.TrimSpace(k.Captions.HighlightColor) == "" {
		k.Captions.HighlightColor = defaults.Captions.HighlightColor
	}
	if strings.TrimSpace(k.Captions.ShadowColor) == "" {
		k.Captions.ShadowColor = defaults.Captions.ShadowColor
	}
	k.Captions.Animation = strings.ToLower(strings.TrimSpace(k.Captions.Animation))
	if k.Captions.Animation == "" {
		k.Captions.Animation = defaults.Captions.Animation
	}
	k.Captions.TextTransform = strings.ToLower(strings.TrimSpace(k.Captions.TextTransform))
	if k.Captions.TextTransform == "" {
		k.Captions.TextTransform = TransformNone
	}
	if k.Header.Seconds <= 0 {
		k.Header.Seconds = defaults.Header.Seconds
	}
}

// Validate checks color formats, font bounds, and animation names.
func (k *Kit) Validate() error {
	colors := map[string]string{
		"colors.primary":           k.Colors.Primary,
		"colors.secondary":         k.Colors.Secondary,
		"colors.background":        k.Colors.Background,
		"captions.color":           k.Captions.Color,
		"captions.highlight_color": k.Captions.HighlightColor,
		"captions.shadow_color":    k.Captions.ShadowColor,
	}
	for field, value := range colors {
		if !hexColorPattern.MatchString(value) {
			return services.Wrap(services.ErrValidation, "brand", "validate",
				fmt.Sprintf("%s must be #RRGGBB hex (got %q)", field, value), nil)
		}
	}
	if k.Captions.Font.Size < 12 || k.Captions.Font.Size > 200 {
		return services.Wrap(services.ErrValidation, "brand", "validate",
			fmt.Sprintf("captions.font.size must be between 12 and 200 (got %d)", k.Captions.Font.Size), nil)
	}
	switch k.Captions.Animation {
	case AnimationNone, AnimationWordHighlight:
	default:
		return services.Wrap(services.ErrValidation, "brand", "validate",
			fmt.Sprintf("captions.animation must be %q or %q (got %q)", AnimationNone, AnimationWordHighlight, k.Captions.Animation), nil)
	}
	switch k.Captions.TextTransform {
	case TransformNone, TransformUpper, TransformTitle:
	default:
		return services.Wrap(services.ErrValidation, "brand", "validate",
			fmt.Sprintf("captions.text_transform must be %q, %q, or %q (got %q)", TransformNone, TransformUpper, TransformTitle, k.Captions.TextTransform), nil)
	}
	return nil
}

// HeaderText returns the banner text, defaulting to "<Name> Video".
func (k Kit) HeaderText() string {
	if text := strings.TrimSpace(k.Header.Text); text != "" {
		return text
	}
	return k.Name + " Video"
}

// ASSColor converts a #RRGGBB hex color to the ASS &H00BBGGRR form used in
// style definitions.
func ASSColor(hex string) (string, error) {
	if !hexColorPattern.MatchString(hex) {
		return "", fmt.Errorf("invalid color %q", hex)
	}
	var r, g, b int
	if _, err := fmt.Sscanf(strings.ToUpper(hex), "#%02X%02X%02X", &r, &g, &b); err != nil {
		return "", fmt.Errorf("parse color %q: %w", hex, err)
	}
	return fmt.Sprintf("&H00%02X%02X%02X", b, g, r), nil
}
