package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// probeArgs are fixed for every inspection; only the target path varies.
var probeArgs = []string{"-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--"}

// Result is the decoded ffprobe report for one media file.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes one stream in the container.
type Stream struct {
	Index        int    `json:"index"`
	CodecName    string `json:"codec_name"`
	CodecType    string `json:"codec_type"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	AvgFrameRate string `json:"avg_frame_rate"`
	RFrameRate   string `json:"r_frame_rate"`
}

// Format carries container-level metadata.
type Format struct {
	Filename   string `json:"filename"`
	Duration   string `json:"duration"`
	FormatName string `json:"format_name"`
}

// Inspect runs ffprobe against path and decodes the JSON it prints. An empty
// binary falls back to "ffprobe" on PATH.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	if binary = strings.TrimSpace(binary); binary == "" {
		binary = "ffprobe"
	}
	if path = strings.TrimSpace(path); path == "" {
		return Result{}, errors.New("ffprobe: empty media path")
	}

	args := append(append([]string(nil), probeArgs...), path)
	output, err := exec.CommandContext(ctx, binary, args...).CombinedOutput()
	if err != nil {
		return Result{}, fmt.Errorf("run ffprobe: %w: %s", err, strings.TrimSpace(string(output)))
	}

	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, fmt.Errorf("decode ffprobe output: %w", err)
	}
	return result, nil
}

// VideoStream returns the first video stream, or nil when the container has
// none.
func (r Result) VideoStream() *Stream { return r.streamOfType("video") }

// AudioStream returns the first audio stream, or nil when the container has
// none.
func (r Result) AudioStream() *Stream { return r.streamOfType("audio") }

func (r Result) streamOfType(codecType string) *Stream {
	for i := range r.Streams {
		if strings.EqualFold(r.Streams[i].CodecType, codecType) {
			return &r.Streams[i]
		}
	}
	return nil
}

// DurationSeconds returns the container duration in seconds, or 0 when
// unavailable or malformed.
func (r Result) DurationSeconds() float64 {
	return parseFloat(r.Format.Duration)
}

// FrameRate returns the stream's frame rate in frames per second, preferring
// the average rate over the raw rate, or 0 when neither parses.
func (s Stream) FrameRate() float64 {
	if fps := parseRational(s.AvgFrameRate); fps > 0 {
		return fps
	}
	return parseRational(s.RFrameRate)
}

// parseRational parses ffprobe's "num/den" rate notation.
func parseRational(value string) float64 {
	value = strings.TrimSpace(value)
	if value == "" || value == "0/0" {
		return 0
	}
	num, den, found := strings.Cut(value, "/")
	if !found {
		return parseFloat(value)
	}
	n := parseFloat(num)
	d := parseFloat(den)
	if d == 0 {
		return 0
	}
	return n / d
}

// parseFloat reads ffprobe's numeric strings. Unparseable values, "N/A"
// included, and negatives collapse to 0.
func parseFloat(value string) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(parsed) || parsed < 0 {
		return 0
	}
	return parsed
}
