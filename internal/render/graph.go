package render

import (
	"fmt"
	"strconv"
	"strings"

	"clipforge/internal/brand"
	"clipforge/internal/services"
	"clipforge/internal/timeline"
)

// Short-clip policies: how a cutaway clip shorter than its slot is stretched.
const (
	PolicyLoop   = "loop"
	PolicyFreeze = "freeze"
)

const (
	pipWidth       = 400
	pipMargin      = 10
	duckVolume     = "0.5"
	headerFontSize = 64
	headerY        = 120
	headerBoxPad   = 15
)

// Job describes one render: a fully resolved plan plus the assets and encoder
// settings the invocation needs. Cutaway segments must carry SourcePath and
// SourceDuration; the composition stage fills both before handing the plan
// over.
type Job struct {
	Plan            timeline.Plan
	AvatarPath      string
	CaptionsPath    string
	Kit             brand.Kit
	Profile         Profile
	ShortClipPolicy string
	OutputPath      string
}

// chainInput is one -i block feeding the filter graph. pad is the tail the
// tpad filter must clone when the freeze policy left the input short.
type chainInput struct {
	args []string
	pad  float64
}

// pipOverlay pairs a picture-in-picture segment with its dedicated clip input.
type pipOverlay struct {
	seg   timeline.Segment
	input chainInput
}

// BuildArgs assembles the full ffmpeg argument list for a job.
//
// Inputs are ordered: one per plan segment, then one per pip clip, then the
// avatar once more as the audio bed. Each segment input that feeds a
// transition is trimmed with the transition's duration appended as tail, so
// every xfade offset in the chain equals the plan's stored boundary time and
// the output runs exactly TotalDuration. Pip segments keep the avatar as
// their chain input; both sides of a pip boundary then show identical frames
// and the transition blends invisibly.
func BuildArgs(job Job) ([]string, error) {
	if err := validateJob(job); err != nil {
		return nil, err
	}

	segments := job.Plan.Segments
	n := len(segments)
	inputs := make([]chainInput, 0, n)
	for k, seg := range segments {
		length := seg.Duration()
		if k < n-1 {
			length += job.Plan.Transitions[k].Duration
		}
		length = timeline.RoundMS(length)
		switch {
		case seg.Kind == timeline.SegmentAvatar:
			inputs = append(inputs, trimmedInput(job.AvatarPath, seg.SourceOffset, length))
		case seg.DisplayMode == timeline.DisplayPictureInPicture:
			// The avatar keeps running under a pip cutaway; the clip joins
			// later as an overlay input.
			inputs = append(inputs, trimmedInput(job.AvatarPath, seg.Start, length))
		default:
			inputs = append(inputs, clipInput(seg, length, job.ShortClipPolicy))
		}
	}

	pips := make([]pipOverlay, 0)
	for _, seg := range segments {
		if seg.Kind != timeline.SegmentCutaway || seg.DisplayMode != timeline.DisplayPictureInPicture {
			continue
		}
		slot := timeline.RoundMS(seg.Duration())
		pips = append(pips, pipOverlay{seg: seg, input: clipInput(seg, slot, job.ShortClipPolicy)})
	}
	audioIndex := n + len(pips)

	args := []string{"-y"}
	for _, in := range inputs {
		args = append(args, in.args...)
	}
	for _, pip := range pips {
		args = append(args, pip.input.args...)
	}
	args = append(args, "-i", job.AvatarPath)

	args = append(args,
		"-filter_complex", buildGraph(job, inputs, pips, audioIndex),
		"-map", "[vout]",
		"-map", "[aout]",
		"-c:v", "libx264",
		"-preset", job.Profile.Preset,
		"-b:v", job.Profile.VideoBitrate,
		"-c:a", "aac",
		"-b:a", job.Profile.AudioBitrate,
		"-movflags", "+faststart",
		"-t", fmtSeconds(job.Plan.TotalDuration),
		job.OutputPath,
	)
	return args, nil
}

func validateJob(job Job) error {
	if strings.TrimSpace(job.AvatarPath) == "" {
		return services.Wrap(services.ErrValidation, "render", "args", "avatar path is empty", nil)
	}
	if strings.TrimSpace(job.OutputPath) == "" {
		return services.Wrap(services.ErrValidation, "render", "args", "output path is empty", nil)
	}
	if len(job.Plan.Segments) == 0 {
		return services.Wrap(services.ErrValidation, "render", "args", "plan has no segments", nil)
	}
	if got, want := len(job.Plan.Transitions), len(job.Plan.Segments)-1; got != want {
		return services.Wrap(services.ErrValidation, "render", "args",
			fmt.Sprintf("plan has %d transitions for %d segments, want %d", got, len(job.Plan.Segments), want), nil)
	}
	switch job.ShortClipPolicy {
	case PolicyLoop, PolicyFreeze:
	default:
		return services.Wrap(services.ErrConfiguration, "render", "args",
			fmt.Sprintf("short clip policy %q must be %s or %s", job.ShortClipPolicy, PolicyLoop, PolicyFreeze), nil)
	}
	if job.Profile.Width <= 0 || job.Profile.Height <= 0 || job.Profile.FPS <= 0 {
		return services.Wrap(services.ErrConfiguration, "render", "args", "render profile geometry is not set", nil)
	}
	for i, seg := range job.Plan.Segments {
		if seg.Kind != timeline.SegmentCutaway {
			continue
		}
		if strings.TrimSpace(seg.SourcePath) == "" {
			return services.Wrap(services.ErrValidation, "render", "args",
				fmt.Sprintf("cutaway segment %d %s has no source clip", i, seg.Interval), nil)
		}
		if seg.SourceDuration <= 0 {
			return services.Wrap(services.ErrValidation, "render", "args",
				fmt.Sprintf("cutaway segment %d %s has no source duration", i, seg.Interval), nil)
		}
	}
	return nil
}

// trimmedInput reads length seconds of path starting at offset.
func trimmedInput(path string, offset, length float64) chainInput {
	return chainInput{args: []string{"-ss", fmtSeconds(offset), "-t", fmtSeconds(length), "-i", path}}
}

// clipInput reads length seconds of a cutaway clip, applying the short-clip
// policy when the clip cannot cover its slot.
func clipInput(seg timeline.Segment, length float64, policy string) chainInput {
	available := seg.SourceDuration - seg.SourceOffset
	if available >= length-1e-9 {
		return trimmedInput(seg.SourcePath, seg.SourceOffset, length)
	}
	if policy == PolicyLoop {
		in := trimmedInput(seg.SourcePath, seg.SourceOffset, length)
		in.args = append([]string{"-stream_loop", "-1"}, in.args...)
		return in
	}
	// Freeze decodes the whole clip and clones the last frame out to length.
	return chainInput{
		args: []string{"-ss", fmtSeconds(seg.SourceOffset), "-i", seg.SourcePath},
		pad:  timeline.RoundMS(length - available),
	}
}

func buildGraph(job Job, inputs []chainInput, pips []pipOverlay, audioIndex int) string {
	profile := job.Profile
	prep := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,setsar=1,fps=%d,settb=AVTB",
		profile.Width, profile.Height, profile.Width, profile.Height, profile.FPS)

	parts := make([]string, 0, 2*len(inputs))
	for k, in := range inputs {
		chain := prep
		if in.pad > 0 {
			chain = fmt.Sprintf("tpad=stop_mode=clone:stop_duration=%s,%s", fmtSeconds(in.pad), prep)
		}
		parts = append(parts, fmt.Sprintf("[%d:v]%s[s%d]", k, chain, k))
	}

	cur := "s0"
	for j, op := range job.Plan.Transitions {
		out := fmt.Sprintf("x%d", j)
		parts = append(parts, fmt.Sprintf("[%s][s%d]xfade=transition=%s:duration=%s:offset=%s[%s]",
			cur, j+1, op.Style, fmtSeconds(op.Duration), fmtSeconds(op.AtTime), out))
		cur = out
	}

	if job.Kit.Header.Enabled {
		parts = append(parts, fmt.Sprintf("[%s]%s[hdr]", cur, headerFilter(job.Kit)))
		cur = "hdr"
	}

	for i, pip := range pips {
		label := fmt.Sprintf("p%d", i)
		parts = append(parts, fmt.Sprintf("[%d:v]%s[%s]", len(inputs)+i, pipFilter(pip), label))
		out := fmt.Sprintf("o%d", i)
		parts = append(parts, fmt.Sprintf("[%s][%s]overlay=x=main_w-overlay_w-%d:y=main_h-overlay_h-%d:enable='between(t,%s,%s)'[%s]",
			cur, label, pipMargin, pipMargin, fmtSeconds(pip.seg.Start), fmtSeconds(pip.seg.End), out))
		cur = out
	}

	if strings.TrimSpace(job.CaptionsPath) != "" {
		parts = append(parts, fmt.Sprintf("[%s]subtitles=filename=%s[cap]", cur, escapeFilterPath(job.CaptionsPath)))
		cur = "cap"
	}

	parts = append(parts, fmt.Sprintf("[%s]format=yuv420p[vout]", cur))
	parts = append(parts, audioFilter(job.Plan, audioIndex))
	return strings.Join(parts, ";")
}

func headerFilter(kit brand.Kit) string {
	var b strings.Builder
	fmt.Fprintf(&b, "drawtext=text='%s'", escapeDrawText(kit.HeaderText()))
	fmt.Fprintf(&b, ":font='%s'", escapeDrawText(kit.Captions.Font.Family))
	fmt.Fprintf(&b, ":fontsize=%d:fontcolor=%s", headerFontSize, kit.Colors.Primary)
	fmt.Fprintf(&b, ":x=(w-text_w)/2:y=%d", headerY)
	fmt.Fprintf(&b, ":box=1:boxcolor=%s@0.25:boxborderw=%d", kit.Colors.Background, headerBoxPad)
	fmt.Fprintf(&b, ":enable='lt(t,%s)'", fmtSeconds(kit.Header.Seconds))
	return b.String()
}

// pipFilter scales a pip clip to its corner size, applies the segment's
// fades, and shifts its timestamps to the slot start so the overlay enable
// window lines up. Fades run on the alpha plane so the clip dissolves over
// the avatar instead of fading to black.
func pipFilter(pip pipOverlay) string {
	steps := make([]string, 0, 6)
	if pip.input.pad > 0 {
		steps = append(steps, fmt.Sprintf("tpad=stop_mode=clone:stop_duration=%s", fmtSeconds(pip.input.pad)))
	}
	steps = append(steps, fmt.Sprintf("scale=%d:-2", pipWidth))
	slot := pip.seg.Duration()
	if pip.seg.FadeIn > 0 || pip.seg.FadeOut > 0 {
		steps = append(steps, "format=yuva420p")
	}
	if pip.seg.FadeIn > 0 {
		steps = append(steps, fmt.Sprintf("fade=t=in:st=0.000:d=%s:alpha=1", fmtSeconds(pip.seg.FadeIn)))
	}
	if pip.seg.FadeOut > 0 {
		steps = append(steps, fmt.Sprintf("fade=t=out:st=%s:d=%s:alpha=1", fmtSeconds(slot-pip.seg.FadeOut), fmtSeconds(pip.seg.FadeOut)))
	}
	steps = append(steps, fmt.Sprintf("setpts=PTS+%s/TB", fmtSeconds(pip.seg.Start)))
	return strings.Join(steps, ",")
}

// audioFilter builds the audio bed: the avatar track ducked to half volume
// under every full-frame cutaway, or copied untouched when nothing ducks.
// Pip cutaways keep the avatar visible and never duck.
func audioFilter(plan timeline.Plan, audioIndex int) string {
	windows := duckWindows(plan)
	if len(windows) == 0 {
		return fmt.Sprintf("[%d:a]acopy[aout]", audioIndex)
	}
	conditions := make([]string, 0, len(windows))
	for _, w := range windows {
		conditions = append(conditions, fmt.Sprintf("if(between(t,%s,%s),%s,1.0)",
			fmtSeconds(w.from), fmtSeconds(w.to), duckVolume))
	}
	return fmt.Sprintf("[%d:a]volume='%s':eval=frame[aout]", audioIndex, strings.Join(conditions, "*"))
}

type duckWindow struct {
	from, to float64
}

// duckWindows returns one window per full-frame cutaway. Bounds come from
// the audio crossfades at the segment's edges when the plan carries them,
// falling back to the segment interval when crossfades are disabled.
func duckWindows(plan timeline.Plan) []duckWindow {
	fadeAt := make(map[int]timeline.AudioCrossfade, len(plan.AudioFades))
	for _, fade := range plan.AudioFades {
		fadeAt[fade.Boundary] = fade
	}
	var windows []duckWindow
	for i, seg := range plan.Segments {
		if seg.Kind != timeline.SegmentCutaway || seg.DisplayMode != timeline.DisplayFullFrame {
			continue
		}
		w := duckWindow{from: seg.Start, to: seg.End}
		if fade, ok := fadeAt[i-1]; ok {
			w.from = fade.AtTime
		}
		if fade, ok := fadeAt[i]; ok {
			w.to = fade.AtTime
		}
		windows = append(windows, w)
	}
	return windows
}

// fmtSeconds renders a time through the shared millisecond rounding rule, so
// graph offsets match plan values digit for digit.
func fmtSeconds(v float64) string {
	return strconv.FormatFloat(timeline.RoundMS(v), 'f', 3, 64)
}

// escapeDrawText prepares text for a single-quoted drawtext option. A quote
// cannot appear inside a quoted run, so it closes the run, escapes one, and
// reopens.
func escapeDrawText(text string) string {
	text = strings.ReplaceAll(text, `\`, `\\`)
	return strings.ReplaceAll(text, `'`, `'\''`)
}

// escapeFilterPath backslash-escapes a path used as an unquoted filter
// option value. Colons separate filter options and brackets, commas, and
// semicolons are graph syntax.
func escapeFilterPath(path string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`:`, `\:`,
		`'`, `\'`,
		`[`, `\[`,
		`]`, `\]`,
		`,`, `\,`,
		`;`, `\;`,
	)
	return replacer.Replace(path)
}
