package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

var commandContext = exec.CommandContext

// Progress captures one update from ffmpeg's key=value progress stream.
type Progress struct {
	Frame   int64
	FPS     float64
	Bitrate string
	OutTime time.Duration
	Speed   float64
	Done    bool
}

// Runner executes assembled ffmpeg invocations.
type Runner interface {
	Run(ctx context.Context, args []string, progress func(Progress)) error
	Version(ctx context.Context) (string, error)
}

// Option configures the CLI runner.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// CLI runs the system ffmpeg binary.
type CLI struct {
	binary string
}

// NewCLI constructs a CLI runner using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "ffmpeg"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Run launches ffmpeg with the provided arguments plus a progress stream on
// stdout. Progress callbacks fire once per reporting block; the final block
// carries Done. Stderr is collected and folded into the returned error on
// failure.
func (c *CLI) Run(ctx context.Context, args []string, progress func(Progress)) error {
	if len(args) == 0 {
		return errors.New("ffmpeg arguments required")
	}

	full := append([]string{"-hide_banner", "-nostats", "-progress", "pipe:1"}, args...)
	cmd := commandContext(ctx, c.binary, full...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	var stderr tailBuffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	update := Progress{}
	for scanner.Scan() {
		key, value, found := strings.Cut(scanner.Text(), "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch key {
		case "frame":
			update.Frame = parseInt(value)
		case "fps":
			update.FPS = parseFloat(value)
		case "bitrate":
			update.Bitrate = value
		case "out_time_us", "out_time_ms":
			// Both keys report microseconds.
			update.OutTime = time.Duration(parseInt(value)) * time.Microsecond
		case "speed":
			update.Speed = parseFloat(strings.TrimSuffix(value, "x"))
		case "progress":
			update.Done = value == "end"
			if progress != nil {
				progress(update)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read ffmpeg output: %w", err)
	}

	if err := cmd.Wait(); err != nil {
		if tail := stderr.Tail(); tail != "" {
			return fmt.Errorf("ffmpeg failed: %w: %s", err, tail)
		}
		return fmt.Errorf("ffmpeg failed: %w", err)
	}
	return nil
}

// Version reports the first line of ffmpeg -version output.
func (c *CLI) Version(ctx context.Context) (string, error) {
	cmd := commandContext(ctx, c.binary, "-version")
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("ffmpeg version: %w", err)
	}
	line, _, _ := strings.Cut(string(output), "\n")
	return strings.TrimSpace(line), nil
}

var _ Runner = (*CLI)(nil)

func parseInt(value string) int64 {
	parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}

func parseFloat(value string) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return parsed
}

// tailBuffer keeps the last few stderr lines so failures stay diagnosable
// without buffering a full encode log in memory.
type tailBuffer struct {
	lines   []string
	partial strings.Builder
}

const tailLines = 12

func (b *tailBuffer) Write(p []byte) (int, error) {
	for _, c := range string(p) {
		if c == '\n' {
			b.push(b.partial.String())
			b.partial.Reset()
			continue
		}
		b.partial.WriteRune(c)
	}
	return len(p), nil
}

func (b *tailBuffer) push(line string) {
	line = strings.TrimRight(line, "\r")
	if strings.TrimSpace(line) == "" {
		return
	}
	b.lines = append(b.lines, line)
	if len(b.lines) > tailLines {
		b.lines = b.lines[len(b.lines)-tailLines:]
	}
}

func (b *tailBuffer) Tail() string {
	if b.partial.Len() > 0 {
		b.push(b.partial.String())
		b.partial.Reset()
	}
	return strings.TrimSpace(strings.Join(b.lines, "\n"))
}
