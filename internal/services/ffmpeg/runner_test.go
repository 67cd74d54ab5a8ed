package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func TestNewCLIWithBinary(t *testing.T) {
	cli := NewCLI(WithBinary("/opt/ffmpeg"))
	if cli.binary != "/opt/ffmpeg" {
		t.Fatalf("expected binary override to be applied, got %q", cli.binary)
	}
}

func TestRunRequiresArguments(t *testing.T) {
	cli := NewCLI()
	if err := cli.Run(context.Background(), nil, nil); err == nil {
		t.Fatal("expected error when no arguments are given")
	}
}

func TestRunInjectsProgressFlags(t *testing.T) {
	var capturedArgs []string
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		capturedArgs = append([]string(nil), args...)
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "FFMPEG_HELPER_MODE=success")
		return cmd
	}
	t.Cleanup(func() {
		commandContext = original
	})

	cli := NewCLI()
	if err := cli.Run(context.Background(), []string{"-y", "-i", "in.mp4", "out.mp4"}, nil); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	joined := strings.Join(capturedArgs, " ")
	if !strings.HasPrefix(joined, "-hide_banner -nostats -progress pipe:1 ") {
		t.Fatalf("expected progress flags before caller args, got %v", capturedArgs)
	}
	if !strings.HasSuffix(joined, "-y -i in.mp4 out.mp4") {
		t.Fatalf("expected caller args preserved, got %v", capturedArgs)
	}
}

func TestRunParsesProgressStream(t *testing.T) {
	setHelperCommand(t, "success")

	var updates []Progress
	cli := NewCLI()
	err := cli.Run(context.Background(), []string{"-i", "in.mp4", "out.mp4"}, func(p Progress) {
		updates = append(updates, p)
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(updates) != 2 {
		t.Fatalf("expected 2 progress updates, got %d", len(updates))
	}

	first := updates[0]
	if first.Frame != 15 || first.FPS != 30.0 || first.Speed != 1.2 {
		t.Fatalf("unexpected first update: %+v", first)
	}
	if first.OutTime != 500*time.Millisecond {
		t.Fatalf("expected out time 500ms, got %s", first.OutTime)
	}
	if first.Bitrate != "800.2kbits/s" {
		t.Fatalf("unexpected bitrate %q", first.Bitrate)
	}
	if first.Done {
		t.Fatal("first update should not be final")
	}

	last := updates[1]
	if !last.Done {
		t.Fatal("expected final update to carry Done")
	}
	if last.OutTime != 15*time.Second || last.Frame != 450 {
		t.Fatalf("unexpected final update: %+v", last)
	}
}

func TestRunSkipsMalformedLines(t *testing.T) {
	setHelperCommand(t, "badlines")

	var updates []Progress
	cli := NewCLI()
	err := cli.Run(context.Background(), []string{"-i", "in.mp4", "out.mp4"}, func(p Progress) {
		updates = append(updates, p)
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(updates) != 1 || updates[0].Frame != 99 {
		t.Fatalf("expected one update with frame 99, got %+v", updates)
	}
}

func TestRunReportsStderrTailOnFailure(t *testing.T) {
	setHelperCommand(t, "failure")

	cli := NewCLI()
	err := cli.Run(context.Background(), []string{"-i", "in.mp4", "out.mp4"}, nil)
	if err == nil {
		t.Fatal("expected failure error")
	}
	if !strings.Contains(err.Error(), "No such filter: sparkle") {
		t.Fatalf("expected stderr tail in error, got: %v", err)
	}
}

func TestVersion(t *testing.T) {
	setHelperCommand(t, "version")

	cli := NewCLI()
	version, err := cli.Version(context.Background())
	if err != nil {
		t.Fatalf("Version returned error: %v", err)
	}
	if version != "ffmpeg version 6.1.1 Copyright (c) 2000-2023" {
		t.Fatalf("unexpected version line %q", version)
	}
}

func setHelperCommand(t *testing.T, mode string) {
	t.Helper()
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", fmt.Sprintf("FFMPEG_HELPER_MODE=%s", mode))
		return cmd
	}
	t.Cleanup(func() {
		commandContext = original
	})
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	switch os.Getenv("FFMPEG_HELPER_MODE") {
	case "success":
		fmt.Println("frame=15")
		fmt.Println("fps=30.0")
		fmt.Println("bitrate= 800.2kbits/s")
		fmt.Println("out_time_us=500000")
		fmt.Println("speed=1.2x")
		fmt.Println("progress=continue")
		fmt.Println("frame=450")
		fmt.Println("out_time_us=15000000")
		fmt.Println("speed=1.5x")
		fmt.Println("progress=end")
		os.Exit(0)
	case "badlines":
		fmt.Println("not a progress line")
		fmt.Println("frame=99")
		fmt.Println("progress=end")
		os.Exit(0)
	case "failure":
		fmt.Fprintln(os.Stderr, "[Parsed_xfade_0 @ 0x55] No such filter: sparkle")
		os.Exit(1)
	case "version":
		fmt.Println("ffmpeg version 6.1.1 Copyright (c) 2000-2023")
		fmt.Println("built with gcc 13.2.0")
		os.Exit(0)
	default:
		os.Exit(0)
	}
}
