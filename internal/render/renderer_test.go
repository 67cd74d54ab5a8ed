package render_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"clipforge/internal/render"
	"clipforge/internal/services"
	"clipforge/internal/services/ffmpeg"
)

type fakeRunner struct {
	args        []string
	calls       int
	err         error
	writeOutput bool
	updates     []ffmpeg.Progress
}

func (f *fakeRunner) Run(_ context.Context, args []string, progress func(ffmpeg.Progress)) error {
	f.calls++
	f.args = args
	for _, update := range f.updates {
		if progress != nil {
			progress(update)
		}
	}
	if f.err != nil {
		return f.err
	}
	if f.writeOutput {
		return os.WriteFile(args[len(args)-1], []byte("mp4"), 0o644)
	}
	return nil
}

func (f *fakeRunner) Version(context.Context) (string, error) {
	return "ffmpeg version test", nil
}

func TestRenderRunsJobAndVerifiesOutput(t *testing.T) {
	runner := &fakeRunner{
		writeOutput: true,
		updates: []ffmpeg.Progress{
			{Frame: 30, OutTime: time.Second},
			{Frame: 450, OutTime: 15 * time.Second, Done: true},
		},
	}
	job := testJob(t)
	job.OutputPath = filepath.Join(t.TempDir(), "renders", "final.mp4")

	var got []ffmpeg.Progress
	renderer := render.NewRenderer(runner, nil)
	err := renderer.Render(context.Background(), job, func(p ffmpeg.Progress) {
		got = append(got, p)
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if runner.calls != 1 {
		t.Fatalf("runner ran %d times", runner.calls)
	}
	if last := runner.args[len(runner.args)-1]; last != job.OutputPath {
		t.Errorf("last arg = %s, want output path", last)
	}
	if len(got) != 2 || !got[1].Done {
		t.Errorf("progress updates = %+v", got)
	}
	if _, err := os.Stat(job.OutputPath); err != nil {
		t.Errorf("output file missing: %v", err)
	}
}

func TestRenderWrapsRunnerFailure(t *testing.T) {
	runner := &fakeRunner{err: errors.New("exit status 1")}
	job := testJob(t)
	job.OutputPath = filepath.Join(t.TempDir(), "final.mp4")

	err := render.NewRenderer(runner, nil).Render(context.Background(), job, nil)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestRenderFailsWhenOutputMissing(t *testing.T) {
	runner := &fakeRunner{writeOutput: false}
	job := testJob(t)
	job.OutputPath = filepath.Join(t.TempDir(), "final.mp4")

	err := render.NewRenderer(runner, nil).Render(context.Background(), job, nil)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestRenderRejectsInvalidJobBeforeRunning(t *testing.T) {
	runner := &fakeRunner{}
	job := testJob(t)
	job.AvatarPath = ""

	err := render.NewRenderer(runner, nil).Render(context.Background(), job, nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if runner.calls != 0 {
		t.Errorf("runner ran %d times for an invalid job", runner.calls)
	}
}
