package logging

import (
	"math"
	"strings"
)

// ProgressSampler drops repetitive render-progress updates, keeping only
// those where the stage changes or the completion percent crosses a step
// boundary. ffmpeg reports progress many times per second; the queue and the
// log need a handful of updates per job, not thousands.
type ProgressSampler struct {
	step   float64
	stage  string
	bucket int
}

// NewProgressSampler returns a sampler emitting every step percent. A
// non-positive step selects the default of 5.
func NewProgressSampler(step float64) *ProgressSampler {
	if step <= 0 {
		step = 5
	}
	return &ProgressSampler{step: step, bucket: -1}
}

// ShouldLog reports whether this update is worth recording. A negative
// percent means unknown and defers to stage changes alone. A nil sampler
// passes everything through.
func (s *ProgressSampler) ShouldLog(percent float64, stage string) bool {
	if s == nil {
		return true
	}
	emit := false
	if stage = strings.TrimSpace(stage); stage != "" && stage != s.stage {
		s.stage = stage
		s.bucket = -1
		emit = true
	}
	if percent >= 0 {
		bucket := int(math.Min(percent, 100) / s.step)
		if bucket > s.bucket {
			s.bucket = bucket
			emit = true
		}
	}
	return emit
}

// Reset clears sampler state between jobs.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.stage = ""
	s.bucket = -1
}
