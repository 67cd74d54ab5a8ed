package services

import (
	"errors"
	"fmt"
	"strings"

	"clipforge/internal/queue"
)

var (
	// Planning and timeline validation failures.
	ErrOverlap       = errors.New("overlapping intervals")
	ErrOutOfRange    = errors.New("interval out of range")
	ErrEmptyInput    = errors.New("empty input")
	ErrUnsortedInput = errors.New("unsorted input")

	// Clip cache failures.
	ErrClipUnavailable = errors.New("clip unavailable")
	ErrCacheWrite      = errors.New("cache write error")

	// Ambient failure classes shared across stages.
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// reviewMarkers are the failure classes an operator resolves by fixing the
// job's inputs; every other failure is eligible for retry.
var reviewMarkers = []error{
	ErrValidation,
	ErrConfiguration,
	ErrNotFound,
	ErrOverlap,
	ErrOutOfRange,
	ErrEmptyInput,
	ErrUnsortedInput,
}

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later status classification. The marker should
// be one of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	detail := buildDetail(stage, operation, message)
	if err == nil {
		return fmt.Errorf("%w: %s", marker, detail)
	}
	return fmt.Errorf("%w: %s: %w", marker, detail, err)
}

// FailureStatus maps a stage error to the queue status the workflow manager
// should persist after the stage fails.
func FailureStatus(err error) queue.Status {
	for _, marker := range reviewMarkers {
		if errors.Is(err, marker) {
			return queue.StatusReview
		}
	}
	return queue.StatusFailed
}

func buildDetail(stage, operation, message string) string {
	var parts []string
	for _, part := range []string{stage, operation, message} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
