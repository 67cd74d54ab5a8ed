package timeline

import (
	"fmt"
	"math"
)

// Interval is a half-open time range [Start, End) on a clip timeline,
// expressed in seconds.
type Interval struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// NewInterval validates and constructs an interval.
func NewInterval(start, end float64) (Interval, error) {
	if math.IsNaN(start) || math.IsNaN(end) || math.IsInf(start, 0) || math.IsInf(end, 0) {
		return Interval{}, fmt.Errorf("interval bounds must be finite, got [%v, %v)", start, end)
	}
	if start < 0 {
		return Interval{}, fmt.Errorf("interval start %.3f is negative", start)
	}
	if end <= start {
		return Interval{}, fmt.Errorf("interval end %.3f must be after start %.3f", end, start)
	}
	return Interval{Start: start, End: end}, nil
}

// Duration returns the interval length in seconds.
func (iv Interval) Duration() float64 {
	return iv.End - iv.Start
}

// Overlaps reports whether two half-open intervals share any time span.
// Touching endpoints do not overlap.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start < other.End && other.Start < iv.End
}

// Contains reports whether t falls inside the interval.
func (iv Interval) Contains(t float64) bool {
	return t >= iv.Start && t < iv.End
}

func (iv Interval) String() string {
	return fmt.Sprintf("[%.3f, %.3f)", iv.Start, iv.End)
}

// RoundMS rounds a time in seconds to millisecond resolution. Every boundary
// offset in a plan passes through this single rule so that planner output and
// render offsets agree bit for bit.
func RoundMS(seconds float64) float64 {
	return math.Round(seconds*1000) / 1000
}
