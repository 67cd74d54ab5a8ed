package queue

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Status represents the lifecycle of a composition job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPlanning  Status = "planning"
	StatusPlanned   Status = "planned"
	StatusFetching  Status = "fetching"
	StatusFetched   Status = "fetched"
	StatusComposing Status = "composing"
	StatusComposed  Status = "composed"
	StatusRendering Status = "rendering"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusReview    Status = "review"
)

var allStatuses = []Status{
	StatusPending,
	StatusPlanning,
	StatusPlanned,
	StatusFetching,
	StatusFetched,
	StatusComposing,
	StatusComposed,
	StatusRendering,
	StatusCompleted,
	StatusFailed,
	StatusReview,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusPlanning:  {},
	StatusFetching:  {},
	StatusComposing: {},
	StatusRendering: {},
}

type statusTransition struct {
	from Status
	to   Status
}

// stageRollbackTransitions map each in-flight status back to the status a job
// held before its current stage started, so interrupted work can restart.
var stageRollbackTransitions = []statusTransition{
	{from: StatusPlanning, to: StatusPending},
	{from: StatusFetching, to: StatusPlanned},
	{from: StatusComposing, to: StatusFetched},
	{from: StatusRendering, to: StatusComposed},
}

// DatabaseHealth captures diagnostic information about the job database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalJobs        int
	Error            string
}

// HealthSummary describes aggregated job counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Failed     int
	Completed  int
	Review     int
}

// JobSpec describes the inputs for a new composition job.
type JobSpec struct {
	VideoPath      string
	TranscriptPath string
	PlanPath       string
	BrandPath      string
	OutputPath     string
	Platform       string
}

// Job represents a composition job persisted in SQLite.
type Job struct {
	ID              int64
	UUID            string
	VideoPath       string
	TranscriptPath  string
	PlanPath        string
	BrandPath       string
	OutputPath      string
	Platform        string
	Status          Status
	PlanJSON        string
	FallbackJSON    string
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
	LastHeartbeat   *time.Time
	NeedsReview     bool
	ReviewReason    string
}

// FallbackEvent records how one unavailable cutaway request was resolved.
type FallbackEvent struct {
	Query  string `json:"query"`
	Action string `json:"action"`
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the status reflects an in-flight stage.
func (j Job) IsProcessing() bool {
	_, ok := processingStatuses[j.Status]
	return ok
}

// IsProcessingStatus reports whether a status reflects an in-flight stage.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// IsTerminal reports whether the job has finished, successfully or not.
func (j Job) IsTerminal() bool {
	switch j.Status {
	case StatusCompleted, StatusFailed, StatusReview:
		return true
	default:
		return false
	}
}

// WorkDir returns the per-job scratch directory rooted at base.
func (j Job) WorkDir(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return ""
	}
	segment := strings.TrimSpace(j.UUID)
	if segment == "" {
		segment = fmt.Sprintf("job-%d", j.ID)
	}
	return filepath.Join(base, segment)
}

// SetFallbacks records the fallback decisions applied during clip fetching.
func (j *Job) SetFallbacks(events []FallbackEvent) error {
	if len(events) == 0 {
		j.FallbackJSON = ""
		return nil
	}
	data, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("marshal fallback events: %w", err)
	}
	j.FallbackJSON = string(data)
	return nil
}

// Fallbacks returns the recorded fallback decisions, if any.
func (j Job) Fallbacks() []FallbackEvent {
	if strings.TrimSpace(j.FallbackJSON) == "" {
		return nil
	}
	var events []FallbackEvent
	if err := json.Unmarshal([]byte(j.FallbackJSON), &events); err != nil {
		return nil
	}
	return events
}

// InitProgress resets progress fields for a new stage.
// If ProgressStage is currently empty, it is set to the provided stage value;
// otherwise the existing stage is preserved (to support resume scenarios).
// ProgressMessage is set to message, ProgressPercent is reset to 0,
// and ErrorMessage is cleared.
func (j *Job) InitProgress(stage, message string) {
	if j.ProgressStage == "" {
		j.ProgressStage = stage
	}
	j.ProgressMessage = message
	j.ProgressPercent = 0
	j.ErrorMessage = ""
}

// SetProgress updates all three progress fields together.
func (j *Job) SetProgress(stage, message string, percent float64) {
	j.ProgressStage = stage
	j.ProgressMessage = message
	j.ProgressPercent = percent
}

// SetProgressComplete sets progress to 100% with the given stage and message.
func (j *Job) SetProgressComplete(stage, message string) {
	j.SetProgress(stage, message, 100)
}

// SetFailed marks the job as failed with the given error message.
// Clears heartbeat and sets progress fields appropriately.
func (j *Job) SetFailed(message string) {
	j.Status = StatusFailed
	j.ErrorMessage = message
	j.ProgressPercent = 0
	j.ProgressMessage = message
	j.LastHeartbeat = nil
	j.ProgressStage = "Failed"
}

// StageKey returns the normalized stage identifier used in CLI presentation.
func (s Status) StageKey() string {
	switch s {
	case "":
		return ""
	case StatusPending:
		return "queued"
	case StatusPlanning, StatusPlanned:
		return "planning"
	case StatusFetching, StatusFetched:
		return "fetching"
	case StatusComposing, StatusComposed:
		return "composing"
	case StatusRendering:
		return "rendering"
	case StatusCompleted:
		return "done"
	case StatusFailed:
		return "failed"
	case StatusReview:
		return "review"
	default:
		return ""
	}
}
