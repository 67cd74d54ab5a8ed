package queue

import (
	"database/sql"
	"strings"
	"time"
)

// jobColumnList orders every jobs-table column; scanJob's Scan call and the
// schema check in CheckHealth both follow it.
var jobColumnList = []string{
	"id", "uuid", "video_path", "transcript_path", "plan_path", "brand_path",
	"output_path", "platform", "status", "plan_json", "fallback_json",
	"error_message", "created_at", "updated_at", "progress_stage",
	"progress_percent", "progress_message", "last_heartbeat", "needs_review",
	"review_reason",
}

var jobColumns = strings.Join(jobColumnList, ", ")

// Timestamps are written as RFC3339Nano; the schema's CURRENT_TIMESTAMP
// defaults produce the space-separated form.
var storedTimeFormats = []string{time.RFC3339Nano, "2006-01-02 15:04:05"}

func parseStoredTime(value string) (time.Time, bool) {
	for _, format := range storedTimeFormats {
		if t, err := time.Parse(format, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.Repeat("?,", count-1) + "?"
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id        int64
		uuidStr   string
		statusStr string
	)
	var row struct {
		videoPath, transcriptPath, planPath, brandPath sql.NullString
		outputPath, platform, planJSON, fallbackJSON   sql.NullString
		errorMessage, createdRaw, updatedRaw           sql.NullString
		progressStage, progressMessage, heartbeatRaw   sql.NullString
		reviewReason                                   sql.NullString
		progressPercent                                sql.NullFloat64
		needsReview                                    sql.NullInt64
	}

	if err := scanner.Scan(
		&id,
		&uuidStr,
		&row.videoPath,
		&row.transcriptPath,
		&row.planPath,
		&row.brandPath,
		&row.outputPath,
		&row.platform,
		&statusStr,
		&row.planJSON,
		&row.fallbackJSON,
		&row.errorMessage,
		&row.createdRaw,
		&row.updatedRaw,
		&row.progressStage,
		&row.progressPercent,
		&row.progressMessage,
		&row.heartbeatRaw,
		&row.needsReview,
		&row.reviewReason,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:              id,
		UUID:            uuidStr,
		VideoPath:       row.videoPath.String,
		TranscriptPath:  row.transcriptPath.String,
		PlanPath:        row.planPath.String,
		BrandPath:       row.brandPath.String,
		OutputPath:      row.outputPath.String,
		Platform:        row.platform.String,
		Status:          Status(statusStr),
		PlanJSON:        row.planJSON.String,
		FallbackJSON:    row.fallbackJSON.String,
		ErrorMessage:    row.errorMessage.String,
		ProgressStage:   row.progressStage.String,
		ProgressPercent: row.progressPercent.Float64,
		ProgressMessage: row.progressMessage.String,
		NeedsReview:     row.needsReview.Int64 != 0,
		ReviewReason:    row.reviewReason.String,
	}

	if created, ok := parseStoredTime(row.createdRaw.String); ok {
		job.CreatedAt = created
	}
	if updated, ok := parseStoredTime(row.updatedRaw.String); ok {
		job.UpdatedAt = updated
	}
	if heartbeat, ok := parseStoredTime(row.heartbeatRaw.String); ok {
		job.LastHeartbeat = &heartbeat
	}
	return job, nil
}
