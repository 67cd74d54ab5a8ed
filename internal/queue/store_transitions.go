package queue

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// stageRestarts maps each in-flight status to the checkpoint it restarts
// from. An interrupted stage reruns in full; there is no partial resume.
var stageRestarts = []struct{ from, to Status }{
	{StatusPlanning, StatusPending},
	{StatusFetching, StatusPlanned},
	{StatusComposing, StatusFetched},
	{StatusRendering, StatusComposed},
}

func stageResetClause() (string, []any) {
	var b strings.Builder
	b.WriteString("CASE status")
	args := make([]any, 0, len(stageRestarts)*2)
	for _, r := range stageRestarts {
		b.WriteString(" WHEN ? THEN ?")
		args = append(args, r.from, r.to)
	}
	b.WriteString(" ELSE status END")
	return b.String(), args
}

func inFlightStatuses() []any {
	statuses := make([]any, len(stageRestarts))
	for i, r := range stageRestarts {
		statuses[i] = r.from
	}
	return statuses
}

// ResetStuckProcessing returns every in-flight job to the start of its
// current stage. Used on startup after an unclean shutdown.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	caseSQL, args := stageResetClause()
	query := `UPDATE jobs SET status = ` + caseSQL + `,
            progress_stage = 'Reset from stuck processing',
            progress_percent = 0, progress_message = NULL, last_heartbeat = NULL, updated_at = ?
        WHERE status IN (` + makePlaceholders(len(stageRestarts)) + `)`
	args = append(args, time.Now().UTC().Format(time.RFC3339Nano))
	args = append(args, inFlightStatuses()...)

	res, err := s.exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("reset stuck jobs: %w", err)
	}
	return res.RowsAffected()
}

// ReclaimStaleProcessing does the same for jobs whose worker heartbeat
// predates cutoff, catching workers that died without cleanup.
func (s *Store) ReclaimStaleProcessing(ctx context.Context, cutoff time.Time) (int64, error) {
	caseSQL, args := stageResetClause()
	query := `UPDATE jobs SET status = ` + caseSQL + `,
            progress_stage = 'Reclaimed from stale processing',
            progress_percent = 0, progress_message = NULL, last_heartbeat = NULL, updated_at = ?
        WHERE status IN (` + makePlaceholders(len(stageRestarts)) + `)
          AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`
	args = append(args, time.Now().UTC().Format(time.RFC3339Nano))
	args = append(args, inFlightStatuses()...)
	args = append(args, cutoff.UTC().Format(time.RFC3339Nano))

	res, err := s.exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale jobs: %w", err)
	}
	return res.RowsAffected()
}

// UpdateHeartbeat stamps an in-flight job so reclaim passes leave it alone.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	stamp := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := s.exec(ctx,
		`UPDATE jobs SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		stamp, stamp, id,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// RetryFailed moves failed jobs back to pending. With no ids every failed
// job is retried; otherwise only the named ones.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	query := `UPDATE jobs
        SET status = ?, progress_stage = 'Retry requested', progress_percent = 0,
            progress_message = NULL, error_message = NULL, updated_at = ?
        WHERE status = ?`
	args := []any{StatusPending, time.Now().UTC().Format(time.RFC3339Nano), StatusFailed}
	if len(ids) > 0 {
		query += ` AND id IN (` + makePlaceholders(len(ids)) + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}

	res, err := s.exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry failed jobs: %w", err)
	}
	return res.RowsAffected()
}
