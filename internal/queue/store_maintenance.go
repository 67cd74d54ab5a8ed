package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates job counts for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	var health HealthSummary
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusPending:
			health.Pending += count
		case StatusFailed:
			health.Failed += count
		case StatusCompleted:
			health.Completed += count
		case StatusReview:
			health.Review += count
		default:
			if _, ok := processingStatuses[status]; ok {
				health.Processing += count
			}
		}
	}
	return health, nil
}

// healthCheckTimeout bounds the doctor probes so a wedged database cannot
// hang the CLI.
const healthCheckTimeout = 2 * time.Second

// CheckHealth returns diagnostic information about the job database file,
// its schema, and SQLite's own integrity check.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.path, SchemaVersion: "current"}

	if s.path == "" {
		return health, errors.New("job database path is unknown")
	}
	switch info, err := os.Stat(s.path); {
	case errors.Is(err, os.ErrNotExist):
		return health, nil
	case err != nil:
		return health, fmt.Errorf("stat job database: %w", err)
	case info.IsDir():
		return health, fmt.Errorf("job database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	if s.db == nil {
		return health, errors.New("job database connection unavailable")
	}

	probeCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	if err := s.db.PingContext(probeCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping job database: %w", err)
	}
	health.DatabaseReadable = true

	exists, err := s.jobsTableExists(probeCtx)
	if err != nil {
		health.Error = err.Error()
		return health, err
	}
	health.TableExists = exists

	if exists {
		columns, err := s.jobsTableColumns(probeCtx)
		if err != nil {
			health.Error = err.Error()
			return health, err
		}
		health.ColumnsPresent = columns
		health.MissingColumns = missingColumns(columns)

		if err := s.db.QueryRowContext(probeCtx, "SELECT COUNT(*) FROM jobs").Scan(&health.TotalJobs); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("count jobs: %w", err)
		}
	}

	var integrity string
	if err := s.db.QueryRowContext(probeCtx, "PRAGMA integrity_check").Scan(&integrity); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrity, "ok")

	return health, nil
}

func (s *Store) jobsTableExists(ctx context.Context) (bool, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'jobs'").Scan(&name)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	default:
		return false, fmt.Errorf("query table info: %w", err)
	}
}

func (s *Store) jobsTableColumns(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "PRAGMA table_info(jobs)")
	if err != nil {
		return nil, fmt.Errorf("table info: %w", err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var (
			cid     int
			name    string
			typeStr string
			notNull int
			dflt    any
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typeStr, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan table info: %w", err)
		}
		columns = append(columns, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table info: %w", err)
	}
	return columns, nil
}

// missingColumns diffs the live table against jobColumnList, the canonical
// column list every query selects.
func missingColumns(present []string) []string {
	have := make(map[string]struct{}, len(present))
	for _, col := range present {
		have[col] = struct{}{}
	}
	var missing []string
	for _, col := range jobColumnList {
		if _, ok := have[col]; !ok {
			missing = append(missing, col)
		}
	}
	return missing
}
