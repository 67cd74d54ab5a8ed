package queue

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion gates the on-disk layout. There is no migration path; a
// bumped version means the job database must be cleared or deleted.
const schemaVersion = 1

// ErrSchemaMismatch reports a job database written by an incompatible build.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// initSchema creates the schema on a fresh database and verifies the stored
// version on an existing one.
func (s *Store) initSchema(ctx context.Context) error {
	version, initialized, err := s.storedSchemaVersion(ctx)
	if err != nil {
		return err
	}
	if !initialized {
		return s.createSchema(ctx)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (run 'clipforge jobs clear --all' or delete the database)",
			ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

// storedSchemaVersion reads the version row, distinguishing a brand-new
// database (no schema_version table) from a versioned one.
func (s *Store) storedSchemaVersion(ctx context.Context) (version int, initialized bool, err error) {
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	switch {
	case err == nil:
		return version, true, nil
	case errors.Is(err, sql.ErrNoRows):
		// Table exists but the version row is missing; treat as uninitialized
		// so createSchema can repair it.
		return 0, false, nil
	}

	var tables int
	probe := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'")
	if probeErr := probe.Scan(&tables); probeErr != nil {
		return 0, false, fmt.Errorf("check schema_version table: %w", probeErr)
	}
	if tables == 0 {
		return 0, false, nil
	}
	return 0, false, fmt.Errorf("read schema version: %w", err)
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}
