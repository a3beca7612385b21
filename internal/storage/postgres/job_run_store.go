package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"coin-tracker/internal/domain"
	"coin-tracker/internal/storage"
)

// JobRunStore implements storage.JobRunStore using PostgreSQL.
type JobRunStore struct {
	pool *Pool
}

// NewJobRunStore creates a new JobRunStore.
func NewJobRunStore(pool *Pool) *JobRunStore {
	return &JobRunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.JobRunStore = (*JobRunStore)(nil)

// Record overwrites the job's row with the latest status and details.
func (s *JobRunStore) Record(ctx context.Context, run *domain.JobRun) error {
	if run == nil || run.Name == "" {
		return storage.ErrInvalidInput
	}

	var details []byte
	if run.Details != nil {
		var err error
		details, err = json.Marshal(run.Details)
		if err != nil {
			return fmt.Errorf("marshal job run details: %w", err)
		}
	}

	query := `
		INSERT INTO job_run_log (job_name, last_run_at, last_status, details)
		VALUES ($1, NOW(), $2, $3)
		ON CONFLICT (job_name)
		DO UPDATE SET
			last_run_at = EXCLUDED.last_run_at,
			last_status = EXCLUDED.last_status,
			details     = EXCLUDED.details
	`

	if _, err := s.pool.Exec(ctx, query, run.Name, run.Status, details); err != nil {
		return fmt.Errorf("record job run: %w", err)
	}
	return nil
}
