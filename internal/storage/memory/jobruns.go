package memory

import (
	"context"

	"coin-tracker/internal/domain"
	"coin-tracker/internal/storage"
)

// Record overwrites the job's row with the latest status and details.
func (s *Store) Record(ctx context.Context, run *domain.JobRun) error {
	if run == nil || run.Name == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *run
	s.jobRuns[run.Name] = &copied
	return nil
}

// LastRun returns the most recent recorded run for a job, or nil.
func (s *Store) LastRun(name string) *domain.JobRun {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.jobRuns[name]
	if !ok {
		return nil
	}
	copied := *run
	return &copied
}
