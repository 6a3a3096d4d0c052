package badger

import (
	"context"
	"fmt"
	"sync"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
	"github.com/wongohq/wongo/internal/interfaces"
	"github.com/wongohq/wongo/internal/models"
)

// claimRetries bounds how often a claim is retried after a write conflict
const claimRetries = 5

// JobStorage implements the JobStorage interface for Badger
type JobStorage struct {
	db     *BadgerDB
	logger arbor.ILogger

	// claimMu serializes in-process claimers so concurrent workers cannot
	// read the same pending job before either commits
	claimMu sync.Mutex
}

// NewJobStorage creates a new JobStorage instance
func NewJobStorage(db *BadgerDB, logger arbor.ILogger) interfaces.JobStorage {
	return &JobStorage{
		db:     db,
		logger: logger,
	}
}

func (s *JobStorage) Enqueue(ctx context.Context, job *models.Job) error {
	if job == nil || job.ID == "" {
		return fmt.Errorf("job ID is required")
	}
	if job.Status == "" {
		job.Status = models.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}

	if err := s.db.Store().Insert(job.ID, job); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}

	s.logger.Debug().
		Str("job_id", job.ID).
		Str("type", string(job.Type)).
		Msg("Job enqueued")
	return nil
}

// ClaimNextPending claims the oldest eligible pending job inside a single
// Badger transaction. The status is re-checked before the update so two
// claimers racing on the same job cannot both win; the loser either sees a
// non-pending status or hits a write conflict and retries on the next job.
func (s *JobStorage) ClaimNextPending(ctx context.Context, jobType models.JobType) (*models.Job, error) {
	s.claimMu.Lock()
	defer s.claimMu.Unlock()

	var claimed *models.Job
	for attempt := 0; attempt < claimRetries; attempt++ {
		claimed = nil
		err := s.db.Store().Badger().Update(func(tx *badgerdb.Txn) error {
			var candidates []models.Job
			query := badgerhold.Where("Status").Eq(models.JobStatusPending).
				And("Type").Eq(jobType).
				SortBy("CreatedAt")
			if err := s.db.Store().TxFind(tx, &candidates, query); err != nil {
				return fmt.Errorf("failed to find pending jobs: %w", err)
			}

			for i := range candidates {
				job := candidates[i]
				if job.AttemptsExhausted() {
					continue
				}

				// Re-read under the transaction in case the candidate list
				// is stale
				var current models.Job
				if err := s.db.Store().TxGet(tx, job.ID, &current); err != nil {
					return fmt.Errorf("failed to re-read job: %w", err)
				}
				if current.Status != models.JobStatusPending {
					continue
				}

				now := time.Now()
				current.Status = models.JobStatusProcessing
				current.Attempts++
				current.StartedAt = &now
				if err := s.db.Store().TxUpdate(tx, current.ID, &current); err != nil {
					return fmt.Errorf("failed to claim job: %w", err)
				}
				claimed = &current
				return nil
			}
			return nil
		})
		if err == badgerdb.ErrConflict {
			continue
		}
		if err != nil {
			return nil, err
		}
		break
	}

	if claimed != nil {
		s.logger.Debug().
			Str("job_id", claimed.ID).
			Int("attempts", claimed.Attempts).
			Msg("Job claimed")
	}
	return claimed, nil
}

func (s *JobStorage) MarkCompleted(ctx context.Context, id string) error {
	return s.finish(id, models.JobStatusCompleted, "")
}

func (s *JobStorage) MarkFailed(ctx context.Context, id string, message string) error {
	return s.finish(id, models.JobStatusFailed, message)
}

func (s *JobStorage) finish(id string, status models.JobStatus, message string) error {
	var job models.Job
	if err := s.db.Store().Get(id, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return interfaces.ErrNotFound
		}
		return fmt.Errorf("failed to get job: %w", err)
	}

	// Terminal states are final; a second completion or failure is a no-op
	if job.Status.IsTerminal() {
		return nil
	}

	now := time.Now()
	job.Status = status
	job.CompletedAt = &now
	if message != "" {
		job.ErrorMessage = message
	}

	if err := s.db.Store().Update(id, &job); err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	return nil
}

func (s *JobStorage) Requeue(ctx context.Context, id string) error {
	var job models.Job
	if err := s.db.Store().Get(id, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return interfaces.ErrNotFound
		}
		return fmt.Errorf("failed to get job: %w", err)
	}

	job.Status = models.JobStatusPending
	job.ErrorMessage = ""
	job.StartedAt = nil
	job.CompletedAt = nil

	if err := s.db.Store().Update(id, &job); err != nil {
		return fmt.Errorf("failed to requeue job: %w", err)
	}

	s.logger.Debug().
		Str("job_id", id).
		Int("attempts", job.Attempts).
		Int("max_attempts", job.MaxAttempts).
		Msg("Job requeued")
	return nil
}

func (s *JobStorage) GetJob(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	if err := s.db.Store().Get(id, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}
