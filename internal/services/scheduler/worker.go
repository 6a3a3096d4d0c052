package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/wongohq/wongo/internal/interfaces"
	"github.com/wongohq/wongo/internal/models"
)

// Generator runs the manuscript generation pipeline for one claimed payload
type Generator interface {
	Generate(ctx context.Context, payload *models.GeneratePayload) error
}

// Worker polls the durable queue for manuscript generation jobs and drives
// each claimed job through the generator. The claim is exclusive, so running
// several workers against the same store is safe.
type Worker struct {
	jobs         interfaces.JobStorage
	manuscripts  interfaces.ManuscriptStorage
	sources      interfaces.SourceStorage
	generator    Generator
	pollInterval time.Duration
	logger       arbor.ILogger
	processing   atomic.Bool
}

// NewWorker creates a manuscript worker polling at the given cadence
func NewWorker(
	jobs interfaces.JobStorage,
	manuscripts interfaces.ManuscriptStorage,
	sources interfaces.SourceStorage,
	generator Generator,
	pollInterval time.Duration,
	logger arbor.ILogger,
) *Worker {
	if pollInterval <= 0 {
		pollInterval = 3 * time.Second
	}
	return &Worker{
		jobs:         jobs,
		manuscripts:  manuscripts,
		sources:      sources,
		generator:    generator,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// Run polls until the context is cancelled
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info().
		Str("poll_interval", w.pollInterval.String()).
		Msg("Manuscript worker started")

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Manuscript worker stopped")
			return
		case <-ticker.C:
			w.Poll(ctx)
		}
	}
}

// Poll drains the queue: it claims and processes jobs until none remain.
// A poll already in progress is skipped, not queued.
func (w *Worker) Poll(ctx context.Context) {
	if !w.processing.CompareAndSwap(false, true) {
		return
	}
	defer w.processing.Store(false)

	for ctx.Err() == nil {
		if !w.processNext(ctx) {
			return
		}
	}
}

// processNext claims and runs one job. Returns false when the queue is empty
// or the claim failed.
func (w *Worker) processNext(ctx context.Context) bool {
	job, err := w.jobs.ClaimNextPending(ctx, models.JobTypeManuscriptGeneration)
	if err != nil {
		w.logger.Error().Err(err).Msg("Failed to claim pending job")
		return false
	}
	if job == nil {
		return false
	}

	w.logger.Info().
		Str("job_id", job.ID).
		Int("attempt", job.Attempts).
		Int("max_attempts", job.MaxAttempts).
		Msg("Manuscript generation job claimed")

	var payload models.GeneratePayload
	if err := job.DecodePayload(&payload); err != nil {
		// A payload that cannot be decoded never succeeds; fail without requeue
		w.logger.Error().Err(err).Str("job_id", job.ID).Msg("Job payload is invalid")
		if err := w.jobs.MarkFailed(ctx, job.ID, "invalid payload: "+err.Error()); err != nil {
			w.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to mark job failed")
		}
		return true
	}

	start := time.Now()
	if err := w.generator.Generate(ctx, &payload); err != nil {
		w.failJob(context.WithoutCancel(ctx), job, &payload, err)
		return true
	}

	if err := w.jobs.MarkCompleted(context.WithoutCancel(ctx), job.ID); err != nil {
		w.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to mark job completed")
	}
	w.logger.Info().
		Str("job_id", job.ID).
		Int64("manuscript_id", int64(payload.ManuscriptID)).
		Str("duration", time.Since(start).String()).
		Msg("Manuscript generation job completed")
	return true
}

// failJob records the failure and either requeues for another attempt or
// finalizes the manuscript as failed once the retry budget is spent
func (w *Worker) failJob(ctx context.Context, job *models.Job, payload *models.GeneratePayload, cause error) {
	if err := w.jobs.MarkFailed(ctx, job.ID, cause.Error()); err != nil {
		w.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to mark job failed")
	}

	// A source that no longer exists will not reappear; retrying only burns
	// the budget. The generator bails before registering its claim-release
	// defer on this path, so the worker releases the claim here.
	if errors.Is(cause, interfaces.ErrNotFound) {
		if err := w.sources.RemoveWorker(ctx, payload.SourceID, payload.UserID); err != nil {
			w.logger.Warn().Err(err).
				Int64("source_id", int64(payload.SourceID)).
				Msg("Failed to release source worker claim")
		}
		w.finalizeFailed(ctx, job, payload, cause)
		return
	}

	if !job.AttemptsExhausted() {
		if err := w.jobs.Requeue(ctx, job.ID); err != nil {
			w.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to requeue job")
			return
		}
		// The generator released the source worker claim on the way out;
		// restore it so the source stays guarded until the retry runs
		if err := w.sources.AddWorker(ctx, payload.SourceID, payload.UserID); err != nil {
			w.logger.Warn().Err(err).
				Int64("source_id", int64(payload.SourceID)).
				Msg("Failed to restore source worker claim for retry")
		}
		w.logger.Warn().Err(cause).
			Str("job_id", job.ID).
			Int("attempt", job.Attempts).
			Int("max_attempts", job.MaxAttempts).
			Msg("Manuscript generation failed, requeued for retry")
		return
	}

	w.finalizeFailed(ctx, job, payload, cause)
}

// finalizeFailed flips the manuscript to failed once no further attempt will run
func (w *Worker) finalizeFailed(ctx context.Context, job *models.Job, payload *models.GeneratePayload, cause error) {
	if err := w.manuscripts.UpdateStatus(ctx, payload.ManuscriptID, models.ManuscriptStatusFailed); err != nil {
		w.logger.Error().Err(err).
			Int64("manuscript_id", int64(payload.ManuscriptID)).
			Msg("Failed to mark manuscript failed")
	}
	w.logger.Error().Err(cause).
		Str("job_id", job.ID).
		Int64("manuscript_id", int64(payload.ManuscriptID)).
		Int("attempts", job.Attempts).
		Msg("Manuscript generation failed permanently")
}
