package badger

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wongohq/wongo/internal/models"
)

func TestJobEnqueueAndGet(t *testing.T) {
	db := newTestDB(t)
	storage := NewJobStorage(db, testLogger())
	ctx := context.Background()

	job, err := models.NewJob(models.JobTypeManuscriptGeneration, map[string]uint64{"manuscript_id": 1}, 3)
	require.NoError(t, err)
	require.NoError(t, storage.Enqueue(ctx, job))

	got, err := storage.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, got.Status)
	assert.Equal(t, 0, got.Attempts)
	assert.Equal(t, 3, got.MaxAttempts)
}

func TestClaimNextPendingIncrementsAttempts(t *testing.T) {
	db := newTestDB(t)
	storage := NewJobStorage(db, testLogger())
	ctx := context.Background()

	job, err := models.NewJob(models.JobTypeManuscriptGeneration, nil, 3)
	require.NoError(t, err)
	require.NoError(t, storage.Enqueue(ctx, job))

	claimed, err := storage.ClaimNextPending(ctx, models.JobTypeManuscriptGeneration)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, job.ID, claimed.ID)
	assert.Equal(t, models.JobStatusProcessing, claimed.Status)
	assert.Equal(t, 1, claimed.Attempts)
	assert.NotNil(t, claimed.StartedAt)

	// A processing job must not be claimable again
	again, err := storage.ClaimNextPending(ctx, models.JobTypeManuscriptGeneration)
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestClaimNextPendingReturnsNilWhenEmpty(t *testing.T) {
	db := newTestDB(t)
	storage := NewJobStorage(db, testLogger())

	claimed, err := storage.ClaimNextPending(context.Background(), models.JobTypeManuscriptGeneration)
	require.NoError(t, err)
	assert.Nil(t, claimed)
}

func TestClaimIsExclusiveUnderConcurrency(t *testing.T) {
	db := newTestDB(t)
	storage := NewJobStorage(db, testLogger())
	ctx := context.Background()

	job, err := models.NewJob(models.JobTypeManuscriptGeneration, nil, 3)
	require.NoError(t, err)
	require.NoError(t, storage.Enqueue(ctx, job))

	const claimers = 16
	var wg sync.WaitGroup
	results := make(chan *models.Job, claimers)

	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, err := storage.ClaimNextPending(ctx, models.JobTypeManuscriptGeneration)
			require.NoError(t, err)
			results <- claimed
		}()
	}
	wg.Wait()
	close(results)

	winners := 0
	for claimed := range results {
		if claimed != nil {
			winners++
		}
	}
	assert.Equal(t, 1, winners, "exactly one claimer must win the job")
}

func TestRetryBudgetIsBounded(t *testing.T) {
	db := newTestDB(t)
	storage := NewJobStorage(db, testLogger())
	ctx := context.Background()

	job, err := models.NewJob(models.JobTypeManuscriptGeneration, nil, 3)
	require.NoError(t, err)
	require.NoError(t, storage.Enqueue(ctx, job))

	// Claim, fail and requeue through the full budget
	for attempt := 1; attempt <= 3; attempt++ {
		claimed, err := storage.ClaimNextPending(ctx, models.JobTypeManuscriptGeneration)
		require.NoError(t, err)
		require.NotNil(t, claimed, "attempt %d should be claimable", attempt)
		assert.Equal(t, attempt, claimed.Attempts)

		require.NoError(t, storage.MarkFailed(ctx, claimed.ID, "provider timeout"))
		require.NoError(t, storage.Requeue(ctx, claimed.ID))
	}

	// The job is pending but its attempts are exhausted
	claimed, err := storage.ClaimNextPending(ctx, models.JobTypeManuscriptGeneration)
	require.NoError(t, err)
	assert.Nil(t, claimed, "exhausted job must not be claimed a fourth time")

	got, err := storage.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Attempts)
	assert.True(t, got.AttemptsExhausted())
}

func TestRequeueResetsStateButKeepsAttempts(t *testing.T) {
	db := newTestDB(t)
	storage := NewJobStorage(db, testLogger())
	ctx := context.Background()

	job, err := models.NewJob(models.JobTypeManuscriptGeneration, nil, 3)
	require.NoError(t, err)
	require.NoError(t, storage.Enqueue(ctx, job))

	claimed, err := storage.ClaimNextPending(ctx, models.JobTypeManuscriptGeneration)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	require.NoError(t, storage.MarkFailed(ctx, claimed.ID, "boom"))
	require.NoError(t, storage.Requeue(ctx, claimed.ID))

	got, err := storage.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, got.Status)
	assert.Empty(t, got.ErrorMessage)
	assert.Nil(t, got.StartedAt)
	assert.Nil(t, got.CompletedAt)
	assert.Equal(t, 1, got.Attempts)
}

func TestTerminalMarksAreIdempotent(t *testing.T) {
	db := newTestDB(t)
	storage := NewJobStorage(db, testLogger())
	ctx := context.Background()

	job, err := models.NewJob(models.JobTypeManuscriptGeneration, nil, 3)
	require.NoError(t, err)
	require.NoError(t, storage.Enqueue(ctx, job))

	_, err = storage.ClaimNextPending(ctx, models.JobTypeManuscriptGeneration)
	require.NoError(t, err)

	require.NoError(t, storage.MarkCompleted(ctx, job.ID))

	// A late failure report must not overwrite the completed state
	require.NoError(t, storage.MarkFailed(ctx, job.ID, "late worker error"))

	got, err := storage.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	assert.Empty(t, got.ErrorMessage)
}

func TestClaimOrdersByCreationTime(t *testing.T) {
	db := newTestDB(t)
	storage := NewJobStorage(db, testLogger())
	ctx := context.Background()

	first, err := models.NewJob(models.JobTypeManuscriptGeneration, nil, 3)
	require.NoError(t, err)
	require.NoError(t, storage.Enqueue(ctx, first))

	second, err := models.NewJob(models.JobTypeManuscriptGeneration, nil, 3)
	require.NoError(t, err)
	second.CreatedAt = first.CreatedAt.Add(1)
	require.NoError(t, storage.Enqueue(ctx, second))

	claimed, err := storage.ClaimNextPending(ctx, models.JobTypeManuscriptGeneration)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, first.ID, claimed.ID)
}
