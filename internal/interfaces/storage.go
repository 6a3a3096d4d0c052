package interfaces

import (
	"context"
	"time"

	"github.com/wongohq/wongo/internal/models"
)

// StorageManager aggregates the per-entity storages over one durable store
type StorageManager interface {
	JobStorage() JobStorage
	SourceStorage() SourceStorage
	ManuscriptStorage() ManuscriptStorage
	PostingStorage() PostingStorage
	TrackingStorage() TrackingStorage
	Close() error
}

// JobStorage is the durable job queue. Claim semantics are exclusive: under
// concurrent callers at most one receives any given pending job.
type JobStorage interface {
	// Enqueue persists a new pending job
	Enqueue(ctx context.Context, job *models.Job) error

	// ClaimNextPending atomically claims the oldest eligible pending job of
	// the given type (attempts < max_attempts), transitioning it to
	// processing, incrementing attempts and stamping started_at. Returns
	// (nil, nil) when no eligible job exists.
	ClaimNextPending(ctx context.Context, jobType models.JobType) (*models.Job, error)

	// MarkCompleted is an idempotent no-op if the job is already terminal
	MarkCompleted(ctx context.Context, id string) error

	// MarkFailed is an idempotent no-op if the job is already terminal
	MarkFailed(ctx context.Context, id string, message string) error

	// Requeue resets a failed/processing job to pending, clearing the error
	// message and timestamps. Attempts and max_attempts are left untouched.
	Requeue(ctx context.Context, id string) error

	GetJob(ctx context.Context, id string) (*models.Job, error)
}

// SourceStorage persists crawled articles, their images and worker claims
type SourceStorage interface {
	// Create persists a new source, assigning its ID.
	// Returns ErrDuplicate when the URL hash already exists.
	Create(ctx context.Context, source *models.Source) error

	GetByID(ctx context.Context, id uint64) (*models.Source, error)

	// FindByURLHash returns (nil, nil) when no source matches
	FindByURLHash(ctx context.Context, hash string) (*models.Source, error)

	UpdateThumbnailLocalPath(ctx context.Context, id uint64, localPath string) error

	CreateImage(ctx context.Context, image *models.SourceImage) error
	ImagesBySource(ctx context.Context, sourceID uint64) ([]models.SourceImage, error)

	// AddWorker and RemoveWorker are idempotent per (source, user) pair
	AddWorker(ctx context.Context, sourceID, userID uint64) error
	RemoveWorker(ctx context.Context, sourceID, userID uint64) error

	// SnapshotAndDetachExpired copies title/url onto manuscripts that still
	// reference an expired source, then detaches them (source_id -> 0).
	// Cross-entity invariant: a source is never deleted while referenced.
	SnapshotAndDetachExpired(ctx context.Context, now time.Time) (int, error)

	// DeleteExpired hard-deletes expired sources with no referencing
	// manuscript, including their images and worker claims
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// ManuscriptStorage persists manuscripts and their attached images
type ManuscriptStorage interface {
	Create(ctx context.Context, m *models.Manuscript) error
	GetByID(ctx context.Context, id uint64) (*models.Manuscript, error)

	// UpdateContent stores the generated HTML and flips status to generated
	UpdateContent(ctx context.Context, id uint64, contentHTML string) error

	UpdateStatus(ctx context.Context, id uint64, status models.ManuscriptStatus) error

	// Detach snapshots source title/url and clears the source reference
	Detach(ctx context.Context, id uint64, titleSnapshot, urlSnapshot string) error

	CreateImage(ctx context.Context, image *models.ManuscriptImage) error
	ImagesByManuscript(ctx context.Context, manuscriptID uint64) ([]models.ManuscriptImage, error)

	// BySourceID returns manuscripts still referencing the given source
	BySourceID(ctx context.Context, sourceID uint64) ([]models.Manuscript, error)
}

// PostingStorage persists publish records, one per manuscript
type PostingStorage interface {
	// Create returns ErrDuplicate when the manuscript already has a posting
	Create(ctx context.Context, p *models.Posting) error
	GetByID(ctx context.Context, id uint64) (*models.Posting, error)
	// FindByManuscriptID returns (nil, nil) when none exists
	FindByManuscriptID(ctx context.Context, manuscriptID uint64) (*models.Posting, error)
}

// TrackingStorage persists performance tracking windows and their data series
type TrackingStorage interface {
	// Create returns ErrDuplicate when the posting already has a tracking
	Create(ctx context.Context, t *models.PerformanceTracking) error
	GetByID(ctx context.Context, id uint64) (*models.PerformanceTracking, error)
	FindByPostingID(ctx context.Context, postingID uint64) (*models.PerformanceTracking, error)

	// ActiveTrackings returns all trackings still in the tracking state
	ActiveTrackings(ctx context.Context) ([]models.PerformanceTracking, error)

	// CompleteExpired flips trackings whose window has passed to completed
	CompleteExpired(ctx context.Context, now time.Time) (int, error)

	// AppendDataPoint appends one measurement to a tracking's series
	AppendDataPoint(ctx context.Context, point *models.PerformanceDataPoint) error

	// DataPoints returns the series ordered by collection time
	DataPoints(ctx context.Context, trackingID uint64) ([]models.PerformanceDataPoint, error)

	// LatestDataPoint returns (nil, nil) when the series is empty
	LatestDataPoint(ctx context.Context, trackingID uint64) (*models.PerformanceDataPoint, error)
}
