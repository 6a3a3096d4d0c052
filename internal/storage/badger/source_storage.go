package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
	"github.com/wongohq/wongo/internal/interfaces"
	"github.com/wongohq/wongo/internal/models"
)

// SourceStorage implements the SourceStorage interface for Badger
type SourceStorage struct {
	db          *BadgerDB
	manuscripts interfaces.ManuscriptStorage
	logger      arbor.ILogger
}

// NewSourceStorage creates a new SourceStorage instance. The manuscript
// storage is needed for expiry handling, which snapshots and detaches
// referencing manuscripts before a source can be deleted.
func NewSourceStorage(db *BadgerDB, manuscripts interfaces.ManuscriptStorage, logger arbor.ILogger) interfaces.SourceStorage {
	return &SourceStorage{
		db:          db,
		manuscripts: manuscripts,
		logger:      logger,
	}
}

func (s *SourceStorage) Create(ctx context.Context, source *models.Source) error {
	if source.URLHash == "" {
		return fmt.Errorf("source URL hash is required")
	}
	if source.CrawledAt.IsZero() {
		source.CrawledAt = time.Now()
	}

	if err := s.db.insertSequenced(source, &source.ID); err != nil {
		if err == badgerhold.ErrUniqueExists {
			return interfaces.ErrDuplicate
		}
		return fmt.Errorf("failed to create source: %w", err)
	}

	s.logger.Debug().
		Int64("source_id", int64(source.ID)).
		Str("site", source.SourceSite).
		Msg("Source created")
	return nil
}

func (s *SourceStorage) GetByID(ctx context.Context, id uint64) (*models.Source, error) {
	var source models.Source
	if err := s.db.Store().Get(id, &source); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get source: %w", err)
	}
	return &source, nil
}

func (s *SourceStorage) FindByURLHash(ctx context.Context, hash string) (*models.Source, error) {
	var sources []models.Source
	if err := s.db.Store().Find(&sources, badgerhold.Where("URLHash").Eq(hash)); err != nil {
		return nil, fmt.Errorf("failed to find source by hash: %w", err)
	}
	if len(sources) == 0 {
		return nil, nil
	}
	return &sources[0], nil
}

func (s *SourceStorage) UpdateThumbnailLocalPath(ctx context.Context, id uint64, localPath string) error {
	var source models.Source
	if err := s.db.Store().Get(id, &source); err != nil {
		if err == badgerhold.ErrNotFound {
			return interfaces.ErrNotFound
		}
		return fmt.Errorf("failed to get source: %w", err)
	}

	source.ThumbnailLocalPath = localPath
	if err := s.db.Store().Update(id, &source); err != nil {
		return fmt.Errorf("failed to update source thumbnail: %w", err)
	}
	return nil
}

func (s *SourceStorage) CreateImage(ctx context.Context, image *models.SourceImage) error {
	if image.CreatedAt.IsZero() {
		image.CreatedAt = time.Now()
	}
	if err := s.db.insertSequenced(image, &image.ID); err != nil {
		return fmt.Errorf("failed to create source image: %w", err)
	}
	return nil
}

func (s *SourceStorage) ImagesBySource(ctx context.Context, sourceID uint64) ([]models.SourceImage, error) {
	var images []models.SourceImage
	query := badgerhold.Where("SourceID").Eq(sourceID).SortBy("ID")
	if err := s.db.Store().Find(&images, query); err != nil {
		return nil, fmt.Errorf("failed to list source images: %w", err)
	}
	return images, nil
}

func (s *SourceStorage) AddWorker(ctx context.Context, sourceID, userID uint64) error {
	var existing []models.SourceWorker
	query := badgerhold.Where("SourceID").Eq(sourceID)
	if err := s.db.Store().Find(&existing, query); err != nil {
		return fmt.Errorf("failed to check source workers: %w", err)
	}
	for i := range existing {
		if existing[i].UserID == userID {
			return nil
		}
	}

	worker := &models.SourceWorker{
		SourceID:  sourceID,
		UserID:    userID,
		ClaimedAt: time.Now(),
	}
	if err := s.db.insertSequenced(worker, &worker.ID); err != nil {
		return fmt.Errorf("failed to add source worker: %w", err)
	}
	return nil
}

func (s *SourceStorage) RemoveWorker(ctx context.Context, sourceID, userID uint64) error {
	var workers []models.SourceWorker
	query := badgerhold.Where("SourceID").Eq(sourceID)
	if err := s.db.Store().Find(&workers, query); err != nil {
		return fmt.Errorf("failed to find source workers: %w", err)
	}
	for i := range workers {
		if workers[i].UserID != userID {
			continue
		}
		if err := s.db.Store().Delete(workers[i].ID, &models.SourceWorker{}); err != nil && err != badgerhold.ErrNotFound {
			return fmt.Errorf("failed to remove source worker: %w", err)
		}
	}
	return nil
}

// SnapshotAndDetachExpired walks expired sources and detaches any manuscript
// that still references one, after copying the source title and URL onto it.
// This runs before DeleteExpired so no manuscript ever dangles.
func (s *SourceStorage) SnapshotAndDetachExpired(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.expiredSources(now)
	if err != nil {
		return 0, err
	}

	detached := 0
	for i := range expired {
		src := expired[i]
		manuscripts, err := s.manuscripts.BySourceID(ctx, src.ID)
		if err != nil {
			return detached, fmt.Errorf("failed to list manuscripts for source %d: %w", src.ID, err)
		}
		for j := range manuscripts {
			if err := s.manuscripts.Detach(ctx, manuscripts[j].ID, src.Title, src.OriginalURL); err != nil {
				return detached, fmt.Errorf("failed to detach manuscript %d: %w", manuscripts[j].ID, err)
			}
			detached++
		}
	}

	if detached > 0 {
		s.logger.Info().
			Int("manuscripts", detached).
			Msg("Detached manuscripts from expired sources")
	}
	return detached, nil
}

// DeleteExpired removes expired sources that no manuscript references any
// more, along with their images and worker claims
func (s *SourceStorage) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.expiredSources(now)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for i := range expired {
		src := expired[i]
		referencing, err := s.manuscripts.BySourceID(ctx, src.ID)
		if err != nil {
			return deleted, fmt.Errorf("failed to list manuscripts for source %d: %w", src.ID, err)
		}
		if len(referencing) > 0 {
			continue
		}

		if err := s.db.Store().DeleteMatching(&models.SourceImage{}, badgerhold.Where("SourceID").Eq(src.ID)); err != nil {
			return deleted, fmt.Errorf("failed to delete images for source %d: %w", src.ID, err)
		}
		if err := s.db.Store().DeleteMatching(&models.SourceWorker{}, badgerhold.Where("SourceID").Eq(src.ID)); err != nil {
			return deleted, fmt.Errorf("failed to delete workers for source %d: %w", src.ID, err)
		}
		if err := s.db.Store().Delete(src.ID, &models.Source{}); err != nil && err != badgerhold.ErrNotFound {
			return deleted, fmt.Errorf("failed to delete source %d: %w", src.ID, err)
		}
		deleted++
	}

	if deleted > 0 {
		s.logger.Info().Int("sources", deleted).Msg("Deleted expired sources")
	}
	return deleted, nil
}

func (s *SourceStorage) expiredSources(now time.Time) ([]models.Source, error) {
	var expired []models.Source
	query := badgerhold.Where("ExpiresAt").Le(now)
	if err := s.db.Store().Find(&expired, query); err != nil {
		return nil, fmt.Errorf("failed to find expired sources: %w", err)
	}
	return expired, nil
}
