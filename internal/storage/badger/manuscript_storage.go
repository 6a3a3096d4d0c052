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

// ManuscriptStorage implements the ManuscriptStorage interface for Badger
type ManuscriptStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewManuscriptStorage creates a new ManuscriptStorage instance
func NewManuscriptStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ManuscriptStorage {
	return &ManuscriptStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ManuscriptStorage) Create(ctx context.Context, m *models.Manuscript) error {
	now := time.Now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	if m.Status == "" {
		m.Status = models.ManuscriptStatusGenerating
	}

	if err := s.db.insertSequenced(m, &m.ID); err != nil {
		return fmt.Errorf("failed to create manuscript: %w", err)
	}

	s.logger.Debug().
		Int64("manuscript_id", int64(m.ID)).
		Int64("source_id", int64(m.SourceID)).
		Msg("Manuscript created")
	return nil
}

func (s *ManuscriptStorage) GetByID(ctx context.Context, id uint64) (*models.Manuscript, error) {
	var m models.Manuscript
	if err := s.db.Store().Get(id, &m); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get manuscript: %w", err)
	}
	return &m, nil
}

func (s *ManuscriptStorage) UpdateContent(ctx context.Context, id uint64, contentHTML string) error {
	return s.mutate(id, func(m *models.Manuscript) {
		m.ContentHTML = contentHTML
		m.Status = models.ManuscriptStatusGenerated
	})
}

func (s *ManuscriptStorage) UpdateStatus(ctx context.Context, id uint64, status models.ManuscriptStatus) error {
	return s.mutate(id, func(m *models.Manuscript) {
		m.Status = status
	})
}

func (s *ManuscriptStorage) Detach(ctx context.Context, id uint64, titleSnapshot, urlSnapshot string) error {
	return s.mutate(id, func(m *models.Manuscript) {
		m.SourceTitleSnap = titleSnapshot
		m.SourceURLSnap = urlSnapshot
		m.SourceID = 0
	})
}

func (s *ManuscriptStorage) mutate(id uint64, fn func(*models.Manuscript)) error {
	var m models.Manuscript
	if err := s.db.Store().Get(id, &m); err != nil {
		if err == badgerhold.ErrNotFound {
			return interfaces.ErrNotFound
		}
		return fmt.Errorf("failed to get manuscript: %w", err)
	}

	fn(&m)
	m.UpdatedAt = time.Now()

	if err := s.db.Store().Update(id, &m); err != nil {
		return fmt.Errorf("failed to update manuscript: %w", err)
	}
	return nil
}

func (s *ManuscriptStorage) CreateImage(ctx context.Context, image *models.ManuscriptImage) error {
	if image.CreatedAt.IsZero() {
		image.CreatedAt = time.Now()
	}
	if err := s.db.insertSequenced(image, &image.ID); err != nil {
		return fmt.Errorf("failed to create manuscript image: %w", err)
	}
	return nil
}

func (s *ManuscriptStorage) ImagesByManuscript(ctx context.Context, manuscriptID uint64) ([]models.ManuscriptImage, error) {
	var images []models.ManuscriptImage
	query := badgerhold.Where("ManuscriptID").Eq(manuscriptID).SortBy("SortOrder")
	if err := s.db.Store().Find(&images, query); err != nil {
		return nil, fmt.Errorf("failed to list manuscript images: %w", err)
	}
	return images, nil
}

func (s *ManuscriptStorage) BySourceID(ctx context.Context, sourceID uint64) ([]models.Manuscript, error) {
	var manuscripts []models.Manuscript
	if err := s.db.Store().Find(&manuscripts, badgerhold.Where("SourceID").Eq(sourceID)); err != nil {
		return nil, fmt.Errorf("failed to list manuscripts by source: %w", err)
	}
	return manuscripts, nil
}
