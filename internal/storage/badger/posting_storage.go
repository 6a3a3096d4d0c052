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

// PostingStorage implements the PostingStorage interface for Badger
type PostingStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewPostingStorage creates a new PostingStorage instance
func NewPostingStorage(db *BadgerDB, logger arbor.ILogger) interfaces.PostingStorage {
	return &PostingStorage{
		db:     db,
		logger: logger,
	}
}

func (s *PostingStorage) Create(ctx context.Context, p *models.Posting) error {
	if p.PostedAt.IsZero() {
		p.PostedAt = time.Now()
	}

	if err := s.db.insertSequenced(p, &p.ID); err != nil {
		if err == badgerhold.ErrUniqueExists {
			return interfaces.ErrDuplicate
		}
		return fmt.Errorf("failed to create posting: %w", err)
	}

	s.logger.Debug().
		Int64("posting_id", int64(p.ID)).
		Int64("manuscript_id", int64(p.ManuscriptID)).
		Str("platform", string(p.Platform)).
		Msg("Posting created")
	return nil
}

func (s *PostingStorage) GetByID(ctx context.Context, id uint64) (*models.Posting, error) {
	var p models.Posting
	if err := s.db.Store().Get(id, &p); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get posting: %w", err)
	}
	return &p, nil
}

func (s *PostingStorage) FindByManuscriptID(ctx context.Context, manuscriptID uint64) (*models.Posting, error) {
	var postings []models.Posting
	if err := s.db.Store().Find(&postings, badgerhold.Where("ManuscriptID").Eq(manuscriptID)); err != nil {
		return nil, fmt.Errorf("failed to find posting: %w", err)
	}
	if len(postings) == 0 {
		return nil, nil
	}
	return &postings[0], nil
}
