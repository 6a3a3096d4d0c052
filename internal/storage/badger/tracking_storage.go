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

// TrackingStorage implements the TrackingStorage interface for Badger
type TrackingStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewTrackingStorage creates a new TrackingStorage instance
func NewTrackingStorage(db *BadgerDB, logger arbor.ILogger) interfaces.TrackingStorage {
	return &TrackingStorage{
		db:     db,
		logger: logger,
	}
}

func (s *TrackingStorage) Create(ctx context.Context, t *models.PerformanceTracking) error {
	if t.Status == "" {
		t.Status = models.TrackingStatusTracking
	}

	if err := s.db.insertSequenced(t, &t.ID); err != nil {
		if err == badgerhold.ErrUniqueExists {
			return interfaces.ErrDuplicate
		}
		return fmt.Errorf("failed to create tracking: %w", err)
	}

	s.logger.Debug().
		Int64("tracking_id", int64(t.ID)).
		Int64("posting_id", int64(t.PostingID)).
		Str("tracking_end", t.TrackingEnd.Format(time.RFC3339)).
		Msg("Performance tracking started")
	return nil
}

func (s *TrackingStorage) GetByID(ctx context.Context, id uint64) (*models.PerformanceTracking, error) {
	var t models.PerformanceTracking
	if err := s.db.Store().Get(id, &t); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get tracking: %w", err)
	}
	return &t, nil
}

func (s *TrackingStorage) FindByPostingID(ctx context.Context, postingID uint64) (*models.PerformanceTracking, error) {
	var trackings []models.PerformanceTracking
	if err := s.db.Store().Find(&trackings, badgerhold.Where("PostingID").Eq(postingID)); err != nil {
		return nil, fmt.Errorf("failed to find tracking: %w", err)
	}
	if len(trackings) == 0 {
		return nil, nil
	}
	return &trackings[0], nil
}

func (s *TrackingStorage) ActiveTrackings(ctx context.Context) ([]models.PerformanceTracking, error) {
	var trackings []models.PerformanceTracking
	query := badgerhold.Where("Status").Eq(models.TrackingStatusTracking).SortBy("ID")
	if err := s.db.Store().Find(&trackings, query); err != nil {
		return nil, fmt.Errorf("failed to list active trackings: %w", err)
	}
	return trackings, nil
}

func (s *TrackingStorage) CompleteExpired(ctx context.Context, now time.Time) (int, error) {
	var expired []models.PerformanceTracking
	query := badgerhold.Where("Status").Eq(models.TrackingStatusTracking).
		And("TrackingEnd").Le(now)
	if err := s.db.Store().Find(&expired, query); err != nil {
		return 0, fmt.Errorf("failed to find expired trackings: %w", err)
	}

	completed := 0
	for i := range expired {
		t := expired[i]
		t.Status = models.TrackingStatusCompleted
		if err := s.db.Store().Update(t.ID, &t); err != nil {
			return completed, fmt.Errorf("failed to complete tracking %d: %w", t.ID, err)
		}
		completed++
	}

	if completed > 0 {
		s.logger.Info().Int("trackings", completed).Msg("Completed expired trackings")
	}
	return completed, nil
}

func (s *TrackingStorage) AppendDataPoint(ctx context.Context, point *models.PerformanceDataPoint) error {
	if point.CollectedAt.IsZero() {
		point.CollectedAt = time.Now()
	}
	if err := s.db.insertSequenced(point, &point.ID); err != nil {
		return fmt.Errorf("failed to append data point: %w", err)
	}
	return nil
}

func (s *TrackingStorage) DataPoints(ctx context.Context, trackingID uint64) ([]models.PerformanceDataPoint, error) {
	var points []models.PerformanceDataPoint
	query := badgerhold.Where("TrackingID").Eq(trackingID).SortBy("CollectedAt")
	if err := s.db.Store().Find(&points, query); err != nil {
		return nil, fmt.Errorf("failed to list data points: %w", err)
	}
	return points, nil
}

func (s *TrackingStorage) LatestDataPoint(ctx context.Context, trackingID uint64) (*models.PerformanceDataPoint, error) {
	points, err := s.DataPoints(ctx, trackingID)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, nil
	}
	return &points[len(points)-1], nil
}
