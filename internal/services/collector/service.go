package collector

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/wongohq/wongo/internal/interfaces"
	"github.com/wongohq/wongo/internal/models"
)

// CycleStats summarizes one collection cycle
type CycleStats struct {
	TrackingsCompleted int `json:"trackings_completed"`
	PointsCollected    int `json:"points_collected"`
	Failures           int `json:"failures"`
}

// Service collects performance data for active trackings: keyword rank via
// search, engagement metrics via page fetch. One data point is appended per
// tracking per cycle; a failed collection is recorded as an inaccessible
// point, never skipped.
type Service struct {
	trackings interfaces.TrackingStorage
	postings  interfaces.PostingStorage
	ranks     interfaces.RankSearcher
	metrics   interfaces.MetricsFetcher
	logger    arbor.ILogger
	running   atomic.Bool
}

// NewService wires the performance collector
func NewService(
	trackings interfaces.TrackingStorage,
	postings interfaces.PostingStorage,
	ranks interfaces.RankSearcher,
	metrics interfaces.MetricsFetcher,
	logger arbor.ILogger,
) *Service {
	return &Service{
		trackings: trackings,
		postings:  postings,
		ranks:     ranks,
		metrics:   metrics,
		logger:    logger,
	}
}

// IsRunning reports whether a cycle is in progress
func (s *Service) IsRunning() bool {
	return s.running.Load()
}

// RunCycle executes one collection cycle. Returns (nil, false) when another
// cycle is already running.
func (s *Service) RunCycle(ctx context.Context) (*CycleStats, bool) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn().Msg("Collection cycle already running, skipping trigger")
		return nil, false
	}
	defer s.running.Store(false)

	stats := &CycleStats{}
	now := time.Now()

	// Expired windows flip to completed before any collection
	completed, err := s.trackings.CompleteExpired(ctx, now)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to complete expired trackings")
	} else {
		stats.TrackingsCompleted = completed
	}

	active, err := s.trackings.ActiveTrackings(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list active trackings")
		return stats, true
	}

	for i := range active {
		if ctx.Err() != nil {
			break
		}
		tracking := &active[i]
		if tracking.Ended(now) {
			continue
		}

		// One tracking's failure never blocks the rest
		if err := s.collectOne(ctx, tracking); err != nil {
			s.logger.Warn().Err(err).
				Int64("tracking_id", int64(tracking.ID)).
				Msg("Collection failed for tracking")
			stats.Failures++
			continue
		}
		stats.PointsCollected++
	}

	s.logger.Info().
		Int("completed", stats.TrackingsCompleted).
		Int("collected", stats.PointsCollected).
		Int("failures", stats.Failures).
		Msg("Collection cycle finished")
	return stats, true
}

// collectOne measures a single tracking and appends its data point
func (s *Service) collectOne(ctx context.Context, tracking *models.PerformanceTracking) error {
	posting, err := s.postings.GetByID(ctx, tracking.PostingID)
	if err != nil {
		return err
	}

	point := &models.PerformanceDataPoint{
		TrackingID:  tracking.ID,
		CollectedAt: time.Now(),
	}

	metrics, err := s.metrics.Fetch(ctx, posting.URL, posting.Platform)
	if err != nil || metrics == nil || !metrics.Accessible {
		// The posting is unreachable; record the miss and stop measuring
		if err != nil {
			s.logger.Debug().Err(err).Str("url", posting.URL).Msg("Metrics fetch failed")
		}
		return s.trackings.AppendDataPoint(ctx, point)
	}

	point.IsAccessible = true
	point.ViewCount = metrics.Views
	point.CommentCount = metrics.Comments

	if posting.Keyword != "" {
		rank, err := s.ranks.Rank(ctx, posting.Keyword, posting.URL, posting.Platform)
		if err != nil {
			s.logger.Warn().Err(err).
				Str("keyword", posting.Keyword).
				Msg("Rank search failed, recording point without rank")
		} else {
			point.KeywordRank = rank
		}
	}

	return s.trackings.AppendDataPoint(ctx, point)
}
