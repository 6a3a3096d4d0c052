package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/wongohq/wongo/internal/common"
	"github.com/wongohq/wongo/internal/interfaces"
	"github.com/wongohq/wongo/internal/services/collector"
	"github.com/wongohq/wongo/internal/services/crawler"
)

// CrawlRunner is one crawl cycle; ran reports whether it actually started
type CrawlRunner interface {
	RunCycle(ctx context.Context) (*crawler.CycleStats, bool)
}

// CollectionRunner is one performance collection cycle
type CollectionRunner interface {
	RunCycle(ctx context.Context) (*collector.CycleStats, bool)
}

// Service owns the cron triggers and the manuscript worker loop. Crawl and
// collection cycles are single-flight; a trigger that lands while a cycle
// runs is skipped.
type Service struct {
	config    *common.SchedulerConfig
	crawler   CrawlRunner
	collector CollectionRunner
	worker    *Worker
	cron      *cron.Cron
	logger    arbor.ILogger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	timers  []*time.Timer
}

// NewService wires the scheduler
func NewService(
	config *common.SchedulerConfig,
	crawlerService CrawlRunner,
	collectorService CollectionRunner,
	worker *Worker,
	logger arbor.ILogger,
) interfaces.SchedulerService {
	return &Service{
		config:    config,
		crawler:   crawlerService,
		collector: collectorService,
		worker:    worker,
		cron:      cron.New(),
		logger:    logger,
	}
}

// Start registers the cron entries, launches the worker loop and arms the
// startup one-shot cycles
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	if s.config.CrawlEnabled {
		schedule := s.config.CrawlSchedule
		if schedule == "" {
			schedule = "0 * * * *"
		}
		if _, err := s.cron.AddFunc(schedule, func() { s.TriggerCrawl(ctx) }); err != nil {
			cancel()
			return fmt.Errorf("failed to schedule crawl: %w", err)
		}

		delay := common.Duration(s.config.CrawlStartupDelay, 10*time.Second)
		s.timers = append(s.timers, time.AfterFunc(delay, func() {
			s.logger.Info().Msg("Running startup crawl cycle")
			s.TriggerCrawl(ctx)
		}))
		s.logger.Info().
			Str("schedule", schedule).
			Str("startup_delay", delay.String()).
			Msg("Crawl cycle scheduled")
	}

	if s.config.PerformanceEnabled {
		schedule := s.config.PerformanceSchedule
		if schedule == "" {
			schedule = "0 * * * *"
		}
		if _, err := s.cron.AddFunc(schedule, func() { s.TriggerCollection(ctx) }); err != nil {
			cancel()
			return fmt.Errorf("failed to schedule collection: %w", err)
		}

		if s.config.RunStartupCollection {
			delay := common.Duration(s.config.PerfStartupDelay, 15*time.Second)
			s.timers = append(s.timers, time.AfterFunc(delay, func() {
				s.logger.Info().Msg("Running startup collection cycle")
				s.TriggerCollection(ctx)
			}))
		}
		s.logger.Info().
			Str("schedule", schedule).
			Msg("Collection cycle scheduled")
	}

	if s.config.WorkerEnabled && s.worker != nil {
		go s.worker.Run(ctx)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info().Msg("Scheduler started")
	return nil
}

// Stop halts the cron entries, the worker loop and any pending startup timers
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	for _, timer := range s.timers {
		timer.Stop()
	}
	s.timers = nil

	if s.cancel != nil {
		s.cancel()
	}

	// Wait for any in-flight cron handler to return
	<-s.cron.Stop().Done()
	s.running = false

	s.logger.Info().Msg("Scheduler stopped")
	return nil
}

// TriggerCrawl runs one crawl cycle out of schedule. Returns false when a
// cycle is already in progress.
func (s *Service) TriggerCrawl(ctx context.Context) bool {
	stats, ran := s.crawler.RunCycle(ctx)
	if !ran {
		return false
	}
	s.logger.Info().
		Int("sites", stats.SitesVisited).
		Int("crawled", stats.ArticlesCrawled).
		Int("duplicates", stats.DuplicatesSkipped).
		Int("failures", stats.Failures).
		Msg("Crawl cycle triggered by scheduler finished")
	return true
}

// TriggerCollection runs one performance collection cycle out of schedule.
// Returns false when a cycle is already in progress.
func (s *Service) TriggerCollection(ctx context.Context) bool {
	stats, ran := s.collector.RunCycle(ctx)
	if !ran {
		return false
	}
	s.logger.Info().
		Int("completed", stats.TrackingsCompleted).
		Int("collected", stats.PointsCollected).
		Int("failures", stats.Failures).
		Msg("Collection cycle triggered by scheduler finished")
	return true
}
