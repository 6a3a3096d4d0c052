package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/wongohq/wongo/internal/common"
	"github.com/wongohq/wongo/internal/handlers"
	"github.com/wongohq/wongo/internal/interfaces"
	"github.com/wongohq/wongo/internal/services/collector"
	"github.com/wongohq/wongo/internal/services/crawler"
	"github.com/wongohq/wongo/internal/services/generator"
	"github.com/wongohq/wongo/internal/services/imageai"
	"github.com/wongohq/wongo/internal/services/imagestore"
	"github.com/wongohq/wongo/internal/services/llm"
	"github.com/wongohq/wongo/internal/services/scheduler"
	"github.com/wongohq/wongo/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config  *common.Config
	Logger  arbor.ILogger
	Storage interfaces.StorageManager

	Crawler     *crawler.Service
	Collector   *collector.Service
	Generator   *generator.Service
	Scheduler   interfaces.SchedulerService
	ObjectStore interfaces.ObjectStore

	ManuscriptHandler *handlers.ManuscriptHandler
	TriggerHandler    *handlers.TriggerHandler
	APIHandler        *handlers.APIHandler
}

// New wires the application from configuration: storage, services,
// scheduler and handlers
func New(ctx context.Context, config *common.Config) (*App, error) {
	logger := common.InitLogger(config)

	storageManager, err := badger.NewManager(logger, &config.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	objectStore, err := imagestore.NewObjectStore(ctx, &config.Storage, logger)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to initialize object store: %w", err)
	}

	textService := llm.NewService(&config.LLM, logger)
	imageService := imageai.NewService(&config.ImageAI, config.LLM.Gemini.APIKey, logger)

	crawlerService := crawler.NewService(
		&config.Crawler,
		storageManager.SourceStorage(),
		config.Storage.Filesystem.SourcesDir,
		logger,
	)

	naverClient := collector.NewNaverClient(&config.Search, logger)
	collectorService := collector.NewService(
		storageManager.TrackingStorage(),
		storageManager.PostingStorage(),
		naverClient,
		naverClient,
		logger,
	)

	generatorService := generator.NewService(
		storageManager.ManuscriptStorage(),
		storageManager.SourceStorage(),
		textService,
		imageService,
		imageService,
		objectStore,
		config.Storage.Filesystem.ManuscriptsDir,
		logger,
	)

	worker := scheduler.NewWorker(
		storageManager.JobStorage(),
		storageManager.ManuscriptStorage(),
		storageManager.SourceStorage(),
		generatorService,
		common.Duration(config.Queue.PollInterval, 3*time.Second),
		logger,
	)

	schedulerService := scheduler.NewService(
		&config.Scheduler,
		crawlerService,
		collectorService,
		worker,
		logger,
	)

	return &App{
		Config:            config,
		Logger:            logger,
		Storage:           storageManager,
		Crawler:           crawlerService,
		Collector:         collectorService,
		Generator:         generatorService,
		Scheduler:         schedulerService,
		ObjectStore:       objectStore,
		ManuscriptHandler: handlers.NewManuscriptHandler(storageManager, config.Queue.MaxAttempts, config.Scheduler.TrackingWindowDays, logger),
		TriggerHandler:    handlers.NewTriggerHandler(schedulerService, logger),
		APIHandler:        handlers.NewAPIHandler(),
	}, nil
}

// Start launches the scheduler (cron triggers and the manuscript worker)
func (a *App) Start() error {
	return a.Scheduler.Start()
}

// Close shuts down the scheduler and storage
func (a *App) Close() error {
	if err := a.Scheduler.Stop(); err != nil {
		a.Logger.Warn().Err(err).Msg("Scheduler stop failed")
	}
	if err := a.Storage.Close(); err != nil {
		return fmt.Errorf("failed to close storage: %w", err)
	}
	return nil
}
