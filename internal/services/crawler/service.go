package crawler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/wongohq/wongo/internal/common"
	"github.com/wongohq/wongo/internal/interfaces"
	"github.com/wongohq/wongo/internal/models"
)

// CycleStats summarizes one crawl cycle
type CycleStats struct {
	SitesVisited      int `json:"sites_visited"`
	ArticlesCrawled   int `json:"articles_crawled"`
	DuplicatesSkipped int `json:"duplicates_skipped"`
	Failures          int `json:"failures"`
	SourcesDetached   int `json:"sources_detached"`
	SourcesDeleted    int `json:"sources_deleted"`
}

// Service runs the crawl pipeline: expire old sources, harvest list pages,
// fetch and persist new articles. Cycles are single-flight; a trigger while
// one is running is skipped, never queued.
type Service struct {
	config     *common.CrawlerConfig
	sources    interfaces.SourceStorage
	fetcher    *Fetcher
	lists      *ListParser
	articles   *ArticleParser
	downloader *ImageDownloader
	logger     arbor.ILogger
	running    atomic.Bool
}

// NewService wires the crawl pipeline
func NewService(config *common.CrawlerConfig, sources interfaces.SourceStorage, sourcesDir string, logger arbor.ILogger) *Service {
	timeout := common.Duration(config.RequestTimeout, 15*time.Second)
	delay := common.Duration(config.ArticleDelay, 1500*time.Millisecond)

	return &Service{
		config:     config,
		sources:    sources,
		fetcher:    NewFetcher(config.UserAgent, timeout, delay, logger),
		lists:      NewListParser(logger),
		articles:   NewArticleParser(logger),
		downloader: NewImageDownloader(NewDownloadClient(timeout), sourcesDir, config.UserAgent, logger),
		logger:     logger,
	}
}

// IsRunning reports whether a cycle is in progress
func (s *Service) IsRunning() bool {
	return s.running.Load()
}

// RunCycle executes one crawl cycle. Returns (nil, false) when another cycle
// is already running.
func (s *Service) RunCycle(ctx context.Context) (*CycleStats, bool) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn().Msg("Crawl cycle already running, skipping trigger")
		return nil, false
	}
	defer s.running.Store(false)

	started := time.Now()
	stats := &CycleStats{}

	// Retention runs before crawling so storage never grows unbounded
	s.expireSources(ctx, stats)

	for i := range s.config.Sites {
		if ctx.Err() != nil {
			break
		}
		site := &s.config.Sites[i]
		s.crawlSite(ctx, site, stats)
		stats.SitesVisited++
	}

	s.logger.Info().
		Int("sites", stats.SitesVisited).
		Int("crawled", stats.ArticlesCrawled).
		Int("duplicates", stats.DuplicatesSkipped).
		Int("failures", stats.Failures).
		Dur("elapsed", time.Since(started)).
		Msg("Crawl cycle finished")
	return stats, true
}

func (s *Service) expireSources(ctx context.Context, stats *CycleStats) {
	now := time.Now()

	detached, err := s.sources.SnapshotAndDetachExpired(ctx, now)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to detach manuscripts from expired sources")
		return
	}
	stats.SourcesDetached = detached

	deleted, err := s.sources.DeleteExpired(ctx, now)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to delete expired sources")
		return
	}
	stats.SourcesDeleted = deleted
}

func (s *Service) crawlSite(ctx context.Context, site *common.CrawlSiteConfig, stats *CycleStats) {
	for i := range site.ListPages {
		if ctx.Err() != nil {
			return
		}
		page := &site.ListPages[i]

		body, err := s.fetcher.FetchBytes(ctx, page.URL)
		if err != nil {
			s.logger.Error().Err(err).Str("page", page.URL).Msg("Failed to fetch list page")
			stats.Failures++
			continue
		}

		urls, err := s.lists.ParseURLs(body, page)
		if err != nil {
			s.logger.Error().Err(err).Str("page", page.URL).Msg("Failed to parse list page")
			stats.Failures++
			continue
		}

		for _, articleURL := range urls {
			if ctx.Err() != nil {
				return
			}
			// One bad article never aborts the cycle
			switch err := s.crawlArticle(ctx, site, page, articleURL); {
			case err == nil:
				stats.ArticlesCrawled++
			case err == interfaces.ErrDuplicate:
				stats.DuplicatesSkipped++
			default:
				s.logger.Warn().Err(err).Str("url", articleURL).Msg("Failed to crawl article")
				stats.Failures++
			}
		}
	}
}

func (s *Service) crawlArticle(ctx context.Context, site *common.CrawlSiteConfig, page *common.ListPageConfig, articleURL string) error {
	hash := common.HashURL(articleURL)

	existing, err := s.sources.FindByURLHash(ctx, hash)
	if err != nil {
		return fmt.Errorf("dedup check failed: %w", err)
	}
	if existing != nil {
		return interfaces.ErrDuplicate
	}

	doc, err := s.fetcher.FetchDocument(ctx, articleURL)
	if err != nil {
		return err
	}

	parsed, err := s.articles.Parse(doc, articleURL, &site.Article)
	if err != nil {
		return err
	}

	category := page.Category
	if category == "" {
		category = parsed.Category
	}

	now := time.Now()
	retention := time.Duration(s.config.RetentionDays) * 24 * time.Hour
	source := &models.Source{
		Title:        parsed.Title,
		ThumbnailURL: parsed.ThumbnailURL,
		OriginalURL:  articleURL,
		URLHash:      hash,
		ContentHTML:  parsed.ContentHTML,
		Category:     category,
		SourceSite:   site.Name,
		CrawledAt:    now,
		ExpiresAt:    now.Add(retention),
	}
	if err := s.sources.Create(ctx, source); err != nil {
		return err
	}

	s.downloadImages(ctx, source, parsed)

	s.logger.Info().
		Int64("source_id", int64(source.ID)).
		Str("site", site.Name).
		Str("title", source.Title).
		Msg("Article crawled")
	return nil
}

// downloadImages saves the thumbnail and body images. Download failures only
// cost the image, never the source record.
func (s *Service) downloadImages(ctx context.Context, source *models.Source, parsed *ParsedArticle) {
	if source.ThumbnailURL != "" {
		localPath, err := s.downloader.Download(source.ThumbnailURL, source.OriginalURL, source.ID, "thumbnail")
		if err != nil {
			s.logger.Warn().Err(err).Str("url", source.ThumbnailURL).Msg("Thumbnail download failed")
		} else if err := s.sources.UpdateThumbnailLocalPath(ctx, source.ID, localPath); err != nil {
			s.logger.Warn().Err(err).Int64("source_id", int64(source.ID)).Msg("Failed to record thumbnail path")
		}
	}

	for i, imageURL := range parsed.ImageURLs {
		localPath, err := s.downloader.Download(imageURL, source.OriginalURL, source.ID, fmt.Sprintf("image_%d", i+1))
		if err != nil {
			s.logger.Warn().Err(err).Str("url", imageURL).Msg("Body image download failed")
			continue
		}
		image := &models.SourceImage{
			SourceID:    source.ID,
			OriginalURL: imageURL,
			LocalPath:   localPath,
		}
		if err := s.sources.CreateImage(ctx, image); err != nil {
			s.logger.Warn().Err(err).Int64("source_id", int64(source.ID)).Msg("Failed to record source image")
		}
	}
}
