package crawler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
)

// Fetcher retrieves pages through a Colly collector, pacing requests with a
// shared rate limiter so article fetches within one site stay spaced out
type Fetcher struct {
	userAgent string
	timeout   time.Duration
	limiter   *rate.Limiter
	logger    arbor.ILogger
}

// NewFetcher creates a pacing page fetcher. articleDelay is the minimum gap
// between consecutive fetches.
func NewFetcher(userAgent string, timeout, articleDelay time.Duration, logger arbor.ILogger) *Fetcher {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if articleDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(articleDelay), 1)
	}
	return &Fetcher{
		userAgent: userAgent,
		timeout:   timeout,
		limiter:   limiter,
		logger:    logger,
	}
}

// FetchBytes retrieves a URL and returns the raw response body
func (f *Fetcher) FetchBytes(ctx context.Context, targetURL string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	c := colly.NewCollector(
		colly.UserAgent(f.userAgent),
		colly.IgnoreRobotsTxt(),
	)
	c.SetRequestTimeout(f.timeout)

	var body []byte
	var fetchErr error

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		r.Headers.Set("Accept-Language", "ko-KR,ko;q=0.9,en-US;q=0.8")
	})
	c.OnResponse(func(r *colly.Response) {
		if r.StatusCode >= 200 && r.StatusCode < 300 {
			body = r.Body
		} else {
			fetchErr = fmt.Errorf("unexpected status %d", r.StatusCode)
		}
	})
	c.OnError(func(r *colly.Response, err error) {
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = fmt.Errorf("fetch failed (status %d): %w", status, err)
	})

	if err := c.Visit(targetURL); err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	c.Wait()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if fetchErr != nil {
		return nil, fetchErr
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("empty response body")
	}

	f.logger.Debug().
		Str("url", targetURL).
		Int("bytes", len(body)).
		Msg("Page fetched")
	return body, nil
}

// FetchDocument retrieves a URL and parses it into a goquery document
func (f *Fetcher) FetchDocument(ctx context.Context, targetURL string) (*goquery.Document, error) {
	body, err := f.FetchBytes(ctx, targetURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// NewDownloadClient builds the plain HTTP client used for image downloads
func NewDownloadClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
