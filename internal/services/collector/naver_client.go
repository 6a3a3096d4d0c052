package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/wongohq/wongo/internal/common"
	"github.com/wongohq/wongo/internal/interfaces"
	"github.com/wongohq/wongo/internal/models"
)

const (
	naverBlogSearchURL = "https://openapi.naver.com/v1/search/blog.json"
	naverCafeSearchURL = "https://openapi.naver.com/v1/search/cafearticle.json"

	defaultDisplay = 30
	defaultMaxRank = 50
)

// NaverClient talks to the Naver Open API. It implements
// interfaces.RankSearcher and interfaces.MetricsFetcher. Multiple credential
// pairs are rotated across requests to stretch the per-app quota.
type NaverClient struct {
	httpClient  *http.Client
	credentials []common.NaverCredential
	display     int
	maxRank     int
	logger      arbor.ILogger

	// overridable in tests
	blogSearchURL string
	cafeSearchURL string

	mu      sync.Mutex
	credIdx int
}

// NewNaverClient creates the Open API client from search config
func NewNaverClient(cfg *common.SearchConfig, logger arbor.ILogger) *NaverClient {
	display := cfg.Display
	if display <= 0 {
		display = defaultDisplay
	}
	maxRank := cfg.MaxRank
	if maxRank <= 0 {
		maxRank = defaultMaxRank
	}

	return &NaverClient{
		httpClient:    &http.Client{Timeout: common.Duration(cfg.RequestTimeout, 10*time.Second)},
		credentials:   cfg.Credentials,
		display:       display,
		maxRank:       maxRank,
		logger:        logger,
		blogSearchURL: naverBlogSearchURL,
		cafeSearchURL: naverCafeSearchURL,
	}
}

// nextCredential rotates through the configured credential pairs
func (c *NaverClient) nextCredential() (*common.NaverCredential, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.credentials) == 0 {
		return nil, fmt.Errorf("no Naver credentials configured")
	}
	cred := &c.credentials[c.credIdx%len(c.credentials)]
	c.credIdx++
	return cred, nil
}

type naverSearchResponse struct {
	Total int `json:"total"`
	Items []struct {
		Link string `json:"link"`
	} `json:"items"`
}

// Rank searches for targetURL under keyword and returns its 1-based rank,
// or (nil, nil) when it does not appear within the configured range.
// Mobile/desktop and parameterized/path URL variants match as one.
func (c *NaverClient) Rank(ctx context.Context, keyword, targetURL string, platform models.Platform) (*int, error) {
	endpoint := c.blogSearchURL
	if platform == models.PlatformCafe {
		endpoint = c.cafeSearchURL
	}

	for start := 1; start <= c.maxRank; start += c.display {
		resp, err := c.search(ctx, endpoint, keyword, start)
		if err != nil {
			return nil, err
		}

		for i, item := range resp.Items {
			rank := start + i
			if rank > c.maxRank {
				return nil, nil
			}
			if common.SameContentURL(item.Link, targetURL) {
				c.logger.Debug().
					Str("keyword", keyword).
					Int("rank", rank).
					Msg("Posting found in search results")
				return &rank, nil
			}
		}

		// Short page means the result set is exhausted
		if len(resp.Items) < c.display {
			break
		}
	}
	return nil, nil
}

func (c *NaverClient) search(ctx context.Context, endpoint, keyword string, start int) (*naverSearchResponse, error) {
	cred, err := c.nextCredential()
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("query", keyword)
	query.Set("display", strconv.Itoa(c.display))
	query.Set("start", strconv.Itoa(start))
	query.Set("sort", "sim")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("X-Naver-Client-Id", cred.ClientID)
	req.Header.Set("X-Naver-Client-Secret", cred.ClientSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search failed: status %d: %s", resp.StatusCode, string(body))
	}

	var parsed naverSearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	return &parsed, nil
}

// commentCountRegex pulls the comment counter embedded in Naver post pages
var commentCountRegex = regexp.MustCompile(`"?commentCount"?\s*[:=]\s*"?(\d+)`)

// viewCountRegex matches the view counter some post pages inline
var viewCountRegex = regexp.MustCompile(`"?(?:readCount|viewCount)"?\s*[:=]\s*"?(\d+)`)

// Fetch checks a posted URL for accessibility and scrapes whatever counters
// the page inlines. A page that loads but exposes no counters yields an
// accessible point with nil metrics.
func (c *NaverClient) Fetch(ctx context.Context, postURL string, platform models.Platform) (*interfaces.Metrics, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, postURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build metrics request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; wongo/1.0)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &interfaces.Metrics{Accessible: false}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &interfaces.Metrics{Accessible: false}, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return &interfaces.Metrics{Accessible: false}, nil
	}

	metrics := &interfaces.Metrics{Accessible: true}
	if m := commentCountRegex.FindSubmatch(body); len(m) == 2 {
		if n, err := strconv.Atoi(string(m[1])); err == nil {
			metrics.Comments = &n
		}
	}
	if m := viewCountRegex.FindSubmatch(body); len(m) == 2 {
		if n, err := strconv.Atoi(string(m[1])); err == nil {
			metrics.Views = &n
		}
	}
	return metrics, nil
}
