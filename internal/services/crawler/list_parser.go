package crawler

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/wongohq/wongo/internal/common"
)

// defaultMaxArticles caps how many article URLs one list page contributes
const defaultMaxArticles = 20

// ListParser harvests candidate article URLs from list/ranking pages
type ListParser struct {
	logger arbor.ILogger
}

// NewListParser creates a list page parser
func NewListParser(logger arbor.ILogger) *ListParser {
	return &ListParser{logger: logger}
}

// rssFeed is the subset of RSS 2.0 needed to pull item links
type rssFeed struct {
	Channel struct {
		Items []struct {
			Link string `xml:"link"`
		} `xml:"item"`
	} `xml:"channel"`
}

// ParseURLs extracts article URLs from a fetched list page body. URLs are
// resolved against the page URL, normalized, filtered by the optional
// pattern, deduplicated and capped.
func (p *ListParser) ParseURLs(body []byte, page *common.ListPageConfig) ([]string, error) {
	var raw []string
	var err error
	if page.RSS {
		raw, err = p.parseRSS(body)
	} else {
		raw, err = p.parseHTML(body, page.LinkSelector)
	}
	if err != nil {
		return nil, err
	}

	var pattern *regexp.Regexp
	if page.URLPattern != "" {
		pattern, err = regexp.Compile(page.URLPattern)
		if err != nil {
			return nil, fmt.Errorf("invalid url_pattern %q: %w", page.URLPattern, err)
		}
	}

	maxArticles := page.MaxArticles
	if maxArticles <= 0 {
		maxArticles = defaultMaxArticles
	}

	seen := make(map[string]bool)
	urls := make([]string, 0, maxArticles)
	for _, href := range raw {
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
			continue
		}

		normalized := common.NormalizeURL(common.ResolveURL(href, page.URL))

		if pattern != nil && !pattern.MatchString(normalized) {
			continue
		}
		if seen[normalized] {
			continue
		}
		seen[normalized] = true

		urls = append(urls, normalized)
		if len(urls) >= maxArticles {
			break
		}
	}

	p.logger.Debug().
		Str("page", page.URL).
		Int("candidates", len(raw)).
		Int("kept", len(urls)).
		Msg("List page parsed")
	return urls, nil
}

func (p *ListParser) parseRSS(body []byte) ([]string, error) {
	var feed rssFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("failed to parse RSS feed: %w", err)
	}

	links := make([]string, 0, len(feed.Channel.Items))
	for _, item := range feed.Channel.Items {
		links = append(links, item.Link)
	}
	return links, nil
}

func (p *ListParser) parseHTML(body []byte, selector string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse list HTML: %w", err)
	}

	if selector == "" {
		selector = "a[href]"
	}

	var links []string
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		// Selector may match the anchor itself or a container around it
		href, ok := sel.Attr("href")
		if !ok {
			href, ok = sel.Find("a[href]").First().Attr("href")
		}
		if ok {
			links = append(links, href)
		}
	})
	return links, nil
}
