package crawler

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/wongohq/wongo/internal/common"
)

// lazyImageAttrs are checked in order before the plain src attribute.
// Korean news sites routinely lazy-load body images behind these.
var lazyImageAttrs = []string{"data-src", "data-lazy-src", "data-original", "src"}

// ParsedArticle is the extraction result for one article page
type ParsedArticle struct {
	Title        string
	ContentHTML  string
	ThumbnailURL string
	Category     string
	ImageURLs    []string
}

// ArticleParser extracts article fields from a page using configured
// selectors with meta-tag fallbacks
type ArticleParser struct {
	logger arbor.ILogger
}

// NewArticleParser creates an article page parser
func NewArticleParser(logger arbor.ILogger) *ArticleParser {
	return &ArticleParser{logger: logger}
}

// Parse extracts the article from a fetched document. pageURL anchors
// relative image URLs. Fails when no title or no content can be found.
func (p *ArticleParser) Parse(doc *goquery.Document, pageURL string, selectors *common.ArticleSelectors) (*ParsedArticle, error) {
	article := &ParsedArticle{}

	article.Title = p.extractTitle(doc, selectors.TitleSelector)
	if article.Title == "" {
		return nil, fmt.Errorf("no title found")
	}

	content := doc.Find(selectors.ContentSelector).First()
	if content.Length() == 0 {
		return nil, fmt.Errorf("content selector %q matched nothing", selectors.ContentSelector)
	}

	// Strip scripts and styles before snapshotting the body HTML
	content.Find("script, style, noscript, iframe").Remove()
	html, err := content.Html()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize content: %w", err)
	}
	article.ContentHTML = strings.TrimSpace(html)
	if article.ContentHTML == "" {
		return nil, fmt.Errorf("empty article content")
	}

	article.ThumbnailURL = p.extractThumbnail(doc, pageURL, selectors.ThumbnailSelector)
	if selectors.CategorySelector != "" {
		article.Category = strings.TrimSpace(doc.Find(selectors.CategorySelector).First().Text())
	}
	article.ImageURLs = p.extractImages(content, pageURL)

	return article, nil
}

// extractTitle falls back selector -> og:title -> <title>
func (p *ArticleParser) extractTitle(doc *goquery.Document, selector string) string {
	if selector != "" {
		if title := strings.TrimSpace(doc.Find(selector).First().Text()); title != "" {
			return title
		}
	}
	if og, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		if og = strings.TrimSpace(og); og != "" {
			return og
		}
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// extractThumbnail falls back selector -> og:image
func (p *ArticleParser) extractThumbnail(doc *goquery.Document, pageURL, selector string) string {
	if selector != "" {
		sel := doc.Find(selector).First()
		if src := imageSrc(sel); src != "" {
			return common.ResolveURL(src, pageURL)
		}
	}
	if og, ok := doc.Find(`meta[property="og:image"]`).First().Attr("content"); ok {
		if og = strings.TrimSpace(og); og != "" {
			return common.ResolveURL(og, pageURL)
		}
	}
	return ""
}

// extractImages collects deduplicated absolute image URLs from the body
func (p *ArticleParser) extractImages(content *goquery.Selection, pageURL string) []string {
	seen := make(map[string]bool)
	var urls []string

	content.Find("img").Each(func(_ int, img *goquery.Selection) {
		src := imageSrc(img)
		if src == "" || strings.HasPrefix(src, "data:") {
			return
		}
		resolved := common.ResolveURL(src, pageURL)
		if seen[resolved] {
			return
		}
		seen[resolved] = true
		urls = append(urls, resolved)
	})
	return urls
}

// imageSrc resolves an img element's URL, preferring lazy-load attributes
func imageSrc(img *goquery.Selection) string {
	for _, attr := range lazyImageAttrs {
		if val, ok := img.Attr(attr); ok {
			if val = strings.TrimSpace(val); val != "" {
				return val
			}
		}
	}
	return ""
}
