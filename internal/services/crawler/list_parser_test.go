package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/wongohq/wongo/internal/common"
)

func TestParseURLsFromHTML(t *testing.T) {
	body := []byte(`<html><body>
		<ul class="ranking">
			<li><a href="/article/100">First</a></li>
			<li><a href="/article/101?ref=rank">Second</a></li>
			<li><a href="/article/100#comments">First again</a></li>
			<li><a href="https://other.example.com/article/1">Off-site</a></li>
			<li><a href="javascript:void(0)">Nope</a></li>
			<li><a href="/event/42">Event</a></li>
		</ul>
	</body></html>`)

	parser := NewListParser(arbor.NewLogger())
	page := &common.ListPageConfig{
		URL:          "https://news.example.com/ranking",
		LinkSelector: "ul.ranking a",
		URLPattern:   `news\.example\.com/article/\d+`,
	}

	urls, err := parser.ParseURLs(body, page)
	require.NoError(t, err)

	// Query/fragment stripped, duplicates collapsed, pattern applied
	assert.Equal(t, []string{
		"https://news.example.com/article/100",
		"https://news.example.com/article/101",
	}, urls)
}

func TestParseURLsFromRSS(t *testing.T) {
	body := []byte(`<?xml version="1.0" encoding="UTF-8"?>
		<rss version="2.0"><channel>
			<title>Example Feed</title>
			<item><title>A</title><link>https://news.example.com/article/1?utm=rss</link></item>
			<item><title>B</title><link>https://news.example.com/article/2</link></item>
		</channel></rss>`)

	parser := NewListParser(arbor.NewLogger())
	page := &common.ListPageConfig{
		URL: "https://news.example.com/feed.xml",
		RSS: true,
	}

	urls, err := parser.ParseURLs(body, page)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://news.example.com/article/1",
		"https://news.example.com/article/2",
	}, urls)
}

func TestParseURLsRespectsMaxArticles(t *testing.T) {
	body := []byte(`<html><body>
		<a href="/a/1">1</a><a href="/a/2">2</a><a href="/a/3">3</a>
	</body></html>`)

	parser := NewListParser(arbor.NewLogger())
	page := &common.ListPageConfig{
		URL:         "https://news.example.com/list",
		MaxArticles: 2,
	}

	urls, err := parser.ParseURLs(body, page)
	require.NoError(t, err)
	assert.Len(t, urls, 2)
}
