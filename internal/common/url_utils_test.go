package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t,
		"https://n.news.naver.com/article/001/0015000001",
		NormalizeURL("https://n.news.naver.com/article/001/0015000001?ntype=RANKING&sid=102"))

	assert.Equal(t,
		"https://n.news.naver.com/article/001/0015000001",
		NormalizeURL("https://n.news.naver.com/article/001/0015000001#comments"))

	// Unparseable input passes through untouched
	assert.Equal(t, "://bad", NormalizeURL("://bad"))
}

func TestHashURLStable(t *testing.T) {
	a := HashURL("https://n.news.naver.com/article/001/1")
	b := HashURL("https://n.news.naver.com/article/001/1")
	c := HashURL("https://n.news.naver.com/article/001/2")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestResolveURL(t *testing.T) {
	assert.Equal(t,
		"https://news.naver.com/article/1",
		ResolveURL("/article/1", "https://news.naver.com/main/ranking/popularDay.naver"))

	assert.Equal(t,
		"https://other.example.com/x",
		ResolveURL("https://other.example.com/x", "https://news.naver.com"))
}

func TestCanonicalizeForMatch(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
	}{
		{
			name: "mobile and desktop blog hosts",
			a:    "https://m.blog.naver.com/alice/223001122334",
			b:    "https://blog.naver.com/alice/223001122334",
		},
		{
			name: "query-encoded and path-encoded blog post",
			a:    "https://blog.naver.com/PostView.naver?blogId=alice&logNo=223001122334",
			b:    "https://blog.naver.com/alice/223001122334",
		},
		{
			name: "legacy PostView.nhn form",
			a:    "https://blog.naver.com/PostView.nhn?blogId=alice&logNo=223001122334",
			b:    "https://m.blog.naver.com/alice/223001122334",
		},
		{
			name: "cafe ArticleRead form",
			a:    "https://cafe.naver.com/ArticleRead.nhn?clubid=10050146&articleid=99887",
			b:    "https://m.cafe.naver.com/10050146/99887",
		},
		{
			name: "trailing slash ignored",
			a:    "https://blog.naver.com/alice/223001122334/",
			b:    "https://blog.naver.com/alice/223001122334",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, SameContentURL(tt.a, tt.b),
				"%q and %q should canonicalize identically", tt.a, tt.b)
		})
	}

	assert.False(t, SameContentURL(
		"https://blog.naver.com/alice/1",
		"https://blog.naver.com/bob/1"))
}
