package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/wongohq/wongo/internal/common"
	"github.com/wongohq/wongo/internal/models"
)

func newTestClient(cfg *common.SearchConfig, serverURL string) *NaverClient {
	client := NewNaverClient(cfg, arbor.NewLogger())
	client.blogSearchURL = serverURL + "/v1/search/blog.json"
	client.cafeSearchURL = serverURL + "/v1/search/cafearticle.json"
	return client
}

func searchConfig() *common.SearchConfig {
	return &common.SearchConfig{
		Credentials: []common.NaverCredential{
			{ClientID: "id-1", ClientSecret: "secret-1"},
			{ClientID: "id-2", ClientSecret: "secret-2"},
		},
		RequestTimeout: "5s",
		Display:        3,
		MaxRank:        9,
	}
}

func writeItems(w http.ResponseWriter, links ...string) {
	type item struct {
		Link string `json:"link"`
	}
	items := make([]item, len(links))
	for i, l := range links {
		items[i].Link = l
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"total": len(links),
		"items": items,
	})
}

func TestRankFindsCanonicalizedURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("start") {
		case "1":
			writeItems(w,
				"https://blog.naver.com/other/100",
				"https://blog.naver.com/other/101",
				"https://blog.naver.com/other/102",
			)
		case "4":
			// Search returns the mobile variant; the posting URL is desktop
			writeItems(w,
				"https://m.blog.naver.com/tester/223000000001",
			)
		default:
			writeItems(w)
		}
	}))
	t.Cleanup(server.Close)

	client := newTestClient(searchConfig(), server.URL)

	rank, err := client.Rank(context.Background(), "맛집",
		"https://blog.naver.com/PostView.naver?blogId=tester&logNo=223000000001",
		models.PlatformBlog)
	require.NoError(t, err)
	require.NotNil(t, rank)
	assert.Equal(t, 4, *rank)
}

func TestRankReturnsNilWhenNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeItems(w, "https://blog.naver.com/other/1")
	}))
	t.Cleanup(server.Close)

	client := newTestClient(searchConfig(), server.URL)

	rank, err := client.Rank(context.Background(), "맛집",
		"https://blog.naver.com/tester/999", models.PlatformBlog)
	require.NoError(t, err)
	assert.Nil(t, rank)
}

func TestRankRotatesCredentials(t *testing.T) {
	var mu sync.Mutex
	var clientIDs []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		clientIDs = append(clientIDs, r.Header.Get("X-Naver-Client-Id"))
		mu.Unlock()
		// Full pages force pagination through all rank windows
		writeItems(w,
			"https://blog.naver.com/a/1",
			"https://blog.naver.com/a/2",
			"https://blog.naver.com/a/3",
		)
	}))
	t.Cleanup(server.Close)

	client := newTestClient(searchConfig(), server.URL)

	_, err := client.Rank(context.Background(), "kw", "https://blog.naver.com/x/1", models.PlatformBlog)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(clientIDs), 2)
	assert.Equal(t, "id-1", clientIDs[0])
	assert.Equal(t, "id-2", clientIDs[1])
}

func TestRankUsesCafeEndpointForCafePlatform(t *testing.T) {
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		writeItems(w)
	}))
	t.Cleanup(server.Close)

	client := newTestClient(searchConfig(), server.URL)

	_, err := client.Rank(context.Background(), "kw", "https://cafe.naver.com/c/1", models.PlatformCafe)
	require.NoError(t, err)
	assert.Equal(t, "/v1/search/cafearticle.json", path)
}

func TestFetchMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			fmt.Fprint(w, `<html><script>var data={"commentCount":7,"readCount":312};</script></html>`)
		case "/bare":
			fmt.Fprint(w, `<html><body>post</body></html>`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	client := newTestClient(searchConfig(), server.URL)
	ctx := context.Background()

	metrics, err := client.Fetch(ctx, server.URL+"/ok", models.PlatformBlog)
	require.NoError(t, err)
	assert.True(t, metrics.Accessible)
	require.NotNil(t, metrics.Comments)
	assert.Equal(t, 7, *metrics.Comments)
	require.NotNil(t, metrics.Views)
	assert.Equal(t, 312, *metrics.Views)

	// Page loads but exposes no counters
	metrics, err = client.Fetch(ctx, server.URL+"/bare", models.PlatformBlog)
	require.NoError(t, err)
	assert.True(t, metrics.Accessible)
	assert.Nil(t, metrics.Comments)
	assert.Nil(t, metrics.Views)

	// Missing page is inaccessible, not an error
	metrics, err = client.Fetch(ctx, server.URL+"/gone", models.PlatformBlog)
	require.NoError(t, err)
	assert.False(t, metrics.Accessible)
}
