package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/wongohq/wongo/internal/common"
	"github.com/wongohq/wongo/internal/interfaces"
	"github.com/wongohq/wongo/internal/models"
)

// fakeSourceStorage is an in-memory SourceStorage for crawl cycle tests
type fakeSourceStorage struct {
	mu      sync.Mutex
	nextID  uint64
	sources map[uint64]*models.Source
	byHash  map[string]uint64
}

func newFakeSourceStorage() *fakeSourceStorage {
	return &fakeSourceStorage{
		sources: make(map[uint64]*models.Source),
		byHash:  make(map[string]uint64),
	}
}

func (f *fakeSourceStorage) Create(ctx context.Context, source *models.Source) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.byHash[source.URLHash]; exists {
		return interfaces.ErrDuplicate
	}
	f.nextID++
	source.ID = f.nextID
	f.sources[source.ID] = source
	f.byHash[source.URLHash] = source.ID
	return nil
}

func (f *fakeSourceStorage) GetByID(ctx context.Context, id uint64) (*models.Source, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	src, ok := f.sources[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	return src, nil
}

func (f *fakeSourceStorage) FindByURLHash(ctx context.Context, hash string) (*models.Source, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, ok := f.byHash[hash]; ok {
		return f.sources[id], nil
	}
	return nil, nil
}

func (f *fakeSourceStorage) UpdateThumbnailLocalPath(ctx context.Context, id uint64, localPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if src, ok := f.sources[id]; ok {
		src.ThumbnailLocalPath = localPath
	}
	return nil
}

func (f *fakeSourceStorage) CreateImage(ctx context.Context, image *models.SourceImage) error {
	return nil
}

func (f *fakeSourceStorage) ImagesBySource(ctx context.Context, sourceID uint64) ([]models.SourceImage, error) {
	return nil, nil
}

func (f *fakeSourceStorage) AddWorker(ctx context.Context, sourceID, userID uint64) error {
	return nil
}

func (f *fakeSourceStorage) RemoveWorker(ctx context.Context, sourceID, userID uint64) error {
	return nil
}

func (f *fakeSourceStorage) SnapshotAndDetachExpired(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}

func (f *fakeSourceStorage) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}

func (f *fakeSourceStorage) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sources)
}

func newTestSite(serverURL string) *common.CrawlerConfig {
	return &common.CrawlerConfig{
		UserAgent:      "wongo-test/1.0",
		RequestTimeout: "5s",
		ArticleDelay:   "1ms",
		RetentionDays:  7,
		Sites: []common.CrawlSiteConfig{{
			ID:      "test-site",
			Name:    "Test News",
			BaseURL: serverURL,
			ListPages: []common.ListPageConfig{{
				URL:          serverURL + "/list",
				LinkSelector: "a.article",
				Category:     "sports",
			}},
			Article: common.ArticleSelectors{
				TitleSelector:   "h1",
				ContentSelector: "div.body",
			},
		}},
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/list", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<a class="article" href="/article/1">One</a>
			<a class="article" href="/article/2">Two</a>
		</body></html>`)
	})
	mux.HandleFunc("/article/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><head><title>T</title></head><body>
			<h1>Article %s</h1>
			<div class="body"><p>body text</p></div>
		</body></html>`, r.URL.Path)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestRunCycleCrawlsAndDeduplicates(t *testing.T) {
	server := newTestServer(t)
	storage := newFakeSourceStorage()
	svc := NewService(newTestSite(server.URL), storage, t.TempDir(), arbor.NewLogger())

	stats, ran := svc.RunCycle(context.Background())
	require.True(t, ran)
	assert.Equal(t, 2, stats.ArticlesCrawled)
	assert.Equal(t, 0, stats.DuplicatesSkipped)
	assert.Equal(t, 2, storage.count())

	// A second cycle finds everything already stored
	stats, ran = svc.RunCycle(context.Background())
	require.True(t, ran)
	assert.Equal(t, 0, stats.ArticlesCrawled)
	assert.Equal(t, 2, stats.DuplicatesSkipped)
	assert.Equal(t, 2, storage.count())
}

func TestRunCycleIsSingleFlight(t *testing.T) {
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("/list", func(w http.ResponseWriter, r *http.Request) {
		<-release
		fmt.Fprint(w, `<html><body></body></html>`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	svc := NewService(newTestSite(server.URL), newFakeSourceStorage(), t.TempDir(), arbor.NewLogger())

	done := make(chan bool, 1)
	go func() {
		_, ran := svc.RunCycle(context.Background())
		done <- ran
	}()

	// Wait until the first cycle is inside the list fetch
	require.Eventually(t, svc.IsRunning, time.Second, 5*time.Millisecond)

	_, ran := svc.RunCycle(context.Background())
	assert.False(t, ran, "overlapping cycle must be skipped")

	close(release)
	assert.True(t, <-done)
}

func TestCrawlSiteSurvivesBadArticle(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/list", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<a class="article" href="/article/ok">OK</a>
			<a class="article" href="/article/broken">Broken</a>
		</body></html>`)
	})
	mux.HandleFunc("/article/ok", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><h1>OK</h1><div class="body"><p>x</p></div></body></html>`)
	})
	mux.HandleFunc("/article/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	storage := newFakeSourceStorage()
	svc := NewService(newTestSite(server.URL), storage, t.TempDir(), arbor.NewLogger())

	stats, ran := svc.RunCycle(context.Background())
	require.True(t, ran)
	assert.Equal(t, 1, stats.ArticlesCrawled)
	assert.Equal(t, 1, stats.Failures)
	assert.Equal(t, 1, storage.count())
}
