package collector

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/wongohq/wongo/internal/interfaces"
	"github.com/wongohq/wongo/internal/models"
)

type fakeTrackingStorage struct {
	mu       sync.Mutex
	active   []models.PerformanceTracking
	expired  int
	points   []models.PerformanceDataPoint
	appendMu sync.Mutex
}

func (f *fakeTrackingStorage) Create(ctx context.Context, t *models.PerformanceTracking) error {
	return nil
}
func (f *fakeTrackingStorage) GetByID(ctx context.Context, id uint64) (*models.PerformanceTracking, error) {
	return nil, interfaces.ErrNotFound
}
func (f *fakeTrackingStorage) FindByPostingID(ctx context.Context, postingID uint64) (*models.PerformanceTracking, error) {
	return nil, nil
}
func (f *fakeTrackingStorage) ActiveTrackings(ctx context.Context) ([]models.PerformanceTracking, error) {
	return f.active, nil
}
func (f *fakeTrackingStorage) CompleteExpired(ctx context.Context, now time.Time) (int, error) {
	return f.expired, nil
}
func (f *fakeTrackingStorage) AppendDataPoint(ctx context.Context, point *models.PerformanceDataPoint) error {
	f.appendMu.Lock()
	defer f.appendMu.Unlock()
	f.points = append(f.points, *point)
	return nil
}
func (f *fakeTrackingStorage) DataPoints(ctx context.Context, trackingID uint64) ([]models.PerformanceDataPoint, error) {
	return f.points, nil
}
func (f *fakeTrackingStorage) LatestDataPoint(ctx context.Context, trackingID uint64) (*models.PerformanceDataPoint, error) {
	return nil, nil
}

type fakePostingStorage struct {
	postings map[uint64]*models.Posting
}

func (f *fakePostingStorage) Create(ctx context.Context, p *models.Posting) error { return nil }
func (f *fakePostingStorage) GetByID(ctx context.Context, id uint64) (*models.Posting, error) {
	p, ok := f.postings[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	return p, nil
}
func (f *fakePostingStorage) FindByManuscriptID(ctx context.Context, manuscriptID uint64) (*models.Posting, error) {
	return nil, nil
}

type fakeRankSearcher struct {
	rank *int
	err  error
}

func (f *fakeRankSearcher) Rank(ctx context.Context, keyword, targetURL string, platform models.Platform) (*int, error) {
	return f.rank, f.err
}

type fakeMetricsFetcher struct {
	byURL map[string]*interfaces.Metrics
	err   error
}

func (f *fakeMetricsFetcher) Fetch(ctx context.Context, url string, platform models.Platform) (*interfaces.Metrics, error) {
	if f.err != nil {
		return nil, f.err
	}
	if m, ok := f.byURL[url]; ok {
		return m, nil
	}
	return &interfaces.Metrics{Accessible: false}, nil
}

func activeTracking(id, postingID uint64) models.PerformanceTracking {
	now := time.Now()
	return models.PerformanceTracking{
		ID:            id,
		PostingID:     postingID,
		TrackingStart: now.Add(-time.Hour),
		TrackingEnd:   now.Add(24 * time.Hour),
		Status:        models.TrackingStatusTracking,
	}
}

func TestRunCycleCollectsPointPerTracking(t *testing.T) {
	views, comments, rank := 120, 4, 7
	trackings := &fakeTrackingStorage{
		expired: 2,
		active:  []models.PerformanceTracking{activeTracking(1, 10), activeTracking(2, 11)},
	}
	postings := &fakePostingStorage{postings: map[uint64]*models.Posting{
		10: {ID: 10, URL: "https://blog.naver.com/a/1", Platform: models.PlatformBlog, Keyword: "맛집"},
		11: {ID: 11, URL: "https://blog.naver.com/b/2", Platform: models.PlatformBlog, Keyword: "여행"},
	}}
	metrics := &fakeMetricsFetcher{byURL: map[string]*interfaces.Metrics{
		"https://blog.naver.com/a/1": {Accessible: true, Views: &views, Comments: &comments},
		"https://blog.naver.com/b/2": {Accessible: true},
	}}

	svc := NewService(trackings, postings, &fakeRankSearcher{rank: &rank}, metrics, arbor.NewLogger())

	stats, ran := svc.RunCycle(context.Background())
	require.True(t, ran)
	assert.Equal(t, 2, stats.TrackingsCompleted)
	assert.Equal(t, 2, stats.PointsCollected)
	assert.Equal(t, 0, stats.Failures)

	require.Len(t, trackings.points, 2)
	first := trackings.points[0]
	assert.True(t, first.IsAccessible)
	assert.Equal(t, 120, *first.ViewCount)
	assert.Equal(t, 4, *first.CommentCount)
	assert.Equal(t, 7, *first.KeywordRank)
}

func TestRunCycleRecordsInaccessiblePoint(t *testing.T) {
	trackings := &fakeTrackingStorage{
		active: []models.PerformanceTracking{activeTracking(1, 10)},
	}
	postings := &fakePostingStorage{postings: map[uint64]*models.Posting{
		10: {ID: 10, URL: "https://blog.naver.com/deleted/1", Platform: models.PlatformBlog, Keyword: "맛집"},
	}}

	svc := NewService(trackings, postings, &fakeRankSearcher{}, &fakeMetricsFetcher{}, arbor.NewLogger())

	stats, ran := svc.RunCycle(context.Background())
	require.True(t, ran)
	assert.Equal(t, 1, stats.PointsCollected)

	// The miss is recorded, not skipped
	require.Len(t, trackings.points, 1)
	point := trackings.points[0]
	assert.False(t, point.IsAccessible)
	assert.Nil(t, point.ViewCount)
	assert.Nil(t, point.CommentCount)
	assert.Nil(t, point.KeywordRank)
}

func TestRunCycleIsolatesPerTrackingFailures(t *testing.T) {
	views := 10
	trackings := &fakeTrackingStorage{
		active: []models.PerformanceTracking{
			activeTracking(1, 99), // posting missing
			activeTracking(2, 10),
		},
	}
	postings := &fakePostingStorage{postings: map[uint64]*models.Posting{
		10: {ID: 10, URL: "https://blog.naver.com/a/1", Platform: models.PlatformBlog},
	}}
	metrics := &fakeMetricsFetcher{byURL: map[string]*interfaces.Metrics{
		"https://blog.naver.com/a/1": {Accessible: true, Views: &views},
	}}

	svc := NewService(trackings, postings, &fakeRankSearcher{}, metrics, arbor.NewLogger())

	stats, ran := svc.RunCycle(context.Background())
	require.True(t, ran)
	assert.Equal(t, 1, stats.Failures)
	assert.Equal(t, 1, stats.PointsCollected)
	require.Len(t, trackings.points, 1)
	assert.Equal(t, uint64(2), trackings.points[0].TrackingID)
}

func TestRunCycleSkipsRankWithoutKeyword(t *testing.T) {
	trackings := &fakeTrackingStorage{
		active: []models.PerformanceTracking{activeTracking(1, 10)},
	}
	postings := &fakePostingStorage{postings: map[uint64]*models.Posting{
		10: {ID: 10, URL: "https://blog.naver.com/a/1", Platform: models.PlatformBlog},
	}}
	metrics := &fakeMetricsFetcher{byURL: map[string]*interfaces.Metrics{
		"https://blog.naver.com/a/1": {Accessible: true},
	}}
	ranks := &fakeRankSearcher{err: fmt.Errorf("must not be called")}

	svc := NewService(trackings, postings, ranks, metrics, arbor.NewLogger())

	stats, ran := svc.RunCycle(context.Background())
	require.True(t, ran)
	assert.Equal(t, 1, stats.PointsCollected)
	assert.Nil(t, trackings.points[0].KeywordRank)
}
