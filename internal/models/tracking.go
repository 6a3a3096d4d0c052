package models

import "time"

// TrackingStatus is the lifecycle state of a performance tracking window
type TrackingStatus string

const (
	TrackingStatusTracking  TrackingStatus = "tracking"
	TrackingStatusCompleted TrackingStatus = "completed"
)

// PerformanceTracking monitors one posting for a fixed window after publish.
// The status flips to completed once TrackingEnd passes; no data points are
// appended after completion.
type PerformanceTracking struct {
	ID            uint64         `badgerhold:"key" json:"id"`
	PostingID     uint64         `badgerhold:"unique" json:"posting_id"`
	TrackingStart time.Time      `json:"tracking_start"`
	TrackingEnd   time.Time      `json:"tracking_end"`
	Status        TrackingStatus `badgerhold:"index" json:"status"`
}

// Ended reports whether the tracking window has passed
func (t *PerformanceTracking) Ended(now time.Time) bool {
	return !t.TrackingEnd.After(now)
}

// PerformanceDataPoint is one append-only measurement for a tracking.
// Nil metric fields plus IsAccessible=false record a failed or inaccessible
// collection attempt.
type PerformanceDataPoint struct {
	ID           uint64    `badgerhold:"key" json:"id"`
	TrackingID   uint64    `badgerhold:"index" json:"tracking_id"`
	KeywordRank  *int      `json:"keyword_rank"`
	ViewCount    *int      `json:"view_count"`
	CommentCount *int      `json:"comment_count"`
	IsAccessible bool      `json:"is_accessible"`
	CollectedAt  time.Time `json:"collected_at"`
}
