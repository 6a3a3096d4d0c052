package models

import "time"

// Source is a crawled news article. Uniqueness is enforced on URLHash (the
// SHA-256 of the normalized article URL) so re-crawling the same article is
// a no-op.
type Source struct {
	ID                 uint64    `badgerhold:"key" json:"id"`
	Title              string    `json:"title"`
	ThumbnailURL       string    `json:"thumbnail_url,omitempty"`
	ThumbnailLocalPath string    `json:"thumbnail_local_path,omitempty"`
	OriginalURL        string    `json:"original_url"`
	URLHash            string    `badgerhold:"unique" json:"url_hash"`
	ContentHTML        string    `json:"content_html"`
	Category           string    `json:"category,omitempty"`
	SourceSite         string    `json:"source_site"`
	CrawledAt          time.Time `json:"crawled_at"`
	ExpiresAt          time.Time `json:"expires_at"`
}

// Expired reports whether the retention window has passed
func (s *Source) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// SourceImage is one inline image downloaded from an article body
type SourceImage struct {
	ID          uint64    `badgerhold:"key" json:"id"`
	SourceID    uint64    `badgerhold:"index" json:"source_id"`
	OriginalURL string    `json:"original_url"`
	LocalPath   string    `json:"local_path"`
	CreatedAt   time.Time `json:"created_at"`
}

// SourceWorker records that a user is currently generating a manuscript from
// a source. Claims are idempotent per (source, user) pair and released when
// generation finishes, succeed or fail.
type SourceWorker struct {
	ID        uint64    `badgerhold:"key" json:"id"`
	SourceID  uint64    `badgerhold:"index" json:"source_id"`
	UserID    uint64    `json:"user_id"`
	ClaimedAt time.Time `json:"claimed_at"`
}
