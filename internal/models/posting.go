package models

import "time"

// Platform is the external publishing target
type Platform string

const (
	PlatformBlog Platform = "blog"
	PlatformCafe Platform = "cafe"
)

// Valid reports whether the platform is supported
func (p Platform) Valid() bool {
	return p == PlatformBlog || p == PlatformCafe
}

// Posting records that a manuscript was published externally. Exactly one
// posting may exist per manuscript; publish is rejected once one exists.
type Posting struct {
	ID           uint64    `badgerhold:"key" json:"id"`
	ManuscriptID uint64    `badgerhold:"unique" json:"manuscript_id"`
	URL          string    `json:"url"`
	Platform     Platform  `json:"platform"`
	Keyword      string    `json:"keyword,omitempty"`
	PostedAt     time.Time `json:"posted_at"`
}
