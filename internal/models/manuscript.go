package models

import "time"

// ManuscriptStatus is the lifecycle state of a generated manuscript.
// Forward-only: generating -> generated -> posted. failed is terminal;
// a failed manuscript cannot be retried in place, the caller creates a new one.
type ManuscriptStatus string

const (
	ManuscriptStatusGenerating ManuscriptStatus = "generating"
	ManuscriptStatusGenerated  ManuscriptStatus = "generated"
	ManuscriptStatusPosted     ManuscriptStatus = "posted"
	ManuscriptStatusFailed     ManuscriptStatus = "failed"
)

// LengthOption selects the requested manuscript length tier
type LengthOption string

const (
	LengthShort  LengthOption = "short"
	LengthMedium LengthOption = "medium"
	LengthLong   LengthOption = "long"
)

// Valid reports whether the option is one of the three tiers
func (l LengthOption) Valid() bool {
	return l == LengthShort || l == LengthMedium || l == LengthLong
}

// Manuscript is a derivative document generated from a Source. Prompt,
// template and source data are snapshotted at enqueue time so later edits or
// source expiry do not change what the pipeline works with.
type Manuscript struct {
	ID              uint64           `badgerhold:"key" json:"id"`
	UserID          uint64           `badgerhold:"index" json:"user_id"`
	SourceID        uint64           `badgerhold:"index" json:"source_id"` // 0 after expiry detach
	Title           string           `json:"title"`
	ContentHTML     string           `json:"content_html,omitempty"`
	Keyword         string           `json:"keyword,omitempty"`
	LengthOption    LengthOption     `json:"length_option"`
	NewImageCount   int              `json:"new_image_count"`
	Status          ManuscriptStatus `badgerhold:"index" json:"status"`
	PromptSnapshot  string           `json:"prompt_snapshot"`
	ImageTemplate   ImageTemplate    `json:"image_template"`
	SourceTitleSnap string           `json:"source_title_snapshot"`
	SourceURLSnap   string           `json:"source_url_snapshot"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// ImageTemplate carries the image-AI directives snapshotted onto a manuscript
type ImageTemplate struct {
	Name                string `json:"name,omitempty"`
	OriginalImagePrompt string `json:"original_image_prompt"`
	NewImagePrompt      string `json:"new_image_prompt,omitempty"`
	RemoveWatermark     bool   `json:"remove_watermark"`
}

// ManuscriptImageType distinguishes transformed source images from newly
// generated ones
type ManuscriptImageType string

const (
	ImageTypeOriginalProcessed ManuscriptImageType = "original_processed"
	ImageTypeGenerated         ManuscriptImageType = "generated"
)

// ManuscriptImage is one image attached to a manuscript. SortOrder is
// deterministic: processed images first in source order, then generated ones.
type ManuscriptImage struct {
	ID                    uint64              `badgerhold:"key" json:"id"`
	ManuscriptID          uint64              `badgerhold:"index" json:"manuscript_id"`
	ImageType             ManuscriptImageType `json:"image_type"`
	OriginalSourceImageID uint64              `json:"original_source_image_id,omitempty"`
	FilePath              string              `json:"file_path"`
	FileURL               string              `json:"file_url"`
	SortOrder             int                 `json:"sort_order"`
	CreatedAt             time.Time           `json:"created_at"`
}

// GeneratePayload is the job payload for manuscript generation. Everything
// the pipeline needs is resolved at enqueue time.
type GeneratePayload struct {
	ManuscriptID  uint64        `json:"manuscript_id"`
	UserID        uint64        `json:"user_id"`
	SourceID      uint64        `json:"source_id"`
	PromptContent string        `json:"prompt_content"`
	ModelProvider string        `json:"model_provider,omitempty"`
	ModelName     string        `json:"model_name,omitempty"`
	ImageTemplate ImageTemplate `json:"image_template"`
	Keyword       string        `json:"keyword,omitempty"`
	LengthOption  LengthOption  `json:"length_option"`
	NewImageCount int           `json:"new_image_count"`
}
