package interfaces

import (
	"context"

	"github.com/wongohq/wongo/internal/models"
)

// TextRequest is a provider-agnostic text generation request
type TextRequest struct {
	Prompt   string
	Provider string // empty = configured default
	Model    string // empty = provider default
}

// TextResponse carries the generated text and which backend produced it
type TextResponse struct {
	Text     string
	Provider string
	Model    string
}

// TextGenerator produces manuscript text from an assembled prompt.
// Implementations fail with a provider error on missing credentials or
// non-2xx responses; callers treat blank text as EmptyResponse.
type TextGenerator interface {
	Generate(ctx context.Context, req *TextRequest) (*TextResponse, error)
}

// TransformRequest asks for an AI transform of an existing image
type TransformRequest struct {
	SourcePath      string
	Prompt          string
	RemoveWatermark bool
}

// GenerateImageRequest asks for a brand-new image grounded on article context
type GenerateImageRequest struct {
	Prompt  string
	Context string
}

// ImageTransformer rewrites an existing image per template instructions.
// When the AI call fails the implementation falls back to copying the source
// image unchanged rather than failing the step.
type ImageTransformer interface {
	ProcessImage(ctx context.Context, req *TransformRequest, outputDir, filename string) (string, error)
}

// ImageGenerator creates a new image. A failure fails only that image; the
// caller decides whether to continue.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req *GenerateImageRequest, outputDir, filename string) (string, error)
}

// StoredObject describes an uploaded object
type StoredObject struct {
	Key string
	URL string
}

// ObjectStore is durable storage for manuscript images
type ObjectStore interface {
	Upload(ctx context.Context, localPath, key string) (*StoredObject, error)
	Delete(ctx context.Context, key string) error
}

// RankSearcher looks up where a posted URL ranks for a keyword on a platform.
// Returns (nil, nil) when the URL is not found within the searched range.
type RankSearcher interface {
	Rank(ctx context.Context, keyword, targetURL string, platform models.Platform) (*int, error)
}

// Metrics is a point-in-time engagement snapshot for a posted URL
type Metrics struct {
	Views      *int
	Comments   *int
	Accessible bool
}

// MetricsFetcher fetches view/comment counts for a posted URL where the
// platform exposes them
type MetricsFetcher interface {
	Fetch(ctx context.Context, url string, platform models.Platform) (*Metrics, error)
}

// SchedulerService owns the cron triggers and the manuscript worker loop
type SchedulerService interface {
	Start() error
	Stop() error
	// TriggerCrawl and TriggerCollection run one cycle out of schedule.
	// A cycle already in progress is skipped, not queued; the return value
	// reports whether the cycle actually started.
	TriggerCrawl(ctx context.Context) bool
	TriggerCollection(ctx context.Context) bool
}
