package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/wongohq/wongo/internal/interfaces"
	"github.com/wongohq/wongo/internal/models"
)

// GenerateRequest is the body of POST /api/manuscripts/generate. Prompt and
// template content are sent inline; the handler snapshots them onto the
// manuscript so later edits do not affect a queued job.
type GenerateRequest struct {
	UserID        uint64               `json:"user_id" validate:"required"`
	SourceID      uint64               `json:"source_id" validate:"required"`
	PromptContent string               `json:"prompt_content" validate:"required"`
	ModelProvider string               `json:"model_provider,omitempty"`
	ModelName     string               `json:"model_name,omitempty"`
	ImageTemplate models.ImageTemplate `json:"image_template"`
	Keyword       string               `json:"keyword,omitempty"`
	LengthOption  models.LengthOption  `json:"length_option" validate:"required,oneof=short medium long"`
	NewImageCount int                  `json:"new_image_count" validate:"gte=0,lte=10"`
}

// PublishRequest is the body of POST /api/manuscripts/{id}/publish
type PublishRequest struct {
	URL      string          `json:"url" validate:"required"`
	Platform models.Platform `json:"platform" validate:"required,oneof=blog cafe"`
	Keyword  string          `json:"keyword,omitempty"`
}

// ManuscriptHandler handles the manuscript lifecycle endpoints
type ManuscriptHandler struct {
	storage            interfaces.StorageManager
	maxAttempts        int
	trackingWindowDays int
	validate           *validator.Validate
	logger             arbor.ILogger
}

// NewManuscriptHandler creates a manuscript handler
func NewManuscriptHandler(storage interfaces.StorageManager, maxAttempts, trackingWindowDays int, logger arbor.ILogger) *ManuscriptHandler {
	if trackingWindowDays <= 0 {
		trackingWindowDays = 7
	}
	return &ManuscriptHandler{
		storage:            storage,
		maxAttempts:        maxAttempts,
		trackingWindowDays: trackingWindowDays,
		validate:           validator.New(),
		logger:             logger,
	}
}

// GenerateHandler creates a manuscript and enqueues its generation job
func (h *ManuscriptHandler) GenerateHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req GenerateRequest
	if !DecodeJSONBody(w, r, &req) {
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	ctx := r.Context()
	source, err := h.storage.SourceStorage().GetByID(ctx, req.SourceID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Source not found")
			return
		}
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	manuscript := &models.Manuscript{
		UserID:          req.UserID,
		SourceID:        source.ID,
		Title:           source.Title,
		Keyword:         req.Keyword,
		LengthOption:    req.LengthOption,
		NewImageCount:   req.NewImageCount,
		Status:          models.ManuscriptStatusGenerating,
		PromptSnapshot:  req.PromptContent,
		ImageTemplate:   req.ImageTemplate,
		SourceTitleSnap: source.Title,
		SourceURLSnap:   source.OriginalURL,
	}
	if err := h.storage.ManuscriptStorage().Create(ctx, manuscript); err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to create manuscript: "+err.Error())
		return
	}

	// The claim guards the source against expiry deletion while the job
	// is queued or running
	if err := h.storage.SourceStorage().AddWorker(ctx, source.ID, req.UserID); err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to claim source: "+err.Error())
		return
	}

	job, err := models.NewJob(models.JobTypeManuscriptGeneration, &models.GeneratePayload{
		ManuscriptID:  manuscript.ID,
		UserID:        req.UserID,
		SourceID:      source.ID,
		PromptContent: req.PromptContent,
		ModelProvider: req.ModelProvider,
		ModelName:     req.ModelName,
		ImageTemplate: req.ImageTemplate,
		Keyword:       req.Keyword,
		LengthOption:  req.LengthOption,
		NewImageCount: req.NewImageCount,
	}, h.maxAttempts)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to build job: "+err.Error())
		return
	}
	if err := h.storage.JobStorage().Enqueue(ctx, job); err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to enqueue job: "+err.Error())
		return
	}

	h.logger.Info().
		Int64("manuscript_id", int64(manuscript.ID)).
		Str("job_id", job.ID).
		Int64("source_id", int64(source.ID)).
		Msg("Manuscript generation enqueued")

	WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"manuscript_id": manuscript.ID,
		"job_id":        job.ID,
		"status":        manuscript.Status,
	})
}

// StatusHandler returns the lightweight status view polled by clients
func (h *ManuscriptHandler) StatusHandler(w http.ResponseWriter, r *http.Request, id uint64) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	manuscript, ok := h.loadManuscript(w, r, id)
	if !ok {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"id":     manuscript.ID,
		"status": manuscript.Status,
		"title":  manuscript.Title,
	})
}

// GetHandler returns the full manuscript with its images
func (h *ManuscriptHandler) GetHandler(w http.ResponseWriter, r *http.Request, id uint64) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	manuscript, ok := h.loadManuscript(w, r, id)
	if !ok {
		return
	}

	images, err := h.storage.ManuscriptStorage().ImagesByManuscript(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"manuscript": manuscript,
		"images":     images,
	})
}

// PublishHandler records an external publish and opens the tracking window
func (h *ManuscriptHandler) PublishHandler(w http.ResponseWriter, r *http.Request, id uint64) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req PublishRequest
	if !DecodeJSONBody(w, r, &req) {
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}
	if !validPostURL(req.URL) {
		WriteError(w, http.StatusBadRequest, "url must be a valid http(s) URL")
		return
	}

	ctx := r.Context()
	manuscript, ok := h.loadManuscript(w, r, id)
	if !ok {
		return
	}
	if manuscript.Status != models.ManuscriptStatusGenerated {
		WriteError(w, http.StatusConflict, "Manuscript is not in a publishable state: "+string(manuscript.Status))
		return
	}

	// The ranking keyword defaults to the one the manuscript was generated
	// for, so rank collection keeps working when the caller omits it
	keyword := strings.TrimSpace(req.Keyword)
	if keyword == "" {
		keyword = manuscript.Keyword
	}

	posting := &models.Posting{
		ManuscriptID: manuscript.ID,
		URL:          req.URL,
		Platform:     req.Platform,
		Keyword:      keyword,
		PostedAt:     time.Now(),
	}
	if err := h.storage.PostingStorage().Create(ctx, posting); err != nil {
		if errors.Is(err, interfaces.ErrDuplicate) {
			WriteError(w, http.StatusConflict, "Manuscript already published")
			return
		}
		WriteError(w, http.StatusInternalServerError, "Failed to record posting: "+err.Error())
		return
	}

	if err := h.storage.ManuscriptStorage().UpdateStatus(ctx, manuscript.ID, models.ManuscriptStatusPosted); err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to update manuscript status: "+err.Error())
		return
	}

	now := time.Now()
	tracking := &models.PerformanceTracking{
		PostingID:     posting.ID,
		TrackingStart: now,
		TrackingEnd:   now.AddDate(0, 0, h.trackingWindowDays),
		Status:        models.TrackingStatusTracking,
	}
	if err := h.storage.TrackingStorage().Create(ctx, tracking); err != nil {
		// The posting stands; tracking can be inspected and recreated
		h.logger.Error().Err(err).
			Int64("posting_id", int64(posting.ID)).
			Msg("Failed to create performance tracking")
	}

	h.logger.Info().
		Int64("manuscript_id", int64(manuscript.ID)).
		Int64("posting_id", int64(posting.ID)).
		Str("platform", string(req.Platform)).
		Msg("Manuscript published")

	WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"posting_id":   posting.ID,
		"tracking_id":  tracking.ID,
		"tracking_end": tracking.TrackingEnd,
	})
}

// PerformanceHandler returns the tracking window and its data-point series
func (h *ManuscriptHandler) PerformanceHandler(w http.ResponseWriter, r *http.Request, id uint64) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	ctx := r.Context()
	if _, ok := h.loadManuscript(w, r, id); !ok {
		return
	}

	posting, err := h.storage.PostingStorage().FindByManuscriptID(ctx, id)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if posting == nil {
		WriteError(w, http.StatusNotFound, "Manuscript has no posting")
		return
	}

	tracking, err := h.storage.TrackingStorage().FindByPostingID(ctx, posting.ID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if tracking == nil {
		WriteError(w, http.StatusNotFound, "Posting has no performance tracking")
		return
	}

	points, err := h.storage.TrackingStorage().DataPoints(ctx, tracking.ID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"posting":     posting,
		"tracking":    tracking,
		"data_points": points,
	})
}

func (h *ManuscriptHandler) loadManuscript(w http.ResponseWriter, r *http.Request, id uint64) (*models.Manuscript, bool) {
	manuscript, err := h.storage.ManuscriptStorage().GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Manuscript not found")
		} else {
			WriteError(w, http.StatusInternalServerError, err.Error())
		}
		return nil, false
	}
	return manuscript, true
}

func validPostURL(raw string) bool {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}
