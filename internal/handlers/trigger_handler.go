package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/wongohq/wongo/internal/interfaces"
)

// TriggerHandler exposes manual one-shot cycle triggers
type TriggerHandler struct {
	scheduler interfaces.SchedulerService
	logger    arbor.ILogger
}

// NewTriggerHandler creates a trigger handler
func NewTriggerHandler(scheduler interfaces.SchedulerService, logger arbor.ILogger) *TriggerHandler {
	return &TriggerHandler{
		scheduler: scheduler,
		logger:    logger,
	}
}

// CrawlTriggerHandler runs one crawl cycle out of schedule
func (h *TriggerHandler) CrawlTriggerHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	h.logger.Info().Msg("Manual crawl trigger requested")
	if !h.scheduler.TriggerCrawl(r.Context()) {
		WriteError(w, http.StatusConflict, "Crawl cycle already running")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "completed",
		"message": "Crawl cycle finished",
	})
}

// PerformanceTriggerHandler runs one collection cycle out of schedule
func (h *TriggerHandler) PerformanceTriggerHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	h.logger.Info().Msg("Manual collection trigger requested")
	if !h.scheduler.TriggerCollection(r.Context()) {
		WriteError(w, http.StatusConflict, "Collection cycle already running")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "completed",
		"message": "Collection cycle finished",
	})
}
