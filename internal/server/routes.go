package server

import (
	"net/http"
	"strings"

	"github.com/wongohq/wongo/internal/handlers"
	"github.com/wongohq/wongo/internal/services/imagestore"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Manuscripts
	mux.HandleFunc("/api/manuscripts/generate", s.app.ManuscriptHandler.GenerateHandler)
	mux.HandleFunc("/api/manuscripts/", s.handleManuscriptRoutes) // /{id}, /{id}/status, /{id}/publish, /{id}/performance

	// API routes - Manual cycle triggers
	mux.HandleFunc("/api/crawl/trigger", s.app.TriggerHandler.CrawlTriggerHandler)
	mux.HandleFunc("/api/performance/trigger", s.app.TriggerHandler.PerformanceTriggerHandler)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	// Manuscript images when the filesystem store is in use
	if s.app.Config.Storage.S3.Bucket == "" {
		prefix := imagestore.ManuscriptImageURLPrefix + "/"
		fileServer := http.FileServer(http.Dir(s.app.Config.Storage.Filesystem.ManuscriptsDir))
		mux.Handle(prefix, http.StripPrefix(prefix, fileServer))
	}

	return mux
}

// handleManuscriptRoutes routes /api/manuscripts/{id} and its subpaths
func (s *Server) handleManuscriptRoutes(w http.ResponseWriter, r *http.Request) {
	const prefix = "/api/manuscripts/"

	id, ok := handlers.PathID(r.URL.Path, prefix)
	if !ok {
		s.app.APIHandler.NotFoundHandler(w, r)
		return
	}

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	parts := strings.SplitN(rest, "/", 2)

	if len(parts) == 1 {
		s.app.ManuscriptHandler.GetHandler(w, r, id)
		return
	}

	switch parts[1] {
	case "status":
		s.app.ManuscriptHandler.StatusHandler(w, r, id)
	case "publish":
		s.app.ManuscriptHandler.PublishHandler(w, r, id)
	case "performance":
		s.app.ManuscriptHandler.PerformanceHandler(w, r, id)
	default:
		s.app.APIHandler.NotFoundHandler(w, r)
	}
}
