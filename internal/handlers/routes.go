package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// conditionalHTTPLogger only logs HTTP requests when HTTP logging is enabled
func (h *Handlers) conditionalHTTPLogger(next http.Handler) http.Handler {
	logger := middleware.Logger(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Log != nil && h.Log.IsHTTPLoggingEnabled() {
			logger.ServeHTTP(w, r)
		} else {
			next.ServeHTTP(w, r)
		}
	})
}

// Router returns a configured chi router with all routes
func (h *Handlers) Router() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if h.Metrics != nil {
		r.Use(h.Metrics.Middleware)
	}
	r.Use(h.conditionalHTTPLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RedirectSlashes)

	r.Get("/healthz", h.handleHealth)
	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics.Handler())
	}

	// WebSocket, outside the request timeout
	if h.Hub != nil {
		r.Get("/ws", h.Hub.ServeWs)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		// Metric schema
		r.Get("/schema", h.handleGetSchema)
		r.Put("/schema", h.handleSaveSchema)
		r.Delete("/schema", h.handleResetSchema)
		r.Get("/schema/{sportID}/metrics", h.handleGetMetrics)

		// Candidates
		r.Get("/candidates", h.handleListCandidates)
		r.Post("/candidates", h.handleCreateCandidate)
		r.Get("/candidates/{id}", h.handleGetCandidate)
		r.Put("/candidates/{id}", h.handleUpdateCandidate)
		r.Delete("/candidates/{id}", h.handleDeleteCandidate)
		r.Put("/candidates/{id}/evaluations/{sportID}", h.handleSaveEvaluation)
		r.Get("/candidates/{id}/qr", h.handleCandidateQR)

		// Rankings & stats
		r.Get("/rankings", h.handleRankings)
		r.Get("/rankings/schools", h.handleSchoolRankings)
		r.Get("/rankings/top", h.handleTopPerformers)
		r.Get("/organizations", h.handleOrganizations)
		r.Get("/stats", h.handleStats)

		// Batch operations
		r.Post("/batch/status", h.handleBatchStatus)
		r.Post("/batch/delete", h.handleBatchDelete)
		r.Post("/batch/evaluations", h.handleBatchEvaluations)

		// Import
		r.Post("/import", h.handleImport)
		r.Get("/import/template", h.handleImportTemplate)

		// Backup & restore
		r.Get("/backup", h.handleBackup)
		r.Post("/backup/restore", h.handleRestore)
		r.Get("/backup/schema", h.handleSchemaBackup)
		r.Post("/backup/schema/restore", h.handleSchemaRestore)
	})

	return r
}
