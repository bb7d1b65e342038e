package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Jobs
	mux.HandleFunc("/api/jobs/stats", s.app.JobHandler.GetJobStatsHandler)
	mux.HandleFunc("/api/jobs", s.app.JobHandler.ListJobsHandler) // GET (list), POST (create)
	mux.HandleFunc("/api/jobs/", s.handleJobRoutes)               // /{id} and subpaths

	// API routes - Pages
	mux.HandleFunc("/api/pages", s.app.PageHandler.ListPagesHandler)

	// API routes - Presets
	mux.HandleFunc("/api/presets", s.app.APIHandler.PresetsHandler)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleJobRoutes routes /api/jobs/{id} and its subpaths
func (s *Server) handleJobRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "Job ID is required", http.StatusBadRequest)
		return
	}
	jobID := parts[0]

	// /api/jobs/{id}
	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			s.app.JobHandler.GetJobHandler(w, r, jobID)
		case http.MethodDelete:
			s.app.JobHandler.DeleteJobHandler(w, r, jobID)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	// /api/jobs/{id}/{action}
	if len(parts) == 2 {
		switch {
		case r.Method == http.MethodGet && parts[1] == "status":
			s.app.JobHandler.GetStatusHandler(w, r, jobID)
		case r.Method == http.MethodPost && parts[1] == "execute":
			s.app.JobHandler.ExecuteJobHandler(w, r, jobID)
		case r.Method == http.MethodPost && parts[1] == "cancel":
			s.app.JobHandler.CancelJobHandler(w, r, jobID)
		default:
			http.Error(w, "Not found", http.StatusNotFound)
		}
		return
	}

	http.Error(w, "Not found", http.StatusNotFound)
}
