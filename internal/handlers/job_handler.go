package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pagemill/internal/generator"
	"github.com/ternarybob/pagemill/internal/interfaces"
	"github.com/ternarybob/pagemill/internal/models"
)

// JobHandler handles generation job API requests
type JobHandler struct {
	service *generator.Service
	logger  arbor.ILogger
}

// NewJobHandler creates a new job handler
func NewJobHandler(service *generator.Service, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		service: service,
		logger:  logger,
	}
}

// CreateJobHandler creates a queued generation job
// POST /api/jobs
func (h *JobHandler) CreateJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req models.GenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	result, err := h.service.CreateJob(r.Context(), &req)
	if err != nil {
		if strings.Contains(err.Error(), "invalid request") {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error().Err(err).Msg("Failed to create job")
		WriteError(w, http.StatusInternalServerError, "Failed to create job")
		return
	}

	WriteJSON(w, http.StatusCreated, result)
}

// ListJobsHandler returns a paginated list of jobs
// GET /api/jobs?limit=50&offset=0&status=completed
func (h *JobHandler) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		h.CreateJobHandler(w, r)
		return
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	opts := &interfaces.JobListOptions{
		Status:   r.URL.Query().Get("status"),
		OrderBy:  r.URL.Query().Get("order_by"),
		OrderDir: r.URL.Query().Get("order_dir"),
		Limit:    QueryInt(r, "limit", 50),
		Offset:   QueryInt(r, "offset", 0),
	}

	jobs, err := h.service.ListJobs(ctx, opts)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list jobs")
		WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	// Row payloads are bulky; the list view carries metadata only
	views := make([]*models.Job, len(jobs))
	for i, job := range jobs {
		trimmed := *job
		trimmed.Rows = nil
		views[i] = &trimmed
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":   views,
		"limit":  opts.Limit,
		"offset": opts.Offset,
	})
}

// GetJobStatsHandler returns job counts per lifecycle state
// GET /api/jobs/stats
func (h *JobHandler) GetJobStatsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to get job stats")
		WriteError(w, http.StatusInternalServerError, "Failed to get job stats")
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

// GetJobHandler returns a single job by ID
// GET /api/jobs/{id}
func (h *JobHandler) GetJobHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.service.GetJob(r.Context(), jobID)
	if err != nil {
		h.writeJobError(w, err, jobID)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// GetStatusHandler returns the status projection for a job
// GET /api/jobs/{id}/status
func (h *JobHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	status, err := h.service.GetStatus(r.Context(), jobID)
	if err != nil {
		h.writeJobError(w, err, jobID)
		return
	}
	WriteJSON(w, http.StatusOK, status)
}

// ExecuteJobHandler starts processing a queued job
// POST /api/jobs/{id}/execute
func (h *JobHandler) ExecuteJobHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	if err := h.service.ExecuteJob(r.Context(), jobID); err != nil {
		h.writeJobError(w, err, jobID)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "started",
		"job_id":  jobID,
		"message": "Job execution started",
	})
}

// CancelJobHandler requests cancellation of a processing job
// POST /api/jobs/{id}/cancel
func (h *JobHandler) CancelJobHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	if err := h.service.CancelJob(r.Context(), jobID); err != nil {
		h.writeJobError(w, err, jobID)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "cancelling",
		"job_id":  jobID,
		"message": "Cancellation requested",
	})
}

// DeleteJobHandler removes a job record
// DELETE /api/jobs/{id}
func (h *JobHandler) DeleteJobHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	if err := h.service.DeleteJob(r.Context(), jobID); err != nil {
		h.writeJobError(w, err, jobID)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "deleted",
		"job_id": jobID,
	})
}

func (h *JobHandler) writeJobError(w http.ResponseWriter, err error, jobID string) {
	switch {
	case errors.Is(err, interfaces.ErrNotFound):
		WriteError(w, http.StatusNotFound, "Job not found: "+jobID)
	case errors.Is(err, interfaces.ErrInvalidState):
		WriteError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Job operation failed")
		WriteError(w, http.StatusInternalServerError, "Job operation failed")
	}
}
