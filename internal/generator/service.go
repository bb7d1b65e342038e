package generator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pagemill/internal/common"
	"github.com/ternarybob/pagemill/internal/interfaces"
	"github.com/ternarybob/pagemill/internal/mapper"
	"github.com/ternarybob/pagemill/internal/models"
)

// Service is the job orchestrator: it owns the job state machine, wires
// resolver output into the batch processor and exposes the engine-facing
// operations. Create and execute are separate calls; a created job sits
// queued until executed, and can be queued and abandoned.
type Service struct {
	storage  interfaces.StorageManager
	events   interfaces.EventService
	validate *validator.Validate
	logger   arbor.ILogger

	mu      sync.Mutex
	running map[string]context.CancelFunc
}

// CreateResult is the job creation response. Mapping is non-nil only for
// CSV-sourced jobs, reporting the inferred column mapping so the caller can
// review it before executing.
type CreateResult struct {
	Job     *models.Job           `json:"job"`
	Mapping *models.MappingResult `json:"mapping,omitempty"`
}

// JobStats aggregates job counts per lifecycle state
type JobStats struct {
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"by_status"`
	Processing int            `json:"processing"`
	Queued     int            `json:"queued"`
}

// NewService creates the orchestrator
func NewService(storage interfaces.StorageManager, events interfaces.EventService, logger arbor.ILogger) *Service {
	return &Service{
		storage:  storage,
		events:   events,
		validate: validator.New(),
		logger:   logger,
		running:  make(map[string]context.CancelFunc),
	}
}

// CreateJob validates the request, resolves the total target count, and
// persists a queued job. No processing happens here. Request-level failures
// (unknown action, missing filter, bad payload) are returned synchronously
// and never leave a job record behind.
func (s *Service) CreateJob(ctx context.Context, req *models.GenerationRequest) (*CreateResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	if req.Action == models.ActionStateCities && req.StateID == "" {
		return nil, fmt.Errorf("invalid request: %s requires state_id", req.Action)
	}
	if req.Action == models.ActionCSVImport && len(req.Rows) == 0 {
		return nil, fmt.Errorf("invalid request: %s requires rows", req.Action)
	}

	category, err := s.resolveCategory(ctx, req.CategoryID)
	if err != nil {
		return nil, err
	}
	if req.StateID != "" {
		if _, err := s.storage.GeoStorage().GetState(ctx, req.StateID); err != nil {
			if errors.Is(err, interfaces.ErrNotFound) {
				return nil, fmt.Errorf("invalid request: unknown state %s", req.StateID)
			}
			return nil, err
		}
	}

	job := &models.Job{
		ID:              common.NewJobID(),
		Action:          req.Action,
		Source:          models.DataSourceDatabase,
		CategoryID:      req.CategoryID,
		StateID:         req.StateID,
		Limit:           req.Limit,
		PublishOnCreate: req.Options.PublishOnCreateOrDefault(),
		UpdateExisting:  req.Options.UpdateExistingOrDefault(),
		SkipExisting:    req.Options.SkipExistingOrDefault(),
		Status:          models.JobStatusQueued,
		CreatedAt:       time.Now(),
	}

	var mappingResult *models.MappingResult
	if req.Action == models.ActionCSVImport {
		job.Source = models.DataSourceRows
		job.Headers = rowHeaders(req)
		job.Rows = req.Rows

		// Mapping is inferred once here and frozen for the job's lifetime
		result := mapper.AutoMapColumns(job.Headers)
		job.Mapping = result.Mapping
		job.MappingConfidence = result.Confidence
		mappingResult = &result
	}

	resolver, err := newResolver(job, s.storage, category)
	if err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	total, err := resolver.Total(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve target count: %w", err)
	}
	job.TotalRows = total

	job.Name = req.Name
	if job.Name == "" {
		job.Name = deriveJobName(job, category)
	}

	if err := s.storage.JobStorage().CreateJob(ctx, job); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Str("action", string(job.Action)).
		Int("total_rows", job.TotalRows).
		Msg("Job created")

	s.publish(ctx, interfaces.EventJobCreated, job.ID, map[string]interface{}{
		"action":     string(job.Action),
		"total_rows": job.TotalRows,
	})

	return &CreateResult{Job: job, Mapping: mappingResult}, nil
}

// ExecuteJob transitions a queued job to processing and runs it on its own
// goroutine. Returns immediately once the job is marked processing. Calling
// it for a job already processing or terminal is an idempotent no-op.
func (s *Service) ExecuteJob(ctx context.Context, jobID string) error {
	// The status check, the processing transition and the run registration
	// happen under one lock so concurrent execute calls for the same job
	// cannot each start a run; exactly one caller wins.
	s.mu.Lock()
	if _, live := s.running[jobID]; live {
		s.mu.Unlock()
		s.logger.Debug().Str("job_id", jobID).Msg("Execute ignored for running job")
		return nil
	}

	job, err := s.storage.JobStorage().GetJob(ctx, jobID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if job.Status != models.JobStatusQueued {
		s.mu.Unlock()
		s.logger.Debug().Str("job_id", jobID).Str("status", string(job.Status)).
			Msg("Execute ignored for non-queued job")
		return nil
	}

	if err := s.storage.JobStorage().UpdateJobStatus(ctx, jobID, models.JobStatusProcessing, ""); err != nil {
		s.mu.Unlock()
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.running[jobID] = cancel
	s.mu.Unlock()

	s.publish(ctx, interfaces.EventJobStarted, jobID, nil)

	go s.runJob(runCtx, job)
	return nil
}

// runJob is the single execution goroutine for one job. It owns the job's
// counters exclusively until a terminal state is written.
func (s *Service) runJob(ctx context.Context, job *models.Job) {
	defer func() {
		s.mu.Lock()
		if cancel, ok := s.running[job.ID]; ok {
			cancel()
			delete(s.running, job.ID)
		}
		s.mu.Unlock()
	}()

	category, err := s.resolveCategory(ctx, job.CategoryID)
	if err != nil {
		s.finish(job.ID, models.JobStatusFailed, err.Error())
		return
	}

	resolver, err := newResolver(job, s.storage, category)
	if err != nil {
		s.finish(job.ID, models.JobStatusFailed, err.Error())
		return
	}

	batchSize := databaseBatchSize
	if job.Source == models.DataSourceRows {
		batchSize = rowsBatchSize
	}

	run := newBatchRun(job.ID, s.storage.JobStorage(), batchSize, s.logger, func(snapshot models.ProgressSnapshot) {
		s.publish(context.Background(), interfaces.EventJobProgress, job.ID, map[string]interface{}{
			"processed_rows": snapshot.ProcessedRows,
			"created_pages":  snapshot.CreatedPages,
			"updated_pages":  snapshot.UpdatedPages,
			"skipped_pages":  snapshot.SkippedPages,
			"failed_pages":   snapshot.FailedPages,
		})
	})

	counts, err := run.run(ctx, resolver, s.itemOp(job))
	switch {
	case errors.Is(err, errCancelled):
		s.logger.Info().Str("job_id", job.ID).Int("processed", counts.ProcessedRows).
			Msg("Job cancelled")
		s.finish(job.ID, models.JobStatusCancelled, "")
	case err != nil:
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("Job failed")
		s.finish(job.ID, models.JobStatusFailed, err.Error())
	default:
		s.logger.Info().
			Str("job_id", job.ID).
			Int("created", counts.CreatedPages).
			Int("updated", counts.UpdatedPages).
			Int("skipped", counts.SkippedPages).
			Int("failed", counts.FailedPages).
			Msg("Job completed")
		s.finish(job.ID, models.JobStatusCompleted, "")
	}
}

// itemOp builds the per-item conflict policy for one job: look up the key,
// then create, update or skip per the job's flags. Skip beats update when
// both flags are set; that precedence is the contract, not an accident.
func (s *Service) itemOp(job *models.Job) itemOp {
	pages := s.storage.PageStorage()

	return func(ctx context.Context, target Target) (OutcomeKind, string) {
		existing, err := pages.FindBySlug(ctx, target.Slug)
		if err != nil && !errors.Is(err, interfaces.ErrNotFound) {
			return OutcomeFailed, err.Error()
		}

		if existing == nil {
			page := s.buildPage(job, target)
			if err := pages.Create(ctx, page); err != nil {
				// A concurrent job may have claimed the slug between the
				// lookup and the write; the unique index is the arbiter.
				return OutcomeFailed, err.Error()
			}
			return OutcomeCreated, ""
		}

		if job.SkipExisting {
			return OutcomeSkipped, ""
		}
		if job.UpdateExisting {
			existing.Title = target.Title
			existing.MetaTitle = target.MetaTitle
			existing.MetaDescription = target.MetaDescription
			existing.CategoryID = target.CategoryID
			existing.StateID = target.StateID
			existing.CityID = target.CityID
			existing.GeoLevel = target.GeoLevel
			if len(target.Custom) > 0 {
				existing.Custom = target.Custom
			}
			if err := pages.Update(ctx, existing); err != nil {
				return OutcomeFailed, err.Error()
			}
			return OutcomeUpdated, ""
		}

		// Neither flag set: never silently overwrite
		return OutcomeSkipped, ""
	}
}

func (s *Service) buildPage(job *models.Job, target Target) *models.Page {
	page := &models.Page{
		ID:              common.NewPageID(),
		Slug:            target.Slug,
		Title:           target.Title,
		MetaTitle:       target.MetaTitle,
		MetaDescription: target.MetaDescription,
		CategoryID:      target.CategoryID,
		StateID:         target.StateID,
		CityID:          target.CityID,
		GeoLevel:        target.GeoLevel,
		Custom:          target.Custom,
		Status:          models.PageStatusDraft,
	}
	if job.PublishOnCreate {
		now := time.Now()
		page.Status = models.PageStatusPublished
		page.IsPublished = true
		page.PublishedAt = &now
	}
	return page
}

// finish writes the terminal state and publishes the matching event
func (s *Service) finish(jobID string, status models.JobStatus, errorMsg string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.storage.JobStorage().UpdateJobStatus(ctx, jobID, status, errorMsg); err != nil {
		s.logger.Error().Err(err).Str("job_id", jobID).Str("status", string(status)).
			Msg("Failed to write terminal job state")
		return
	}

	eventType := interfaces.EventJobCompleted
	switch status {
	case models.JobStatusFailed:
		eventType = interfaces.EventJobFailed
	case models.JobStatusCancelled:
		eventType = interfaces.EventJobCancelled
	}
	s.publish(ctx, eventType, jobID, nil)
}

// GetJob returns the full persisted job record
func (s *Service) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	return s.storage.JobStorage().GetJob(ctx, jobID)
}

// GetStatus is a read-only projection of a job's persisted counters. It
// never mutates, tolerates jobs that have not started, and reports stable
// numbers after a terminal state.
func (s *Service) GetStatus(ctx context.Context, jobID string) (*models.StatusView, error) {
	job, err := s.storage.JobStorage().GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return ProjectStatus(job), nil
}

// CancelJob requests cooperative cancellation of a processing job. The run
// observes it within a bounded number of item operations; counters are
// flushed before the terminal state lands.
func (s *Service) CancelJob(ctx context.Context, jobID string) error {
	job, err := s.storage.JobStorage().GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status != models.JobStatusProcessing {
		return fmt.Errorf("cancel job %s in state %s: %w", jobID, job.Status, interfaces.ErrInvalidState)
	}

	s.mu.Lock()
	cancel, ok := s.running[jobID]
	s.mu.Unlock()

	if ok {
		cancel()
		return nil
	}

	// No live run in this process (e.g. orphaned after a restart); write the
	// terminal state directly.
	s.logger.Warn().Str("job_id", jobID).Msg("Cancelling job with no live run")
	if err := s.storage.JobStorage().UpdateJobStatus(ctx, jobID, models.JobStatusCancelled, ""); err != nil {
		return err
	}
	s.publish(ctx, interfaces.EventJobCancelled, jobID, nil)
	return nil
}

// DeleteJob removes a job record. Processing jobs must be cancelled first.
func (s *Service) DeleteJob(ctx context.Context, jobID string) error {
	job, err := s.storage.JobStorage().GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status == models.JobStatusProcessing {
		return fmt.Errorf("delete job %s while processing: %w", jobID, interfaces.ErrInvalidState)
	}
	return s.storage.JobStorage().DeleteJob(ctx, jobID)
}

// ListJobs returns job records, most recent first by default
func (s *Service) ListJobs(ctx context.Context, opts *interfaces.JobListOptions) ([]*models.Job, error) {
	return s.storage.JobStorage().ListJobs(ctx, opts)
}

// Stats aggregates job counts per lifecycle state
func (s *Service) Stats(ctx context.Context) (*JobStats, error) {
	total, err := s.storage.JobStorage().CountJobs(ctx)
	if err != nil {
		return nil, err
	}

	stats := &JobStats{Total: total, ByStatus: make(map[string]int)}
	for _, status := range []models.JobStatus{
		models.JobStatusQueued,
		models.JobStatusProcessing,
		models.JobStatusCompleted,
		models.JobStatusFailed,
		models.JobStatusCancelled,
	} {
		count, err := s.storage.JobStorage().CountJobsByStatus(ctx, status)
		if err != nil {
			return nil, err
		}
		stats.ByStatus[string(status)] = count
	}
	stats.Queued = stats.ByStatus[string(models.JobStatusQueued)]
	stats.Processing = stats.ByStatus[string(models.JobStatusProcessing)]
	return stats, nil
}

// Shutdown cancels every live run; each run flushes its final counters on
// its own context before exiting.
func (s *Service) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for jobID, cancel := range s.running {
		s.logger.Info().Str("job_id", jobID).Msg("Cancelling job for shutdown")
		cancel()
	}
}

func (s *Service) resolveCategory(ctx context.Context, categoryID string) (*models.InsuranceType, error) {
	if categoryID == "" {
		return nil, nil
	}
	category, err := s.storage.CategoryStorage().GetCategory(ctx, categoryID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, fmt.Errorf("invalid request: unknown category %s", categoryID)
		}
		return nil, err
	}
	return category, nil
}

func (s *Service) publish(ctx context.Context, eventType interfaces.EventType, jobID string, payload map[string]interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, interfaces.Event{Type: eventType, JobID: jobID, Payload: payload}); err != nil {
		s.logger.Warn().Err(err).Str("event_type", string(eventType)).Msg("Failed to publish event")
	}
}

// rowHeaders returns the request's header list, or derives one from the
// first row's keys in sorted order so mapping inference stays deterministic.
func rowHeaders(req *models.GenerationRequest) []string {
	if len(req.Headers) > 0 {
		return req.Headers
	}
	if len(req.Rows) == 0 {
		return nil
	}
	headers := make([]string, 0, len(req.Rows[0]))
	for header := range req.Rows[0] {
		headers = append(headers, header)
	}
	sort.Strings(headers)
	return headers
}

// deriveJobName builds a readable default name from the category and action
func deriveJobName(job *models.Job, category *models.InsuranceType) string {
	actionName := string(job.Action)
	for _, preset := range models.Presets() {
		if preset.Action == job.Action {
			actionName = preset.Name
			break
		}
	}
	if job.Action == models.ActionCSVImport {
		actionName = fmt.Sprintf("CSV Import (%d rows)", len(job.Rows))
	}
	if category != nil {
		return fmt.Sprintf("%s - %s", category.Name, actionName)
	}
	return actionName
}
