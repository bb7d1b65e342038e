package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pagemill/internal/interfaces"
	"github.com/ternarybob/pagemill/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// JobStorage implements the JobStorage interface for Badger
type JobStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewJobStorage creates a new JobStorage instance
func NewJobStorage(db *BadgerDB, logger arbor.ILogger) interfaces.JobStorage {
	return &JobStorage{
		db:     db,
		logger: logger,
	}
}

func (s *JobStorage) CreateJob(ctx context.Context, job *models.Job) error {
	if job.ID == "" {
		return fmt.Errorf("job ID is required")
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}

	if err := s.db.Store().Insert(job.ID, job); err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return fmt.Errorf("create job %s: %w", job.ID, interfaces.ErrConflict)
		}
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

func (s *JobStorage) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	var job models.Job
	if err := s.db.Store().Get(jobID, &job); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

func (s *JobStorage) UpdateJob(ctx context.Context, job *models.Job) error {
	if job.ID == "" {
		return fmt.Errorf("job ID is required")
	}
	if err := s.db.Store().Update(job.ID, job); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return interfaces.ErrNotFound
		}
		return fmt.Errorf("failed to update job: %w", err)
	}
	return nil
}

// UpdateJobStatus transitions a job's lifecycle state. Entering processing
// stamps StartedAt and the first heartbeat; entering a terminal state stamps
// CompletedAt.
func (s *JobStorage) UpdateJobStatus(ctx context.Context, jobID string, status models.JobStatus, errorMsg string) error {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	now := time.Now()
	job.Status = status
	if errorMsg != "" {
		job.Error = errorMsg
	}

	switch {
	case status == models.JobStatusProcessing:
		if job.StartedAt == nil {
			job.StartedAt = &now
		}
		job.LastHeartbeat = &now
	case status.IsTerminal():
		job.CompletedAt = &now
	}

	return s.UpdateJob(ctx, job)
}

// UpdateJobProgress writes a counter snapshot and refreshes the heartbeat.
// The batch run is the only caller, so last-write-wins is safe here.
func (s *JobStorage) UpdateJobProgress(ctx context.Context, jobID string, snapshot models.ProgressSnapshot) error {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	now := time.Now()
	job.ProcessedRows = snapshot.ProcessedRows
	job.CreatedPages = snapshot.CreatedPages
	job.UpdatedPages = snapshot.UpdatedPages
	job.SkippedPages = snapshot.SkippedPages
	job.FailedPages = snapshot.FailedPages
	job.ErrorLog = snapshot.ErrorLog
	job.LastHeartbeat = &now

	return s.UpdateJob(ctx, job)
}

func (s *JobStorage) ListJobs(ctx context.Context, opts *interfaces.JobListOptions) ([]*models.Job, error) {
	query := badgerhold.Where("ID").Ne("")

	if opts != nil {
		if opts.Status != "" {
			query = query.And("Status").Eq(models.JobStatus(opts.Status))
		}
		if opts.OrderBy != "" {
			if opts.OrderDir == "DESC" {
				query = query.SortBy(opts.OrderBy).Reverse()
			} else {
				query = query.SortBy(opts.OrderBy)
			}
		} else {
			query = query.SortBy("CreatedAt").Reverse()
		}
		if opts.Offset > 0 {
			query = query.Skip(opts.Offset)
		}
		if opts.Limit > 0 {
			query = query.Limit(opts.Limit)
		}
	} else {
		query = query.SortBy("CreatedAt").Reverse()
	}

	var jobs []models.Job
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobPtrs(jobs), nil
}

func (s *JobStorage) CountJobs(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.Job{}, badgerhold.Where("ID").Ne(""))
	if err != nil {
		return 0, fmt.Errorf("failed to count jobs: %w", err)
	}
	return int(count), nil
}

func (s *JobStorage) CountJobsByStatus(ctx context.Context, status models.JobStatus) (int, error) {
	count, err := s.db.Store().Count(&models.Job{}, badgerhold.Where("Status").Eq(status))
	if err != nil {
		return 0, fmt.Errorf("failed to count jobs by status: %w", err)
	}
	return int(count), nil
}

func (s *JobStorage) GetJobsByStatus(ctx context.Context, status models.JobStatus) ([]*models.Job, error) {
	var jobs []models.Job
	if err := s.db.Store().Find(&jobs, badgerhold.Where("Status").Eq(status).SortBy("CreatedAt")); err != nil {
		return nil, fmt.Errorf("failed to get jobs by status: %w", err)
	}
	return jobPtrs(jobs), nil
}

// GetStaleProcessingJobs returns processing jobs whose last heartbeat is
// older than the cutoff. Jobs that never flushed a heartbeat are judged by
// StartedAt instead.
func (s *JobStorage) GetStaleProcessingJobs(ctx context.Context, heartbeatBefore time.Time) ([]*models.Job, error) {
	var jobs []models.Job
	if err := s.db.Store().Find(&jobs, badgerhold.Where("Status").Eq(models.JobStatusProcessing)); err != nil {
		return nil, fmt.Errorf("failed to find processing jobs: %w", err)
	}

	var stale []*models.Job
	for i := range jobs {
		job := &jobs[i]
		last := job.LastHeartbeat
		if last == nil {
			last = job.StartedAt
		}
		if last != nil && last.Before(heartbeatBefore) {
			stale = append(stale, job)
		}
	}
	return stale, nil
}

// DeleteTerminalJobsBefore prunes terminal jobs completed before the cutoff
// and returns how many were removed.
func (s *JobStorage) DeleteTerminalJobsBefore(ctx context.Context, completedBefore time.Time) (int, error) {
	var jobs []models.Job
	query := badgerhold.Where("Status").In(
		models.JobStatusCompleted,
		models.JobStatusFailed,
		models.JobStatusCancelled,
	)
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return 0, fmt.Errorf("failed to find terminal jobs: %w", err)
	}

	deleted := 0
	for i := range jobs {
		job := &jobs[i]
		if job.CompletedAt == nil || !job.CompletedAt.Before(completedBefore) {
			continue
		}
		if err := s.db.Store().Delete(job.ID, &models.Job{}); err != nil {
			s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to prune terminal job")
			continue
		}
		deleted++
	}
	return deleted, nil
}

func (s *JobStorage) DeleteJob(ctx context.Context, jobID string) error {
	if err := s.db.Store().Delete(jobID, &models.Job{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return interfaces.ErrNotFound
		}
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

func jobPtrs(jobs []models.Job) []*models.Job {
	result := make([]*models.Job, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result
}
