package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pagemill/internal/common"
	"github.com/ternarybob/pagemill/internal/interfaces"
	"github.com/ternarybob/pagemill/internal/models"
)

// Scheduler runs periodic job maintenance: processing jobs whose heartbeat
// went quiet are marked failed, and terminal jobs past the retention window
// are pruned. Both sweeps only touch persisted records; live runs keep their
// heartbeats fresh at every flush and are never swept.
type Scheduler struct {
	jobs   interfaces.JobStorage
	config *common.MaintenanceConfig
	cron   *cron.Cron
	logger arbor.ILogger
}

// NewScheduler creates a maintenance scheduler
func NewScheduler(jobs interfaces.JobStorage, config *common.MaintenanceConfig, logger arbor.ILogger) *Scheduler {
	return &Scheduler{
		jobs:   jobs,
		config: config,
		cron:   cron.New(),
		logger: logger,
	}
}

// Start registers the sweeps and begins the schedule
func (s *Scheduler) Start() error {
	if !s.config.Enabled {
		s.logger.Info().Msg("Job maintenance disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(s.config.StaleJobSchedule, s.sweepStaleJobs); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.config.RetentionSchedule, s.sweepRetention); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().
		Str("stale_schedule", s.config.StaleJobSchedule).
		Str("retention_schedule", s.config.RetentionSchedule).
		Msg("Job maintenance scheduler started")

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info().Msg("Job maintenance scheduler stopped")
}

// sweepStaleJobs fails processing jobs whose last heartbeat predates the
// stale cutoff. A job only goes quiet when its goroutine died without
// writing a terminal state (crash, kill), so failing it is the truthful
// record.
func (s *Scheduler) sweepStaleJobs() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-time.Duration(s.config.StaleAfterMinutes) * time.Minute)
	stale, err := s.jobs.GetStaleProcessingJobs(ctx, cutoff)
	if err != nil {
		s.logger.Error().Err(err).Msg("Stale job sweep failed")
		return
	}

	for _, job := range stale {
		s.logger.Warn().
			Str("job_id", job.ID).
			Int("processed", job.ProcessedRows).
			Msg("Marking stale processing job failed")
		if err := s.jobs.UpdateJobStatus(ctx, job.ID, models.JobStatusFailed, "processing stalled: heartbeat lost"); err != nil {
			s.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to mark stale job")
		}
	}
}

// sweepRetention prunes terminal jobs older than the retention window
func (s *Scheduler) sweepRetention() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := time.Now().AddDate(0, 0, -s.config.RetentionDays)
	deleted, err := s.jobs.DeleteTerminalJobsBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error().Err(err).Msg("Retention sweep failed")
		return
	}
	if deleted > 0 {
		s.logger.Info().Int("deleted", deleted).Msg("Pruned terminal jobs past retention")
	}
}
