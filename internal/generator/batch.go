package generator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pagemill/internal/interfaces"
	"github.com/ternarybob/pagemill/internal/models"
	"golang.org/x/time/rate"
)

// Batch sizes by enumeration source. Store-enumerated scopes flush more often
// because each item already costs a store round trip; row payloads are cheap
// per item so they flush in larger chunks.
const (
	databaseBatchSize = 50
	rowsBatchSize     = 100
)

// flushInterval paces progress flushes so very large jobs do not saturate
// the job record store with write traffic. This is a backpressure valve.
const flushInterval = 100 * time.Millisecond

// OutcomeKind classifies one per-item result
type OutcomeKind int

const (
	OutcomeCreated OutcomeKind = iota
	OutcomeUpdated
	OutcomeSkipped
	OutcomeFailed
)

// itemOp applies the per-item operation to one target. A non-empty reason
// accompanies OutcomeFailed.
type itemOp func(ctx context.Context, target Target) (OutcomeKind, string)

// errCancelled aborts the iteration when cancellation is observed. It is a
// control signal, not a failure.
var errCancelled = errors.New("job cancelled")

// batchRun executes one job's target sequence. It is the sole owner of the
// job's counters while running; everything outside reads only the snapshots
// it flushes at batch boundaries.
type batchRun struct {
	jobID     string
	jobs      interfaces.JobStorage
	logger    arbor.ILogger
	batchSize int
	limiter   *rate.Limiter
	onFlush   func(snapshot models.ProgressSnapshot)

	counts     models.ProgressSnapshot
	row        int
	sinceFlush int
}

func newBatchRun(jobID string, jobs interfaces.JobStorage, batchSize int, logger arbor.ILogger, onFlush func(models.ProgressSnapshot)) *batchRun {
	return &batchRun{
		jobID:     jobID,
		jobs:      jobs,
		logger:    logger,
		batchSize: batchSize,
		limiter:   rate.NewLimiter(rate.Every(flushInterval), 1),
		onFlush:   onFlush,
	}
}

// run consumes the resolver's sequence, applying op per target. Cancellation
// is checked before every item; once observed, no further writes happen
// except the final counter flush. The returned error is nil on normal
// completion, errCancelled on cancellation, or the iteration-level failure.
func (b *batchRun) run(ctx context.Context, resolver Resolver, op itemOp) (models.ProgressSnapshot, error) {
	err := resolver.ForEach(ctx, func(target Target) error {
		if ctx.Err() != nil {
			return errCancelled
		}

		b.row++
		kind, reason := b.apply(ctx, op, target)
		b.record(kind, reason)

		b.sinceFlush++
		if b.sinceFlush >= b.batchSize {
			if err := b.flush(ctx); err != nil {
				return fmt.Errorf("progress flush failed: %w", err)
			}
			// Inter-batch pacing; a cancelled context just skips the wait,
			// the next item check catches it.
			_ = b.limiter.Wait(ctx)
		}
		return nil
	})

	// Final counters are flushed even on cancellation or failure so the
	// terminal record reflects exactly how far the run got.
	if flushErr := b.flushFinal(); flushErr != nil {
		b.logger.Warn().Err(flushErr).Str("job_id", b.jobID).Msg("Final progress flush failed")
	}

	if err == nil && ctx.Err() != nil {
		err = errCancelled
	}
	return b.counts, err
}

// apply runs op for one target, converting a panic or a pre-failed target
// into a failed outcome so a single bad row never aborts the run.
func (b *batchRun) apply(ctx context.Context, op itemOp, target Target) (kind OutcomeKind, reason string) {
	if target.Err != "" {
		return OutcomeFailed, target.Err
	}

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().Str("job_id", b.jobID).Str("slug", target.Slug).
				Msgf("Item operation panicked: %v", r)
			kind, reason = OutcomeFailed, fmt.Sprintf("panic: %v", r)
		}
	}()

	return op(ctx, target)
}

func (b *batchRun) record(kind OutcomeKind, reason string) {
	b.counts.ProcessedRows++
	switch kind {
	case OutcomeCreated:
		b.counts.CreatedPages++
	case OutcomeUpdated:
		b.counts.UpdatedPages++
	case OutcomeSkipped:
		b.counts.SkippedPages++
	case OutcomeFailed:
		b.counts.FailedPages++
		b.counts.ErrorLog = append(b.counts.ErrorLog, models.RowError{Row: b.row, Reason: reason})
		if len(b.counts.ErrorLog) > models.MaxErrorLogEntries {
			b.counts.ErrorLog = b.counts.ErrorLog[len(b.counts.ErrorLog)-models.MaxErrorLogEntries:]
		}
	}
}

func (b *batchRun) flush(ctx context.Context) error {
	b.sinceFlush = 0
	if err := b.jobs.UpdateJobProgress(ctx, b.jobID, b.counts); err != nil {
		return err
	}
	if b.onFlush != nil {
		b.onFlush(b.counts)
	}
	return nil
}

// flushFinal persists the closing snapshot on a fresh context; the run's
// context may already be cancelled.
func (b *batchRun) flushFinal() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return b.flush(ctx)
}
