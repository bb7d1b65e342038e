package generator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pagemill/internal/common"
	"github.com/ternarybob/pagemill/internal/interfaces"
	"github.com/ternarybob/pagemill/internal/models"
	badgerstorage "github.com/ternarybob/pagemill/internal/storage/badger"
)

// sliceResolver yields a fixed target slice; test double for the store-backed
// resolvers.
type sliceResolver struct {
	targets []Target
	failAt  int // 1-based position at which ForEach itself errors; 0 disables
}

func (r *sliceResolver) Total(ctx context.Context) (int, error) {
	return len(r.targets), nil
}

func (r *sliceResolver) ForEach(ctx context.Context, fn func(Target) error) error {
	for i, target := range r.targets {
		if r.failAt > 0 && i+1 == r.failAt {
			return errors.New("backing store unreachable")
		}
		if err := fn(target); err != nil {
			return err
		}
	}
	return nil
}

func makeTargets(n int) []Target {
	targets := make([]Target, n)
	for i := range targets {
		targets[i] = Target{Slug: fmt.Sprintf("target-%04d", i)}
	}
	return targets
}

func newTestJobStorage(t *testing.T) interfaces.JobStorage {
	t.Helper()
	manager, err := badgerstorage.NewManager(arbor.NewLogger(), &common.BadgerConfig{
		Path: filepath.Join(t.TempDir(), "data"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })
	return manager.JobStorage()
}

func createJobRecord(t *testing.T, jobs interfaces.JobStorage, id string, total int) {
	t.Helper()
	err := jobs.CreateJob(context.Background(), &models.Job{
		ID: id, Status: models.JobStatusProcessing, TotalRows: total,
	})
	require.NoError(t, err)
}

func TestBatchRunCompletes(t *testing.T) {
	jobs := newTestJobStorage(t)
	createJobRecord(t, jobs, "job-1", 120)

	run := newBatchRun("job-1", jobs, 50, arbor.NewLogger(), nil)
	counts, err := run.run(context.Background(), &sliceResolver{targets: makeTargets(120)}, func(ctx context.Context, target Target) (OutcomeKind, string) {
		return OutcomeCreated, ""
	})

	require.NoError(t, err)
	assert.Equal(t, 120, counts.ProcessedRows)
	assert.Equal(t, 120, counts.CreatedPages)

	// Final flush persisted the closing snapshot
	job, err := jobs.GetJob(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, 120, job.ProcessedRows)
}

func TestBatchRunCancellationIsPrompt(t *testing.T) {
	jobs := newTestJobStorage(t)
	createJobRecord(t, jobs, "job-cancel", 1000)

	ctx, cancel := context.WithCancel(context.Background())

	applied := 0
	run := newBatchRun("job-cancel", jobs, 50, arbor.NewLogger(), nil)
	counts, err := run.run(ctx, &sliceResolver{targets: makeTargets(1000)}, func(ctx context.Context, target Target) (OutcomeKind, string) {
		applied++
		if applied == 10 {
			cancel()
		}
		return OutcomeCreated, ""
	})

	assert.ErrorIs(t, err, errCancelled)
	// The op that triggered the cancel is the last write; item 11 onward
	// never runs.
	assert.Equal(t, 10, applied)
	assert.Equal(t, 10, counts.ProcessedRows)

	// Final counters were still flushed
	job, getErr := jobs.GetJob(context.Background(), "job-cancel")
	require.NoError(t, getErr)
	assert.Equal(t, 10, job.ProcessedRows)
}

func TestBatchRunIterationFailureAborts(t *testing.T) {
	jobs := newTestJobStorage(t)
	createJobRecord(t, jobs, "job-iter", 100)

	run := newBatchRun("job-iter", jobs, 50, arbor.NewLogger(), nil)
	counts, err := run.run(context.Background(), &sliceResolver{targets: makeTargets(100), failAt: 61}, func(ctx context.Context, target Target) (OutcomeKind, string) {
		return OutcomeCreated, ""
	})

	require.Error(t, err)
	assert.NotErrorIs(t, err, errCancelled)
	assert.Equal(t, 60, counts.ProcessedRows)

	// Partial progress is retained, not rolled back
	job, getErr := jobs.GetJob(context.Background(), "job-iter")
	require.NoError(t, getErr)
	assert.Equal(t, 60, job.ProcessedRows)
}

func TestBatchRunIsolatesItemFailures(t *testing.T) {
	jobs := newTestJobStorage(t)
	createJobRecord(t, jobs, "job-items", 10)

	run := newBatchRun("job-items", jobs, 50, arbor.NewLogger(), nil)
	counts, err := run.run(context.Background(), &sliceResolver{targets: makeTargets(10)}, func(ctx context.Context, target Target) (OutcomeKind, string) {
		switch target.Slug {
		case "target-0002":
			return OutcomeFailed, "bad data"
		case "target-0005":
			panic("unexpected row shape")
		default:
			return OutcomeCreated, ""
		}
	})

	require.NoError(t, err)
	assert.Equal(t, 10, counts.ProcessedRows)
	assert.Equal(t, 8, counts.CreatedPages)
	assert.Equal(t, 2, counts.FailedPages)
	require.Len(t, counts.ErrorLog, 2)
	assert.Equal(t, 3, counts.ErrorLog[0].Row)
	assert.Equal(t, "bad data", counts.ErrorLog[0].Reason)
	assert.Contains(t, counts.ErrorLog[1].Reason, "panic")
}

func TestBatchRunErrorLogCapped(t *testing.T) {
	jobs := newTestJobStorage(t)
	createJobRecord(t, jobs, "job-errs", 300)

	run := newBatchRun("job-errs", jobs, 100, arbor.NewLogger(), nil)
	counts, err := run.run(context.Background(), &sliceResolver{targets: makeTargets(300)}, func(ctx context.Context, target Target) (OutcomeKind, string) {
		return OutcomeFailed, "always fails"
	})

	require.NoError(t, err)
	assert.Equal(t, 300, counts.FailedPages)
	require.Len(t, counts.ErrorLog, models.MaxErrorLogEntries)
	// Most recent entries retained
	assert.Equal(t, 300, counts.ErrorLog[len(counts.ErrorLog)-1].Row)
	assert.Equal(t, 201, counts.ErrorLog[0].Row)
}

func TestBatchRunPreFailedTargets(t *testing.T) {
	jobs := newTestJobStorage(t)
	createJobRecord(t, jobs, "job-prefail", 3)

	targets := []Target{
		{Slug: "ok-1"},
		{Err: "could not derive key"},
		{Slug: "ok-2"},
	}

	opCalls := 0
	run := newBatchRun("job-prefail", jobs, 50, arbor.NewLogger(), nil)
	counts, err := run.run(context.Background(), &sliceResolver{targets: targets}, func(ctx context.Context, target Target) (OutcomeKind, string) {
		opCalls++
		return OutcomeCreated, ""
	})

	require.NoError(t, err)
	assert.Equal(t, 2, opCalls, "pre-failed targets never reach the op")
	assert.Equal(t, 3, counts.ProcessedRows)
	assert.Equal(t, 1, counts.FailedPages)
	assert.Equal(t, "could not derive key", counts.ErrorLog[0].Reason)
}
