package generator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pagemill/internal/common"
	"github.com/ternarybob/pagemill/internal/interfaces"
	"github.com/ternarybob/pagemill/internal/models"
	badgerstorage "github.com/ternarybob/pagemill/internal/storage/badger"
)

func newTestService(t *testing.T) (*Service, interfaces.StorageManager) {
	t.Helper()

	logger := arbor.NewLogger()
	manager, err := badgerstorage.NewManager(logger, &common.BadgerConfig{
		Path: filepath.Join(t.TempDir(), "data"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })

	return NewService(manager, nil, logger), manager
}

func seedGeo(t *testing.T, manager interfaces.StorageManager, states, citiesPerState int) {
	t.Helper()
	ctx := context.Background()

	for i := 0; i < states; i++ {
		state := &models.State{
			ID:       fmt.Sprintf("state-%02d", i),
			Name:     fmt.Sprintf("State %02d", i),
			Code:     fmt.Sprintf("S%d", i),
			Slug:     fmt.Sprintf("state-%02d", i),
			IsActive: true,
		}
		require.NoError(t, manager.GeoStorage().SaveState(ctx, state))

		for j := 0; j < citiesPerState; j++ {
			city := &models.City{
				ID:         fmt.Sprintf("city-%02d-%02d", i, j),
				Name:       fmt.Sprintf("City %02d-%02d", i, j),
				Slug:       fmt.Sprintf("city-%02d-%02d", i, j),
				StateID:    state.ID,
				Population: 1000 * (j + 1),
				IsActive:   true,
			}
			require.NoError(t, manager.GeoStorage().SaveCity(ctx, city))
		}
	}
}

func seedCategories(t *testing.T, manager interfaces.StorageManager, names ...string) {
	t.Helper()
	ctx := context.Background()
	for i, name := range names {
		cat := &models.InsuranceType{
			ID:       fmt.Sprintf("cat-%02d", i),
			Name:     name,
			Slug:     fmt.Sprintf("cat-%02d", i),
			IsActive: true,
		}
		require.NoError(t, manager.CategoryStorage().SaveCategory(ctx, cat))
	}
}

func waitForTerminal(t *testing.T, svc *Service, jobID string) *models.StatusView {
	t.Helper()
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		status, err := svc.GetStatus(context.Background(), jobID)
		require.NoError(t, err)
		if status.Status.IsTerminal() {
			return status
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("job %s did not reach a terminal state", jobID)
	return nil
}

func TestMatrixJobEndToEnd(t *testing.T) {
	svc, manager := newTestService(t)
	ctx := context.Background()

	seedGeo(t, manager, 3, 0)
	seedCategories(t, manager, "Auto Insurance", "Home Insurance")

	result, err := svc.CreateJob(ctx, &models.GenerationRequest{
		Action: models.ActionCategoryMatrix,
	})
	require.NoError(t, err)
	require.Equal(t, models.JobStatusQueued, result.Job.Status)
	require.Equal(t, 6, result.Job.TotalRows)

	require.NoError(t, svc.ExecuteJob(ctx, result.Job.ID))
	status := waitForTerminal(t, svc, result.Job.ID)

	assert.Equal(t, models.JobStatusCompleted, status.Status)
	assert.Equal(t, 6, status.TotalRows)
	assert.Equal(t, 6, status.ProcessedRows)
	assert.Equal(t, 6, status.CreatedPages)
	assert.Equal(t, 0, status.FailedPages)
	assert.Equal(t, 100, status.PercentComplete)

	count, err := manager.PageStorage().Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 6, count)
}

func TestCSVImportWithUnderivableRows(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	rows := make([]models.Row, 0, 100)
	for i := 0; i < 100; i++ {
		if i%20 == 19 {
			// No city, state or slug: no key can be derived
			rows = append(rows, models.Row{"Population": "1234"})
			continue
		}
		rows = append(rows, models.Row{
			"City":       fmt.Sprintf("Town %03d", i),
			"State":      "Texas",
			"Population": "1234",
		})
	}

	result, err := svc.CreateJob(ctx, &models.GenerationRequest{
		Action:  models.ActionCSVImport,
		Headers: []string{"City", "State", "Population"},
		Rows:    rows,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Mapping)
	assert.Equal(t, "City", result.Mapping.Mapping["city"])
	assert.Equal(t, "State", result.Mapping.Mapping["state"])
	assert.Equal(t, 100, result.Job.TotalRows)
	assert.Equal(t, models.DataSourceRows, result.Job.Source)

	require.NoError(t, svc.ExecuteJob(ctx, result.Job.ID))
	status := waitForTerminal(t, svc, result.Job.ID)

	assert.Equal(t, models.JobStatusCompleted, status.Status)
	assert.Equal(t, 100, status.ProcessedRows)
	assert.Equal(t, 5, status.FailedPages)
	// 95 distinct city slugs, all new
	assert.Equal(t, 95, status.CreatedPages)

	job, err := svc.GetJob(ctx, result.Job.ID)
	require.NoError(t, err)
	require.Len(t, job.ErrorLog, 5)
	for _, entry := range job.ErrorLog {
		assert.Equal(t, "could not derive key", entry.Reason)
	}
}

func TestQueuedJobStaysQueued(t *testing.T) {
	svc, manager := newTestService(t)
	ctx := context.Background()

	seedGeo(t, manager, 2, 0)
	result, err := svc.CreateJob(ctx, &models.GenerationRequest{Action: models.ActionAllStates})
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)

	status, err := svc.GetStatus(ctx, result.Job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusQueued, status.Status)
	assert.Equal(t, 0, status.ProcessedRows)
	assert.Equal(t, 0, status.PercentComplete)
}

func TestSkipTakesPrecedenceOverUpdate(t *testing.T) {
	svc, manager := newTestService(t)
	ctx := context.Background()

	seedGeo(t, manager, 1, 0)

	// Pre-existing page at the state key
	require.NoError(t, manager.PageStorage().Create(ctx, &models.Page{
		ID:    "page-existing",
		Slug:  "state-00",
		Title: "Original Title",
	}))

	skip, update := true, true
	result, err := svc.CreateJob(ctx, &models.GenerationRequest{
		Action: models.ActionAllStates,
		Options: models.GenerationOptions{
			SkipExisting:   &skip,
			UpdateExisting: &update,
		},
	})
	require.NoError(t, err)
	require.NoError(t, svc.ExecuteJob(ctx, result.Job.ID))
	status := waitForTerminal(t, svc, result.Job.ID)

	assert.Equal(t, models.JobStatusCompleted, status.Status)
	assert.Equal(t, 1, status.SkippedPages)
	assert.Equal(t, 0, status.UpdatedPages)

	page, err := manager.PageStorage().FindBySlug(ctx, "state-00")
	require.NoError(t, err)
	assert.Equal(t, "Original Title", page.Title, "skip must never overwrite")
}

func TestUpdateExistingApplies(t *testing.T) {
	svc, manager := newTestService(t)
	ctx := context.Background()

	seedGeo(t, manager, 1, 0)
	require.NoError(t, manager.PageStorage().Create(ctx, &models.Page{
		ID:    "page-existing",
		Slug:  "state-00",
		Title: "Original Title",
	}))

	skip, update := false, true
	result, err := svc.CreateJob(ctx, &models.GenerationRequest{
		Action: models.ActionAllStates,
		Options: models.GenerationOptions{
			SkipExisting:   &skip,
			UpdateExisting: &update,
		},
	})
	require.NoError(t, err)
	require.NoError(t, svc.ExecuteJob(ctx, result.Job.ID))
	status := waitForTerminal(t, svc, result.Job.ID)

	assert.Equal(t, 1, status.UpdatedPages)

	page, err := manager.PageStorage().FindBySlug(ctx, "state-00")
	require.NoError(t, err)
	assert.Equal(t, "Best Insurance in State 00", page.Title)
}

func TestNeitherFlagNeverOverwrites(t *testing.T) {
	svc, manager := newTestService(t)
	ctx := context.Background()

	seedGeo(t, manager, 1, 0)
	require.NoError(t, manager.PageStorage().Create(ctx, &models.Page{
		ID:   "page-existing",
		Slug: "state-00",
	}))

	skip, update := false, false
	result, err := svc.CreateJob(ctx, &models.GenerationRequest{
		Action: models.ActionAllStates,
		Options: models.GenerationOptions{
			SkipExisting:   &skip,
			UpdateExisting: &update,
		},
	})
	require.NoError(t, err)
	require.NoError(t, svc.ExecuteJob(ctx, result.Job.ID))
	status := waitForTerminal(t, svc, result.Job.ID)

	assert.Equal(t, 1, status.SkippedPages)
	assert.Equal(t, 0, status.UpdatedPages)
}

func TestPublishOnCreateControlsPageStatus(t *testing.T) {
	svc, manager := newTestService(t)
	ctx := context.Background()

	seedGeo(t, manager, 2, 0)

	// Default: published
	result, err := svc.CreateJob(ctx, &models.GenerationRequest{Action: models.ActionAllStates})
	require.NoError(t, err)
	require.NoError(t, svc.ExecuteJob(ctx, result.Job.ID))
	waitForTerminal(t, svc, result.Job.ID)

	page, err := manager.PageStorage().FindBySlug(ctx, "state-00")
	require.NoError(t, err)
	assert.Equal(t, models.PageStatusPublished, page.Status)
	assert.True(t, page.IsPublished)
	assert.NotNil(t, page.PublishedAt)

	// Explicit draft on a different scope
	seedCategories(t, manager, "Auto Insurance")
	publish := false
	result, err = svc.CreateJob(ctx, &models.GenerationRequest{
		Action:     models.ActionAllStates,
		CategoryID: "cat-00",
		Options:    models.GenerationOptions{PublishOnCreate: &publish},
	})
	require.NoError(t, err)
	require.NoError(t, svc.ExecuteJob(ctx, result.Job.ID))
	waitForTerminal(t, svc, result.Job.ID)

	page, err = manager.PageStorage().FindBySlug(ctx, "cat-00/state-00")
	require.NoError(t, err)
	assert.Equal(t, models.PageStatusDraft, page.Status)
	assert.False(t, page.IsPublished)
	assert.Nil(t, page.PublishedAt)
}

func TestRequestValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateJob(ctx, &models.GenerationRequest{Action: "NOT_AN_ACTION"})
	assert.Error(t, err)

	_, err = svc.CreateJob(ctx, &models.GenerationRequest{Action: models.ActionStateCities})
	assert.Error(t, err)

	_, err = svc.CreateJob(ctx, &models.GenerationRequest{Action: models.ActionCSVImport})
	assert.Error(t, err)

	_, err = svc.CreateJob(ctx, &models.GenerationRequest{
		Action:     models.ActionAllStates,
		CategoryID: "no-such-category",
	})
	assert.Error(t, err)

	// No job records left behind by rejected requests
	jobs, err := svc.ListJobs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestCancelRequiresProcessing(t *testing.T) {
	svc, manager := newTestService(t)
	ctx := context.Background()

	seedGeo(t, manager, 1, 0)
	result, err := svc.CreateJob(ctx, &models.GenerationRequest{Action: models.ActionAllStates})
	require.NoError(t, err)

	err = svc.CancelJob(ctx, result.Job.ID)
	assert.ErrorIs(t, err, interfaces.ErrInvalidState)
}

func TestCancelProcessingJobReachesCancelled(t *testing.T) {
	svc, manager := newTestService(t)
	ctx := context.Background()

	// Large enough that flush pacing keeps the run alive well past the
	// first batch boundary.
	seedGeo(t, manager, 1, 400)
	result, err := svc.CreateJob(ctx, &models.GenerationRequest{Action: models.ActionAllCities})
	require.NoError(t, err)
	require.Equal(t, 400, result.Job.TotalRows)

	require.NoError(t, svc.ExecuteJob(ctx, result.Job.ID))

	// Wait for the first flushed snapshot so the cancel lands mid-flight.
	deadline := time.Now().Add(10 * time.Second)
	for {
		require.True(t, time.Now().Before(deadline), "job never flushed progress")
		status, err := svc.GetStatus(ctx, result.Job.ID)
		require.NoError(t, err)
		if status.Status == models.JobStatusProcessing && status.ProcessedRows > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	require.NoError(t, svc.CancelJob(ctx, result.Job.ID))
	status := waitForTerminal(t, svc, result.Job.ID)

	assert.Equal(t, models.JobStatusCancelled, status.Status)
	assert.Greater(t, status.ProcessedRows, 0)
	assert.Less(t, status.ProcessedRows, status.TotalRows)
	sum := status.CreatedPages + status.UpdatedPages + status.SkippedPages + status.FailedPages
	assert.Equal(t, status.ProcessedRows, sum)

	pages, err := manager.PageStorage().Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, status.CreatedPages, pages)
}

func TestConcurrentExecuteStartsSingleRun(t *testing.T) {
	svc, manager := newTestService(t)
	ctx := context.Background()

	seedGeo(t, manager, 1, 120)
	result, err := svc.CreateJob(ctx, &models.GenerationRequest{Action: models.ActionAllCities})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, svc.ExecuteJob(ctx, result.Job.ID))
		}()
	}
	wg.Wait()

	status := waitForTerminal(t, svc, result.Job.ID)

	// A single run processes every target exactly once; duplicate runs
	// would race page creates into failed and skipped counts.
	assert.Equal(t, models.JobStatusCompleted, status.Status)
	assert.Equal(t, 120, status.ProcessedRows)
	assert.Equal(t, 120, status.CreatedPages)
	assert.Equal(t, 0, status.SkippedPages)
	assert.Equal(t, 0, status.FailedPages)

	pages, err := manager.PageStorage().Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 120, pages)
}

func TestDeleteRejectedWhileProcessing(t *testing.T) {
	svc, manager := newTestService(t)
	ctx := context.Background()

	job := &models.Job{ID: "job-busy", Status: models.JobStatusProcessing}
	require.NoError(t, manager.JobStorage().CreateJob(ctx, job))

	err := svc.DeleteJob(ctx, "job-busy")
	assert.ErrorIs(t, err, interfaces.ErrInvalidState)

	require.NoError(t, manager.JobStorage().UpdateJobStatus(ctx, "job-busy", models.JobStatusCompleted, ""))
	assert.NoError(t, svc.DeleteJob(ctx, "job-busy"))

	_, err = svc.GetJob(ctx, "job-busy")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestExecuteIsIdempotentForNonQueuedJobs(t *testing.T) {
	svc, manager := newTestService(t)
	ctx := context.Background()

	for _, status := range []models.JobStatus{
		models.JobStatusProcessing,
		models.JobStatusCompleted,
		models.JobStatusCancelled,
	} {
		job := &models.Job{ID: "job-" + string(status), Status: status, ProcessedRows: 3, TotalRows: 3}
		require.NoError(t, manager.JobStorage().CreateJob(ctx, job))

		require.NoError(t, svc.ExecuteJob(ctx, job.ID))

		got, err := svc.GetJob(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, status, got.Status, "execute must not disturb %s", status)
		assert.Equal(t, 3, got.ProcessedRows)
	}
}

func TestCounterInvariantAtEveryFlush(t *testing.T) {
	svc, manager := newTestService(t)
	ctx := context.Background()

	seedGeo(t, manager, 4, 30) // 120 cities: several flush boundaries at size 50

	result, err := svc.CreateJob(ctx, &models.GenerationRequest{Action: models.ActionAllCities})
	require.NoError(t, err)
	require.Equal(t, 120, result.Job.TotalRows)
	require.NoError(t, svc.ExecuteJob(ctx, result.Job.ID))

	// Poll like a client would; every observed snapshot must satisfy the
	// counter invariant.
	for {
		status, err := svc.GetStatus(ctx, result.Job.ID)
		require.NoError(t, err)

		sum := status.CreatedPages + status.UpdatedPages + status.SkippedPages + status.FailedPages
		assert.Equal(t, status.ProcessedRows, sum)
		assert.LessOrEqual(t, status.ProcessedRows, status.TotalRows)

		if status.Status.IsTerminal() {
			assert.Equal(t, models.JobStatusCompleted, status.Status)
			assert.Equal(t, 120, status.ProcessedRows)
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStatsCountsPerStatus(t *testing.T) {
	svc, manager := newTestService(t)
	ctx := context.Background()

	for i, status := range []models.JobStatus{
		models.JobStatusQueued,
		models.JobStatusQueued,
		models.JobStatusCompleted,
		models.JobStatusFailed,
	} {
		job := &models.Job{ID: fmt.Sprintf("job-%d", i), Status: status}
		require.NoError(t, manager.JobStorage().CreateJob(ctx, job))
	}

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.Queued)
	assert.Equal(t, 1, stats.ByStatus[string(models.JobStatusCompleted)])
	assert.Equal(t, 1, stats.ByStatus[string(models.JobStatusFailed)])
}

func TestJobNameDerivation(t *testing.T) {
	svc, manager := newTestService(t)
	ctx := context.Background()

	seedGeo(t, manager, 1, 0)
	seedCategories(t, manager, "Auto Insurance")

	result, err := svc.CreateJob(ctx, &models.GenerationRequest{
		Action:     models.ActionAllStates,
		CategoryID: "cat-00",
	})
	require.NoError(t, err)
	assert.Equal(t, "Auto Insurance - All States", result.Job.Name)

	result, err = svc.CreateJob(ctx, &models.GenerationRequest{
		Action: models.ActionAllStates,
		Name:   "My Custom Run",
	})
	require.NoError(t, err)
	assert.Equal(t, "My Custom Run", result.Job.Name)
}

func TestTotalRowsFixedAtCreation(t *testing.T) {
	svc, manager := newTestService(t)
	ctx := context.Background()

	seedGeo(t, manager, 2, 0)
	result, err := svc.CreateJob(ctx, &models.GenerationRequest{Action: models.ActionAllStates})
	require.NoError(t, err)
	require.Equal(t, 2, result.Job.TotalRows)

	// Entity counts change after creation; the job's total must not
	require.NoError(t, manager.GeoStorage().SaveState(ctx, &models.State{
		ID: "state-99", Name: "Late State", Slug: "state-99", IsActive: true,
	}))

	job, err := svc.GetJob(ctx, result.Job.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, job.TotalRows)
}

func TestDuplicateSlugAcrossJobsCountsFailed(t *testing.T) {
	svc, manager := newTestService(t)
	ctx := context.Background()

	rows := []models.Row{
		{"City": "Springfield", "State": "Illinois"},
		{"City": "Springfield", "State": "Illinois"},
	}
	skip, update := false, false
	result, err := svc.CreateJob(ctx, &models.GenerationRequest{
		Action:  models.ActionCSVImport,
		Headers: []string{"City", "State"},
		Rows:    rows,
		Options: models.GenerationOptions{SkipExisting: &skip, UpdateExisting: &update},
	})
	require.NoError(t, err)
	require.NoError(t, svc.ExecuteJob(ctx, result.Job.ID))
	status := waitForTerminal(t, svc, result.Job.ID)

	// Second row finds the page the first row just created and is skipped,
	// never silently overwritten.
	assert.Equal(t, 2, status.ProcessedRows)
	assert.Equal(t, 1, status.CreatedPages)
	assert.Equal(t, 1, status.SkippedPages)

	count, err := manager.PageStorage().Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStatusUnknownJob(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetStatus(context.Background(), "job-missing")
	assert.True(t, errors.Is(err, interfaces.ErrNotFound))
}
