package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/pagemill/internal/models"
)

// PageListOptions controls page listing
type PageListOptions struct {
	CategoryID string
	GeoLevel   string
	Status     string
	OrderBy    string
	OrderDir   string
	Offset     int
	Limit      int
}

// PageStorage is the entity store the engine writes generated pages to.
// Create enforces the slug uniqueness constraint and returns ErrConflict on
// violation; that constraint is the sole arbiter of cross-job races.
type PageStorage interface {
	FindBySlug(ctx context.Context, slug string) (*models.Page, error)
	Create(ctx context.Context, page *models.Page) error
	Update(ctx context.Context, page *models.Page) error
	Count(ctx context.Context, opts *PageListOptions) (int, error)
	List(ctx context.Context, opts *PageListOptions) ([]*models.Page, error)
	Delete(ctx context.Context, id string) error
}

// GeoStorage holds geography reference data. List operations page by offset
// so large scopes are never materialized wholesale.
type GeoStorage interface {
	SaveState(ctx context.Context, state *models.State) error
	GetState(ctx context.Context, id string) (*models.State, error)
	CountStates(ctx context.Context) (int, error)
	ListStates(ctx context.Context, offset, limit int) ([]*models.State, error)

	SaveCity(ctx context.Context, city *models.City) error
	CountCities(ctx context.Context, stateID string) (int, error)
	ListCities(ctx context.Context, stateID string, offset, limit int) ([]*models.City, error)
	ListCitiesByPopulation(ctx context.Context, limit int) ([]*models.City, error)
	CountMajorCities(ctx context.Context) (int, error)
	ListMajorCities(ctx context.Context, offset, limit int) ([]*models.City, error)
}

// CategoryStorage holds insurance type reference data
type CategoryStorage interface {
	SaveCategory(ctx context.Context, category *models.InsuranceType) error
	GetCategory(ctx context.Context, id string) (*models.InsuranceType, error)
	CountCategories(ctx context.Context) (int, error)
	ListCategories(ctx context.Context, offset, limit int) ([]*models.InsuranceType, error)
}

// JobListOptions controls job listing
type JobListOptions struct {
	Status   string
	OrderBy  string
	OrderDir string
	Offset   int
	Limit    int
}

// JobStorage is the job record store. The executing batch run is the only
// writer of a job's counters; everything else reads persisted snapshots.
type JobStorage interface {
	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
	UpdateJob(ctx context.Context, job *models.Job) error
	UpdateJobStatus(ctx context.Context, jobID string, status models.JobStatus, errorMsg string) error
	UpdateJobProgress(ctx context.Context, jobID string, snapshot models.ProgressSnapshot) error
	ListJobs(ctx context.Context, opts *JobListOptions) ([]*models.Job, error)
	CountJobs(ctx context.Context) (int, error)
	CountJobsByStatus(ctx context.Context, status models.JobStatus) (int, error)
	GetJobsByStatus(ctx context.Context, status models.JobStatus) ([]*models.Job, error)
	GetStaleProcessingJobs(ctx context.Context, heartbeatBefore time.Time) ([]*models.Job, error)
	DeleteTerminalJobsBefore(ctx context.Context, completedBefore time.Time) (int, error)
	DeleteJob(ctx context.Context, jobID string) error
}

// StorageManager provides access to all storage backends
type StorageManager interface {
	PageStorage() PageStorage
	GeoStorage() GeoStorage
	CategoryStorage() CategoryStorage
	JobStorage() JobStorage
	LoadSeedData(ctx context.Context, dirPath string) error
	Close() error
}
