package generator

import (
	"math"

	"github.com/ternarybob/pagemill/internal/models"
)

// ProjectStatus maps a persisted job record onto the client-facing status
// shape. Pure projection; it never mutates the record.
func ProjectStatus(job *models.Job) *models.StatusView {
	percent := 0
	if job.TotalRows > 0 {
		percent = int(math.Round(100 * float64(job.ProcessedRows) / float64(job.TotalRows)))
	}
	return &models.StatusView{
		JobID:           job.ID,
		Status:          job.Status,
		TotalRows:       job.TotalRows,
		ProcessedRows:   job.ProcessedRows,
		CreatedPages:    job.CreatedPages,
		UpdatedPages:    job.UpdatedPages,
		SkippedPages:    job.SkippedPages,
		FailedPages:     job.FailedPages,
		PercentComplete: percent,
		Error:           job.Error,
	}
}
