package models

import (
	"time"
)

// JobStatus represents the lifecycle state of a generation job
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// IsTerminal reports whether the status is a terminal state. Terminal jobs are
// retained for history and are never mutated again.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// ActionKind identifies a generation action. The set is closed; resolver
// construction switches exhaustively over it so adding an action is a
// compile-time exercise.
type ActionKind string

const (
	ActionAllStates      ActionKind = "ALL_STATES"
	ActionAllCities      ActionKind = "ALL_CITIES"
	ActionStateCities    ActionKind = "STATE_CITIES"
	ActionTopCities      ActionKind = "TOP_CITIES"
	ActionMajorMetros    ActionKind = "MAJOR_METROS"
	ActionCategoryMatrix ActionKind = "CATEGORY_MATRIX"
	ActionCSVImport      ActionKind = "CSV_IMPORT"
)

// DataSource identifies where a job's targets are enumerated from
type DataSource string

const (
	DataSourceDatabase DataSource = "database"
	DataSourceRows     DataSource = "rows"
)

// Row is one externally-parsed spreadsheet row, keyed by raw column header
type Row map[string]string

// RowError records one failed item with its position in the input sequence
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// MaxErrorLogEntries bounds the per-job error log; only the most recent
// failures are retained on the job record.
const MaxErrorLogEntries = 100

// Job is one persisted bulk-generation run: scope, policy flags, live
// counters and lifecycle state. Counters are owned exclusively by the
// executing batch run and published here as snapshots; readers only ever see
// persisted state.
type Job struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Action ActionKind `json:"action"`
	Source DataSource `json:"source"`

	// Scope filters. CategoryID narrows generation to one insurance type;
	// StateID is required for STATE_CITIES and ignored elsewhere.
	CategoryID string `json:"category_id,omitempty"`
	StateID    string `json:"state_id,omitempty"`

	// Limit bounds TOP_CITIES; zero means the action default.
	Limit int `json:"limit,omitempty"`

	// Row payload and inferred column mapping for CSV-sourced jobs. The
	// mapping is inferred once at creation and frozen for the job's lifetime.
	Headers           []string      `json:"headers,omitempty"`
	Rows              []Row         `json:"rows,omitempty"`
	Mapping           ColumnMapping `json:"mapping,omitempty"`
	MappingConfidence float64       `json:"mapping_confidence,omitempty"`

	// Policy flags. When both skip and update are set, skip takes precedence.
	PublishOnCreate bool `json:"publish_on_create"`
	UpdateExisting  bool `json:"update_existing"`
	SkipExisting    bool `json:"skip_existing"`

	// Counters. TotalRows is fixed at creation and never mutated; the
	// outcome counters always sum to ProcessedRows at every flush point.
	TotalRows     int `json:"total_rows"`
	ProcessedRows int `json:"processed_rows"`
	CreatedPages  int `json:"created_pages"`
	UpdatedPages  int `json:"updated_pages"`
	SkippedPages  int `json:"skipped_pages"`
	FailedPages   int `json:"failed_pages"`

	Status JobStatus `json:"status"`

	// Error holds a concise description of why the job failed. Only
	// populated when Status is failed.
	Error    string     `json:"error,omitempty"`
	ErrorLog []RowError `json:"error_log,omitempty"`

	CreatedAt     time.Time  `json:"created_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	LastHeartbeat *time.Time `json:"last_heartbeat,omitempty"`
}

// ProgressSnapshot is the counter set flushed to the job record at batch
// boundaries by the batch processor.
type ProgressSnapshot struct {
	ProcessedRows int        `json:"processed_rows"`
	CreatedPages  int        `json:"created_pages"`
	UpdatedPages  int        `json:"updated_pages"`
	SkippedPages  int        `json:"skipped_pages"`
	FailedPages   int        `json:"failed_pages"`
	ErrorLog      []RowError `json:"error_log,omitempty"`
}

// StatusView is the client-facing read projection of a job's progress
type StatusView struct {
	JobID           string    `json:"job_id"`
	Status          JobStatus `json:"status"`
	TotalRows       int       `json:"total_rows"`
	ProcessedRows   int       `json:"processed_rows"`
	CreatedPages    int       `json:"created_pages"`
	UpdatedPages    int       `json:"updated_pages"`
	SkippedPages    int       `json:"skipped_pages"`
	FailedPages     int       `json:"failed_pages"`
	PercentComplete int       `json:"percent_complete"`
	Error           string    `json:"error,omitempty"`
}
