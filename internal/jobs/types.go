package jobs

import (
	"context"
	"errors"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeFetchHistory refreshes one symbol's historical price document.
	JobTypeFetchHistory JobType = "fetch_history"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is being retried.
	JobStatusRetrying JobStatus = "retrying"
)

// DefaultMaxRetries is applied to jobs published without an explicit limit.
const DefaultMaxRetries = 3

// ErrJobNotFound is returned by a JobStore for unknown ids.
var ErrJobNotFound = errors.New("job not found")

// FetchHistoryJob asks a worker to fetch and store a symbol's price history.
// StartedAt and CompletedAt describe the latest attempt only.
type FetchHistoryJob struct {
	JobID  string    `json:"job_id"`
	Symbol string    `json:"symbol"`
	Range  string    `json:"range"`
	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error holds the message of the latest failed attempt.
	Error      string `json:"error,omitempty"`
	RetryCount int    `json:"retry_count"`
	MaxRetries int    `json:"max_retries"`
}

// Publisher enqueues jobs.
type Publisher interface {
	// PublishFetchHistory publishes a history fetch job, filling in its id and defaults.
	PublishFetchHistory(ctx context.Context, job *FetchHistoryJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler is a function that processes a job.
// It should return an error if the job failed and should be retried.
type JobHandler func(ctx context.Context, job *FetchHistoryJob) error

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *FetchHistoryJob) error

	// GetJob retrieves a job by ID, or ErrJobNotFound.
	GetJob(ctx context.Context, jobID string) (*FetchHistoryJob, error)

	// ListJobs retrieves jobs with optional filtering, newest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*FetchHistoryJob, error)
}

// JobFilter narrows ListJobs. Zero fields match everything; a zero Limit
// returns all remaining jobs after Offset.
type JobFilter struct {
	Symbol string
	Status JobStatus
	Limit  int
	Offset int
}
