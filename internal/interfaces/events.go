package interfaces

import "context"

// EventType identifies a job lifecycle event
type EventType string

const (
	EventJobCreated   EventType = "job_created"
	EventJobStarted   EventType = "job_started"
	EventJobProgress  EventType = "job_progress"
	EventJobCompleted EventType = "job_completed"
	EventJobFailed    EventType = "job_failed"
	EventJobCancelled EventType = "job_cancelled"
)

// Event is one published job lifecycle event
type Event struct {
	Type    EventType              `json:"type"`
	JobID   string                 `json:"job_id"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// EventHandler processes a published event
type EventHandler func(ctx context.Context, event Event) error

// EventService is an in-process pub/sub bus for job lifecycle events
type EventService interface {
	Subscribe(eventType EventType, handler EventHandler) error
	Publish(ctx context.Context, event Event) error
	Close() error
}
