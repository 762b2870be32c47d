// Package adapter defines the completion-event boundary.
//
// Adapters notify downstream systems when a pipeline stage reaches a
// terminal status. The process owns adapter lifecycle; users provide
// configuration only.
package adapter

import "context"

// TaskCompletedEvent is the payload published when a pipeline stage for a
// pack reaches a terminal status.
type TaskCompletedEvent struct {
	EventType   string `json:"event_type"` // always "task_completed"
	PackName    string `json:"pack_name"`
	PackVersion string `json:"pack_version,omitempty"`
	Username    string `json:"username"`
	Token       string `json:"token"`
	Step        string `json:"step"`   // extraction, db_update, license_insertion
	Status      string `json:"status"` // complete, failed
	Message     string `json:"message,omitempty"`
	CleanCount  int    `json:"clean_count"`
	FaultyCount int    `json:"faulty_count"`
	Timestamp   string `json:"timestamp"` // ISO 8601
	DurationMs  int64  `json:"duration_ms"`
}

// EventTypeTaskCompleted is the fixed EventType value.
const EventTypeTaskCompleted = "task_completed"

// Adapter publishes task completion events to a downstream system.
type Adapter interface {
	// Publish sends a task completion event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *TaskCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}
