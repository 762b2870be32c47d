package types

// TaskStatus is the lifecycle state of one asynchronous pipeline run.
type TaskStatus string

// Task status constants.
const (
	TaskStatusRunning  TaskStatus = "running"
	TaskStatusComplete TaskStatus = "complete"
	TaskStatusFailed   TaskStatus = "failed"
)

// IsTerminal reports whether the status is a terminal state.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusComplete || s == TaskStatusFailed
}

// TaskStep identifies the pipeline stage a task is executing.
type TaskStep int

// Pipeline step ordinals.
const (
	StepExtraction TaskStep = iota + 1
	StepDatabaseUpdate
	StepLicenseInsertion
)

// String returns the step name for logs and API payloads.
func (s TaskStep) String() string {
	switch s {
	case StepExtraction:
		return "extraction"
	case StepDatabaseUpdate:
		return "db_update"
	case StepLicenseInsertion:
		return "license_insertion"
	default:
		return "unknown"
	}
}

// TaskSnapshot is an immutable point-in-time view of a tracked task,
// safe to serialize and to read after the record has moved on.
type TaskSnapshot struct {
	Username string       `json:"username"`
	Token    string       `json:"token"`
	PackName string       `json:"pack_name"`
	Status   TaskStatus   `json:"status"`
	Message  string       `json:"message"`
	Step     TaskStep     `json:"step"`
	Data     *PackDetails `json:"data,omitempty"`
}
