package domain

import "time"

// TaskStatus is the lifecycle state of a background task.
// Terminal states (done, failed, canceled) are final.
type TaskStatus string

const (
	// TaskRunning indicates the task is in progress.
	TaskRunning TaskStatus = "running"

	// TaskDone indicates the task completed successfully.
	TaskDone TaskStatus = "done"

	// TaskFailed indicates the task stopped with an error.
	TaskFailed TaskStatus = "failed"

	// TaskCanceled indicates the task was cancelled cooperatively.
	// Prior artifacts are preserved and usable.
	TaskCanceled TaskStatus = "canceled"
)

// Terminal reports whether the status is final.
func (s TaskStatus) Terminal() bool {
	return s == TaskDone || s == TaskFailed || s == TaskCanceled
}

// BuildStage tags the phase a library build is in.
type BuildStage string

// Build stages in execution order.
const (
	StageExtract       BuildStage = "extract"
	StageNormalise     BuildStage = "normalise"
	StageEmbed         BuildStage = "embed"
	StageCitationScan  BuildStage = "citation-extract"
	StageCitationEmbed BuildStage = "citation-embed"
	StageDone          BuildStage = "done"
)

// Task is a snapshot of a long-running background operation. Tasks are
// created when the operation starts and mutated only by the worker
// running it; callers poll copies.
type Task struct {
	// ID is the unique task identifier.
	ID string

	// Kind names the operation, e.g. "library-build".
	Kind string

	// Library is the library the task operates on.
	Library string

	// Status is the lifecycle state.
	Status TaskStatus

	// Stage tags the current build phase.
	Stage BuildStage

	// Done and Total are progress counters for the current stage.
	// Document granularity during extraction, batch granularity during
	// embedding.
	Done  int
	Total int

	// Detail is free-text progress detail (e.g. the current file).
	Detail string

	// Error holds the failure message when Status is failed.
	Error string

	// StartedAt is when the task began.
	StartedAt time.Time

	// EndedAt is when the task reached a terminal state.
	EndedAt time.Time
}
