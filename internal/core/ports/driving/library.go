package driving

import (
	"context"

	"github.com/custodia-labs/exemplar-cli/internal/core/domain"
)

// LibraryManager owns library lifecycle: incremental builds as
// cancelable background tasks, task polling and removal.
type LibraryManager interface {
	// Build starts an incremental (re)build of the library from the
	// corpus folder and returns the task id. An empty corpusDir reuses
	// the folder recorded by the previous build. A library with a
	// running build rejects the request with domain.ErrBuildInProgress.
	Build(ctx context.Context, library, corpusDir string) (taskID string, err error)

	// GetTask returns a snapshot of the task, or domain.ErrTaskNotFound.
	GetTask(taskID string) (*domain.Task, error)

	// CancelTask requests cooperative cancellation of a running task.
	// Cancelling a finished task is a no-op.
	CancelTask(taskID string) error

	// List returns the libraries known on disk.
	List(ctx context.Context) ([]domain.Library, error)

	// Remove deletes a library and its artifacts. Fails with
	// domain.ErrBuildInProgress while a build is running.
	Remove(ctx context.Context, library string) error
}
