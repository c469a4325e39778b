package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/exemplar-cli/internal/core/domain"
)

// progressInterval throttles task progress updates so a polling caller
// is not flooded. Stage changes and terminal transitions always land.
const progressInterval = time.Second

// TaskRegistry is the in-memory registry of background tasks. Tasks are
// mutated only through their TaskHandle by the worker that owns them;
// callers poll snapshot copies.
type TaskRegistry struct {
	mu    sync.RWMutex
	tasks map[string]*taskEntry
}

type taskEntry struct {
	task       domain.Task
	cancel     context.CancelFunc
	lastUpdate time.Time
}

// NewTaskRegistry creates an empty registry.
func NewTaskRegistry() *TaskRegistry {
	return &TaskRegistry{tasks: make(map[string]*taskEntry)}
}

// Start registers a new running task and returns the handle its worker
// drives. The handle's context is cancelled by CancelTask.
func (r *TaskRegistry) Start(kind, library string) *TaskHandle {
	ctx, cancel := context.WithCancel(context.Background())

	entry := &taskEntry{
		task: domain.Task{
			ID:        uuid.NewString(),
			Kind:      kind,
			Library:   library,
			Status:    domain.TaskRunning,
			StartedAt: time.Now(),
		},
		cancel: cancel,
	}

	r.mu.Lock()
	r.tasks[entry.task.ID] = entry
	r.mu.Unlock()

	return &TaskHandle{registry: r, id: entry.task.ID, ctx: ctx}
}

// Get returns a snapshot of the task, or domain.ErrTaskNotFound.
func (r *TaskRegistry) Get(taskID string) (*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.tasks[taskID]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	snapshot := entry.task
	return &snapshot, nil
}

// Cancel requests cooperative cancellation. Cancelling a task that has
// already finished is a no-op.
func (r *TaskRegistry) Cancel(taskID string) error {
	r.mu.RLock()
	entry, ok := r.tasks[taskID]
	r.mu.RUnlock()

	if !ok {
		return domain.ErrTaskNotFound
	}
	entry.cancel()
	return nil
}

// Running reports whether the library has a task of the given kind that
// has not reached a terminal state.
func (r *TaskRegistry) Running(kind, library string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, entry := range r.tasks {
		if entry.task.Kind == kind && entry.task.Library == library && !entry.task.Status.Terminal() {
			return true
		}
	}
	return false
}

// TaskHandle is the worker-side view of one task.
type TaskHandle struct {
	registry *TaskRegistry
	id       string
	ctx      context.Context
}

// ID returns the task id.
func (h *TaskHandle) ID() string { return h.id }

// Ctx returns the cancellation context the worker polls between
// documents and batches.
func (h *TaskHandle) Ctx() context.Context { return h.ctx }

// Stage records a build-phase transition and resets the progress
// counters. Stage changes bypass the progress throttle.
func (h *TaskHandle) Stage(stage domain.BuildStage, total int) {
	h.mutate(func(t *domain.Task) {
		t.Stage = stage
		t.Done = 0
		t.Total = total
		t.Detail = ""
	}, false)
}

// Progress updates the counters for the current stage, throttled to one
// visible update per second. The final update of a stage (done == total)
// always lands.
func (h *TaskHandle) Progress(done int, detail string) {
	h.registry.mu.Lock()
	defer h.registry.mu.Unlock()

	entry, ok := h.registry.tasks[h.id]
	if !ok {
		return
	}
	final := entry.task.Total > 0 && done >= entry.task.Total
	if !final && time.Since(entry.lastUpdate) < progressInterval {
		return
	}
	entry.lastUpdate = time.Now()
	entry.task.Done = done
	entry.task.Detail = detail
}

// Finish marks the task done.
func (h *TaskHandle) Finish() {
	h.mutate(func(t *domain.Task) {
		t.Status = domain.TaskDone
		t.Stage = domain.StageDone
		t.EndedAt = time.Now()
	}, true)
}

// Fail marks the task failed with the error message.
func (h *TaskHandle) Fail(err error) {
	h.mutate(func(t *domain.Task) {
		t.Status = domain.TaskFailed
		t.Error = err.Error()
		t.EndedAt = time.Now()
	}, true)
}

// Cancelled marks the task canceled.
func (h *TaskHandle) Cancelled() {
	h.mutate(func(t *domain.Task) {
		t.Status = domain.TaskCanceled
		t.EndedAt = time.Now()
	}, true)
}

func (h *TaskHandle) mutate(fn func(*domain.Task), release bool) {
	h.registry.mu.Lock()
	defer h.registry.mu.Unlock()

	entry, ok := h.registry.tasks[h.id]
	if !ok || entry.task.Status.Terminal() {
		return
	}
	fn(&entry.task)
	if release {
		entry.cancel()
	}
}
