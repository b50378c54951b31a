package repository

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/veranemoloko/media-downloader/internal/domain"
	errpkg "github.com/veranemoloko/media-downloader/internal/errors"
)

// TaskRegistry is the in-memory table of tasks used for progress polling.
// Stored records are never mutated in place: Update swaps in a modified copy,
// so a reader always sees a whole snapshot.
type TaskRegistry struct {
	mu    sync.RWMutex
	tasks map[string]*domain.Task
	now   func() time.Time
}

// NewTaskRegistry creates an empty registry.
func NewTaskRegistry() *TaskRegistry {
	return &TaskRegistry{
		tasks: make(map[string]*domain.Task),
		now:   time.Now,
	}
}

// Create stores a copy of task, replacing any record with the same ID.
func (r *TaskRegistry) Create(task *domain.Task) {
	snapshot := *task

	r.mu.Lock()
	r.tasks[snapshot.ID] = &snapshot
	r.mu.Unlock()

	slog.Debug("task registered", "task_id", snapshot.ID)
}

// Get returns a snapshot of the task, or the not_found sentinel for unknown IDs.
func (r *TaskRegistry) Get(id string) domain.Task {
	r.mu.RLock()
	task, exists := r.tasks[id]
	r.mu.RUnlock()

	if !exists {
		return domain.NotFoundTask(id)
	}
	return *task
}

// Update applies mutate to a copy of the task and publishes the result atomically.
func (r *TaskRegistry) Update(id string, mutate func(*domain.Task)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.tasks[id]
	if !exists {
		return fmt.Errorf("update %s: %w", id, errpkg.ErrTaskNotFound)
	}

	next := *current
	mutate(&next)
	next.UpdatedAt = r.now()
	r.tasks[id] = &next
	return nil
}

// Sweep drops terminal tasks created more than maxAge ago and returns how many were removed.
func (r *TaskRegistry) Sweep(maxAge time.Duration) int {
	cutoff := r.now().Add(-maxAge)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, task := range r.tasks {
		if task.Status.IsTerminal() && task.CreatedAt.Before(cutoff) {
			delete(r.tasks, id)
			removed++
		}
	}

	if removed > 0 {
		slog.Info("expired tasks swept", "removed", removed, "remaining", len(r.tasks))
	}
	return removed
}

// Len returns the number of tracked tasks.
func (r *TaskRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}
