// Package board keeps the client's snapshot of the user's tasks. Every
// mutation goes to the backend first, is applied to the local snapshot, and
// is then followed by a full refetch so derived data (stats, server-side
// defaults) catches up.
package board

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/marcus/taskflow/internal/api"
	"github.com/marcus/taskflow/internal/input"
	"github.com/marcus/taskflow/internal/models"
)

// Messages stored in Err after a failed operation.
const (
	ErrLoad     = "Failed to load tasks. Please try again."
	ErrAdd      = "Failed to add task. Please try again."
	ErrDelete   = "Failed to delete task. Please try again."
	ErrStatus   = "Failed to update task status. Please try again."
	ErrPriority = "Failed to update task priority. Please try again."
	ErrSave     = "Failed to update task. Please try again."
)

// TaskClient is the part of *api.Client the board uses.
type TaskClient interface {
	ListTasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error)
	CreateTask(ctx context.Context, in models.TaskInput) (*api.TaskResponse, error)
	UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (*api.TaskResponse, error)
	UpdateTaskStatus(ctx context.Context, id string, status models.Status) (*api.TaskResponse, error)
	DeleteTask(ctx context.Context, id string) (*api.MessageResponse, error)
}

// Board holds the task snapshot and the last operation error.
type Board struct {
	client TaskClient

	mu      sync.Mutex
	tasks   []models.Task
	err     string
	loading bool
}

// New returns an empty board. Call Refresh to load tasks.
func New(client TaskClient) *Board {
	return &Board{client: client, tasks: []models.Task{}}
}

// Tasks returns a copy of the snapshot.
func (b *Board) Tasks() []models.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Task(nil), b.tasks...)
}

// Task returns the task with id from the snapshot.
func (b *Board) Task(id string) (models.Task, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i := b.index(id); i >= 0 {
		return b.tasks[i], true
	}
	return models.Task{}, false
}

// Stats counts the snapshot by status.
func (b *Board) Stats() models.TaskStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return models.ComputeStats(b.tasks)
}

// Err returns the last error message, or "".
func (b *Board) Err() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// ClearErr drops the error message.
func (b *Board) ClearErr() {
	b.mu.Lock()
	b.err = ""
	b.mu.Unlock()
}

// Loading reports whether a refresh or mutation is in flight.
func (b *Board) Loading() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loading
}

func (b *Board) index(id string) int {
	for i, t := range b.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (b *Board) setLoading(v bool) {
	b.mu.Lock()
	b.loading = v
	b.mu.Unlock()
}

func (b *Board) fail(msg string, err error) error {
	slog.Debug("board: operation failed", "msg", msg, "err", err)
	b.mu.Lock()
	b.err = msg
	b.mu.Unlock()
	return err
}

// Refresh replaces the snapshot with the backend's task list. On failure the
// old snapshot is kept.
func (b *Board) Refresh(ctx context.Context) error {
	b.mu.Lock()
	b.loading = true
	b.err = ""
	b.mu.Unlock()
	defer b.setLoading(false)

	tasks, err := b.client.ListTasks(ctx, models.TaskFilter{})
	if err != nil {
		return b.fail(ErrLoad, err)
	}
	b.mu.Lock()
	b.tasks = tasks
	b.mu.Unlock()
	return nil
}

// Add creates a task. A blank title is rejected before any request.
func (b *Board) Add(ctx context.Context, in models.TaskInput) (*models.Task, error) {
	if err := input.ValidateTitle(in.Title); err != nil {
		return nil, err
	}
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}
	if in.Category == "" {
		in.Category = models.DefaultCategory
	}

	b.setLoading(true)
	resp, err := b.client.CreateTask(ctx, in)
	b.setLoading(false)
	if err != nil {
		return nil, b.fail(ErrAdd, err)
	}

	b.mu.Lock()
	b.tasks = append(b.tasks, resp.Task)
	b.mu.Unlock()

	task := resp.Task
	return &task, b.Refresh(ctx)
}

// Delete removes a task.
func (b *Board) Delete(ctx context.Context, id string) error {
	b.setLoading(true)
	_, err := b.client.DeleteTask(ctx, id)
	b.setLoading(false)
	if err != nil {
		return b.fail(ErrDelete, err)
	}

	b.mu.Lock()
	if i := b.index(id); i >= 0 {
		b.tasks = append(b.tasks[:i:i], b.tasks[i+1:]...)
	}
	b.mu.Unlock()
	return b.Refresh(ctx)
}

// ToggleStatus flips a task between completed and pending.
func (b *Board) ToggleStatus(ctx context.Context, id string) error {
	task, ok := b.Task(id)
	if !ok {
		return b.fail(ErrStatus, fmt.Errorf("task %s not on board", id))
	}
	next := models.StatusCompleted
	if task.Status == models.StatusCompleted {
		next = models.StatusPending
	}
	if _, err := b.client.UpdateTaskStatus(ctx, id, next); err != nil {
		return b.fail(ErrStatus, err)
	}

	b.edit(id, models.TaskPatch{Status: &next})
	return b.Refresh(ctx)
}

// SetPriority changes a task's priority. The local edit is not followed by a
// refetch since priority does not affect the stats.
func (b *Board) SetPriority(ctx context.Context, id string, p models.Priority) error {
	if !p.IsValid() {
		return b.fail(ErrPriority, fmt.Errorf("invalid priority %q", p))
	}
	if _, err := b.client.UpdateTask(ctx, id, models.TaskPatch{Priority: &p}); err != nil {
		return b.fail(ErrPriority, err)
	}
	b.edit(id, models.TaskPatch{Priority: &p})
	return nil
}

// Save writes an edited task back in full.
func (b *Board) Save(ctx context.Context, task models.Task) error {
	if err := input.ValidateTitle(task.Title); err != nil {
		return err
	}
	b.setLoading(true)
	_, err := b.client.UpdateTask(ctx, task.ID, models.PatchFrom(task))
	b.setLoading(false)
	if err != nil {
		return b.fail(ErrSave, err)
	}

	b.mu.Lock()
	if i := b.index(task.ID); i >= 0 {
		b.tasks[i] = task
	}
	b.mu.Unlock()
	return b.Refresh(ctx)
}

func (b *Board) edit(id string, patch models.TaskPatch) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i := b.index(id); i >= 0 {
		b.tasks[i] = patch.Apply(b.tasks[i])
	}
}
