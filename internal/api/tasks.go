package api

import (
	"context"
	"encoding/json"

	"github.com/marcus/taskflow/internal/gateway"
	"github.com/marcus/taskflow/internal/models"
)

// TaskResponse wraps a single task.
type TaskResponse struct {
	Task    models.Task `json:"task"`
	Message string      `json:"message,omitempty"`
}

// TaskListResponse is the response from GET /tasks.
type TaskListResponse struct {
	Tasks []models.Task `json:"tasks"`
	Count int           `json:"count,omitempty"`
}

// filterQuery renders f in the fixed order status, priority, category,
// search. Empty fields are omitted.
func filterQuery(f models.TaskFilter) gateway.Query {
	var q gateway.Query
	if f.Status != "" {
		q = q.Add("status", string(f.Status))
	}
	if f.Priority != "" {
		q = q.Add("priority", string(f.Priority))
	}
	if f.Category != "" {
		q = q.Add("category", f.Category)
	}
	if f.Search != "" {
		q = q.Add("search", f.Search)
	}
	return q
}

// ListTasks fetches the task collection, optionally filtered server-side.
func (c *Client) ListTasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	var resp TaskListResponse
	if err := c.gw.Get(ctx, "/tasks", filterQuery(filter), &resp); err != nil {
		return nil, err
	}
	if resp.Tasks == nil {
		return []models.Task{}, nil
	}
	return resp.Tasks, nil
}

// GetTask fetches one task.
func (c *Client) GetTask(ctx context.Context, id string) (*models.Task, error) {
	var resp TaskResponse
	if err := c.gw.Get(ctx, taskPath(id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Task, nil
}

// CreateTask creates a task and returns it as stored by the backend.
func (c *Client) CreateTask(ctx context.Context, in models.TaskInput) (*TaskResponse, error) {
	var resp TaskResponse
	if err := c.gw.Post(ctx, "/tasks", in, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateTask sends a partial update.
func (c *Client) UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (*TaskResponse, error) {
	var resp TaskResponse
	if err := c.gw.Put(ctx, taskPath(id), patch, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, id string) (*MessageResponse, error) {
	var resp MessageResponse
	if err := c.gw.Delete(ctx, taskPath(id), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateTaskStatus sets a task's status.
func (c *Client) UpdateTaskStatus(ctx context.Context, id string, status models.Status) (*TaskResponse, error) {
	body := map[string]models.Status{"status": status}
	var resp TaskResponse
	if err := c.gw.Patch(ctx, taskPath(id)+"/status", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TaskStats returns the backend's aggregate statistics as served.
func (c *Client) TaskStats(ctx context.Context) (json.RawMessage, error) {
	var resp json.RawMessage
	if err := c.gw.Get(ctx, "/tasks/stats/overview", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}
