package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Status represents task status
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// Priority represents task priority
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium" // default
	PriorityHigh   Priority = "high"
)

// DefaultCategory is used for new tasks when none is given.
const DefaultCategory = "work"

// Statuses lists all task statuses in display order.
var Statuses = []Status{StatusPending, StatusInProgress, StatusCompleted}

// Priorities lists all priorities from lowest to highest.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// IsValid reports whether p is a known priority.
func (p Priority) IsValid() bool {
	for _, v := range Priorities {
		if p == v {
			return true
		}
	}
	return false
}

// NormalizeStatus accepts common spellings ("in_progress", "done") and
// returns the wire value.
func NormalizeStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending", "todo", "open":
		return StatusPending, nil
	case "in-progress", "in_progress", "inprogress", "started":
		return StatusInProgress, nil
	case "completed", "complete", "done", "closed":
		return StatusCompleted, nil
	}
	return "", fmt.Errorf("invalid status %q (use pending, in-progress or completed)", s)
}

// NormalizePriority accepts a priority name case-insensitively.
func NormalizePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", fmt.Errorf("invalid priority %q (use low, medium or high)", s)
	}
	return p, nil
}

// Raise returns the next higher priority, or p if already highest.
func (p Priority) Raise() Priority {
	switch p {
	case PriorityLow:
		return PriorityMedium
	case PriorityMedium:
		return PriorityHigh
	}
	return PriorityHigh
}

// Lower returns the next lower priority, or p if already lowest.
func (p Priority) Lower() Priority {
	switch p {
	case PriorityHigh:
		return PriorityMedium
	case PriorityMedium:
		return PriorityLow
	}
	return PriorityLow
}

// Task represents a task as served by the backend
type Task struct {
	ID          string     `json:"_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	Category    string     `json:"category,omitempty"`
	DueDate     string     `json:"dueDate,omitempty"`
	Completed   bool       `json:"completed,omitempty"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// UnmarshalJSON accepts the task id as either "_id" or "id".
func (t *Task) UnmarshalJSON(data []byte) error {
	type plain Task
	var aux struct {
		plain
		AltID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*t = Task(aux.plain)
	if t.ID == "" && len(aux.AltID) > 0 {
		var s string
		if err := json.Unmarshal(aux.AltID, &s); err == nil {
			t.ID = s
		} else {
			t.ID = strings.Trim(string(aux.AltID), `"`)
		}
	}
	return nil
}

// TaskInput is the body for creating a task.
type TaskInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority,omitempty"`
	Category    string   `json:"category,omitempty"`
	DueDate     string   `json:"dueDate,omitempty"`
	Status      Status   `json:"status,omitempty"`
}

// TaskPatch is a partial task update; nil fields are not sent.
type TaskPatch struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Status      *Status   `json:"status,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
	Category    *string   `json:"category,omitempty"`
	DueDate     *string   `json:"dueDate,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil &&
		p.Priority == nil && p.Category == nil && p.DueDate == nil
}

// Apply returns a copy of t with the patch applied.
func (p TaskPatch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
		t.Completed = *p.Status == StatusCompleted
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	return t
}

// PatchFrom builds a full-replacement patch from an edited task.
func PatchFrom(t Task) TaskPatch {
	return TaskPatch{
		Title:       &t.Title,
		Description: &t.Description,
		Status:      &t.Status,
		Priority:    &t.Priority,
		Category:    &t.Category,
		DueDate:     &t.DueDate,
	}
}

// TaskFilter holds the server-side filters for listing tasks.
type TaskFilter struct {
	Status   Status
	Priority Priority
	Category string
	Search   string
}

// TaskStats summarizes a task snapshot
type TaskStats struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	InProgress int `json:"inProgress"`
	Pending    int `json:"pending"`
}

// ComputeStats counts tasks by status.
func ComputeStats(tasks []Task) TaskStats {
	stats := TaskStats{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case StatusCompleted:
			stats.Completed++
		case StatusInProgress:
			stats.InProgress++
		case StatusPending:
			stats.Pending++
		}
	}
	return stats
}
