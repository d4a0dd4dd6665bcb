package model

import (
	"time"
)

// Status is the derived state of a task. It is computed from the completion
// flag, the task's dependencies, and timer activity. It is never stored.
type Status string

const (
	StatusDone       Status = "done"
	StatusBlocked    Status = "blocked"
	StatusInProgress Status = "in_progress"
	StatusReady      Status = "ready"
)

// Priority represents task priority level
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ValidPriority reports whether p is one of the known priority levels.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Task represents a unit of work
type Task struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Notes        string     `json:"notes,omitempty"` // Markdown
	Done         bool       `json:"done"`
	Priority     Priority   `json:"priority"`
	ProjectID    *string    `json:"project_id,omitempty"`
	ParentID     *string    `json:"parent_id,omitempty"` // For subtasks
	StartDate    *time.Time `json:"start_date,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Estimate     *int       `json:"estimate,omitempty"` // Seconds
	Quantity     *float64   `json:"quantity,omitempty"`
	Unit         string     `json:"unit,omitempty"`
	Productivity *float64   `json:"productivity,omitempty"` // Units per work hour
	Archived     bool       `json:"archived"`
	Position     int        `json:"position"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	// Loaded relationships (not stored in tasks table)
	Tags      []Tag    `json:"tags,omitempty"`
	DependsOn []string `json:"depends_on,omitempty"` // Task IDs, insertion order
	Project   *Project `json:"project,omitempty"`
}

// Dependency is one edge of the dependency graph: TaskID waits on DependsOnID.
type Dependency struct {
	TaskID      string    `json:"task_id"`
	DependsOnID string    `json:"depends_on_id"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsOverdue returns true if the task is past its due date
func (t *Task) IsOverdue() bool {
	if t.DueDate == nil || t.Done || t.Archived {
		return false
	}
	return time.Now().After(*t.DueDate)
}

// IsDueToday returns true if the task is due today
func (t *Task) IsDueToday() bool {
	if t.DueDate == nil {
		return false
	}
	now := time.Now()
	return t.DueDate.Year() == now.Year() &&
		t.DueDate.YearDay() == now.YearDay()
}

// PriorityWeight returns a numeric weight for sorting by priority
func (t *Task) PriorityWeight() int {
	switch t.Priority {
	case PriorityUrgent:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 2
	}
}
