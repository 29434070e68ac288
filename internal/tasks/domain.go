package tasks

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/taskhub/taskhub/internal/shared"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Priority ranks tasks.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

var (
	// ErrNotFound is returned for unknown or unparsable task ids.
	ErrNotFound = fmt.Errorf("task %w", shared.ErrNotFound)
	// ErrForbidden is returned when the caller neither owns nor is assigned the task.
	ErrForbidden = shared.ErrForbidden
)

// Task is the stored record.
type Task struct {
	ID          uuid.UUID
	Title       string
	Description string
	Status      Status
	Priority    Priority
	DueDate     *time.Time
	Tags        []string
	AssignedTo  uuid.UUID
	CreatedBy   uuid.UUID
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Person is the denormalized user reference embedded in TaskView.
type Person struct {
	ID    uuid.UUID `json:"_id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// TaskView is the client-visible task with assignee and creator resolved.
type TaskView struct {
	ID          uuid.UUID  `json:"_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"dueDate"`
	Tags        []string   `json:"tags"`
	AssignedTo  Person     `json:"assignedTo"`
	CreatedBy   Person     `json:"createdBy"`
	CompletedAt *time.Time `json:"completedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// OwnedBy reports whether id may read or write the task.
func (v TaskView) OwnedBy(id uuid.UUID) bool {
	return v.AssignedTo.ID == id || v.CreatedBy.ID == id
}

// Patch is a validated partial update. Nil fields stay untouched.
type Patch struct {
	Title        *string
	Description  *string
	Status       *Status
	Priority     *Priority
	DueDate      *time.Time
	ClearDueDate bool
	Tags         []string
	SetTags      bool
	// CompletedAt is applied together with Status: the stamp when Status is
	// completed, nil otherwise.
	CompletedAt *time.Time
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil && p.Priority == nil &&
		p.DueDate == nil && !p.ClearDueDate && !p.SetTags
}

// ListQuery filters a task listing. Owner is always applied.
type ListQuery struct {
	Owner    uuid.UUID
	Status   Status
	Priority Priority
	Search   string
	Page     int
	Limit    int
}

// ListResult is one page of tasks.
type ListResult struct {
	Tasks      []TaskView        `json:"tasks"`
	Pagination shared.Pagination `json:"pagination"`
}

// Bucket is one group of an aggregate.
type Bucket struct {
	ID    string `json:"_id"`
	Count int    `json:"count"`
}

// Stats summarises the tasks assigned to one user.
type Stats struct {
	StatusStats   []Bucket `json:"statusStats"`
	PriorityStats []Bucket `json:"priorityStats"`
	OverdueTasks  int      `json:"overdueTasks"`
	TotalTasks    int      `json:"totalTasks"`
}
