package model

import (
	"context"
	"time"
)

const (
	TitleMaxLen       = 100
	DescriptionMaxLen = 500
	CategoryMaxLen    = 50
	NotesMaxLen       = 200
)

type Task struct {
	ID          string
	Title       string
	Description string
	AssignedTo  string
	AssignedBy  string
	Deadline    time.Time
	Status      TaskStatus
	Priority    Priority
	Category    string
	Notes       string
	// CompletedAt is zero unless Status is TaskStatusCompleted.
	CompletedAt time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func NewTask(id, title, description, assignedTo, assignedBy string, deadline, now time.Time) *Task {
	return &Task{
		ID:          id,
		Title:       title,
		Description: description,
		AssignedTo:  assignedTo,
		AssignedBy:  assignedBy,
		Deadline:    deadline,
		Status:      TaskStatusPending,
		Priority:    PriorityMedium,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusWorkingOn TaskStatus = "working_on"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusOverdue   TaskStatus = "overdue"
)

var TaskStatuses = []TaskStatus{
	TaskStatusPending,
	TaskStatusWorkingOn,
	TaskStatusCompleted,
	TaskStatusOverdue,
}

func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusWorkingOn, TaskStatusCompleted, TaskStatusOverdue:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type TaskFilter struct {
	AssignedTo     string
	Statuses       []TaskStatus
	DeadlineBefore time.Time
}

// TaskRepository returns tasks ordered by creation time, newest first.
type TaskRepository interface {
	CreateTask(ctx context.Context, task *Task) error
	FetchTaskByID(ctx context.Context, id string) (*Task, error)
	FilterTasks(ctx context.Context, filter TaskFilter) ([]Task, error)
	// UpdateTask writes the editable fields only. Status is left untouched.
	UpdateTask(ctx context.Context, task *Task) error
	// UpdateTaskStatus writes Status, CompletedAt and UpdatedAt if the stored
	// status still equals expected, otherwise it returns ErrConflict.
	UpdateTaskStatus(ctx context.Context, task *Task, expected TaskStatus) error
	RemoveTask(ctx context.Context, id string) error
}

type TaskEventKind string

const (
	TaskEventAssigned  TaskEventKind = "assigned"
	TaskEventReceived  TaskEventKind = "received"
	TaskEventCompleted TaskEventKind = "completed"
	TaskEventOverdue   TaskEventKind = "overdue"
)

type TaskEvent struct {
	Kind     TaskEventKind
	Task     Task
	Assignee *UserRef
}
