package model

import "time"

type TaskAction string

const (
	TaskActionReceive  TaskAction = "receive"
	TaskActionComplete TaskAction = "complete"
)

// transitions is the lifecycle graph driven by the assignee.
// completed has no outgoing edges.
var transitions = map[TaskStatus]map[TaskAction]TaskStatus{
	TaskStatusPending: {
		TaskActionReceive: TaskStatusWorkingOn,
	},
	TaskStatusWorkingOn: {
		TaskActionComplete: TaskStatusCompleted,
	},
	TaskStatusOverdue: {
		TaskActionComplete: TaskStatusCompleted,
	},
}

// overdueFrom lists the statuses that turn overdue once the deadline passes.
var overdueFrom = map[TaskStatus]bool{
	TaskStatusPending:   true,
	TaskStatusWorkingOn: true,
}

func NextStatus(from TaskStatus, action TaskAction) (TaskStatus, error) {
	to, ok := transitions[from][action]
	if !ok {
		return "", &InvalidTransitionError{Current: from, Action: action}
	}
	return to, nil
}

// IsOverdueAt reports whether the task must be coerced to overdue at now.
func (t *Task) IsOverdueAt(now time.Time) bool {
	return overdueFrom[t.Status] && now.After(t.Deadline)
}

// CoerceOverdue moves the task to overdue when its deadline has passed and
// reports whether the status changed.
func (t *Task) CoerceOverdue(now time.Time) bool {
	if !t.IsOverdueAt(now) {
		return false
	}
	t.Status = TaskStatusOverdue
	t.UpdatedAt = now
	return true
}

// Apply performs a lifecycle action. The caller is expected to have coerced
// overdue first.
func (t *Task) Apply(action TaskAction, now time.Time) error {
	to, err := NextStatus(t.Status, action)
	if err != nil {
		return err
	}
	t.Status = to
	t.UpdatedAt = now
	if to == TaskStatusCompleted {
		t.CompletedAt = now
	} else {
		t.CompletedAt = time.Time{}
	}
	return nil
}

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
