package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/google/uuid"

	"github.com/agalitsyn/taskboard/internal/model"
	"github.com/agalitsyn/taskboard/internal/policy"
	"github.com/agalitsyn/taskboard/internal/validation"
)

// maxCoerceAttempts bounds the retries of an overdue write that keeps losing
// the status compare-and-swap to concurrent writers.
const maxCoerceAttempts = 3

// UserDirectory is the part of the user directory the task workflow relies on.
type UserDirectory interface {
	UserExists(ctx context.Context, id string) (bool, error)
	IsActive(ctx context.Context, id string) (bool, error)
	RoleOf(ctx context.Context, id string) (model.Role, error)
	FetchUserRefs(ctx context.Context, ids []string) (map[string]model.UserRef, error)
}

type Notifier interface {
	NotifyTask(ctx context.Context, event model.TaskEvent) error
}

// Length limits mirror model.TitleMaxLen and friends.
type CreateTaskInput struct {
	Title       string         `validate:"required,max=100"`
	Description string         `validate:"required,max=500"`
	AssignedTo  string         `validate:"required"`
	Deadline    time.Time      `validate:"required"`
	Priority    model.Priority `validate:"oneof=low medium high urgent"`
	Category    string         `validate:"max=50"`
	Notes       string         `validate:"max=200"`
}

// UpdateTaskInput holds the fields to change; nil means keep. Assignment and
// status are not editable here.
type UpdateTaskInput struct {
	Title       *string         `validate:"omitempty,max=100"`
	Description *string         `validate:"omitempty,max=500"`
	Deadline    *time.Time
	Priority    *model.Priority `validate:"omitempty,oneof=low medium high urgent"`
	Category    *string         `validate:"omitempty,max=50"`
	Notes       *string         `validate:"omitempty,max=200"`
}

func (in UpdateTaskInput) trimmed() UpdateTaskInput {
	in.Title = trimPtr(in.Title)
	in.Description = trimPtr(in.Description)
	in.Category = trimPtr(in.Category)
	in.Notes = trimPtr(in.Notes)
	return in
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

// PopulatedTask is a task with its user references resolved for display.
// A reference is nil when the user no longer exists.
type PopulatedTask struct {
	model.Task
	AssignedToUser *model.UserRef
	AssignedByUser *model.UserRef
}

type TaskStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	WorkingOn int `json:"workingOn"`
	Completed int `json:"completed"`
	Overdue   int `json:"overdue"`
}

type TaskService struct {
	tasks    model.TaskRepository
	users    UserDirectory
	clock    model.Clock
	notifier Notifier
	log      lgr.L
	newID    func() string
}

func NewTaskService(tasks model.TaskRepository, users UserDirectory, clock model.Clock, notifier Notifier, log lgr.L) *TaskService {
	return &TaskService{
		tasks:    tasks,
		users:    users,
		clock:    clock,
		notifier: notifier,
		log:      log,
		newID:    uuid.NewString,
	}
}

func (s *TaskService) Create(ctx context.Context, actor model.Actor, in CreateTaskInput) (*PopulatedTask, error) {
	if policy.Decide(actor, policy.ActionCreate, nil) == policy.Deny {
		return nil, fmt.Errorf("create task: %w", model.ErrAccessDenied)
	}

	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.AssignedTo = strings.TrimSpace(in.AssignedTo)
	in.Category = strings.TrimSpace(in.Category)
	in.Notes = strings.TrimSpace(in.Notes)
	if in.Priority == "" {
		in.Priority = model.PriorityMedium
	}

	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if !in.Deadline.After(now) {
		return nil, model.ErrInvalidDeadline
	}

	if err := s.checkAssignee(ctx, in.AssignedTo); err != nil {
		return nil, err
	}
	if err := s.checkAssigner(ctx, actor); err != nil {
		return nil, err
	}

	task := model.NewTask(s.newID(), in.Title, in.Description, in.AssignedTo, actor.ID, in.Deadline.UTC(), now)
	task.Priority = in.Priority
	task.Category = in.Category
	task.Notes = in.Notes

	if err := s.tasks.CreateTask(ctx, task); err != nil {
		return nil, err
	}
	s.log.Logf("[INFO] task id=%s assigned to id=%s by id=%s", task.ID, task.AssignedTo, actor.ID)

	populated, err := s.populateOne(ctx, *task)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, model.TaskEventAssigned, populated)
	return populated, nil
}

func (s *TaskService) Update(ctx context.Context, actor model.Actor, id string, in UpdateTaskInput) (*PopulatedTask, error) {
	if policy.Decide(actor, policy.ActionUpdate, nil) == policy.Deny {
		return nil, fmt.Errorf("update task %s: %w", id, model.ErrAccessDenied)
	}

	task, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if policy.Decide(actor, policy.ActionUpdate, task) == policy.Deny {
		return nil, fmt.Errorf("update task %s: %w", id, model.ErrAccessDenied)
	}

	in = in.trimmed()
	verr := model.NewValidationError()
	if in.Title != nil && *in.Title == "" {
		verr.Add("title", "cannot be empty")
	}
	if in.Description != nil && *in.Description == "" {
		verr.Add("description", "cannot be empty")
	}
	if in.Deadline != nil && in.Deadline.IsZero() {
		verr.Add("deadline", "cannot be empty")
	}
	if err := validation.Collect(verr, in); err != nil {
		return nil, err
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	if in.Title != nil {
		task.Title = *in.Title
	}
	if in.Description != nil {
		task.Description = *in.Description
	}
	if in.Priority != nil {
		task.Priority = *in.Priority
	}
	if in.Category != nil {
		task.Category = *in.Category
	}
	if in.Notes != nil {
		task.Notes = *in.Notes
	}

	now := s.clock.Now()
	if in.Deadline != nil {
		if !in.Deadline.After(now) {
			return nil, model.ErrInvalidDeadline
		}
		task.Deadline = in.Deadline.UTC()
	}
	task.UpdatedAt = now

	if err := s.tasks.UpdateTask(ctx, task); err != nil {
		return nil, err
	}
	s.log.Logf("[DEBUG] task id=%s updated by id=%s", task.ID, actor.ID)
	return s.populateOne(ctx, *task)
}

func (s *TaskService) Delete(ctx context.Context, actor model.Actor, id string) error {
	if policy.Decide(actor, policy.ActionDelete, nil) == policy.Deny {
		return fmt.Errorf("delete task %s: %w", id, model.ErrAccessDenied)
	}

	task, err := s.tasks.FetchTaskByID(ctx, id)
	if err != nil {
		return err
	}
	if policy.Decide(actor, policy.ActionDelete, task) == policy.Deny {
		return fmt.Errorf("delete task %s: %w", id, model.ErrAccessDenied)
	}

	if err := s.tasks.RemoveTask(ctx, id); err != nil {
		return err
	}
	s.log.Logf("[INFO] task id=%s deleted by id=%s", id, actor.ID)
	return nil
}

// Transition runs a lifecycle action on behalf of the assignee.
func (s *TaskService) Transition(ctx context.Context, actor model.Actor, id string, action model.TaskAction) (*PopulatedTask, error) {
	task, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if policy.Decide(actor, policy.ForTaskAction(action), task) == policy.Deny {
		return nil, fmt.Errorf("%s task %s: %w", action, id, model.ErrAccessDenied)
	}

	prev := task.Status
	if err := task.Apply(action, s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.tasks.UpdateTaskStatus(ctx, task, prev); err != nil {
		return nil, err
	}
	s.log.Logf("[INFO] task id=%s %s -> %s by id=%s", task.ID, prev, task.Status, actor.ID)

	populated, err := s.populateOne(ctx, *task)
	if err != nil {
		return nil, err
	}
	switch action {
	case model.TaskActionReceive:
		s.notify(ctx, model.TaskEventReceived, populated)
	case model.TaskActionComplete:
		s.notify(ctx, model.TaskEventCompleted, populated)
	}
	return populated, nil
}

func (s *TaskService) Get(ctx context.Context, actor model.Actor, id string) (*PopulatedTask, error) {
	task, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if policy.Decide(actor, policy.ActionView, task) == policy.Deny {
		return nil, fmt.Errorf("view task %s: %w", id, model.ErrAccessDenied)
	}
	return s.populateOne(ctx, *task)
}

// List returns every task for admins and only the actor's own tasks for
// everybody else. Scoping happens in the query, not after it.
func (s *TaskService) List(ctx context.Context, actor model.Actor) ([]PopulatedTask, error) {
	if policy.Decide(actor, policy.ActionList, nil) == policy.Deny {
		return nil, fmt.Errorf("list tasks: %w", model.ErrAccessDenied)
	}

	filter := model.TaskFilter{AssignedTo: actor.ID}
	if policy.Decide(actor, policy.ActionListAll, nil) == policy.Allow {
		filter = model.TaskFilter{}
	}
	return s.list(ctx, filter)
}

// ListByAssignee is the admin view of a single user's tasks.
func (s *TaskService) ListByAssignee(ctx context.Context, actor model.Actor, userID string) ([]PopulatedTask, error) {
	if policy.Decide(actor, policy.ActionListAll, nil) == policy.Deny {
		return nil, fmt.Errorf("list tasks of %s: %w", userID, model.ErrAccessDenied)
	}
	return s.list(ctx, model.TaskFilter{AssignedTo: userID})
}

func (s *TaskService) Stats(ctx context.Context, actor model.Actor) (TaskStats, error) {
	tasks, err := s.List(ctx, actor)
	if err != nil {
		return TaskStats{}, err
	}

	stats := TaskStats{Total: len(tasks)}
	for i := range tasks {
		switch tasks[i].Status {
		case model.TaskStatusPending:
			stats.Pending++
		case model.TaskStatusWorkingOn:
			stats.WorkingOn++
		case model.TaskStatusCompleted:
			stats.Completed++
		case model.TaskStatusOverdue:
			stats.Overdue++
		}
	}
	return stats, nil
}

// SweepOverdue persists the overdue coercion for every expired task at once.
// Reads coerce lazily anyway; this only brings the stored state up to date.
func (s *TaskService) SweepOverdue(ctx context.Context) (int, error) {
	tasks, err := s.tasks.FilterTasks(ctx, model.TaskFilter{
		Statuses:       []model.TaskStatus{model.TaskStatusPending, model.TaskStatusWorkingOn},
		DeadlineBefore: s.clock.Now(),
	})
	if err != nil {
		return 0, err
	}

	swept := 0
	for i := range tasks {
		task := &tasks[i]
		if !task.IsOverdueAt(s.clock.Now()) {
			continue
		}
		coerced, err := s.coerce(ctx, task)
		if errors.Is(err, model.ErrNotFound) {
			continue
		}
		if err != nil {
			return swept, err
		}
		if coerced.Status == model.TaskStatusOverdue {
			swept++
		}
	}
	return swept, nil
}

func (s *TaskService) list(ctx context.Context, filter model.TaskFilter) ([]PopulatedTask, error) {
	tasks, err := s.tasks.FilterTasks(ctx, filter)
	if err != nil {
		return nil, err
	}
	kept := make([]model.Task, 0, len(tasks))
	for i := range tasks {
		coerced, err := s.coerce(ctx, &tasks[i])
		if errors.Is(err, model.ErrNotFound) {
			s.log.Logf("[DEBUG] task id=%s deleted while listing", tasks[i].ID)
			continue
		}
		if err != nil {
			return nil, err
		}
		kept = append(kept, *coerced)
	}
	return s.populate(ctx, kept)
}

func (s *TaskService) load(ctx context.Context, id string) (*model.Task, error) {
	task, err := s.tasks.FetchTaskByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.coerce(ctx, task)
}

// coerce applies and persists the overdue rule. A lost compare-and-swap means
// another writer moved the task first, so the fresh copy is re-evaluated.
func (s *TaskService) coerce(ctx context.Context, task *model.Task) (*model.Task, error) {
	for attempt := 1; ; attempt++ {
		prev := task.Status
		if !task.CoerceOverdue(s.clock.Now()) {
			return task, nil
		}

		err := s.tasks.UpdateTaskStatus(ctx, task, prev)
		if err == nil {
			s.log.Logf("[INFO] task id=%s is overdue, was %s", task.ID, prev)
			if populated, perr := s.populateOne(ctx, *task); perr == nil {
				s.notify(ctx, model.TaskEventOverdue, populated)
			}
			return task, nil
		}
		if !errors.Is(err, model.ErrConflict) || attempt >= maxCoerceAttempts {
			return nil, fmt.Errorf("could not mark task %s overdue: %w", task.ID, err)
		}

		s.log.Logf("[DEBUG] task id=%s changed concurrently, reloading", task.ID)
		task, err = s.tasks.FetchTaskByID(ctx, task.ID)
		if err != nil {
			return nil, err
		}
	}
}

func (s *TaskService) checkAssignee(ctx context.Context, id string) error {
	exists, err := s.users.UserExists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("assigned user %s: %w", id, model.ErrNotFound)
	}

	active, err := s.users.IsActive(ctx, id)
	if err != nil {
		return err
	}
	if !active {
		verr := model.NewValidationError()
		verr.Add("assignedTo", "user is inactive")
		return verr
	}
	return nil
}

// checkAssigner re-reads the creating actor from the directory so a task is
// never attributed to a deleted or demoted admin.
func (s *TaskService) checkAssigner(ctx context.Context, actor model.Actor) error {
	role, err := s.users.RoleOf(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return fmt.Errorf("assigning user %s: %w", actor.ID, model.ErrNotFound)
		}
		return err
	}
	if role != model.RoleAdmin {
		return fmt.Errorf("create task: %w", model.ErrAccessDenied)
	}
	return nil
}

func (s *TaskService) populateOne(ctx context.Context, task model.Task) (*PopulatedTask, error) {
	populated, err := s.populate(ctx, []model.Task{task})
	if err != nil {
		return nil, err
	}
	return &populated[0], nil
}

func (s *TaskService) populate(ctx context.Context, tasks []model.Task) ([]PopulatedTask, error) {
	result := make([]PopulatedTask, 0, len(tasks))
	if len(tasks) == 0 {
		return result, nil
	}

	seen := map[string]bool{}
	var ids []string
	for i := range tasks {
		for _, id := range []string{tasks[i].AssignedTo, tasks[i].AssignedBy} {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	refs, err := s.users.FetchUserRefs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("could not populate users: %w", err)
	}

	for i := range tasks {
		p := PopulatedTask{Task: tasks[i]}
		if ref, ok := refs[tasks[i].AssignedTo]; ok {
			p.AssignedToUser = &ref
		}
		if ref, ok := refs[tasks[i].AssignedBy]; ok {
			p.AssignedByUser = &ref
		}
		result = append(result, p)
	}
	return result, nil
}

func (s *TaskService) notify(ctx context.Context, kind model.TaskEventKind, task *PopulatedTask) {
	if s.notifier == nil {
		return
	}
	event := model.TaskEvent{Kind: kind, Task: task.Task, Assignee: task.AssignedToUser}
	if err := s.notifier.NotifyTask(ctx, event); err != nil {
		s.log.Logf("[WARN] could not send %s notification for task id=%s: %v", kind, task.ID, err)
	}
}
