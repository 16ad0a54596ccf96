package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/agalitsyn/taskboard/internal/model"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func (plainHasher) Verify(password, hash string) bool {
	return hash == "hashed:"+password
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []model.TaskEvent
	err    error
}

func (n *recordingNotifier) NotifyTask(_ context.Context, event model.TaskEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

func (n *recordingNotifier) kinds() []model.TaskEventKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	kinds := make([]model.TaskEventKind, 0, len(n.events))
	for _, e := range n.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

type memUserRepo struct {
	mu    sync.Mutex
	order []string
	users map[string]model.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[string]model.User{}}
}

func (r *memUserRepo) CreateUser(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, user.Email) {
			return model.ErrConflict
		}
	}
	r.users[user.ID] = *user
	r.order = append(r.order, user.ID)
	return nil
}

func (r *memUserRepo) FetchUserByID(_ context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, model.ErrNotFound)
	}
	return &u, nil
}

func (r *memUserRepo) FetchUserByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, model.ErrNotFound
}

func (r *memUserRepo) FetchUsers(_ context.Context) ([]model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var users []model.User
	for i := len(r.order) - 1; i >= 0; i-- {
		if u, ok := r.users[r.order[i]]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

func (r *memUserRepo) FetchUsersByIDs(_ context.Context, ids []string) ([]model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var users []model.User
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

func (r *memUserRepo) UpdateUser(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return model.ErrNotFound
	}
	for id, u := range r.users {
		if id != user.ID && strings.EqualFold(u.Email, user.Email) {
			return model.ErrConflict
		}
	}
	r.users[user.ID] = *user
	return nil
}

func (r *memUserRepo) DeleteUser(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return model.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *memUserRepo) CreateFirstUser(_ context.Context, user *model.User) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.users) > 0 {
		return false, nil
	}
	r.users[user.ID] = *user
	r.order = append(r.order, user.ID)
	return true, nil
}

type memTaskRepo struct {
	mu    sync.Mutex
	order []string
	tasks map[string]model.Task

	// beforeStatusUpdate runs ahead of each compare-and-swap, outside the lock.
	beforeStatusUpdate func(task *model.Task)
}

func newMemTaskRepo() *memTaskRepo {
	return &memTaskRepo{tasks: map[string]model.Task{}}
}

func (r *memTaskRepo) CreateTask(_ context.Context, task *model.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[task.ID] = *task
	r.order = append(r.order, task.ID)
	return nil
}

func (r *memTaskRepo) FetchTaskByID(_ context.Context, id string) (*model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}
	return &t, nil
}

func (r *memTaskRepo) FilterTasks(_ context.Context, filter model.TaskFilter) ([]model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var tasks []model.Task
	for i := len(r.order) - 1; i >= 0; i-- {
		t, ok := r.tasks[r.order[i]]
		if !ok {
			continue
		}
		if filter.AssignedTo != "" && t.AssignedTo != filter.AssignedTo {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, t.Status) {
			continue
		}
		if !filter.DeadlineBefore.IsZero() && !t.Deadline.Before(filter.DeadlineBefore) {
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (r *memTaskRepo) UpdateTask(_ context.Context, task *model.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tasks[task.ID]
	if !ok {
		return model.ErrNotFound
	}
	stored.Title = task.Title
	stored.Description = task.Description
	stored.Deadline = task.Deadline
	stored.Priority = task.Priority
	stored.Category = task.Category
	stored.Notes = task.Notes
	stored.UpdatedAt = task.UpdatedAt
	r.tasks[task.ID] = stored
	return nil
}

func (r *memTaskRepo) UpdateTaskStatus(_ context.Context, task *model.Task, expected model.TaskStatus) error {
	if r.beforeStatusUpdate != nil {
		r.beforeStatusUpdate(task)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tasks[task.ID]
	if !ok {
		return model.ErrNotFound
	}
	if stored.Status != expected {
		return model.ErrConflict
	}
	stored.Status = task.Status
	stored.CompletedAt = task.CompletedAt
	stored.UpdatedAt = task.UpdatedAt
	r.tasks[task.ID] = stored
	return nil
}

func (r *memTaskRepo) RemoveTask(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[id]; !ok {
		return model.ErrNotFound
	}
	delete(r.tasks, id)
	return nil
}

// setStatus changes a stored task behind the service's back.
func (r *memTaskRepo) setStatus(id string, status model.TaskStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.tasks[id]
	t.Status = status
	r.tasks[id] = t
}

func (r *memTaskRepo) stored(id string) model.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tasks[id]
}

func containsStatus(statuses []model.TaskStatus, s model.TaskStatus) bool {
	for _, st := range statuses {
		if st == s {
			return true
		}
	}
	return false
}

type failingTaskRepo struct {
	*memTaskRepo
}

var errStoreDown = errors.New("store is down")

func (failingTaskRepo) FilterTasks(context.Context, model.TaskFilter) ([]model.Task, error) {
	return nil, errStoreDown
}
