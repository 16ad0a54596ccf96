package httpapi

import (
	"strings"
	"time"

	"github.com/agalitsyn/taskboard/internal/app"
	"github.com/agalitsyn/taskboard/internal/model"
)

type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type RegisterRequest struct {
	Name       string `json:"name" validate:"required,max=100"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=6,max=72"`
	Phone      string `json:"phone" validate:"max=50"`
	Department string `json:"department" validate:"max=50"`
	Position   string `json:"position" validate:"max=50"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}

type UserResponse struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Role       model.Role `json:"role"`
	IsActive   bool       `json:"isActive"`
	Phone      string     `json:"phone"`
	Department string     `json:"department"`
	Position   string     `json:"position"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

func newUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Role:       u.Role,
		IsActive:   u.IsActive,
		Phone:      u.Phone,
		Department: u.Department,
		Position:   u.Position,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

type CreateUserRequest struct {
	Name       string `json:"name" validate:"required,max=100"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=6,max=72"`
	Role       string `json:"role" validate:"omitempty,oneof=admin user"`
	IsActive   *bool  `json:"isActive"`
	Phone      string `json:"phone" validate:"max=50"`
	Department string `json:"department" validate:"max=50"`
	Position   string `json:"position" validate:"max=50"`
}

func (r CreateUserRequest) toInput() (app.UserInput, error) {
	in := app.UserInput{
		Name:       r.Name,
		Email:      r.Email,
		Password:   r.Password,
		IsActive:   r.IsActive,
		Phone:      r.Phone,
		Department: r.Department,
		Position:   r.Position,
	}
	if r.Role != "" {
		role, err := parseRole(r.Role)
		if err != nil {
			return in, err
		}
		in.Role = role
	}
	return in, nil
}

// UpdateUserRequest leaves empty strings to the service, which treats an empty
// password as "keep" and an empty name or email as an error.
type UpdateUserRequest struct {
	Name       *string `json:"name" validate:"omitempty,max=100"`
	Email      *string `json:"email"`
	Password   *string `json:"password" validate:"omitempty,max=72"`
	Role       *string `json:"role" validate:"omitempty,oneof=admin user"`
	IsActive   *bool   `json:"isActive"`
	Phone      *string `json:"phone" validate:"omitempty,max=50"`
	Department *string `json:"department" validate:"omitempty,max=50"`
	Position   *string `json:"position" validate:"omitempty,max=50"`
}

func (r UpdateUserRequest) toUpdate() (app.UserUpdate, error) {
	upd := app.UserUpdate{
		Name:       r.Name,
		Email:      r.Email,
		Password:   r.Password,
		IsActive:   r.IsActive,
		Phone:      r.Phone,
		Department: r.Department,
		Position:   r.Position,
	}
	if r.Role != nil {
		role, err := parseRole(*r.Role)
		if err != nil {
			return upd, err
		}
		upd.Role = &role
	}
	return upd, nil
}

type TaskResponse struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	AssignedTo  *model.UserRef `json:"assignedTo"`
	AssignedBy  *model.UserRef `json:"assignedBy"`
	Deadline    time.Time      `json:"deadline"`
	Status      string         `json:"status"`
	Priority    string         `json:"priority"`
	Category    string         `json:"category"`
	Notes       string         `json:"notes"`
	CompletedAt *time.Time     `json:"completedAt"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

func newTaskResponse(t *app.PopulatedTask) TaskResponse {
	resp := TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		AssignedTo:  t.AssignedToUser,
		AssignedBy:  t.AssignedByUser,
		Deadline:    t.Deadline,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		Category:    t.Category,
		Notes:       t.Notes,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if !t.CompletedAt.IsZero() {
		completedAt := t.CompletedAt
		resp.CompletedAt = &completedAt
	}
	return resp
}

func newTaskListResponse(tasks []app.PopulatedTask) []TaskResponse {
	resp := make([]TaskResponse, 0, len(tasks))
	for i := range tasks {
		resp = append(resp, newTaskResponse(&tasks[i]))
	}
	return resp
}

type CreateTaskRequest struct {
	Title       string `json:"title" validate:"required,max=100"`
	Description string `json:"description" validate:"required,max=500"`
	AssignedTo  string `json:"assignedTo" validate:"required"`
	Deadline    string `json:"deadline" validate:"required"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Category    string `json:"category" validate:"max=50"`
	Notes       string `json:"notes" validate:"max=200"`
}

func (r CreateTaskRequest) toInput() (app.CreateTaskInput, error) {
	in := app.CreateTaskInput{
		Title:       r.Title,
		Description: r.Description,
		AssignedTo:  r.AssignedTo,
		Priority:    model.Priority(r.Priority),
		Category:    r.Category,
		Notes:       r.Notes,
	}
	if strings.TrimSpace(r.Deadline) != "" {
		deadline, err := parseDeadline(r.Deadline)
		if err != nil {
			return in, err
		}
		in.Deadline = deadline
	}
	return in, nil
}

type UpdateTaskRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	Deadline    *string `json:"deadline"`
	Priority    *string `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Category    *string `json:"category" validate:"omitempty,max=50"`
	Notes       *string `json:"notes" validate:"omitempty,max=200"`
}

func (r UpdateTaskRequest) toInput() (app.UpdateTaskInput, error) {
	in := app.UpdateTaskInput{
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		Notes:       r.Notes,
	}
	if r.Priority != nil {
		p := model.Priority(*r.Priority)
		in.Priority = &p
	}
	if r.Deadline != nil {
		var deadline time.Time
		if strings.TrimSpace(*r.Deadline) != "" {
			var err error
			if deadline, err = parseDeadline(*r.Deadline); err != nil {
				return in, err
			}
		}
		in.Deadline = &deadline
	}
	return in, nil
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// deadlineLayouts are tried in order. Values without a zone are UTC.
var deadlineLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseDeadline(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range deadlineLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	verr := model.NewValidationError()
	verr.Add("deadline", "must be a date, e.g. 2026-01-31 or 2026-01-31T18:00:00Z")
	return time.Time{}, verr
}

func parseRole(s string) (model.Role, error) {
	role, err := model.ParseRole(strings.TrimSpace(s))
	if err != nil {
		verr := model.NewValidationError()
		verr.Add("role", "must be admin or user")
		return 0, verr
	}
	return role, nil
}
