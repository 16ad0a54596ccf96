package model

import (
	"context"
	"fmt"
	"time"
)

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	IsActive     bool
	Phone        string
	Department   string
	Position     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func NewUser(id, name, email string, role Role, now time.Time) *User {
	return &User{
		ID:        id,
		Name:      name,
		Email:     email,
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (u *User) Ref() UserRef {
	return UserRef{ID: u.ID, Name: u.Name, Email: u.Email}
}

// UserRef is the display projection of a User embedded into task records.
type UserRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Role is a closed set: the zero value is not a valid role.
type Role uint8

const (
	RoleUser Role = iota + 1
	RoleAdmin
)

func ParseRole(s string) (Role, error) {
	switch s {
	case "user":
		return RoleUser, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return 0, fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAdmin:
		return "admin"
	default:
		return fmt.Sprintf("Role(%d)", uint8(r))
	}
}

func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAdmin
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.IsValid() {
		return nil, fmt.Errorf("invalid role %d", uint8(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Actor is the authenticated identity performing an operation.
type Actor struct {
	ID   string
	Role Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *User) error
	FetchUserByID(ctx context.Context, id string) (*User, error)
	FetchUserByEmail(ctx context.Context, email string) (*User, error)
	FetchUsers(ctx context.Context) ([]User, error)
	FetchUsersByIDs(ctx context.Context, ids []string) ([]User, error)
	UpdateUser(ctx context.Context, user *User) error
	DeleteUser(ctx context.Context, id string) error
	// CreateFirstUser inserts user only while the directory is empty and
	// reports whether it did.
	CreateFirstUser(ctx context.Context, user *User) (bool, error)
}
