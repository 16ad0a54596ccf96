package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-pkgz/lgr"
	"github.com/google/uuid"

	"github.com/agalitsyn/taskboard/internal/model"
	"github.com/agalitsyn/taskboard/internal/policy"
	"github.com/agalitsyn/taskboard/internal/validation"
)

// bcrypt rejects longer passwords; the max tag counts runes, not bytes.
const passwordMaxBytes = 72

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

type UserInput struct {
	Name       string `validate:"required,max=100"`
	Email      string `validate:"required,email"`
	Password   string `validate:"required,min=6,max=72"`
	Role       model.Role
	IsActive   *bool
	Phone      string `validate:"max=50"`
	Department string `validate:"max=50"`
	Position   string `validate:"max=50"`
}

// UserUpdate holds the fields to change; nil means keep. An empty password
// keeps the current one.
type UserUpdate struct {
	Name       *string `validate:"omitempty,max=100"`
	Email      *string `validate:"omitempty,email"`
	Password   *string `validate:"omitempty,min=6,max=72"`
	Role       *model.Role
	IsActive   *bool
	Phone      *string `validate:"omitempty,max=50"`
	Department *string `validate:"omitempty,max=50"`
	Position   *string `validate:"omitempty,max=50"`
}

func (in UserUpdate) trimmed() UserUpdate {
	in.Name = trimPtr(in.Name)
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		in.Email = &email
	}
	in.Phone = trimPtr(in.Phone)
	in.Department = trimPtr(in.Department)
	in.Position = trimPtr(in.Position)
	if in.Password != nil && *in.Password == "" {
		in.Password = nil
	}
	return in
}

type UserService struct {
	users  model.UserRepository
	hasher PasswordHasher
	clock  model.Clock
	log    lgr.L
	newID  func() string
}

func NewUserService(users model.UserRepository, hasher PasswordHasher, clock model.Clock, log lgr.L) *UserService {
	return &UserService{
		users:  users,
		hasher: hasher,
		clock:  clock,
		log:    log,
		newID:  uuid.NewString,
	}
}

// Register creates a self-service account. The first account of an empty
// directory becomes admin, every later one is a regular user. The store
// decides which one is first, so concurrent registrations cannot both win.
func (s *UserService) Register(ctx context.Context, in UserInput) (*model.User, error) {
	in.Role = model.RoleAdmin
	in.IsActive = nil
	user, err := s.newUser(ctx, in)
	if err != nil {
		return nil, err
	}

	first, err := s.users.CreateFirstUser(ctx, user)
	if err != nil {
		return nil, err
	}
	if !first {
		user.Role = model.RoleUser
		if err := s.users.CreateUser(ctx, user); err != nil {
			return nil, err
		}
	}
	s.log.Logf("[INFO] registered user id=%s role=%s", user.ID, user.Role)
	return user, nil
}

// CreateAdmin is the operator path used to bootstrap a directory.
func (s *UserService) CreateAdmin(ctx context.Context, in UserInput) (*model.User, error) {
	in.Role = model.RoleAdmin
	in.IsActive = nil
	return s.createUser(ctx, in)
}

func (s *UserService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.users.FetchUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.ErrInvalidCredentials
		}
		return nil, err
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, model.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, model.ErrUserInactive
	}
	return user, nil
}

// Actor resolves an authenticated user id into an acting identity.
func (s *UserService) Actor(ctx context.Context, id string) (model.Actor, error) {
	active, err := s.IsActive(ctx, id)
	if err != nil {
		return model.Actor{}, err
	}
	if !active {
		return model.Actor{}, model.ErrUserInactive
	}
	role, err := s.RoleOf(ctx, id)
	if err != nil {
		return model.Actor{}, err
	}
	return model.Actor{ID: id, Role: role}, nil
}

func (s *UserService) List(ctx context.Context, actor model.Actor) ([]model.User, error) {
	if policy.DecideUser(actor, policy.ActionListAll, "") == policy.Deny {
		return nil, fmt.Errorf("list users: %w", model.ErrAccessDenied)
	}
	users, err := s.users.FetchUsers(ctx)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []model.User{}
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, actor model.Actor, id string) (*model.User, error) {
	if policy.DecideUser(actor, policy.ActionView, id) == policy.Deny {
		return nil, fmt.Errorf("view user %s: %w", id, model.ErrAccessDenied)
	}
	return s.users.FetchUserByID(ctx, id)
}

func (s *UserService) Create(ctx context.Context, actor model.Actor, in UserInput) (*model.User, error) {
	if policy.DecideUser(actor, policy.ActionCreate, "") == policy.Deny {
		return nil, fmt.Errorf("create user: %w", model.ErrAccessDenied)
	}
	if in.Role == 0 {
		in.Role = model.RoleUser
	}
	user, err := s.createUser(ctx, in)
	if err != nil {
		return nil, err
	}
	s.log.Logf("[INFO] user id=%s created by id=%s", user.ID, actor.ID)
	return user, nil
}

func (s *UserService) Update(ctx context.Context, actor model.Actor, id string, in UserUpdate) (*model.User, error) {
	if policy.DecideUser(actor, policy.ActionUpdate, id) == policy.Deny {
		return nil, fmt.Errorf("update user %s: %w", id, model.ErrAccessDenied)
	}

	verr := model.NewValidationError()
	if !actor.IsAdmin() {
		if in.Role != nil {
			verr.Add("role", "only an admin can change roles")
		}
		if in.IsActive != nil {
			verr.Add("isActive", "only an admin can change activation")
		}
	}
	if actor.ID == id {
		if in.Role != nil && *in.Role != actor.Role {
			verr.Add("role", "cannot change your own role")
		}
		if in.IsActive != nil && !*in.IsActive {
			verr.Add("isActive", "cannot deactivate yourself")
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	in = in.trimmed()
	if in.Name != nil && *in.Name == "" {
		verr.Add("name", "cannot be empty")
	}
	if in.Email != nil && *in.Email == "" {
		verr.Add("email", "cannot be empty")
	}
	if in.Role != nil && !in.Role.IsValid() {
		verr.Add("role", "must be admin or user")
	}
	if in.Password != nil {
		checkPasswordBytes(verr, *in.Password)
	}
	if err := validation.Collect(verr, in); err != nil {
		return nil, err
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	user, err := s.users.FetchUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		user.Name = *in.Name
	}
	if in.Email != nil {
		user.Email = *in.Email
	}
	if in.Role != nil {
		user.Role = *in.Role
	}
	if in.IsActive != nil {
		user.IsActive = *in.IsActive
	}
	if in.Phone != nil {
		user.Phone = *in.Phone
	}
	if in.Department != nil {
		user.Department = *in.Department
	}
	if in.Position != nil {
		user.Position = *in.Position
	}

	if in.Password != nil {
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, fmt.Errorf("could not hash password: %w", err)
		}
		user.PasswordHash = hash
	}

	user.UpdatedAt = s.clock.Now()
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) Delete(ctx context.Context, actor model.Actor, id string) error {
	if policy.DecideUser(actor, policy.ActionDelete, id) == policy.Deny {
		return fmt.Errorf("delete user %s: %w", id, model.ErrAccessDenied)
	}
	if actor.ID == id {
		verr := model.NewValidationError()
		verr.Add("id", "cannot delete your own account")
		return verr
	}
	if err := s.users.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.log.Logf("[INFO] user id=%s deleted by id=%s", id, actor.ID)
	return nil
}

func (s *UserService) UserExists(ctx context.Context, id string) (bool, error) {
	_, err := s.users.FetchUserByID(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *UserService) IsActive(ctx context.Context, id string) (bool, error) {
	user, err := s.users.FetchUserByID(ctx, id)
	if err != nil {
		return false, err
	}
	return user.IsActive, nil
}

func (s *UserService) RoleOf(ctx context.Context, id string) (model.Role, error) {
	user, err := s.users.FetchUserByID(ctx, id)
	if err != nil {
		return 0, err
	}
	return user.Role, nil
}

func (s *UserService) FetchUserRefs(ctx context.Context, ids []string) (map[string]model.UserRef, error) {
	users, err := s.users.FetchUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	refs := make(map[string]model.UserRef, len(users))
	for i := range users {
		refs[users[i].ID] = users[i].Ref()
	}
	return refs, nil
}

func (s *UserService) createUser(ctx context.Context, in UserInput) (*model.User, error) {
	user, err := s.newUser(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// newUser validates in and builds the user record without storing it.
func (s *UserService) newUser(ctx context.Context, in UserInput) (*model.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Department = strings.TrimSpace(in.Department)
	in.Position = strings.TrimSpace(in.Position)

	verr := model.NewValidationError()
	if !in.Role.IsValid() {
		verr.Add("role", "must be admin or user")
	}
	checkPasswordBytes(verr, in.Password)
	if err := validation.Collect(verr, in); err != nil {
		return nil, err
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	_, err := s.users.FetchUserByEmail(ctx, in.Email)
	if err == nil {
		return nil, fmt.Errorf("email %s already taken: %w", in.Email, model.ErrConflict)
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("could not hash password: %w", err)
	}

	user := model.NewUser(s.newID(), in.Name, in.Email, in.Role, s.clock.Now())
	user.PasswordHash = hash
	user.Phone = in.Phone
	user.Department = in.Department
	user.Position = in.Position
	if in.IsActive != nil {
		user.IsActive = *in.IsActive
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func checkPasswordBytes(verr *model.ValidationError, password string) {
	if len(password) > passwordMaxBytes {
		verr.Add("password", fmt.Sprintf("must be at most %d bytes", passwordMaxBytes))
	}
}
