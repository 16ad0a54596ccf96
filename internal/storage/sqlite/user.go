package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/agalitsyn/taskboard/internal/model"
)

type UserStorage struct {
	db *sql.DB
}

func NewUserStorage(db *sql.DB) *UserStorage {
	return &UserStorage{db: db}
}

const userColumns = `id, name, email, password_hash, role, is_active, phone, department, position, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		user model.User
		role string
	)
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&role,
		&user.IsActive,
		&user.Phone,
		&user.Department,
		&user.Position,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.Role, err = model.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", user.ID, err)
	}
	return &user, nil
}

func userArgs(user *model.User) []any {
	return []any{
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role.String(),
		user.IsActive,
		user.Phone,
		user.Department,
		user.Position,
		utc(user.CreatedAt),
		utc(user.UpdatedAt),
	}
}

func (s *UserStorage) CreateUser(ctx context.Context, user *model.User) error {
	const query = `INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, userArgs(user)...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("email %s already taken: %w", user.Email, model.ErrConflict)
		}
		return fmt.Errorf("could not create user: %w", err)
	}
	return nil
}

// CreateFirstUser inserts user only into an empty table. The emptiness check
// and the insert are one statement, so two callers cannot both succeed.
func (s *UserStorage) CreateFirstUser(ctx context.Context, user *model.User) (bool, error) {
	const query = `INSERT INTO users (` + userColumns + `)
	SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
	WHERE NOT EXISTS (SELECT 1 FROM users)`
	result, err := s.db.ExecContext(ctx, query, userArgs(user)...)
	if err != nil {
		if isUniqueViolation(err) {
			return false, fmt.Errorf("email %s already taken: %w", user.Email, model.ErrConflict)
		}
		return false, fmt.Errorf("could not create first user: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("could not get affected rows: %w", err)
	}
	return n == 1, nil
}

func (s *UserStorage) FetchUserByID(ctx context.Context, id string) (*model.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not fetch user: %w", err)
	}
	return user, nil
}

func (s *UserStorage) FetchUserByEmail(ctx context.Context, email string) (*model.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = ? COLLATE NOCASE`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with email %s: %w", email, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not fetch user: %w", err)
	}
	return user, nil
}

func (s *UserStorage) FetchUsers(ctx context.Context) ([]model.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC, rowid DESC`
	return s.queryUsers(ctx, query)
}

func (s *UserStorage) FetchUsersByIDs(ctx context.Context, ids []string) ([]model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id IN (` + placeholders(len(ids)) + `)`
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	return s.queryUsers(ctx, query, args...)
}

func (s *UserStorage) queryUsers(ctx context.Context, query string, args ...any) ([]model.User, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("could not query users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan user: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate users: %w", err)
	}
	return users, nil
}

func (s *UserStorage) UpdateUser(ctx context.Context, user *model.User) error {
	const query = `UPDATE users
	SET name = ?, email = ?, password_hash = ?, role = ?, is_active = ?, phone = ?, department = ?, position = ?, updated_at = ?
	WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role.String(),
		user.IsActive,
		user.Phone,
		user.Department,
		user.Position,
		utc(user.UpdatedAt),
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("email %s already taken: %w", user.Email, model.ErrConflict)
		}
		return fmt.Errorf("could not update user: %w", err)
	}
	return expectAffected(result, "user", user.ID)
}

func (s *UserStorage) DeleteUser(ctx context.Context, id string) error {
	const query = `DELETE FROM users WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("could not delete user: %w", err)
	}
	return expectAffected(result, "user", id)
}

func expectAffected(result sql.Result, entity, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", entity, id, model.ErrNotFound)
	}
	return nil
}
