package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/esetaro2/progresso-backend-sub000/internal/domain"
	"github.com/esetaro2/progresso-backend-sub000/internal/repository"
)

const userColumns = `id, username, first_name, last_name, email, role, active, created_at, updated_at`

// CreateUser inserts a user.
func (s *txStore) CreateUser(ctx context.Context, user *domain.User) error {
	const query = `INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := s.tx.Exec(ctx, query, user.ID, user.Username, user.FirstName, user.LastName, user.Email, string(user.Role), user.Active, user.CreatedAt, user.UpdatedAt)
	return mapWriteError(err)
}

// UpdateUser persists mutable user fields.
func (s *txStore) UpdateUser(ctx context.Context, user *domain.User) error {
	const query = `UPDATE users
		SET first_name = $2, last_name = $3, email = $4, active = $5, updated_at = $6
		WHERE id = $1`
	return expectAffected(s.tx.Exec(ctx, query, user.ID, user.FirstName, user.LastName, user.Email, user.Active, user.UpdatedAt))
}

// GetUserByID retrieves a user by identifier.
func (s *txStore) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(s.tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapReadError(err)
	}
	return user, nil
}

// UsernameExists reports whether a username is taken, ignoring case.
func (s *txStore) UsernameExists(ctx context.Context, username string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE LOWER(username) = LOWER($1))`
	var exists bool
	if err := s.tx.QueryRow(ctx, query, username).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ListUsers returns users matching the filter.
func (s *txStore) ListUsers(ctx context.Context, filter repository.UserFilter) ([]domain.User, error) {
	var where whereBuilder
	if filter.Role != "" {
		where.add("role = ?", string(filter.Role))
	}
	if filter.Active != nil {
		where.add("active = ?", *filter.Active)
	}
	query := `SELECT ` + userColumns + ` FROM users` + where.sql() + ` ORDER BY created_at, id`
	query += where.page(filter.Page)

	rows, err := s.tx.Query(ctx, query, where.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u    domain.User
		role string
	)
	if err := row.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Email, &role, &u.Active, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	return &u, nil
}
