package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/alsalam/hospital-api/internal/model"
)

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (id, username, password_hash, full_name, role_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.PasswordHash,
		user.FullName,
		user.RoleID,
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt,
	)
	return wrapErr("failed to create user", err)
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	query := `
		SELECT u.id, u.username, u.password_hash, u.full_name, u.role_id, u.is_active,
		       u.last_login_at, u.created_at, u.updated_at, r.name AS role_name
		FROM users u
		JOIN roles r ON r.id = u.role_id
		WHERE u.id = $1
	`
	var user model.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, wrapErr("failed to get user", err)
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	query := `
		SELECT u.id, u.username, u.password_hash, u.full_name, u.role_id, u.is_active,
		       u.last_login_at, u.created_at, u.updated_at, r.name AS role_name
		FROM users u
		JOIN roles r ON r.id = u.role_id
		WHERE lower(u.username) = lower($1)
	`
	var user model.User
	if err := r.db.GetContext(ctx, &user, query, username); err != nil {
		return nil, wrapErr("failed to get user by username", err)
	}
	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	query := `UPDATE users SET full_name = $1, role_id = $2, updated_at = $3 WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, user.FullName, user.RoleID, time.Now(), user.ID)
	if err != nil {
		return wrapErr("failed to update user", err)
	}
	return requireRow(result, "failed to update user")
}

func (r *userRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	query := `UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, passwordHash, time.Now(), id)
	if err != nil {
		return wrapErr("failed to update password", err)
	}
	return requireRow(result, "failed to update password")
}

func (r *userRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE users SET last_login_at = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, at, id)
	return wrapErr("failed to update last login", err)
}

func (r *userRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	query := `UPDATE users SET is_active = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, active, time.Now(), id)
	if err != nil {
		return wrapErr("failed to set user active", err)
	}
	return requireRow(result, "failed to set user active")
}

func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM users WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return wrapErr("failed to delete user", err)
	}
	return requireRow(result, "failed to delete user")
}

func (r *userRepository) List(ctx context.Context, filters *model.UserFilters) ([]*model.User, error) {
	query := `
		SELECT u.id, u.username, u.password_hash, u.full_name, u.role_id, u.is_active,
		       u.last_login_at, u.created_at, u.updated_at, r.name AS role_name
		FROM users u
		JOIN roles r ON r.id = u.role_id
		WHERE ($1::uuid IS NULL OR u.role_id = $1)
		  AND (NOT $2 OR u.is_active)
		  AND ($3 = '' OR u.username ILIKE '%' || $3 || '%' OR u.full_name ILIKE '%' || $3 || '%')
		ORDER BY u.username
	`
	var roleID *uuid.UUID
	if filters.RoleID != uuid.Nil {
		roleID = &filters.RoleID
	}

	users := []*model.User{}
	err := r.db.SelectContext(ctx, &users, query, roleID, filters.ActiveOnly, filters.SearchTerm)
	if err != nil {
		return nil, wrapErr("failed to list users", err)
	}
	return users, nil
}

func (r *userRepository) CountByRole(ctx context.Context, roleID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM users WHERE role_id = $1 AND is_active`
	var count int
	if err := r.db.GetContext(ctx, &count, query, roleID); err != nil {
		return 0, wrapErr("failed to count users by role", err)
	}
	return count, nil
}
