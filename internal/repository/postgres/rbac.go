package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/alsalam/hospital-api/internal/model"
)

func (r *rbacRepository) CreateRole(ctx context.Context, role *model.Role) error {
	query := `
		INSERT INTO roles (id, name, description, is_system_role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	role.CreatedAt = time.Now()
	role.UpdatedAt = role.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		role.ID, role.Name, role.Description, role.IsSystemRole, role.CreatedAt, role.UpdatedAt)
	return wrapErr("failed to create role", err)
}

func (r *rbacRepository) GetRole(ctx context.Context, id uuid.UUID) (*model.Role, error) {
	query := `SELECT * FROM roles WHERE id = $1`
	var role model.Role
	if err := r.db.GetContext(ctx, &role, query, id); err != nil {
		return nil, wrapErr("failed to get role", err)
	}
	return &role, nil
}

func (r *rbacRepository) GetRoleByName(ctx context.Context, name string) (*model.Role, error) {
	query := `SELECT * FROM roles WHERE lower(name) = lower($1)`
	var role model.Role
	if err := r.db.GetContext(ctx, &role, query, name); err != nil {
		return nil, wrapErr("failed to get role by name", err)
	}
	return &role, nil
}

func (r *rbacRepository) UpdateRole(ctx context.Context, role *model.Role) error {
	query := `UPDATE roles SET name = $1, description = $2, updated_at = $3 WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, role.Name, role.Description, time.Now(), role.ID)
	if err != nil {
		return wrapErr("failed to update role", err)
	}
	return requireRow(result, "failed to update role")
}

func (r *rbacRepository) DeleteRole(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM roles WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return wrapErr("failed to delete role", err)
	}
	return requireRow(result, "failed to delete role")
}

func (r *rbacRepository) ListRoles(ctx context.Context) ([]*model.Role, error) {
	query := `SELECT * FROM roles ORDER BY name`
	roles := []*model.Role{}
	if err := r.db.SelectContext(ctx, &roles, query); err != nil {
		return nil, wrapErr("failed to list roles", err)
	}
	return roles, nil
}

func (r *rbacRepository) CreatePermission(ctx context.Context, permission *model.Permission) error {
	query := `
		INSERT INTO permissions (id, slug, name, description, category, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	permission.CreatedAt = time.Now()
	permission.UpdatedAt = permission.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		permission.ID, permission.Slug, permission.Name, permission.Description,
		permission.Category, permission.CreatedAt, permission.UpdatedAt)
	return wrapErr("failed to create permission", err)
}

func (r *rbacRepository) GetPermission(ctx context.Context, id uuid.UUID) (*model.Permission, error) {
	query := `SELECT * FROM permissions WHERE id = $1`
	var permission model.Permission
	if err := r.db.GetContext(ctx, &permission, query, id); err != nil {
		return nil, wrapErr("failed to get permission", err)
	}
	return &permission, nil
}

func (r *rbacRepository) GetPermissionBySlug(ctx context.Context, slug string) (*model.Permission, error) {
	query := `SELECT * FROM permissions WHERE slug = $1`
	var permission model.Permission
	if err := r.db.GetContext(ctx, &permission, query, slug); err != nil {
		return nil, wrapErr("failed to get permission by slug", err)
	}
	return &permission, nil
}

func (r *rbacRepository) UpdatePermission(ctx context.Context, permission *model.Permission) error {
	query := `UPDATE permissions SET name = $1, description = $2, category = $3, updated_at = $4 WHERE id = $5`
	result, err := r.db.ExecContext(ctx, query,
		permission.Name, permission.Description, permission.Category, time.Now(), permission.ID)
	if err != nil {
		return wrapErr("failed to update permission", err)
	}
	return requireRow(result, "failed to update permission")
}

func (r *rbacRepository) DeletePermission(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM permissions WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return wrapErr("failed to delete permission", err)
	}
	return requireRow(result, "failed to delete permission")
}

func (r *rbacRepository) ListPermissions(ctx context.Context) ([]*model.Permission, error) {
	query := `SELECT * FROM permissions ORDER BY category, slug`
	permissions := []*model.Permission{}
	if err := r.db.SelectContext(ctx, &permissions, query); err != nil {
		return nil, wrapErr("failed to list permissions", err)
	}
	return permissions, nil
}

// GrantPermission is idempotent: granting an already-held permission is a no-op.
func (r *rbacRepository) GrantPermission(ctx context.Context, roleID, permissionID uuid.UUID) error {
	query := `
		INSERT INTO role_permissions (role_id, permission_id, granted_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (role_id, permission_id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query, roleID, permissionID, time.Now())
	return wrapErr("failed to grant permission", err)
}

// RevokePermission is idempotent: revoking an absent permission is a no-op.
func (r *rbacRepository) RevokePermission(ctx context.Context, roleID, permissionID uuid.UUID) error {
	query := `DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2`
	_, err := r.db.ExecContext(ctx, query, roleID, permissionID)
	return wrapErr("failed to revoke permission", err)
}

func (r *rbacRepository) ReplacePermissions(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID) error {
	return inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
			return wrapErr("failed to clear role permissions", err)
		}
		now := time.Now()
		for _, permissionID := range permissionIDs {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO role_permissions (role_id, permission_id, granted_at)
				VALUES ($1, $2, $3)
				ON CONFLICT (role_id, permission_id) DO NOTHING
			`, roleID, permissionID, now)
			if err != nil {
				return wrapErr("failed to grant permission", err)
			}
		}
		return nil
	})
}

func (r *rbacRepository) ListRolePermissions(ctx context.Context, roleID uuid.UUID) ([]*model.Permission, error) {
	query := `
		SELECT p.*
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1
		ORDER BY p.category, p.slug
	`
	permissions := []*model.Permission{}
	if err := r.db.SelectContext(ctx, &permissions, query, roleID); err != nil {
		return nil, wrapErr("failed to list role permissions", err)
	}
	return permissions, nil
}

func (r *rbacRepository) UserHasPermission(ctx context.Context, userID uuid.UUID, slug string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM users u
			JOIN role_permissions rp ON rp.role_id = u.role_id
			JOIN permissions p ON p.id = rp.permission_id
			WHERE u.id = $1 AND u.is_active AND p.slug = $2
		)
	`
	var has bool
	if err := r.db.GetContext(ctx, &has, query, userID, slug); err != nil {
		return false, wrapErr("failed to check permission", err)
	}
	return has, nil
}
