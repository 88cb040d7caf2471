package model

import (
	"time"

	"github.com/google/uuid"
)

// Permission is a single grantable capability, identified by a dotted
// resource.action slug such as "patients.create" or "billing.process_payment".
type Permission struct {
	Base
	Slug        string `db:"slug" json:"slug"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description"`
	Category    string `db:"category" json:"category"`
}

// Role is a named set of permissions. System roles are seeded and cannot be
// deleted through the admin API.
type Role struct {
	Base
	Name         string `db:"name" json:"name"`
	Description  string `db:"description" json:"description"`
	IsSystemRole bool   `db:"is_system_role" json:"is_system_role"`
}

// RolePermission is a row in the role/permission join table.
type RolePermission struct {
	RoleID       uuid.UUID `db:"role_id" json:"role_id"`
	PermissionID uuid.UUID `db:"permission_id" json:"permission_id"`
	GrantedAt    time.Time `db:"granted_at" json:"granted_at"`
}

// RoleDetail is a role together with its permission set and user count.
type RoleDetail struct {
	Role
	Permissions []*Permission `json:"permissions"`
	UserCount   int           `json:"user_count"`
}

type CreateRoleRequest struct {
	Name        string      `json:"name" binding:"required,max=50"`
	Description string      `json:"description" binding:"max=255"`
	Permissions []uuid.UUID `json:"permissions"`
}

type UpdateRoleRequest struct {
	Name        *string      `json:"name" binding:"omitempty,max=50"`
	Description *string      `json:"description" binding:"omitempty,max=255"`
	Permissions *[]uuid.UUID `json:"permissions"`
}

type CreatePermissionRequest struct {
	Slug        string `json:"slug" binding:"required,max=100"`
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description" binding:"max=255"`
	Category    string `json:"category" binding:"max=50"`
}

type UpdatePermissionRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=100"`
	Description *string `json:"description" binding:"omitempty,max=255"`
	Category    *string `json:"category" binding:"omitempty,max=50"`
}
