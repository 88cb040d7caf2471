package model

import (
	"time"

	"github.com/google/uuid"
)

// Seeded system role names. Authorization never branches on these: the
// administrator role simply holds every permission slug. They exist for
// admin-side guards such as "do not delete the last administrator".
const (
	RoleAdministrator = "Administrator"
	RoleDoctor        = "Doctor"
	RoleNurse         = "Nurse"
	RoleReception     = "Reception"
	RoleBilling       = "Billing"
)

// User is an authentication principal. Its authorization surface is derived
// entirely from its single role; there are no per-user overrides.
type User struct {
	Base
	Username     string     `json:"username" db:"username"`
	PasswordHash string     `json:"-" db:"password_hash"`
	FullName     string     `json:"full_name" db:"full_name"`
	RoleID       uuid.UUID  `json:"role_id" db:"role_id"`
	RoleName     string     `json:"role_name,omitempty" db:"role_name"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
}

type CreateUserRequest struct {
	Username string    `json:"username" binding:"required,min=3,max=80"`
	Password string    `json:"password" binding:"required,min=8"`
	FullName string    `json:"full_name" binding:"required,max=200"`
	RoleID   uuid.UUID `json:"role_id" binding:"required"`
}

type UpdateUserRequest struct {
	FullName *string    `json:"full_name" binding:"omitempty,max=200"`
	RoleID   *uuid.UUID `json:"role_id"`
}

type SetPasswordRequest struct {
	Password string `json:"password" binding:"required,min=8"`
}

type UserFilters struct {
	RoleID     uuid.UUID
	ActiveOnly bool
	SearchTerm string
}
