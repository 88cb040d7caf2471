// Package rbac manages roles and permissions. Checking a permission at
// request time lives in the authz package; this one is the admin surface.
package rbac

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"

	"github.com/alsalam/hospital-api/internal/model"
	"github.com/alsalam/hospital-api/internal/repository"
	"github.com/alsalam/hospital-api/pkg/apperror"
)

// slugPattern is the resource.action form, e.g. "patients.create" or
// "billing.process_payment".
var slugPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*\.[a-z][a-z0-9_]*$`)

type Service struct {
	rbac  repository.RBACRepository
	users repository.UserRepository
}

func NewService(rbac repository.RBACRepository, users repository.UserRepository) *Service {
	return &Service{rbac: rbac, users: users}
}

func (s *Service) CreateRole(ctx context.Context, req *model.CreateRoleRequest) (*model.RoleDetail, error) {
	role := &model.Role{
		Base:        model.Base{ID: uuid.New()},
		Name:        req.Name,
		Description: req.Description,
	}
	if err := s.rbac.CreateRole(ctx, role); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperror.Validationf("role %q already exists", req.Name)
		}
		return nil, fmt.Errorf("failed to create role: %w", err)
	}

	if len(req.Permissions) > 0 {
		if err := s.rbac.ReplacePermissions(ctx, role.ID, req.Permissions); err != nil {
			return nil, fmt.Errorf("failed to assign permissions: %w", err)
		}
	}
	return s.GetRole(ctx, role.ID)
}

func (s *Service) GetRole(ctx context.Context, id uuid.UUID) (*model.RoleDetail, error) {
	role, err := s.rbac.GetRole(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("role")
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}

	permissions, err := s.rbac.ListRolePermissions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list role permissions: %w", err)
	}
	userCount, err := s.users.CountByRole(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to count role users: %w", err)
	}

	return &model.RoleDetail{Role: *role, Permissions: permissions, UserCount: userCount}, nil
}

// UpdateRole edits a role. System roles keep their name so admin guards that
// look roles up by name stay stable; their descriptions and permission sets
// are still editable.
func (s *Service) UpdateRole(ctx context.Context, id uuid.UUID, req *model.UpdateRoleRequest) (*model.RoleDetail, error) {
	role, err := s.rbac.GetRole(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("role")
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}

	if req.Name != nil && *req.Name != role.Name {
		if role.IsSystemRole {
			return nil, apperror.Validation("system roles cannot be renamed")
		}
		role.Name = *req.Name
	}
	if req.Description != nil {
		role.Description = *req.Description
	}

	if err := s.rbac.UpdateRole(ctx, role); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperror.Validationf("role %q already exists", role.Name)
		}
		return nil, fmt.Errorf("failed to update role: %w", err)
	}

	if req.Permissions != nil {
		if err := s.rbac.ReplacePermissions(ctx, id, *req.Permissions); err != nil {
			return nil, fmt.Errorf("failed to replace permissions: %w", err)
		}
	}
	return s.GetRole(ctx, id)
}

// DeleteRole removes a custom role. System roles and roles still assigned to
// users are protected.
func (s *Service) DeleteRole(ctx context.Context, id uuid.UUID) error {
	role, err := s.rbac.GetRole(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NotFound("role")
		}
		return fmt.Errorf("failed to get role: %w", err)
	}
	if role.IsSystemRole {
		return apperror.Validation("system roles cannot be deleted")
	}

	userCount, err := s.users.CountByRole(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count role users: %w", err)
	}
	if userCount > 0 {
		return apperror.Validationf("role is assigned to %d user(s)", userCount)
	}

	if err := s.rbac.DeleteRole(ctx, id); err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	return nil
}

func (s *Service) ListRoles(ctx context.Context) ([]*model.RoleDetail, error) {
	roles, err := s.rbac.ListRoles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}

	details := make([]*model.RoleDetail, 0, len(roles))
	for _, role := range roles {
		detail, err := s.GetRole(ctx, role.ID)
		if err != nil {
			return nil, err
		}
		details = append(details, detail)
	}
	return details, nil
}

func (s *Service) CreatePermission(ctx context.Context, req *model.CreatePermissionRequest) (*model.Permission, error) {
	if !slugPattern.MatchString(req.Slug) {
		return nil, apperror.Validation("permission slug must be of the form resource.action")
	}

	permission := &model.Permission{
		Base:        model.Base{ID: uuid.New()},
		Slug:        req.Slug,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
	}
	if err := s.rbac.CreatePermission(ctx, permission); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperror.Validationf("permission %q already exists", req.Slug)
		}
		return nil, fmt.Errorf("failed to create permission: %w", err)
	}
	return permission, nil
}

func (s *Service) UpdatePermission(ctx context.Context, id uuid.UUID, req *model.UpdatePermissionRequest) (*model.Permission, error) {
	permission, err := s.rbac.GetPermission(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("permission")
		}
		return nil, fmt.Errorf("failed to get permission: %w", err)
	}

	if req.Name != nil {
		permission.Name = *req.Name
	}
	if req.Description != nil {
		permission.Description = *req.Description
	}
	if req.Category != nil {
		permission.Category = *req.Category
	}

	if err := s.rbac.UpdatePermission(ctx, permission); err != nil {
		return nil, fmt.Errorf("failed to update permission: %w", err)
	}
	return permission, nil
}

func (s *Service) DeletePermission(ctx context.Context, id uuid.UUID) error {
	if err := s.rbac.DeletePermission(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NotFound("permission")
		}
		return fmt.Errorf("failed to delete permission: %w", err)
	}
	return nil
}

func (s *Service) ListPermissions(ctx context.Context) ([]*model.Permission, error) {
	permissions, err := s.rbac.ListPermissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	return permissions, nil
}

// Grant adds a permission to a role. Granting an already-held permission is a
// no-op, so retried requests are safe.
func (s *Service) Grant(ctx context.Context, roleID, permissionID uuid.UUID) error {
	if err := s.ensureRoleAndPermission(ctx, roleID, permissionID); err != nil {
		return err
	}
	if err := s.rbac.GrantPermission(ctx, roleID, permissionID); err != nil {
		return fmt.Errorf("failed to grant permission: %w", err)
	}
	return nil
}

// Revoke removes a permission from a role. Revoking an absent permission is a
// no-op.
func (s *Service) Revoke(ctx context.Context, roleID, permissionID uuid.UUID) error {
	if err := s.ensureRoleAndPermission(ctx, roleID, permissionID); err != nil {
		return err
	}
	if err := s.rbac.RevokePermission(ctx, roleID, permissionID); err != nil {
		return fmt.Errorf("failed to revoke permission: %w", err)
	}
	return nil
}

func (s *Service) ensureRoleAndPermission(ctx context.Context, roleID, permissionID uuid.UUID) error {
	if _, err := s.rbac.GetRole(ctx, roleID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NotFound("role")
		}
		return fmt.Errorf("failed to get role: %w", err)
	}
	if _, err := s.rbac.GetPermission(ctx, permissionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NotFound("permission")
		}
		return fmt.Errorf("failed to get permission: %w", err)
	}
	return nil
}
