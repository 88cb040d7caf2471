package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/alsalam/hospital-api/internal/model"
	"github.com/alsalam/hospital-api/internal/repository"
	"github.com/alsalam/hospital-api/pkg/apperror"
	"github.com/alsalam/hospital-api/pkg/security"
)

type Service struct {
	users  repository.UserRepository
	rbac   repository.RBACRepository
	appts  repository.AppointmentRepository
	hasher security.PasswordHasher
}

func NewService(users repository.UserRepository, rbac repository.RBACRepository, appts repository.AppointmentRepository, hasher security.PasswordHasher) *Service {
	return &Service{users: users, rbac: rbac, appts: appts, hasher: hasher}
}

func (s *Service) Create(ctx context.Context, req *model.CreateUserRequest) (*model.User, error) {
	role, err := s.rbac.GetRole(ctx, req.RoleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.Validation("role does not exist")
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		if errors.Is(err, security.ErrPasswordTooShort) {
			return nil, apperror.Validationf("password must be at least %d characters", security.MinPasswordLen)
		}
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Base:         model.Base{ID: uuid.New()},
		Username:     req.Username,
		PasswordHash: hash,
		FullName:     req.FullName,
		RoleID:       req.RoleID,
		RoleName:     role.Name,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperror.Validationf("username %q is already taken", req.Username)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.users.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("user")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// Update edits profile fields and role. Moving the last active administrator
// to another role would lock everyone out of user management, so it is
// rejected.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdateUserRequest) (*model.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.RoleID != nil && *req.RoleID != user.RoleID {
		role, err := s.rbac.GetRole(ctx, *req.RoleID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperror.Validation("role does not exist")
			}
			return nil, fmt.Errorf("failed to get role: %w", err)
		}
		if err := s.guardLastAdministrator(ctx, user); err != nil {
			return nil, err
		}
		user.RoleID = *req.RoleID
		user.RoleName = role.Name
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// SetPassword is the admin-side reset; it does not require the old password.
func (s *Service) SetPassword(ctx context.Context, id uuid.UUID, req *model.SetPasswordRequest) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		if errors.Is(err, security.ErrPasswordTooShort) {
			return apperror.Validationf("password must be at least %d characters", security.MinPasswordLen)
		}
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, id, hash); err != nil {
		return fmt.Errorf("failed to set password: %w", err)
	}
	return nil
}

func (s *Service) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !active {
		if err := s.guardLastAdministrator(ctx, user); err != nil {
			return err
		}
	}
	if err := s.users.SetActive(ctx, id, active); err != nil {
		return fmt.Errorf("failed to set user active: %w", err)
	}
	return nil
}

// Delete removes a user. Self-deletion and deleting the last active
// administrator are rejected.
func (s *Service) Delete(ctx context.Context, id, actorID uuid.UUID) error {
	if id == actorID {
		return apperror.Validation("you cannot delete your own account")
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.guardLastAdministrator(ctx, user); err != nil {
		return err
	}
	if user.RoleName == model.RoleDoctor {
		open, err := s.appts.CountBlockedForDoctor(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to count open appointments: %w", err)
		}
		if open > 0 {
			return apperror.Validation("doctor still has open appointments, cancel or complete them first")
		}
	}
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrReferenced) {
			return apperror.Validation("user has appointments or visits on file and cannot be deleted")
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, filters *model.UserFilters) ([]*model.User, error) {
	users, err := s.users.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// guardLastAdministrator rejects the operation when user is the last active
// member of the administrator role.
func (s *Service) guardLastAdministrator(ctx context.Context, user *model.User) error {
	if !user.IsActive {
		return nil
	}
	role, err := s.rbac.GetRole(ctx, user.RoleID)
	if err != nil {
		return fmt.Errorf("failed to get role: %w", err)
	}
	if role.Name != model.RoleAdministrator {
		return nil
	}
	count, err := s.users.CountByRole(ctx, user.RoleID)
	if err != nil {
		return fmt.Errorf("failed to count administrators: %w", err)
	}
	if count <= 1 {
		return apperror.Validation("cannot remove the last administrator")
	}
	return nil
}
