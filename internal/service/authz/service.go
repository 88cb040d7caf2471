// Package authz answers "may this user do that" questions. Authorization is
// purely permission based: the administrator role is seeded with every
// permission rather than being special-cased by name.
package authz

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/alsalam/hospital-api/internal/repository"
)

type Service struct {
	rbac repository.RBACRepository
}

func NewService(rbac repository.RBACRepository) *Service {
	return &Service{rbac: rbac}
}

// Can reports whether the user's role holds the permission slug. Inactive
// users hold nothing.
func (s *Service) Can(ctx context.Context, userID uuid.UUID, slug string) (bool, error) {
	has, err := s.rbac.UserHasPermission(ctx, userID, slug)
	if err != nil {
		return false, fmt.Errorf("failed to check permission %s: %w", slug, err)
	}
	return has, nil
}

// CanAny reports whether the user holds at least one of the slugs.
func (s *Service) CanAny(ctx context.Context, userID uuid.UUID, slugs ...string) (bool, error) {
	for _, slug := range slugs {
		has, err := s.Can(ctx, userID, slug)
		if err != nil {
			return false, err
		}
		if has {
			return true, nil
		}
	}
	return false, nil
}

// CanAll reports whether the user holds every one of the slugs.
func (s *Service) CanAll(ctx context.Context, userID uuid.UUID, slugs ...string) (bool, error) {
	for _, slug := range slugs {
		has, err := s.Can(ctx, userID, slug)
		if err != nil {
			return false, err
		}
		if !has {
			return false, nil
		}
	}
	return true, nil
}
