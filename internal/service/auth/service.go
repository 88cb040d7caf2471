package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alsalam/hospital-api/internal/model"
	"github.com/alsalam/hospital-api/internal/repository"
	"github.com/alsalam/hospital-api/pkg/apperror"
	"github.com/alsalam/hospital-api/pkg/auth"
	"github.com/alsalam/hospital-api/pkg/security"
)

const invalidCredentials = "invalid username or password"

type Service struct {
	users  repository.UserRepository
	hasher security.PasswordHasher
	jwt    auth.JWTService
}

func NewService(users repository.UserRepository, hasher security.PasswordHasher, jwt auth.JWTService) *Service {
	return &Service{users: users, hasher: hasher, jwt: jwt}
}

// Login verifies the credentials and issues a token pair. Disabled accounts
// and unknown usernames fail with the same message so the endpoint does not
// leak which usernames exist.
func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, *model.User, error) {
	user, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, apperror.Unauthorized(invalidCredentials)
		}
		return nil, nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if !user.IsActive {
		return nil, nil, apperror.Unauthorized(invalidCredentials)
	}
	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		return nil, nil, apperror.Unauthorized(invalidCredentials)
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, time.Now()); err != nil {
		// Login already succeeded; losing the timestamp is acceptable.
		return tokens, user, nil
	}
	return tokens, user, nil
}

// Refresh exchanges a valid refresh token for a new token pair. The user is
// re-read so a deactivation or role change takes effect immediately.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*model.TokenResponse, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperror.Unauthorized("invalid refresh token")
	}

	user, err := s.users.Get(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.Unauthorized("invalid refresh token")
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if !user.IsActive {
		return nil, apperror.Unauthorized("account is disabled")
	}

	return s.issueTokens(user)
}

// ChangePassword lets a user rotate their own password after proving they
// know the current one.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, req *model.ChangePasswordRequest) error {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NotFound("user")
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, req.CurrentPassword); err != nil {
		return apperror.Unauthorized("current password is incorrect")
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		if errors.Is(err, security.ErrPasswordTooShort) {
			return apperror.Validationf("password must be at least %d characters", security.MinPasswordLen)
		}
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// ValidateAccessToken parses an access token for the auth middleware.
func (s *Service) ValidateAccessToken(token string) (*model.TokenClaims, error) {
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			return nil, apperror.Unauthorized("token expired")
		}
		return nil, apperror.Unauthorized("invalid token")
	}
	return claims, nil
}

func (s *Service) issueTokens(user *model.User) (*model.TokenResponse, error) {
	access, err := s.jwt.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refresh, err := s.jwt.GenerateRefreshToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return &model.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.jwt.AccessExpiry().Seconds()),
	}, nil
}
