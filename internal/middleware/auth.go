package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	authsvc "github.com/alsalam/hospital-api/internal/service/auth"
	"github.com/alsalam/hospital-api/internal/service/authz"
	"github.com/alsalam/hospital-api/pkg/apperror"
)

const (
	// ContextUserID is the gin context key for the authenticated user ID.
	ContextUserID = "user_id"
	// ContextUsername is the gin context key for the authenticated username.
	ContextUsername = "username"
	// ContextRoleID is the gin context key for the authenticated role ID.
	ContextRoleID = "role_id"
)

// AuthMiddleware authenticates requests and enforces permissions.
type AuthMiddleware struct {
	auth  *authsvc.Service
	authz *authz.Service
}

func NewAuthMiddleware(auth *authsvc.Service, authz *authz.Service) *AuthMiddleware {
	return &AuthMiddleware{auth: auth, authz: authz}
}

// Authenticate validates the bearer token and stores the claims on the
// context for downstream handlers.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			AbortWithError(c, apperror.Unauthorized("authorization header required"))
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			AbortWithError(c, apperror.Unauthorized("authorization header must be a bearer token"))
			return
		}

		claims, err := m.auth.ValidateAccessToken(parts[1])
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUsername, claims.Username)
		c.Set(ContextRoleID, claims.RoleID)
		c.Next()
	}
}

// RequirePermission rejects the request unless the authenticated user holds
// the permission.
func (m *AuthMiddleware) RequirePermission(slug string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := UserID(c)
		if !ok {
			AbortWithError(c, apperror.Unauthorized("authentication required"))
			return
		}

		allowed, err := m.authz.Can(c.Request.Context(), userID, slug)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if !allowed {
			AbortWithError(c, apperror.Forbidden("you do not have permission to perform this action"))
			return
		}
		c.Next()
	}
}

// RequireAnyPermission passes if the user holds at least one of the
// permissions. Used for endpoints shared across roles.
func (m *AuthMiddleware) RequireAnyPermission(slugs ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := UserID(c)
		if !ok {
			AbortWithError(c, apperror.Unauthorized("authentication required"))
			return
		}

		allowed, err := m.authz.CanAny(c.Request.Context(), userID, slugs...)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if !allowed {
			AbortWithError(c, apperror.Forbidden("you do not have permission to perform this action"))
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated user ID from the context.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
