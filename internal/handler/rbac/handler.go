package rbac

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/alsalam/hospital-api/internal/handler"
	"github.com/alsalam/hospital-api/internal/middleware"
	"github.com/alsalam/hospital-api/internal/model"
)

type Service interface {
	CreateRole(ctx context.Context, req *model.CreateRoleRequest) (*model.RoleDetail, error)
	GetRole(ctx context.Context, id uuid.UUID) (*model.RoleDetail, error)
	UpdateRole(ctx context.Context, id uuid.UUID, req *model.UpdateRoleRequest) (*model.RoleDetail, error)
	DeleteRole(ctx context.Context, id uuid.UUID) error
	ListRoles(ctx context.Context) ([]*model.RoleDetail, error)
	CreatePermission(ctx context.Context, req *model.CreatePermissionRequest) (*model.Permission, error)
	UpdatePermission(ctx context.Context, id uuid.UUID, req *model.UpdatePermissionRequest) (*model.Permission, error)
	DeletePermission(ctx context.Context, id uuid.UUID) error
	ListPermissions(ctx context.Context) ([]*model.Permission, error)
	Grant(ctx context.Context, roleID, permissionID uuid.UUID) error
	Revoke(ctx context.Context, roleID, permissionID uuid.UUID) error
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	roles := r.Group("/roles", auth.RequirePermission(model.PermRolesManage))
	{
		roles.POST("", h.CreateRole)
		roles.GET("", h.ListRoles)
		roles.GET("/:id", h.GetRole)
		roles.PUT("/:id", h.UpdateRole)
		roles.DELETE("/:id", h.DeleteRole)
		roles.POST("/:id/permissions/:permissionId", h.Grant)
		roles.DELETE("/:id/permissions/:permissionId", h.Revoke)
	}

	permissions := r.Group("/permissions", auth.RequirePermission(model.PermRolesManage))
	{
		permissions.POST("", h.CreatePermission)
		permissions.GET("", h.ListPermissions)
		permissions.PUT("/:id", h.UpdatePermission)
		permissions.DELETE("/:id", h.DeletePermission)
	}
}

func (h *Handler) CreateRole(c *gin.Context) {
	var req model.CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}

	role, err := h.service.CreateRole(c.Request.Context(), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Created(c, role)
}

func (h *Handler) GetRole(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	role, err := h.service.GetRole(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.OK(c, role)
}

func (h *Handler) UpdateRole(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}

	role, err := h.service.UpdateRole(c.Request.Context(), id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.OK(c, role)
}

func (h *Handler) DeleteRole(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteRole(c.Request.Context(), id); err != nil {
		handler.Error(c, err)
		return
	}
	handler.NoContent(c)
}

func (h *Handler) ListRoles(c *gin.Context) {
	roles, err := h.service.ListRoles(c.Request.Context())
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.OK(c, roles)
}

func (h *Handler) CreatePermission(c *gin.Context) {
	var req model.CreatePermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}

	permission, err := h.service.CreatePermission(c.Request.Context(), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Created(c, permission)
}

func (h *Handler) UpdatePermission(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	var req model.UpdatePermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}

	permission, err := h.service.UpdatePermission(c.Request.Context(), id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.OK(c, permission)
}

func (h *Handler) DeletePermission(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeletePermission(c.Request.Context(), id); err != nil {
		handler.Error(c, err)
		return
	}
	handler.NoContent(c)
}

// ListPermissions returns the catalog grouped by category for the role
// editor screen.
func (h *Handler) ListPermissions(c *gin.Context) {
	permissions, err := h.service.ListPermissions(c.Request.Context())
	if err != nil {
		handler.Error(c, err)
		return
	}

	grouped := make(map[string][]*model.Permission)
	for _, p := range permissions {
		category := p.Category
		if category == "" {
			category = "general"
		}
		grouped[category] = append(grouped[category], p)
	}
	handler.OK(c, grouped)
}

func (h *Handler) Grant(c *gin.Context) {
	roleID, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}
	permissionID, ok := handler.ParseID(c, "permissionId")
	if !ok {
		return
	}

	if err := h.service.Grant(c.Request.Context(), roleID, permissionID); err != nil {
		handler.Error(c, err)
		return
	}
	handler.NoContent(c)
}

func (h *Handler) Revoke(c *gin.Context) {
	roleID, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}
	permissionID, ok := handler.ParseID(c, "permissionId")
	if !ok {
		return
	}

	if err := h.service.Revoke(c.Request.Context(), roleID, permissionID); err != nil {
		handler.Error(c, err)
		return
	}
	handler.NoContent(c)
}
