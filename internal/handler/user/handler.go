package user

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/alsalam/hospital-api/internal/handler"
	"github.com/alsalam/hospital-api/internal/middleware"
	"github.com/alsalam/hospital-api/internal/model"
	"github.com/alsalam/hospital-api/pkg/apperror"
)

type Service interface {
	Create(ctx context.Context, req *model.CreateUserRequest) (*model.User, error)
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)
	Update(ctx context.Context, id uuid.UUID, req *model.UpdateUserRequest) (*model.User, error)
	SetPassword(ctx context.Context, id uuid.UUID, req *model.SetPasswordRequest) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	Delete(ctx context.Context, id, actorID uuid.UUID) error
	List(ctx context.Context, filters *model.UserFilters) ([]*model.User, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	users := r.Group("/users", auth.RequirePermission(model.PermUsersManage))
	{
		users.POST("", h.Create)
		users.GET("", h.List)
		users.GET("/:id", h.Get)
		users.PUT("/:id", h.Update)
		users.PUT("/:id/password", h.SetPassword)
		users.PUT("/:id/activate", h.Activate)
		users.PUT("/:id/deactivate", h.Deactivate)
		users.DELETE("/:id", h.Delete)
	}
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}

	user, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Created(c, user)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	user, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.OK(c, user)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}

	user, err := h.service.Update(c.Request.Context(), id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.OK(c, user)
}

func (h *Handler) SetPassword(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	var req model.SetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}

	if err := h.service.SetPassword(c.Request.Context(), id, &req); err != nil {
		handler.Error(c, err)
		return
	}
	handler.OK(c, gin.H{"message": "password updated"})
}

func (h *Handler) Activate(c *gin.Context) {
	h.setActive(c, true)
}

func (h *Handler) Deactivate(c *gin.Context) {
	h.setActive(c, false)
}

func (h *Handler) setActive(c *gin.Context, active bool) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	if !active {
		if actorID, ok := middleware.UserID(c); ok && actorID == id {
			handler.Error(c, apperror.Validation("you cannot deactivate your own account"))
			return
		}
	}

	if err := h.service.SetActive(c.Request.Context(), id, active); err != nil {
		handler.Error(c, err)
		return
	}
	handler.NoContent(c)
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}
	actorID, ok := middleware.UserID(c)
	if !ok {
		handler.Error(c, apperror.Unauthorized("authentication required"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), id, actorID); err != nil {
		handler.Error(c, err)
		return
	}
	handler.NoContent(c)
}

func (h *Handler) List(c *gin.Context) {
	filters := &model.UserFilters{
		SearchTerm: c.Query("search"),
		ActiveOnly: c.Query("active") == "true",
	}
	if raw := c.Query("role_id"); raw != "" {
		roleID, err := uuid.Parse(raw)
		if err != nil {
			handler.Error(c, apperror.Validation("invalid role_id"))
			return
		}
		filters.RoleID = roleID
	}

	users, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.OK(c, users)
}
