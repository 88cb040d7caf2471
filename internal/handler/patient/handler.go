package patient

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/alsalam/hospital-api/internal/handler"
	"github.com/alsalam/hospital-api/internal/middleware"
	"github.com/alsalam/hospital-api/internal/model"
)

type Service interface {
	Register(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	GetByFileNumber(ctx context.Context, fileNumber string) (*model.Patient, error)
	Update(ctx context.Context, id uuid.UUID, req *model.UpdatePatientRequest) (*model.Patient, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, int, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	patients := r.Group("/patients")
	{
		patients.POST("", auth.RequirePermission(model.PermPatientsCreate), h.Register)
		patients.GET("", auth.RequirePermission(model.PermPatientsView), h.List)
		patients.GET("/:id", auth.RequirePermission(model.PermPatientsView), h.Get)
		patients.GET("/file/:fileNumber", auth.RequirePermission(model.PermPatientsView), h.GetByFileNumber)
		patients.PUT("/:id", auth.RequirePermission(model.PermPatientsUpdate), h.Update)
		patients.DELETE("/:id", auth.RequirePermission(model.PermPatientsDelete), h.Delete)
	}
}

func (h *Handler) Register(c *gin.Context) {
	var req model.CreatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}

	patient, err := h.service.Register(c.Request.Context(), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Created(c, patient)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	patient, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.OK(c, patient)
}

func (h *Handler) GetByFileNumber(c *gin.Context) {
	patient, err := h.service.GetByFileNumber(c.Request.Context(), c.Param("fileNumber"))
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.OK(c, patient)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	var req model.UpdatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}

	patient, err := h.service.Update(c.Request.Context(), id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.OK(c, patient)
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		handler.Error(c, err)
		return
	}
	handler.NoContent(c)
}

func (h *Handler) List(c *gin.Context) {
	filters := &model.PatientFilters{SearchTerm: c.Query("search")}
	if err := c.ShouldBindQuery(&filters.Pagination); err != nil {
		handler.BindError(c, err)
		return
	}
	filters.Normalize()

	patients, total, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.List(c, patients, total, filters.Page, filters.PageSize)
}
