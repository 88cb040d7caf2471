package facility

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
	CreateBed(ctx context.Context, req *model.CreateBedRequest) (*model.Bed, error)
	SetBedStatus(ctx context.Context, id uuid.UUID, status model.BedStatus) (*model.Bed, error)
	BedBoard(ctx context.Context) (*model.BedBoard, error)
	Admit(ctx context.Context, req *model.AdmitPatientRequest) (*model.Admission, error)
	Discharge(ctx context.Context, admissionID uuid.UUID, req *model.DischargePatientRequest) (*model.Admission, error)
	GetAdmission(ctx context.Context, id uuid.UUID) (*model.Admission, error)
	ListAdmissions(ctx context.Context, filters *model.AdmissionFilters) ([]*model.Admission, int, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	beds := r.Group("/beds")
	{
		beds.POST("", auth.RequirePermission(model.PermFacilityManage), h.CreateBed)
		beds.GET("/board", auth.RequirePermission(model.PermFacilityView), h.BedBoard)
		beds.PUT("/:id/status", auth.RequirePermission(model.PermFacilityManage), h.SetBedStatus)
	}

	admissions := r.Group("/admissions")
	{
		admissions.POST("", auth.RequirePermission(model.PermFacilityManage), h.Admit)
		admissions.GET("", auth.RequirePermission(model.PermFacilityView), h.ListAdmissions)
		admissions.GET("/:id", auth.RequirePermission(model.PermFacilityView), h.GetAdmission)
		admissions.POST("/:id/discharge", auth.RequirePermission(model.PermFacilityManage), h.Discharge)
	}
}

func (h *Handler) CreateBed(c *gin.Context) {
	var req model.CreateBedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}

	bed, err := h.service.CreateBed(c.Request.Context(), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Created(c, bed)
}

func (h *Handler) SetBedStatus(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	var req model.SetBedStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}

	bed, err := h.service.SetBedStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.OK(c, bed)
}

func (h *Handler) BedBoard(c *gin.Context) {
	board, err := h.service.BedBoard(c.Request.Context())
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.OK(c, board)
}

func (h *Handler) Admit(c *gin.Context) {
	var req model.AdmitPatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}

	admission, err := h.service.Admit(c.Request.Context(), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Created(c, admission)
}

func (h *Handler) Discharge(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	var req model.DischargePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}

	admission, err := h.service.Discharge(c.Request.Context(), id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.OK(c, admission)
}

func (h *Handler) GetAdmission(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	admission, err := h.service.GetAdmission(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.OK(c, admission)
}

func (h *Handler) ListAdmissions(c *gin.Context) {
	filters := &model.AdmissionFilters{
		Status: model.AdmissionStatus(c.Query("status")),
	}
	if raw := c.Query("patient_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			handler.Error(c, apperror.Validation("invalid patient_id"))
			return
		}
		filters.PatientID = id
	}
	if err := c.ShouldBindQuery(&filters.Pagination); err != nil {
		handler.BindError(c, err)
		return
	}
	filters.Normalize()

	admissions, total, err := h.service.ListAdmissions(c.Request.Context(), filters)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.List(c, admissions, total, filters.Page, filters.PageSize)
}
