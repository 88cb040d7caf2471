package clinical

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/alsalam/hospital-api/internal/handler"
	"github.com/alsalam/hospital-api/internal/middleware"
	"github.com/alsalam/hospital-api/internal/model"
	"github.com/alsalam/hospital-api/pkg/apperror"
)

type Service interface {
	FileVisit(ctx context.Context, appointmentID, doctorID uuid.UUID, req *model.FileVisitRequest) (*model.MedicalVisit, error)
	GetVisit(ctx context.Context, id uuid.UUID) (*model.MedicalVisit, error)
	GetVisitByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.MedicalVisit, error)
	PatientHistory(ctx context.Context, patientID uuid.UUID, limit int) ([]*model.MedicalVisit, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	r.POST("/appointments/:id/visit", auth.RequirePermission(model.PermAppointmentsAttend), h.FileVisit)
	r.GET("/appointments/:id/visit", auth.RequirePermission(model.PermPatientsView), h.GetVisitByAppointment)
	r.GET("/visits/:id", auth.RequirePermission(model.PermPatientsView), h.GetVisit)
	r.GET("/patients/:id/visits", auth.RequirePermission(model.PermPatientsView), h.PatientHistory)
}

// FileVisit records the clinical outcome of the appointment and completes
// it. Only the assigned doctor may file.
func (h *Handler) FileVisit(c *gin.Context) {
	appointmentID, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}
	doctorID, ok := middleware.UserID(c)
	if !ok {
		handler.Error(c, apperror.Unauthorized("authentication required"))
		return
	}

	var req model.FileVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}

	visit, err := h.service.FileVisit(c.Request.Context(), appointmentID, doctorID, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Created(c, visit)
}

func (h *Handler) GetVisit(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	visit, err := h.service.GetVisit(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.OK(c, visit)
}

func (h *Handler) GetVisitByAppointment(c *gin.Context) {
	appointmentID, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	visit, err := h.service.GetVisitByAppointment(c.Request.Context(), appointmentID)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.OK(c, visit)
}

func (h *Handler) PatientHistory(c *gin.Context) {
	patientID, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			handler.Error(c, apperror.Validation("limit must be a positive integer"))
			return
		}
		limit = n
	}

	visits, err := h.service.PatientHistory(c.Request.Context(), patientID, limit)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.OK(c, visits)
}
