package appointment

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/alsalam/hospital-api/internal/handler"
	"github.com/alsalam/hospital-api/internal/middleware"
	"github.com/alsalam/hospital-api/internal/model"
	"github.com/alsalam/hospital-api/pkg/apperror"
)

type Service interface {
	Book(ctx context.Context, req *model.BookAppointmentRequest) (*model.Appointment, error)
	CheckAvailability(ctx context.Context, doctorID uuid.UUID, at time.Time, excludeID *uuid.UUID) (*model.Availability, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	Confirm(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	MarkNoShow(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	Reschedule(ctx context.Context, id uuid.UUID, req *model.RescheduleAppointmentRequest) (*model.Appointment, error)
	List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, int, error)
	DoctorDashboard(ctx context.Context, doctorID uuid.UUID) (*model.DoctorDashboard, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	appointments := r.Group("/appointments")
	{
		appointments.POST("", auth.RequirePermission(model.PermAppointmentsCreate), h.Book)
		appointments.GET("", auth.RequirePermission(model.PermAppointmentsView), h.List)
		appointments.GET("/availability", auth.RequirePermission(model.PermAppointmentsView), h.CheckAvailability)
		appointments.GET("/dashboard", auth.RequirePermission(model.PermAppointmentsAttend), h.DoctorDashboard)
		appointments.GET("/:id", auth.RequirePermission(model.PermAppointmentsView), h.Get)
		appointments.POST("/:id/confirm", auth.RequirePermission(model.PermAppointmentsUpdate), h.Confirm)
		appointments.POST("/:id/cancel", auth.RequirePermission(model.PermAppointmentsUpdate), h.Cancel)
		appointments.POST("/:id/no-show", auth.RequirePermission(model.PermAppointmentsUpdate), h.MarkNoShow)
		appointments.PUT("/:id/reschedule", auth.RequirePermission(model.PermAppointmentsUpdate), h.Reschedule)
	}
}

func (h *Handler) Book(c *gin.Context) {
	var req model.BookAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}

	appt, err := h.service.Book(c.Request.Context(), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Created(c, appt)
}

// CheckAvailability answers whether a doctor is free at the proposed time.
// Pass exclude=<appointment id> when probing for a reschedule.
func (h *Handler) CheckAvailability(c *gin.Context) {
	doctorID, err := uuid.Parse(c.Query("doctor_id"))
	if err != nil {
		handler.Error(c, apperror.Validation("invalid doctor_id"))
		return
	}
	at, err := time.Parse(time.RFC3339, c.Query("at"))
	if err != nil {
		handler.Error(c, apperror.Validation("at must be an RFC3339 timestamp"))
		return
	}

	var excludeID *uuid.UUID
	if raw := c.Query("exclude"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			handler.Error(c, apperror.Validation("invalid exclude"))
			return
		}
		excludeID = &id
	}

	availability, err := h.service.CheckAvailability(c.Request.Context(), doctorID, at, excludeID)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.OK(c, availability)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	appt, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.OK(c, appt)
}

func (h *Handler) Confirm(c *gin.Context) {
	h.transition(c, h.service.Confirm)
}

func (h *Handler) Cancel(c *gin.Context) {
	h.transition(c, h.service.Cancel)
}

func (h *Handler) MarkNoShow(c *gin.Context) {
	h.transition(c, h.service.MarkNoShow)
}

func (h *Handler) transition(c *gin.Context, fn func(context.Context, uuid.UUID) (*model.Appointment, error)) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	appt, err := fn(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.OK(c, appt)
}

func (h *Handler) Reschedule(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	var req model.RescheduleAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}

	appt, err := h.service.Reschedule(c.Request.Context(), id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.OK(c, appt)
}

func (h *Handler) List(c *gin.Context) {
	filters := &model.AppointmentFilters{
		Status: model.AppointmentStatus(c.Query("status")),
	}
	if raw := c.Query("doctor_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			handler.Error(c, apperror.Validation("invalid doctor_id"))
			return
		}
		filters.DoctorID = id
	}
	if raw := c.Query("patient_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			handler.Error(c, apperror.Validation("invalid patient_id"))
			return
		}
		filters.PatientID = id
	}
	if raw := c.Query("date"); raw != "" {
		date, err := time.Parse("2006-01-02", raw)
		if err != nil {
			handler.Error(c, apperror.Validation("date must be YYYY-MM-DD"))
			return
		}
		filters.Date = &date
	}
	if err := c.ShouldBindQuery(&filters.Pagination); err != nil {
		handler.BindError(c, err)
		return
	}
	filters.Normalize()

	appointments, total, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.List(c, appointments, total, filters.Page, filters.PageSize)
}

// DoctorDashboard renders the signed-in doctor's day.
func (h *Handler) DoctorDashboard(c *gin.Context) {
	doctorID, ok := middleware.UserID(c)
	if !ok {
		handler.Error(c, apperror.Unauthorized("authentication required"))
		return
	}

	dashboard, err := h.service.DoctorDashboard(c.Request.Context(), doctorID)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.OK(c, dashboard)
}
