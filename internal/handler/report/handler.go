package report

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/alsalam/hospital-api/internal/handler"
	"github.com/alsalam/hospital-api/internal/middleware"
	"github.com/alsalam/hospital-api/internal/model"
	reportsvc "github.com/alsalam/hospital-api/internal/service/report"
	"github.com/alsalam/hospital-api/pkg/apperror"
)

type Service interface {
	Dashboard(ctx context.Context, r model.DateRange) (*model.DashboardStats, error)
	Revenue(ctx context.Context, r model.DateRange) (*model.RevenueStats, error)
	MonthlyRevenue(ctx context.Context, months int) ([]*model.MonthlyRevenue, error)
	Patients(ctx context.Context, r model.DateRange) (*model.PatientStats, error)
	MonthlyPatients(ctx context.Context, months int) ([]*model.MonthlyCount, error)
	Appointments(ctx context.Context, r model.DateRange) (*model.AppointmentStats, error)
	Occupancy(ctx context.Context) (*model.OccupancyStats, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	reports := r.Group("/reports", auth.RequirePermission(model.PermReportsView))
	{
		reports.GET("/dashboard", h.Dashboard)
		reports.GET("/revenue", h.Revenue)
		reports.GET("/revenue/monthly", h.MonthlyRevenue)
		reports.GET("/patients", h.Patients)
		reports.GET("/patients/monthly", h.MonthlyPatients)
		reports.GET("/appointments", h.Appointments)
		reports.GET("/occupancy", h.Occupancy)
	}
}

func (h *Handler) Dashboard(c *gin.Context) {
	r, ok := dateRange(c)
	if !ok {
		return
	}

	stats, err := h.service.Dashboard(c.Request.Context(), r)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.OK(c, stats)
}

func (h *Handler) Revenue(c *gin.Context) {
	r, ok := dateRange(c)
	if !ok {
		return
	}

	stats, err := h.service.Revenue(c.Request.Context(), r)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.OK(c, stats)
}

func (h *Handler) MonthlyRevenue(c *gin.Context) {
	months, ok := monthsParam(c)
	if !ok {
		return
	}

	rows, err := h.service.MonthlyRevenue(c.Request.Context(), months)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.OK(c, rows)
}

func (h *Handler) Patients(c *gin.Context) {
	r, ok := dateRange(c)
	if !ok {
		return
	}

	stats, err := h.service.Patients(c.Request.Context(), r)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.OK(c, stats)
}

func (h *Handler) MonthlyPatients(c *gin.Context) {
	months, ok := monthsParam(c)
	if !ok {
		return
	}

	rows, err := h.service.MonthlyPatients(c.Request.Context(), months)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.OK(c, rows)
}

func (h *Handler) Appointments(c *gin.Context) {
	r, ok := dateRange(c)
	if !ok {
		return
	}

	stats, err := h.service.Appointments(c.Request.Context(), r)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.OK(c, stats)
}

func (h *Handler) Occupancy(c *gin.Context) {
	stats, err := h.service.Occupancy(c.Request.Context())
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.OK(c, stats)
}

// dateRange reads start/end query params (YYYY-MM-DD), defaulting to the
// trailing 30 days. An end before the start is rejected.
func dateRange(c *gin.Context) (model.DateRange, bool) {
	r := reportsvc.DefaultRange(time.Now())

	if raw := c.Query("start"); raw != "" {
		start, err := time.Parse("2006-01-02", raw)
		if err != nil {
			handler.Error(c, apperror.Validation("start must be YYYY-MM-DD"))
			return model.DateRange{}, false
		}
		r.Start = start
	}
	if raw := c.Query("end"); raw != "" {
		end, err := time.Parse("2006-01-02", raw)
		if err != nil {
			handler.Error(c, apperror.Validation("end must be YYYY-MM-DD"))
			return model.DateRange{}, false
		}
		r.End = end
	}
	if r.End.Before(r.Start) {
		handler.Error(c, apperror.Validation("end must not be before start"))
		return model.DateRange{}, false
	}
	return r, true
}

func monthsParam(c *gin.Context) (int, bool) {
	raw := c.Query("months")
	if raw == "" {
		return 0, true
	}
	months, err := strconv.Atoi(raw)
	if err != nil || months < 1 || months > 60 {
		handler.Error(c, apperror.Validation("months must be between 1 and 60"))
		return 0, false
	}
	return months, true
}
