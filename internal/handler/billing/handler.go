package billing

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
	CreateService(ctx context.Context, req *model.CreateServiceRequest) (*model.Service, error)
	UpdateService(ctx context.Context, id uuid.UUID, req *model.UpdateServiceRequest) (*model.Service, error)
	SetServiceActive(ctx context.Context, id uuid.UUID, active bool) error
	ListServices(ctx context.Context, activeOnly bool) ([]*model.Service, error)
	CreateInvoice(ctx context.Context, req *model.CreateInvoiceRequest) (*model.Invoice, error)
	Pay(ctx context.Context, id uuid.UUID, req *model.PayInvoiceRequest) (*model.Invoice, error)
	GetInvoice(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	DeleteInvoice(ctx context.Context, id uuid.UUID) error
	ListInvoices(ctx context.Context, filters *model.InvoiceFilters) ([]*model.Invoice, int, error)
	Summary(ctx context.Context) (*model.BillingSummary, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	billing := r.Group("/billing")

	services := billing.Group("/services")
	{
		services.POST("", auth.RequirePermission(model.PermBillingManageServices), h.CreateService)
		services.GET("", auth.RequirePermission(model.PermBillingView), h.ListServices)
		services.PUT("/:id", auth.RequirePermission(model.PermBillingManageServices), h.UpdateService)
		services.PUT("/:id/activate", auth.RequirePermission(model.PermBillingManageServices), h.ActivateService)
		services.PUT("/:id/deactivate", auth.RequirePermission(model.PermBillingManageServices), h.DeactivateService)
	}

	invoices := billing.Group("/invoices")
	{
		invoices.POST("", auth.RequirePermission(model.PermBillingCreateInvoice), h.CreateInvoice)
		invoices.GET("", auth.RequirePermission(model.PermBillingView), h.ListInvoices)
		invoices.GET("/:id", auth.RequirePermission(model.PermBillingView), h.GetInvoice)
		invoices.POST("/:id/pay", auth.RequirePermission(model.PermBillingProcessPayment), h.Pay)
		invoices.DELETE("/:id", auth.RequirePermission(model.PermBillingCreateInvoice), h.DeleteInvoice)
	}

	billing.GET("/summary", auth.RequirePermission(model.PermBillingView), h.Summary)
}

func (h *Handler) CreateService(c *gin.Context) {
	var req model.CreateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}

	service, err := h.service.CreateService(c.Request.Context(), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Created(c, service)
}

func (h *Handler) UpdateService(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}

	service, err := h.service.UpdateService(c.Request.Context(), id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.OK(c, service)
}

func (h *Handler) ActivateService(c *gin.Context) {
	h.setServiceActive(c, true)
}

func (h *Handler) DeactivateService(c *gin.Context) {
	h.setServiceActive(c, false)
}

func (h *Handler) setServiceActive(c *gin.Context, active bool) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.SetServiceActive(c.Request.Context(), id, active); err != nil {
		handler.Error(c, err)
		return
	}
	handler.NoContent(c)
}

func (h *Handler) ListServices(c *gin.Context) {
	services, err := h.service.ListServices(c.Request.Context(), c.Query("active") == "true")
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.OK(c, services)
}

func (h *Handler) CreateInvoice(c *gin.Context) {
	var req model.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}

	invoice, err := h.service.CreateInvoice(c.Request.Context(), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Created(c, invoice)
}

func (h *Handler) Pay(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	var req model.PayInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}

	invoice, err := h.service.Pay(c.Request.Context(), id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.OK(c, invoice)
}

func (h *Handler) GetInvoice(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	invoice, err := h.service.GetInvoice(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.OK(c, invoice)
}

func (h *Handler) DeleteInvoice(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteInvoice(c.Request.Context(), id); err != nil {
		handler.Error(c, err)
		return
	}
	handler.NoContent(c)
}

func (h *Handler) ListInvoices(c *gin.Context) {
	filters := &model.InvoiceFilters{
		Status:     model.InvoiceStatus(c.Query("status")),
		SearchTerm: c.Query("search"),
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

	invoices, total, err := h.service.ListInvoices(c.Request.Context(), filters)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.List(c, invoices, total, filters.Page, filters.PageSize)
}

func (h *Handler) Summary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context())
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.OK(c, summary)
}
