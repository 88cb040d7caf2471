// Package billing manages the service catalog, invoices and payments.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alsalam/hospital-api/internal/model"
	"github.com/alsalam/hospital-api/internal/repository"
	"github.com/alsalam/hospital-api/internal/statscache"
	"github.com/alsalam/hospital-api/pkg/apperror"
)

type Service struct {
	billing  repository.BillingRepository
	patients repository.PatientRepository
	cache    *statscache.Cache
	now      func() time.Time
}

func NewService(billing repository.BillingRepository, patients repository.PatientRepository, cache *statscache.Cache) *Service {
	return &Service{billing: billing, patients: patients, cache: cache, now: time.Now}
}

func (s *Service) CreateService(ctx context.Context, req *model.CreateServiceRequest) (*model.Service, error) {
	if req.Cost.IsNegative() {
		return nil, apperror.Validation("service cost cannot be negative")
	}

	service := &model.Service{
		Base:     model.Base{ID: uuid.New()},
		Name:     req.Name,
		Cost:     req.Cost,
		IsActive: true,
	}
	if req.IsActive != nil {
		service.IsActive = *req.IsActive
	}

	if err := s.billing.CreateService(ctx, service); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperror.Validationf("service %q already exists", req.Name)
		}
		return nil, fmt.Errorf("failed to create service: %w", err)
	}
	return service, nil
}

// UpdateService edits the catalog entry. Existing invoices keep their
// snapshot prices and are unaffected.
func (s *Service) UpdateService(ctx context.Context, id uuid.UUID, req *model.UpdateServiceRequest) (*model.Service, error) {
	service, err := s.billing.GetService(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("service")
		}
		return nil, fmt.Errorf("failed to get service: %w", err)
	}

	if req.Name != nil {
		service.Name = *req.Name
	}
	if req.Cost != nil {
		if req.Cost.IsNegative() {
			return nil, apperror.Validation("service cost cannot be negative")
		}
		service.Cost = *req.Cost
	}

	if err := s.billing.UpdateService(ctx, service); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperror.Validationf("service %q already exists", service.Name)
		}
		return nil, fmt.Errorf("failed to update service: %w", err)
	}
	return service, nil
}

// SetServiceActive toggles catalog availability. Setting the current state
// again is a no-op.
func (s *Service) SetServiceActive(ctx context.Context, id uuid.UUID, active bool) error {
	err := s.billing.SetServiceActive(ctx, id, active)
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.NotFound("service")
	}
	if err != nil {
		return fmt.Errorf("failed to set service active: %w", err)
	}
	return nil
}

func (s *Service) ListServices(ctx context.Context, activeOnly bool) ([]*model.Service, error) {
	services, err := s.billing.ListServices(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	return services, nil
}

// CreateInvoice snapshots the selected services into line items and totals
// them. Later catalog price edits never change this invoice. Lines with an
// unknown or inactive service or a quantity below 1 are dropped; the invoice
// is rejected only when nothing valid remains.
func (s *Service) CreateInvoice(ctx context.Context, req *model.CreateInvoiceRequest) (*model.Invoice, error) {
	if _, err := s.patients.Get(ctx, req.PatientID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.Validation("patient does not exist")
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}

	invoice := &model.Invoice{
		Base:      model.Base{ID: uuid.New()},
		PatientID: req.PatientID,
		Status:    model.InvoiceStatusUnpaid,
	}

	total := decimal.Zero
	for _, line := range req.Items {
		if line.Quantity < 1 {
			continue
		}
		service, err := s.billing.GetService(ctx, line.ServiceID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to get service: %w", err)
		}
		if !service.IsActive {
			continue
		}

		item := &model.InvoiceItem{
			ID:          uuid.New(),
			InvoiceID:   invoice.ID,
			ServiceName: service.Name,
			UnitCost:    service.Cost,
			Quantity:    line.Quantity,
		}
		invoice.Items = append(invoice.Items, item)
		total = total.Add(item.LineTotal())
	}
	if len(invoice.Items) == 0 {
		return nil, apperror.Validation("invoice needs at least one valid line item")
	}
	invoice.TotalAmount = total

	if err := s.billing.CreateInvoice(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}
	s.cache.Invalidate(statscache.CategoryRevenue)
	return invoice, nil
}

// Pay settles an open invoice. The amount must cover the full total; there
// are no partial payments. Insurance payments park the invoice as
// insurance_pending instead of paid; a later cash or card payment settles the
// parked claim.
func (s *Service) Pay(ctx context.Context, id uuid.UUID, req *model.PayInvoiceRequest) (*model.Invoice, error) {
	invoice, err := s.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice.Status == model.InvoiceStatusPaid {
		return nil, apperror.Validation("invoice is already paid")
	}
	if req.AmountPaid.LessThan(invoice.TotalAmount) {
		return nil, apperror.Validationf("amount paid %s does not cover the invoice total %s",
			req.AmountPaid.StringFixed(2), invoice.TotalAmount.StringFixed(2))
	}

	method := req.Method
	invoice.PaymentMethod = &method
	if req.Reference != "" {
		ref := req.Reference
		invoice.PaymentReference = &ref
	}

	var evt *model.OutboxEvent
	if req.Method == model.PaymentMethodInsurance {
		invoice.Status = model.InvoiceStatusInsurancePending
	} else {
		paidAt := s.now()
		invoice.Status = model.InvoiceStatusPaid
		invoice.PaidAt = &paidAt

		evt, err = paidEvent(invoice, req.Method)
		if err != nil {
			return nil, err
		}
	}

	if err := s.billing.RecordPayment(ctx, invoice, evt); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.Conflict(err)
		}
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	s.cache.Invalidate(statscache.CategoryRevenue)
	return invoice, nil
}

func (s *Service) GetInvoice(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	invoice, err := s.billing.GetInvoice(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("invoice")
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return invoice, nil
}

// DeleteInvoice removes a mistaken invoice. Paid invoices are permanent
// records; insurance_pending ones can still be pulled back before the claim
// settles.
func (s *Service) DeleteInvoice(ctx context.Context, id uuid.UUID) error {
	invoice, err := s.GetInvoice(ctx, id)
	if err != nil {
		return err
	}
	if invoice.Status == model.InvoiceStatusPaid {
		return apperror.Validation("paid invoices cannot be deleted")
	}
	if err := s.billing.DeleteInvoice(ctx, id); err != nil {
		return fmt.Errorf("failed to delete invoice: %w", err)
	}
	s.cache.Invalidate(statscache.CategoryRevenue)
	return nil
}

func (s *Service) ListInvoices(ctx context.Context, filters *model.InvoiceFilters) ([]*model.Invoice, int, error) {
	invoices, total, err := s.billing.ListInvoices(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list invoices: %w", err)
	}
	return invoices, total, nil
}

func (s *Service) Summary(ctx context.Context) (*model.BillingSummary, error) {
	summary, err := s.billing.Summary(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get billing summary: %w", err)
	}
	return summary, nil
}

func paidEvent(invoice *model.Invoice, method string) (*model.OutboxEvent, error) {
	payload, err := json.Marshal(model.InvoiceEventPayload{
		InvoiceID:   invoice.ID,
		PatientID:   invoice.PatientID,
		TotalAmount: invoice.TotalAmount.StringFixed(2),
		Method:      method,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode event payload: %w", err)
	}
	return &model.OutboxEvent{
		ID:        uuid.New(),
		EventType: model.EventInvoicePaid,
		Payload:   payload,
	}, nil
}
