package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceStatusUnpaid           InvoiceStatus = "unpaid"
	InvoiceStatusPaid             InvoiceStatus = "paid"
	InvoiceStatusInsurancePending InvoiceStatus = "insurance_pending"
)

const (
	PaymentMethodCash      = "cash"
	PaymentMethodCard      = "card"
	PaymentMethodTransfer  = "transfer"
	PaymentMethodInsurance = "insurance"
)

// Service is a billable hospital service with its current price. Invoices
// snapshot the name and cost at creation time, so later price edits never
// alter historical invoices.
type Service struct {
	Base
	Name     string          `db:"name" json:"name"`
	Cost     decimal.Decimal `db:"cost" json:"cost"`
	IsActive bool            `db:"is_active" json:"is_active"`
}

type Invoice struct {
	Base
	PatientID        uuid.UUID       `db:"patient_id" json:"patient_id"`
	TotalAmount      decimal.Decimal `db:"total_amount" json:"total_amount"`
	Status           InvoiceStatus   `db:"status" json:"status"`
	PaidAt           *time.Time      `db:"paid_at" json:"paid_at,omitempty"`
	PaymentMethod    *string         `db:"payment_method" json:"payment_method,omitempty"`
	PaymentReference *string         `db:"payment_reference" json:"payment_reference,omitempty"`
	Items            []*InvoiceItem  `db:"-" json:"items,omitempty"`
}

type InvoiceItem struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	InvoiceID   uuid.UUID       `db:"invoice_id" json:"invoice_id"`
	ServiceName string          `db:"service_name" json:"service_name"`
	UnitCost    decimal.Decimal `db:"unit_cost" json:"unit_cost"`
	Quantity    int             `db:"quantity" json:"quantity"`
}

// LineTotal is unit cost times quantity.
func (i *InvoiceItem) LineTotal() decimal.Decimal {
	return i.UnitCost.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type CreateServiceRequest struct {
	Name     string          `json:"name" binding:"required,max=200"`
	Cost     decimal.Decimal `json:"cost" binding:"required"`
	IsActive *bool           `json:"is_active"`
}

type UpdateServiceRequest struct {
	Name *string          `json:"name" binding:"omitempty,max=200"`
	Cost *decimal.Decimal `json:"cost"`
}

type InvoiceLineRequest struct {
	ServiceID uuid.UUID `json:"service_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1"`
}

type CreateInvoiceRequest struct {
	PatientID uuid.UUID            `json:"patient_id" binding:"required"`
	Items     []InvoiceLineRequest `json:"items" binding:"required,dive"`
}

type PayInvoiceRequest struct {
	AmountPaid decimal.Decimal `json:"amount_paid" binding:"required"`
	Method     string          `json:"method" binding:"required,oneof=cash card transfer insurance"`
	Reference  string          `json:"reference" binding:"max=100"`
}

type InvoiceFilters struct {
	Status     InvoiceStatus
	PatientID  uuid.UUID
	SearchTerm string
	Pagination
}

// BillingSummary carries the aggregate figures shown next to the invoice list.
type BillingSummary struct {
	UnpaidCount      int             `json:"unpaid_count"`
	PaidCount        int             `json:"paid_count"`
	InsuranceCount   int             `json:"insurance_count"`
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	OutstandingTotal decimal.Decimal `json:"outstanding_total"`
}
