package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/alsalam/hospital-api/internal/model"
)

func (r *billingRepository) CreateService(ctx context.Context, service *model.Service) error {
	query := `
		INSERT INTO services (id, name, cost, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	service.CreatedAt = time.Now()
	service.UpdatedAt = service.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		service.ID, service.Name, service.Cost, service.IsActive, service.CreatedAt, service.UpdatedAt)
	return wrapErr("failed to create service", err)
}

func (r *billingRepository) GetService(ctx context.Context, id uuid.UUID) (*model.Service, error) {
	query := `SELECT * FROM services WHERE id = $1`
	var service model.Service
	if err := r.db.GetContext(ctx, &service, query, id); err != nil {
		return nil, wrapErr("failed to get service", err)
	}
	return &service, nil
}

func (r *billingRepository) UpdateService(ctx context.Context, service *model.Service) error {
	query := `UPDATE services SET name = $1, cost = $2, updated_at = $3 WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, service.Name, service.Cost, time.Now(), service.ID)
	if err != nil {
		return wrapErr("failed to update service", err)
	}
	return requireRow(result, "failed to update service")
}

func (r *billingRepository) SetServiceActive(ctx context.Context, id uuid.UUID, active bool) error {
	query := `UPDATE services SET is_active = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, active, time.Now(), id)
	if err != nil {
		return wrapErr("failed to set service active", err)
	}
	return requireRow(result, "failed to set service active")
}

func (r *billingRepository) ListServices(ctx context.Context, activeOnly bool) ([]*model.Service, error) {
	query := `SELECT * FROM services WHERE NOT $1 OR is_active ORDER BY name`
	services := []*model.Service{}
	if err := r.db.SelectContext(ctx, &services, query, activeOnly); err != nil {
		return nil, wrapErr("failed to list services", err)
	}
	return services, nil
}

// CreateInvoice inserts the invoice and its snapshot line items in one
// transaction. Items carry the service name and unit cost as of now; later
// price edits never touch them.
func (r *billingRepository) CreateInvoice(ctx context.Context, invoice *model.Invoice) error {
	return inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO invoices (id, patient_id, total_amount, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		invoice.CreatedAt = time.Now()
		invoice.UpdatedAt = invoice.CreatedAt

		_, err := tx.ExecContext(ctx, query,
			invoice.ID, invoice.PatientID, invoice.TotalAmount, invoice.Status,
			invoice.CreatedAt, invoice.UpdatedAt)
		if err != nil {
			return wrapErr("failed to create invoice", err)
		}

		for _, item := range invoice.Items {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO invoice_items (id, invoice_id, service_name, unit_cost, quantity)
				VALUES ($1, $2, $3, $4, $5)
			`, item.ID, invoice.ID, item.ServiceName, item.UnitCost, item.Quantity)
			if err != nil {
				return wrapErr("failed to create invoice item", err)
			}
		}
		return nil
	})
}

func (r *billingRepository) GetInvoice(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	query := `SELECT * FROM invoices WHERE id = $1`
	var invoice model.Invoice
	if err := r.db.GetContext(ctx, &invoice, query, id); err != nil {
		return nil, wrapErr("failed to get invoice", err)
	}

	items := []*model.InvoiceItem{}
	err := r.db.SelectContext(ctx, &items,
		`SELECT * FROM invoice_items WHERE invoice_id = $1 ORDER BY service_name`, id)
	if err != nil {
		return nil, wrapErr("failed to get invoice items", err)
	}
	invoice.Items = items
	return &invoice, nil
}

// RecordPayment persists the payment fields set by the service and emits the
// paid event in the same transaction. The status guard in the WHERE clause
// makes a racing double settlement fail cleanly; insurance_pending invoices
// stay payable until they are settled.
func (r *billingRepository) RecordPayment(ctx context.Context, invoice *model.Invoice, evt *model.OutboxEvent) error {
	return inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		query := `
			UPDATE invoices
			SET status = $1, paid_at = $2, payment_method = $3, payment_reference = $4, updated_at = $5
			WHERE id = $6 AND status <> 'paid'
		`
		result, err := tx.ExecContext(ctx, query,
			invoice.Status, invoice.PaidAt, invoice.PaymentMethod, invoice.PaymentReference,
			time.Now(), invoice.ID)
		if err != nil {
			return wrapErr("failed to record payment", err)
		}
		if err := requireRow(result, "failed to record payment"); err != nil {
			return err
		}
		return insertOutbox(ctx, tx, evt)
	})
}

func (r *billingRepository) DeleteInvoice(ctx context.Context, id uuid.UUID) error {
	return inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, id); err != nil {
			return wrapErr("failed to delete invoice items", err)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM invoices WHERE id = $1`, id)
		if err != nil {
			return wrapErr("failed to delete invoice", err)
		}
		return requireRow(result, "failed to delete invoice")
	})
}

func (r *billingRepository) ListInvoices(ctx context.Context, filters *model.InvoiceFilters) ([]*model.Invoice, int, error) {
	filters.Normalize()

	var patientID *uuid.UUID
	if filters.PatientID != uuid.Nil {
		patientID = &filters.PatientID
	}

	where := `
		FROM invoices i
		JOIN patients p ON p.id = i.patient_id
		WHERE ($1 = '' OR i.status = $1)
		  AND ($2::uuid IS NULL OR i.patient_id = $2)
		  AND ($3 = '' OR p.full_name ILIKE '%' || $3 || '%' OR p.file_number ILIKE '%' || $3 || '%')
	`
	args := []interface{}{string(filters.Status), patientID, filters.SearchTerm}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) `+where, args...); err != nil {
		return nil, 0, wrapErr("failed to count invoices", err)
	}

	query := `SELECT i.* ` + where + ` ORDER BY i.created_at DESC LIMIT $4 OFFSET $5`
	invoices := []*model.Invoice{}
	err := r.db.SelectContext(ctx, &invoices, query, append(args, filters.PageSize, filters.Offset())...)
	if err != nil {
		return nil, 0, wrapErr("failed to list invoices", err)
	}
	return invoices, total, nil
}

func (r *billingRepository) Summary(ctx context.Context) (*model.BillingSummary, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'unpaid')              AS unpaid_count,
			COUNT(*) FILTER (WHERE status = 'paid')                AS paid_count,
			COUNT(*) FILTER (WHERE status = 'insurance_pending')   AS insurance_count,
			COALESCE(SUM(total_amount) FILTER (WHERE status = 'paid'), 0)   AS total_revenue,
			COALESCE(SUM(total_amount) FILTER (WHERE status <> 'paid'), 0)  AS outstanding_total
		FROM invoices
	`
	var summary model.BillingSummary
	row := r.db.QueryRowxContext(ctx, query)
	err := row.Scan(&summary.UnpaidCount, &summary.PaidCount, &summary.InsuranceCount,
		&summary.TotalRevenue, &summary.OutstandingTotal)
	if err != nil {
		return nil, wrapErr("failed to get billing summary", err)
	}
	return &summary, nil
}
