package postgres

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/alsalam/hospital-api/internal/model"
)

// RevenueBetween sums paid invoices whose payment date falls inside the
// range, end day inclusive.
func (r *reportRepository) RevenueBetween(ctx context.Context, dr model.DateRange) (decimal.Decimal, int, error) {
	query := `
		SELECT COALESCE(SUM(total_amount), 0), COUNT(*)
		FROM invoices
		WHERE status = 'paid' AND paid_at >= $1 AND paid_at < $2
	`
	var total decimal.Decimal
	var count int
	row := r.db.QueryRowxContext(ctx, query, dr.Start, dr.End.AddDate(0, 0, 1))
	if err := row.Scan(&total, &count); err != nil {
		return decimal.Zero, 0, wrapErr("failed to sum revenue", err)
	}
	return total, count, nil
}

func (r *reportRepository) MonthlyRevenue(ctx context.Context, months int) ([]*model.MonthlyRevenue, error) {
	query := `
		SELECT to_char(paid_at, 'YYYY-MM') AS month,
		       COALESCE(SUM(total_amount), 0) AS revenue,
		       COUNT(*) AS invoice_count
		FROM invoices
		WHERE status = 'paid'
		  AND paid_at >= date_trunc('month', now()) - ($1 - 1) * interval '1 month'
		GROUP BY 1
		ORDER BY 1
	`
	rows := []*model.MonthlyRevenue{}
	if err := r.db.SelectContext(ctx, &rows, query, months); err != nil {
		return nil, wrapErr("failed to get monthly revenue", err)
	}
	return rows, nil
}

func (r *reportRepository) PatientStats(ctx context.Context, dr model.DateRange) (*model.PatientStats, error) {
	stats := &model.PatientStats{ByGender: map[string]int{}}

	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE created_at >= $1 AND created_at < $2)
		FROM patients
	`
	row := r.db.QueryRowxContext(ctx, query, dr.Start, dr.End.AddDate(0, 0, 1))
	if err := row.Scan(&stats.Total, &stats.NewInPeriod); err != nil {
		return nil, wrapErr("failed to get patient stats", err)
	}

	genderRows, err := r.db.QueryxContext(ctx,
		`SELECT COALESCE(NULLIF(gender, ''), 'unknown'), COUNT(*) FROM patients GROUP BY 1`)
	if err != nil {
		return nil, wrapErr("failed to get patient gender stats", err)
	}
	defer genderRows.Close()

	for genderRows.Next() {
		var gender string
		var count int
		if err := genderRows.Scan(&gender, &count); err != nil {
			return nil, wrapErr("failed to get patient gender stats", err)
		}
		stats.ByGender[gender] = count
	}
	return stats, genderRows.Err()
}

func (r *reportRepository) MonthlyPatientCounts(ctx context.Context, months int) ([]*model.MonthlyCount, error) {
	query := `
		SELECT to_char(created_at, 'YYYY-MM') AS month, COUNT(*) AS count
		FROM patients
		WHERE created_at >= date_trunc('month', now()) - ($1 - 1) * interval '1 month'
		GROUP BY 1
		ORDER BY 1
	`
	rows := []*model.MonthlyCount{}
	if err := r.db.SelectContext(ctx, &rows, query, months); err != nil {
		return nil, wrapErr("failed to get monthly patient counts", err)
	}
	return rows, nil
}

func (r *reportRepository) AppointmentStats(ctx context.Context, dr model.DateRange) (*model.AppointmentStats, error) {
	query := `
		SELECT status, COUNT(*)
		FROM appointments
		WHERE scheduled_at >= $1 AND scheduled_at < $2
		GROUP BY status
	`
	rows, err := r.db.QueryxContext(ctx, query, dr.Start, dr.End.AddDate(0, 0, 1))
	if err != nil {
		return nil, wrapErr("failed to get appointment stats", err)
	}
	defer rows.Close()

	stats := &model.AppointmentStats{ByStatus: map[model.AppointmentStatus]int{}}
	for rows.Next() {
		var status model.AppointmentStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, wrapErr("failed to get appointment stats", err)
		}
		stats.ByStatus[status] = count
		stats.Total += count
	}
	return stats, rows.Err()
}

func (r *reportRepository) Occupancy(ctx context.Context) (*model.OccupancyStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM beds)                                  AS total_beds,
			(SELECT COUNT(*) FROM beds WHERE status = 'occupied')        AS occupied,
			(SELECT COUNT(*) FROM beds WHERE status = 'available')       AS available,
			(SELECT COUNT(*) FROM beds WHERE status = 'maintenance')     AS maintenance,
			(SELECT COUNT(*) FROM admissions WHERE status = 'active')    AS active_admissions
	`
	var stats model.OccupancyStats
	row := r.db.QueryRowxContext(ctx, query)
	err := row.Scan(&stats.TotalBeds, &stats.Occupied, &stats.Available,
		&stats.Maintenance, &stats.ActiveAdmissions)
	if err != nil {
		return nil, wrapErr("failed to get occupancy stats", err)
	}
	if stats.TotalBeds > 0 {
		stats.OccupancyPercent = float64(stats.Occupied) / float64(stats.TotalBeds) * 100
	}
	return &stats, nil
}
