// Package report computes the dashboard aggregates. Results are cached per
// category; write paths invalidate the categories they affect.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/alsalam/hospital-api/internal/model"
	"github.com/alsalam/hospital-api/internal/repository"
	"github.com/alsalam/hospital-api/internal/statscache"
)

const defaultTrendMonths = 12

type Service struct {
	reports repository.ReportRepository
	cache   *statscache.Cache
}

func NewService(reports repository.ReportRepository, cache *statscache.Cache) *Service {
	return &Service{reports: reports, cache: cache}
}

// Dashboard assembles the full admin dashboard for the date range. Each
// section is cached under its own category so, for example, a payment only
// flushes the revenue figures.
func (s *Service) Dashboard(ctx context.Context, r model.DateRange) (*model.DashboardStats, error) {
	revenue, err := s.Revenue(ctx, r)
	if err != nil {
		return nil, err
	}
	patients, err := s.Patients(ctx, r)
	if err != nil {
		return nil, err
	}
	appointments, err := s.Appointments(ctx, r)
	if err != nil {
		return nil, err
	}
	occupancy, err := s.Occupancy(ctx)
	if err != nil {
		return nil, err
	}

	return &model.DashboardStats{
		Revenue:      revenue,
		Patients:     patients,
		Appointments: appointments,
		Occupancy:    occupancy,
	}, nil
}

func (s *Service) Revenue(ctx context.Context, r model.DateRange) (*model.RevenueStats, error) {
	key := rangeKey(r)
	if cached, ok := s.cache.Get(statscache.CategoryRevenue, key); ok {
		return cached.(*model.RevenueStats), nil
	}

	total, count, err := s.reports.RevenueBetween(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("failed to compute revenue: %w", err)
	}
	previous, _, err := s.reports.RevenueBetween(ctx, r.PreviousPeriod())
	if err != nil {
		return nil, fmt.Errorf("failed to compute previous revenue: %w", err)
	}

	stats := &model.RevenueStats{
		Total:          total,
		PreviousPeriod: previous,
		GrowthPercent:  growthPercent(previous.InexactFloat64(), total.InexactFloat64()),
		InvoiceCount:   count,
		PeriodDays:     int(r.End.Sub(r.Start).Hours()/24) + 1,
	}
	s.cache.Set(statscache.CategoryRevenue, key, stats)
	return stats, nil
}

func (s *Service) MonthlyRevenue(ctx context.Context, months int) ([]*model.MonthlyRevenue, error) {
	if months <= 0 {
		months = defaultTrendMonths
	}
	key := fmt.Sprintf("monthly:%d", months)
	if cached, ok := s.cache.Get(statscache.CategoryRevenue, key); ok {
		return cached.([]*model.MonthlyRevenue), nil
	}

	rows, err := s.reports.MonthlyRevenue(ctx, months)
	if err != nil {
		return nil, fmt.Errorf("failed to compute monthly revenue: %w", err)
	}
	s.cache.Set(statscache.CategoryRevenue, key, rows)
	return rows, nil
}

func (s *Service) Patients(ctx context.Context, r model.DateRange) (*model.PatientStats, error) {
	key := rangeKey(r)
	if cached, ok := s.cache.Get(statscache.CategoryPatients, key); ok {
		return cached.(*model.PatientStats), nil
	}

	stats, err := s.reports.PatientStats(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("failed to compute patient stats: %w", err)
	}
	s.cache.Set(statscache.CategoryPatients, key, stats)
	return stats, nil
}

func (s *Service) MonthlyPatients(ctx context.Context, months int) ([]*model.MonthlyCount, error) {
	if months <= 0 {
		months = defaultTrendMonths
	}
	key := fmt.Sprintf("monthly:%d", months)
	if cached, ok := s.cache.Get(statscache.CategoryPatients, key); ok {
		return cached.([]*model.MonthlyCount), nil
	}

	rows, err := s.reports.MonthlyPatientCounts(ctx, months)
	if err != nil {
		return nil, fmt.Errorf("failed to compute monthly patient counts: %w", err)
	}
	s.cache.Set(statscache.CategoryPatients, key, rows)
	return rows, nil
}

func (s *Service) Appointments(ctx context.Context, r model.DateRange) (*model.AppointmentStats, error) {
	key := rangeKey(r)
	if cached, ok := s.cache.Get(statscache.CategoryAppointments, key); ok {
		return cached.(*model.AppointmentStats), nil
	}

	stats, err := s.reports.AppointmentStats(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("failed to compute appointment stats: %w", err)
	}
	s.cache.Set(statscache.CategoryAppointments, key, stats)
	return stats, nil
}

func (s *Service) Occupancy(ctx context.Context) (*model.OccupancyStats, error) {
	if cached, ok := s.cache.Get(statscache.CategoryOccupancy, "current"); ok {
		return cached.(*model.OccupancyStats), nil
	}

	stats, err := s.reports.Occupancy(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute occupancy: %w", err)
	}
	s.cache.Set(statscache.CategoryOccupancy, "current", stats)
	return stats, nil
}

func rangeKey(r model.DateRange) string {
	return r.Start.Format("2006-01-02") + ":" + r.End.Format("2006-01-02")
}

func growthPercent(previous, current float64) float64 {
	switch {
	case previous > 0:
		return (current - previous) / previous * 100
	case current > 0:
		return 100
	default:
		return 0
	}
}

// DefaultRange is the trailing 30 days ending today.
func DefaultRange(now time.Time) model.DateRange {
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return model.DateRange{Start: end.AddDate(0, 0, -29), End: end}
}
