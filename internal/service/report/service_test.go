package report

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alsalam/hospital-api/internal/model"
	"github.com/alsalam/hospital-api/internal/repository"
	"github.com/alsalam/hospital-api/internal/statscache"
)

type fakeReportRepo struct {
	repository.ReportRepository
	revenueByStart map[string]decimal.Decimal
	revenueCalls   int
	occupancyCalls int
}

func (f *fakeReportRepo) RevenueBetween(_ context.Context, r model.DateRange) (decimal.Decimal, int, error) {
	f.revenueCalls++
	if v, ok := f.revenueByStart[r.Start.Format("2006-01-02")]; ok {
		return v, 3, nil
	}
	return decimal.Zero, 0, nil
}

func (f *fakeReportRepo) PatientStats(_ context.Context, _ model.DateRange) (*model.PatientStats, error) {
	return &model.PatientStats{Total: 120, NewInPeriod: 8, ByGender: map[string]int{"F": 70, "M": 50}}, nil
}

func (f *fakeReportRepo) AppointmentStats(_ context.Context, _ model.DateRange) (*model.AppointmentStats, error) {
	return &model.AppointmentStats{
		Total: 40,
		ByStatus: map[model.AppointmentStatus]int{
			model.AppointmentStatusCompleted: 30,
			model.AppointmentStatusCancelled: 10,
		},
	}, nil
}

func (f *fakeReportRepo) Occupancy(_ context.Context) (*model.OccupancyStats, error) {
	f.occupancyCalls++
	return &model.OccupancyStats{TotalBeds: 20, Occupied: 15, Available: 3, Maintenance: 2, OccupancyPercent: 75, ActiveAdmissions: 15}, nil
}

func testRange() model.DateRange {
	return model.DateRange{
		Start: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 3, 30, 0, 0, 0, 0, time.UTC),
	}
}

func TestRevenue_GrowthAgainstPreviousPeriod(t *testing.T) {
	r := testRange()
	repo := &fakeReportRepo{revenueByStart: map[string]decimal.Decimal{
		"2025-03-01": decimal.NewFromInt(1500), // current period
		"2025-01-30": decimal.NewFromInt(1000), // previous 30 days
	}}
	svc := NewService(repo, statscache.New(time.Hour, nil))

	stats, err := svc.Revenue(context.Background(), r)
	require.NoError(t, err)
	assert.True(t, stats.Total.Equal(decimal.NewFromInt(1500)))
	assert.True(t, stats.PreviousPeriod.Equal(decimal.NewFromInt(1000)))
	assert.InDelta(t, 50.0, stats.GrowthPercent, 0.001)
	assert.Equal(t, 30, stats.PeriodDays)
}

func TestRevenue_GrowthFromZero(t *testing.T) {
	repo := &fakeReportRepo{revenueByStart: map[string]decimal.Decimal{
		"2025-03-01": decimal.NewFromInt(500),
	}}
	svc := NewService(repo, statscache.New(time.Hour, nil))

	stats, err := svc.Revenue(context.Background(), testRange())
	require.NoError(t, err)
	assert.InDelta(t, 100.0, stats.GrowthPercent, 0.001)
}

func TestRevenue_CachedUntilInvalidated(t *testing.T) {
	repo := &fakeReportRepo{revenueByStart: map[string]decimal.Decimal{}}
	cache := statscache.New(time.Hour, nil)
	svc := NewService(repo, cache)

	_, err := svc.Revenue(context.Background(), testRange())
	require.NoError(t, err)
	callsAfterFirst := repo.revenueCalls

	_, err = svc.Revenue(context.Background(), testRange())
	require.NoError(t, err)
	assert.Equal(t, callsAfterFirst, repo.revenueCalls, "second read is served from cache")

	cache.Invalidate(statscache.CategoryRevenue)
	_, err = svc.Revenue(context.Background(), testRange())
	require.NoError(t, err)
	assert.Greater(t, repo.revenueCalls, callsAfterFirst, "invalidation forces a recompute")
}

func TestOccupancy_Cached(t *testing.T) {
	repo := &fakeReportRepo{}
	cache := statscache.New(time.Hour, nil)
	svc := NewService(repo, cache)

	_, err := svc.Occupancy(context.Background())
	require.NoError(t, err)
	_, err = svc.Occupancy(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, repo.occupancyCalls)
}

func TestDashboard(t *testing.T) {
	repo := &fakeReportRepo{revenueByStart: map[string]decimal.Decimal{}}
	svc := NewService(repo, statscache.New(time.Hour, nil))

	stats, err := svc.Dashboard(context.Background(), testRange())
	require.NoError(t, err)
	assert.NotNil(t, stats.Revenue)
	assert.Equal(t, 120, stats.Patients.Total)
	assert.Equal(t, 40, stats.Appointments.Total)
	assert.Equal(t, 20, stats.Occupancy.TotalBeds)
}

func TestDefaultRange(t *testing.T) {
	now := time.Date(2025, 3, 30, 15, 30, 0, 0, time.UTC)
	r := DefaultRange(now)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), r.Start)
	assert.Equal(t, time.Date(2025, 3, 30, 0, 0, 0, 0, time.UTC), r.End)
}

func TestPreviousPeriod(t *testing.T) {
	r := testRange()
	prev := r.PreviousPeriod()
	assert.Equal(t, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), prev.End)
	assert.Equal(t, time.Date(2025, 1, 30, 0, 0, 0, 0, time.UTC), prev.Start)
}
