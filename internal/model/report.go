package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateRange is a closed interval of calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// PreviousPeriod returns the immediately preceding range of the same length.
func (r DateRange) PreviousPeriod() DateRange {
	days := int(r.End.Sub(r.Start).Hours()/24) + 1
	prevEnd := r.Start.AddDate(0, 0, -1)
	return DateRange{Start: prevEnd.AddDate(0, 0, -(days - 1)), End: prevEnd}
}

type RevenueStats struct {
	Total          decimal.Decimal `json:"total"`
	PreviousPeriod decimal.Decimal `json:"previous_period"`
	GrowthPercent  float64         `json:"growth_percent"`
	InvoiceCount   int             `json:"invoice_count"`
	PeriodDays     int             `json:"period_days"`
}

type MonthlyRevenue struct {
	Month        string          `db:"month" json:"month"`
	Revenue      decimal.Decimal `db:"revenue" json:"revenue"`
	InvoiceCount int             `db:"invoice_count" json:"invoice_count"`
}

type PatientStats struct {
	Total       int            `json:"total"`
	NewInPeriod int            `json:"new_in_period"`
	ByGender    map[string]int `json:"by_gender"`
}

type MonthlyCount struct {
	Month string `db:"month" json:"month"`
	Count int    `db:"count" json:"count"`
}

type AppointmentStats struct {
	Total    int                       `json:"total"`
	ByStatus map[AppointmentStatus]int `json:"by_status"`
}

type OccupancyStats struct {
	TotalBeds        int     `json:"total_beds"`
	Occupied         int     `json:"occupied"`
	Available        int     `json:"available"`
	Maintenance      int     `json:"maintenance"`
	OccupancyPercent float64 `json:"occupancy_percent"`
	ActiveAdmissions int     `json:"active_admissions"`
}

// DashboardStats is the full reporting payload for the admin dashboard.
type DashboardStats struct {
	Revenue      *RevenueStats     `json:"revenue"`
	Patients     *PatientStats     `json:"patients"`
	Appointments *AppointmentStats `json:"appointments"`
	Occupancy    *OccupancyStats   `json:"occupancy"`
}
