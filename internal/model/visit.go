package model

import (
	"github.com/google/uuid"
)

// MedicalVisit captures the clinical outcome of one appointment. At most one
// visit exists per appointment; filing it completes the appointment.
type MedicalVisit struct {
	Base
	AppointmentID uuid.UUID `db:"appointment_id" json:"appointment_id"`
	DoctorID      uuid.UUID `db:"doctor_id" json:"doctor_id"`
	Symptoms      string    `db:"symptoms" json:"symptoms,omitempty"`
	Diagnosis     string    `db:"diagnosis" json:"diagnosis,omitempty"`
	Prescription  string    `db:"prescription" json:"prescription,omitempty"`
	Vitals        JSONMap   `db:"vitals" json:"vitals,omitempty"`
}

type FileVisitRequest struct {
	Symptoms     string  `json:"symptoms" binding:"max=4000"`
	Diagnosis    string  `json:"diagnosis" binding:"required,max=4000"`
	Prescription string  `json:"prescription" binding:"max=4000"`
	Vitals       JSONMap `json:"vitals"`
}

// DoctorDashboard aggregates a doctor's day at a glance.
type DoctorDashboard struct {
	TodaysAppointments   []*Appointment  `json:"todays_appointments"`
	UpcomingAppointments []*Appointment  `json:"upcoming_appointments"`
	RecentVisits         []*MedicalVisit `json:"recent_visits"`
	PendingCount         int             `json:"pending_count"`
	CompletedToday       int             `json:"completed_today"`
	TotalToday           int             `json:"total_today"`
}
