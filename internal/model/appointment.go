package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusNoShow    AppointmentStatus = "no_show"
)

// IsTerminal reports whether no further status transition is allowed.
func (s AppointmentStatus) IsTerminal() bool {
	switch s {
	case AppointmentStatusCompleted, AppointmentStatusCancelled, AppointmentStatusNoShow:
		return true
	}
	return false
}

// Blocks reports whether an appointment in this status occupies the doctor's
// slot for conflict detection.
func (s AppointmentStatus) Blocks() bool {
	return s == AppointmentStatusPending || s == AppointmentStatusConfirmed
}

const (
	AppointmentTypeScheduled = "scheduled"
	AppointmentTypeWalkIn    = "walk_in"
)

// ConflictWindow is the minimum spacing between two appointments of the same
// doctor. Two bookings closer than this, on either side, conflict; exactly
// this far apart is allowed. Fixed domain constant, not configurable per
// doctor or appointment type.
const ConflictWindow = 30 * time.Minute

type Appointment struct {
	Base
	PatientID   uuid.UUID         `db:"patient_id" json:"patient_id"`
	DoctorID    uuid.UUID         `db:"doctor_id" json:"doctor_id"`
	ScheduledAt time.Time         `db:"scheduled_at" json:"scheduled_at"`
	Status      AppointmentStatus `db:"status" json:"status"`
	Type        string            `db:"type" json:"type"`
	Notes       string            `db:"notes" json:"notes,omitempty"`
}

type BookAppointmentRequest struct {
	PatientID   uuid.UUID `json:"patient_id" binding:"required"`
	DoctorID    uuid.UUID `json:"doctor_id" binding:"required"`
	ScheduledAt time.Time `json:"scheduled_at" binding:"required"`
	Type        string    `json:"type" binding:"omitempty,oneof=scheduled walk_in"`
	Notes       string    `json:"notes" binding:"max=1000"`
}

type RescheduleAppointmentRequest struct {
	ScheduledAt time.Time `json:"scheduled_at" binding:"required"`
	Notes       *string   `json:"notes" binding:"omitempty,max=1000"`
}

type AppointmentFilters struct {
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	Status    AppointmentStatus
	Date      *time.Time
	Pagination
}

// Availability is the outcome of a conflict check for a proposed slot.
type Availability struct {
	Available   bool         `json:"available"`
	Conflicting *Appointment `json:"conflicting,omitempty"`
}
