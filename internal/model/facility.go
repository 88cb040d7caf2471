package model

import (
	"time"

	"github.com/google/uuid"
)

type BedStatus string

const (
	BedStatusAvailable   BedStatus = "available"
	BedStatusOccupied    BedStatus = "occupied"
	BedStatusMaintenance BedStatus = "maintenance"
)

type AdmissionStatus string

const (
	AdmissionStatusActive     AdmissionStatus = "active"
	AdmissionStatusDischarged AdmissionStatus = "discharged"
)

// Bed is one physical bed, unique per (room_number, bed_label). Discharge
// sends a bed to maintenance (needs cleaning); it must be cleared back to
// available manually.
type Bed struct {
	Base
	RoomNumber string    `db:"room_number" json:"room_number"`
	BedLabel   string    `db:"bed_label" json:"bed_label"`
	Status     BedStatus `db:"status" json:"status"`
}

// Admission links a patient to a bed for an open-ended interval. At most one
// active admission may exist per patient and per bed.
type Admission struct {
	Base
	PatientID    uuid.UUID       `db:"patient_id" json:"patient_id"`
	BedID        uuid.UUID       `db:"bed_id" json:"bed_id"`
	AdmittedAt   time.Time       `db:"admitted_at" json:"admitted_at"`
	DischargedAt *time.Time      `db:"discharged_at" json:"discharged_at,omitempty"`
	Status       AdmissionStatus `db:"status" json:"status"`
	Notes        string          `db:"notes" json:"notes,omitempty"`
}

type CreateBedRequest struct {
	RoomNumber string `json:"room_number" binding:"required,max=10"`
	BedLabel   string `json:"bed_label" binding:"required,max=10"`
}

type SetBedStatusRequest struct {
	Status BedStatus `json:"status" binding:"required,oneof=available maintenance"`
}

type AdmitPatientRequest struct {
	PatientID  uuid.UUID  `json:"patient_id" binding:"required"`
	BedID      uuid.UUID  `json:"bed_id" binding:"required"`
	AdmittedAt *time.Time `json:"admitted_at"`
	Notes      string     `json:"notes" binding:"max=2000"`
}

type DischargePatientRequest struct {
	DischargedAt *time.Time `json:"discharged_at"`
	Notes        string     `json:"notes" binding:"max=2000"`
}

type AdmissionFilters struct {
	Status    AdmissionStatus
	PatientID uuid.UUID
	Pagination
}

// BedBoard is the per-room occupancy view used by the ward dashboard.
type BedBoard struct {
	Rooms       map[string][]*BedWithAdmission `json:"rooms"`
	Total       int                            `json:"total"`
	Available   int                            `json:"available"`
	Occupied    int                            `json:"occupied"`
	Maintenance int                            `json:"maintenance"`
}

type BedWithAdmission struct {
	Bed
	ActiveAdmission *Admission `json:"active_admission,omitempty"`
}
