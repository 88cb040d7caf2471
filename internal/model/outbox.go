package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "pending"
	OutboxStatusProcessing OutboxStatus = "processing"
	OutboxStatusProcessed  OutboxStatus = "processed"
	OutboxStatusFailed     OutboxStatus = "failed"
)

// Event types emitted by the write paths. The outbox row is inserted in the
// same transaction as the mutation it describes.
const (
	EventAppointmentBooked    = "appointment.booked"
	EventAppointmentCancelled = "appointment.cancelled"
	EventPatientAdmitted      = "patient.admitted"
	EventPatientDischarged    = "patient.discharged"
	EventInvoicePaid          = "invoice.paid"
)

// AppointmentEventPayload is the body of appointment.booked and
// appointment.cancelled events.
type AppointmentEventPayload struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	PatientName   string    `json:"patient_name"`
	PatientEmail  string    `json:"patient_email,omitempty"`
	DoctorName    string    `json:"doctor_name"`
	ScheduledAt   time.Time `json:"scheduled_at"`
}

// AdmissionEventPayload is the body of patient.admitted and
// patient.discharged events.
type AdmissionEventPayload struct {
	AdmissionID  uuid.UUID  `json:"admission_id"`
	PatientID    uuid.UUID  `json:"patient_id"`
	BedID        uuid.UUID  `json:"bed_id"`
	AdmittedAt   time.Time  `json:"admitted_at"`
	DischargedAt *time.Time `json:"discharged_at,omitempty"`
}

// InvoiceEventPayload is the body of invoice.paid events.
type InvoiceEventPayload struct {
	InvoiceID   uuid.UUID `json:"invoice_id"`
	PatientID   uuid.UUID `json:"patient_id"`
	TotalAmount string    `json:"total_amount"`
	Method      string    `json:"method"`
}

type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"event_type"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       OutboxStatus    `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	RetryCount   int             `db:"retry_count" json:"retry_count"`
	RetryAt      *time.Time      `db:"retry_at" json:"retry_at,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}
