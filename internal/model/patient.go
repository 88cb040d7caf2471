package model

import "time"

// Patient is a registered hospital patient. FileNumber is the human-facing
// identifier printed on paperwork, generated as P-YYYY-NNNN at registration.
type Patient struct {
	Base
	FileNumber       string     `db:"file_number" json:"file_number"`
	FullName         string     `db:"full_name" json:"full_name"`
	Phone            string     `db:"phone" json:"phone,omitempty"`
	Email            string     `db:"email" json:"email,omitempty"`
	Gender           string     `db:"gender" json:"gender,omitempty"`
	DateOfBirth      *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Address          string     `db:"address" json:"address,omitempty"`
	EmergencyContact string     `db:"emergency_contact" json:"emergency_contact,omitempty"`
}

type CreatePatientRequest struct {
	FullName         string     `json:"full_name" binding:"required,max=200"`
	Phone            string     `json:"phone" binding:"max=20"`
	Email            string     `json:"email" binding:"omitempty,email"`
	Gender           string     `json:"gender" binding:"omitempty,oneof=M F"`
	DateOfBirth      *time.Time `json:"date_of_birth"`
	Address          string     `json:"address"`
	EmergencyContact string     `json:"emergency_contact" binding:"max=200"`
}

type UpdatePatientRequest struct {
	FullName         *string    `json:"full_name" binding:"omitempty,max=200"`
	Phone            *string    `json:"phone" binding:"omitempty,max=20"`
	Email            *string    `json:"email" binding:"omitempty,email"`
	Gender           *string    `json:"gender" binding:"omitempty,oneof=M F"`
	DateOfBirth      *time.Time `json:"date_of_birth"`
	Address          *string    `json:"address"`
	EmergencyContact *string    `json:"emergency_contact" binding:"omitempty,max=200"`
}

type PatientFilters struct {
	SearchTerm string
	Pagination
}
