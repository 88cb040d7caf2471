package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/alsalam/hospital-api/internal/model"
)

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	query := `
		INSERT INTO patients (id, file_number, full_name, phone, email, gender,
			date_of_birth, address, emergency_contact, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	patient.CreatedAt = time.Now()
	patient.UpdatedAt = patient.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		patient.ID,
		patient.FileNumber,
		patient.FullName,
		patient.Phone,
		patient.Email,
		patient.Gender,
		patient.DateOfBirth,
		patient.Address,
		patient.EmergencyContact,
		patient.CreatedAt,
		patient.UpdatedAt,
	)
	return wrapErr("failed to create patient", err)
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	query := `SELECT * FROM patients WHERE id = $1`
	var patient model.Patient
	if err := r.db.GetContext(ctx, &patient, query, id); err != nil {
		return nil, wrapErr("failed to get patient", err)
	}
	return &patient, nil
}

func (r *patientRepository) GetByFileNumber(ctx context.Context, fileNumber string) (*model.Patient, error) {
	query := `SELECT * FROM patients WHERE file_number = $1`
	var patient model.Patient
	if err := r.db.GetContext(ctx, &patient, query, fileNumber); err != nil {
		return nil, wrapErr("failed to get patient by file number", err)
	}
	return &patient, nil
}

func (r *patientRepository) Update(ctx context.Context, patient *model.Patient) error {
	query := `
		UPDATE patients
		SET full_name = $1, phone = $2, email = $3, gender = $4,
		    date_of_birth = $5, address = $6, emergency_contact = $7, updated_at = $8
		WHERE id = $9
	`
	result, err := r.db.ExecContext(ctx, query,
		patient.FullName,
		patient.Phone,
		patient.Email,
		patient.Gender,
		patient.DateOfBirth,
		patient.Address,
		patient.EmergencyContact,
		time.Now(),
		patient.ID,
	)
	if err != nil {
		return wrapErr("failed to update patient", err)
	}
	return requireRow(result, "failed to update patient")
}

func (r *patientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM patients WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return wrapErr("failed to delete patient", err)
	}
	return requireRow(result, "failed to delete patient")
}

// List searches file number, name and phone, newest first.
func (r *patientRepository) List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, int, error) {
	filters.Normalize()

	where := `
		WHERE ($1 = '' OR file_number ILIKE '%' || $1 || '%'
			OR full_name ILIKE '%' || $1 || '%'
			OR phone ILIKE '%' || $1 || '%')
	`

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM patients `+where, filters.SearchTerm); err != nil {
		return nil, 0, wrapErr("failed to count patients", err)
	}

	query := `SELECT * FROM patients ` + where + ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	patients := []*model.Patient{}
	err := r.db.SelectContext(ctx, &patients, query, filters.SearchTerm, filters.PageSize, filters.Offset())
	if err != nil {
		return nil, 0, wrapErr("failed to list patients", err)
	}
	return patients, total, nil
}

// MaxFileSequence returns the highest NNNN already issued for P-<year>-NNNN
// file numbers, 0 when none exist.
func (r *patientRepository) MaxFileSequence(ctx context.Context, year int) (int, error) {
	query := `
		SELECT COALESCE(MAX(CAST(split_part(file_number, '-', 3) AS integer)), 0)
		FROM patients
		WHERE file_number LIKE 'P-' || $1 || '-%'
	`
	var max int
	if err := r.db.GetContext(ctx, &max, query, year); err != nil {
		return 0, wrapErr("failed to get max file sequence", err)
	}
	return max, nil
}
