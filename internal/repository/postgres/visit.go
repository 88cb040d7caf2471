package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/alsalam/hospital-api/internal/model"
)

// CreateWithCompletion files the visit and marks its appointment completed in
// one transaction. The unique index on appointment_id rejects a second visit
// for the same appointment.
func (r *visitRepository) CreateWithCompletion(ctx context.Context, visit *model.MedicalVisit) error {
	return inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO medical_visits (id, appointment_id, doctor_id, symptoms, diagnosis, prescription, vitals, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`
		visit.CreatedAt = time.Now()
		visit.UpdatedAt = visit.CreatedAt

		_, err := tx.ExecContext(ctx, query,
			visit.ID, visit.AppointmentID, visit.DoctorID,
			visit.Symptoms, visit.Diagnosis, visit.Prescription, visit.Vitals,
			visit.CreatedAt, visit.UpdatedAt)
		if err != nil {
			return wrapErr("failed to create visit", err)
		}

		result, err := tx.ExecContext(ctx,
			`UPDATE appointments SET status = $1, updated_at = $2 WHERE id = $3`,
			model.AppointmentStatusCompleted, time.Now(), visit.AppointmentID)
		if err != nil {
			return wrapErr("failed to complete appointment", err)
		}
		return requireRow(result, "failed to complete appointment")
	})
}

func (r *visitRepository) Get(ctx context.Context, id uuid.UUID) (*model.MedicalVisit, error) {
	query := `SELECT * FROM medical_visits WHERE id = $1`
	var visit model.MedicalVisit
	if err := r.db.GetContext(ctx, &visit, query, id); err != nil {
		return nil, wrapErr("failed to get visit", err)
	}
	return &visit, nil
}

func (r *visitRepository) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.MedicalVisit, error) {
	query := `SELECT * FROM medical_visits WHERE appointment_id = $1`
	var visit model.MedicalVisit
	if err := r.db.GetContext(ctx, &visit, query, appointmentID); err != nil {
		return nil, wrapErr("failed to get visit by appointment", err)
	}
	return &visit, nil
}

func (r *visitRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*model.MedicalVisit, error) {
	query := `
		SELECT v.* FROM medical_visits v
		JOIN appointments a ON a.id = v.appointment_id
		WHERE a.patient_id = $1
		ORDER BY v.created_at DESC
		LIMIT $2
	`
	visits := []*model.MedicalVisit{}
	if err := r.db.SelectContext(ctx, &visits, query, patientID, limit); err != nil {
		return nil, wrapErr("failed to list patient visits", err)
	}
	return visits, nil
}

func (r *visitRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit int) ([]*model.MedicalVisit, error) {
	query := `
		SELECT * FROM medical_visits
		WHERE doctor_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	visits := []*model.MedicalVisit{}
	if err := r.db.SelectContext(ctx, &visits, query, doctorID, limit); err != nil {
		return nil, wrapErr("failed to list doctor visits", err)
	}
	return visits, nil
}
