package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/alsalam/hospital-api/internal/model"
	"github.com/alsalam/hospital-api/internal/repository"
)

func (r *facilityRepository) CreateBed(ctx context.Context, bed *model.Bed) error {
	query := `
		INSERT INTO beds (id, room_number, bed_label, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	bed.CreatedAt = time.Now()
	bed.UpdatedAt = bed.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		bed.ID, bed.RoomNumber, bed.BedLabel, bed.Status, bed.CreatedAt, bed.UpdatedAt)
	return wrapErr("failed to create bed", err)
}

func (r *facilityRepository) GetBed(ctx context.Context, id uuid.UUID) (*model.Bed, error) {
	query := `SELECT * FROM beds WHERE id = $1`
	var bed model.Bed
	if err := r.db.GetContext(ctx, &bed, query, id); err != nil {
		return nil, wrapErr("failed to get bed", err)
	}
	return &bed, nil
}

func (r *facilityRepository) ListBeds(ctx context.Context) ([]*model.Bed, error) {
	query := `SELECT * FROM beds ORDER BY room_number, bed_label`
	beds := []*model.Bed{}
	if err := r.db.SelectContext(ctx, &beds, query); err != nil {
		return nil, wrapErr("failed to list beds", err)
	}
	return beds, nil
}

// SetBedStatus moves a bed between available and maintenance. Occupied beds
// are protected: their status only changes through discharge.
func (r *facilityRepository) SetBedStatus(ctx context.Context, id uuid.UUID, status model.BedStatus) error {
	return inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		bed, err := lockBed(ctx, tx, id)
		if err != nil {
			return err
		}
		if bed.Status == model.BedStatusOccupied {
			return fmt.Errorf("failed to set bed status: %w", repository.ErrBedUnavailable)
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE beds SET status = $1, updated_at = $2 WHERE id = $3`,
			status, time.Now(), id)
		return wrapErr("failed to set bed status", err)
	})
}

// Admit creates the active admission and occupies the bed in one transaction.
// The bed row is locked first so two concurrent admits to the same bed
// serialize; the partial unique index on active admissions per patient turns
// a double admit of the same patient into ErrAlreadyAdmitted.
func (r *facilityRepository) Admit(ctx context.Context, admission *model.Admission, evt *model.OutboxEvent) error {
	return inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		bed, err := lockBed(ctx, tx, admission.BedID)
		if err != nil {
			return err
		}
		if bed.Status != model.BedStatusAvailable {
			return fmt.Errorf("failed to admit patient: %w", repository.ErrBedUnavailable)
		}

		query := `
			INSERT INTO admissions (id, patient_id, bed_id, admitted_at, status, notes, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`
		admission.CreatedAt = time.Now()
		admission.UpdatedAt = admission.CreatedAt

		_, err = tx.ExecContext(ctx, query,
			admission.ID, admission.PatientID, admission.BedID, admission.AdmittedAt,
			admission.Status, admission.Notes, admission.CreatedAt, admission.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("failed to admit patient: %w", repository.ErrAlreadyAdmitted)
			}
			return wrapErr("failed to admit patient", err)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE beds SET status = $1, updated_at = $2 WHERE id = $3`,
			model.BedStatusOccupied, time.Now(), admission.BedID)
		if err != nil {
			return wrapErr("failed to occupy bed", err)
		}
		return insertOutbox(ctx, tx, evt)
	})
}

// Discharge closes the admission and sends the bed to maintenance for
// cleaning. Discharging an already discharged admission fails.
func (r *facilityRepository) Discharge(ctx context.Context, admissionID uuid.UUID, at time.Time, notes string, evt *model.OutboxEvent) (*model.Admission, error) {
	var admission model.Admission

	err := inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &admission,
			`SELECT * FROM admissions WHERE id = $1 FOR UPDATE`, admissionID)
		if err != nil {
			return wrapErr("failed to get admission", err)
		}
		if admission.Status != model.AdmissionStatusActive {
			return fmt.Errorf("failed to discharge: %w", repository.ErrAdmissionClosed)
		}

		now := time.Now()
		_, err = tx.ExecContext(ctx, `
			UPDATE admissions
			SET status = $1, discharged_at = $2, notes = $3, updated_at = $4
			WHERE id = $5
		`, model.AdmissionStatusDischarged, at, notes, now, admissionID)
		if err != nil {
			return wrapErr("failed to discharge", err)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE beds SET status = $1, updated_at = $2 WHERE id = $3`,
			model.BedStatusMaintenance, now, admission.BedID)
		if err != nil {
			return wrapErr("failed to release bed", err)
		}

		admission.Status = model.AdmissionStatusDischarged
		admission.DischargedAt = &at
		admission.Notes = notes
		admission.UpdatedAt = now
		return insertOutbox(ctx, tx, evt)
	})
	if err != nil {
		return nil, err
	}
	return &admission, nil
}

func (r *facilityRepository) GetAdmission(ctx context.Context, id uuid.UUID) (*model.Admission, error) {
	query := `SELECT * FROM admissions WHERE id = $1`
	var admission model.Admission
	if err := r.db.GetContext(ctx, &admission, query, id); err != nil {
		return nil, wrapErr("failed to get admission", err)
	}
	return &admission, nil
}

func (r *facilityRepository) ListAdmissions(ctx context.Context, filters *model.AdmissionFilters) ([]*model.Admission, int, error) {
	filters.Normalize()

	var patientID *uuid.UUID
	if filters.PatientID != uuid.Nil {
		patientID = &filters.PatientID
	}

	where := `
		WHERE ($1 = '' OR status = $1)
		  AND ($2::uuid IS NULL OR patient_id = $2)
	`
	args := []interface{}{string(filters.Status), patientID}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM admissions `+where, args...); err != nil {
		return nil, 0, wrapErr("failed to count admissions", err)
	}

	query := `SELECT * FROM admissions ` + where + ` ORDER BY admitted_at DESC LIMIT $3 OFFSET $4`
	admissions := []*model.Admission{}
	err := r.db.SelectContext(ctx, &admissions, query, append(args, filters.PageSize, filters.Offset())...)
	if err != nil {
		return nil, 0, wrapErr("failed to list admissions", err)
	}
	return admissions, total, nil
}

func (r *facilityRepository) ActiveAdmissionForPatient(ctx context.Context, patientID uuid.UUID) (*model.Admission, error) {
	query := `SELECT * FROM admissions WHERE patient_id = $1 AND status = 'active'`
	var admission model.Admission
	if err := r.db.GetContext(ctx, &admission, query, patientID); err != nil {
		return nil, wrapErr("failed to get active admission for patient", err)
	}
	return &admission, nil
}

func (r *facilityRepository) ActiveAdmissionForBed(ctx context.Context, bedID uuid.UUID) (*model.Admission, error) {
	query := `SELECT * FROM admissions WHERE bed_id = $1 AND status = 'active'`
	var admission model.Admission
	if err := r.db.GetContext(ctx, &admission, query, bedID); err != nil {
		return nil, wrapErr("failed to get active admission for bed", err)
	}
	return &admission, nil
}

func (r *facilityRepository) ListBedAdmissions(ctx context.Context, bedID uuid.UUID, limit int) ([]*model.Admission, error) {
	query := `SELECT * FROM admissions WHERE bed_id = $1 ORDER BY admitted_at DESC LIMIT $2`
	admissions := []*model.Admission{}
	if err := r.db.SelectContext(ctx, &admissions, query, bedID, limit); err != nil {
		return nil, wrapErr("failed to list bed admissions", err)
	}
	return admissions, nil
}

func lockBed(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*model.Bed, error) {
	var bed model.Bed
	err := tx.GetContext(ctx, &bed, `SELECT * FROM beds WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to lock bed: %w", repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock bed: %w", err)
	}
	return &bed, nil
}
