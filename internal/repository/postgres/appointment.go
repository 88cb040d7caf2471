package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/alsalam/hospital-api/internal/model"
)

const blockingStatuses = `('pending', 'confirmed')`

// Book inserts the appointment after re-checking the conflict window under a
// lock on the doctor row, so two concurrent bookings for the same doctor
// serialize and the loser sees the winner's row. Returns the conflicting
// appointment, if any, instead of inserting.
func (r *appointmentRepository) Book(ctx context.Context, appt *model.Appointment, evt *model.OutboxEvent) (*model.Appointment, error) {
	var conflict *model.Appointment

	err := inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := lockDoctor(ctx, tx, appt.DoctorID); err != nil {
			return err
		}

		found, err := findConflict(ctx, tx, appt.DoctorID, appt.ScheduledAt, nil)
		if err != nil {
			return err
		}
		if found != nil {
			conflict = found
			return nil
		}

		query := `
			INSERT INTO appointments (id, patient_id, doctor_id, scheduled_at, status, type, notes, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`
		appt.CreatedAt = time.Now()
		appt.UpdatedAt = appt.CreatedAt

		_, err = tx.ExecContext(ctx, query,
			appt.ID, appt.PatientID, appt.DoctorID, appt.ScheduledAt,
			appt.Status, appt.Type, appt.Notes, appt.CreatedAt, appt.UpdatedAt)
		if err != nil {
			return wrapErr("failed to create appointment", err)
		}
		return insertOutbox(ctx, tx, evt)
	})
	if err != nil {
		return nil, err
	}
	return conflict, nil
}

// Reschedule moves an appointment to a new slot under the same doctor lock
// and conflict re-check as Book, ignoring the appointment's own row.
func (r *appointmentRepository) Reschedule(ctx context.Context, appt *model.Appointment) (*model.Appointment, error) {
	var conflict *model.Appointment

	err := inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := lockDoctor(ctx, tx, appt.DoctorID); err != nil {
			return err
		}

		found, err := findConflict(ctx, tx, appt.DoctorID, appt.ScheduledAt, &appt.ID)
		if err != nil {
			return err
		}
		if found != nil {
			conflict = found
			return nil
		}

		query := `UPDATE appointments SET scheduled_at = $1, notes = $2, updated_at = $3 WHERE id = $4`
		result, err := tx.ExecContext(ctx, query, appt.ScheduledAt, appt.Notes, time.Now(), appt.ID)
		if err != nil {
			return wrapErr("failed to reschedule appointment", err)
		}
		return requireRow(result, "failed to reschedule appointment")
	})
	if err != nil {
		return nil, err
	}
	return conflict, nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT * FROM appointments WHERE id = $1`
	var appt model.Appointment
	if err := r.db.GetContext(ctx, &appt, query, id); err != nil {
		return nil, wrapErr("failed to get appointment", err)
	}
	return &appt, nil
}

func (r *appointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus, evt *model.OutboxEvent) error {
	return inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		query := `UPDATE appointments SET status = $1, updated_at = $2 WHERE id = $3`
		result, err := tx.ExecContext(ctx, query, status, time.Now(), id)
		if err != nil {
			return wrapErr("failed to update appointment status", err)
		}
		if err := requireRow(result, "failed to update appointment status"); err != nil {
			return err
		}
		return insertOutbox(ctx, tx, evt)
	})
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, int, error) {
	filters.Normalize()

	var doctorID, patientID *uuid.UUID
	if filters.DoctorID != uuid.Nil {
		doctorID = &filters.DoctorID
	}
	if filters.PatientID != uuid.Nil {
		patientID = &filters.PatientID
	}
	var dayStart, dayEnd *time.Time
	if filters.Date != nil {
		start := time.Date(filters.Date.Year(), filters.Date.Month(), filters.Date.Day(), 0, 0, 0, 0, filters.Date.Location())
		end := start.AddDate(0, 0, 1)
		dayStart, dayEnd = &start, &end
	}

	where := `
		WHERE ($1::uuid IS NULL OR doctor_id = $1)
		  AND ($2::uuid IS NULL OR patient_id = $2)
		  AND ($3 = '' OR status = $3)
		  AND ($4::timestamptz IS NULL OR (scheduled_at >= $4 AND scheduled_at < $5))
	`
	args := []interface{}{doctorID, patientID, string(filters.Status), dayStart, dayEnd}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM appointments `+where, args...); err != nil {
		return nil, 0, wrapErr("failed to count appointments", err)
	}

	query := `SELECT * FROM appointments ` + where + ` ORDER BY scheduled_at DESC LIMIT $6 OFFSET $7`
	appts := []*model.Appointment{}
	err := r.db.SelectContext(ctx, &appts, query, append(args, filters.PageSize, filters.Offset())...)
	if err != nil {
		return nil, 0, wrapErr("failed to list appointments", err)
	}
	return appts, total, nil
}

func (r *appointmentRepository) FindInWindow(ctx context.Context, doctorID uuid.UUID, from, to time.Time, excludeID *uuid.UUID) ([]*model.Appointment, error) {
	query := `
		SELECT * FROM appointments
		WHERE doctor_id = $1
		  AND scheduled_at > $2 AND scheduled_at < $3
		  AND status IN ` + blockingStatuses + `
		  AND ($4::uuid IS NULL OR id <> $4)
		ORDER BY scheduled_at
	`
	appts := []*model.Appointment{}
	if err := r.db.SelectContext(ctx, &appts, query, doctorID, from, to, excludeID); err != nil {
		return nil, wrapErr("failed to find conflicting appointments", err)
	}
	return appts, nil
}

func (r *appointmentRepository) ListForDoctorBetween(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*model.Appointment, error) {
	query := `
		SELECT * FROM appointments
		WHERE doctor_id = $1 AND scheduled_at >= $2 AND scheduled_at < $3
		ORDER BY scheduled_at
	`
	appts := []*model.Appointment{}
	if err := r.db.SelectContext(ctx, &appts, query, doctorID, from, to); err != nil {
		return nil, wrapErr("failed to list doctor appointments", err)
	}
	return appts, nil
}

func (r *appointmentRepository) CountBlockedForDoctor(ctx context.Context, doctorID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM appointments WHERE doctor_id = $1 AND status IN ` + blockingStatuses
	var count int
	if err := r.db.GetContext(ctx, &count, query, doctorID); err != nil {
		return 0, wrapErr("failed to count open appointments", err)
	}
	return count, nil
}

func lockDoctor(ctx context.Context, tx *sqlx.Tx, doctorID uuid.UUID) error {
	var id uuid.UUID
	err := tx.GetContext(ctx, &id, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, doctorID)
	if err != nil {
		return wrapErr("failed to lock doctor", err)
	}
	return nil
}

// findConflict returns the earliest blocking appointment strictly inside the
// 30 minute window on either side of the proposed slot. A booking exactly 30
// minutes away does not conflict.
func findConflict(ctx context.Context, tx *sqlx.Tx, doctorID uuid.UUID, at time.Time, excludeID *uuid.UUID) (*model.Appointment, error) {
	query := `
		SELECT * FROM appointments
		WHERE doctor_id = $1
		  AND scheduled_at > $2 AND scheduled_at < $3
		  AND status IN ` + blockingStatuses + `
		  AND ($4::uuid IS NULL OR id <> $4)
		ORDER BY scheduled_at
		LIMIT 1
	`
	var appt model.Appointment
	err := tx.GetContext(ctx, &appt, query,
		doctorID, at.Add(-model.ConflictWindow), at.Add(model.ConflictWindow), excludeID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("failed to check appointment conflicts", err)
	}
	return &appt, nil
}
