package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alsalam/hospital-api/internal/model"
	"github.com/alsalam/hospital-api/internal/repository"
	"github.com/alsalam/hospital-api/internal/statscache"
	"github.com/alsalam/hospital-api/pkg/apperror"
)

const recentVisitsLimit = 10

type Service struct {
	appts    repository.AppointmentRepository
	visits   repository.VisitRepository
	patients repository.PatientRepository
	users    repository.UserRepository
	cache    *statscache.Cache
	now      func() time.Time
}

func NewService(
	appts repository.AppointmentRepository,
	visits repository.VisitRepository,
	patients repository.PatientRepository,
	users repository.UserRepository,
	cache *statscache.Cache,
) *Service {
	return &Service{
		appts:    appts,
		visits:   visits,
		patients: patients,
		users:    users,
		cache:    cache,
		now:      time.Now,
	}
}

// Book schedules an appointment. The conflict window is re-checked inside the
// repository transaction under a doctor row lock, so two racing requests for
// overlapping slots cannot both succeed.
func (s *Service) Book(ctx context.Context, req *model.BookAppointmentRequest) (*model.Appointment, error) {
	patient, err := s.patients.Get(ctx, req.PatientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.Validation("patient does not exist")
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	doctor, err := s.requireDoctor(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}

	apptType := req.Type
	if apptType == "" {
		apptType = model.AppointmentTypeScheduled
	}
	if apptType == model.AppointmentTypeScheduled && req.ScheduledAt.Before(s.now()) {
		return nil, apperror.Validation("appointment time is in the past")
	}

	// Scheduled bookings are made at the desk and start out confirmed;
	// walk-ins wait as pending until the patient is checked in.
	status := model.AppointmentStatusConfirmed
	if apptType == model.AppointmentTypeWalkIn {
		status = model.AppointmentStatusPending
	}

	appt := &model.Appointment{
		Base:        model.Base{ID: uuid.New()},
		PatientID:   req.PatientID,
		DoctorID:    req.DoctorID,
		ScheduledAt: req.ScheduledAt,
		Status:      status,
		Type:        apptType,
		Notes:       req.Notes,
	}

	evt, err := bookedEvent(appt, patient, doctor)
	if err != nil {
		return nil, err
	}

	conflict, err := s.appts.Book(ctx, appt, evt)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, slotTakenError(req.ScheduledAt)
		}
		return nil, fmt.Errorf("failed to book appointment: %w", err)
	}
	if conflict != nil {
		return nil, conflictError(conflict)
	}

	s.cache.Invalidate(statscache.CategoryAppointments)
	return appt, nil
}

// CheckAvailability reports whether the doctor is free within the conflict
// window around the proposed time. Bookings exactly ConflictWindow away do
// not count. An unknown doctor has no bookings and is reported available;
// existence is enforced at booking time.
func (s *Service) CheckAvailability(ctx context.Context, doctorID uuid.UUID, at time.Time, excludeID *uuid.UUID) (*model.Availability, error) {
	conflicts, err := s.appts.FindInWindow(ctx, doctorID,
		at.Add(-model.ConflictWindow), at.Add(model.ConflictWindow), excludeID)
	if err != nil {
		return nil, fmt.Errorf("failed to check availability: %w", err)
	}
	if len(conflicts) > 0 {
		return &model.Availability{Available: false, Conflicting: conflicts[0]}, nil
	}
	return &model.Availability{Available: true}, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	appt, err := s.appts.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("appointment")
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return appt, nil
}

// Confirm moves a pending appointment to confirmed.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	appt, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status != model.AppointmentStatusPending {
		return nil, apperror.Validationf("only pending appointments can be confirmed, this one is %s", appt.Status)
	}
	return s.transition(ctx, appt, model.AppointmentStatusConfirmed, nil)
}

// Cancel frees the slot. Completed, cancelled and no-show appointments are
// final and stay as they are.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	appt, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status.IsTerminal() {
		return nil, apperror.Validationf("appointment is already %s", appt.Status)
	}

	evt, err := s.cancelledEvent(ctx, appt)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, appt, model.AppointmentStatusCancelled, evt)
}

// MarkNoShow records that the patient did not turn up.
func (s *Service) MarkNoShow(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	appt, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status.IsTerminal() {
		return nil, apperror.Validationf("appointment is already %s", appt.Status)
	}
	return s.transition(ctx, appt, model.AppointmentStatusNoShow, nil)
}

// Reschedule moves an open appointment to a new slot under the same conflict
// rules as booking.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, req *model.RescheduleAppointmentRequest) (*model.Appointment, error) {
	appt, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status.IsTerminal() {
		return nil, apperror.Validationf("appointment is already %s", appt.Status)
	}
	if req.ScheduledAt.Before(s.now()) {
		return nil, apperror.Validation("appointment time is in the past")
	}

	appt.ScheduledAt = req.ScheduledAt
	if req.Notes != nil {
		appt.Notes = *req.Notes
	}

	conflict, err := s.appts.Reschedule(ctx, appt)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, slotTakenError(req.ScheduledAt)
		}
		return nil, fmt.Errorf("failed to reschedule appointment: %w", err)
	}
	if conflict != nil {
		return nil, conflictError(conflict)
	}

	s.cache.Invalidate(statscache.CategoryAppointments)
	return appt, nil
}

func (s *Service) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, int, error) {
	appts, total, err := s.appts.List(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appts, total, nil
}

// DoctorDashboard assembles the doctor's landing page: today's schedule,
// what is coming in the next week and the latest filed visits.
func (s *Service) DoctorDashboard(ctx context.Context, doctorID uuid.UUID) (*model.DoctorDashboard, error) {
	if _, err := s.requireDoctor(ctx, doctorID); err != nil {
		return nil, err
	}

	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	today, err := s.appts.ListForDoctorBetween(ctx, doctorID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to load today's appointments: %w", err)
	}
	upcoming, err := s.appts.ListForDoctorBetween(ctx, doctorID, dayEnd, dayEnd.AddDate(0, 0, 7))
	if err != nil {
		return nil, fmt.Errorf("failed to load upcoming appointments: %w", err)
	}
	visits, err := s.visits.ListByDoctor(ctx, doctorID, recentVisitsLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent visits: %w", err)
	}

	dashboard := &model.DoctorDashboard{
		TodaysAppointments:   today,
		UpcomingAppointments: upcoming,
		RecentVisits:         visits,
		TotalToday:           len(today),
	}
	for _, appt := range today {
		switch appt.Status {
		case model.AppointmentStatusPending, model.AppointmentStatusConfirmed:
			dashboard.PendingCount++
		case model.AppointmentStatusCompleted:
			dashboard.CompletedToday++
		}
	}
	return dashboard, nil
}

func (s *Service) transition(ctx context.Context, appt *model.Appointment, to model.AppointmentStatus, evt *model.OutboxEvent) (*model.Appointment, error) {
	if err := s.appts.UpdateStatus(ctx, appt.ID, to, evt); err != nil {
		return nil, fmt.Errorf("failed to update appointment status: %w", err)
	}
	appt.Status = to
	s.cache.Invalidate(statscache.CategoryAppointments)
	return appt, nil
}

func (s *Service) requireDoctor(ctx context.Context, doctorID uuid.UUID) (*model.User, error) {
	doctor, err := s.users.Get(ctx, doctorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.Validation("doctor does not exist")
		}
		return nil, fmt.Errorf("failed to get doctor: %w", err)
	}
	if doctor.RoleName != model.RoleDoctor {
		return nil, apperror.Validation("selected user is not a doctor")
	}
	if !doctor.IsActive {
		return nil, apperror.Validation("doctor account is disabled")
	}
	return doctor, nil
}

func (s *Service) cancelledEvent(ctx context.Context, appt *model.Appointment) (*model.OutboxEvent, error) {
	patient, err := s.patients.Get(ctx, appt.PatientID)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	doctor, err := s.users.Get(ctx, appt.DoctorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get doctor: %w", err)
	}
	return appointmentEvent(model.EventAppointmentCancelled, appt, patient, doctor)
}

func bookedEvent(appt *model.Appointment, patient *model.Patient, doctor *model.User) (*model.OutboxEvent, error) {
	return appointmentEvent(model.EventAppointmentBooked, appt, patient, doctor)
}

func appointmentEvent(eventType string, appt *model.Appointment, patient *model.Patient, doctor *model.User) (*model.OutboxEvent, error) {
	payload, err := json.Marshal(model.AppointmentEventPayload{
		AppointmentID: appt.ID,
		PatientName:   patient.FullName,
		PatientEmail:  patient.Email,
		DoctorName:    doctor.FullName,
		ScheduledAt:   appt.ScheduledAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode event payload: %w", err)
	}
	return &model.OutboxEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   payload,
	}, nil
}

func conflictError(conflict *model.Appointment) *apperror.Error {
	return &apperror.Error{
		Kind: apperror.KindConflict,
		Message: fmt.Sprintf("doctor already has an appointment at %s within %d minutes of the requested time",
			conflict.ScheduledAt.Format("15:04"), int(model.ConflictWindow.Minutes())),
	}
}

func slotTakenError(at time.Time) *apperror.Error {
	return &apperror.Error{
		Kind:    apperror.KindConflict,
		Message: fmt.Sprintf("the %s slot was just taken, please pick another time", at.Format("15:04")),
	}
}
