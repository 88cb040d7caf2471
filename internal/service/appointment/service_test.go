package appointment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alsalam/hospital-api/internal/model"
	"github.com/alsalam/hospital-api/internal/repository"
	"github.com/alsalam/hospital-api/internal/statscache"
	"github.com/alsalam/hospital-api/pkg/apperror"
)

type fakeApptRepo struct {
	repository.AppointmentRepository
	appts  map[uuid.UUID]*model.Appointment
	events []*model.OutboxEvent
}

func newFakeApptRepo() *fakeApptRepo {
	return &fakeApptRepo{appts: map[uuid.UUID]*model.Appointment{}}
}

func (f *fakeApptRepo) findConflict(doctorID uuid.UUID, at time.Time, excludeID *uuid.UUID) *model.Appointment {
	for _, a := range f.appts {
		if a.DoctorID != doctorID || !a.Status.Blocks() {
			continue
		}
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		diff := a.ScheduledAt.Sub(at)
		if diff < 0 {
			diff = -diff
		}
		if diff < model.ConflictWindow {
			return a
		}
	}
	return nil
}

func (f *fakeApptRepo) Book(_ context.Context, appt *model.Appointment, evt *model.OutboxEvent) (*model.Appointment, error) {
	if conflict := f.findConflict(appt.DoctorID, appt.ScheduledAt, nil); conflict != nil {
		return conflict, nil
	}
	f.appts[appt.ID] = appt
	if evt != nil {
		f.events = append(f.events, evt)
	}
	return nil, nil
}

func (f *fakeApptRepo) Reschedule(_ context.Context, appt *model.Appointment) (*model.Appointment, error) {
	if conflict := f.findConflict(appt.DoctorID, appt.ScheduledAt, &appt.ID); conflict != nil {
		return conflict, nil
	}
	f.appts[appt.ID] = appt
	return nil, nil
}

func (f *fakeApptRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	if a, ok := f.appts[id]; ok {
		return a, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeApptRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.AppointmentStatus, evt *model.OutboxEvent) error {
	a, ok := f.appts[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.Status = status
	if evt != nil {
		f.events = append(f.events, evt)
	}
	return nil
}

func (f *fakeApptRepo) FindInWindow(_ context.Context, doctorID uuid.UUID, from, to time.Time, excludeID *uuid.UUID) ([]*model.Appointment, error) {
	found := []*model.Appointment{}
	for _, a := range f.appts {
		if a.DoctorID != doctorID || !a.Status.Blocks() {
			continue
		}
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		if a.ScheduledAt.After(from) && a.ScheduledAt.Before(to) {
			found = append(found, a)
		}
	}
	return found, nil
}

func (f *fakeApptRepo) ListForDoctorBetween(_ context.Context, doctorID uuid.UUID, from, to time.Time) ([]*model.Appointment, error) {
	found := []*model.Appointment{}
	for _, a := range f.appts {
		if a.DoctorID == doctorID && !a.ScheduledAt.Before(from) && a.ScheduledAt.Before(to) {
			found = append(found, a)
		}
	}
	return found, nil
}

type fakePatientRepo struct {
	repository.PatientRepository
	patients map[uuid.UUID]*model.Patient
}

func (f *fakePatientRepo) Get(_ context.Context, id uuid.UUID) (*model.Patient, error) {
	if p, ok := f.patients[id]; ok {
		return p, nil
	}
	return nil, repository.ErrNotFound
}

type fakeUserRepo struct {
	repository.UserRepository
	users map[uuid.UUID]*model.User
}

func (f *fakeUserRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

type fakeVisitRepo struct {
	repository.VisitRepository
}

func (f *fakeVisitRepo) ListByDoctor(_ context.Context, _ uuid.UUID, _ int) ([]*model.MedicalVisit, error) {
	return nil, nil
}

type fixture struct {
	svc     *Service
	repo    *fakeApptRepo
	cache   *statscache.Cache
	patient *model.Patient
	doctor  *model.User
	now     time.Time
}

func newFixture() *fixture {
	patient := &model.Patient{
		Base:       model.Base{ID: uuid.New()},
		FileNumber: "P-2025-0001",
		FullName:   "Aisha Khalid",
		Email:      "aisha@example.com",
	}
	doctor := &model.User{
		Base:     model.Base{ID: uuid.New()},
		Username: "drhasan",
		FullName: "Dr. Hasan",
		RoleName: model.RoleDoctor,
		IsActive: true,
	}

	repo := newFakeApptRepo()
	cache := statscache.New(time.Hour, nil)
	svc := NewService(repo, &fakeVisitRepo{},
		&fakePatientRepo{patients: map[uuid.UUID]*model.Patient{patient.ID: patient}},
		&fakeUserRepo{users: map[uuid.UUID]*model.User{doctor.ID: doctor}},
		cache)

	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	return &fixture{svc: svc, repo: repo, cache: cache, patient: patient, doctor: doctor, now: now}
}

func (f *fixture) book(t *testing.T, at time.Time) *model.Appointment {
	t.Helper()
	appt, err := f.svc.Book(context.Background(), &model.BookAppointmentRequest{
		PatientID:   f.patient.ID,
		DoctorID:    f.doctor.ID,
		ScheduledAt: at,
	})
	require.NoError(t, err)
	return appt
}

func TestBook(t *testing.T) {
	f := newFixture()

	appt := f.book(t, f.now.Add(2*time.Hour))
	assert.Equal(t, model.AppointmentStatusConfirmed, appt.Status)
	assert.Equal(t, model.AppointmentTypeScheduled, appt.Type)

	require.Len(t, f.repo.events, 1)
	assert.Equal(t, model.EventAppointmentBooked, f.repo.events[0].EventType)
}

func TestBook_ConflictInsideWindow(t *testing.T) {
	f := newFixture()
	base := f.now.Add(2 * time.Hour)
	f.book(t, base)

	for _, offset := range []time.Duration{
		0,
		29 * time.Minute,
		-29 * time.Minute,
		29*time.Minute + 59*time.Second,
		-(29*time.Minute + 59*time.Second),
	} {
		_, err := f.svc.Book(context.Background(), &model.BookAppointmentRequest{
			PatientID:   f.patient.ID,
			DoctorID:    f.doctor.ID,
			ScheduledAt: base.Add(offset),
		})
		assert.True(t, apperror.IsKind(err, apperror.KindConflict), "offset %v should conflict", offset)
	}
}

func TestBook_ExactlyThirtyMinutesApart(t *testing.T) {
	f := newFixture()
	base := f.now.Add(2 * time.Hour)
	f.book(t, base)

	before := f.book(t, base.Add(-model.ConflictWindow))
	after := f.book(t, base.Add(model.ConflictWindow))
	assert.NotNil(t, before)
	assert.NotNil(t, after)
}

func TestBook_CancelledDoesNotBlock(t *testing.T) {
	f := newFixture()
	base := f.now.Add(2 * time.Hour)
	appt := f.book(t, base)

	_, err := f.svc.Cancel(context.Background(), appt.ID)
	require.NoError(t, err)

	rebooked := f.book(t, base)
	assert.NotNil(t, rebooked, "cancelled appointments free the slot")
}

func TestBook_PastTime(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Book(context.Background(), &model.BookAppointmentRequest{
		PatientID:   f.patient.ID,
		DoctorID:    f.doctor.ID,
		ScheduledAt: f.now.Add(-time.Hour),
	})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestBook_WalkInNow(t *testing.T) {
	f := newFixture()

	appt, err := f.svc.Book(context.Background(), &model.BookAppointmentRequest{
		PatientID:   f.patient.ID,
		DoctorID:    f.doctor.ID,
		ScheduledAt: f.now.Add(-time.Minute),
		Type:        model.AppointmentTypeWalkIn,
	})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentTypeWalkIn, appt.Type)
	assert.Equal(t, model.AppointmentStatusPending, appt.Status,
		"walk-ins wait for check-in before they are confirmed")
}

func TestBook_NonDoctor(t *testing.T) {
	f := newFixture()
	f.doctor.RoleName = model.RoleNurse

	_, err := f.svc.Book(context.Background(), &model.BookAppointmentRequest{
		PatientID:   f.patient.ID,
		DoctorID:    f.doctor.ID,
		ScheduledAt: f.now.Add(time.Hour),
	})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestCheckAvailability(t *testing.T) {
	f := newFixture()
	base := f.now.Add(2 * time.Hour)
	f.book(t, base)

	busy, err := f.svc.CheckAvailability(context.Background(), f.doctor.ID, base.Add(15*time.Minute), nil)
	require.NoError(t, err)
	assert.False(t, busy.Available)
	require.NotNil(t, busy.Conflicting)
	assert.Equal(t, base, busy.Conflicting.ScheduledAt)

	free, err := f.svc.CheckAvailability(context.Background(), f.doctor.ID, base.Add(model.ConflictWindow), nil)
	require.NoError(t, err)
	assert.True(t, free.Available)
}

func TestCheckAvailability_UnknownDoctor(t *testing.T) {
	f := newFixture()

	avail, err := f.svc.CheckAvailability(context.Background(), uuid.New(), f.now.Add(time.Hour), nil)
	require.NoError(t, err)
	assert.True(t, avail.Available, "no bookings means no conflicts")
	assert.Nil(t, avail.Conflicting)
}

func TestConfirm(t *testing.T) {
	f := newFixture()
	appt, err := f.svc.Book(context.Background(), &model.BookAppointmentRequest{
		PatientID:   f.patient.ID,
		DoctorID:    f.doctor.ID,
		ScheduledAt: f.now.Add(time.Minute),
		Type:        model.AppointmentTypeWalkIn,
	})
	require.NoError(t, err)

	confirmed, err := f.svc.Confirm(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusConfirmed, confirmed.Status)

	_, err = f.svc.Confirm(context.Background(), appt.ID)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation), "confirmed appointments cannot be confirmed again")
}

func TestCancel_TerminalStates(t *testing.T) {
	f := newFixture()
	appt := f.book(t, f.now.Add(2*time.Hour))

	_, err := f.svc.Cancel(context.Background(), appt.ID)
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), appt.ID)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation), "cancel is not repeatable")

	require.Len(t, f.repo.events, 2)
	assert.Equal(t, model.EventAppointmentCancelled, f.repo.events[1].EventType)
}

func TestMarkNoShow(t *testing.T) {
	f := newFixture()
	appt := f.book(t, f.now.Add(2*time.Hour))

	updated, err := f.svc.MarkNoShow(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusNoShow, updated.Status)

	_, err = f.svc.Confirm(context.Background(), appt.ID)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestReschedule(t *testing.T) {
	f := newFixture()
	base := f.now.Add(2 * time.Hour)
	appt := f.book(t, base)
	other := f.book(t, base.Add(2*time.Hour))

	// Moving near another appointment conflicts.
	_, err := f.svc.Reschedule(context.Background(), appt.ID, &model.RescheduleAppointmentRequest{
		ScheduledAt: other.ScheduledAt.Add(10 * time.Minute),
	})
	assert.True(t, apperror.IsKind(err, apperror.KindConflict))

	// Moving within the window of its own old slot is fine.
	moved, err := f.svc.Reschedule(context.Background(), appt.ID, &model.RescheduleAppointmentRequest{
		ScheduledAt: base.Add(10 * time.Minute),
	})
	require.NoError(t, err)
	assert.Equal(t, base.Add(10*time.Minute), moved.ScheduledAt)
}

func TestBook_InvalidatesAppointmentStats(t *testing.T) {
	f := newFixture()
	f.cache.Set(statscache.CategoryAppointments, "counts", 5)

	f.book(t, f.now.Add(2*time.Hour))

	_, ok := f.cache.Get(statscache.CategoryAppointments, "counts")
	assert.False(t, ok)
}

func TestDoctorDashboard(t *testing.T) {
	f := newFixture()

	today := f.book(t, f.now.Add(3*time.Hour))
	f.book(t, f.now.Add(26*time.Hour))

	_, err := f.svc.Cancel(context.Background(), today.ID)
	require.NoError(t, err)
	f.book(t, f.now.Add(5*time.Hour))

	dashboard, err := f.svc.DoctorDashboard(context.Background(), f.doctor.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, dashboard.TotalToday)
	assert.Equal(t, 1, dashboard.PendingCount)
	assert.Len(t, dashboard.UpcomingAppointments, 1)
}
