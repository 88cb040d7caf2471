package clinical

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

type fakeVisitRepo struct {
	repository.VisitRepository
	visits map[uuid.UUID]*model.MedicalVisit
	appts  *fakeApptRepo
}

func (f *fakeVisitRepo) CreateWithCompletion(_ context.Context, visit *model.MedicalVisit) error {
	for _, v := range f.visits {
		if v.AppointmentID == visit.AppointmentID {
			return repository.ErrDuplicate
		}
	}
	f.visits[visit.ID] = visit
	f.appts.appts[visit.AppointmentID].Status = model.AppointmentStatusCompleted
	return nil
}

func (f *fakeVisitRepo) Get(_ context.Context, id uuid.UUID) (*model.MedicalVisit, error) {
	if v, ok := f.visits[id]; ok {
		return v, nil
	}
	return nil, repository.ErrNotFound
}

type fakeApptRepo struct {
	repository.AppointmentRepository
	appts map[uuid.UUID]*model.Appointment
}

func (f *fakeApptRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	if a, ok := f.appts[id]; ok {
		return a, nil
	}
	return nil, repository.ErrNotFound
}

type fixture struct {
	svc    *Service
	appts  *fakeApptRepo
	cache  *statscache.Cache
	appt   *model.Appointment
	doctor uuid.UUID
}

func newFixture() *fixture {
	doctor := uuid.New()
	appt := &model.Appointment{
		Base:        model.Base{ID: uuid.New()},
		PatientID:   uuid.New(),
		DoctorID:    doctor,
		ScheduledAt: time.Now(),
		Status:      model.AppointmentStatusConfirmed,
	}

	appts := &fakeApptRepo{appts: map[uuid.UUID]*model.Appointment{appt.ID: appt}}
	visits := &fakeVisitRepo{visits: map[uuid.UUID]*model.MedicalVisit{}, appts: appts}
	cache := statscache.New(time.Hour, nil)

	return &fixture{
		svc:    NewService(visits, appts, cache),
		appts:  appts,
		cache:  cache,
		appt:   appt,
		doctor: doctor,
	}
}

func TestFileVisit(t *testing.T) {
	f := newFixture()

	visit, err := f.svc.FileVisit(context.Background(), f.appt.ID, f.doctor, &model.FileVisitRequest{
		Symptoms:     "persistent cough",
		Diagnosis:    "acute bronchitis",
		Prescription: "amoxicillin 500mg",
		Vitals:       model.JSONMap{"temp": 37.9},
	})
	require.NoError(t, err)
	assert.Equal(t, "acute bronchitis", visit.Diagnosis)
	assert.Equal(t, model.AppointmentStatusCompleted, f.appt.Status,
		"filing the visit completes the appointment")
}

func TestFileVisit_WrongDoctor(t *testing.T) {
	f := newFixture()

	_, err := f.svc.FileVisit(context.Background(), f.appt.ID, uuid.New(), &model.FileVisitRequest{
		Diagnosis: "acute bronchitis",
	})
	assert.True(t, apperror.IsKind(err, apperror.KindForbidden))
}

func TestFileVisit_TerminalAppointment(t *testing.T) {
	f := newFixture()
	f.appt.Status = model.AppointmentStatusCancelled

	_, err := f.svc.FileVisit(context.Background(), f.appt.ID, f.doctor, &model.FileVisitRequest{
		Diagnosis: "acute bronchitis",
	})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestFileVisit_OnlyOnce(t *testing.T) {
	f := newFixture()

	_, err := f.svc.FileVisit(context.Background(), f.appt.ID, f.doctor, &model.FileVisitRequest{
		Diagnosis: "acute bronchitis",
	})
	require.NoError(t, err)

	// A completed appointment is terminal, so the second filing is rejected
	// before the duplicate check even runs.
	_, err = f.svc.FileVisit(context.Background(), f.appt.ID, f.doctor, &model.FileVisitRequest{
		Diagnosis: "second opinion",
	})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestFileVisit_UnknownAppointment(t *testing.T) {
	f := newFixture()

	_, err := f.svc.FileVisit(context.Background(), uuid.New(), f.doctor, &model.FileVisitRequest{
		Diagnosis: "acute bronchitis",
	})
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}

func TestFileVisit_InvalidatesStats(t *testing.T) {
	f := newFixture()
	f.cache.Set(statscache.CategoryAppointments, "counts", 1)

	_, err := f.svc.FileVisit(context.Background(), f.appt.ID, f.doctor, &model.FileVisitRequest{
		Diagnosis: "acute bronchitis",
	})
	require.NoError(t, err)

	_, ok := f.cache.Get(statscache.CategoryAppointments, "counts")
	assert.False(t, ok)
}
