package facility

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

type fakeFacilityRepo struct {
	repository.FacilityRepository
	beds       map[uuid.UUID]*model.Bed
	admissions map[uuid.UUID]*model.Admission
	events     []*model.OutboxEvent
}

func newFakeFacilityRepo() *fakeFacilityRepo {
	return &fakeFacilityRepo{
		beds:       map[uuid.UUID]*model.Bed{},
		admissions: map[uuid.UUID]*model.Admission{},
	}
}

func (f *fakeFacilityRepo) CreateBed(_ context.Context, bed *model.Bed) error {
	for _, b := range f.beds {
		if b.RoomNumber == bed.RoomNumber && b.BedLabel == bed.BedLabel {
			return repository.ErrDuplicate
		}
	}
	f.beds[bed.ID] = bed
	return nil
}

func (f *fakeFacilityRepo) GetBed(_ context.Context, id uuid.UUID) (*model.Bed, error) {
	if b, ok := f.beds[id]; ok {
		return b, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeFacilityRepo) ListBeds(_ context.Context) ([]*model.Bed, error) {
	beds := []*model.Bed{}
	for _, b := range f.beds {
		beds = append(beds, b)
	}
	return beds, nil
}

func (f *fakeFacilityRepo) SetBedStatus(_ context.Context, id uuid.UUID, status model.BedStatus) error {
	bed, ok := f.beds[id]
	if !ok {
		return repository.ErrNotFound
	}
	if bed.Status == model.BedStatusOccupied {
		return repository.ErrBedUnavailable
	}
	bed.Status = status
	return nil
}

func (f *fakeFacilityRepo) Admit(_ context.Context, admission *model.Admission, evt *model.OutboxEvent) error {
	bed, ok := f.beds[admission.BedID]
	if !ok {
		return repository.ErrNotFound
	}
	if bed.Status != model.BedStatusAvailable {
		return repository.ErrBedUnavailable
	}
	for _, a := range f.admissions {
		if a.PatientID == admission.PatientID && a.Status == model.AdmissionStatusActive {
			return repository.ErrAlreadyAdmitted
		}
	}
	f.admissions[admission.ID] = admission
	bed.Status = model.BedStatusOccupied
	if evt != nil {
		f.events = append(f.events, evt)
	}
	return nil
}

func (f *fakeFacilityRepo) Discharge(_ context.Context, admissionID uuid.UUID, at time.Time, notes string, evt *model.OutboxEvent) (*model.Admission, error) {
	admission, ok := f.admissions[admissionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if admission.Status != model.AdmissionStatusActive {
		return nil, repository.ErrAdmissionClosed
	}
	admission.Status = model.AdmissionStatusDischarged
	admission.DischargedAt = &at
	admission.Notes = notes
	f.beds[admission.BedID].Status = model.BedStatusMaintenance
	if evt != nil {
		f.events = append(f.events, evt)
	}
	return admission, nil
}

func (f *fakeFacilityRepo) GetAdmission(_ context.Context, id uuid.UUID) (*model.Admission, error) {
	if a, ok := f.admissions[id]; ok {
		return a, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeFacilityRepo) ActiveAdmissionForBed(_ context.Context, bedID uuid.UUID) (*model.Admission, error) {
	for _, a := range f.admissions {
		if a.BedID == bedID && a.Status == model.AdmissionStatusActive {
			return a, nil
		}
	}
	return nil, repository.ErrNotFound
}

type fakePatientRepo struct {
	repository.PatientRepository
	ids map[uuid.UUID]bool
}

func (f *fakePatientRepo) Get(_ context.Context, id uuid.UUID) (*model.Patient, error) {
	if f.ids[id] {
		return &model.Patient{Base: model.Base{ID: id}, FullName: "Test Patient"}, nil
	}
	return nil, repository.ErrNotFound
}

type fixture struct {
	svc     *Service
	repo    *fakeFacilityRepo
	cache   *statscache.Cache
	patient uuid.UUID
	now     time.Time
}

func newFixture() *fixture {
	repo := newFakeFacilityRepo()
	patient := uuid.New()
	cache := statscache.New(time.Hour, nil)
	svc := NewService(repo, &fakePatientRepo{ids: map[uuid.UUID]bool{patient: true}}, cache)

	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	return &fixture{svc: svc, repo: repo, cache: cache, patient: patient, now: now}
}

func (f *fixture) addBed(t *testing.T, room, label string) *model.Bed {
	t.Helper()
	bed, err := f.svc.CreateBed(context.Background(), &model.CreateBedRequest{RoomNumber: room, BedLabel: label})
	require.NoError(t, err)
	return bed
}

func TestAdmitAndDischarge_RoundTrip(t *testing.T) {
	f := newFixture()
	bed := f.addBed(t, "101", "A")

	admission, err := f.svc.Admit(context.Background(), &model.AdmitPatientRequest{
		PatientID: f.patient,
		BedID:     bed.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, model.AdmissionStatusActive, admission.Status)
	assert.Equal(t, model.BedStatusOccupied, f.repo.beds[bed.ID].Status)

	discharged, err := f.svc.Discharge(context.Background(), admission.ID, &model.DischargePatientRequest{})
	require.NoError(t, err)
	assert.Equal(t, model.AdmissionStatusDischarged, discharged.Status)
	assert.NotNil(t, discharged.DischargedAt)
	assert.Equal(t, model.BedStatusMaintenance, f.repo.beds[bed.ID].Status,
		"discharge sends the bed to maintenance, not available")

	require.Len(t, f.repo.events, 2)
	assert.Equal(t, model.EventPatientAdmitted, f.repo.events[0].EventType)
	assert.Equal(t, model.EventPatientDischarged, f.repo.events[1].EventType)
}

func TestAdmit_BedNotAvailable(t *testing.T) {
	f := newFixture()
	bed := f.addBed(t, "101", "A")

	_, err := f.svc.Admit(context.Background(), &model.AdmitPatientRequest{PatientID: f.patient, BedID: bed.ID})
	require.NoError(t, err)

	other := uuid.New()
	f.svc.patients.(*fakePatientRepo).ids[other] = true
	_, err = f.svc.Admit(context.Background(), &model.AdmitPatientRequest{PatientID: other, BedID: bed.ID})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestAdmit_PatientAlreadyAdmitted(t *testing.T) {
	f := newFixture()
	bedA := f.addBed(t, "101", "A")
	bedB := f.addBed(t, "101", "B")

	_, err := f.svc.Admit(context.Background(), &model.AdmitPatientRequest{PatientID: f.patient, BedID: bedA.ID})
	require.NoError(t, err)

	_, err = f.svc.Admit(context.Background(), &model.AdmitPatientRequest{PatientID: f.patient, BedID: bedB.ID})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestDischarge_DateBoundaries(t *testing.T) {
	f := newFixture()
	bed := f.addBed(t, "101", "A")

	admittedAt := f.now.Add(-24 * time.Hour)
	admission, err := f.svc.Admit(context.Background(), &model.AdmitPatientRequest{
		PatientID:  f.patient,
		BedID:      bed.ID,
		AdmittedAt: &admittedAt,
	})
	require.NoError(t, err)

	before := admittedAt.Add(-time.Hour)
	_, err = f.svc.Discharge(context.Background(), admission.ID, &model.DischargePatientRequest{DischargedAt: &before})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation), "discharge before admission is rejected")

	// Same instant as admission is accepted.
	discharged, err := f.svc.Discharge(context.Background(), admission.ID, &model.DischargePatientRequest{DischargedAt: &admittedAt})
	require.NoError(t, err)
	assert.True(t, discharged.DischargedAt.Equal(admittedAt))
}

func TestDischarge_AlreadyDischarged(t *testing.T) {
	f := newFixture()
	bed := f.addBed(t, "101", "A")

	admission, err := f.svc.Admit(context.Background(), &model.AdmitPatientRequest{PatientID: f.patient, BedID: bed.ID})
	require.NoError(t, err)
	_, err = f.svc.Discharge(context.Background(), admission.ID, &model.DischargePatientRequest{})
	require.NoError(t, err)

	_, err = f.svc.Discharge(context.Background(), admission.ID, &model.DischargePatientRequest{})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestSetBedStatus(t *testing.T) {
	f := newFixture()
	bed := f.addBed(t, "101", "A")

	_, err := f.svc.SetBedStatus(context.Background(), bed.ID, model.BedStatusOccupied)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation), "occupied cannot be set directly")

	updated, err := f.svc.SetBedStatus(context.Background(), bed.ID, model.BedStatusMaintenance)
	require.NoError(t, err)
	assert.Equal(t, model.BedStatusMaintenance, updated.Status)

	updated, err = f.svc.SetBedStatus(context.Background(), bed.ID, model.BedStatusAvailable)
	require.NoError(t, err)
	assert.Equal(t, model.BedStatusAvailable, updated.Status)
}

func TestSetBedStatus_OccupiedBedProtected(t *testing.T) {
	f := newFixture()
	bed := f.addBed(t, "101", "A")

	_, err := f.svc.Admit(context.Background(), &model.AdmitPatientRequest{PatientID: f.patient, BedID: bed.ID})
	require.NoError(t, err)

	_, err = f.svc.SetBedStatus(context.Background(), bed.ID, model.BedStatusAvailable)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestCreateBed_Duplicate(t *testing.T) {
	f := newFixture()
	f.addBed(t, "101", "A")

	_, err := f.svc.CreateBed(context.Background(), &model.CreateBedRequest{RoomNumber: "101", BedLabel: "A"})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestBedBoard(t *testing.T) {
	f := newFixture()
	bedA := f.addBed(t, "101", "A")
	f.addBed(t, "101", "B")
	f.addBed(t, "102", "A")

	_, err := f.svc.Admit(context.Background(), &model.AdmitPatientRequest{PatientID: f.patient, BedID: bedA.ID})
	require.NoError(t, err)

	board, err := f.svc.BedBoard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, board.Total)
	assert.Equal(t, 1, board.Occupied)
	assert.Equal(t, 2, board.Available)
	assert.Len(t, board.Rooms["101"], 2)

	for _, entry := range board.Rooms["101"] {
		if entry.ID == bedA.ID {
			require.NotNil(t, entry.ActiveAdmission)
			assert.Equal(t, f.patient, entry.ActiveAdmission.PatientID)
		}
	}
}

func TestAdmit_InvalidatesOccupancyStats(t *testing.T) {
	f := newFixture()
	bed := f.addBed(t, "101", "A")
	f.cache.Set(statscache.CategoryOccupancy, "board", 1)

	_, err := f.svc.Admit(context.Background(), &model.AdmitPatientRequest{PatientID: f.patient, BedID: bed.ID})
	require.NoError(t, err)

	_, ok := f.cache.Get(statscache.CategoryOccupancy, "board")
	assert.False(t, ok)
}
