// Package facility manages beds and inpatient admissions.
package facility

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

type Service struct {
	facility repository.FacilityRepository
	patients repository.PatientRepository
	cache    *statscache.Cache
	now      func() time.Time
}

func NewService(facility repository.FacilityRepository, patients repository.PatientRepository, cache *statscache.Cache) *Service {
	return &Service{facility: facility, patients: patients, cache: cache, now: time.Now}
}

func (s *Service) CreateBed(ctx context.Context, req *model.CreateBedRequest) (*model.Bed, error) {
	bed := &model.Bed{
		Base:       model.Base{ID: uuid.New()},
		RoomNumber: req.RoomNumber,
		BedLabel:   req.BedLabel,
		Status:     model.BedStatusAvailable,
	}
	if err := s.facility.CreateBed(ctx, bed); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperror.Validationf("bed %s-%s already exists", req.RoomNumber, req.BedLabel)
		}
		return nil, fmt.Errorf("failed to create bed: %w", err)
	}
	s.cache.Invalidate(statscache.CategoryOccupancy)
	return bed, nil
}

// SetBedStatus clears a bed back to available after cleaning or takes it out
// of service. Occupied beds only change status through discharge.
func (s *Service) SetBedStatus(ctx context.Context, id uuid.UUID, status model.BedStatus) (*model.Bed, error) {
	if status != model.BedStatusAvailable && status != model.BedStatusMaintenance {
		return nil, apperror.Validation("beds can only be set to available or maintenance")
	}

	err := s.facility.SetBedStatus(ctx, id, status)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.NotFound("bed")
	}
	if errors.Is(err, repository.ErrBedUnavailable) {
		return nil, apperror.Validation("bed is occupied, discharge the patient first")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to set bed status: %w", err)
	}

	s.cache.Invalidate(statscache.CategoryOccupancy)
	return s.facility.GetBed(ctx, id)
}

// BedBoard builds the per-room ward view with each bed's active admission.
func (s *Service) BedBoard(ctx context.Context) (*model.BedBoard, error) {
	beds, err := s.facility.ListBeds(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list beds: %w", err)
	}

	board := &model.BedBoard{Rooms: map[string][]*model.BedWithAdmission{}}
	for _, bed := range beds {
		entry := &model.BedWithAdmission{Bed: *bed}
		if bed.Status == model.BedStatusOccupied {
			admission, err := s.facility.ActiveAdmissionForBed(ctx, bed.ID)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("failed to load admission for bed: %w", err)
			}
			entry.ActiveAdmission = admission
		}

		board.Rooms[bed.RoomNumber] = append(board.Rooms[bed.RoomNumber], entry)
		board.Total++
		switch bed.Status {
		case model.BedStatusAvailable:
			board.Available++
		case model.BedStatusOccupied:
			board.Occupied++
		case model.BedStatusMaintenance:
			board.Maintenance++
		}
	}
	return board, nil
}

// Admit places a patient in an available bed. The repository transaction
// locks the bed and the active-admission indexes guarantee one active
// admission per patient and per bed even under racing requests.
func (s *Service) Admit(ctx context.Context, req *model.AdmitPatientRequest) (*model.Admission, error) {
	if _, err := s.patients.Get(ctx, req.PatientID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.Validation("patient does not exist")
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}

	admittedAt := s.now()
	if req.AdmittedAt != nil {
		admittedAt = *req.AdmittedAt
	}

	admission := &model.Admission{
		Base:       model.Base{ID: uuid.New()},
		PatientID:  req.PatientID,
		BedID:      req.BedID,
		AdmittedAt: admittedAt,
		Status:     model.AdmissionStatusActive,
		Notes:      req.Notes,
	}

	evt, err := admissionEvent(model.EventPatientAdmitted, admission)
	if err != nil {
		return nil, err
	}

	err = s.facility.Admit(ctx, admission, evt)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.NotFound("bed")
	}
	if errors.Is(err, repository.ErrBedUnavailable) {
		return nil, apperror.Validation("bed is not available")
	}
	if errors.Is(err, repository.ErrAlreadyAdmitted) {
		return nil, apperror.Validation("patient already has an active admission")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to admit patient: %w", err)
	}

	s.cache.Invalidate(statscache.CategoryOccupancy, statscache.CategoryPatients)
	return admission, nil
}

// Discharge closes an active admission. The discharge date may not precede
// the admission date; the same instant is accepted. The bed goes to
// maintenance for cleaning, not straight back to available.
func (s *Service) Discharge(ctx context.Context, admissionID uuid.UUID, req *model.DischargePatientRequest) (*model.Admission, error) {
	admission, err := s.GetAdmission(ctx, admissionID)
	if err != nil {
		return nil, err
	}

	dischargedAt := s.now()
	if req.DischargedAt != nil {
		dischargedAt = *req.DischargedAt
	}
	if dischargedAt.Before(admission.AdmittedAt) {
		return nil, apperror.Validation("discharge date cannot be before the admission date")
	}

	notes := admission.Notes
	if req.Notes != "" {
		notes = req.Notes
	}

	evt, err := admissionEvent(model.EventPatientDischarged, &model.Admission{
		Base:         admission.Base,
		PatientID:    admission.PatientID,
		BedID:        admission.BedID,
		AdmittedAt:   admission.AdmittedAt,
		DischargedAt: &dischargedAt,
	})
	if err != nil {
		return nil, err
	}

	discharged, err := s.facility.Discharge(ctx, admissionID, dischargedAt, notes, evt)
	if errors.Is(err, repository.ErrAdmissionClosed) {
		return nil, apperror.Validation("admission is already discharged")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to discharge: %w", err)
	}

	s.cache.Invalidate(statscache.CategoryOccupancy)
	return discharged, nil
}

func (s *Service) GetAdmission(ctx context.Context, id uuid.UUID) (*model.Admission, error) {
	admission, err := s.facility.GetAdmission(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("admission")
		}
		return nil, fmt.Errorf("failed to get admission: %w", err)
	}
	return admission, nil
}

func (s *Service) ListAdmissions(ctx context.Context, filters *model.AdmissionFilters) ([]*model.Admission, int, error) {
	admissions, total, err := s.facility.ListAdmissions(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list admissions: %w", err)
	}
	return admissions, total, nil
}

func admissionEvent(eventType string, admission *model.Admission) (*model.OutboxEvent, error) {
	payload, err := json.Marshal(model.AdmissionEventPayload{
		AdmissionID:  admission.ID,
		PatientID:    admission.PatientID,
		BedID:        admission.BedID,
		AdmittedAt:   admission.AdmittedAt,
		DischargedAt: admission.DischargedAt,
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
