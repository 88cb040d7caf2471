package patient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alsalam/hospital-api/internal/model"
	"github.com/alsalam/hospital-api/internal/repository"
	"github.com/alsalam/hospital-api/internal/statscache"
	"github.com/alsalam/hospital-api/pkg/apperror"
)

// fileNumberRetries bounds how often registration retries when two requests
// race for the same sequence number.
const fileNumberRetries = 3

type Service struct {
	patients repository.PatientRepository
	cache    *statscache.Cache
	now      func() time.Time
}

func NewService(patients repository.PatientRepository, cache *statscache.Cache) *Service {
	return &Service{patients: patients, cache: cache, now: time.Now}
}

// Register creates a patient with a generated P-YYYY-NNNN file number. The
// unique index on file_number catches concurrent registrations; on a
// collision the next sequence number is tried.
func (s *Service) Register(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error) {
	year := s.now().Year()

	for attempt := 0; attempt < fileNumberRetries; attempt++ {
		seq, err := s.patients.MaxFileSequence(ctx, year)
		if err != nil {
			return nil, fmt.Errorf("failed to generate file number: %w", err)
		}

		patient := &model.Patient{
			Base:             model.Base{ID: uuid.New()},
			FileNumber:       fmt.Sprintf("P-%d-%04d", year, seq+1),
			FullName:         req.FullName,
			Phone:            req.Phone,
			Email:            req.Email,
			Gender:           req.Gender,
			DateOfBirth:      req.DateOfBirth,
			Address:          req.Address,
			EmergencyContact: req.EmergencyContact,
		}

		err = s.patients.Create(ctx, patient)
		if errors.Is(err, repository.ErrDuplicate) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to register patient: %w", err)
		}

		s.cache.Invalidate(statscache.CategoryPatients)
		return patient, nil
	}
	return nil, apperror.Conflict(repository.ErrDuplicate)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	patient, err := s.patients.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("patient")
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return patient, nil
}

func (s *Service) GetByFileNumber(ctx context.Context, fileNumber string) (*model.Patient, error) {
	patient, err := s.patients.GetByFileNumber(ctx, fileNumber)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("patient")
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return patient, nil
}

// Update edits demographic fields. The file number is immutable.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdatePatientRequest) (*model.Patient, error) {
	patient, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		patient.FullName = *req.FullName
	}
	if req.Phone != nil {
		patient.Phone = *req.Phone
	}
	if req.Email != nil {
		patient.Email = *req.Email
	}
	if req.Gender != nil {
		patient.Gender = *req.Gender
	}
	if req.DateOfBirth != nil {
		patient.DateOfBirth = req.DateOfBirth
	}
	if req.Address != nil {
		patient.Address = *req.Address
	}
	if req.EmergencyContact != nil {
		patient.EmergencyContact = *req.EmergencyContact
	}

	if err := s.patients.Update(ctx, patient); err != nil {
		return nil, fmt.Errorf("failed to update patient: %w", err)
	}
	s.cache.Invalidate(statscache.CategoryPatients)
	return patient, nil
}

// Delete removes a patient with no clinical or billing history. Patients with
// appointments, admissions or invoices on file are kept for the record.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.patients.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.NotFound("patient")
	}
	if errors.Is(err, repository.ErrReferenced) {
		return apperror.Validation("patient has appointments, admissions or invoices on file")
	}
	if err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}
	s.cache.Invalidate(statscache.CategoryPatients)
	return nil
}

func (s *Service) List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, int, error) {
	patients, total, err := s.patients.List(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, total, nil
}
