// Package clinical handles medical visits, the record a doctor files after
// seeing a patient.
package clinical

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/alsalam/hospital-api/internal/model"
	"github.com/alsalam/hospital-api/internal/repository"
	"github.com/alsalam/hospital-api/internal/statscache"
	"github.com/alsalam/hospital-api/pkg/apperror"
)

const defaultHistoryLimit = 50

type Service struct {
	visits repository.VisitRepository
	appts  repository.AppointmentRepository
	cache  *statscache.Cache
}

func NewService(visits repository.VisitRepository, appts repository.AppointmentRepository, cache *statscache.Cache) *Service {
	return &Service{visits: visits, appts: appts, cache: cache}
}

// FileVisit records the clinical outcome of an appointment and completes it
// in one transaction. Only the appointment's own doctor may file, only once,
// and only while the appointment is still open.
func (s *Service) FileVisit(ctx context.Context, appointmentID, doctorID uuid.UUID, req *model.FileVisitRequest) (*model.MedicalVisit, error) {
	appt, err := s.appts.Get(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("appointment")
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}

	if appt.DoctorID != doctorID {
		return nil, apperror.Forbidden("only the attending doctor can file this visit")
	}
	if appt.Status.IsTerminal() {
		return nil, apperror.Validationf("appointment is already %s", appt.Status)
	}

	visit := &model.MedicalVisit{
		Base:          model.Base{ID: uuid.New()},
		AppointmentID: appointmentID,
		DoctorID:      doctorID,
		Symptoms:      req.Symptoms,
		Diagnosis:     req.Diagnosis,
		Prescription:  req.Prescription,
		Vitals:        req.Vitals,
	}

	if err := s.visits.CreateWithCompletion(ctx, visit); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperror.Validation("a visit has already been filed for this appointment")
		}
		return nil, fmt.Errorf("failed to file visit: %w", err)
	}

	s.cache.Invalidate(statscache.CategoryAppointments)
	return visit, nil
}

func (s *Service) GetVisit(ctx context.Context, id uuid.UUID) (*model.MedicalVisit, error) {
	visit, err := s.visits.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("visit")
		}
		return nil, fmt.Errorf("failed to get visit: %w", err)
	}
	return visit, nil
}

func (s *Service) GetVisitByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.MedicalVisit, error) {
	visit, err := s.visits.GetByAppointment(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("visit")
		}
		return nil, fmt.Errorf("failed to get visit: %w", err)
	}
	return visit, nil
}

// PatientHistory returns the patient's visits, newest first.
func (s *Service) PatientHistory(ctx context.Context, patientID uuid.UUID, limit int) ([]*model.MedicalVisit, error) {
	if limit <= 0 || limit > defaultHistoryLimit {
		limit = defaultHistoryLimit
	}
	visits, err := s.visits.ListByPatient(ctx, patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list patient visits: %w", err)
	}
	return visits, nil
}
