package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alsalam/hospital-api/internal/model"
)

// Sentinel errors surfaced by repositories. Services translate these into
// user-facing rejections; unique-constraint violations caught at the commit
// boundary surface as ErrDuplicate.
var (
	ErrNotFound        = errors.New("record not found")
	ErrDuplicate       = errors.New("duplicate record")
	ErrReferenced      = errors.New("record is referenced by other records")
	ErrBedUnavailable  = errors.New("bed is not available")
	ErrAlreadyAdmitted = errors.New("patient already has an active admission")
	ErrAdmissionClosed = errors.New("admission is not active")
)

// All repository interfaces in one file
type (
	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByUsername(ctx context.Context, username string) (*model.User, error)
		Update(ctx context.Context, user *model.User) error
		UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
		UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
		SetActive(ctx context.Context, id uuid.UUID, active bool) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.UserFilters) ([]*model.User, error)
		CountByRole(ctx context.Context, roleID uuid.UUID) (int, error)
	}

	RBACRepository interface {
		CreateRole(ctx context.Context, role *model.Role) error
		GetRole(ctx context.Context, id uuid.UUID) (*model.Role, error)
		GetRoleByName(ctx context.Context, name string) (*model.Role, error)
		UpdateRole(ctx context.Context, role *model.Role) error
		DeleteRole(ctx context.Context, id uuid.UUID) error
		ListRoles(ctx context.Context) ([]*model.Role, error)

		CreatePermission(ctx context.Context, permission *model.Permission) error
		GetPermission(ctx context.Context, id uuid.UUID) (*model.Permission, error)
		GetPermissionBySlug(ctx context.Context, slug string) (*model.Permission, error)
		UpdatePermission(ctx context.Context, permission *model.Permission) error
		DeletePermission(ctx context.Context, id uuid.UUID) error
		ListPermissions(ctx context.Context) ([]*model.Permission, error)

		GrantPermission(ctx context.Context, roleID, permissionID uuid.UUID) error
		RevokePermission(ctx context.Context, roleID, permissionID uuid.UUID) error
		ReplacePermissions(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID) error
		ListRolePermissions(ctx context.Context, roleID uuid.UUID) ([]*model.Permission, error)
		UserHasPermission(ctx context.Context, userID uuid.UUID, slug string) (bool, error)
	}

	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		GetByFileNumber(ctx context.Context, fileNumber string) (*model.Patient, error)
		Update(ctx context.Context, patient *model.Patient) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, int, error)
		MaxFileSequence(ctx context.Context, year int) (int, error)
	}

	AppointmentRepository interface {
		// Book re-checks the conflict window under a doctor row lock, inserts
		// the appointment and its outbox event in one transaction, and
		// returns the conflicting appointment instead when the slot was taken
		// by a concurrent writer.
		Book(ctx context.Context, appt *model.Appointment, evt *model.OutboxEvent) (*model.Appointment, error)
		Reschedule(ctx context.Context, appt *model.Appointment) (*model.Appointment, error)
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus, evt *model.OutboxEvent) error
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, int, error)
		FindInWindow(ctx context.Context, doctorID uuid.UUID, from, to time.Time, excludeID *uuid.UUID) ([]*model.Appointment, error)
		ListForDoctorBetween(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*model.Appointment, error)
		CountBlockedForDoctor(ctx context.Context, doctorID uuid.UUID) (int, error)
	}

	VisitRepository interface {
		// CreateWithCompletion inserts the visit and marks its appointment
		// completed in one transaction.
		CreateWithCompletion(ctx context.Context, visit *model.MedicalVisit) error
		Get(ctx context.Context, id uuid.UUID) (*model.MedicalVisit, error)
		GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.MedicalVisit, error)
		ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*model.MedicalVisit, error)
		ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit int) ([]*model.MedicalVisit, error)
	}

	FacilityRepository interface {
		CreateBed(ctx context.Context, bed *model.Bed) error
		GetBed(ctx context.Context, id uuid.UUID) (*model.Bed, error)
		ListBeds(ctx context.Context) ([]*model.Bed, error)
		SetBedStatus(ctx context.Context, id uuid.UUID, status model.BedStatus) error

		// Admit locks the bed row, verifies it is available, inserts the
		// active admission and flips the bed to occupied in one transaction.
		// The partial unique indexes turn a racing second admit into
		// ErrAlreadyAdmitted.
		Admit(ctx context.Context, admission *model.Admission, evt *model.OutboxEvent) error
		// Discharge closes the admission and sends its bed to maintenance in
		// one transaction.
		Discharge(ctx context.Context, admissionID uuid.UUID, at time.Time, notes string, evt *model.OutboxEvent) (*model.Admission, error)
		GetAdmission(ctx context.Context, id uuid.UUID) (*model.Admission, error)
		ListAdmissions(ctx context.Context, filters *model.AdmissionFilters) ([]*model.Admission, int, error)
		ActiveAdmissionForPatient(ctx context.Context, patientID uuid.UUID) (*model.Admission, error)
		ActiveAdmissionForBed(ctx context.Context, bedID uuid.UUID) (*model.Admission, error)
		ListBedAdmissions(ctx context.Context, bedID uuid.UUID, limit int) ([]*model.Admission, error)
	}

	BillingRepository interface {
		CreateService(ctx context.Context, service *model.Service) error
		GetService(ctx context.Context, id uuid.UUID) (*model.Service, error)
		UpdateService(ctx context.Context, service *model.Service) error
		SetServiceActive(ctx context.Context, id uuid.UUID, active bool) error
		ListServices(ctx context.Context, activeOnly bool) ([]*model.Service, error)

		CreateInvoice(ctx context.Context, invoice *model.Invoice) error
		GetInvoice(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
		RecordPayment(ctx context.Context, invoice *model.Invoice, evt *model.OutboxEvent) error
		DeleteInvoice(ctx context.Context, id uuid.UUID) error
		ListInvoices(ctx context.Context, filters *model.InvoiceFilters) ([]*model.Invoice, int, error)
		Summary(ctx context.Context) (*model.BillingSummary, error)
	}

	ReportRepository interface {
		RevenueBetween(ctx context.Context, r model.DateRange) (decimal.Decimal, int, error)
		MonthlyRevenue(ctx context.Context, months int) ([]*model.MonthlyRevenue, error)
		PatientStats(ctx context.Context, r model.DateRange) (*model.PatientStats, error)
		MonthlyPatientCounts(ctx context.Context, months int) ([]*model.MonthlyCount, error)
		AppointmentStats(ctx context.Context, r model.DateRange) (*model.AppointmentStats, error)
		Occupancy(ctx context.Context) (*model.OccupancyStats, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		ClaimPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
