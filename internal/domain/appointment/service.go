package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/carehub/carehub/internal/domain/doctor"
	"github.com/carehub/carehub/internal/domain/hospital"
	"github.com/carehub/carehub/internal/platform/auth"
	"github.com/carehub/carehub/pkg/apperr"
)

// HospitalDirectory resolves hospitals for booking and scoping.
type HospitalDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*hospital.Hospital, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*hospital.Hospital, error)
}

// DepartmentDirectory looks up departments for ownership checks.
type DepartmentDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*hospital.Department, error)
}

// DoctorDirectory resolves doctor profiles for assignment and scoping.
type DoctorDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*doctor.Profile, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*doctor.Profile, error)
}

type Service struct {
	repo        Repository
	hospitals   HospitalDirectory
	departments DepartmentDirectory
	doctors     DoctorDirectory
	now         func() time.Time
}

func NewService(repo Repository, hospitals HospitalDirectory,
	departments DepartmentDirectory, doctors DoctorDirectory) *Service {
	return &Service{
		repo:        repo,
		hospitals:   hospitals,
		departments: departments,
		doctors:     doctors,
		now:         time.Now,
	}
}

// CreateInput is the booking payload.
type CreateInput struct {
	HospitalID    uuid.UUID  `json:"hospital_id"`
	DepartmentID  *uuid.UUID `json:"department_id,omitempty"`
	RequestedTime time.Time  `json:"requested_time"`
	Reason        string     `json:"reason"`
}

// Create books an appointment at an approved hospital. New appointments
// always start REQUESTED.
func (s *Service) Create(ctx context.Context, ident *auth.Identity, in CreateInput) (*Appointment, error) {
	h, err := s.hospitals.GetByID(ctx, in.HospitalID)
	if err != nil || !h.IsApproved {
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.Wrap(apperr.KindInternal, "fetch hospital", err)
		}
		return nil, apperr.NotFound("hospital")
	}
	if in.DepartmentID != nil {
		d, err := s.departments.GetByID(ctx, *in.DepartmentID)
		if err != nil || d.HospitalID != h.ID {
			return nil, apperr.Validation("invalid appointment payload",
				map[string]string{"department_id": "department does not belong to this hospital"})
		}
	}
	if !in.RequestedTime.After(s.now()) {
		return nil, apperr.Validation("invalid appointment payload",
			map[string]string{"requested_time": "requested time must be in the future"})
	}

	a := &Appointment{
		PatientID:     ident.UserID,
		HospitalID:    h.ID,
		DepartmentID:  in.DepartmentID,
		RequestedTime: in.RequestedTime,
		Reason:        in.Reason,
		Status:        StatusRequested,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "create appointment", err)
	}
	return a, nil
}

// profileIDs collects the caller's doctor profile ids.
func (s *Service) profileIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	profiles, err := s.doctors.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list doctor profiles", err)
	}
	ids := make([]uuid.UUID, 0, len(profiles))
	for _, p := range profiles {
		ids = append(ids, p.ID)
	}
	return ids, nil
}

// getScoped fetches an appointment and enforces the visibility table.
// Out-of-scope reads report not-found so existence is not confirmed.
func (s *Service) getScoped(ctx context.Context, ident *auth.Identity, id uuid.UUID) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("appointment")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "fetch appointment", err)
	}

	switch ident.Role {
	case auth.RoleAdmin:
		return a, nil
	case auth.RolePatient:
		if a.PatientID == ident.UserID {
			return a, nil
		}
	case auth.RoleHospital:
		h, err := s.hospitals.GetByUserID(ctx, ident.UserID)
		if err == nil && h.ID == a.HospitalID {
			return a, nil
		}
	case auth.RoleDoctor:
		if a.AssignedDoctorID != nil {
			ids, err := s.profileIDs(ctx, ident.UserID)
			if err != nil {
				return nil, err
			}
			for _, pid := range ids {
				if pid == *a.AssignedDoctorID {
					return a, nil
				}
			}
		}
	}
	return nil, apperr.NotFound("appointment")
}

// Get returns a single appointment, role-scoped.
func (s *Service) Get(ctx context.Context, ident *auth.Identity, id uuid.UUID) (*Appointment, error) {
	return s.getScoped(ctx, ident, id)
}

// ListMine returns the patient caller's appointments.
func (s *Service) ListMine(ctx context.Context, ident *auth.Identity, status *Status, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.List(ctx, ListParams{PatientID: &ident.UserID, Status: status, Limit: limit, Offset: offset})
}

// ListHospital returns appointments at the caller's hospital.
func (s *Service) ListHospital(ctx context.Context, ident *auth.Identity, status *Status, limit, offset int) ([]*Appointment, int, error) {
	h, err := s.hospitals.GetByUserID(ctx, ident.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, apperr.NotFound("hospital")
		}
		return nil, 0, apperr.Wrap(apperr.KindInternal, "fetch hospital", err)
	}
	return s.repo.List(ctx, ListParams{HospitalID: &h.ID, Status: status, Limit: limit, Offset: offset})
}

// ListDoctor returns appointments assigned to any of the caller's
// profiles.
func (s *Service) ListDoctor(ctx context.Context, ident *auth.Identity, status *Status, limit, offset int) ([]*Appointment, int, error) {
	ids, err := s.profileIDs(ctx, ident.UserID)
	if err != nil {
		return nil, 0, err
	}
	if len(ids) == 0 {
		return nil, 0, nil
	}
	return s.repo.List(ctx, ListParams{DoctorProfileIDs: ids, Status: status, Limit: limit, Offset: offset})
}

// AssignInput names the doctor profile and an optional confirmed slot.
type AssignInput struct {
	DoctorProfileID uuid.UUID  `json:"doctor_profile_id"`
	ConfirmedTime   *time.Time `json:"confirmed_time,omitempty"`
}

// AssignDoctor puts a doctor on a REQUESTED, unassigned appointment at
// the caller's hospital. A confirmed time also confirms the appointment.
func (s *Service) AssignDoctor(ctx context.Context, ident *auth.Identity, id uuid.UUID, in AssignInput) (*Appointment, error) {
	a, err := s.getScoped(ctx, ident, id)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusRequested {
		return nil, apperr.Conflict("appointment is not in REQUESTED state")
	}
	if a.AssignedDoctorID != nil {
		return nil, apperr.Conflict("appointment already has a doctor assigned")
	}

	p, err := s.doctors.GetByID(ctx, in.DoctorProfileID)
	if err != nil || p.HospitalID != a.HospitalID || !p.IsActive {
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.Wrap(apperr.KindInternal, "fetch doctor profile", err)
		}
		return nil, apperr.New(apperr.KindNotFound, "doctor not found in your hospital or inactive")
	}

	now := s.now()
	a.AssignedDoctorID = &p.ID
	a.AssignedBy = &ident.UserID
	a.AssignedAt = &now
	if in.ConfirmedTime != nil {
		a.ConfirmedTime = in.ConfirmedTime
		a.Status = StatusConfirmed
	}
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "assign doctor", err)
	}
	return a, nil
}

// UpdateStatus moves the appointment along the lifecycle. Patients may
// only cancel.
func (s *Service) UpdateStatus(ctx context.Context, ident *auth.Identity, id uuid.UUID, to Status) (*Appointment, error) {
	if !to.Valid() {
		return nil, apperr.Validation("invalid appointment payload",
			map[string]string{"status": "unknown status"})
	}
	a, err := s.getScoped(ctx, ident, id)
	if err != nil {
		return nil, err
	}
	if ident.Role == auth.RolePatient && to != StatusCancelled {
		return nil, apperr.Forbidden("patients may only cancel appointments")
	}
	if !CanTransition(a.Status, to) {
		return nil, apperr.Conflict("cannot transition appointment from " +
			string(a.Status) + " to " + string(to))
	}

	a.Status = to
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "update appointment status", err)
	}
	return a, nil
}

// Cancel cancels a REQUESTED or CONFIRMED appointment.
func (s *Service) Cancel(ctx context.Context, ident *auth.Identity, id uuid.UUID) (*Appointment, error) {
	a, err := s.getScoped(ctx, ident, id)
	if err != nil {
		return nil, err
	}
	if a.Status.Terminal() {
		return nil, apperr.Conflict("appointment is already " + string(a.Status))
	}

	a.Status = StatusCancelled
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "cancel appointment", err)
	}
	return a, nil
}
