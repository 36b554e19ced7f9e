package prescription

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/carehub/carehub/internal/domain/doctor"
	"github.com/carehub/carehub/internal/domain/user"
	"github.com/carehub/carehub/internal/platform/auth"
	"github.com/carehub/carehub/internal/platform/blobstore"
	"github.com/carehub/carehub/pkg/apperr"
)

// DoctorDirectory resolves the caller's doctor profiles.
type DoctorDirectory interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*doctor.Profile, error)
}

// PatientDirectory resolves the prescribed-for patient.
type PatientDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// GrantChecker answers whether a doctor holds a live verified-OTP grant
// for a patient.
type GrantChecker interface {
	HasActiveGrant(ctx context.Context, patientID, doctorID uuid.UUID) (bool, error)
}

type Service struct {
	repo     Repository
	doctors  DoctorDirectory
	patients PatientDirectory
	grants   GrantChecker
	blobs    blobstore.BlobStore
}

func NewService(repo Repository, doctors DoctorDirectory, patients PatientDirectory,
	grants GrantChecker, blobs blobstore.BlobStore) *Service {
	return &Service{repo: repo, doctors: doctors, patients: patients, grants: grants, blobs: blobs}
}

// activeProfile picks the caller's active profile, honoring an optional
// hospital preference.
func (s *Service) activeProfile(ctx context.Context, userID uuid.UUID, hospitalID *uuid.UUID) (*doctor.Profile, error) {
	profiles, err := s.doctors.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list doctor profiles", err)
	}
	var fallback *doctor.Profile
	for _, p := range profiles {
		if !p.IsActive {
			continue
		}
		if hospitalID != nil && p.HospitalID == *hospitalID {
			return p, nil
		}
		if fallback == nil {
			fallback = p
		}
	}
	if hospitalID != nil || fallback == nil {
		if hospitalID != nil && fallback != nil {
			return nil, apperr.Validation("invalid prescription payload",
				map[string]string{"hospital_id": "no active profile at this hospital"})
		}
		return nil, apperr.Forbidden("no active doctor profile")
	}
	return fallback, nil
}

// CreateInput is the prescription payload.
type CreateInput struct {
	PatientID     uuid.UUID  `json:"patient_id"`
	HospitalID    *uuid.UUID `json:"hospital_id,omitempty"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
	Diagnosis     string     `json:"diagnosis"`
	Medicines     []Medicine `json:"medicines"`
	Notes         string     `json:"notes"`
	Instructions  string     `json:"instructions"`
}

// Create writes version 1 of a prescription through the caller's active
// profile.
func (s *Service) Create(ctx context.Context, ident *auth.Identity, in CreateInput) (*Prescription, error) {
	profile, err := s.activeProfile(ctx, ident.UserID, in.HospitalID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Diagnosis) == "" {
		return nil, apperr.Validation("invalid prescription payload",
			map[string]string{"diagnosis": "diagnosis is required"})
	}

	patient, err := s.patients.GetByID(ctx, in.PatientID)
	if err != nil || patient.Role != auth.RolePatient {
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.Wrap(apperr.KindInternal, "fetch patient", err)
		}
		return nil, apperr.NotFound("patient")
	}

	p := &Prescription{
		PatientID:       patient.ID,
		DoctorProfileID: profile.ID,
		AppointmentID:   in.AppointmentID,
		Diagnosis:       in.Diagnosis,
		Medicines:       in.Medicines,
		Notes:           in.Notes,
		Instructions:    in.Instructions,
		Version:         1,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "create prescription", err)
	}
	return p, nil
}

// authoredBy reports whether the prescription was written through one of
// the caller's profiles.
func (s *Service) authoredBy(ctx context.Context, userID uuid.UUID, p *Prescription) (bool, error) {
	profiles, err := s.doctors.ListByUser(ctx, userID)
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "list doctor profiles", err)
	}
	for _, prof := range profiles {
		if prof.ID == p.DoctorProfileID {
			return true, nil
		}
	}
	return false, nil
}

// ReviseInput carries optional clinical updates. Empty fields inherit the
// parent's values.
type ReviseInput struct {
	Diagnosis    string     `json:"diagnosis"`
	Medicines    []Medicine `json:"medicines"`
	Notes        string     `json:"notes"`
	Instructions string     `json:"instructions"`
}

// Revise writes a new version linked to the parent. The parent row is
// never modified.
func (s *Service) Revise(ctx context.Context, ident *auth.Identity, id uuid.UUID, in ReviseInput) (*Prescription, error) {
	parent, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("prescription")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "fetch prescription", err)
	}
	authored, err := s.authoredBy(ctx, ident.UserID, parent)
	if err != nil {
		return nil, err
	}
	if !authored {
		return nil, apperr.Forbidden("only the authoring doctor may revise a prescription")
	}

	next := &Prescription{
		PatientID:         parent.PatientID,
		DoctorProfileID:   parent.DoctorProfileID,
		AppointmentID:     parent.AppointmentID,
		Diagnosis:         parent.Diagnosis,
		Medicines:         parent.Medicines,
		Notes:             parent.Notes,
		Instructions:      parent.Instructions,
		Version:           parent.Version + 1,
		PreviousVersionID: &parent.ID,
	}
	if in.Diagnosis != "" {
		next.Diagnosis = in.Diagnosis
	}
	if in.Medicines != nil {
		next.Medicines = in.Medicines
	}
	if in.Notes != "" {
		next.Notes = in.Notes
	}
	if in.Instructions != "" {
		next.Instructions = in.Instructions
	}
	if err := s.repo.Create(ctx, next); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "revise prescription", err)
	}
	return next, nil
}

// Get returns a prescription with attachments, role-scoped. Hospitals
// have no prescription visibility.
func (s *Service) Get(ctx context.Context, ident *auth.Identity, id uuid.UUID) (*Prescription, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("prescription")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "fetch prescription", err)
	}

	switch ident.Role {
	case auth.RoleAdmin:
	case auth.RolePatient:
		if p.PatientID != ident.UserID {
			return nil, apperr.NotFound("prescription")
		}
	case auth.RoleDoctor:
		authored, err := s.authoredBy(ctx, ident.UserID, p)
		if err != nil {
			return nil, err
		}
		if !authored {
			return nil, apperr.NotFound("prescription")
		}
	default:
		return nil, apperr.NotFound("prescription")
	}

	attachments, err := s.repo.ListAttachments(ctx, p.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list attachments", err)
	}
	p.Attachments = attachments
	return p, nil
}

// List returns prescriptions scoped by role.
func (s *Service) List(ctx context.Context, ident *auth.Identity, limit, offset int) ([]*Prescription, int, error) {
	params := ListParams{Limit: limit, Offset: offset}
	switch ident.Role {
	case auth.RoleAdmin:
	case auth.RolePatient:
		params.PatientID = &ident.UserID
	case auth.RoleDoctor:
		profiles, err := s.doctors.ListByUser(ctx, ident.UserID)
		if err != nil {
			return nil, 0, apperr.Wrap(apperr.KindInternal, "list doctor profiles", err)
		}
		if len(profiles) == 0 {
			return nil, 0, nil
		}
		ids := make([]uuid.UUID, 0, len(profiles))
		for _, p := range profiles {
			ids = append(ids, p.ID)
		}
		params.DoctorProfileIDs = ids
	default:
		return nil, 0, apperr.Forbidden("hospitals have no prescription visibility")
	}
	return s.repo.List(ctx, params)
}

// PatientHistory lists a patient's prescriptions for the patient, an
// admin, or a doctor with a live OTP grant.
func (s *Service) PatientHistory(ctx context.Context, ident *auth.Identity, patientID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	switch {
	case ident.Role == auth.RoleAdmin:
	case ident.Role == auth.RolePatient && ident.UserID == patientID:
	case ident.Role == auth.RoleDoctor:
		ok, err := s.grants.HasActiveGrant(ctx, patientID, ident.UserID)
		if err != nil {
			return nil, 0, apperr.Wrap(apperr.KindInternal, "check access grant", err)
		}
		if !ok {
			return nil, 0, apperr.Forbidden("no active OTP grant for this patient")
		}
	default:
		return nil, 0, apperr.Forbidden("not allowed to view this patient's prescriptions")
	}
	return s.repo.List(ctx, ListParams{PatientID: &patientID, Limit: limit, Offset: offset})
}

// RecentForPatient returns the patient's newest prescriptions with the
// total count. Callers enforce access before asking.
func (s *Service) RecentForPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*Prescription, int, error) {
	return s.repo.List(ctx, ListParams{PatientID: &patientID, Limit: limit})
}

// AddAttachment uploads a document through the blobstore and links it to
// the prescription. Only the authoring doctor may attach.
func (s *Service) AddAttachment(ctx context.Context, ident *auth.Identity, id uuid.UUID,
	fileName, contentType string, content io.Reader) (*Attachment, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("prescription")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "fetch prescription", err)
	}
	authored, err := s.authoredBy(ctx, ident.UserID, p)
	if err != nil {
		return nil, err
	}
	if !authored {
		return nil, apperr.Forbidden("only the authoring doctor may attach documents")
	}

	meta, err := s.blobs.Upload(ctx, blobstore.BlobMetadata{
		FileName:    fileName,
		ContentType: contentType,
		UploadedBy:  ident.UserID,
	}, content)
	if err != nil {
		switch {
		case errors.Is(err, blobstore.ErrInvalidFileType),
			errors.Is(err, blobstore.ErrMissingFileName):
			return nil, apperr.Validation(err.Error(), nil)
		case errors.Is(err, blobstore.ErrFileTooLarge):
			return nil, apperr.Validation("file exceeds maximum allowed size", nil)
		}
		return nil, apperr.Wrap(apperr.KindInternal, "store attachment", err)
	}

	a := &Attachment{
		PrescriptionID: p.ID,
		BlobID:         meta.ID,
		FileName:       meta.FileName,
		ContentType:    meta.ContentType,
		Size:           meta.Size,
		UploadedBy:     ident.UserID,
	}
	if err := s.repo.AddAttachment(ctx, a); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "link attachment", err)
	}
	return a, nil
}

// DownloadAttachment streams a stored attachment under the prescription's
// read scope.
func (s *Service) DownloadAttachment(ctx context.Context, ident *auth.Identity,
	prescriptionID, attachmentID uuid.UUID) (*Attachment, io.ReadCloser, error) {
	p, err := s.Get(ctx, ident, prescriptionID)
	if err != nil {
		return nil, nil, err
	}
	for _, a := range p.Attachments {
		if a.ID != attachmentID {
			continue
		}
		rc, _, err := s.blobs.Download(ctx, a.BlobID)
		if err != nil {
			if errors.Is(err, blobstore.ErrBlobNotFound) {
				return nil, nil, apperr.NotFound("attachment file")
			}
			return nil, nil, apperr.Wrap(apperr.KindInternal, "download attachment blob", err)
		}
		return a, rc, nil
	}
	return nil, nil, apperr.NotFound("attachment")
}
