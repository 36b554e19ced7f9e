package report

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/carehub/carehub/internal/domain/prescription"
	"github.com/carehub/carehub/internal/domain/user"
	"github.com/carehub/carehub/internal/platform/auth"
	"github.com/carehub/carehub/internal/platform/blobstore"
	"github.com/carehub/carehub/pkg/apperr"
)

// PatientDirectory resolves the patient a report is filed under.
type PatientDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// GrantChecker answers whether a doctor holds a live verified-OTP grant
// for a patient.
type GrantChecker interface {
	HasActiveGrant(ctx context.Context, patientID, doctorID uuid.UUID) (bool, error)
}

// PrescriptionDirectory supplies the prescription side of the summary.
type PrescriptionDirectory interface {
	RecentForPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*prescription.Prescription, int, error)
}

type Service struct {
	repo          Repository
	patients      PatientDirectory
	grants        GrantChecker
	prescriptions PrescriptionDirectory
	blobs         blobstore.BlobStore
}

func NewService(repo Repository, patients PatientDirectory, grants GrantChecker,
	prescriptions PrescriptionDirectory, blobs blobstore.BlobStore) *Service {
	return &Service{repo: repo, patients: patients, grants: grants,
		prescriptions: prescriptions, blobs: blobs}
}

// UploadInput carries the report metadata alongside the multipart file.
type UploadInput struct {
	Title       string
	Description string
	FileName    string
	ContentType string
	Content     io.Reader
}

// Upload files a report under the patient. Patients may only file under
// themselves; doctors, hospitals and admins may file for any patient.
func (s *Service) Upload(ctx context.Context, ident *auth.Identity, patientID uuid.UUID, in UploadInput) (*Report, error) {
	if ident.Role == auth.RolePatient && ident.UserID != patientID {
		return nil, apperr.Forbidden("patients may only upload their own reports")
	}

	patient, err := s.patients.GetByID(ctx, patientID)
	if err != nil || patient.Role != auth.RolePatient {
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.Wrap(apperr.KindInternal, "fetch patient", err)
		}
		return nil, apperr.NotFound("patient")
	}

	meta, err := s.blobs.Upload(ctx, blobstore.BlobMetadata{
		FileName:    in.FileName,
		ContentType: in.ContentType,
		UploadedBy:  ident.UserID,
	}, in.Content)
	if err != nil {
		switch {
		case errors.Is(err, blobstore.ErrInvalidFileType),
			errors.Is(err, blobstore.ErrMissingFileName):
			return nil, apperr.Validation(err.Error(), nil)
		case errors.Is(err, blobstore.ErrFileTooLarge):
			return nil, apperr.Validation("file exceeds maximum allowed size", nil)
		}
		return nil, apperr.Wrap(apperr.KindInternal, "store report", err)
	}

	r := &Report{
		PatientID:   patient.ID,
		UploadedBy:  ident.UserID,
		BlobID:      meta.ID,
		Title:       in.Title,
		Description: in.Description,
		FileName:    meta.FileName,
		ContentType: meta.ContentType,
		Size:        meta.Size,
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "create report", err)
	}
	return r, nil
}

// checkHistoryAccess enforces the read rule shared by report listing and
// the summary: patient self, admin, or doctor with a live OTP grant.
func (s *Service) checkHistoryAccess(ctx context.Context, ident *auth.Identity, patientID uuid.UUID) error {
	switch {
	case ident.Role == auth.RoleAdmin:
		return nil
	case ident.Role == auth.RolePatient && ident.UserID == patientID:
		return nil
	case ident.Role == auth.RoleDoctor:
		ok, err := s.grants.HasActiveGrant(ctx, patientID, ident.UserID)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, "check access grant", err)
		}
		if !ok {
			return apperr.Forbidden("no active OTP grant for this patient")
		}
		return nil
	}
	return apperr.Forbidden("not allowed to view this patient's records")
}

// ListForPatient lists a patient's reports under the OTP-gated rule.
func (s *Service) ListForPatient(ctx context.Context, ident *auth.Identity, patientID uuid.UUID, limit, offset int) ([]*Report, int, error) {
	if err := s.checkHistoryAccess(ctx, ident, patientID); err != nil {
		return nil, 0, err
	}
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

// ListMine lists the patient caller's own reports.
func (s *Service) ListMine(ctx context.Context, ident *auth.Identity, limit, offset int) ([]*Report, int, error) {
	return s.repo.ListByPatient(ctx, ident.UserID, limit, offset)
}

// Get returns a single report for its owner or an admin.
func (s *Service) Get(ctx context.Context, ident *auth.Identity, id uuid.UUID) (*Report, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("report")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "fetch report", err)
	}
	if ident.Role != auth.RoleAdmin && r.PatientID != ident.UserID {
		return nil, apperr.NotFound("report")
	}
	return r, nil
}

// Download streams a report's stored file. Access follows the history
// rule, so grant-holding doctors can fetch what they can list.
func (s *Service) Download(ctx context.Context, ident *auth.Identity, id uuid.UUID) (*Report, io.ReadCloser, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperr.NotFound("report")
		}
		return nil, nil, apperr.Wrap(apperr.KindInternal, "fetch report", err)
	}
	if err := s.checkHistoryAccess(ctx, ident, r.PatientID); err != nil {
		return nil, nil, err
	}
	rc, _, err := s.blobs.Download(ctx, r.BlobID)
	if err != nil {
		if errors.Is(err, blobstore.ErrBlobNotFound) {
			return nil, nil, apperr.NotFound("report file")
		}
		return nil, nil, apperr.Wrap(apperr.KindInternal, "download report blob", err)
	}
	return r, rc, nil
}

// Delete removes the report row and its blob. Owner or admin only.
func (s *Service) Delete(ctx context.Context, ident *auth.Identity, id uuid.UUID) error {
	r, err := s.Get(ctx, ident, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, r.ID); err != nil {
		return apperr.Wrap(apperr.KindInternal, "delete report", err)
	}
	if err := s.blobs.Delete(ctx, r.BlobID); err != nil && !errors.Is(err, blobstore.ErrBlobNotFound) {
		return apperr.Wrap(apperr.KindInternal, "delete report blob", err)
	}
	return nil
}

const summaryRecent = 5

// PatientSummary aggregates counts and recent records, gated the same way
// as report listing.
func (s *Service) PatientSummary(ctx context.Context, ident *auth.Identity, patientID uuid.UUID) (*Summary, error) {
	if err := s.checkHistoryAccess(ctx, ident, patientID); err != nil {
		return nil, err
	}

	reports, reportCount, err := s.repo.ListByPatient(ctx, patientID, summaryRecent, 0)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list reports", err)
	}
	prescriptions, prescriptionCount, err := s.prescriptions.RecentForPatient(ctx, patientID, summaryRecent)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list prescriptions", err)
	}

	return &Summary{
		PatientID:           patientID,
		ReportCount:         reportCount,
		PrescriptionCount:   prescriptionCount,
		RecentReports:       reports,
		RecentPrescriptions: prescriptions,
	}, nil
}
