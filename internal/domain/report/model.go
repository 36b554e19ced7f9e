package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/carehub/carehub/internal/domain/prescription"
)

// Report maps to the patient_reports table. The document bytes live in
// the blobstore; this row carries the reference and upload metadata.
type Report struct {
	ID          uuid.UUID `db:"id" json:"id"`
	PatientID   uuid.UUID `db:"patient_id" json:"patient_id"`
	UploadedBy  uuid.UUID `db:"uploaded_by" json:"uploaded_by"`
	BlobID      uuid.UUID `db:"blob_id" json:"blob_id"`
	Title       string    `db:"title" json:"title,omitempty"`
	Description string    `db:"description" json:"description,omitempty"`
	FileName    string    `db:"file_name" json:"file_name"`
	ContentType string    `db:"content_type" json:"content_type"`
	Size        int64     `db:"size" json:"size"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Summary aggregates a patient's record for the overview endpoint.
type Summary struct {
	PatientID           uuid.UUID                    `json:"patient_id"`
	ReportCount         int                          `json:"report_count"`
	PrescriptionCount   int                          `json:"prescription_count"`
	RecentReports       []*Report                    `json:"recent_reports"`
	RecentPrescriptions []*prescription.Prescription `json:"recent_prescriptions"`
}
