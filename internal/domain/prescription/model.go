package prescription

import (
	"time"

	"github.com/google/uuid"
)

// Medicine is one line item on a prescription, stored as JSONB.
type Medicine struct {
	Name         string `json:"name"`
	Dosage       string `json:"dosage,omitempty"`
	Frequency    string `json:"frequency,omitempty"`
	Duration     string `json:"duration,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

// Prescription maps to the prescriptions table. Rows are immutable;
// revisions are new rows linked through PreviousVersionID, so every
// version of the clinical record survives.
type Prescription struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	PatientID         uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorProfileID   uuid.UUID  `db:"doctor_profile_id" json:"doctor_profile_id"`
	AppointmentID     *uuid.UUID `db:"appointment_id" json:"appointment_id,omitempty"`
	Diagnosis         string     `db:"diagnosis" json:"diagnosis"`
	Medicines         []Medicine `db:"medicines" json:"medicines"`
	Notes             string     `db:"notes" json:"notes,omitempty"`
	Instructions      string     `db:"instructions" json:"instructions,omitempty"`
	Version           int        `db:"version" json:"version"`
	PreviousVersionID *uuid.UUID `db:"previous_version_id" json:"previous_version_id,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`

	Attachments []*Attachment `db:"-" json:"attachments,omitempty"`
}

// Attachment maps to the prescription_attachments table. The document
// bytes live in the blobstore; this row carries the reference.
type Attachment struct {
	ID             uuid.UUID `db:"id" json:"id"`
	PrescriptionID uuid.UUID `db:"prescription_id" json:"prescription_id"`
	BlobID         uuid.UUID `db:"blob_id" json:"blob_id"`
	FileName       string    `db:"file_name" json:"file_name"`
	ContentType    string    `db:"content_type" json:"content_type"`
	Size           int64     `db:"size" json:"size"`
	UploadedBy     uuid.UUID `db:"uploaded_by" json:"uploaded_by"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
