package recommendation

import (
	"time"

	"github.com/google/uuid"

	"github.com/carehub/carehub/internal/platform/recommend"
)

// Entry maps to the recommendations table, one row per request a doctor
// made. PatientInfo and Result are stored as JSONB.
type Entry struct {
	ID           uuid.UUID                `db:"id" json:"id"`
	DoctorID     uuid.UUID                `db:"doctor_id" json:"doctor_id"`
	MedicineName string                   `db:"medicine_name" json:"medicine_name"`
	PatientInfo  recommend.PatientInfo    `db:"patient_info" json:"patient_info"`
	Result       recommend.Recommendation `db:"result" json:"result"`
	CreatedAt    time.Time                `db:"created_at" json:"created_at"`
}
