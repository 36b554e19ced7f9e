package otp

import (
	"time"

	"github.com/google/uuid"
)

// Code maps to the otps table. Only the SHA-256 hex hash of the code is
// stored. A row grants nothing until verified; once used, used_at anchors
// the temporary access window for the requesting doctor.
type Code struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	PatientID   uuid.UUID  `db:"patient_id" json:"patient_id"`
	PhoneNumber string     `db:"phone_number" json:"phone_number"`
	CodeHash    string     `db:"code_hash" json:"-"`
	RequestedBy uuid.UUID  `db:"requested_by" json:"requested_by"`
	ExpiresAt   time.Time  `db:"expires_at" json:"expires_at"`
	Used        bool       `db:"used" json:"used"`
	UsedAt      *time.Time `db:"used_at" json:"used_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}
