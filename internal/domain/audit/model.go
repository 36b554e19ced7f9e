package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action identifies what happened. The set is closed; new actions are added
// here, never free-form.
type Action string

const (
	ActionUserCreated      Action = "USER_CREATED"
	ActionUserUpdated      Action = "USER_UPDATED"
	ActionPasswordChanged  Action = "PASSWORD_CHANGED"
	ActionHospitalApproved Action = "HOSPITAL_APPROVED"
	ActionDoctorCreated    Action = "DOCTOR_CREATED"
	ActionOTPRequested     Action = "OTP_REQUESTED"
	ActionOTPVerified      Action = "OTP_VERIFIED"
	ActionPasswordReturned Action = "PASSWORD_RETURNED"
)

// Entry is one append-only audit log row. Entries are never updated or
// deleted.
type Entry struct {
	ID          uuid.UUID      `db:"id" json:"id"`
	Action      Action         `db:"action" json:"action"`
	UserID      *uuid.UUID     `db:"user_id" json:"user_id,omitempty"`
	PerformedBy *uuid.UUID     `db:"performed_by" json:"performed_by,omitempty"`
	Details     map[string]any `db:"details" json:"details"`
	IPAddress   string         `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent   string         `db:"user_agent" json:"user_agent,omitempty"`
	Timestamp   time.Time      `db:"timestamp" json:"timestamp"`
}
