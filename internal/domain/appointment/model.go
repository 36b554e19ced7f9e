package appointment

import (
	"time"

	"github.com/google/uuid"
)

// Status is the appointment lifecycle state.
type Status string

const (
	StatusRequested Status = "REQUESTED"
	StatusConfirmed Status = "CONFIRMED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// Valid reports whether the status is a known lifecycle state.
func (s Status) Valid() bool {
	switch s {
	case StatusRequested, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition encodes the lifecycle: REQUESTED may confirm or cancel,
// CONFIRMED may complete or cancel, terminal states are immutable.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusRequested:
		return to == StatusConfirmed || to == StatusCancelled
	case StatusConfirmed:
		return to == StatusCompleted || to == StatusCancelled
	}
	return false
}

// Appointment maps to the appointments table. AssignedDoctorID references
// a hospital_doctor_profiles row, not the doctor's user.
type Appointment struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	PatientID        uuid.UUID  `db:"patient_id" json:"patient_id"`
	HospitalID       uuid.UUID  `db:"hospital_id" json:"hospital_id"`
	DepartmentID     *uuid.UUID `db:"department_id" json:"department_id,omitempty"`
	AssignedDoctorID *uuid.UUID `db:"assigned_doctor_id" json:"assigned_doctor_id,omitempty"`
	AssignedBy       *uuid.UUID `db:"assigned_by" json:"assigned_by,omitempty"`
	AssignedAt       *time.Time `db:"assigned_at" json:"assigned_at,omitempty"`
	RequestedTime    time.Time  `db:"requested_time" json:"requested_time"`
	ConfirmedTime    *time.Time `db:"confirmed_time" json:"confirmed_time,omitempty"`
	Reason           string     `db:"reason" json:"reason,omitempty"`
	Status           Status     `db:"status" json:"status"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}
