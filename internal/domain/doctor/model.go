package doctor

import (
	"time"

	"github.com/google/uuid"
)

// Profile maps to the hospital_doctor_profiles table. A doctor holds one
// profile per hospital; (hospital_id, user_id) is unique. Profiles are
// soft-disabled via is_active, never deleted.
type Profile struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	HospitalID     uuid.UUID  `db:"hospital_id" json:"hospital_id"`
	UserID         uuid.UUID  `db:"user_id" json:"user_id"`
	DepartmentID   *uuid.UUID `db:"department_id" json:"department_id,omitempty"`
	CNIC           string     `db:"cnic" json:"cnic,omitempty"`
	Address        string     `db:"address" json:"address,omitempty"`
	LicenseNumber  string     `db:"license_number" json:"license_number,omitempty"`
	Specialization string     `db:"specialization" json:"specialization,omitempty"`
	PhoneNumber    string     `db:"phone_number" json:"phone_number,omitempty"`
	// AvailableTimings holds weekday to time-range entries, stored as JSONB.
	AvailableTimings map[string]string `db:"available_timings" json:"available_timings,omitempty"`
	IsActive         bool              `db:"is_active" json:"is_active"`
	CreatedBy        uuid.UUID         `db:"created_by" json:"created_by"`
	CreatedAt        time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time         `db:"updated_at" json:"updated_at"`

	// Joined from users for read endpoints.
	Username   string `db:"username" json:"username,omitempty"`
	DoctorName string `db:"doctor_name" json:"doctor_name,omitempty"`
}

// CreatedDoctor is the one-time creation response. The plaintext password
// is never stored and never returned again.
type CreatedDoctor struct {
	Profile  *Profile `json:"profile"`
	Username string   `json:"username"`
	Password string   `json:"password"`
}
