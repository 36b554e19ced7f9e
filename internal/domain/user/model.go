package user

import (
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/carehub/carehub/internal/platform/auth"
)

// User maps to the users table. Email is deliberately not unique: a doctor
// may hold accounts at several hospitals under one email.
type User struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Username     string     `db:"username" json:"username"`
	Email        string     `db:"email" json:"email,omitempty"`
	FirstName    string     `db:"first_name" json:"first_name"`
	LastName     string     `db:"last_name" json:"last_name"`
	PhoneNumber  string     `db:"phone_number" json:"phone_number,omitempty"`
	Role         auth.Role  `db:"role" json:"role"`
	PasswordHash string     `db:"password_hash" json:"-"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	DateJoined   time.Time  `db:"date_joined" json:"date_joined"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// FullName returns first and last name joined with a space.
func (u *User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

var phonePattern = regexp.MustCompile(`^\+?1?\d{9,15}$`)

// ValidPhone reports whether the phone number is in an accepted format
// (optionally prefixed with +, 9 to 15 digits).
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// DashboardStats aggregates platform-wide counts for the admin dashboard.
type DashboardStats struct {
	TotalUsers            int `json:"total_users"`
	TotalPatients         int `json:"total_patients"`
	TotalDoctors          int `json:"total_doctors"`
	TotalHospitals        int `json:"total_hospitals"`
	ApprovedHospitals     int `json:"approved_hospitals"`
	PendingHospitals      int `json:"pending_hospitals"`
	TotalAppointments     int `json:"total_appointments"`
	RequestedAppointments int `json:"requested_appointments"`
}
