package hospital

import (
	"time"

	"github.com/google/uuid"
)

// Hospital maps to the hospitals table. Every hospital is owned by one
// HOSPITAL user account; the account's active flag mirrors is_approved.
type Hospital struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	UserID        uuid.UUID  `db:"user_id" json:"user_id"`
	Name          string     `db:"name" json:"name"`
	LicenseNumber string     `db:"license_number" json:"license_number"`
	Email         string     `db:"email" json:"email"`
	Phone         string     `db:"phone" json:"phone"`
	Address       string     `db:"address" json:"address"`
	Location      string     `db:"location" json:"location"`
	Latitude      *float64   `db:"latitude" json:"latitude,omitempty"`
	Longitude     *float64   `db:"longitude" json:"longitude,omitempty"`
	IsApproved    bool       `db:"is_approved" json:"is_approved"`
	ApprovedBy    *uuid.UUID `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt    *time.Time `db:"approved_at" json:"approved_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// Department maps to the departments table. Names are unique per hospital.
type Department struct {
	ID          uuid.UUID `db:"id" json:"id"`
	HospitalID  uuid.UUID `db:"hospital_id" json:"hospital_id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
