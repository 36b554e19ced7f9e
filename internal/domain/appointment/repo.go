package appointment

import (
	"context"

	"github.com/google/uuid"
)

// ListParams filters appointment listings. DoctorProfileIDs matches
// appointments assigned to any of the given profiles.
type ListParams struct {
	PatientID        *uuid.UUID
	HospitalID       *uuid.UUID
	DoctorProfileIDs []uuid.UUID
	Status           *Status
	Limit            int
	Offset           int
}

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	List(ctx context.Context, params ListParams) ([]*Appointment, int, error)
}
