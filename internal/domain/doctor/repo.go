package doctor

import (
	"context"

	"github.com/google/uuid"

	"github.com/carehub/carehub/internal/domain/user"
)

// ListParams filters profile listings.
type ListParams struct {
	HospitalID *uuid.UUID
	// ActiveApprovedOnly restricts results to active profiles at approved
	// hospitals, the public view.
	ActiveApprovedOnly bool
	Limit              int
	Offset             int
}

type Repository interface {
	// CreateWithUser inserts the DOCTOR account and its profile in one
	// transaction.
	CreateWithUser(ctx context.Context, u *user.User, p *Profile) error
	GetByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	// ListByUser returns every profile held by the given doctor account.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Profile, error)
	Update(ctx context.Context, p *Profile) error
	List(ctx context.Context, params ListParams) ([]*Profile, int, error)
	// HospitalApproved reports whether the hosting hospital has been
	// approved, the gate on public profile reads.
	HospitalApproved(ctx context.Context, hospitalID uuid.UUID) (bool, error)
}
