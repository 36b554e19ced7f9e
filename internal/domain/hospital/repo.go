package hospital

import (
	"context"

	"github.com/google/uuid"

	"github.com/carehub/carehub/internal/domain/user"
)

// ListParams filters hospital listings. When OwnerUserID is set, that
// owner's hospital is always included regardless of approval state.
type ListParams struct {
	Approved    *bool
	OwnerUserID *uuid.UUID
	Limit       int
	Offset      int
}

type Repository interface {
	// CreateWithUser inserts the owning HOSPITAL user account and the
	// hospital row in one transaction.
	CreateWithUser(ctx context.Context, u *user.User, h *Hospital) error
	GetByID(ctx context.Context, id uuid.UUID) (*Hospital, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Hospital, error)
	LicenseExists(ctx context.Context, license string) (bool, error)
	Update(ctx context.Context, h *Hospital) error
	List(ctx context.Context, params ListParams) ([]*Hospital, int, error)
	// SetApproval updates hospital approval state and the owner account's
	// active flag in one transaction.
	SetApproval(ctx context.Context, hospitalID, adminID uuid.UUID, approve bool) (*Hospital, error)
}

type DepartmentRepository interface {
	Create(ctx context.Context, d *Department) error
	GetByID(ctx context.Context, id uuid.UUID) (*Department, error)
	NameExists(ctx context.Context, hospitalID uuid.UUID, name string) (bool, error)
	Update(ctx context.Context, d *Department) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByHospital(ctx context.Context, hospitalID uuid.UUID, limit, offset int) ([]*Department, int, error)
}
