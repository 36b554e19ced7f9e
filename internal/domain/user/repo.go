package user

import (
	"context"

	"github.com/google/uuid"

	"github.com/carehub/carehub/internal/platform/auth"
)

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByPhone(ctx context.Context, phone string, role auth.Role) (*User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	Update(ctx context.Context, u *User) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	TouchLastLogin(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, role auth.Role, limit, offset int) ([]*User, int, error)
	DashboardStats(ctx context.Context) (*DashboardStats, error)
}
