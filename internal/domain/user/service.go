package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/carehub/carehub/internal/domain/audit"
	"github.com/carehub/carehub/internal/platform/auth"
	"github.com/carehub/carehub/pkg/apperr"
)

type Service struct {
	repo   Repository
	issuer *auth.TokenIssuer
	audit  *audit.Service
}

func NewService(repo Repository, issuer *auth.TokenIssuer, auditSvc *audit.Service) *Service {
	return &Service{repo: repo, issuer: issuer, audit: auditSvc}
}

// RegisterInput is the patient self-registration payload.
type RegisterInput struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
}

func (in *RegisterInput) validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(in.Username) == "" {
		fields["username"] = "username is required"
	}
	if err := auth.ValidatePasswordStrength(in.Password); err != nil {
		fields["password"] = err.Error()
	}
	if in.PhoneNumber != "" && !ValidPhone(in.PhoneNumber) {
		fields["phone_number"] = "phone number must be 9 to 15 digits, optionally prefixed with +"
	}
	if len(fields) > 0 {
		return apperr.Validation("invalid registration payload", fields)
	}
	return nil
}

// RegisterPatient creates an active PATIENT account.
func (s *Service) RegisterPatient(ctx context.Context, in RegisterInput, ip, userAgent string) (*User, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	taken, err := s.repo.UsernameExists(ctx, in.Username)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "check username", err)
	}
	if taken {
		return nil, apperr.Validation("invalid registration payload",
			map[string]string{"username": "username is already taken"})
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "hash password", err)
	}

	u := &User{
		Username:     in.Username,
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PhoneNumber:  in.PhoneNumber,
		Role:         auth.RolePatient,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "create user", err)
	}

	s.audit.Record(ctx, audit.ActionUserCreated, &u.ID, &u.ID,
		map[string]any{"role": string(u.Role)}, ip, userAgent)
	return u, nil
}

// LoginResult carries the issued token and the authenticated user.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}

// Login verifies credentials and issues a JWT. Inactive accounts (hospitals
// pending approval) are rejected.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.KindUnauthorized, "invalid username or password")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "fetch user", err)
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return nil, apperr.New(apperr.KindUnauthorized, "invalid username or password")
	}
	if !u.IsActive {
		return nil, apperr.Forbidden("account is inactive pending approval")
	}

	token, expires, err := s.issuer.Issue(u.ID, u.Username, u.Role)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "issue token", err)
	}
	if err := s.repo.TouchLastLogin(ctx, u.ID); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "record login", err)
	}

	return &LoginResult{Token: token, ExpiresAt: expires, User: u}, nil
}

// Get returns a user by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("user")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "fetch user", err)
	}
	return u, nil
}

// ProfileInput is the self-service profile update payload.
type ProfileInput struct {
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
}

// UpdateProfile updates the caller's own profile fields.
func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, in ProfileInput) (*User, error) {
	if in.PhoneNumber != "" && !ValidPhone(in.PhoneNumber) {
		return nil, apperr.Validation("invalid profile payload",
			map[string]string{"phone_number": "phone number must be 9 to 15 digits, optionally prefixed with +"})
	}

	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	u.Email = in.Email
	u.FirstName = in.FirstName
	u.LastName = in.LastName
	u.PhoneNumber = in.PhoneNumber
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "update user", err)
	}
	return u, nil
}

// ChangePassword verifies the old password and replaces it.
func (s *Service) ChangePassword(ctx context.Context, id uuid.UUID, oldPassword, newPassword, ip, userAgent string) error {
	u, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(u.PasswordHash, oldPassword) {
		return apperr.Validation("password change rejected",
			map[string]string{"old_password": "old password is incorrect"})
	}
	if err := auth.ValidatePasswordStrength(newPassword); err != nil {
		return apperr.Validation("password change rejected",
			map[string]string{"new_password": err.Error()})
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "hash password", err)
	}
	if err := s.repo.UpdatePassword(ctx, id, hash); err != nil {
		return apperr.Wrap(apperr.KindInternal, "update password", err)
	}

	s.audit.Record(ctx, audit.ActionPasswordChanged, &u.ID, &u.ID, nil, ip, userAgent)
	return nil
}

// List returns users, optionally filtered by role.
func (s *Service) List(ctx context.Context, role auth.Role, limit, offset int) ([]*User, int, error) {
	if role != "" && !role.Valid() {
		return nil, 0, apperr.Validation("invalid filter", map[string]string{"role": "unknown role"})
	}
	return s.repo.List(ctx, role, limit, offset)
}

// Stats returns the admin dashboard counters.
func (s *Service) Stats(ctx context.Context) (*DashboardStats, error) {
	stats, err := s.repo.DashboardStats(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "load stats", err)
	}
	return stats, nil
}

// CreateAdmin bootstraps an ADMIN account. Used by the CLI.
func (s *Service) CreateAdmin(ctx context.Context, username, password, email string) (*User, error) {
	if strings.TrimSpace(username) == "" {
		return nil, apperr.Validation("invalid admin payload", map[string]string{"username": "username is required"})
	}
	if err := auth.ValidatePasswordStrength(password); err != nil {
		return nil, apperr.Validation("invalid admin payload", map[string]string{"password": err.Error()})
	}
	taken, err := s.repo.UsernameExists(ctx, username)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "check username", err)
	}
	if taken {
		return nil, apperr.Validation("invalid admin payload", map[string]string{"username": "username is already taken"})
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "hash password", err)
	}
	u := &User{
		Username:     username,
		Email:        email,
		Role:         auth.RoleAdmin,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "create admin", err)
	}
	return u, nil
}
