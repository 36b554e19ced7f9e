package hospital

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/carehub/carehub/internal/domain/audit"
	"github.com/carehub/carehub/internal/domain/user"
	"github.com/carehub/carehub/internal/platform/auth"
	"github.com/carehub/carehub/pkg/apperr"
)

// UserDirectory is the slice of the user store this service needs.
type UserDirectory interface {
	UsernameExists(ctx context.Context, username string) (bool, error)
}

type Service struct {
	repo        Repository
	departments DepartmentRepository
	users       UserDirectory
	audit       *audit.Service
}

func NewService(repo Repository, departments DepartmentRepository, users UserDirectory, auditSvc *audit.Service) *Service {
	return &Service{repo: repo, departments: departments, users: users, audit: auditSvc}
}

// RegisterInput is the hospital self-registration payload. The account
// stays inactive until an admin approves the hospital.
type RegisterInput struct {
	Username      string   `json:"username"`
	Password      string   `json:"password"`
	Name          string   `json:"name"`
	LicenseNumber string   `json:"license_number"`
	Email         string   `json:"email"`
	Phone         string   `json:"phone"`
	Address       string   `json:"address"`
	Location      string   `json:"location"`
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
}

func (in *RegisterInput) validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(in.Username) == "" {
		fields["username"] = "username is required"
	}
	if err := auth.ValidatePasswordStrength(in.Password); err != nil {
		fields["password"] = err.Error()
	}
	if strings.TrimSpace(in.Name) == "" {
		fields["name"] = "hospital name is required"
	}
	if strings.TrimSpace(in.LicenseNumber) == "" {
		fields["license_number"] = "license number is required"
	}
	if in.Phone != "" && !user.ValidPhone(in.Phone) {
		fields["phone"] = "phone number must be 9 to 15 digits, optionally prefixed with +"
	}
	if len(fields) > 0 {
		return apperr.Validation("invalid hospital registration payload", fields)
	}
	return nil
}

// Register creates the HOSPITAL account (inactive) and the hospital row
// (unapproved) in one transaction.
func (s *Service) Register(ctx context.Context, in RegisterInput, ip, userAgent string) (*Hospital, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	taken, err := s.users.UsernameExists(ctx, in.Username)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "check username", err)
	}
	if taken {
		return nil, apperr.Validation("invalid hospital registration payload",
			map[string]string{"username": "username is already taken"})
	}

	duplicate, err := s.repo.LicenseExists(ctx, in.LicenseNumber)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "check license", err)
	}
	if duplicate {
		return nil, apperr.Validation("invalid hospital registration payload",
			map[string]string{"license_number": "a hospital with this license number is already registered"})
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "hash password", err)
	}

	u := &user.User{
		Username:     in.Username,
		Email:        in.Email,
		PhoneNumber:  in.Phone,
		Role:         auth.RoleHospital,
		PasswordHash: hash,
		IsActive:     false,
	}
	h := &Hospital{
		Name:          in.Name,
		LicenseNumber: in.LicenseNumber,
		Email:         in.Email,
		Phone:         in.Phone,
		Address:       in.Address,
		Location:      in.Location,
		Latitude:      in.Latitude,
		Longitude:     in.Longitude,
	}
	if err := s.repo.CreateWithUser(ctx, u, h); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "register hospital", err)
	}

	s.audit.Record(ctx, audit.ActionUserCreated, &u.ID, &u.ID,
		map[string]any{"role": string(auth.RoleHospital), "hospital_id": h.ID.String()}, ip, userAgent)
	return h, nil
}

// visible reports whether the caller may see this hospital at all.
func visible(ident *auth.Identity, h *Hospital) bool {
	if h.IsApproved || ident.Role == auth.RoleAdmin {
		return true
	}
	return ident.Role == auth.RoleHospital && h.UserID == ident.UserID
}

// Get returns a hospital. Unapproved hospitals are invisible to everyone
// except admins and their own account.
func (s *Service) Get(ctx context.Context, ident *auth.Identity, id uuid.UUID) (*Hospital, error) {
	h, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("hospital")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "fetch hospital", err)
	}
	if !visible(ident, h) {
		return nil, apperr.NotFound("hospital")
	}
	return h, nil
}

// Own returns the hospital owned by the given HOSPITAL account.
func (s *Service) Own(ctx context.Context, userID uuid.UUID) (*Hospital, error) {
	h, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("hospital")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "fetch hospital", err)
	}
	return h, nil
}

// UpdateInput is the hospital profile update payload.
type UpdateInput struct {
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Phone     string   `json:"phone"`
	Address   string   `json:"address"`
	Location  string   `json:"location"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Update modifies hospital profile fields. Only the owning account and
// admins may update; the approval state is not touched here.
func (s *Service) Update(ctx context.Context, ident *auth.Identity, id uuid.UUID, in UpdateInput) (*Hospital, error) {
	h, err := s.Get(ctx, ident, id)
	if err != nil {
		return nil, err
	}
	if ident.Role != auth.RoleAdmin && h.UserID != ident.UserID {
		return nil, apperr.Forbidden("only the hospital account or an admin may update this hospital")
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperr.Validation("invalid hospital payload", map[string]string{"name": "hospital name is required"})
	}

	h.Name = in.Name
	h.Email = in.Email
	h.Phone = in.Phone
	h.Address = in.Address
	h.Location = in.Location
	h.Latitude = in.Latitude
	h.Longitude = in.Longitude
	if err := s.repo.Update(ctx, h); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "update hospital", err)
	}
	return h, nil
}

// List returns hospitals scoped by role: admins see everything and may
// filter by approval; everyone else sees approved hospitals, plus a
// HOSPITAL caller always sees its own.
func (s *Service) List(ctx context.Context, ident *auth.Identity, approved *bool, limit, offset int) ([]*Hospital, int, error) {
	params := ListParams{Approved: approved, Limit: limit, Offset: offset}
	if ident.Role != auth.RoleAdmin {
		t := true
		params.Approved = &t
		if ident.Role == auth.RoleHospital {
			uid := ident.UserID
			params.OwnerUserID = &uid
		}
	}
	return s.repo.List(ctx, params)
}

// SetApproval flips the approval gate. Approval activates the owning
// account; rejection deactivates it and clears the approval marks. Both
// writes happen in one transaction.
func (s *Service) SetApproval(ctx context.Context, adminID, hospitalID uuid.UUID, approve bool, ip, userAgent string) (*Hospital, error) {
	h, err := s.repo.SetApproval(ctx, hospitalID, adminID, approve)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("hospital")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "set approval", err)
	}

	s.audit.Record(ctx, audit.ActionHospitalApproved, &h.UserID, &adminID,
		map[string]any{"hospital_id": h.ID.String(), "is_approved": approve}, ip, userAgent)
	return h, nil
}

// DepartmentInput is the department create/update payload.
type DepartmentInput struct {
	HospitalID  uuid.UUID `json:"hospital_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
}

// CreateDepartment adds a department to the caller's own hospital.
func (s *Service) CreateDepartment(ctx context.Context, ident *auth.Identity, in DepartmentInput) (*Department, error) {
	h, err := s.Own(ctx, ident.UserID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperr.Validation("invalid department payload", map[string]string{"name": "department name is required"})
	}

	duplicate, err := s.departments.NameExists(ctx, h.ID, in.Name)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "check department name", err)
	}
	if duplicate {
		return nil, apperr.Validation("invalid department payload",
			map[string]string{"name": "a department with this name already exists"})
	}

	d := &Department{
		HospitalID:  h.ID,
		Name:        in.Name,
		Description: in.Description,
	}
	if err := s.departments.Create(ctx, d); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "create department", err)
	}
	return d, nil
}

// GetDepartment returns a department after checking the hosting hospital
// is visible to the caller.
func (s *Service) GetDepartment(ctx context.Context, ident *auth.Identity, id uuid.UUID) (*Department, error) {
	d, err := s.departments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("department")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "fetch department", err)
	}
	if _, err := s.Get(ctx, ident, d.HospitalID); err != nil {
		return nil, apperr.NotFound("department")
	}
	return d, nil
}

// ownsDepartment checks the caller is the hosting hospital's account or an
// admin.
func (s *Service) ownsDepartment(ctx context.Context, ident *auth.Identity, d *Department) error {
	if ident.Role == auth.RoleAdmin {
		return nil
	}
	if ident.Role != auth.RoleHospital {
		return apperr.Forbidden("only the hospital or an admin may manage departments")
	}
	h, err := s.Own(ctx, ident.UserID)
	if err != nil {
		return err
	}
	if h.ID != d.HospitalID {
		return apperr.NotFound("department")
	}
	return nil
}

// UpdateDepartment renames or re-describes a department.
func (s *Service) UpdateDepartment(ctx context.Context, ident *auth.Identity, id uuid.UUID, in DepartmentInput) (*Department, error) {
	d, err := s.GetDepartment(ctx, ident, id)
	if err != nil {
		return nil, err
	}
	if err := s.ownsDepartment(ctx, ident, d); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperr.Validation("invalid department payload", map[string]string{"name": "department name is required"})
	}
	if !strings.EqualFold(in.Name, d.Name) {
		duplicate, err := s.departments.NameExists(ctx, d.HospitalID, in.Name)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "check department name", err)
		}
		if duplicate {
			return nil, apperr.Validation("invalid department payload",
				map[string]string{"name": "a department with this name already exists"})
		}
	}

	d.Name = in.Name
	d.Description = in.Description
	if err := s.departments.Update(ctx, d); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "update department", err)
	}
	return d, nil
}

// DeleteDepartment removes a department.
func (s *Service) DeleteDepartment(ctx context.Context, ident *auth.Identity, id uuid.UUID) error {
	d, err := s.GetDepartment(ctx, ident, id)
	if err != nil {
		return err
	}
	if err := s.ownsDepartment(ctx, ident, d); err != nil {
		return err
	}
	if err := s.departments.Delete(ctx, d.ID); err != nil {
		return apperr.Wrap(apperr.KindInternal, "delete department", err)
	}
	return nil
}

// ListDepartments lists a hospital's departments, hospital visibility
// rules applied.
func (s *Service) ListDepartments(ctx context.Context, ident *auth.Identity, hospitalID uuid.UUID, limit, offset int) ([]*Department, int, error) {
	if hospitalID == uuid.Nil && ident.Role == auth.RoleHospital {
		h, err := s.Own(ctx, ident.UserID)
		if err != nil {
			return nil, 0, err
		}
		hospitalID = h.ID
	}
	if hospitalID == uuid.Nil {
		return nil, 0, apperr.Validation("invalid filter", map[string]string{"hospital_id": "hospital_id is required"})
	}
	if _, err := s.Get(ctx, ident, hospitalID); err != nil {
		return nil, 0, err
	}
	return s.departments.ListByHospital(ctx, hospitalID, limit, offset)
}
