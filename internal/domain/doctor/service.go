package doctor

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/carehub/carehub/internal/domain/audit"
	"github.com/carehub/carehub/internal/domain/hospital"
	"github.com/carehub/carehub/internal/domain/user"
	"github.com/carehub/carehub/internal/platform/auth"
	"github.com/carehub/carehub/pkg/apperr"
)

// HospitalDirectory resolves the caller's hospital.
type HospitalDirectory interface {
	Own(ctx context.Context, userID uuid.UUID) (*hospital.Hospital, error)
}

// DepartmentDirectory looks up departments for ownership checks.
type DepartmentDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*hospital.Department, error)
}

// UserDirectory is the slice of the user store this service needs.
type UserDirectory interface {
	UsernameExists(ctx context.Context, username string) (bool, error)
}

type Service struct {
	repo        Repository
	hospitals   HospitalDirectory
	departments DepartmentDirectory
	users       UserDirectory
	audit       *audit.Service
}

func NewService(repo Repository, hospitals HospitalDirectory, departments DepartmentDirectory,
	users UserDirectory, auditSvc *audit.Service) *Service {
	return &Service{repo: repo, hospitals: hospitals, departments: departments,
		users: users, audit: auditSvc}
}

// CreateInput is the doctor onboarding payload.
type CreateInput struct {
	FirstName        string            `json:"first_name"`
	LastName         string            `json:"last_name"`
	Email            string            `json:"email"`
	DepartmentID     *uuid.UUID        `json:"department_id,omitempty"`
	CNIC             string            `json:"cnic"`
	Address          string            `json:"address"`
	LicenseNumber    string            `json:"license_number"`
	Specialization   string            `json:"specialization"`
	PhoneNumber      string            `json:"phone_number"`
	AvailableTimings map[string]string `json:"available_timings,omitempty"`
}

func (in *CreateInput) validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(in.FirstName) == "" {
		fields["first_name"] = "first name is required"
	}
	if in.PhoneNumber != "" && !user.ValidPhone(in.PhoneNumber) {
		fields["phone_number"] = "phone number must be 9 to 15 digits, optionally prefixed with +"
	}
	if len(fields) > 0 {
		return apperr.Validation("invalid doctor payload", fields)
	}
	return nil
}

// slugify lowercases and reduces runs of non-alphanumerics to single
// hyphens.
func slugify(s string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastHyphen = false
		} else if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// generateUsername derives a unique username from the doctor and hospital
// names. Collisions get a numeric suffix; past 9999 a random one.
func (s *Service) generateUsername(ctx context.Context, doctorName, hospitalName string) (string, error) {
	base := slugify(doctorName + " " + hospitalName)
	if base == "" {
		base = "doctor"
	}

	candidate := base
	for i := 2; i <= 9999; i++ {
		taken, err := s.users.UsernameExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}

	n, err := rand.Int(rand.Reader, big.NewInt(100000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%05d", base, n.Int64()), nil
}

// Create onboards a doctor at the caller's approved hospital. The
// generated password is returned exactly once and only its hash is kept.
func (s *Service) Create(ctx context.Context, ident *auth.Identity, in CreateInput, ip, userAgent string) (*CreatedDoctor, error) {
	h, err := s.hospitals.Own(ctx, ident.UserID)
	if err != nil {
		return nil, err
	}
	if !h.IsApproved {
		return nil, apperr.Forbidden("hospital is not approved yet")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	if in.DepartmentID != nil {
		d, err := s.departments.GetByID(ctx, *in.DepartmentID)
		if err != nil || d.HospitalID != h.ID {
			return nil, apperr.Validation("invalid doctor payload",
				map[string]string{"department_id": "department does not belong to your hospital"})
		}
	}

	fullName := strings.TrimSpace(in.FirstName + " " + in.LastName)
	username, err := s.generateUsername(ctx, fullName, h.Name)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "generate username", err)
	}
	password, err := auth.GeneratePassword()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "generate password", err)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "hash password", err)
	}

	u := &user.User{
		Username:     username,
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PhoneNumber:  in.PhoneNumber,
		Role:         auth.RoleDoctor,
		PasswordHash: hash,
		IsActive:     true,
	}
	p := &Profile{
		HospitalID:       h.ID,
		DepartmentID:     in.DepartmentID,
		CNIC:             in.CNIC,
		Address:          in.Address,
		LicenseNumber:    in.LicenseNumber,
		Specialization:   in.Specialization,
		PhoneNumber:      in.PhoneNumber,
		AvailableTimings: in.AvailableTimings,
		IsActive:         true,
		CreatedBy:        ident.UserID,
	}
	if err := s.repo.CreateWithUser(ctx, u, p); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "create doctor", err)
	}
	p.Username = username
	p.DoctorName = fullName

	s.audit.Record(ctx, audit.ActionDoctorCreated, &u.ID, &ident.UserID,
		map[string]any{"hospital_id": h.ID.String(), "profile_id": p.ID.String()}, ip, userAgent)
	s.audit.Record(ctx, audit.ActionPasswordReturned, &u.ID, &ident.UserID,
		map[string]any{"username": username}, ip, userAgent)

	return &CreatedDoctor{Profile: p, Username: username, Password: password}, nil
}

// Get returns a profile. Hospitals see their own, admins everything,
// everyone else only active profiles at approved hospitals.
func (s *Service) Get(ctx context.Context, ident *auth.Identity, id uuid.UUID) (*Profile, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("doctor profile")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "fetch doctor profile", err)
	}

	switch ident.Role {
	case auth.RoleAdmin:
		return p, nil
	case auth.RoleHospital:
		h, err := s.hospitals.Own(ctx, ident.UserID)
		if err != nil {
			return nil, err
		}
		if h.ID != p.HospitalID {
			return nil, apperr.NotFound("doctor profile")
		}
		return p, nil
	case auth.RoleDoctor:
		if p.UserID == ident.UserID {
			return p, nil
		}
	}
	if !p.IsActive {
		return nil, apperr.NotFound("doctor profile")
	}
	approved, err := s.repo.HospitalApproved(ctx, p.HospitalID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "check hospital approval", err)
	}
	if !approved {
		return nil, apperr.NotFound("doctor profile")
	}
	return p, nil
}

// UpdateInput is the profile update payload. IsActive false soft-disables
// the profile; there is no hard delete.
type UpdateInput struct {
	DepartmentID     *uuid.UUID        `json:"department_id,omitempty"`
	CNIC             string            `json:"cnic"`
	Address          string            `json:"address"`
	LicenseNumber    string            `json:"license_number"`
	Specialization   string            `json:"specialization"`
	PhoneNumber      string            `json:"phone_number"`
	AvailableTimings map[string]string `json:"available_timings,omitempty"`
	IsActive         *bool             `json:"is_active,omitempty"`
}

// Update modifies a profile. Only the owning hospital and admins may.
func (s *Service) Update(ctx context.Context, ident *auth.Identity, id uuid.UUID, in UpdateInput) (*Profile, error) {
	p, err := s.Get(ctx, ident, id)
	if err != nil {
		return nil, err
	}
	if ident.Role != auth.RoleAdmin && ident.Role != auth.RoleHospital {
		return nil, apperr.Forbidden("only the hospital or an admin may update doctor profiles")
	}
	if in.PhoneNumber != "" && !user.ValidPhone(in.PhoneNumber) {
		return nil, apperr.Validation("invalid doctor payload",
			map[string]string{"phone_number": "phone number must be 9 to 15 digits, optionally prefixed with +"})
	}
	if in.DepartmentID != nil {
		d, err := s.departments.GetByID(ctx, *in.DepartmentID)
		if err != nil || d.HospitalID != p.HospitalID {
			return nil, apperr.Validation("invalid doctor payload",
				map[string]string{"department_id": "department does not belong to this hospital"})
		}
	}

	p.DepartmentID = in.DepartmentID
	p.CNIC = in.CNIC
	p.Address = in.Address
	p.LicenseNumber = in.LicenseNumber
	p.Specialization = in.Specialization
	p.PhoneNumber = in.PhoneNumber
	p.AvailableTimings = in.AvailableTimings
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "update doctor profile", err)
	}
	return p, nil
}

// List returns profiles scoped by role.
func (s *Service) List(ctx context.Context, ident *auth.Identity, hospitalID *uuid.UUID, limit, offset int) ([]*Profile, int, error) {
	params := ListParams{HospitalID: hospitalID, Limit: limit, Offset: offset}
	switch ident.Role {
	case auth.RoleAdmin:
	case auth.RoleHospital:
		h, err := s.hospitals.Own(ctx, ident.UserID)
		if err != nil {
			return nil, 0, err
		}
		params.HospitalID = &h.ID
	default:
		params.ActiveApprovedOnly = true
	}
	return s.repo.List(ctx, params)
}

// ProfilesFor returns the doctor's own profiles.
func (s *Service) ProfilesFor(ctx context.Context, userID uuid.UUID) ([]*Profile, error) {
	return s.repo.ListByUser(ctx, userID)
}
