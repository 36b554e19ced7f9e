package doctor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/carehub/carehub/internal/domain/audit"
	"github.com/carehub/carehub/internal/domain/hospital"
	"github.com/carehub/carehub/internal/domain/user"
	"github.com/carehub/carehub/internal/platform/auth"
	"github.com/carehub/carehub/pkg/apperr"
)

type mockRepo struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*Profile
	users    map[uuid.UUID]*user.User
	approved map[uuid.UUID]bool
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		profiles: make(map[uuid.UUID]*Profile),
		users:    make(map[uuid.UUID]*user.User),
		approved: make(map[uuid.UUID]bool),
	}
}

func (m *mockRepo) CreateWithUser(_ context.Context, u *user.User, p *Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = uuid.New()
	p.ID = uuid.New()
	p.UserID = u.ID
	p.CreatedAt = time.Now()
	m.users[u.ID] = u
	m.profiles[p.ID] = p
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return p, nil
}

func (m *mockRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Profile
	for _, p := range m.profiles {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockRepo) Update(_ context.Context, p *Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[p.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.profiles[p.ID] = p
	return nil
}

func (m *mockRepo) List(_ context.Context, params ListParams) ([]*Profile, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Profile
	for _, p := range m.profiles {
		if params.HospitalID != nil && p.HospitalID != *params.HospitalID {
			continue
		}
		if params.ActiveApprovedOnly && (!p.IsActive || !m.approved[p.HospitalID]) {
			continue
		}
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *mockRepo) HospitalApproved(_ context.Context, hospitalID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.approved[hospitalID], nil
}

// UsernameExists reads the repo's user map so collision handling is
// exercised for real.
func (m *mockRepo) UsernameExists(_ context.Context, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

type mockHospitalDir struct {
	hospitals map[uuid.UUID]*hospital.Hospital
}

func (m *mockHospitalDir) Own(_ context.Context, userID uuid.UUID) (*hospital.Hospital, error) {
	for _, h := range m.hospitals {
		if h.UserID == userID {
			return h, nil
		}
	}
	return nil, apperr.NotFound("hospital")
}

type mockDeptDir struct {
	depts map[uuid.UUID]*hospital.Department
}

func (m *mockDeptDir) GetByID(_ context.Context, id uuid.UUID) (*hospital.Department, error) {
	d, ok := m.depts[id]
	if !ok {
		return nil, apperr.NotFound("department")
	}
	return d, nil
}

type nopAuditRepo struct{}

func (nopAuditRepo) Create(context.Context, *audit.Entry) error { return nil }
func (nopAuditRepo) List(context.Context, audit.Action, int, int) ([]*audit.Entry, int, error) {
	return nil, 0, nil
}

type fixture struct {
	svc      *Service
	repo     *mockRepo
	hospital *hospital.Hospital
	owner    *auth.Identity
	depts    *mockDeptDir
}

func newFixture(approved bool) *fixture {
	repo := newMockRepo()
	h := &hospital.Hospital{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		Name:       "City Hospital",
		IsApproved: approved,
	}
	repo.approved[h.ID] = approved
	depts := &mockDeptDir{depts: make(map[uuid.UUID]*hospital.Department)}
	auditSvc := audit.NewService(nopAuditRepo{}, zerolog.Nop())
	svc := NewService(repo, &mockHospitalDir{hospitals: map[uuid.UUID]*hospital.Hospital{h.ID: h}},
		depts, repo, auditSvc)
	return &fixture{
		svc:      svc,
		repo:     repo,
		hospital: h,
		owner:    &auth.Identity{UserID: h.UserID, Role: auth.RoleHospital},
		depts:    depts,
	}
}

func TestCreate_GeneratesCredentials(t *testing.T) {
	f := newFixture(true)

	created, err := f.svc.Create(context.Background(), f.owner,
		CreateInput{FirstName: "Ayesha", LastName: "Khan", Specialization: "Cardiology"}, "", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Username != "ayesha-khan-city-hospital" {
		t.Fatalf("username = %q", created.Username)
	}
	if err := auth.ValidatePasswordStrength(created.Password); err != nil {
		t.Fatalf("generated password too weak: %v", err)
	}
	if !auth.ContainsSymbol(created.Password) {
		t.Fatal("generated password must contain a symbol")
	}

	u := f.repo.users[created.Profile.UserID]
	if u.Role != auth.RoleDoctor || !u.IsActive {
		t.Fatalf("doctor account role=%s active=%v", u.Role, u.IsActive)
	}
	if u.PasswordHash == created.Password {
		t.Fatal("plaintext password must not be stored")
	}
}

func TestCreate_UsernameCollisionSuffix(t *testing.T) {
	f := newFixture(true)

	first, err := f.svc.Create(context.Background(), f.owner, CreateInput{FirstName: "Ayesha", LastName: "Khan"}, "", "")
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := f.svc.Create(context.Background(), f.owner, CreateInput{FirstName: "Ayesha", LastName: "Khan"}, "", "")
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if second.Username != first.Username+"-2" {
		t.Fatalf("second username = %q, want %q", second.Username, first.Username+"-2")
	}
}

func TestCreate_RequiresApprovedHospital(t *testing.T) {
	f := newFixture(false)
	_, err := f.svc.Create(context.Background(), f.owner, CreateInput{FirstName: "Ayesha"}, "", "")
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("err = %v, want forbidden", err)
	}
}

func TestCreate_ForeignDepartmentRejected(t *testing.T) {
	f := newFixture(true)
	foreign := &hospital.Department{ID: uuid.New(), HospitalID: uuid.New(), Name: "Cardiology"}
	f.depts.depts[foreign.ID] = foreign

	_, err := f.svc.Create(context.Background(), f.owner,
		CreateInput{FirstName: "Ayesha", DepartmentID: &foreign.ID}, "", "")
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestUpdate_SoftDisableHidesFromPublic(t *testing.T) {
	f := newFixture(true)
	created, err := f.svc.Create(context.Background(), f.owner, CreateInput{FirstName: "Ayesha"}, "", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	off := false
	if _, err := f.svc.Update(context.Background(), f.owner, created.Profile.ID, UpdateInput{IsActive: &off}); err != nil {
		t.Fatalf("disable: %v", err)
	}

	patient := &auth.Identity{UserID: uuid.New(), Role: auth.RolePatient}
	if _, err := f.svc.Get(context.Background(), patient, created.Profile.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("err = %v, want not found for disabled profile", err)
	}
	// The owning hospital still sees it.
	if _, err := f.svc.Get(context.Background(), f.owner, created.Profile.ID); err != nil {
		t.Fatalf("owner get: %v", err)
	}
}

func TestGet_UnapprovedHospitalHiddenFromPublic(t *testing.T) {
	f := newFixture(false)
	id := uuid.New()
	f.repo.profiles[id] = &Profile{ID: id, HospitalID: f.hospital.ID, UserID: uuid.New(), IsActive: true}

	patient := &auth.Identity{UserID: uuid.New(), Role: auth.RolePatient}
	if _, err := f.svc.Get(context.Background(), patient, id); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("err = %v, want not found while the hospital is unapproved", err)
	}

	// The owning hospital and admins still see it.
	if _, err := f.svc.Get(context.Background(), f.owner, id); err != nil {
		t.Fatalf("owner get: %v", err)
	}
	admin := &auth.Identity{UserID: uuid.New(), Role: auth.RoleAdmin}
	if _, err := f.svc.Get(context.Background(), admin, id); err != nil {
		t.Fatalf("admin get: %v", err)
	}

	f.repo.approved[f.hospital.ID] = true
	if _, err := f.svc.Get(context.Background(), patient, id); err != nil {
		t.Fatalf("get after approval: %v", err)
	}
}

func TestList_HospitalScopedToOwn(t *testing.T) {
	f := newFixture(true)
	if _, err := f.svc.Create(context.Background(), f.owner, CreateInput{FirstName: "Ayesha"}, "", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	// A profile at some other hospital.
	otherHospital := uuid.New()
	f.repo.profiles[uuid.New()] = &Profile{ID: uuid.New(), HospitalID: otherHospital, UserID: uuid.New(), IsActive: true}

	items, total, err := f.svc.List(context.Background(), f.owner, nil, 20, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Fatalf("total = %d, want 1", total)
	}
	if items[0].HospitalID != f.hospital.ID {
		t.Fatal("hospital must only see its own profiles")
	}
}
