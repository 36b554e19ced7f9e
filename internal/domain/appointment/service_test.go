package appointment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/carehub/carehub/internal/domain/doctor"
	"github.com/carehub/carehub/internal/domain/hospital"
	"github.com/carehub/carehub/internal/platform/auth"
	"github.com/carehub/carehub/pkg/apperr"
)

type mockRepo struct {
	mu    sync.Mutex
	appts map[uuid.UUID]*Appointment
}

func newMockRepo() *mockRepo {
	return &mockRepo{appts: make(map[uuid.UUID]*Appointment)}
}

func (m *mockRepo) Create(_ context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	m.appts[a.ID] = a
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return a, nil
}

func (m *mockRepo) Update(_ context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.appts[a.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.appts[a.ID] = a
	return nil
}

func (m *mockRepo) List(_ context.Context, params ListParams) ([]*Appointment, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Appointment
	for _, a := range m.appts {
		if params.PatientID != nil && a.PatientID != *params.PatientID {
			continue
		}
		if params.HospitalID != nil && a.HospitalID != *params.HospitalID {
			continue
		}
		if params.DoctorProfileIDs != nil {
			match := false
			for _, pid := range params.DoctorProfileIDs {
				if a.AssignedDoctorID != nil && *a.AssignedDoctorID == pid {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		if params.Status != nil && a.Status != *params.Status {
			continue
		}
		out = append(out, a)
	}
	return out, len(out), nil
}

type mockHospitalDir struct {
	hospitals map[uuid.UUID]*hospital.Hospital
}

func (m *mockHospitalDir) GetByID(_ context.Context, id uuid.UUID) (*hospital.Hospital, error) {
	h, ok := m.hospitals[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return h, nil
}

func (m *mockHospitalDir) GetByUserID(_ context.Context, userID uuid.UUID) (*hospital.Hospital, error) {
	for _, h := range m.hospitals {
		if h.UserID == userID {
			return h, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type mockDeptDir struct {
	depts map[uuid.UUID]*hospital.Department
}

func (m *mockDeptDir) GetByID(_ context.Context, id uuid.UUID) (*hospital.Department, error) {
	d, ok := m.depts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return d, nil
}

type mockDoctorDir struct {
	profiles map[uuid.UUID]*doctor.Profile
}

func (m *mockDoctorDir) GetByID(_ context.Context, id uuid.UUID) (*doctor.Profile, error) {
	p, ok := m.profiles[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return p, nil
}

func (m *mockDoctorDir) ListByUser(_ context.Context, userID uuid.UUID) ([]*doctor.Profile, error) {
	var out []*doctor.Profile
	for _, p := range m.profiles {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

type fixture struct {
	svc      *Service
	repo     *mockRepo
	hospital *hospital.Hospital
	profile  *doctor.Profile
	patient  *auth.Identity
	hospOp   *auth.Identity
	docIdent *auth.Identity
}

func newFixture() *fixture {
	h := &hospital.Hospital{ID: uuid.New(), UserID: uuid.New(), Name: "City Hospital", IsApproved: true}
	p := &doctor.Profile{ID: uuid.New(), HospitalID: h.ID, UserID: uuid.New(), IsActive: true}
	repo := newMockRepo()
	svc := NewService(repo,
		&mockHospitalDir{hospitals: map[uuid.UUID]*hospital.Hospital{h.ID: h}},
		&mockDeptDir{depts: make(map[uuid.UUID]*hospital.Department)},
		&mockDoctorDir{profiles: map[uuid.UUID]*doctor.Profile{p.ID: p}})
	return &fixture{
		svc:      svc,
		repo:     repo,
		hospital: h,
		profile:  p,
		patient:  &auth.Identity{UserID: uuid.New(), Role: auth.RolePatient},
		hospOp:   &auth.Identity{UserID: h.UserID, Role: auth.RoleHospital},
		docIdent: &auth.Identity{UserID: p.UserID, Role: auth.RoleDoctor},
	}
}

func (f *fixture) book(t *testing.T) *Appointment {
	t.Helper()
	a, err := f.svc.Create(context.Background(), f.patient, CreateInput{
		HospitalID:    f.hospital.ID,
		RequestedTime: time.Now().Add(24 * time.Hour),
		Reason:        "checkup",
	})
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	return a
}

func TestCreate_StartsRequested(t *testing.T) {
	f := newFixture()
	a := f.book(t)
	if a.Status != StatusRequested {
		t.Fatalf("status = %s, want REQUESTED", a.Status)
	}
}

func TestCreate_UnapprovedHospitalRejected(t *testing.T) {
	f := newFixture()
	f.hospital.IsApproved = false
	_, err := f.svc.Create(context.Background(), f.patient, CreateInput{
		HospitalID:    f.hospital.ID,
		RequestedTime: time.Now().Add(time.Hour),
	})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestCreate_PastTimeRejected(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Create(context.Background(), f.patient, CreateInput{
		HospitalID:    f.hospital.ID,
		RequestedTime: time.Now().Add(-time.Hour),
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestAssignDoctor_ConfirmsWithTime(t *testing.T) {
	f := newFixture()
	a := f.book(t)

	slot := time.Now().Add(48 * time.Hour)
	assigned, err := f.svc.AssignDoctor(context.Background(), f.hospOp, a.ID,
		AssignInput{DoctorProfileID: f.profile.ID, ConfirmedTime: &slot})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if assigned.Status != StatusConfirmed {
		t.Fatalf("status = %s, want CONFIRMED", assigned.Status)
	}
	if assigned.AssignedDoctorID == nil || *assigned.AssignedDoctorID != f.profile.ID {
		t.Fatal("doctor not recorded")
	}

	// A second assignment is a conflict.
	_, err = f.svc.AssignDoctor(context.Background(), f.hospOp, a.ID,
		AssignInput{DoctorProfileID: f.profile.ID})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestAssignDoctor_InactiveProfileRejected(t *testing.T) {
	f := newFixture()
	a := f.book(t)
	f.profile.IsActive = false

	_, err := f.svc.AssignDoctor(context.Background(), f.hospOp, a.ID,
		AssignInput{DoctorProfileID: f.profile.ID})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestUpdateStatus_PatientMayOnlyCancel(t *testing.T) {
	f := newFixture()
	a := f.book(t)

	_, err := f.svc.UpdateStatus(context.Background(), f.patient, a.ID, StatusConfirmed)
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("err = %v, want forbidden", err)
	}
	if _, err := f.svc.UpdateStatus(context.Background(), f.patient, a.ID, StatusCancelled); err != nil {
		t.Fatalf("patient cancel: %v", err)
	}
}

func TestUpdateStatus_TerminalStatesImmutable(t *testing.T) {
	f := newFixture()
	a := f.book(t)

	if _, err := f.svc.UpdateStatus(context.Background(), f.hospOp, a.ID, StatusConfirmed); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := f.svc.UpdateStatus(context.Background(), f.hospOp, a.ID, StatusCompleted); err != nil {
		t.Fatalf("complete: %v", err)
	}
	_, err := f.svc.UpdateStatus(context.Background(), f.hospOp, a.ID, StatusCancelled)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("err = %v, want conflict on completed appointment", err)
	}
}

func TestUpdateStatus_SkippingConfirmRejected(t *testing.T) {
	f := newFixture()
	a := f.book(t)

	_, err := f.svc.UpdateStatus(context.Background(), f.hospOp, a.ID, StatusCompleted)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("err = %v, want conflict for REQUESTED to COMPLETED", err)
	}
}

func TestCancel_CompletedConflicts(t *testing.T) {
	f := newFixture()
	a := f.book(t)

	if _, err := f.svc.UpdateStatus(context.Background(), f.hospOp, a.ID, StatusConfirmed); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := f.svc.UpdateStatus(context.Background(), f.hospOp, a.ID, StatusCompleted); err != nil {
		t.Fatalf("complete: %v", err)
	}
	_, err := f.svc.Cancel(context.Background(), f.patient, a.ID)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestVisibility(t *testing.T) {
	f := newFixture()
	a := f.book(t)

	stranger := &auth.Identity{UserID: uuid.New(), Role: auth.RolePatient}
	if _, err := f.svc.Get(context.Background(), stranger, a.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("err = %v, want not found for foreign patient", err)
	}

	// Unassigned doctor cannot see it.
	if _, err := f.svc.Get(context.Background(), f.docIdent, a.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("err = %v, want not found before assignment", err)
	}

	if _, err := f.svc.AssignDoctor(context.Background(), f.hospOp, a.ID,
		AssignInput{DoctorProfileID: f.profile.ID}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := f.svc.Get(context.Background(), f.docIdent, a.ID); err != nil {
		t.Fatalf("assigned doctor get: %v", err)
	}

	items, total, err := f.svc.ListDoctor(context.Background(), f.docIdent, nil, 20, 0)
	if err != nil || total != 1 || len(items) != 1 {
		t.Fatalf("doctor list = %d items, err %v", total, err)
	}
}
