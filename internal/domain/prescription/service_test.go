package prescription

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/carehub/carehub/internal/domain/doctor"
	"github.com/carehub/carehub/internal/domain/user"
	"github.com/carehub/carehub/internal/platform/auth"
	"github.com/carehub/carehub/internal/platform/blobstore"
	"github.com/carehub/carehub/pkg/apperr"
)

type mockRepo struct {
	mu            sync.Mutex
	prescriptions map[uuid.UUID]*Prescription
	attachments   map[uuid.UUID][]*Attachment
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		prescriptions: make(map[uuid.UUID]*Prescription),
		attachments:   make(map[uuid.UUID][]*Attachment),
	}
}

func (m *mockRepo) Create(_ context.Context, p *Prescription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	m.prescriptions[p.ID] = p
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Prescription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prescriptions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return p, nil
}

func (m *mockRepo) List(_ context.Context, params ListParams) ([]*Prescription, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Prescription
	for _, p := range m.prescriptions {
		if params.PatientID != nil && p.PatientID != *params.PatientID {
			continue
		}
		if params.DoctorProfileIDs != nil {
			match := false
			for _, id := range params.DoctorProfileIDs {
				if p.DoctorProfileID == id {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *mockRepo) AddAttachment(_ context.Context, a *Attachment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = uuid.New()
	m.attachments[a.PrescriptionID] = append(m.attachments[a.PrescriptionID], a)
	return nil
}

func (m *mockRepo) ListAttachments(_ context.Context, prescriptionID uuid.UUID) ([]*Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attachments[prescriptionID], nil
}

type mockDoctorDir struct {
	profiles map[uuid.UUID]*doctor.Profile
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

type mockPatients struct {
	byID map[uuid.UUID]*user.User
}

func (m *mockPatients) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return u, nil
}

type mockGrants struct {
	granted map[uuid.UUID]uuid.UUID
}

func (m *mockGrants) HasActiveGrant(_ context.Context, patientID, doctorID uuid.UUID) (bool, error) {
	return m.granted[patientID] == doctorID, nil
}

type fixture struct {
	svc      *Service
	repo     *mockRepo
	profile  *doctor.Profile
	patient  *user.User
	docIdent *auth.Identity
	grants   *mockGrants
}

func newFixture() *fixture {
	repo := newMockRepo()
	profile := &doctor.Profile{ID: uuid.New(), HospitalID: uuid.New(), UserID: uuid.New(), IsActive: true}
	patient := &user.User{ID: uuid.New(), Role: auth.RolePatient}
	grants := &mockGrants{granted: make(map[uuid.UUID]uuid.UUID)}
	svc := NewService(repo,
		&mockDoctorDir{profiles: map[uuid.UUID]*doctor.Profile{profile.ID: profile}},
		&mockPatients{byID: map[uuid.UUID]*user.User{patient.ID: patient}},
		grants,
		blobstore.NewInMemoryBlobStore(1024*1024))
	return &fixture{
		svc:      svc,
		repo:     repo,
		profile:  profile,
		patient:  patient,
		docIdent: &auth.Identity{UserID: profile.UserID, Role: auth.RoleDoctor},
		grants:   grants,
	}
}

func (f *fixture) prescribe(t *testing.T) *Prescription {
	t.Helper()
	p, err := f.svc.Create(context.Background(), f.docIdent, CreateInput{
		PatientID: f.patient.ID,
		Diagnosis: "seasonal influenza",
		Medicines: []Medicine{{Name: "Paracetamol", Dosage: "500mg", Frequency: "3x daily"}},
	})
	if err != nil {
		t.Fatalf("prescribe: %v", err)
	}
	return p
}

func TestCreate_VersionOne(t *testing.T) {
	f := newFixture()
	p := f.prescribe(t)
	if p.Version != 1 || p.PreviousVersionID != nil {
		t.Fatalf("version = %d previous = %v", p.Version, p.PreviousVersionID)
	}
	if p.DoctorProfileID != f.profile.ID {
		t.Fatal("prescription not linked to the authoring profile")
	}
}

func TestCreate_RequiresActiveProfile(t *testing.T) {
	f := newFixture()
	f.profile.IsActive = false
	_, err := f.svc.Create(context.Background(), f.docIdent, CreateInput{
		PatientID: f.patient.ID,
		Diagnosis: "flu",
	})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("err = %v, want forbidden", err)
	}
}

func TestCreate_RequiresDiagnosis(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Create(context.Background(), f.docIdent, CreateInput{PatientID: f.patient.ID})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestRevise_LinksVersionChain(t *testing.T) {
	f := newFixture()
	parent := f.prescribe(t)

	revised, err := f.svc.Revise(context.Background(), f.docIdent, parent.ID, ReviseInput{
		Medicines: []Medicine{{Name: "Ibuprofen", Dosage: "400mg"}},
	})
	if err != nil {
		t.Fatalf("revise: %v", err)
	}
	if revised.Version != 2 {
		t.Fatalf("version = %d, want 2", revised.Version)
	}
	if revised.PreviousVersionID == nil || *revised.PreviousVersionID != parent.ID {
		t.Fatal("revision not linked to parent")
	}
	// Unchanged clinical fields carry over.
	if revised.Diagnosis != parent.Diagnosis {
		t.Fatalf("diagnosis = %q, want copied from parent", revised.Diagnosis)
	}
	// The parent row is untouched.
	stored, err := f.repo.GetByID(context.Background(), parent.ID)
	if err != nil {
		t.Fatalf("get parent: %v", err)
	}
	if stored.Version != 1 || stored.Medicines[0].Name != "Paracetamol" {
		t.Fatal("parent row was modified")
	}
}

func TestRevise_OnlyAuthor(t *testing.T) {
	f := newFixture()
	p := f.prescribe(t)

	other := &auth.Identity{UserID: uuid.New(), Role: auth.RoleDoctor}
	_, err := f.svc.Revise(context.Background(), other, p.ID, ReviseInput{})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("err = %v, want forbidden", err)
	}
}

func TestGet_Scoping(t *testing.T) {
	f := newFixture()
	p := f.prescribe(t)

	patientIdent := &auth.Identity{UserID: f.patient.ID, Role: auth.RolePatient}
	if _, err := f.svc.Get(context.Background(), patientIdent, p.ID); err != nil {
		t.Fatalf("patient get: %v", err)
	}

	otherPatient := &auth.Identity{UserID: uuid.New(), Role: auth.RolePatient}
	if _, err := f.svc.Get(context.Background(), otherPatient, p.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("err = %v, want not found for foreign patient", err)
	}

	hospIdent := &auth.Identity{UserID: uuid.New(), Role: auth.RoleHospital}
	if _, err := f.svc.Get(context.Background(), hospIdent, p.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("err = %v, want not found for hospital", err)
	}
}

func TestList_HospitalForbidden(t *testing.T) {
	f := newFixture()
	hospIdent := &auth.Identity{UserID: uuid.New(), Role: auth.RoleHospital}
	_, _, err := f.svc.List(context.Background(), hospIdent, 20, 0)
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("err = %v, want forbidden", err)
	}
}

func TestPatientHistory_GrantGated(t *testing.T) {
	f := newFixture()
	f.prescribe(t)

	other := &auth.Identity{UserID: uuid.New(), Role: auth.RoleDoctor}
	_, _, err := f.svc.PatientHistory(context.Background(), other, f.patient.ID, 20, 0)
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("err = %v, want forbidden without grant", err)
	}

	f.grants.granted[f.patient.ID] = other.UserID
	items, total, err := f.svc.PatientHistory(context.Background(), other, f.patient.ID, 20, 0)
	if err != nil {
		t.Fatalf("history with grant: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Fatalf("total = %d, want 1", total)
	}
}

func TestAddAttachment_ValidatesExtension(t *testing.T) {
	f := newFixture()
	p := f.prescribe(t)

	_, err := f.svc.AddAttachment(context.Background(), f.docIdent, p.ID,
		"notes.exe", "application/octet-stream", strings.NewReader("payload"))
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation for disallowed extension", err)
	}

	a, err := f.svc.AddAttachment(context.Background(), f.docIdent, p.ID,
		"scan.pdf", "application/pdf", strings.NewReader("%PDF-1.4"))
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if a.BlobID == uuid.Nil {
		t.Fatal("attachment has no blob reference")
	}

	got, err := f.svc.Get(context.Background(), f.docIdent, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Attachments) != 1 {
		t.Fatalf("attachments = %d, want 1", len(got.Attachments))
	}
}

func TestDownloadAttachment_ScopedToReaders(t *testing.T) {
	f := newFixture()
	p := f.prescribe(t)
	a, err := f.svc.AddAttachment(context.Background(), f.docIdent, p.ID,
		"scan.pdf", "application/pdf", strings.NewReader("%PDF-1.4"))
	if err != nil {
		t.Fatalf("attach: %v", err)
	}

	patIdent := &auth.Identity{UserID: f.patient.ID, Role: auth.RolePatient}
	got, rc, err := f.svc.DownloadAttachment(context.Background(), patIdent, p.ID, a.ID)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil || string(data) != "%PDF-1.4" {
		t.Fatalf("content = %q err = %v, want stored bytes back", data, err)
	}
	if got.FileName != "scan.pdf" {
		t.Fatalf("file name = %q, want scan.pdf", got.FileName)
	}

	stranger := &auth.Identity{UserID: uuid.New(), Role: auth.RoleDoctor}
	if _, _, err := f.svc.DownloadAttachment(context.Background(), stranger, p.ID, a.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("err = %v, want not found for non-author doctor", err)
	}

	if _, _, err := f.svc.DownloadAttachment(context.Background(), f.docIdent, p.ID, uuid.New()); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("err = %v, want not found for unknown attachment", err)
	}
}
