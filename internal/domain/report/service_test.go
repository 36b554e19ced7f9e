package report

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/carehub/carehub/internal/domain/prescription"
	"github.com/carehub/carehub/internal/domain/user"
	"github.com/carehub/carehub/internal/platform/auth"
	"github.com/carehub/carehub/internal/platform/blobstore"
	"github.com/carehub/carehub/pkg/apperr"
)

type mockRepo struct {
	mu      sync.Mutex
	reports map[uuid.UUID]*Report
}

func newMockRepo() *mockRepo {
	return &mockRepo{reports: make(map[uuid.UUID]*Report)}
}

func (m *mockRepo) Create(_ context.Context, r *Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = uuid.New()
	r.CreatedAt = time.Now()
	m.reports[r.ID] = r
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return r, nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.reports, id)
	return nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, _ int) ([]*Report, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Report
	for _, r := range m.reports {
		if r.PatientID == patientID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := len(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
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

type mockPrescriptions struct {
	byPatient map[uuid.UUID][]*prescription.Prescription
}

func (m *mockPrescriptions) RecentForPatient(_ context.Context, patientID uuid.UUID, limit int) ([]*prescription.Prescription, int, error) {
	items := m.byPatient[patientID]
	total := len(items)
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, total, nil
}

type fixture struct {
	svc          *Service
	repo         *mockRepo
	patient      *user.User
	patientIdent *auth.Identity
	grants       *mockGrants
	rx           *mockPrescriptions
}

func newFixture() *fixture {
	repo := newMockRepo()
	patient := &user.User{ID: uuid.New(), Role: auth.RolePatient}
	grants := &mockGrants{granted: make(map[uuid.UUID]uuid.UUID)}
	rx := &mockPrescriptions{byPatient: make(map[uuid.UUID][]*prescription.Prescription)}
	svc := NewService(repo,
		&mockPatients{byID: map[uuid.UUID]*user.User{patient.ID: patient}},
		grants, rx, blobstore.NewInMemoryBlobStore(64))
	return &fixture{
		svc:          svc,
		repo:         repo,
		patient:      patient,
		patientIdent: &auth.Identity{UserID: patient.ID, Role: auth.RolePatient},
		grants:       grants,
		rx:           rx,
	}
}

func (f *fixture) upload(t *testing.T, ident *auth.Identity, name, body string) *Report {
	t.Helper()
	r, err := f.svc.Upload(context.Background(), ident, f.patient.ID, UploadInput{
		Title:       "blood work",
		FileName:    name,
		ContentType: "application/pdf",
		Content:     strings.NewReader(body),
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	return r
}

func TestUpload_StoresBlobReference(t *testing.T) {
	f := newFixture()
	r := f.upload(t, f.patientIdent, "cbc.pdf", "%PDF-1.4")
	if r.BlobID == uuid.Nil || r.Size == 0 {
		t.Fatalf("report = %+v, want blob reference and size", r)
	}
}

func TestUpload_PatientOnlySelf(t *testing.T) {
	f := newFixture()
	other := &auth.Identity{UserID: uuid.New(), Role: auth.RolePatient}
	_, err := f.svc.Upload(context.Background(), other, f.patient.ID, UploadInput{
		FileName: "cbc.pdf", Content: strings.NewReader("x"),
	})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("err = %v, want forbidden", err)
	}
}

func TestUpload_RejectsDisallowedExtension(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Upload(context.Background(), f.patientIdent, f.patient.ID, UploadInput{
		FileName: "malware.exe", Content: strings.NewReader("x"),
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestUpload_RejectsOversizedFile(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Upload(context.Background(), f.patientIdent, f.patient.ID, UploadInput{
		FileName: "big.pdf", Content: strings.NewReader(strings.Repeat("a", 100)),
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation for oversized file", err)
	}
}

func TestListForPatient_GrantGated(t *testing.T) {
	f := newFixture()
	f.upload(t, f.patientIdent, "cbc.pdf", "%PDF-1.4")

	docIdent := &auth.Identity{UserID: uuid.New(), Role: auth.RoleDoctor}
	_, _, err := f.svc.ListForPatient(context.Background(), docIdent, f.patient.ID, 20, 0)
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("err = %v, want forbidden without grant", err)
	}

	f.grants.granted[f.patient.ID] = docIdent.UserID
	items, total, err := f.svc.ListForPatient(context.Background(), docIdent, f.patient.ID, 20, 0)
	if err != nil || total != 1 || len(items) != 1 {
		t.Fatalf("list with grant: total=%d err=%v", total, err)
	}

	hospIdent := &auth.Identity{UserID: uuid.New(), Role: auth.RoleHospital}
	if _, _, err := f.svc.ListForPatient(context.Background(), hospIdent, f.patient.ID, 20, 0); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("err = %v, want forbidden for hospital", err)
	}
}

func TestDelete_OwnerRemovesRowAndBlob(t *testing.T) {
	f := newFixture()
	r := f.upload(t, f.patientIdent, "cbc.pdf", "%PDF-1.4")

	stranger := &auth.Identity{UserID: uuid.New(), Role: auth.RolePatient}
	if err := f.svc.Delete(context.Background(), stranger, r.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("err = %v, want not found for foreign caller", err)
	}

	if err := f.svc.Delete(context.Background(), f.patientIdent, r.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.repo.GetByID(context.Background(), r.ID); err == nil {
		t.Fatal("row still present after delete")
	}
}

func TestPatientSummary(t *testing.T) {
	f := newFixture()
	f.upload(t, f.patientIdent, "cbc.pdf", "%PDF-1.4")
	f.upload(t, f.patientIdent, "xray.png", "PNG")
	f.rx.byPatient[f.patient.ID] = []*prescription.Prescription{
		{ID: uuid.New(), PatientID: f.patient.ID, Diagnosis: "flu", Version: 1},
	}

	summary, err := f.svc.PatientSummary(context.Background(), f.patientIdent, f.patient.ID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.ReportCount != 2 || summary.PrescriptionCount != 1 {
		t.Fatalf("summary counts = %d reports, %d prescriptions", summary.ReportCount, summary.PrescriptionCount)
	}
	if len(summary.RecentReports) != 2 || len(summary.RecentPrescriptions) != 1 {
		t.Fatal("recent lists incomplete")
	}
}

func TestDownload_RoundTripAndGrantScope(t *testing.T) {
	f := newFixture()
	r := f.upload(t, f.patientIdent, "cbc.pdf", "%PDF-1.4")

	got, rc, err := f.svc.Download(context.Background(), f.patientIdent, r.ID)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil || string(data) != "%PDF-1.4" {
		t.Fatalf("content = %q err = %v, want stored bytes back", data, err)
	}
	if got.FileName != "cbc.pdf" {
		t.Fatalf("file name = %q, want cbc.pdf", got.FileName)
	}

	docIdent := &auth.Identity{UserID: uuid.New(), Role: auth.RoleDoctor}
	if _, _, err := f.svc.Download(context.Background(), docIdent, r.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("err = %v, want forbidden without grant", err)
	}

	f.grants.granted[f.patient.ID] = docIdent.UserID
	_, rc, err = f.svc.Download(context.Background(), docIdent, r.ID)
	if err != nil {
		t.Fatalf("download with grant: %v", err)
	}
	rc.Close()
}
