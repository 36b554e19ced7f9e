package hospital

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/carehub/carehub/internal/platform/auth"
	"github.com/carehub/carehub/pkg/apperr"
)

// newTestRouter registers the handler's routes behind a middleware that
// attaches ident to every request, mirroring the server's auth chain.
func newTestRouter(svc *Service, ident *auth.Identity) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = apperr.HTTPErrorHandler(zerolog.Nop())
	withIdent := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := auth.WithIdentity(c.Request().Context(), ident)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
	public := e.Group("/api/v1")
	api := e.Group("/api/v1", withIdent)
	NewHandler(svc).RegisterRoutes(public, api)
	return e
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestDepartmentRoutes_ReadOpenWritesRestricted(t *testing.T) {
	svc, _, _ := newTestService()
	h := register(t, svc, "cityhosp", "LIC-700")
	admin := &auth.Identity{UserID: uuid.New(), Role: auth.RoleAdmin}
	if _, err := svc.SetApproval(context.Background(), admin.UserID, h.ID, true, "127.0.0.1", "test"); err != nil {
		t.Fatalf("approve hospital: %v", err)
	}
	owner := &auth.Identity{UserID: h.UserID, Role: auth.RoleHospital}
	d, err := svc.CreateDepartment(context.Background(), owner, DepartmentInput{Name: "Cardiology"})
	if err != nil {
		t.Fatalf("create department: %v", err)
	}

	patient := &auth.Identity{UserID: uuid.New(), Role: auth.RolePatient}
	e := newTestRouter(svc, patient)

	rec := do(e, http.MethodGet, "/api/v1/hospitals/departments?hospital_id="+h.ID.String(), "")
	if rec.Code != http.StatusOK {
		t.Errorf("patient department list: got %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	rec = do(e, http.MethodGet, "/api/v1/hospitals/departments/"+d.ID.String(), "")
	if rec.Code != http.StatusOK {
		t.Errorf("patient department detail: got %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	rec = do(e, http.MethodPost, "/api/v1/hospitals/departments", `{"name":"Oncology"}`)
	if rec.Code != http.StatusForbidden {
		t.Errorf("patient department create: got %d, want 403", rec.Code)
	}

	rec = do(e, http.MethodPut, "/api/v1/hospitals/departments/"+d.ID.String(), `{"name":"Renamed"}`)
	if rec.Code != http.StatusForbidden {
		t.Errorf("patient department update: got %d, want 403", rec.Code)
	}

	rec = do(e, http.MethodDelete, "/api/v1/hospitals/departments/"+d.ID.String(), "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("patient department delete: got %d, want 403", rec.Code)
	}
}

func TestDepartmentRoutes_UnapprovedHospitalHidden(t *testing.T) {
	svc, _, _ := newTestService()
	h := register(t, svc, "pendinghosp", "LIC-701")
	owner := &auth.Identity{UserID: h.UserID, Role: auth.RoleHospital}
	d, err := svc.CreateDepartment(context.Background(), owner, DepartmentInput{Name: "Cardiology"})
	if err != nil {
		t.Fatalf("create department: %v", err)
	}

	patient := &auth.Identity{UserID: uuid.New(), Role: auth.RolePatient}
	e := newTestRouter(svc, patient)

	rec := do(e, http.MethodGet, "/api/v1/hospitals/departments?hospital_id="+h.ID.String(), "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unapproved hospital department list: got %d, want 404", rec.Code)
	}

	rec = do(e, http.MethodGet, "/api/v1/hospitals/departments/"+d.ID.String(), "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unapproved hospital department detail: got %d, want 404", rec.Code)
	}
}
