package appointment

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carehub/carehub/internal/platform/auth"
	"github.com/carehub/carehub/pkg/apperr"
	"github.com/carehub/carehub/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/appointments")
	g.POST("", h.Create, auth.RequireRole(auth.RolePatient))
	g.GET("/mine", h.ListMine, auth.RequireRole(auth.RolePatient))
	g.GET("/hospital", h.ListHospital, auth.RequireRole(auth.RoleHospital))
	g.GET("/doctor", h.ListDoctor, auth.RequireRole(auth.RoleDoctor))
	g.GET("/:id", h.Get)
	g.POST("/:id/assign-doctor", h.AssignDoctor, auth.RequireRole(auth.RoleHospital))
	g.PATCH("/:id/status", h.UpdateStatus)
	g.POST("/:id/cancel", h.Cancel, auth.RequireRole(auth.RolePatient, auth.RoleHospital))
}

func (h *Handler) Create(c echo.Context) error {
	ident := auth.IdentityFromContext(c.Request().Context())
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body", nil)
	}
	a, err := h.svc.Create(c.Request().Context(), ident, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, a)
}

func statusFilter(c echo.Context) (*Status, error) {
	raw := c.QueryParam("status")
	if raw == "" {
		return nil, nil
	}
	st := Status(raw)
	if !st.Valid() {
		return nil, apperr.Validation("invalid filter", map[string]string{"status": "unknown status"})
	}
	return &st, nil
}

func (h *Handler) list(c echo.Context,
	fn func(*auth.Identity, *Status, int, int) ([]*Appointment, int, error)) error {
	ident := auth.IdentityFromContext(c.Request().Context())
	pg := pagination.FromContext(c)
	st, err := statusFilter(c)
	if err != nil {
		return err
	}
	items, total, err := fn(ident, st, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListMine(c echo.Context) error {
	return h.list(c, func(ident *auth.Identity, st *Status, limit, offset int) ([]*Appointment, int, error) {
		return h.svc.ListMine(c.Request().Context(), ident, st, limit, offset)
	})
}

func (h *Handler) ListHospital(c echo.Context) error {
	return h.list(c, func(ident *auth.Identity, st *Status, limit, offset int) ([]*Appointment, int, error) {
		return h.svc.ListHospital(c.Request().Context(), ident, st, limit, offset)
	})
}

func (h *Handler) ListDoctor(c echo.Context) error {
	return h.list(c, func(ident *auth.Identity, st *Status, limit, offset int) ([]*Appointment, int, error) {
		return h.svc.ListDoctor(c.Request().Context(), ident, st, limit, offset)
	})
}

func (h *Handler) Get(c echo.Context) error {
	ident := auth.IdentityFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid appointment id", nil)
	}
	a, err := h.svc.Get(c.Request().Context(), ident, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) AssignDoctor(c echo.Context) error {
	ident := auth.IdentityFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid appointment id", nil)
	}
	var in AssignInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body", nil)
	}
	a, err := h.svc.AssignDoctor(c.Request().Context(), ident, id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	ident := auth.IdentityFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid appointment id", nil)
	}
	var in struct {
		Status Status `json:"status"`
	}
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body", nil)
	}
	a, err := h.svc.UpdateStatus(c.Request().Context(), ident, id, in.Status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Cancel(c echo.Context) error {
	ident := auth.IdentityFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid appointment id", nil)
	}
	a, err := h.svc.Cancel(c.Request().Context(), ident, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}
