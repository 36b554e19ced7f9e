package hospital

import (
	"net/http"
	"strconv"

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

// RegisterRoutes wires hospital registration onto public and everything
// else onto api. Department routes are registered before /:id so the
// literal path wins.
func (h *Handler) RegisterRoutes(public, api *echo.Group) {
	public.POST("/hospitals/register", h.Register)

	hg := api.Group("/hospitals")

	manage := auth.RequireRole(auth.RoleHospital, auth.RoleAdmin)
	hosp := hg.Group("/departments")
	hosp.POST("", h.CreateDepartment, manage)
	hosp.GET("", h.ListDepartments)
	hosp.GET("/:id", h.GetDepartment)
	hosp.PUT("/:id", h.UpdateDepartment, manage)
	hosp.DELETE("/:id", h.DeleteDepartment, manage)

	hg.GET("", h.List)
	hg.GET("/:id", h.Get)
	hg.PUT("/:id", h.Update)
	hg.PATCH("/:id/approve", h.SetApproval, auth.RequireRole(auth.RoleAdmin))
}

func (h *Handler) Register(c echo.Context) error {
	var in RegisterInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body", nil)
	}
	hosp, err := h.svc.Register(c.Request().Context(), in, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, hosp)
}

func (h *Handler) List(c echo.Context) error {
	ident := auth.IdentityFromContext(c.Request().Context())
	pg := pagination.FromContext(c)

	var approved *bool
	if raw := c.QueryParam("is_approved"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return apperr.Validation("invalid filter", map[string]string{"is_approved": "must be true or false"})
		}
		approved = &v
	}

	items, total, err := h.svc.List(c.Request().Context(), ident, approved, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	ident := auth.IdentityFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid hospital id", nil)
	}
	hosp, err := h.svc.Get(c.Request().Context(), ident, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, hosp)
}

func (h *Handler) Update(c echo.Context) error {
	ident := auth.IdentityFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid hospital id", nil)
	}
	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body", nil)
	}
	hosp, err := h.svc.Update(c.Request().Context(), ident, id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, hosp)
}

func (h *Handler) SetApproval(c echo.Context) error {
	ident := auth.IdentityFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid hospital id", nil)
	}
	var in struct {
		IsApproved bool `json:"is_approved"`
	}
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body", nil)
	}
	hosp, err := h.svc.SetApproval(c.Request().Context(), ident.UserID, id,
		in.IsApproved, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, hosp)
}

func (h *Handler) CreateDepartment(c echo.Context) error {
	ident := auth.IdentityFromContext(c.Request().Context())
	var in DepartmentInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body", nil)
	}
	d, err := h.svc.CreateDepartment(c.Request().Context(), ident, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) ListDepartments(c echo.Context) error {
	ident := auth.IdentityFromContext(c.Request().Context())
	pg := pagination.FromContext(c)

	var hospitalID uuid.UUID
	if raw := c.QueryParam("hospital_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return apperr.Validation("invalid filter", map[string]string{"hospital_id": "must be a UUID"})
		}
		hospitalID = id
	}

	items, total, err := h.svc.ListDepartments(c.Request().Context(), ident, hospitalID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetDepartment(c echo.Context) error {
	ident := auth.IdentityFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid department id", nil)
	}
	d, err := h.svc.GetDepartment(c.Request().Context(), ident, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) UpdateDepartment(c echo.Context) error {
	ident := auth.IdentityFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid department id", nil)
	}
	var in DepartmentInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body", nil)
	}
	d, err := h.svc.UpdateDepartment(c.Request().Context(), ident, id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) DeleteDepartment(c echo.Context) error {
	ident := auth.IdentityFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid department id", nil)
	}
	if err := h.svc.DeleteDepartment(c.Request().Context(), ident, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "department deleted"})
}
