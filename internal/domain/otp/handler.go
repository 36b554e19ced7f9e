package otp

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/carehub/carehub/internal/platform/auth"
	"github.com/carehub/carehub/pkg/apperr"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes wires verify onto public (the patient-facing portal has
// no token) and generate onto the authenticated group.
func (h *Handler) RegisterRoutes(public, api *echo.Group) {
	public.POST("/otp/verify", h.Verify)
	api.POST("/otp/generate", h.Generate)
}

func (h *Handler) Generate(c echo.Context) error {
	ident := auth.IdentityFromContext(c.Request().Context())
	var in GenerateInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body", nil)
	}
	result, err := h.svc.Generate(c.Request().Context(), ident, in, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) Verify(c echo.Context) error {
	var in VerifyInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body", nil)
	}
	result, err := h.svc.Verify(c.Request().Context(), in, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}
