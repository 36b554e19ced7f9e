package recommendation

import (
	"net/http"

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
	g := api.Group("/recommendations")
	g.POST("", h.Recommend, auth.RequireRole(auth.RoleDoctor))
	g.GET("/history", h.History, auth.RequireRole(auth.RoleDoctor, auth.RoleAdmin))
	g.POST("/clear-cache", h.ClearCache, auth.RequireRole(auth.RoleAdmin))
	g.GET("/stats", h.Stats, auth.RequireRole(auth.RoleAdmin))
}

func (h *Handler) Recommend(c echo.Context) error {
	ident := auth.IdentityFromContext(c.Request().Context())
	var in RequestInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body", nil)
	}
	rec, err := h.svc.Recommend(c.Request().Context(), ident, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) History(c echo.Context) error {
	ident := auth.IdentityFromContext(c.Request().Context())
	pg := pagination.FromContext(c)
	items, total, err := h.svc.History(c.Request().Context(), ident, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ClearCache(c echo.Context) error {
	h.svc.ClearCache()
	return c.JSON(http.StatusOK, map[string]string{"message": "recommendation cache cleared"})
}

func (h *Handler) Stats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.CacheStats())
}
