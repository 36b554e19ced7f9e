package report

import (
	"fmt"
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
	api.POST("/patients/:patient_id/reports", h.Upload)
	api.GET("/patients/:patient_id/reports", h.ListForPatient)
	api.GET("/patients/:patient_id/summary", h.PatientSummary)

	api.GET("/reports/mine", h.ListMine, auth.RequireRole(auth.RolePatient))
	api.GET("/reports/:id", h.Get)
	api.GET("/reports/:id/download", h.Download)
	api.DELETE("/reports/:id", h.Delete)
}

func patientParam(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("patient_id"))
	if err != nil {
		return uuid.Nil, apperr.Validation("invalid patient id", nil)
	}
	return id, nil
}

func (h *Handler) Upload(c echo.Context) error {
	ident := auth.IdentityFromContext(c.Request().Context())
	patientID, err := patientParam(c)
	if err != nil {
		return err
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return apperr.Validation("multipart field 'file' is required", nil)
	}
	src, err := fh.Open()
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "open upload", err)
	}
	defer src.Close()

	r, err := h.svc.Upload(c.Request().Context(), ident, patientID, UploadInput{
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Content:     src,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) ListForPatient(c echo.Context) error {
	ident := auth.IdentityFromContext(c.Request().Context())
	patientID, err := patientParam(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListForPatient(c.Request().Context(), ident, patientID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) PatientSummary(c echo.Context) error {
	ident := auth.IdentityFromContext(c.Request().Context())
	patientID, err := patientParam(c)
	if err != nil {
		return err
	}
	summary, err := h.svc.PatientSummary(c.Request().Context(), ident, patientID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

func (h *Handler) ListMine(c echo.Context) error {
	ident := auth.IdentityFromContext(c.Request().Context())
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListMine(c.Request().Context(), ident, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	ident := auth.IdentityFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid report id", nil)
	}
	r, err := h.svc.Get(c.Request().Context(), ident, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) Download(c echo.Context) error {
	ident := auth.IdentityFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid report id", nil)
	}
	r, rc, err := h.svc.Download(c.Request().Context(), ident, id)
	if err != nil {
		return err
	}
	defer rc.Close()

	contentType := r.ContentType
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", r.FileName))
	return c.Stream(http.StatusOK, contentType, rc)
}

func (h *Handler) Delete(c echo.Context) error {
	ident := auth.IdentityFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid report id", nil)
	}
	if err := h.svc.Delete(c.Request().Context(), ident, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "report deleted"})
}
