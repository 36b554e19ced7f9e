package prescription

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
	g := api.Group("/prescriptions")
	g.POST("", h.Create, auth.RequireRole(auth.RoleDoctor))
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.POST("/:id/revise", h.Revise, auth.RequireRole(auth.RoleDoctor))
	g.POST("/:id/attachments", h.AddAttachment, auth.RequireRole(auth.RoleDoctor))
	g.GET("/:id/attachments/:attachment_id/download", h.DownloadAttachment)

	api.GET("/patients/:patient_id/prescriptions", h.PatientHistory)
}

func (h *Handler) Create(c echo.Context) error {
	ident := auth.IdentityFromContext(c.Request().Context())
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body", nil)
	}
	p, err := h.svc.Create(c.Request().Context(), ident, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) Revise(c echo.Context) error {
	ident := auth.IdentityFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid prescription id", nil)
	}
	var in ReviseInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body", nil)
	}
	p, err := h.svc.Revise(c.Request().Context(), ident, id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) List(c echo.Context) error {
	ident := auth.IdentityFromContext(c.Request().Context())
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), ident, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	ident := auth.IdentityFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid prescription id", nil)
	}
	p, err := h.svc.Get(c.Request().Context(), ident, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) PatientHistory(c echo.Context) error {
	ident := auth.IdentityFromContext(c.Request().Context())
	patientID, err := uuid.Parse(c.Param("patient_id"))
	if err != nil {
		return apperr.Validation("invalid patient id", nil)
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.PatientHistory(c.Request().Context(), ident, patientID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) AddAttachment(c echo.Context) error {
	ident := auth.IdentityFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid prescription id", nil)
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

	a, err := h.svc.AddAttachment(c.Request().Context(), ident, id,
		fh.Filename, fh.Header.Get("Content-Type"), src)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) DownloadAttachment(c echo.Context) error {
	ident := auth.IdentityFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid prescription id", nil)
	}
	attachmentID, err := uuid.Parse(c.Param("attachment_id"))
	if err != nil {
		return apperr.Validation("invalid attachment id", nil)
	}

	a, rc, err := h.svc.DownloadAttachment(c.Request().Context(), ident, id, attachmentID)
	if err != nil {
		return err
	}
	defer rc.Close()

	contentType := a.ContentType
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", a.FileName))
	return c.Stream(http.StatusOK, contentType, rc)
}
