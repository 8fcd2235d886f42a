package documents

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/refdock/refdock/internal/domain/docevents"
	"github.com/refdock/refdock/internal/platform/auth"
	"github.com/refdock/refdock/pkg/pagination"
)

type Handler struct {
	svc    *Service
	events docevents.Repository
}

func NewHandler(svc *Service, events docevents.Repository) *Handler {
	return &Handler{svc: svc, events: events}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/documents", h.Create)
	api.GET("/documents/:id", h.Get)
	api.GET("/documents/:id/summary", h.Summary)
	api.GET("/documents/:id/events", h.ListEvents)
	api.POST("/documents/:id/open", h.Open)
	api.POST("/documents/:id/cancel", h.Cancel)
	api.POST("/documents/:id/archive", h.Archive)
	api.POST("/documents/:id/assign", h.Assign)
	api.POST("/documents/:id/reassign", h.Reassign)
	api.POST("/documents/:id/structured", h.FinalizeStructured)

	api.GET("/inbox", h.ListInbox)
	api.GET("/inbox/harbor", h.ListHarbor)
	api.GET("/sent", h.ListSent)
}

// actor pulls the authenticated user and organization out of the request
// context. Every operation takes them as explicit parameters.
func actor(c echo.Context) (userID, orgID uuid.UUID, err error) {
	ctx := c.Request().Context()
	userID, err = uuid.Parse(auth.UserIDFromContext(ctx))
	if err != nil {
		return uuid.Nil, uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid user identity")
	}
	orgID, err = uuid.Parse(auth.OrgIDFromContext(ctx))
	if err != nil {
		return uuid.Nil, uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "missing organization membership")
	}
	return userID, orgID, nil
}

// httpError maps domain errors onto the transport taxonomy.
func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "document not found")
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrExpired):
		return echo.NewHTTPError(http.StatusGone, err.Error())
	case errors.Is(err, ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrSameOrganization),
		errors.Is(err, ErrMissingFileKey),
		errors.Is(err, ErrUntrustedFileKey),
		errors.Is(err, ErrEmptyDepartment),
		errors.Is(err, ErrUnknownDepartment),
		errors.Is(err, ErrMissingOwner):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

type createRequest struct {
	ToOrgID          uuid.UUID         `json:"to_org_id"`
	FileKey          string            `json:"file_key"`
	PreviewFileKey   *string           `json:"preview_file_key"`
	OriginalFilename string            `json:"original_filename"`
	ContentType      string            `json:"content_type"`
	Comment          *string           `json:"comment"`
	Structured       *StructuredFields `json:"structured"`
	StructuredSource string            `json:"structured_source"`
}

func (h *Handler) Create(c echo.Context) error {
	userID, orgID, err := actor(c)
	if err != nil {
		return err
	}
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	d, err := h.svc.Create(c.Request().Context(), CreateInput{
		FromOrgID:        orgID,
		ToOrgID:          req.ToOrgID,
		FileKey:          req.FileKey,
		PreviewFileKey:   req.PreviewFileKey,
		OriginalFilename: req.OriginalFilename,
		ContentType:      req.ContentType,
		Comment:          req.Comment,
		Structured:       req.Structured,
		StructuredSource: req.StructuredSource,
	}, userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) Get(c echo.Context) error {
	_, orgID, err := actor(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	d, err := h.svc.Get(c.Request().Context(), id, orgID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) Summary(c echo.Context) error {
	_, orgID, err := actor(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	d, err := h.svc.Get(c.Request().Context(), id, orgID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, BuildCardSummary(d, h.svc.now()))
}

// ListEvents returns the document's audit trail. The trail carries structured
// payload snapshots, so it is scoped to the two parties exactly like the
// document itself.
func (h *Handler) ListEvents(c echo.Context) error {
	_, orgID, err := actor(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if _, err := h.svc.Get(c.Request().Context(), id, orgID); err != nil {
		return httpError(err)
	}
	pg := pagination.FromContext(c)
	items, total, err := h.events.ListByDocument(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func listFilter(c echo.Context) Filter {
	pg := pagination.FromContext(c)
	f := Filter{
		Status:     c.QueryParam("status"),
		Department: c.QueryParam("department"),
		Search:     c.QueryParam("q"),
		Unread:     c.QueryParam("unread") == "true",
		Limit:      pg.Limit,
		Offset:     pg.Offset,
	}
	switch c.QueryParam("expired") {
	case "true":
		v := true
		f.Expired = &v
	case "false":
		v := false
		f.Expired = &v
	}
	return f
}

func (h *Handler) ListInbox(c echo.Context) error {
	_, orgID, err := actor(c)
	if err != nil {
		return err
	}
	f := listFilter(c)
	items, total, err := h.svc.ListInbox(c.Request().Context(), orgID, f)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, f.Limit, f.Offset))
}

func (h *Handler) ListSent(c echo.Context) error {
	_, orgID, err := actor(c)
	if err != nil {
		return err
	}
	f := listFilter(c)
	items, total, err := h.svc.ListSent(c.Request().Context(), orgID, f)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, f.Limit, f.Offset))
}

func (h *Handler) ListHarbor(c echo.Context) error {
	_, orgID, err := actor(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListHarbor(c.Request().Context(), orgID, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Open(c echo.Context) error {
	userID, orgID, err := actor(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ref, err := h.svc.Open(c.Request().Context(), id, userID, orgID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, ref)
}

func (h *Handler) Cancel(c echo.Context) error {
	userID, orgID, err := actor(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	d, err := h.svc.Cancel(c.Request().Context(), id, userID, orgID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) Archive(c echo.Context) error {
	userID, orgID, err := actor(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	d, err := h.svc.Archive(c.Request().Context(), id, userID, orgID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, d)
}

type assignRequest struct {
	Department  string    `json:"department"`
	OwnerUserID uuid.UUID `json:"owner_user_id"`
}

func (h *Handler) Assign(c echo.Context) error {
	userID, orgID, err := actor(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req assignRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	d, err := h.svc.Assign(c.Request().Context(), id, req.Department, req.OwnerUserID, userID, orgID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, d)
}

type reassignRequest struct {
	Department  string    `json:"department"`
	PrevOwnerID uuid.UUID `json:"prev_owner_user_id"`
	OwnerUserID uuid.UUID `json:"owner_user_id"`
}

func (h *Handler) Reassign(c echo.Context) error {
	userID, orgID, err := actor(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req reassignRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	d, err := h.svc.Reassign(c.Request().Context(), id, req.Department, req.PrevOwnerID, req.OwnerUserID, userID, orgID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, d)
}

type finalizeRequest struct {
	Original *StructuredFields `json:"original"`
	Edited   *StructuredFields `json:"edited"`
	Source   string            `json:"source"`
}

func (h *Handler) FinalizeStructured(c echo.Context) error {
	userID, orgID, err := actor(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req finalizeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	d, err := h.svc.FinalizeStructured(c.Request().Context(), id, req.Original, req.Edited, req.Source, userID, orgID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, d)
}
