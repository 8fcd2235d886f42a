package hospitals

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/refdock/refdock/internal/platform/auth"
	"github.com/refdock/refdock/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/hospitals", h.List)
	// The master is shared across every tenant org; only admins mutate it.
	api.POST("/hospitals", h.Create, auth.RequireRole("admin"))
	api.GET("/hospitals/candidates", h.Candidates)
}

type createRequest struct {
	Name string `json:"name"`
}

func (h *Handler) Create(c echo.Context) error {
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	hospital, err := h.svc.Create(c.Request().Context(), req.Name)
	if errors.Is(err, ErrEmptyName) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, hospital)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

// Candidates suggests master entries for an extracted referral destination.
// The caller's own org never appears in the result.
func (h *Handler) Candidates(c echo.Context) error {
	name := c.QueryParam("name")
	if name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	excludeID := uuid.Nil
	if parsed, err := uuid.Parse(auth.OrgIDFromContext(c.Request().Context())); err == nil {
		excludeID = parsed
	}
	candidates, err := h.svc.Candidates(c.Request().Context(), name, excludeID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if candidates == nil {
		candidates = []Candidate{}
	}
	return c.JSON(http.StatusOK, map[string]any{"candidates": candidates})
}
