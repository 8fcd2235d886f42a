package extraction

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	gw *Gateway
}

func NewHandler(gw *Gateway) *Handler {
	return &Handler{gw: gw}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/ocr", h.Run)
}

type runRequest struct {
	FileKey string `json:"file_key"`
	Mode    string `json:"mode"`
}

// Run extracts text, alerts and optionally structured fields from a stored
// object. The result is returned inline; nothing is persisted here, the
// caller decides what to keep when it finalizes the document.
func (h *Handler) Run(c echo.Context) error {
	var req runRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.FileKey == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "file_key is required")
	}

	result, err := h.gw.Extract(c.Request().Context(), req.FileKey, req.Mode)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, result)
	case errors.Is(err, ErrInvalidFileKey), errors.Is(err, ErrUnsupportedType):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrUnreachable):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
