// Package uploads issues presigned upload slots. The storage key is generated
// server side; clients never choose their own keys.
package uploads

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/refdock/refdock/internal/platform/objectstore"
)

type Handler struct {
	store objectstore.ObjectStore
}

func NewHandler(store objectstore.ObjectStore) *Handler {
	return &Handler{store: store}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/uploads/presign", h.Presign)
}

type presignRequest struct {
	ContentType string `json:"content_type"`
}

func (h *Handler) Presign(c echo.Context) error {
	var req presignRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.ContentType == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content_type is required")
	}

	presigned, err := h.store.PresignUpload(c.Request().Context(), req.ContentType)
	if errors.Is(err, objectstore.ErrInvalidContentType) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, presigned)
}
