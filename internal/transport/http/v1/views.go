package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/graphdesk/server/internal/service"
)

// ListViews returns all saved custom views.
// GET /api/views
func (h *Handler) ListViews(c echo.Context) error {
	views, err := h.service.ListViews(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, views)
}

// CreateView saves a custom view configuration.
// POST /api/views
func (h *Handler) CreateView(c echo.Context) error {
	var input service.CreateViewInput
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	view, err := h.service.CreateView(c.Request().Context(), input)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, view)
}

// GetView returns a single custom view.
// GET /api/views/:view_id
func (h *Handler) GetView(c echo.Context) error {
	view, err := h.service.GetView(c.Request().Context(), c.Param("view_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// DeleteView removes a custom view.
// DELETE /api/views/:view_id
func (h *Handler) DeleteView(c echo.Context) error {
	if err := h.service.DeleteView(c.Request().Context(), c.Param("view_id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type presetRequest struct {
	Name string `json:"name"`
}

// CreatePresetView saves one of the built-in preset views.
// POST /api/views/presets/:preset
func (h *Handler) CreatePresetView(c echo.Context) error {
	var req presetRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	view, err := h.service.CreatePresetView(c.Request().Context(), c.Param("preset"), req.Name)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, view)
}
