// Package v1 provides the HTTP handlers for the session backend.
package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/graphdesk/server/internal/domain"
	"github.com/graphdesk/server/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the API routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Session API
	e.GET("/api/sessions", h.ListSessions)
	e.POST("/api/sessions", h.CreateSession)
	e.POST("/api/sessions/compare", h.CompareSessions)
	e.GET("/api/sessions/:session_id", h.GetSession)
	e.PUT("/api/sessions/:session_id", h.UpdateSession)
	e.DELETE("/api/sessions/:session_id", h.DeleteSession)
	e.POST("/api/sessions/:session_id/version", h.CreateVersion)
	e.GET("/api/sessions/:session_id/versions", h.ListVersions)
	e.GET("/api/sessions/:session_id/export", h.ExportSession)

	// Custom view API
	e.GET("/api/views", h.ListViews)
	e.POST("/api/views", h.CreateView)
	e.GET("/api/views/:view_id", h.GetView)
	e.DELETE("/api/views/:view_id", h.DeleteView)
	e.POST("/api/views/presets/:preset", h.CreatePresetView)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

// writeError maps domain errors onto HTTP status codes.
func writeError(c echo.Context, err error) error {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": ve.Error(),
			"field": ve.Field,
		})
	}
	if domain.IsNotFound(err) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	var pe *domain.PolicyError
	if errors.As(err, &pe) {
		return c.JSON(http.StatusForbidden, map[string]string{"error": pe.Error()})
	}
	if domain.IsRetryable(err) {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
}
