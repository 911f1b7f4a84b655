package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/graphdesk/server/internal/domain"
	"github.com/graphdesk/server/internal/service"
)

// ListSessions returns summaries of all saved sessions.
// GET /api/sessions
func (h *Handler) ListSessions(c echo.Context) error {
	summaries, err := h.service.ListSessions(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, summaries)
}

// CreateSession saves a new session.
// POST /api/sessions
func (h *Handler) CreateSession(c echo.Context) error {
	var input service.CreateSessionInput
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	session, err := h.service.CreateSession(c.Request().Context(), input)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, session)
}

// GetSession returns a full session.
// GET /api/sessions/:session_id
func (h *Handler) GetSession(c echo.Context) error {
	session, err := h.service.GetSession(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

// UpdateSession patches the mutable fields of a session.
// PUT /api/sessions/:session_id
func (h *Handler) UpdateSession(c echo.Context) error {
	var patch domain.SessionPatch
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	session, err := h.service.UpdateSession(c.Request().Context(), c.Param("session_id"), patch)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

// DeleteSession removes a session and its version lineage.
// DELETE /api/sessions/:session_id
func (h *Handler) DeleteSession(c echo.Context) error {
	if err := h.service.DeleteSession(c.Request().Context(), c.Param("session_id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// CreateVersion snapshots the session's lineage into a new version.
// POST /api/sessions/:session_id/version
func (h *Handler) CreateVersion(c echo.Context) error {
	session, err := h.service.CreateVersion(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, session)
}

// ListVersions returns the version history of the session's lineage.
// GET /api/sessions/:session_id/versions
func (h *Handler) ListVersions(c echo.Context) error {
	versions, err := h.service.History(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"versions": versions})
}

// ExportSession serializes a session as JSON or Markdown.
// GET /api/sessions/:session_id/export?format=json|markdown
func (h *Handler) ExportSession(c echo.Context) error {
	format := c.QueryParam("format")
	if format == "" {
		format = string(domain.ExportFormatJSON)
	}

	export, err := h.service.Export(c.Request().Context(), c.Param("session_id"), domain.ExportFormat(format))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, export)
}

type compareRequest struct {
	SessionID1 string `json:"session_id1"`
	SessionID2 string `json:"session_id2"`
}

// CompareSessions diffs two sessions and scores their similarity.
// POST /api/sessions/compare
func (h *Handler) CompareSessions(c echo.Context) error {
	var req compareRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.SessionID1 == "" {
		return writeError(c, domain.NewValidationError("session_id1", "must not be empty"))
	}
	if req.SessionID2 == "" {
		return writeError(c, domain.NewValidationError("session_id2", "must not be empty"))
	}

	result, err := h.service.Compare(c.Request().Context(), req.SessionID1, req.SessionID2)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}
