package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/speechcoach/coach/internal/domain"
)

// CreateSession creates a new session.
// POST /api/session
func (h *Handler) CreateSession(c echo.Context) error {
	var req domain.SessionCreateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	resp, err := h.service.CreateSession(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// ListSessions lists every session with its message aggregates.
// GET /api/sessions/all
func (h *Handler) ListSessions(c echo.Context) error {
	resp, err := h.service.ListSessions(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// UpdateSessionMetadata updates topic, language or model of a session.
// PATCH /api/sessions/:session_id/metadata
func (h *Handler) UpdateSessionMetadata(c echo.Context) error {
	var meta domain.SessionMetadata
	if err := c.Bind(&meta); err != nil {
		return badRequest(c, "invalid request body")
	}

	session, err := h.service.UpdateSessionMetadata(c.Request().Context(), c.Param("session_id"), meta)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

// DeleteSession deletes a session and its messages.
// DELETE /api/sessions/:session_id
func (h *Handler) DeleteSession(c echo.Context) error {
	sessionID := c.Param("session_id")
	if err := h.service.DeleteSession(c.Request().Context(), sessionID); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":     "deleted",
		"session_id": sessionID,
	})
}

// ClearAllSessions deletes every session.
// DELETE /api/sessions/clear-all
func (h *Handler) ClearAllSessions(c echo.Context) error {
	n, err := h.service.ClearAllSessions(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, domain.ClearSessionsResponse{Count: n})
}

// GetChatHistory returns the messages of a session.
// GET /api/chat/history?session_id=
func (h *Handler) GetChatHistory(c echo.Context) error {
	sessionID := c.QueryParam("session_id")
	if sessionID == "" {
		return badRequest(c, "session_id is required")
	}

	resp, err := h.service.GetHistory(c.Request().Context(), sessionID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}
