// Package v1 provides the coach's request/response HTTP API.
package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/speechcoach/coach/internal/domain"
	"github.com/speechcoach/coach/internal/hub"
	"github.com/speechcoach/coach/internal/protocol"
	"github.com/speechcoach/coach/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
	hub     *hub.Hub
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service, h *hub.Hub) *Handler {
	return &Handler{
		service: service,
		hub:     h,
	}
}

// RegisterRoutes registers the API routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Sessions
	e.POST("/api/session", h.CreateSession)
	e.GET("/api/sessions/all", h.ListSessions)
	e.PATCH("/api/sessions/:session_id/metadata", h.UpdateSessionMetadata)
	e.DELETE("/api/sessions/clear-all", h.ClearAllSessions)
	e.DELETE("/api/sessions/:session_id", h.DeleteSession)
	e.GET("/api/chat/history", h.GetChatHistory)

	// Turns
	e.POST("/api/process_audio", h.ProcessAudio)
	e.POST("/api/send_text", h.SendText)

	// Catalogs
	e.GET("/api/models", h.GetModels)
	e.GET("/api/schema/events", h.GetEventSchemas)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "healthy",
		"connections": h.hub.GetConnectionCount(),
		"sessions":    h.hub.GetSessionCount(),
	})
}

// GetEventSchemas returns the JSON schema of every websocket message.
// GET /api/schema/events
func (h *Handler) GetEventSchemas(c echo.Context) error {
	return c.JSON(http.StatusOK, protocol.Schemas())
}

// writeError maps err to a status code and the structured error body.
func writeError(c echo.Context, err error) error {
	body := domain.ErrorBody{Code: domain.Code(err), Message: err.Error()}
	var se *domain.StageError
	if errors.As(err, &se) {
		body.Stage = se.Stage
	}
	return c.JSON(statusFor(err), domain.ErrorResponse{Error: body})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnknownSession):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrTranscription),
		errors.Is(err, domain.ErrGeneration),
		errors.Is(err, domain.ErrSynthesis):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: domain.ErrorBody{
		Code:    domain.Code(domain.ErrInvalidInput),
		Message: msg,
	}})
}
