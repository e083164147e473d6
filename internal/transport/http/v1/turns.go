package v1

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/speechcoach/coach/internal/domain"
	"github.com/speechcoach/coach/internal/service"
)

// ProcessAudio runs one turn on an uploaded audio file.
// POST /api/process_audio (multipart: session_id, audio, model, speaker, tts_model, call_mode)
func (h *Handler) ProcessAudio(c echo.Context) error {
	sessionID := c.FormValue("session_id")
	if sessionID == "" {
		return badRequest(c, "session_id is required")
	}
	file, err := c.FormFile("audio")
	if err != nil {
		return badRequest(c, "audio file is required")
	}
	src, err := file.Open()
	if err != nil {
		return badRequest(c, "failed to open audio file")
	}
	defer src.Close()
	audio, err := io.ReadAll(src)
	if err != nil {
		return badRequest(c, "failed to read audio file")
	}

	callMode, _ := strconv.ParseBool(c.FormValue("call_mode"))
	logger.InfoContext(c.Request().Context(), "process_audio",
		"session_id", sessionID,
		"filename", file.Filename,
		"bytes", len(audio),
		"call_mode", callMode)

	result, err := h.service.RunTurn(turnContext(c), domain.TurnRequest{
		SessionID: sessionID,
		Mode:      domain.SessionModeCall,
		Audio:     audio,
		Options: domain.GenerationOptions{
			Model:    c.FormValue("model"),
			Speaker:  c.FormValue("speaker"),
			TTSModel: c.FormValue("tts_model"),
		},
	}, service.Discard)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// SendText runs one turn on typed text, skipping transcription.
// POST /api/send_text
func (h *Handler) SendText(c echo.Context) error {
	var req domain.TextMessageRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.SessionID == "" {
		return badRequest(c, "session_id is required")
	}

	result, err := h.service.RunTurn(turnContext(c), domain.TurnRequest{
		SessionID: req.SessionID,
		Mode:      domain.SessionModeChat,
		Text:      domain.StringPtr(req.Text),
		Options: domain.GenerationOptions{
			Model:    deref(req.Model),
			Speaker:  deref(req.Speaker),
			TTSModel: deref(req.TTSModel),
		},
	}, service.Discard)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// turnContext keeps request values for tracing but not its cancellation. A
// turn that has started runs to completion even if the client goes away.
func turnContext(c echo.Context) context.Context {
	return context.WithoutCancel(c.Request().Context())
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
