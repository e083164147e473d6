package stt

import (
	"fmt"

	"github.com/speechcoach/coach/internal/config"
)

// Backends.
const (
	BackendWhisper  = "whisper"
	BackendDeepgram = "deepgram"
)

// NewTranscriber creates the transcription client selected by cfg.
// COACH_MODE=MOCK always selects the mock client.
func NewTranscriber(cfg *config.Config) (Transcriber, error) {
	if cfg.Mode == config.ModeMock {
		logger.Info("COACH_MODE=MOCK detected, using mock transcription client")
		return NewMockClient(), nil
	}

	switch cfg.STTBackend {
	case BackendWhisper, "":
		return NewWhisperClient(cfg.WhisperURL, cfg.WhisperModel, cfg.EngineHTTPTimeout), nil
	case BackendDeepgram:
		if cfg.DeepgramAPIKey == "" {
			return nil, fmt.Errorf("STT_BACKEND=deepgram requires DEEPGRAM_API_KEY")
		}
		return NewDeepgramClient(cfg.DeepgramAPIKey), nil
	}
	return nil, fmt.Errorf("unknown STT backend %q", cfg.STTBackend)
}
