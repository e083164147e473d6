package tts

import (
	"fmt"

	"github.com/speechcoach/coach/internal/config"
)

// Backends.
const (
	BackendCoqui    = "coqui"
	BackendDeepgram = "deepgram"
)

// NewSynthesizer creates the synthesis client selected by cfg.
// COACH_MODE=MOCK always selects the mock client.
func NewSynthesizer(cfg *config.Config) (Synthesizer, error) {
	if cfg.Mode == config.ModeMock {
		logger.Info("COACH_MODE=MOCK detected, using mock synthesis client")
		return NewMockClient(), nil
	}

	switch cfg.TTSBackend {
	case BackendCoqui, "":
		return NewCoquiClient(cfg.TTSURL, cfg.EngineHTTPTimeout), nil
	case BackendDeepgram:
		if cfg.DeepgramAPIKey == "" {
			return nil, fmt.Errorf("TTS_BACKEND=deepgram requires DEEPGRAM_API_KEY")
		}
		return NewDeepgramClient(cfg.DeepgramAPIKey, cfg.DeepgramTTSModel, cfg.EngineHTTPTimeout), nil
	}
	return nil, fmt.Errorf("unknown TTS backend %q", cfg.TTSBackend)
}
