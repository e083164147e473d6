package llm

import "github.com/speechcoach/coach/internal/config"

// NewGenerator creates a generation client based on COACH_MODE.
// If COACH_MODE=MOCK, returns a MockClient; otherwise returns an Ollama client.
func NewGenerator(cfg *config.Config) Generator {
	if cfg.Mode == config.ModeMock {
		logger.Info("COACH_MODE=MOCK detected, using mock generation client")
		return NewMockClient()
	}
	return NewOllamaClient(cfg.OllamaURL, cfg.EngineHTTPTimeout)
}
