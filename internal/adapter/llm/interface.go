// Package llm provides clients for the reply generation engine.
package llm

import (
	"context"

	"github.com/speechcoach/coach/internal/domain"
)

// Generator produces the coach's reply to a conversation.
type Generator interface {
	// Generate returns the reply to messages using model. Models that are
	// not available locally are fetched first.
	Generate(ctx context.Context, messages []domain.ChatMessage, model string) (string, error)
}

// Ensure clients implement Generator.
var (
	_ Generator = (*OllamaClient)(nil)
	_ Generator = (*MockClient)(nil)
)
