package llm

import (
	"context"
	"fmt"

	"github.com/speechcoach/coach/internal/domain"
)

// MockClient is a mock implementation of Generator for testing.
type MockClient struct{}

// NewMockClient creates a new mock generation client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Generate echoes the last user message.
func (m *MockClient) Generate(ctx context.Context, messages []domain.ChatMessage, model string) (string, error) {
	var lastUserMessage string
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == domain.RoleUser {
			lastUserMessage = messages[i].Content
			break
		}
	}

	if lastUserMessage == "" {
		return "[MOCK] I didn't catch that. Could you say it again?", nil
	}
	return fmt.Sprintf("[MOCK] You said: %q. Let's keep practicing.", truncate(lastUserMessage, 100)), nil
}

// truncate truncates a string to the given length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
