package service

import (
	"context"

	"github.com/speechcoach/coach/internal/domain"
)

// BuildChatContext maps logged messages to generation roles and appends the
// transcript as the final user entry. Messages without text are skipped.
func BuildChatContext(messages []domain.Message, transcript string) []domain.ChatMessage {
	out := make([]domain.ChatMessage, 0, len(messages)+1)
	for _, m := range messages {
		if m.Text == nil {
			continue
		}
		role := domain.RoleUser
		if m.Sender == domain.SenderCoach {
			role = domain.RoleAssistant
		}
		out = append(out, domain.ChatMessage{Role: role, Content: *m.Text})
	}
	return append(out, domain.ChatMessage{Role: domain.RoleUser, Content: transcript})
}

// buildContext reads the messages logged before the current user message.
func (s *Service) buildContext(ctx context.Context, sessionID string, userMessageID int64, transcript string) ([]domain.ChatMessage, error) {
	history, err := s.store.GetMessagesBefore(ctx, sessionID, userMessageID)
	if err != nil {
		return nil, err
	}
	return BuildChatContext(history, transcript), nil
}
