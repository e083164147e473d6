package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/speechcoach/coach/internal/domain"
)

// CreateSession creates a session with a fresh id.
func (s *Service) CreateSession(ctx context.Context, req domain.SessionCreateRequest) (*domain.SessionCreateResponse, error) {
	mode := domain.SessionMode(req.Mode)
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: mode must be 'call' or 'chat'", domain.ErrInvalidInput)
	}

	session := &domain.Session{
		SessionID: uuid.NewString(),
		Mode:      mode,
		CreatedAt: time.Now().UTC(),
		Model:     req.Model,
	}
	if req.Topic != nil {
		session.Topic = *req.Topic
	}
	if req.Language != nil {
		session.Language = *req.Language
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("%w: failed to create session: %v", domain.ErrStorage, err)
	}
	logger.InfoContext(ctx, "session created", "session_id", session.SessionID, "mode", mode)
	return &domain.SessionCreateResponse{SessionID: session.SessionID}, nil
}

// GetHistory returns every message of an existing session in log order.
func (s *Service) GetHistory(ctx context.Context, sessionID string) (*domain.ChatHistoryResponse, error) {
	exists, err := s.store.SessionExists(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownSession, sessionID)
	}
	messages, err := s.store.GetMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get messages: %v", domain.ErrStorage, err)
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return &domain.ChatHistoryResponse{SessionID: sessionID, Messages: messages}, nil
}

// ListSessions returns all sessions with their message aggregates.
func (s *Service) ListSessions(ctx context.Context) (*domain.SessionsListResponse, error) {
	sessions, err := s.store.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list sessions: %v", domain.ErrStorage, err)
	}
	return &domain.SessionsListResponse{Sessions: sessions}, nil
}

// UpdateSessionMetadata changes the topic, language or preferred model of a session.
func (s *Service) UpdateSessionMetadata(ctx context.Context, sessionID string, meta domain.SessionMetadata) (*domain.Session, error) {
	if err := s.store.UpdateSessionMetadata(ctx, sessionID, meta); err != nil {
		return nil, wrapStoreError(err)
	}
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownSession, sessionID)
	}
	return session, nil
}

// DeleteSession removes a session with its messages and, best effort, the
// audio they reference.
func (s *Service) DeleteSession(ctx context.Context, sessionID string) error {
	messages, err := s.store.GetMessages(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	if err := s.store.DeleteSession(ctx, sessionID); err != nil {
		return wrapStoreError(err)
	}
	s.deleteArtifacts(ctx, messages)
	logger.InfoContext(ctx, "session deleted", "session_id", sessionID, "messages", len(messages))
	return nil
}

// ClearAllSessions removes every session and returns how many there were.
func (s *Service) ClearAllSessions(ctx context.Context) (int, error) {
	sessions, err := s.store.ListSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	var messages []domain.Message
	for _, session := range sessions {
		m, err := s.store.GetMessages(ctx, session.SessionID)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", domain.ErrStorage, err)
		}
		messages = append(messages, m...)
	}

	n, err := s.store.DeleteAllSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to clear sessions: %v", domain.ErrStorage, err)
	}
	s.deleteArtifacts(ctx, messages)
	logger.InfoContext(ctx, "all sessions cleared", "count", n)
	return n, nil
}

func (s *Service) deleteArtifacts(ctx context.Context, messages []domain.Message) {
	for _, m := range messages {
		if m.AudioPath == nil || *m.AudioPath == "" {
			continue
		}
		key := path.Base(*m.AudioPath)
		if err := s.artifacts.Delete(ctx, key); err != nil {
			logger.WarnContext(ctx, "failed to delete artifact", "session_id", m.SessionID, "key", key, "error", err)
		}
	}
}

func wrapStoreError(err error) error {
	if errors.Is(err, domain.ErrUnknownSession) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrStorage, err)
}
