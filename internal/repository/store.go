// Package repository defines the conversation log and its sqlite implementation.
package repository

import (
	"context"

	"github.com/speechcoach/coach/internal/domain"
)

// Store defines the interface for conversation persistence.
type Store interface {
	// Session operations
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
	SessionExists(ctx context.Context, sessionID string) (bool, error)
	GetOrCreateSession(ctx context.Context, sessionID string, mode domain.SessionMode) (*domain.Session, bool, error)
	UpdateSessionMetadata(ctx context.Context, sessionID string, meta domain.SessionMetadata) error
	ListSessions(ctx context.Context) ([]domain.SessionSummary, error)
	DeleteSession(ctx context.Context, sessionID string) error
	DeleteAllSessions(ctx context.Context) (int, error)

	// Message operations
	AppendMessage(ctx context.Context, message *domain.Message) error
	GetMessages(ctx context.Context, sessionID string) ([]domain.Message, error)
	GetMessagesBefore(ctx context.Context, sessionID string, beforeID int64) ([]domain.Message, error)

	// Lifecycle
	Close() error
}
