package domain

import "time"

// Defaults applied to sessions created without metadata.
const (
	DefaultTopic    = "General"
	DefaultLanguage = "en"
	DefaultMode     = SessionModeCall
)

// Session is a persistent conversation identity spanning many turns.
type Session struct {
	SessionID string      `json:"session_id"`
	Mode      SessionMode `json:"mode"`
	CreatedAt time.Time   `json:"created_at"`
	Topic     string      `json:"topic"`
	Language  string      `json:"language"`
	Model     *string     `json:"model,omitempty"`
}

// SessionMetadata holds the mutable fields of a session. Nil fields are left unchanged.
type SessionMetadata struct {
	Topic    *string `json:"topic,omitempty"`
	Language *string `json:"language,omitempty"`
	Model    *string `json:"model,omitempty"`
}

// SessionSummary is a session together with aggregates over its messages.
type SessionSummary struct {
	Session
	MessageCount    int     `json:"message_count"`
	DurationSeconds float64 `json:"duration_seconds"`
	FirstMessage    *string `json:"first_message"`
	LastMessage     *string `json:"last_message"`
}

// Message is one immutable entry of a session's conversation log.
type Message struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Sender    Sender    `json:"sender"`
	Text      *string   `json:"text"`
	AudioPath *string   `json:"audio_path"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatMessage is one role/content entry handed to the generation engine.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
