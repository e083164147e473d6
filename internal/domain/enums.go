// Package domain defines the core domain models for the coach.
package domain

// SessionMode represents how a session was started.
type SessionMode string

const (
	SessionModeCall SessionMode = "call"
	SessionModeChat SessionMode = "chat"
)

// Valid reports whether the mode is one of the known modes.
func (m SessionMode) Valid() bool {
	return m == SessionModeCall || m == SessionModeChat
}

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser  Sender = "user"
	SenderCoach Sender = "coach"
)

// Chat roles understood by the generation engine.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Stage names a step of the turn pipeline.
type Stage string

const (
	StageBootstrap  Stage = "bootstrap"
	StageTranscribe Stage = "transcribe"
	StageContext    Stage = "context"
	StageGenerate   Stage = "generate"
	StageSynthesize Stage = "synthesize"
	StagePersist    Stage = "persist"
)
