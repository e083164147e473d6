package domain

// GenerationOptions carries the optional per-request engine overrides.
type GenerationOptions struct {
	Model    string `json:"model,omitempty"`
	Speaker  string `json:"speaker,omitempty"`
	TTSModel string `json:"tts_model,omitempty"`
}

// TurnRequest is the input of one turn. Exactly one of Audio or Text is used;
// a non-nil Text skips transcription.
type TurnRequest struct {
	SessionID string
	Mode      SessionMode
	Audio     []byte
	Text      *string
	Options   GenerationOptions
}

// TurnResult is the outcome of a completed turn.
type TurnResult struct {
	SessionID  string `json:"session_id"`
	Transcript string `json:"user_transcript"`
	Reply      string `json:"coach_reply"`
	AudioURL   string `json:"coach_audio_url"`
}

// SessionCreateRequest represents the request to create a session.
type SessionCreateRequest struct {
	Mode     string  `json:"mode"`
	Topic    *string `json:"topic,omitempty"`
	Language *string `json:"language,omitempty"`
	Model    *string `json:"model,omitempty"`
}

// SessionCreateResponse represents the response from creating a session.
type SessionCreateResponse struct {
	SessionID string `json:"session_id"`
}

// TextMessageRequest represents a text turn submitted over HTTP.
type TextMessageRequest struct {
	SessionID string  `json:"session_id"`
	Text      string  `json:"text"`
	Model     *string `json:"model,omitempty"`
	Speaker   *string `json:"speaker,omitempty"`
	TTSModel  *string `json:"tts_model,omitempty"`
}

// ChatHistoryResponse represents the messages of one session.
type ChatHistoryResponse struct {
	SessionID string    `json:"session_id"`
	Messages  []Message `json:"messages"`
}

// SessionsListResponse represents the list of all sessions.
type SessionsListResponse struct {
	Sessions []SessionSummary `json:"sessions"`
}

// ClearSessionsResponse reports how many sessions were removed.
type ClearSessionsResponse struct {
	Count int `json:"count"`
}

// ErrorBody is the structured failure returned by the HTTP surface.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Stage   Stage  `json:"stage,omitempty"`
}

// ErrorResponse wraps ErrorBody.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}
