package domain

import (
	"errors"
	"fmt"
)

// Failure categories. Stage errors unwrap to one of these.
var (
	ErrTranscription  = errors.New("transcription failed")
	ErrGeneration     = errors.New("generation failed")
	ErrSynthesis      = errors.New("synthesis failed")
	ErrStorage        = errors.New("storage failed")
	ErrUnknownSession = errors.New("unknown session")
	ErrTransport      = errors.New("transport failure")
	ErrInvalidInput   = errors.New("invalid input")
)

// StageError records which turn stage failed and for which session.
type StageError struct {
	Stage     Stage
	SessionID string
	Kind      error
	Err       error
}

// NewStageError wraps err as a failure of the given kind at stage.
func NewStageError(stage Stage, sessionID string, kind, err error) *StageError {
	return &StageError{Stage: stage, SessionID: sessionID, Kind: kind, Err: err}
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Stage, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Stage, e.Kind, e.Err)
}

// Unwrap exposes both the failure kind and the underlying cause to errors.Is.
func (e *StageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Code returns a short machine-readable code for the failure kind.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrTranscription):
		return "transcription_failed"
	case errors.Is(err, ErrGeneration):
		return "generation_failed"
	case errors.Is(err, ErrSynthesis):
		return "synthesis_failed"
	case errors.Is(err, ErrStorage):
		return "storage_failed"
	case errors.Is(err, ErrUnknownSession):
		return "unknown_session"
	case errors.Is(err, ErrTransport):
		return "transport_failure"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	}
	return "internal_error"
}
