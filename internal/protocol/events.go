// Package protocol defines the websocket message protocol between clients and the coach.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Event types from the coach to the client.
const (
	TypeTranscription = "transcription"
	TypeStatus        = "status"
	TypeTextResponse  = "text_response"
	TypeAudioURL      = "audio_url"
	TypeError         = "error"
)

// Message types from the client to the coach.
const (
	TypeConfig = "config"
)

// State is the coach's progress within a turn.
type State string

const (
	StateThinking State = "thinking"
	StateSpeaking State = "speaking"
	StateIdle     State = "idle"
)

// Event is a closed set of outbound notifications. Only the types in this
// package implement it.
type Event interface {
	Type() string
	event()
}

// TranscriptionEvent carries the transcript of the user's audio.
type TranscriptionEvent struct {
	Text string `json:"text"`
}

// StatusEvent reports a turn state change.
type StatusEvent struct {
	Status State `json:"status" jsonschema:"enum=thinking,enum=speaking,enum=idle"`
}

// TextResponseEvent carries the coach's reply text.
type TextResponseEvent struct {
	Text string `json:"text"`
}

// AudioURLEvent carries the resolvable reference of the synthesized reply.
type AudioURLEvent struct {
	URL string `json:"url"`
}

// ErrorEvent reports that the current turn was abandoned.
type ErrorEvent struct {
	Message string `json:"message"`
}

func (TranscriptionEvent) Type() string { return TypeTranscription }
func (StatusEvent) Type() string        { return TypeStatus }
func (TextResponseEvent) Type() string  { return TypeTextResponse }
func (AudioURLEvent) Type() string      { return TypeAudioURL }
func (ErrorEvent) Type() string         { return TypeError }

func (TranscriptionEvent) event() {}
func (StatusEvent) event()        {}
func (TextResponseEvent) event()  {}
func (AudioURLEvent) event()      {}
func (ErrorEvent) event()         {}

// Transcription creates a transcription event.
func Transcription(text string) Event { return TranscriptionEvent{Text: text} }

// Status creates a status event.
func Status(state State) Event { return StatusEvent{Status: state} }

// TextResponse creates a text_response event.
func TextResponse(text string) Event { return TextResponseEvent{Text: text} }

// AudioURL creates an audio_url event.
func AudioURL(url string) Event { return AudioURLEvent{URL: url} }

// Error creates an error event.
func Error(message string) Event { return ErrorEvent{Message: message} }

// Encode renders an event as the JSON object sent over the wire, with its
// "type" discriminator.
func Encode(ev Event) ([]byte, error) {
	switch e := ev.(type) {
	case TranscriptionEvent:
		return json.Marshal(struct {
			Type string `json:"type"`
			TranscriptionEvent
		}{TypeTranscription, e})
	case StatusEvent:
		return json.Marshal(struct {
			Type string `json:"type"`
			StatusEvent
		}{TypeStatus, e})
	case TextResponseEvent:
		return json.Marshal(struct {
			Type string `json:"type"`
			TextResponseEvent
		}{TypeTextResponse, e})
	case AudioURLEvent:
		return json.Marshal(struct {
			Type string `json:"type"`
			AudioURLEvent
		}{TypeAudioURL, e})
	case ErrorEvent:
		return json.Marshal(struct {
			Type string `json:"type"`
			ErrorEvent
		}{TypeError, e})
	}
	return nil, fmt.Errorf("unknown event %T", ev)
}

// Decode parses a wire event back into its typed form.
func Decode(data []byte) (Event, error) {
	var base struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("invalid event: %w", err)
	}

	var (
		ev  Event
		err error
	)
	switch base.Type {
	case TypeTranscription:
		var e TranscriptionEvent
		err = json.Unmarshal(data, &e)
		ev = e
	case TypeStatus:
		var e StatusEvent
		err = json.Unmarshal(data, &e)
		ev = e
	case TypeTextResponse:
		var e TextResponseEvent
		err = json.Unmarshal(data, &e)
		ev = e
	case TypeAudioURL:
		var e AudioURLEvent
		err = json.Unmarshal(data, &e)
		ev = e
	case TypeError:
		var e ErrorEvent
		err = json.Unmarshal(data, &e)
		ev = e
	default:
		return nil, fmt.Errorf("unknown event type %q", base.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid %s event: %w", base.Type, err)
	}
	return ev, nil
}

// ConfigMessage is sent by the client to change the engine overrides used by
// subsequent turns on the same connection.
type ConfigMessage struct {
	Type     string  `json:"type"`
	Model    *string `json:"model,omitempty"`
	Speaker  *string `json:"speaker,omitempty"`
	TTSModel *string `json:"tts_model,omitempty"`
}
