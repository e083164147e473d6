// Package stt provides speech-to-text engine clients.
package stt

import "context"

// Transcriber turns WAV audio into text. An empty transcript is a valid result.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Ensure clients implement Transcriber.
var (
	_ Transcriber = (*WhisperClient)(nil)
	_ Transcriber = (*DeepgramClient)(nil)
	_ Transcriber = (*MockClient)(nil)
)
