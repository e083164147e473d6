// Package tts provides speech synthesis engine clients.
package tts

import (
	"context"

	"github.com/speechcoach/coach/internal/catalog"
)

// Synthesizer renders text as WAV audio in the given voice.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, voice catalog.Voice) ([]byte, error)
}

// Ensure clients implement Synthesizer.
var (
	_ Synthesizer = (*CoquiClient)(nil)
	_ Synthesizer = (*DeepgramClient)(nil)
	_ Synthesizer = (*MockClient)(nil)
)
