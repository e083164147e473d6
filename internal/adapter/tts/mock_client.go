package tts

import (
	"context"
	"time"

	"github.com/speechcoach/coach/internal/catalog"
)

// MockClient returns silence sized to the text.
type MockClient struct{}

// NewMockClient creates a new mock synthesis client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Synthesize(ctx context.Context, text string, voice catalog.Voice) ([]byte, error) {
	d := time.Duration(len(text)) * 50 * time.Millisecond
	if d < 200*time.Millisecond {
		d = 200 * time.Millisecond
	}
	return SilentWAV(d, 16000), nil
}
