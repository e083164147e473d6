package stt

import "context"

// MockClient returns a fixed transcript.
type MockClient struct {
	Text string
}

// NewMockClient creates a new mock transcription client.
func NewMockClient() *MockClient {
	return &MockClient{Text: "This is a mock transcription."}
}

func (m *MockClient) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", nil
	}
	logger.DebugContext(ctx, "mock transcription", "audio_bytes", len(audio))
	return m.Text, nil
}
