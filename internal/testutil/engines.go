package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/speechcoach/coach/internal/catalog"
	"github.com/speechcoach/coach/internal/domain"
)

// StubTranscriber returns Text, or Err when set.
type StubTranscriber struct {
	Text string
	Err  error
}

func (s *StubTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	return s.Text, nil
}

// StubGenerator returns Reply, or Err when set, and records each call.
// Delay holds every call open for that long.
type StubGenerator struct {
	Reply string
	Err   error
	Delay time.Duration

	mu        sync.Mutex
	contexts  [][]domain.ChatMessage
	models    []string
	active    int
	maxActive int
	finished  int
}

func (s *StubGenerator) Generate(ctx context.Context, messages []domain.ChatMessage, model string) (string, error) {
	s.mu.Lock()
	s.contexts = append(s.contexts, append([]domain.ChatMessage(nil), messages...))
	s.models = append(s.models, model)
	s.active++
	if s.active > s.maxActive {
		s.maxActive = s.active
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.active--
		s.finished++
		s.mu.Unlock()
	}()

	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if s.Err != nil {
		return "", s.Err
	}
	return s.Reply, nil
}

// MaxConcurrent returns the most calls that were running at once.
func (s *StubGenerator) MaxConcurrent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxActive
}

// Finished returns how many calls have returned.
func (s *StubGenerator) Finished() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

// LastContext returns the messages of the most recent call.
func (s *StubGenerator) LastContext() []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.contexts) == 0 {
		return nil
	}
	return s.contexts[len(s.contexts)-1]
}

// Models returns the model of every call in order.
func (s *StubGenerator) Models() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.models...)
}

// Calls returns how many times Generate ran.
func (s *StubGenerator) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.models)
}

// StubSynthesizer returns Audio, or Err when set, and records each voice.
type StubSynthesizer struct {
	Audio []byte
	Err   error

	mu     sync.Mutex
	voices []catalog.Voice
}

func (s *StubSynthesizer) Synthesize(ctx context.Context, text string, voice catalog.Voice) ([]byte, error) {
	s.mu.Lock()
	s.voices = append(s.voices, voice)
	s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Audio, nil
}

// Voices returns the voice of every call in order.
func (s *StubSynthesizer) Voices() []catalog.Voice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]catalog.Voice(nil), s.voices...)
}

// NewTestResolver returns a resolver over a two-tier catalog and two voices.
// The defaults are "small:1b" and voice "vits" with speaker "p225".
func NewTestResolver(t *testing.T) *catalog.Resolver {
	t.Helper()

	eight := 8.0
	llm := &catalog.LLMCatalog{HardwareTiers: []catalog.HardwareTier{
		{TierID: "entry", MinRAMGB: 0, MaxRAMGB: &eight, Models: []catalog.LLMModel{
			{Name: "Small", OllamaTag: "small:1b", Role: "coach", IsPrimary: true},
			{Name: "Tiny", OllamaTag: "tiny:0.5b", Role: "fallback"},
		}},
		{TierID: "big", MinRAMGB: 8, Models: []catalog.LLMModel{
			{Name: "Big", OllamaTag: "big:8b", Role: "coach", IsPrimary: true},
		}},
	}}
	voices := catalog.VoiceCatalog{
		{Model: "vits", FullModelName: "tts_models/en/vctk/vits", Language: "en", Speakers: []string{"p225", "p226"}, Default: true},
		{Model: "glow_tts", FullModelName: "tts_models/en/ljspeech/glow-tts", Language: "en"},
	}
	r, err := catalog.NewResolver(llm, voices, 4)
	if err != nil {
		t.Fatalf("failed to create resolver: %v", err)
	}
	return r
}
