package tts

import (
	"strings"
	"sync"

	"github.com/speechcoach/coach/internal/catalog"
)

// voiceHandle is the per-model state needed to call a synthesis server.
type voiceHandle struct {
	model    string
	fullName string
	endpoint string
	language string
}

// voiceRegistry lazily creates one handle per voice model.
type voiceRegistry struct {
	mu      sync.Mutex
	handles map[string]*voiceHandle
	create  func(catalog.Voice) *voiceHandle
}

func newVoiceRegistry(create func(catalog.Voice) *voiceHandle) *voiceRegistry {
	return &voiceRegistry{handles: make(map[string]*voiceHandle), create: create}
}

// Get returns the handle for v.Model, creating it on first use.
func (r *voiceRegistry) Get(v catalog.Voice) *voiceHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.handles[v.Model]; ok {
		return h
	}
	h := r.create(v)
	r.handles[v.Model] = h
	logger.Info("voice loaded", "model", h.model, "full_model_name", h.fullName, "endpoint", h.endpoint)
	return h
}

// Len returns the number of loaded voices.
func (r *voiceRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

func trimURL(u string) string {
	return strings.TrimSuffix(u, "/")
}
