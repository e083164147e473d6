package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/speechcoach/coach/internal/catalog"
)

// CoquiClient calls Coqui TTS servers. Voice profiles with their own
// endpoint are served from there; the rest from the default server.
type CoquiClient struct {
	httpClient *http.Client
	voices     *voiceRegistry
}

// NewCoquiClient creates a client whose default server is baseURL.
func NewCoquiClient(baseURL string, timeout time.Duration) *CoquiClient {
	base := trimURL(baseURL)
	return &CoquiClient{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		voices: newVoiceRegistry(func(v catalog.Voice) *voiceHandle {
			endpoint := base
			if v.Endpoint != "" {
				endpoint = trimURL(v.Endpoint)
			}
			return &voiceHandle{model: v.Model, fullName: v.FullModelName, endpoint: endpoint, language: v.Language}
		}),
	}
}

// Synthesize requests GET /api/tts from the voice's server.
func (c *CoquiClient) Synthesize(ctx context.Context, text string, voice catalog.Voice) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "coqui synthesize")
	defer span.End()

	h := c.voices.Get(voice)
	span.SetAttributes(
		attribute.String("request.model", h.model),
		attribute.String("request.speaker", voice.Speaker),
		attribute.Int("request.text_length", len(text)),
	)

	q := url.Values{}
	q.Set("text", text)
	if voice.Speaker != "" {
		q.Set("speaker_id", voice.Speaker)
	}
	if h.language != "" {
		q.Set("language_id", h.language)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.endpoint+"/api/tts?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	logger.InfoContext(ctx, "synthesizing", "model", h.model, "len", len(text), "speaker", voice.Speaker, "lang", h.language)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tts server error [%d]: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("tts server returned no audio")
	}
	return data, nil
}
