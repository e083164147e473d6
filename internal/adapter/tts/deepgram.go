package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
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

const deepgramSpeakURL = "https://api.deepgram.com/v1/speak"

// DeepgramClient synthesizes through Deepgram's speak REST API.
type DeepgramClient struct {
	apiKey       string
	speakURL     string
	defaultModel string
	httpClient   *http.Client
}

// NewDeepgramClient creates a Deepgram speak client. Voices whose model is
// not an aura voice are spoken with defaultModel.
func NewDeepgramClient(apiKey, defaultModel string, timeout time.Duration) *DeepgramClient {
	return &DeepgramClient{
		apiKey:       apiKey,
		speakURL:     deepgramSpeakURL,
		defaultModel: defaultModel,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (c *DeepgramClient) Synthesize(ctx context.Context, text string, voice catalog.Voice) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "deepgram synthesize")
	defer span.End()

	if c.apiKey == "" {
		return nil, errors.New("deepgram api key not configured")
	}
	model := c.defaultModel
	if strings.HasPrefix(voice.Model, "aura") {
		model = voice.Model
	}
	span.SetAttributes(attribute.String("request.model", model), attribute.Int("request.text_length", len(text)))

	q := url.Values{}
	q.Set("model", model)
	q.Set("encoding", "linear16")
	q.Set("container", "wav")
	body, err := json.Marshal(struct {
		Text string `json:"text"`
	}{Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.speakURL+"?"+q.Encode(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+c.apiKey)

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
		return nil, fmt.Errorf("deepgram speak error [%d]: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return data, nil
}
