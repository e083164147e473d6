package stt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
)

const deepgramListenURL = "wss://api.deepgram.com/v1/listen"

// Live response types not needed elsewhere.
const (
	deepgramMetadata = "Metadata"
	deepgramError    = "Error"
)

// DeepgramClient transcribes a whole audio unit over Deepgram's live
// websocket: it sends the audio, closes the stream and joins the final
// transcripts.
type DeepgramClient struct {
	apiKey   string
	listen   string
	model    string
	language string
	dialer   *websocket.Dialer
}

// NewDeepgramClient creates a Deepgram transcription client.
func NewDeepgramClient(apiKey string) *DeepgramClient {
	return &DeepgramClient{
		apiKey:   apiKey,
		listen:   deepgramListenURL,
		model:    "nova-3",
		language: "en-US",
		dialer:   websocket.DefaultDialer,
	}
}

func (c *DeepgramClient) Transcribe(ctx context.Context, audio []byte) (string, error) {
	ctx, span := tracer.Start(ctx, "deepgram transcribe")
	defer span.End()
	span.SetAttributes(attribute.String("request.model", c.model), attribute.Int("request.audio_bytes", len(audio)))

	if c.apiKey == "" {
		return "", errors.New("deepgram api key not configured")
	}

	listenURL, err := url.Parse(c.listen)
	if err != nil {
		return "", fmt.Errorf("invalid listen url: %w", err)
	}
	q := listenURL.Query()
	q.Set("model", c.model)
	q.Set("language", c.language)
	q.Set("smart_format", "true")
	listenURL.RawQuery = q.Encode()

	conn, _, err := c.dialer.DialContext(ctx, listenURL.String(), http.Header{"Authorization": {"Token " + c.apiKey}})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}
	defer conn.Close()

	// Unblock the read loop if the caller gives up.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
		return "", fmt.Errorf("failed to write to deepgram: %w", err)
	}
	if err := conn.WriteJSON(struct {
		Type string `json:"type"`
	}{Type: string(api.TypeCloseStreamResponse)}); err != nil {
		return "", fmt.Errorf("failed to close deepgram stream: %w", err)
	}

	var parts []string
	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				break
			}
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", fmt.Errorf("failed to read deepgram message: %w", err)
		}
		if msgType == websocket.BinaryMessage {
			continue
		}

		var parsed struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(msg, &parsed); err != nil {
			logger.WarnContext(ctx, "failed to unmarshal deepgram message", "error", err)
			continue
		}

		switch parsed.Type {
		case string(api.TypeMessageResponse):
			var resp api.MessageResponse
			if err := json.Unmarshal(msg, &resp); err != nil {
				logger.WarnContext(ctx, "failed to unmarshal deepgram transcript", "error", err)
				continue
			}
			if resp.IsFinal && len(resp.Channel.Alternatives) > 0 {
				if t := strings.TrimSpace(resp.Channel.Alternatives[0].Transcript); t != "" {
					parts = append(parts, t)
				}
			}
		case deepgramMetadata:
			// Deepgram sends metadata last, right before closing.
			return strings.Join(parts, " "), nil
		case deepgramError:
			return "", fmt.Errorf("deepgram error: %s", string(msg))
		}
	}
	return strings.Join(parts, " "), nil
}
