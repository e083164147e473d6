package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/speechcoach/coach/internal/domain"
)

// errModelNotFound is returned by show for models the server does not have.
var errModelNotFound = errors.New("model not found")

// OllamaClient is the Ollama API client.
type OllamaClient struct {
	baseURL    string
	httpClient *http.Client
	models     *modelRegistry
}

// NewOllamaClient creates a new Ollama client.
func NewOllamaClient(baseURL string, timeout time.Duration) *OllamaClient {
	c := &OllamaClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport,
				otelhttp.WithSpanNameFormatter(func(operationName string, request *http.Request) string {
					return operationName + " " + request.URL.Path
				}),
			),
		},
	}
	c.models = newModelRegistry(c.ensureModel)
	return c
}

type chatRequest struct {
	Model    string               `json:"model"`
	Messages []domain.ChatMessage `json:"messages"`
	Stream   bool                 `json:"stream"`
}

type chatResponse struct {
	Model   string             `json:"model"`
	Message domain.ChatMessage `json:"message"`
	Done    bool               `json:"done"`
}

type modelRequest struct {
	Model  string `json:"model"`
	Stream bool   `json:"stream,omitempty"`
}

// PullProgress is one line of the /api/pull progress stream.
type PullProgress struct {
	Status    string `json:"status"`
	Digest    string `json:"digest,omitempty"`
	Total     int64  `json:"total,omitempty"`
	Completed int64  `json:"completed,omitempty"`
	Error     string `json:"error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Generate ensures model is present and asks it for the next reply.
func (c *OllamaClient) Generate(ctx context.Context, messages []domain.ChatMessage, model string) (string, error) {
	ctx, span := tracer.Start(ctx, "ollama generate")
	defer span.End()
	span.SetAttributes(attribute.String("request.model", model), attribute.Int("request.messages", len(messages)))

	if err := c.models.Ensure(ctx, model); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("ensure model %s: %w", model, err)
	}

	logger.InfoContext(ctx, "calling ollama", "model", model, "messages", len(messages))
	var resp chatResponse
	if err := c.postJSON(ctx, "/api/chat", chatRequest{Model: model, Messages: messages}, &resp); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("ollama chat failed: %w", err)
	}
	return resp.Message.Content, nil
}

func (c *OllamaClient) ensureModel(ctx context.Context, model string) error {
	err := c.show(ctx, model)
	if err == nil {
		return nil
	}
	if !errors.Is(err, errModelNotFound) {
		return err
	}
	logger.InfoContext(ctx, "pulling ollama model", "model", model)
	if err := c.Pull(ctx, model, nil); err != nil {
		return err
	}
	logger.InfoContext(ctx, "pull completed", "model", model)
	return nil
}

func (c *OllamaClient) show(ctx context.Context, model string) error {
	err := c.postJSON(ctx, "/api/show", modelRequest{Model: model}, nil)
	var se *statusError
	if errors.As(err, &se) && se.code == http.StatusNotFound {
		return fmt.Errorf("%w: %s", errModelNotFound, model)
	}
	return err
}

// Pull downloads model, calling progress for every status line. With a nil
// progress function, status changes are logged.
func (c *OllamaClient) Pull(ctx context.Context, model string, progress func(PullProgress)) error {
	body, err := json.Marshal(modelRequest{Model: model, Stream: true})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/pull", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	// Pulls can outlast the engine timeout; rely on ctx instead.
	client := *c.httpClient
	client.Timeout = 0
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return readStatusError(resp)
	}

	if progress == nil {
		progress = logProgress(ctx, model)
	}
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var p PullProgress
		if err := json.Unmarshal(line, &p); err != nil {
			continue
		}
		if p.Error != "" {
			return fmt.Errorf("pull %s: %s", model, p.Error)
		}
		progress(p)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read pull stream: %w", err)
	}
	return nil
}

func logProgress(ctx context.Context, model string) func(PullProgress) {
	lastStatus := ""
	lastPct := -1
	return func(p PullProgress) {
		if p.Total > 0 {
			pct := int(p.Completed * 100 / p.Total)
			if pct/10 != lastPct/10 {
				logger.InfoContext(ctx, "pulling", "model", model, "status", p.Status, "percent", pct)
				lastPct = pct
			}
			return
		}
		if p.Status != lastStatus {
			logger.InfoContext(ctx, "pulling", "model", model, "status", p.Status)
			lastStatus = p.Status
		}
	}
}

type statusError struct {
	code int
	msg  string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("ollama API error [%d]: %s", e.code, e.msg)
}

func readStatusError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error != "" {
		return &statusError{code: resp.StatusCode, msg: er.Error}
	}
	return &statusError{code: resp.StatusCode, msg: strings.TrimSpace(string(body))}
}

func (c *OllamaClient) postJSON(ctx context.Context, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readStatusError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
