package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/speechcoach/coach/internal/adapter/tts"
	"github.com/speechcoach/coach/internal/artifact"
	"github.com/speechcoach/coach/internal/config"
	"github.com/speechcoach/coach/internal/domain"
	"github.com/speechcoach/coach/internal/hub"
	"github.com/speechcoach/coach/internal/repository"
	"github.com/speechcoach/coach/internal/service"
	"github.com/speechcoach/coach/internal/testutil"
	"github.com/speechcoach/coach/internal/workerpool"
	"github.com/speechcoach/coach/policy"
)

type testEngines struct {
	stt *testutil.StubTranscriber
	gen *testutil.StubGenerator
	tts *testutil.StubSynthesizer
}

func newTestHandler(t *testing.T) (*Handler, *repository.SQLiteStore, *testEngines) {
	t.Helper()

	db := testutil.NewTestSQLiteStore(t)
	artifacts, err := artifact.NewLocalStore(t.TempDir(), "/output")
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	policyEngine, err := policy.NewDefaultEngine(context.Background())
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	engines := &testEngines{
		stt: &testutil.StubTranscriber{Text: "um so yeah"},
		gen: &testutil.StubGenerator{Reply: "Try pausing instead of filler words."},
		tts: &testutil.StubSynthesizer{Audio: tts.SilentWAV(10*time.Millisecond, 8000)},
	}
	svc := service.New(db, artifacts, service.Engines{
		Transcriber: engines.stt,
		Generator:   engines.gen,
		Synthesizer: engines.tts,
	}, testutil.NewTestResolver(t), workerpool.New(2), policyEngine, nil, &config.Config{AllowImplicitSessions: true})

	return NewHandler(svc, hub.NewHub(nil)), db, engines
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) domain.ErrorBody {
	t.Helper()
	var resp domain.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp.Error
}

func TestCreateSession(t *testing.T) {
	e := echo.New()
	h, db, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/session", `{"mode":"chat","topic":"Interviews"}`), rec)
	if err := h.CreateSession(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp domain.SessionCreateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	session, err := db.GetSession(context.Background(), resp.SessionID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if session == nil || session.Mode != domain.SessionModeChat || session.Topic != "Interviews" {
		t.Fatalf("unexpected session: %+v", session)
	}
}

func TestCreateSessionBadMode(t *testing.T) {
	e := echo.New()
	h, _, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/session", `{"mode":"video"}`), rec)
	if err := h.CreateSession(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Code != "invalid_input" {
		t.Fatalf("unexpected error body: %+v", body)
	}
}

func TestSendText(t *testing.T) {
	e := echo.New()
	h, db, engines := newTestHandler(t)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/send_text", `{"session_id":"chat-1","text":"Hello","model":"custom:1b"}`), rec)
	if err := h.SendText(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result domain.TurnResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Transcript != "Hello" || result.Reply != engines.gen.Reply || result.AudioURL == "" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if got := engines.gen.Models(); len(got) != 1 || got[0] != "custom:1b" {
		t.Fatalf("model override not applied: %v", got)
	}

	session, err := db.GetSession(context.Background(), "chat-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if session == nil || session.Mode != domain.SessionModeChat {
		t.Fatalf("expected implicitly created chat session, got %+v", session)
	}
}

func TestSendTextCompletesAfterClientAbort(t *testing.T) {
	e := echo.New()
	h, db, _ := newTestHandler(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := jsonRequest(http.MethodPost, "/api/send_text", `{"session_id":"gone-1","text":"Hello"}`).WithContext(ctx)
	rec := httptest.NewRecorder()
	if err := h.SendText(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	messages, err := db.GetMessages(context.Background(), "gone-1")
	if err != nil {
		t.Fatalf("GetMessages failed: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected the turn to persist 2 messages, got %d", len(messages))
	}
}

func TestSendTextGenerationFailure(t *testing.T) {
	e := echo.New()
	h, db, engines := newTestHandler(t)
	engines.gen.Err = errors.New("ollama down")

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/send_text", `{"session_id":"s1","text":"Hello"}`), rec)
	if err := h.SendText(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	body := decodeError(t, rec)
	if body.Code != "generation_failed" || body.Stage != domain.StageGenerate {
		t.Fatalf("unexpected error body: %+v", body)
	}

	messages, err := db.GetMessages(context.Background(), "s1")
	if err != nil {
		t.Fatalf("GetMessages failed: %v", err)
	}
	if len(messages) != 1 || messages[0].Sender != domain.SenderUser {
		t.Fatalf("expected only the user message, got %+v", messages)
	}
}

func TestProcessAudio(t *testing.T) {
	e := echo.New()
	h, _, engines := newTestHandler(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("session_id", "call-1")
	_ = w.WriteField("tts_model", "glow_tts")
	_ = w.WriteField("call_mode", "true")
	part, err := w.CreateFormFile("audio", "take.wav")
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	_, _ = part.Write(tts.SilentWAV(50*time.Millisecond, 8000))
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/process_audio", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.ProcessAudio(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result domain.TurnResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.SessionID != "call-1" || result.Transcript != engines.stt.Text {
		t.Fatalf("unexpected result: %+v", result)
	}
	if voices := engines.tts.Voices(); len(voices) != 1 || voices[0].Model != "glow_tts" {
		t.Fatalf("tts model override not applied: %+v", voices)
	}
}

func TestProcessAudioRequiresFile(t *testing.T) {
	e := echo.New()
	h, _, _ := newTestHandler(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("session_id", "call-1")
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/process_audio", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	if err := h.ProcessAudio(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetChatHistory(t *testing.T) {
	e := echo.New()
	h, db, _ := newTestHandler(t)
	ctx := context.Background()

	if err := db.CreateSession(ctx, &domain.Session{SessionID: "s1", Mode: domain.SessionModeChat}); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if err := db.AppendMessage(ctx, &domain.Message{SessionID: "s1", Sender: domain.SenderUser, Text: domain.StringPtr("hello")}); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/chat/history?session_id=s1", nil), rec)
	if err := h.GetChatHistory(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp domain.ChatHistoryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.SessionID != "s1" || len(resp.Messages) != 1 || *resp.Messages[0].Text != "hello" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestGetChatHistoryUnknownSession(t *testing.T) {
	e := echo.New()
	h, _, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/chat/history?session_id=nope", nil), rec)
	if err := h.GetChatHistory(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Code != "unknown_session" {
		t.Fatalf("unexpected error body: %+v", body)
	}
}

func TestSessionLifecycle(t *testing.T) {
	e := echo.New()
	h, db, _ := newTestHandler(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b"} {
		if err := db.CreateSession(ctx, &domain.Session{SessionID: id, Mode: domain.SessionModeCall}); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
	}

	// metadata
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPatch, "/api/sessions/a/metadata", `{"topic":"Pitch"}`), rec)
	c.SetParamNames("session_id")
	c.SetParamValues("a")
	if err := h.UpdateSessionMetadata(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var session domain.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if session.Topic != "Pitch" {
		t.Fatalf("unexpected session: %+v", session)
	}

	// list
	rec = httptest.NewRecorder()
	if err := h.ListSessions(e.NewContext(httptest.NewRequest(http.MethodGet, "/api/sessions/all", nil), rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var list domain.SessionsListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(list.Sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(list.Sessions))
	}

	// delete one
	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodDelete, "/api/sessions/a", nil), rec)
	c.SetParamNames("session_id")
	c.SetParamValues("a")
	if err := h.DeleteSession(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	// delete again
	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodDelete, "/api/sessions/a", nil), rec)
	c.SetParamNames("session_id")
	c.SetParamValues("a")
	if err := h.DeleteSession(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	// clear the rest
	rec = httptest.NewRecorder()
	if err := h.ClearAllSessions(e.NewContext(httptest.NewRequest(http.MethodDelete, "/api/sessions/clear-all", nil), rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var cleared domain.ClearSessionsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &cleared); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if cleared.Count != 1 {
		t.Fatalf("expected 1 cleared session, got %d", cleared.Count)
	}
}

func TestGetModels(t *testing.T) {
	e := echo.New()
	h, _, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	if err := h.GetModels(e.NewContext(httptest.NewRequest(http.MethodGet, "/api/models", nil), rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["default_model"] != "small:1b" || resp["default_tts_model"] != "vits" {
		t.Fatalf("unexpected defaults: %v", resp)
	}
	models, ok := resp["llm_models"].([]interface{})
	if !ok || len(models) != 3 {
		t.Fatalf("unexpected llm models: %v", resp["llm_models"])
	}
	first := models[0].(map[string]interface{})
	if first["tag"] != "small:1b" || first["tier"] != "entry" || first["primary"] != true {
		t.Fatalf("unexpected model entry: %v", first)
	}
}

func TestGetEventSchemas(t *testing.T) {
	e := echo.New()
	h, _, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	if err := h.GetEventSchemas(e.NewContext(httptest.NewRequest(http.MethodGet, "/api/schema/events", nil), rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	for _, typ := range []string{"transcription", "status", "text_response", "audio_url", "error", "config"} {
		if _, ok := resp[typ]; !ok {
			t.Fatalf("missing schema for %s", typ)
		}
	}
}

func TestHealth(t *testing.T) {
	e := echo.New()
	h, _, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	if err := h.Health(e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"healthy"`) {
		t.Fatalf("unexpected health response: %d %s", rec.Code, rec.Body.String())
	}
}
