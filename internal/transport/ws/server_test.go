package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speechcoach/coach/internal/adapter/tts"
	"github.com/speechcoach/coach/internal/artifact"
	"github.com/speechcoach/coach/internal/config"
	"github.com/speechcoach/coach/internal/hub"
	"github.com/speechcoach/coach/internal/repository"
	"github.com/speechcoach/coach/internal/service"
	"github.com/speechcoach/coach/internal/testutil"
	"github.com/speechcoach/coach/internal/workerpool"
	"github.com/speechcoach/coach/policy"
)

type testServer struct {
	url string
	db  *repository.SQLiteStore
	hub *hub.Hub
	gen *testutil.StubGenerator
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWith(t, &testutil.StubGenerator{Reply: "Nice pacing"})
}

func newTestServerWith(t *testing.T, gen *testutil.StubGenerator) *testServer {
	t.Helper()

	cfg := &config.Config{
		AllowImplicitSessions: true,
		PingInterval:          time.Minute,
		WriteTimeout:          5 * time.Second,
		ReadTimeout:           time.Minute,
		MaxMessageSize:        1 << 20,
	}
	db := testutil.NewTestSQLiteStore(t)
	artifacts, err := artifact.NewLocalStore(t.TempDir(), "/output")
	require.NoError(t, err)
	policyEngine, err := policy.NewDefaultEngine(context.Background())
	require.NoError(t, err)

	svc := service.New(db, artifacts, service.Engines{
		Transcriber: &testutil.StubTranscriber{Text: "testing one two"},
		Generator:   gen,
		Synthesizer: &testutil.StubSynthesizer{Audio: tts.SilentWAV(10*time.Millisecond, 8000)},
	}, testutil.NewTestResolver(t), workerpool.New(2), policyEngine, nil, cfg)

	h := hub.NewHub(nil)
	e := echo.New()
	NewServer(cfg, h, svc).RegisterRoutes(e)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	return &testServer{
		url: "ws" + strings.TrimPrefix(srv.URL, "http"),
		db:  db,
		hub: h,
		gen: gen,
	}
}

func (ts *testServer) dial(t *testing.T, path string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(ts.url+path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev map[string]string
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func waitBound(t *testing.T, h *hub.Hub, sessionID string) *hub.Connection {
	t.Helper()
	var conn *hub.Connection
	require.Eventually(t, func() bool {
		c, ok := h.Lookup(sessionID)
		conn = c
		return ok
	}, 2*time.Second, 10*time.Millisecond)
	return conn
}

func TestAudioFrameRunsTurn(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t, "/api/ws/call/ws-session")

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("RIFF....")))

	want := []string{"transcription", "status", "text_response", "status", "audio_url", "status"}
	var got []map[string]string
	for range want {
		got = append(got, readEvent(t, conn))
	}
	for i, ev := range got {
		assert.Equal(t, want[i], ev["type"], "event %d", i)
	}
	assert.Equal(t, "testing one two", got[0]["text"])
	assert.Equal(t, "thinking", got[1]["status"])
	assert.Equal(t, "Nice pacing", got[2]["text"])
	assert.Equal(t, "speaking", got[3]["status"])
	assert.True(t, strings.HasPrefix(got[4]["url"], "/output/coach_tts_"))
	assert.Equal(t, "idle", got[5]["status"])

	messages, err := ts.db.GetMessages(context.Background(), "ws-session")
	require.NoError(t, err)
	assert.Len(t, messages, 2)
}

func TestMalformedTextFrameKeepsConnectionOpen(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t, "/api/ws/call/s1")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hello?")))
	ev := readEvent(t, conn)
	assert.Equal(t, "error", ev["type"])
	assert.Contains(t, ev["message"], "malformed frame")

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("audio")))
	assert.Equal(t, "transcription", readEvent(t, conn)["type"])
}

func TestConfigFrameOverridesModel(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t, "/api/ws/call/s1?model=query:1b")

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("a")))
	for i := 0; i < 6; i++ {
		readEvent(t, conn)
	}

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "config", "model": "frame:2b"}))
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("b")))
	for i := 0; i < 6; i++ {
		readEvent(t, conn)
	}

	assert.Equal(t, []string{"query:1b", "frame:2b"}, ts.gen.Models())
}

func TestNewConnectionClosesSupersededOne(t *testing.T) {
	ts := newTestServer(t)
	first := ts.dial(t, "/api/ws/call/s1")
	firstConn := waitBound(t, ts.hub, "s1")

	second := ts.dial(t, "/api/ws/call/s1")
	require.Eventually(t, func() bool {
		c, ok := ts.hub.Lookup("s1")
		return ok && c != firstConn
	}, 2*time.Second, 10*time.Millisecond)

	// The old socket may already be gone; either way it must not run a turn.
	_ = first.WriteMessage(websocket.BinaryMessage, []byte("a"))
	require.NoError(t, first.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := first.ReadMessage()
	require.Error(t, err)
	var netErr net.Error
	assert.False(t, errors.As(err, &netErr) && netErr.Timeout(), "superseded socket should be closed, got %v", err)

	require.NoError(t, second.WriteMessage(websocket.BinaryMessage, []byte("b")))
	for i := 0; i < 6; i++ {
		readEvent(t, second)
	}
	assert.Equal(t, 1, ts.gen.Calls())
	assert.Equal(t, 1, ts.hub.GetConnectionCount())

	c, ok := ts.hub.Lookup("s1")
	require.True(t, ok)
	assert.NotEqual(t, firstConn, c)
}

func TestSessionTurnsDoNotOverlapAcrossConnections(t *testing.T) {
	ts := newTestServerWith(t, &testutil.StubGenerator{Reply: "Slow down", Delay: 300 * time.Millisecond})
	first := ts.dial(t, "/api/ws/call/s1")
	firstConn := waitBound(t, ts.hub, "s1")

	require.NoError(t, first.WriteMessage(websocket.BinaryMessage, []byte("a")))
	require.Eventually(t, func() bool { return ts.gen.Calls() == 1 }, 2*time.Second, 5*time.Millisecond)

	second := ts.dial(t, "/api/ws/call/s1")
	require.Eventually(t, func() bool {
		c, ok := ts.hub.Lookup("s1")
		return ok && c != firstConn
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, second.WriteMessage(websocket.BinaryMessage, []byte("b")))

	// The rest of the first turn and all of the second reach the live socket.
	idle := 0
	for idle < 2 {
		ev := readEvent(t, second)
		if ev["type"] == "status" && ev["status"] == "idle" {
			idle++
		}
	}
	assert.Equal(t, 2, ts.gen.Calls())
	assert.Equal(t, 1, ts.gen.MaxConcurrent())

	messages, err := ts.db.GetMessages(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, messages, 4)
}

func TestClientCloseMidTurnUnbindsImmediately(t *testing.T) {
	ts := newTestServerWith(t, &testutil.StubGenerator{Reply: "Take a breath", Delay: 1500 * time.Millisecond})
	conn := ts.dial(t, "/api/ws/call/s1")
	waitBound(t, ts.hub, "s1")

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("a")))
	require.Eventually(t, func() bool { return ts.gen.Calls() == 1 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		_, ok := ts.hub.Lookup("s1")
		return !ok && ts.hub.GetConnectionCount() == 0
	}, 500*time.Millisecond, 10*time.Millisecond)
	assert.Equal(t, 0, ts.gen.Finished(), "turn should still be running")

	// The running turn completes and is persisted without a client.
	require.Eventually(t, func() bool {
		messages, err := ts.db.GetMessages(context.Background(), "s1")
		return err == nil && len(messages) == 2
	}, 5*time.Second, 20*time.Millisecond)
}

func TestSessionLocksSerializeAndCleanUp(t *testing.T) {
	l := newSessionLocks()
	unlock := l.Lock("s1")
	assert.Equal(t, 1, l.Len())

	acquired := make(chan struct{})
	go func() {
		release := l.Lock("s1")
		close(acquired)
		release()
	}()

	select {
	case <-acquired:
		t.Fatal("second Lock acquired while the first was held")
	case <-time.After(50 * time.Millisecond):
	}

	other := l.Lock("s2")
	other()

	unlock()
	<-acquired
	require.Eventually(t, func() bool { return l.Len() == 0 }, time.Second, 5*time.Millisecond)
}
