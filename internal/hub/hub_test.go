package hub

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speechcoach/coach/internal/protocol"
)

func newRegistered(h *Hub, sessionID string) *Connection {
	conn := h.NewConnection(nil, sessionID)
	h.Register(conn)
	h.Bind(sessionID, conn)
	return conn
}

func TestSendDeliversToBoundConnection(t *testing.T) {
	h := NewHub(nil)
	conn := newRegistered(h, "s1")

	require.True(t, h.Send("s1", protocol.Status(protocol.StateThinking)))
	data := <-conn.Send
	assert.JSONEq(t, `{"type":"status","status":"thinking"}`, string(data))
}

func TestSendWithoutConnectionIsNoop(t *testing.T) {
	h := NewHub(nil)
	assert.False(t, h.Send("missing", protocol.Error("x")))
}

func TestBindSupersedesPreviousConnection(t *testing.T) {
	h := NewHub(nil)
	old := newRegistered(h, "s1")
	fresh := h.NewConnection(nil, "s1")
	h.Register(fresh)

	superseded := h.Bind("s1", fresh)
	assert.Same(t, old, superseded)

	require.True(t, h.Send("s1", protocol.TextResponse("hi")))
	assert.Len(t, fresh.Send, 1)
	assert.Len(t, old.Send, 0)

	// The old socket closing must not unbind its successor.
	assert.False(t, h.Release(old))
	h.Unregister(old)
	conn, ok := h.Lookup("s1")
	require.True(t, ok)
	assert.Same(t, fresh, conn)
}

func TestReleaseAndUnbind(t *testing.T) {
	h := NewHub(nil)
	conn := newRegistered(h, "s1")
	assert.True(t, h.Release(conn))
	assert.False(t, h.Send("s1", protocol.Status(protocol.StateIdle)))

	newRegistered(h, "s2")
	h.Unbind("s2")
	assert.Equal(t, 0, h.GetSessionCount())
	assert.Equal(t, 2, h.GetConnectionCount())
}

func TestUnregisterClosesSendOnce(t *testing.T) {
	h := NewHub(nil)
	conn := newRegistered(h, "s1")
	h.Unregister(conn)
	h.Unregister(conn)

	_, open := <-conn.Send
	assert.False(t, open)
	assert.False(t, h.Send("s1", protocol.Status(protocol.StateIdle)))
	assert.Equal(t, 0, h.GetConnectionCount())
}

func TestSendAfterUnregisterDoesNotPanic(t *testing.T) {
	h := NewHub(nil)
	conn := h.NewConnection(nil, "s1")
	h.Register(conn)
	h.Bind("s1", conn)
	h.Unregister(conn)
	// Rebinding a dead connection must not let Send write to its closed channel.
	h.Bind("s1", conn)
	assert.NotPanics(t, func() { h.Send("s1", protocol.Status(protocol.StateIdle)) })
}

func TestConcurrentSessions(t *testing.T) {
	h := NewHub(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			conn := newRegistered(h, id)
			for j := 0; j < 5; j++ {
				h.Send(id, protocol.Status(protocol.StateThinking))
			}
			assert.Len(t, conn.Send, 5)
			h.Unregister(conn)
		}(fmt.Sprintf("s%d", i))
	}
	wg.Wait()
	assert.Equal(t, 0, h.GetConnectionCount())
	assert.Equal(t, 0, h.GetSessionCount())
}

func TestSendToConnectionIgnoresBinding(t *testing.T) {
	h := NewHub(nil)
	old := newRegistered(h, "s1")
	newRegistered(h, "s1")

	require.True(t, h.SendToConnection(old, protocol.Error("malformed frame")))
	data := <-old.Send
	assert.JSONEq(t, `{"type":"error","message":"malformed frame"}`, string(data))

	h.Unregister(old)
	assert.False(t, h.SendToConnection(old, protocol.Error("late")))
}
